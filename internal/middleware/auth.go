// Package middleware содержит HTTP middleware сайта.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminKey contextKey = "admin"

const (
	sessionCookieName = "admin_session"
	sessionSubject    = "admin"
)

// AdminAuth выдаёт и проверяет подписанную JWT-сессию администратора в cookie.
type AdminAuth struct {
	secretKey []byte
	ttl       time.Duration
	secure    bool
	now       func() time.Time
}

// NewAdminAuth создаёт AdminAuth. При пустом секрете генерируется случайный ключ,
// и сессии не переживают перезапуск процесса.
func NewAdminAuth(secret string, ttl time.Duration, secure bool) *AdminAuth {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AdminAuth{
		secretKey: key,
		ttl:       ttl,
		secure:    secure,
		now:       time.Now,
	}
}

// Middleware пропускает запрос только с действительной сессией администратора.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := a.parse(cookie.Value); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), adminKey, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetSessionCookie выдаёт новую сессию администратора.
func (a *AdminAuth) SetSessionCookie(w http.ResponseWriter) error {
	now := a.now()
	expires := now.Add(a.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	value, err := token.SignedString(a.secretKey)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie завершает сессию администратора.
func (a *AdminAuth) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AdminAuth) parse(value string) error {
	_, err := jwt.ParseWithClaims(value, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return a.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(sessionSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return errors.Join(errors.New("invalid admin session"), err)
	}
	return nil
}

// IsAdmin сообщает, прошёл ли запрос проверку сессии администратора.
func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(adminKey).(bool)
	return ok
}
