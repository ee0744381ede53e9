package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/wellnessreal/internal/model"
)

func TestBuildProposalUpdate(t *testing.T) {
	status := model.ProposalStatusSigned
	name := "Ana Pérez"
	now := time.Now()

	query, args := buildProposalUpdate("token", "tok", model.ProposalPatch{
		Status:            &status,
		SignedAt:          &now,
		SignatureFullName: &name,
		IfVersion:         3,
	})

	assert.True(t, strings.HasPrefix(query, "UPDATE proposals SET status = $2, signed_at = $3, signature_full_name = $4, version = version + 1, updated_at = now() WHERE token = $1 AND version = $5 RETURNING "))
	assert.Equal(t, []any{"tok", "signed", now, name, int64(3)}, args)
}

func TestBuildProposalUpdate_Unconditional(t *testing.T) {
	notes := "call on monday"

	query, args := buildProposalUpdate("id", "x", model.ProposalPatch{Notes: &notes})

	assert.Contains(t, query, "notes = $2")
	assert.NotContains(t, query, "AND version")
	assert.Len(t, args, 2)
}

func TestBuildPostUpdate_NullsEmptyOptionalFields(t *testing.T) {
	id := uuid.New()
	empty := ""
	title := "Nuevo título"

	query, args := buildPostUpdate(id, model.PostPatch{
		Title:        &title,
		MainImageURL: &empty,
		CategoryID:   &empty,
	})

	assert.Equal(t, "UPDATE posts SET title = $2, main_image_url = $3, category_id = $4, updated_at = now() WHERE id = $1 RETURNING id", query)
	assert.Equal(t, []any{id, title, nil, nil}, args)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: true},
		{name: "deadlock", err: &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: false},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "not found", err: ErrProposalNotFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestIsSafeToResend(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: true},
		{name: "deadlock", err: &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: false},
		{name: "connection reset after send", err: errors.New("read tcp 10.0.0.1:5432: connection reset by peer"), want: false},
		{name: "broken pipe", err: errors.New("write tcp: broken pipe"), want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSafeToResend(tt.err))
		})
	}

	// для чтения тот же обрыв остаётся поводом повторить
	assert.True(t, isRetryable(errors.New("connection reset by peer")))
}
