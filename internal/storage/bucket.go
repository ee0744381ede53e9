// Package storage загружает медиафайлы в S3-совместимое объектное хранилище.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrForeignURL возвращается, если URL не принадлежит бакету.
var ErrForeignURL = errors.New("url does not belong to the bucket")

// Config описывает подключение к хранилищу.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	PublicURL string
	UseSSL    bool
}

type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Bucket работает с бакетом, открытым на чтение.
type Bucket struct {
	client    objectStore
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewBucket создаёт клиента хранилища.
func NewBucket(cfg Config) (*Bucket, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Bucket{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		now:       time.Now,
	}, nil
}

// ObjectKey строит ключ объекта для загружаемого изображения статьи.
func (b *Bucket) ObjectKey(fileName string) string {
	name := strings.ReplaceAll(path.Base(strings.ReplaceAll(fileName, "\\", "/")), " ", "-")
	return fmt.Sprintf("blog/%d-%s", b.now().UnixMilli(), name)
}

// Upload сохраняет файл и возвращает его публичный URL.
func (b *Bucket) Upload(ctx context.Context, fileName, contentType string, r io.Reader, size int64) (string, error) {
	key := b.ObjectKey(fileName)

	_, err := b.client.PutObject(ctx, b.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return b.PublicURL(key), nil
}

// PublicURL возвращает публичный адрес объекта.
func (b *Bucket) PublicURL(key string) string {
	return b.publicURL + "/" + key
}

// KeyFromURL извлекает ключ объекта из публичного URL.
func (b *Bucket) KeyFromURL(url string) (string, error) {
	prefix := b.publicURL + "/"
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", ErrForeignURL
	}
	return strings.TrimPrefix(url, prefix), nil
}

// Delete удаляет объект по его публичному URL.
func (b *Bucket) Delete(ctx context.Context, url string) error {
	key, err := b.KeyFromURL(url)
	if err != nil {
		return err
	}

	if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}
