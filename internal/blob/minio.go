// Package blob stores the HTML bodies of content nodes in an S3-compatible bucket.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned when a node has no stored body.
var ErrNotFound = errors.New("body not found")

const htmlContentType = "text/html; charset=utf-8"

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Store struct {
	client *minio.Client
	bucket string
}

// NewStore connects to the bucket in cfg and creates it when missing.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("blob endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("blob bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// BodyKey is the object key of a node body.
func BodyKey(documentID, nodeID string) string {
	return fmt.Sprintf("documents/%s/contents/%s.html", documentID, nodeID)
}

func (s *Store) PutBody(ctx context.Context, documentID, nodeID string, body []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, BodyKey(documentID, nodeID), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: htmlContentType,
	})
	if err != nil {
		return fmt.Errorf("put body %s/%s: %w", documentID, nodeID, err)
	}
	return nil
}

// GetBody returns the stored body of a node or ErrNotFound.
func (s *Store) GetBody(ctx context.Context, documentID, nodeID string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, BodyKey(documentID, nodeID), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapObjectError(documentID, nodeID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapObjectError(documentID, nodeID, err)
	}
	return data, nil
}

func mapObjectError(documentID, nodeID string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("get body %s/%s: %w", documentID, nodeID, ErrNotFound)
	}
	return fmt.Errorf("get body %s/%s: %w", documentID, nodeID, err)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
