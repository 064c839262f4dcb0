package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBlobService writes media straight into an S3-compatible bucket.
type MinioBlobService struct {
	client    *minio.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

// MinioOptions configures MinioBlobService.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// NewMinioBlobService connects to MinIO and ensures the bucket exists.
func NewMinioBlobService(ctx context.Context, opts MinioOptions) (*MinioBlobService, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	publicURL := strings.TrimRight(opts.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket)
	}
	return &MinioBlobService{client: client, bucket: opts.Bucket, publicURL: publicURL, now: time.Now}, nil
}

// Upload puts the object under a fresh key in the owner's prefix.
func (m *MinioBlobService) Upload(ctx context.Context, in UploadInput) (*StoredObject, error) {
	key := ObjectKey(in.Owner.UserID, in.FileName, m.now())
	info, err := m.client.PutObject(ctx, m.bucket, key, in.Body, in.Size, minio.PutObjectOptions{
		ContentType:  in.ContentType,
		UserMetadata: map[string]string{"uploaded-by": in.Owner.UserID},
	})
	if err != nil {
		return nil, wrapMinioError("put object", err)
	}
	return &StoredObject{Key: key, URL: m.publicURL + "/" + key, Size: info.Size}, nil
}

// Delete removes an object.
func (m *MinioBlobService) Delete(ctx context.Context, owner Identity, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return wrapMinioError("delete object", err)
	}
	return nil
}

// Usage sums the objects under the owner's prefix.
func (m *MinioBlobService) Usage(ctx context.Context, owner Identity) (*Usage, error) {
	var u Usage
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: owner.UserID + "/", Recursive: true}) {
		if obj.Err != nil {
			return nil, wrapMinioError("list objects", obj.Err)
		}
		u.BytesUsed += obj.Size
		u.Files++
	}
	return &u, nil
}

func wrapMinioError(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("%s: %s", op, resp.Message)}
	}
	return fmt.Errorf("%s: %w", op, err)
}
