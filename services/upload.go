package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cppla/wallpress/models"
	"github.com/cppla/wallpress/repository"
	"github.com/cppla/wallpress/storage"
	"github.com/cppla/wallpress/utils"
)

// Upload target kinds.
const (
	TargetPost    = "post"
	TargetComment = "comment"
)

// UploadRequest is one file handed over by the HTTP layer.
type UploadRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	TargetKind  string
	TargetID    string
}

// QuotaStatus reports a user's consumption against the configured ceiling.
type QuotaStatus struct {
	UserID         string         `json:"user_id"`
	TotalBytesUsed int64          `json:"total_bytes_used"`
	TotalFiles     int64          `json:"total_files"`
	LimitBytes     int64          `json:"limit_bytes"`
	RemainingBytes int64          `json:"remaining_bytes"`
	Remote         *storage.Usage `json:"remote,omitempty"`
}

// UploadService gates uploads by size and quota, hands the bytes to the blob
// backend and records the result.
type UploadService struct {
	media      *repository.MediaRepository
	posts      *repository.PostRepository
	comments   *repository.CommentRepository
	blob       storage.BlobService
	maxBytes   int64
	quotaBytes int64
}

// NewUploadService creates an UploadService.
func NewUploadService(media *repository.MediaRepository, posts *repository.PostRepository, comments *repository.CommentRepository, blob storage.BlobService, maxBytes, quotaBytes int64) *UploadService {
	return &UploadService{media: media, posts: posts, comments: comments, blob: blob, maxBytes: maxBytes, quotaBytes: quotaBytes}
}

// FileTypeOf derives the media kind from a content type.
func FileTypeOf(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return models.MediaTypeImage
	case strings.HasPrefix(ct, "audio/"):
		return models.MediaTypeAudio
	default:
		return models.MediaTypeVideo
	}
}

func identityOf(p *models.Principal) storage.Identity {
	return storage.Identity{UserID: p.ID, Role: p.Role, Email: p.Email}
}

// Upload runs the gates in order: size, target, quota, storage, record.
// Storage is never called once a gate rejects the request.
func (s *UploadService) Upload(ctx context.Context, p *models.Principal, req UploadRequest) (*models.Media, error) {
	if p == nil {
		return nil, utils.AuthenticationRequired(40100)
	}
	if req.Body == nil {
		return nil, utils.ValidationError(40050, "file is required")
	}
	if req.Size > s.maxBytes {
		return nil, utils.PayloadTooLarge(41300, fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}

	media := &models.Media{
		FileName:   req.FileName,
		FileSize:   req.Size,
		FileType:   FileTypeOf(req.ContentType),
		UploadedBy: p.ID,
	}
	if err := s.attachTarget(ctx, media, req.TargetKind, req.TargetID); err != nil {
		return nil, err
	}

	usage, err := s.media.Usage(ctx, p.ID)
	if err != nil {
		return nil, utils.InternalError(50050, fmt.Errorf("read quota: %w", err))
	}
	if usage.TotalBytesUsed+req.Size > s.quotaBytes {
		return nil, utils.QuotaExceeded(42900, "storage quota exceeded")
	}

	obj, err := s.blob.Upload(ctx, storage.UploadInput{
		Owner:       identityOf(p),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
		Body:        req.Body,
	})
	if err != nil {
		return nil, upstreamError("upload failed", err)
	}

	media.StorageKey = obj.Key
	media.URL = obj.URL
	if err := s.media.RecordUpload(ctx, media); err != nil {
		utils.Sugar.Errorw("orphaned upload: stored object has no media record",
			"storage_key", obj.Key,
			"user_id", p.ID,
			"size", req.Size,
			"err", err,
		)
		return nil, utils.InternalError(50051, err)
	}
	return media, nil
}

func (s *UploadService) attachTarget(ctx context.Context, m *models.Media, kind, rawID string) error {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return nil
	}
	id64, err := strconv.ParseUint(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id64 == 0 {
		return utils.ValidationError(40052, "invalid target id")
	}
	id := uint(id64)

	switch kind {
	case TargetPost:
		_, err = s.posts.FindByID(ctx, id)
		m.PostID = &id
	case TargetComment:
		_, err = s.comments.FindByID(ctx, id)
		m.CommentID = &id
	default:
		return utils.ValidationError(40051, "unknown target type")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NotFound(40450, kind+" not found")
	}
	if err != nil {
		return utils.InternalError(50052, fmt.Errorf("check upload target: %w", err))
	}
	return nil
}

// Quota reports the caller's local counters and, best effort, the backend's own figures.
func (s *UploadService) Quota(ctx context.Context, p *models.Principal) (*QuotaStatus, error) {
	usage, err := s.media.Usage(ctx, p.ID)
	if err != nil {
		return nil, utils.InternalError(50053, fmt.Errorf("read quota: %w", err))
	}
	status := &QuotaStatus{
		UserID:         p.ID,
		TotalBytesUsed: usage.TotalBytesUsed,
		TotalFiles:     usage.TotalFiles,
		LimitBytes:     s.quotaBytes,
		RemainingBytes: max(s.quotaBytes-usage.TotalBytesUsed, 0),
	}
	utils.BestEffort("remote usage", func() error {
		remote, err := s.blob.Usage(ctx, identityOf(p))
		if err != nil {
			return err
		}
		status.Remote = remote
		return nil
	})
	return status, nil
}

// Owner returns the user a stored object belongs to: the uploader on its media
// row, or the key prefix for objects that never got a row.
func (s *UploadService) Owner(ctx context.Context, key string) (string, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return "", utils.ValidationError(40053, "invalid storage key")
	}
	m, err := s.media.FindByKey(ctx, key)
	switch {
	case err == nil:
		return m.UploadedBy, nil
	case errors.Is(err, repository.ErrNotFound):
		if owner := storage.KeyOwner(key); owner != "" {
			return owner, nil
		}
		return "", utils.NotFound(40451, "media not found")
	default:
		return "", utils.InternalError(50055, fmt.Errorf("find media %q: %w", key, err))
	}
}

// Delete removes the object from the backend and drops its media row.
// Quota counters are not decremented.
func (s *UploadService) Delete(ctx context.Context, p *models.Principal, key string) error {
	key, err := storage.CleanKey(key)
	if err != nil {
		return utils.ValidationError(40053, "invalid storage key")
	}
	if err := s.blob.Delete(ctx, identityOf(p), key); err != nil {
		return upstreamError("delete failed", err)
	}
	if _, err := s.media.DeleteByKey(ctx, key); err != nil {
		return utils.InternalError(50054, fmt.Errorf("delete media %q: %w", key, err))
	}
	return nil
}

func upstreamError(message string, err error) error {
	var apiErr *storage.APIError
	if errors.As(err, &apiErr) {
		return utils.UpstreamFailure(apiErr.Status, 50200, message, err)
	}
	return utils.UpstreamFailure(0, 50200, message, err)
}
