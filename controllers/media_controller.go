package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/wallpress/middleware"
	"github.com/cppla/wallpress/services"
	"github.com/cppla/wallpress/storage"
	"github.com/cppla/wallpress/utils"
)

// multipartSlack covers the multipart framing around the file part.
const multipartSlack = 1 << 20

// MediaController handles uploads, quota reporting and media deletion.
type MediaController struct {
	uploads  *services.UploadService
	maxBytes int64
}

// NewMediaController creates a new MediaController instance.
func NewMediaController(uploads *services.UploadService, maxBytes int64) *MediaController {
	return &MediaController{uploads: uploads, maxBytes: maxBytes}
}

// Upload accepts one multipart file, in field "file" or "f", with an optional
// target_type/target_id pair attaching it to a post or comment.
func (m *MediaController) Upload(ctx *gin.Context) {
	if m.maxBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, m.maxBytes+multipartSlack)
	}
	header, err := formFile(ctx, "file", "f")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Fail(ctx, utils.PayloadTooLarge(41300, "file exceeds the upload size limit"))
			return
		}
		utils.Fail(ctx, utils.ValidationError(40050, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		utils.Fail(ctx, utils.ValidationError(40050, "file is unreadable"))
		return
	}
	defer file.Close()

	media, err := m.uploads.Upload(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), services.UploadRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		TargetKind:  strings.TrimSpace(ctx.PostForm("target_type")),
		TargetID:    strings.TrimSpace(ctx.PostForm("target_id")),
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"media": media})
}

func formFile(ctx *gin.Context, fields ...string) (*multipart.FileHeader, error) {
	var lastErr error
	for _, field := range fields {
		header, err := ctx.FormFile(field)
		if err == nil {
			return header, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Quota reports the caller's storage consumption.
func (m *MediaController) Quota(ctx *gin.Context) {
	p := middleware.CurrentPrincipal(ctx)
	if p == nil {
		utils.Fail(ctx, utils.AuthenticationRequired(40100))
		return
	}
	status, err := m.uploads.Quota(ctx.Request.Context(), p)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, status)
}

// Delete removes a stored object by key.
func (m *MediaController) Delete(ctx *gin.Context) {
	key, err := mediaKey(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if err := m.uploads.Delete(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), key); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": key})
}

// MediaOwner resolves the owner of the addressed object for ownership checks.
func (m *MediaController) MediaOwner(ctx *gin.Context) (string, error) {
	key, err := mediaKey(ctx)
	if err != nil {
		return "", err
	}
	return m.uploads.Owner(ctx.Request.Context(), key)
}

// mediaKey reads the *key wildcard in canonical form.
func mediaKey(ctx *gin.Context) (string, error) {
	key, err := storage.CleanKey(ctx.Param("key"))
	if err != nil {
		return "", utils.ValidationError(40053, "invalid storage key")
	}
	return key, nil
}
