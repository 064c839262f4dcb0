package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/wallpress/models"
)

// MediaRepository records uploaded objects and the per-user quota they consume.
type MediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a MediaRepository.
func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Usage returns the user's quota row, or a zero row when nothing was uploaded yet.
func (r *MediaRepository) Usage(ctx context.Context, userID string) (models.UsageQuota, error) {
	q := models.UsageQuota{UserID: userID}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UsageQuota{UserID: userID, ResetDate: nextResetDate(time.Now())}, nil
	}
	return q, err
}

// RecordUpload inserts m and adds its size to the uploader's quota in one
// transaction. The quota increment is done in SQL, never read-modify-write.
func (r *MediaRepository) RecordUpload(ctx context.Context, m *models.Media) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("insert media: %w", err)
		}
		q := models.UsageQuota{
			UserID:         m.UploadedBy,
			TotalBytesUsed: m.FileSize,
			TotalFiles:     1,
			ResetDate:      nextResetDate(time.Now()),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_bytes_used": gorm.Expr("total_bytes_used + ?", m.FileSize),
				"total_files":      gorm.Expr("total_files + ?", 1),
			}),
		}).Create(&q).Error
		if err != nil {
			return fmt.Errorf("increment quota: %w", err)
		}
		return nil
	})
}

// FindByKey returns the media row for a storage key.
func (r *MediaRepository) FindByKey(ctx context.Context, key string) (*models.Media, error) {
	var m models.Media
	if err := r.db.WithContext(ctx).Where("storage_key = ?", key).Take(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// DeleteByKey removes the media row. Quota counters are left untouched.
func (r *MediaRepository) DeleteByKey(ctx context.Context, key string) (int64, error) {
	res := r.db.WithContext(ctx).Where("storage_key = ?", key).Delete(&models.Media{})
	return res.RowsAffected, res.Error
}

// nextResetDate is the first day of the following month.
func nextResetDate(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, now.Location())
}
