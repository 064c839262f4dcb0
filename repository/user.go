package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/wallpress/models"
)

// UserRepository maintains the local users mirror.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts the principal or overwrites the mirrored profile fields of an
// existing row in one statement.
func (r *UserRepository) Upsert(ctx context.Context, p models.Principal) error {
	u := p.Mirror()
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "email", "avatar_url", "role", "external_id", "updated_at"}),
	}).Create(&u).Error
}
