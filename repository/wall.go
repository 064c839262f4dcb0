package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/wallpress/models"
)

// WallRepository reads and writes message walls.
type WallRepository struct {
	db *gorm.DB
}

// NewWallRepository creates a WallRepository.
func NewWallRepository(db *gorm.DB) *WallRepository {
	return &WallRepository{db: db}
}

// List returns walls, newest first. activeOnly hides deactivated walls.
func (r *WallRepository) List(ctx context.Context, activeOnly bool) ([]models.Wall, error) {
	walls := []models.Wall{}
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&walls).Error
	return walls, err
}

// FindByID returns the wall.
func (r *WallRepository) FindByID(ctx context.Context, id uint) (*models.Wall, error) {
	var w models.Wall
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// Create inserts w.
func (r *WallRepository) Create(ctx context.Context, w *models.Wall) error {
	return r.db.WithContext(ctx).Create(w).Error
}

// Update applies fields to the wall and returns the number of rows matched.
func (r *WallRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (int64, error) {
	values := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Wall{}).Where("id = ?", id).Updates(values)
	return res.RowsAffected, res.Error
}

// Delete removes the wall; its comments go with it through the foreign key cascade.
func (r *WallRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Wall{}, id)
	return res.RowsAffected, res.Error
}
