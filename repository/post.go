package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/wallpress/models"
)

// PostRepository reads and writes posts.
type PostRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a PostRepository.
func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// withAuthor projects posts joined with the mirrored author profile. Posts whose
// author has no mirror row are still returned with empty author fields.
func (r *PostRepository) withAuthor(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("posts").
		Select("posts.*, COALESCE(users.username, '') AS author_name, COALESCE(users.avatar_url, '') AS author_avatar").
		Joins("LEFT JOIN users ON users.id = posts.author_id")
}

// ListPublished returns one page of published posts, newest publication first.
func (r *PostRepository) ListPublished(ctx context.Context, offset, limit int) ([]models.PostWithAuthor, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("status = ?", models.PostStatusPublished).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := []models.PostWithAuthor{}
	err := r.withAuthor(ctx).
		Where("posts.status = ?", models.PostStatusPublished).
		Order("posts.published_at DESC, posts.id DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	return items, total, err
}

// ListAll returns one page of every post, drafts included, newest first.
func (r *PostRepository) ListAll(ctx context.Context, offset, limit int) ([]models.PostWithAuthor, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := []models.PostWithAuthor{}
	err := r.withAuthor(ctx).
		Order("posts.created_at DESC, posts.id DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	return items, total, err
}

// GetBySlug returns the post with its author projection, whatever its status.
func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (*models.PostWithAuthor, error) {
	var item models.PostWithAuthor
	if err := r.withAuthor(ctx).Where("posts.slug = ?", slug).Take(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// FindByID returns the bare post row.
func (r *PostRepository) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// SlugsWithPrefix lists existing slugs equal to base or starting with base-.
func (r *PostRepository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &slugs).Error
	return slugs, err
}

// Create inserts p. A taken slug yields ErrDuplicate.
func (r *PostRepository) Create(ctx context.Context, p *models.Post) error {
	return duplicate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PostRepository) scoped(ctx context.Context, id uint, requesterID string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id)
	if requesterID != "" {
		q = q.Where("author_id = ?", requesterID)
	}
	return q
}

// Update applies fields to the post matching id and, when requesterID is set,
// author_id. updated_at is always refreshed. Returns the number of rows changed;
// zero is not an error.
func (r *PostRepository) Update(ctx context.Context, id uint, fields map[string]interface{}, requesterID string) (int64, error) {
	values := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["updated_at"] = time.Now()
	res := r.scoped(ctx, id, requesterID).Updates(values)
	return res.RowsAffected, res.Error
}

// Publish marks the post published in a single UPDATE. published_at keeps its
// first value on repeated calls.
func (r *PostRepository) Publish(ctx context.Context, id uint, requesterID string) (int64, error) {
	now := time.Now()
	res := r.scoped(ctx, id, requesterID).Updates(map[string]interface{}{
		"status":       models.PostStatusPublished,
		"published_at": gorm.Expr("COALESCE(published_at, ?)", now),
		"updated_at":   now,
	})
	return res.RowsAffected, res.Error
}
