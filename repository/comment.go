package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/wallpress/models"
)

// CommentRepository reads and writes comments on posts and walls.
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a CommentRepository.
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts c.
func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// FindByID returns the comment.
func (r *CommentRepository) FindByID(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ListApprovedByPost returns approved comments of a post, newest first.
func (r *CommentRepository) ListApprovedByPost(ctx context.Context, postID uint, offset, limit int) ([]models.Comment, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ? AND status = ?", postID, models.CommentStatusApproved).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := []models.Comment{}
	err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// ListWallThreads returns approved top-level comments of a wall, newest first,
// each with the number of its approved replies.
func (r *CommentRepository) ListWallThreads(ctx context.Context, wallID uint, offset, limit int) ([]models.CommentWithReplies, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("wall_id = ? AND parent_comment_id IS NULL AND status = ?", wallID, models.CommentStatusApproved).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := []models.CommentWithReplies{}
	err := r.db.WithContext(ctx).Table("comments AS c").
		Select("c.*, (SELECT COUNT(*) FROM comments AS r WHERE r.parent_comment_id = c.id AND r.status = ?) AS reply_count", models.CommentStatusApproved).
		Where("c.wall_id = ? AND c.parent_comment_id IS NULL AND c.status = ?", wallID, models.CommentStatusApproved).
		Order("c.created_at DESC, c.id DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	return items, total, err
}

// ListReplies returns approved replies to a comment, oldest first.
func (r *CommentRepository) ListReplies(ctx context.Context, parentID uint) ([]models.Comment, error) {
	items := []models.Comment{}
	err := r.db.WithContext(ctx).
		Where("parent_comment_id = ? AND status = ?", parentID, models.CommentStatusApproved).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

// ListPending returns the moderation queue, oldest first.
func (r *CommentRepository) ListPending(ctx context.Context, offset, limit int) ([]models.Comment, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Comment{}).Where("status = ?", models.CommentStatusPending).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := []models.Comment{}
	err := q.Order("created_at ASC, id ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// SetStatus moves a comment to status. Setting the current status again is a
// no-op; a missing comment affects zero rows.
func (r *CommentRepository) SetStatus(ctx context.Context, id uint, status models.CommentStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND status <> ?", id, status).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

// Delete hard-deletes a comment. Replies are removed by the self-referencing cascade.
func (r *CommentRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	return res.RowsAffected, res.Error
}
