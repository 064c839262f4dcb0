package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/cppla/wallpress/models"
	"github.com/cppla/wallpress/repository"
	"github.com/cppla/wallpress/utils"
)

// WallInput is the payload of a new wall.
type WallInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// WallPatch carries the fields of a partial wall update.
type WallPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// WallDetail is a wall with one page of its approved top-level threads.
type WallDetail struct {
	Wall    models.Wall                        `json:"wall"`
	Threads Listing[models.CommentWithReplies] `json:"threads"`
}

// WallService manages message walls.
type WallService struct {
	walls        *repository.WallRepository
	comments     *repository.CommentRepository
	defaultLimit int
}

// NewWallService creates a WallService.
func NewWallService(walls *repository.WallRepository, comments *repository.CommentRepository, defaultLimit int) *WallService {
	return &WallService{walls: walls, comments: comments, defaultLimit: defaultLimit}
}

// List returns active walls; privileged viewers also see inactive ones.
func (s *WallService) List(ctx context.Context, viewer *models.Principal) ([]models.Wall, error) {
	walls, err := s.walls.List(ctx, !viewer.IsPrivileged())
	if err != nil {
		return nil, utils.InternalError(50040, fmt.Errorf("list walls: %w", err))
	}
	return walls, nil
}

// Detail returns the wall and its approved top-level threads. Inactive walls
// are hidden from non-privileged viewers.
func (s *WallService) Detail(ctx context.Context, id uint, pageStr, limitStr string, viewer *models.Principal) (*WallDetail, error) {
	wall, err := s.walls.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !wall.IsActive && !viewer.IsPrivileged()) {
		return nil, utils.NotFound(40430, "wall not found")
	}
	if err != nil {
		return nil, utils.InternalError(50041, fmt.Errorf("get wall %d: %w", id, err))
	}

	req := Paginate(pageStr, limitStr, s.defaultLimit)
	items, total, err := s.comments.ListWallThreads(ctx, id, req.Offset, req.Limit)
	if err != nil {
		return nil, utils.InternalError(50042, fmt.Errorf("list wall threads: %w", err))
	}
	return &WallDetail{Wall: *wall, Threads: NewListing(items, total, req)}, nil
}

// Create adds an active wall.
func (s *WallService) Create(ctx context.Context, in WallInput) (*models.Wall, error) {
	title := utils.StripTags(in.Title)
	if title == "" {
		return nil, utils.ValidationError(40040, "title cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, utils.ValidationError(40041, "title is too long")
	}
	wall := &models.Wall{Title: title, Description: utils.Sanitize(in.Description), IsActive: true}
	if err := s.walls.Create(ctx, wall); err != nil {
		return nil, utils.InternalError(50043, fmt.Errorf("create wall: %w", err))
	}
	return wall, nil
}

// Update applies the present fields of patch and returns the updated wall.
func (s *WallService) Update(ctx context.Context, id uint, patch WallPatch) (*models.Wall, error) {
	fields := map[string]interface{}{}
	if patch.Title != nil {
		title := utils.StripTags(*patch.Title)
		if title == "" {
			return nil, utils.ValidationError(40040, "title cannot be empty")
		}
		fields["title"] = title
	}
	if patch.Description != nil {
		fields["description"] = utils.Sanitize(*patch.Description)
	}
	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
	}

	n, err := s.walls.Update(ctx, id, fields)
	if err != nil {
		return nil, utils.InternalError(50044, fmt.Errorf("update wall %d: %w", id, err))
	}
	if n == 0 {
		return nil, utils.NotFound(40430, "wall not found")
	}
	wall, err := s.walls.FindByID(ctx, id)
	if err != nil {
		return nil, utils.InternalError(50045, fmt.Errorf("reload wall %d: %w", id, err))
	}
	return wall, nil
}

// Delete removes the wall with all its comments. Deleting a missing wall is a no-op.
func (s *WallService) Delete(ctx context.Context, id uint) error {
	if _, err := s.walls.Delete(ctx, id); err != nil {
		return utils.InternalError(50046, fmt.Errorf("delete wall %d: %w", id, err))
	}
	return nil
}
