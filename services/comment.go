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

const (
	maxCommentLength    = 5000
	maxAuthorNameLength = 64
	anonymousAuthorName = "anonymous"
)

// CommentInput is the payload of a new comment.
type CommentInput struct {
	Content         string `json:"content" form:"content"`
	AuthorName      string `json:"author_name" form:"author_name"`
	ParentCommentID *uint  `json:"parent_comment_id" form:"parent_comment_id"`
}

// CommentService accepts comments on posts and walls and runs the moderation queue.
type CommentService struct {
	comments     *repository.CommentRepository
	posts        *repository.PostRepository
	walls        *repository.WallRepository
	adminRole    string
	defaultLimit int
}

// NewCommentService creates a CommentService. Comments submitted by a principal
// whose role equals adminRole are approved immediately.
func NewCommentService(comments *repository.CommentRepository, posts *repository.PostRepository, walls *repository.WallRepository, adminRole string, defaultLimit int) *CommentService {
	if adminRole == "" {
		adminRole = models.RoleAdmin
	}
	return &CommentService{comments: comments, posts: posts, walls: walls, adminRole: adminRole, defaultLimit: defaultLimit}
}

// publishedPost resolves slug to a published post or 404.
func (s *CommentService) publishedPost(ctx context.Context, slug string) (*models.PostWithAuthor, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && post.Status != models.PostStatusPublished) {
		return nil, utils.NotFound(40420, "post not found")
	}
	if err != nil {
		return nil, utils.InternalError(50030, fmt.Errorf("get post %q: %w", slug, err))
	}
	return post, nil
}

// activeWall resolves id to an active wall or 404.
func (s *CommentService) activeWall(ctx context.Context, id uint) (*models.Wall, error) {
	wall, err := s.walls.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !wall.IsActive) {
		return nil, utils.NotFound(40430, "wall not found")
	}
	if err != nil {
		return nil, utils.InternalError(50031, fmt.Errorf("get wall %d: %w", id, err))
	}
	return wall, nil
}

// ListPostComments returns approved comments of a published post, newest first.
func (s *CommentService) ListPostComments(ctx context.Context, slug, pageStr, limitStr string) (Listing[models.Comment], error) {
	post, err := s.publishedPost(ctx, slug)
	if err != nil {
		return Listing[models.Comment]{}, err
	}
	req := Paginate(pageStr, limitStr, s.defaultLimit)
	items, total, err := s.comments.ListApprovedByPost(ctx, post.ID, req.Offset, req.Limit)
	if err != nil {
		return Listing[models.Comment]{}, utils.InternalError(50032, fmt.Errorf("list comments: %w", err))
	}
	return NewListing(items, total, req), nil
}

// SubmitToPost adds a comment to a published post.
func (s *CommentService) SubmitToPost(ctx context.Context, slug string, in CommentInput, author *models.Principal) (*models.Comment, error) {
	post, err := s.publishedPost(ctx, slug)
	if err != nil {
		return nil, err
	}
	c, err := s.build(in, author)
	if err != nil {
		return nil, err
	}
	postID := post.ID
	c.PostID = &postID
	return c, s.save(ctx, c)
}

// SubmitToWall adds a comment to an active wall.
func (s *CommentService) SubmitToWall(ctx context.Context, wallID uint, in CommentInput, author *models.Principal) (*models.Comment, error) {
	wall, err := s.activeWall(ctx, wallID)
	if err != nil {
		return nil, err
	}
	c, err := s.build(in, author)
	if err != nil {
		return nil, err
	}
	id := wall.ID
	c.WallID = &id
	return c, s.save(ctx, c)
}

// build validates the input and fills author and moderation state.
func (s *CommentService) build(in CommentInput, author *models.Principal) (*models.Comment, error) {
	content := utils.StripTags(in.Content)
	if content == "" {
		return nil, utils.ValidationError(40030, "content cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, utils.ValidationError(40031, "content is too long")
	}

	c := &models.Comment{
		Content:         content,
		ParentCommentID: in.ParentCommentID,
		Status:          models.CommentStatusPending,
	}
	if author != nil {
		id := author.ID
		c.AuthorID = &id
		c.AuthorName = author.Username
		if author.Role == s.adminRole {
			c.Status = models.CommentStatusApproved
		}
	} else {
		c.AuthorName = utils.StripTags(in.AuthorName)
		if c.AuthorName == "" {
			c.AuthorName = anonymousAuthorName
		}
	}
	if utf8.RuneCountInString(c.AuthorName) > maxAuthorNameLength {
		return nil, utils.ValidationError(40032, "author name is too long")
	}
	return c, nil
}

// save checks that a reply targets a comment in the same container, then inserts.
func (s *CommentService) save(ctx context.Context, c *models.Comment) error {
	if c.ParentCommentID != nil {
		parent, err := s.comments.FindByID(ctx, *c.ParentCommentID)
		if errors.Is(err, repository.ErrNotFound) {
			return utils.ValidationError(40033, "parent comment does not exist")
		}
		if err != nil {
			return utils.InternalError(50033, fmt.Errorf("get parent comment: %w", err))
		}
		if !sameContainer(parent, c) {
			return utils.ValidationError(40034, "parent comment belongs to another thread")
		}
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return utils.InternalError(50034, fmt.Errorf("create comment: %w", err))
	}
	return nil
}

func sameContainer(a, b *models.Comment) bool {
	eq := func(x, y *uint) bool {
		if x == nil || y == nil {
			return x == nil && y == nil
		}
		return *x == *y
	}
	return eq(a.PostID, b.PostID) && eq(a.WallID, b.WallID)
}

// ListReplies returns approved replies to a comment, oldest first.
func (s *CommentService) ListReplies(ctx context.Context, parentID uint) ([]models.Comment, error) {
	items, err := s.comments.ListReplies(ctx, parentID)
	if err != nil {
		return nil, utils.InternalError(50035, fmt.Errorf("list replies: %w", err))
	}
	return items, nil
}

// ListPending returns the moderation queue, oldest first.
func (s *CommentService) ListPending(ctx context.Context, pageStr, limitStr string) (Listing[models.Comment], error) {
	req := Paginate(pageStr, limitStr, s.defaultLimit)
	items, total, err := s.comments.ListPending(ctx, req.Offset, req.Limit)
	if err != nil {
		return Listing[models.Comment]{}, utils.InternalError(50036, fmt.Errorf("list pending comments: %w", err))
	}
	return NewListing(items, total, req), nil
}

// Approve publishes a comment. Approving twice, or a missing comment, is a no-op.
func (s *CommentService) Approve(ctx context.Context, id uint) error {
	if _, err := s.comments.SetStatus(ctx, id, models.CommentStatusApproved); err != nil {
		return utils.InternalError(50037, fmt.Errorf("approve comment %d: %w", id, err))
	}
	return nil
}

// MarkSpam hides a comment as spam. Idempotent.
func (s *CommentService) MarkSpam(ctx context.Context, id uint) error {
	if _, err := s.comments.SetStatus(ctx, id, models.CommentStatusSpam); err != nil {
		return utils.InternalError(50038, fmt.Errorf("mark comment %d as spam: %w", id, err))
	}
	return nil
}

// Delete removes a comment and, through the cascade, its replies.
func (s *CommentService) Delete(ctx context.Context, id uint) error {
	if _, err := s.comments.Delete(ctx, id); err != nil {
		return utils.InternalError(50039, fmt.Errorf("delete comment %d: %w", id, err))
	}
	return nil
}
