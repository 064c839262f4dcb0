package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cppla/wallpress/models"
	"github.com/cppla/wallpress/repository"
	"github.com/cppla/wallpress/utils"
)

const (
	postListCachePrefix   = "cache:posts:list:"
	postDetailCachePrefix = "cache:posts:slug:"

	maxTitleLength  = 255
	excerptLength   = 200
	maxSlugAttempts = 3
)

// PostListCacheKey is the cache key of one page of the published listing.
func PostListCacheKey(page, limit int) string {
	return fmt.Sprintf("%spage=%d:limit=%d", postListCachePrefix, page, limit)
}

func postDetailCacheKey(slug string) string {
	return postDetailCachePrefix + slug
}

// PostInput is the payload of a new post.
type PostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt"`
	Slug    string `json:"slug"`
}

// PostPatch carries the fields of a partial update; nil fields are left alone.
type PostPatch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Excerpt *string `json:"excerpt"`
}

// ContentService serves and edits posts behind a read-through cache.
type ContentService struct {
	posts        *repository.PostRepository
	cache        utils.Cache
	ttl          time.Duration
	defaultLimit int
}

// NewContentService creates a ContentService. cache may be nil.
func NewContentService(posts *repository.PostRepository, cache utils.Cache, ttl time.Duration, defaultLimit int) *ContentService {
	return &ContentService{posts: posts, cache: cache, ttl: ttl, defaultLimit: defaultLimit}
}

// ListPublished returns one page of published posts, served from cache when possible.
func (s *ContentService) ListPublished(ctx context.Context, pageStr, limitStr string) (Listing[models.PostWithAuthor], error) {
	req := Paginate(pageStr, limitStr, s.defaultLimit)
	key := PostListCacheKey(req.Page, req.Limit)

	var cached Listing[models.PostWithAuthor]
	if utils.CacheGetJSON(ctx, s.cache, key, &cached) {
		return cached, nil
	}

	items, total, err := s.posts.ListPublished(ctx, req.Offset, req.Limit)
	if err != nil {
		return Listing[models.PostWithAuthor]{}, utils.InternalError(50020, fmt.Errorf("list published posts: %w", err))
	}
	listing := NewListing(items, total, req)
	utils.CacheSetJSON(ctx, s.cache, key, listing, s.ttl)
	return listing, nil
}

// ListAll returns every post including drafts, for administrators. Not cached.
func (s *ContentService) ListAll(ctx context.Context, pageStr, limitStr string) (Listing[models.PostWithAuthor], error) {
	req := Paginate(pageStr, limitStr, s.defaultLimit)
	items, total, err := s.posts.ListAll(ctx, req.Offset, req.Limit)
	if err != nil {
		return Listing[models.PostWithAuthor]{}, utils.InternalError(50021, fmt.Errorf("list posts: %w", err))
	}
	return NewListing(items, total, req), nil
}

// GetBySlug returns a post visible to viewer. Drafts are visible only to their
// author and to privileged users; to anyone else they do not exist.
func (s *ContentService) GetBySlug(ctx context.Context, slug string, viewer *models.Principal) (*models.PostWithAuthor, error) {
	key := postDetailCacheKey(slug)
	var cached models.PostWithAuthor
	if utils.CacheGetJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	post, err := s.posts.GetBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NotFound(40420, "post not found")
	}
	if err != nil {
		return nil, utils.InternalError(50022, fmt.Errorf("get post %q: %w", slug, err))
	}

	if post.Status != models.PostStatusPublished {
		if viewer == nil || (!viewer.IsPrivileged() && viewer.ID != post.AuthorID) {
			return nil, utils.NotFound(40420, "post not found")
		}
		return post, nil
	}

	utils.CacheSetJSON(ctx, s.cache, key, post, s.ttl)
	return post, nil
}

// FindByID returns the bare post, mapping a miss onto 404.
func (s *ContentService) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NotFound(40421, "post not found")
	}
	if err != nil {
		return nil, utils.InternalError(50023, fmt.Errorf("find post %d: %w", id, err))
	}
	return post, nil
}

// Create stores a new draft authored by authorID under a unique slug.
func (s *ContentService) Create(ctx context.Context, in PostInput, authorID string) (*models.Post, error) {
	title := utils.StripTags(in.Title)
	if title == "" {
		return nil, utils.ValidationError(40021, "title cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, utils.ValidationError(40022, "title is too long")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, utils.ValidationError(40023, "content cannot be empty")
	}

	base := Slugify(in.Slug)
	if strings.TrimSpace(in.Slug) == "" {
		base = Slugify(title)
	}
	excerpt := utils.StripTags(in.Excerpt)
	if excerpt == "" {
		excerpt = deriveExcerpt(in.Content)
	}

	post := &models.Post{
		Title:    title,
		Content:  in.Content,
		Excerpt:  excerpt,
		AuthorID: authorID,
		Status:   models.PostStatusDraft,
	}
	// a concurrent create may take the slug between the read and the insert
	for attempt := 1; ; attempt++ {
		existing, err := s.posts.SlugsWithPrefix(ctx, base)
		if err != nil {
			return nil, utils.InternalError(50024, fmt.Errorf("check slug: %w", err))
		}
		post.ID = 0
		post.Slug = UniqueSlug(base, existing)
		err = s.posts.Create(ctx, post)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt == maxSlugAttempts {
			return nil, utils.InternalError(50025, fmt.Errorf("create post: %w", err))
		}
	}
	s.invalidate(ctx, "")
	return post, nil
}

// Update applies the present fields of patch. Non-privileged requesters only
// ever touch their own posts; a post they do not own is left unchanged.
func (s *ContentService) Update(ctx context.Context, id uint, patch PostPatch, requester *models.Principal) error {
	if requester == nil {
		return utils.AuthenticationRequired(40100)
	}
	fields := map[string]interface{}{}
	if patch.Title != nil {
		title := utils.StripTags(*patch.Title)
		if title == "" {
			return utils.ValidationError(40021, "title cannot be empty")
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return utils.ValidationError(40022, "title is too long")
		}
		fields["title"] = title
	}
	if patch.Content != nil {
		if strings.TrimSpace(*patch.Content) == "" {
			return utils.ValidationError(40023, "content cannot be empty")
		}
		fields["content"] = *patch.Content
	}
	if patch.Excerpt != nil {
		fields["excerpt"] = utils.StripTags(*patch.Excerpt)
	}

	post, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.posts.Update(ctx, id, fields, requesterScope(requester)); err != nil {
		return utils.InternalError(50026, fmt.Errorf("update post %d: %w", id, err))
	}
	s.invalidate(ctx, post.Slug)
	return nil
}

// Publish moves the post to published, keeping the first publication time.
func (s *ContentService) Publish(ctx context.Context, id uint, requester *models.Principal) error {
	if requester == nil {
		return utils.AuthenticationRequired(40100)
	}
	post, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.posts.Publish(ctx, id, requesterScope(requester)); err != nil {
		return utils.InternalError(50027, fmt.Errorf("publish post %d: %w", id, err))
	}
	s.invalidate(ctx, post.Slug)
	return nil
}

// invalidate drops every listing page and, when slug is set, the post detail.
func (s *ContentService) invalidate(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateByPrefix(ctx, postListCachePrefix)
	if slug != "" {
		s.cache.Delete(ctx, postDetailCacheKey(slug))
	}
}

func requesterScope(p *models.Principal) string {
	if p.IsPrivileged() {
		return ""
	}
	return p.ID
}

func deriveExcerpt(content string) string {
	text := strings.Join(strings.Fields(utils.StripTags(content)), " ")
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:excerptLength])) + "…"
}
