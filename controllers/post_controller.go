package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/wallpress/middleware"
	"github.com/cppla/wallpress/services"
	"github.com/cppla/wallpress/utils"
	"github.com/cppla/wallpress/views"
)

// PostController serves posts and their comments.
type PostController struct {
	content  *services.ContentService
	comments *services.CommentService
}

// NewPostController creates a new PostController instance.
func NewPostController(content *services.ContentService, comments *services.CommentService) *PostController {
	return &PostController{content: content, comments: comments}
}

// ListPosts returns the published listing as JSON or HTML.
func (p *PostController) ListPosts(ctx *gin.Context) {
	listing, err := p.content.ListPublished(ctx.Request.Context(), ctx.Query("page"), ctx.Query("limit"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if WantsHTML(ctx) {
		ctx.HTML(http.StatusOK, views.PostListTemplate, views.PostListPage{
			Posts:     listing.Items,
			Page:      listing.Page,
			PageCount: listing.PageCount,
			Limit:     listing.Limit,
			Total:     listing.Total,
		})
		return
	}
	utils.Success(ctx, listing)
}

// GetPost returns one post by slug. Drafts are only shown to their author and privileged users.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.content.GetBySlug(ctx.Request.Context(), ctx.Param("slug"), middleware.CurrentPrincipal(ctx))
	if err != nil {
		FailNegotiated(ctx, err)
		return
	}
	if WantsHTML(ctx) {
		page, err := views.NewPostDetailPage(*post)
		if err != nil {
			utils.Fail(ctx, utils.InternalError(50028, err))
			return
		}
		ctx.HTML(http.StatusOK, views.PostDetailTemplate, page)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// CreatePost stores a new draft authored by the caller.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req services.PostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	post, err := p.content.Create(ctx.Request.Context(), req, middleware.CurrentPrincipal(ctx).ID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"post": post})
}

// UpdatePost applies a partial update.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, err := ParseID(ctx, "id")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	var req services.PostPatch
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	if err := p.content.Update(ctx.Request.Context(), id, req, middleware.CurrentPrincipal(ctx)); err != nil {
		utils.Fail(ctx, err)
		return
	}
	post, err := p.content.FindByID(ctx.Request.Context(), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// PublishPost publishes a draft. Publishing twice keeps the first publication time.
func (p *PostController) PublishPost(ctx *gin.Context) {
	id, err := ParseID(ctx, "id")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if err := p.content.Publish(ctx.Request.Context(), id, middleware.CurrentPrincipal(ctx)); err != nil {
		utils.Fail(ctx, err)
		return
	}
	post, err := p.content.FindByID(ctx.Request.Context(), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// AdminListPosts lists every post including drafts.
func (p *PostController) AdminListPosts(ctx *gin.Context) {
	listing, err := p.content.ListAll(ctx.Request.Context(), ctx.Query("page"), ctx.Query("limit"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, listing)
}

// ListComments returns approved comments of a published post.
func (p *PostController) ListComments(ctx *gin.Context) {
	listing, err := p.comments.ListPostComments(ctx.Request.Context(), postRef(ctx), ctx.Query("page"), ctx.Query("limit"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, listing)
}

// CreateComment submits a comment on a published post. It enters moderation
// unless the caller holds the configured admin role.
func (p *PostController) CreateComment(ctx *gin.Context) {
	var req services.CommentInput
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	comment, err := p.comments.SubmitToPost(ctx.Request.Context(), postRef(ctx), req, middleware.CurrentPrincipal(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"comment": comment})
}

// PostOwner resolves the author of the post addressed by :id, for ownership checks.
func (p *PostController) PostOwner(ctx *gin.Context) (string, error) {
	id, err := ParseID(ctx, "id")
	if err != nil {
		return "", err
	}
	post, err := p.content.FindByID(ctx.Request.Context(), id)
	if err != nil {
		return "", err
	}
	return post.AuthorID, nil
}

// postRef returns the post slug. The POST tree shares the :id wildcard with
// /posts/:id/publish, so comment submission reads the slug from :id.
func postRef(ctx *gin.Context) string {
	if slug := ctx.Param("slug"); slug != "" {
		return strings.TrimSpace(slug)
	}
	return strings.TrimSpace(ctx.Param("id"))
}
