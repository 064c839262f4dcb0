package controllers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/cppla/wallpress/services"
	"github.com/cppla/wallpress/utils"
)

// AdminController runs the comment moderation queue.
type AdminController struct {
	comments *services.CommentService
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(comments *services.CommentService) *AdminController {
	return &AdminController{comments: comments}
}

// ListPendingComments returns comments awaiting moderation, oldest first.
func (a *AdminController) ListPendingComments(ctx *gin.Context) {
	listing, err := a.comments.ListPending(ctx.Request.Context(), ctx.Query("page"), ctx.Query("limit"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, listing)
}

// ApproveComment approves a comment. Unknown or already approved comments are a no-op.
func (a *AdminController) ApproveComment(ctx *gin.Context) {
	a.moderate(ctx, a.comments.Approve, "approved")
}

// MarkSpam flags a comment as spam.
func (a *AdminController) MarkSpam(ctx *gin.Context) {
	a.moderate(ctx, a.comments.MarkSpam, "spam")
}

// DeleteComment hard-deletes a comment and its replies.
func (a *AdminController) DeleteComment(ctx *gin.Context) {
	a.moderate(ctx, a.comments.Delete, "deleted")
}

func (a *AdminController) moderate(ctx *gin.Context, action func(ctx context.Context, id uint) error, result string) {
	id, err := ParseID(ctx, "id")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if err := action(ctx.Request.Context(), id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id, "status": result})
}
