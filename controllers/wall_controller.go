package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/wallpress/middleware"
	"github.com/cppla/wallpress/services"
	"github.com/cppla/wallpress/utils"
)

// WallController serves message walls and their comment threads.
type WallController struct {
	walls    *services.WallService
	comments *services.CommentService
}

// NewWallController creates a new WallController instance.
func NewWallController(walls *services.WallService, comments *services.CommentService) *WallController {
	return &WallController{walls: walls, comments: comments}
}

// ListWalls returns the walls visible to the caller.
func (w *WallController) ListWalls(ctx *gin.Context) {
	walls, err := w.walls.List(ctx.Request.Context(), middleware.CurrentPrincipal(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": walls})
}

// GetWall returns a wall with one page of approved top-level threads.
func (w *WallController) GetWall(ctx *gin.Context) {
	id, err := ParseID(ctx, "id")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	detail, err := w.walls.Detail(ctx.Request.Context(), id, ctx.Query("page"), ctx.Query("limit"), middleware.CurrentPrincipal(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, detail)
}

// CreateComment submits a comment or reply to a wall.
func (w *WallController) CreateComment(ctx *gin.Context) {
	id, err := ParseID(ctx, "id")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	var req services.CommentInput
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	comment, err := w.comments.SubmitToWall(ctx.Request.Context(), id, req, middleware.CurrentPrincipal(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"comment": comment})
}

// ListReplies returns approved replies to a comment.
func (w *WallController) ListReplies(ctx *gin.Context) {
	id, err := ParseID(ctx, "id")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	replies, err := w.comments.ListReplies(ctx.Request.Context(), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": replies})
}

// CreateWall adds a wall.
func (w *WallController) CreateWall(ctx *gin.Context) {
	var req services.WallInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	wall, err := w.walls.Create(ctx.Request.Context(), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"wall": wall})
}

// UpdateWall edits a wall or toggles whether it accepts comments.
func (w *WallController) UpdateWall(ctx *gin.Context) {
	id, err := ParseID(ctx, "id")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	var req services.WallPatch
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	wall, err := w.walls.Update(ctx.Request.Context(), id, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"wall": wall})
}

// DeleteWall removes a wall and every comment on it.
func (w *WallController) DeleteWall(ctx *gin.Context) {
	id, err := ParseID(ctx, "id")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if err := w.walls.Delete(ctx.Request.Context(), id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}
