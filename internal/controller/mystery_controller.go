package controller

import (
	"mystery_hunt_backend/internal/service"
	"mystery_hunt_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MysteryController struct {
	MysteryService *service.MysteryService
}

func NewMysteryController(mysteryService *service.MysteryService) *MysteryController {
	return &MysteryController{MysteryService: mysteryService}
}

// JoinRequest 加入活动
// swagger:model JoinRequest
type JoinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// @Summary 可见活动列表
// @Tags 活动
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.MysteryView}
// @Router /api/game/mysteries [get]
func (c *MysteryController) ListMysteries(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	list, err := c.MysteryService.ListVisible(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 凭口令加入活动
// @Tags 活动
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Param body body JoinRequest true "口令"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "口令错误"
// @Failure 403 {object} util.Response "活动未开始或已结束"
// @Router /api/game/mysteries/{id}/join [post]
func (c *MysteryController) Join(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	mysteryID, err := util.ParseRef(ctx.Param("id"), "")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req JoinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.MysteryService.Join(ctx.Request.Context(), user.UserID, mysteryID, req.Pin); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"joined": true})
}
