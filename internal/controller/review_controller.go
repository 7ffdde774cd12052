package controller

import (
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/service"
	"mystery_hunt_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

// @Summary 待审核列表
// @Tags 审核
// @Produce json
// @Security BearerAuth
// @Param mysteryId query int false "活动ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/moderation/reviews [get]
func (c *ReviewController) ListPending(ctx *gin.Context) {
	page, limit := util.PageParams(ctx.Query("page"), ctx.Query("limit"))
	mysteryID := util.MustParseUint(ctx.Query("mysteryId"))

	result, err := c.ReviewService.ListPending(ctx.Request.Context(), mysteryID, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 审核通过
// @Tags 审核
// @Produce json
// @Security BearerAuth
// @Param id path int true "审核ID"
// @Success 200 {object} util.Response{data=model.Review}
// @Failure 409 {object} util.Response "审核已关闭"
// @Router /api/moderation/reviews/{id}/approve [post]
func (c *ReviewController) Approve(ctx *gin.Context) {
	c.transition(ctx, model.ReviewApproved)
}

// @Summary 审核驳回
// @Tags 审核
// @Produce json
// @Security BearerAuth
// @Param id path int true "审核ID"
// @Success 200 {object} util.Response{data=model.Review}
// @Failure 409 {object} util.Response "审核已关闭"
// @Router /api/moderation/reviews/{id}/reject [post]
func (c *ReviewController) Reject(ctx *gin.Context) {
	c.transition(ctx, model.ReviewRejected)
}

func (c *ReviewController) transition(ctx *gin.Context, to model.ReviewStatus) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	reviewID, err := util.ParseRef(ctx.Param("id"), "")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	review, err := c.ReviewService.Transition(ctx.Request.Context(), reviewID, to, user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, review)
}
