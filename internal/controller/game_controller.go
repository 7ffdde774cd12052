package controller

import (
	"mystery_hunt_backend/internal/service"
	"mystery_hunt_backend/internal/util"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type GameController struct {
	SubmissionService *service.SubmissionService
	HintService       *service.HintService
	ProgressService   *service.ProgressService
	LevelService      *service.LevelService
	ImageService      *service.ImageService
}

func NewGameController(
	submissionService *service.SubmissionService,
	hintService *service.HintService,
	progressService *service.ProgressService,
	levelService *service.LevelService,
	imageService *service.ImageService,
) *GameController {
	return &GameController{
		SubmissionService: submissionService,
		HintService:       hintService,
		ProgressService:   progressService,
		LevelService:      levelService,
		ImageService:      imageService,
	}
}

// SubmitRequest JSON 形式的作答
// swagger:model SubmitRequest
type SubmitRequest struct {
	Answer string `json:"answer"`
}

// readSubmitPayload 支持 JSON 与 multipart 两种提交方式
func readSubmitPayload(ctx *gin.Context) (service.SubmitPayload, error) {
	var payload service.SubmitPayload
	if strings.HasPrefix(ctx.ContentType(), "application/json") {
		var req SubmitRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return payload, err
		}
		payload.Text = req.Answer
		return payload, nil
	}

	payload.Text = ctx.PostForm("answer")
	file, err := ctx.FormFile("answer_image")
	if err == http.ErrMissingFile || err == http.ErrNotMultipart {
		return payload, nil
	}
	if err != nil {
		return payload, err
	}
	f, err := file.Open()
	if err != nil {
		return payload, err
	}
	defer f.Close()
	data, err := util.ReadLimited(f, util.MaxImageUploadSize)
	if err != nil {
		return payload, err
	}
	payload.Image = data
	return payload, nil
}

// @Summary 提交答案
// @Description 按题型校验并记录作答，必要时解锁下一关并返回奖励
// @Tags 游戏
// @Accept multipart/form-data,json
// @Produce json
// @Security BearerAuth
// @Param questionRef path string true "题目标识，如 q12 或 12"
// @Param answer formData string false "文字答案"
// @Param answer_image formData file false "图片答案"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response "参数错误或题型不支持"
// @Failure 404 {object} util.Response "题目不存在"
// @Failure 409 {object} util.Response "已作答"
// @Failure 502 {object} util.Response "图片存储失败"
// @Router /api/game/questions/{questionRef}/submit [post]
func (c *GameController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	payload, err := readSubmitPayload(ctx)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.SubmissionService.Submit(ctx.Request.Context(), user.UserID, ctx.Param("questionRef"), payload)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 请求提示邮件
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Param questionRef path string true "题目标识"
// @Success 202 {object} util.Response{data=service.HintAck}
// @Failure 404 {object} util.Response "题目或提示不存在"
// @Failure 429 {object} util.Response "请求过于频繁"
// @Router /api/game/questions/{questionRef}/hint [post]
func (c *GameController) RequestHint(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	ack, err := c.HintService.RequestHint(ctx.Request.Context(), user.UserID, ctx.Param("questionRef"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Accepted(ctx, ack)
}

// @Summary 获取我的进度
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.ProgressView}
// @Router /api/game/progress [get]
func (c *GameController) GetProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.ProgressService.Fetch(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 活动关卡列表
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response{data=[]service.LevelSummary}
// @Router /api/game/mysteries/{id}/levels [get]
func (c *GameController) ListLevels(ctx *gin.Context) {
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

	levels, err := c.LevelService.ListLevels(ctx.Request.Context(), user.UserID, mysteryID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, levels)
}

// @Summary 关卡详情
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Param id path string true "关卡标识，如 level-3 或 3"
// @Success 200 {object} util.Response{data=service.LevelDetail}
// @Failure 404 {object} util.Response "关卡不存在"
// @Router /api/game/levels/{id} [get]
func (c *GameController) GetLevel(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	levelID, err := util.ParseLevelRef(ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	detail, err := c.LevelService.GetLevelDetail(ctx.Request.Context(), user.UserID, levelID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// @Summary 图片代理
// @Tags 游戏
// @Produce image/png,image/jpeg
// @Security BearerAuth
// @Param ref path string true "图片引用"
// @Success 200 {file} binary
// @Failure 404 {object} util.Response "图片不存在或无权查看"
// @Failure 502 {object} util.Response "图片读取失败"
// @Router /api/game/images/{ref} [get]
func (c *GameController) GetImage(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	ref := strings.TrimPrefix(ctx.Param("ref"), "/")
	if ref == "" {
		util.BadRequest(ctx, "image ref is required")
		return
	}
	if err := c.ImageService.CanView(ctx.Request.Context(), user.UserID, user.Role, ref); err != nil {
		util.RespondError(ctx, err)
		return
	}

	data, mimeType, err := c.ImageService.Get(ctx.Request.Context(), ref)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if mimeType == "" {
		mimeType = util.MimeOctetStream
	}
	// 非图片内容只允许下载，不在页面内联展示
	if !util.IsImage(mimeType) {
		ctx.Header("Content-Disposition", "attachment")
	}
	ctx.Header("Cache-Control", "private, max-age=3600")
	ctx.Data(http.StatusOK, mimeType, data)
}
