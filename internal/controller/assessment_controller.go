package controller

import (
	"studyforge_backend/internal/service"
	"studyforge_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service *service.AssessmentService
}

func NewAssessmentController(svc *service.AssessmentService) *AssessmentController {
	return &AssessmentController{Service: svc}
}

// @Summary 开始测验
// @Description 用会话自带的测验题集启动测验状态机
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/assessment/load [post]
func (c *AssessmentController) Load(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.Load(user.UserID, ctx.Param("sessionId"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 测验状态
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/assessment [get]
func (c *AssessmentController) State(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	util.Success(ctx, c.Service.View(user.UserID, ctx.Param("sessionId")))
}

// @Summary 作答当前题目
// @Description 选择题选择即揭示解析；开放题按参考答案有无揭示
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Param body body service.AnswerRequest true "作答内容"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/assessment/answer [post]
func (c *AssessmentController) Answer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Service.SelectAnswer(user.UserID, ctx.Param("sessionId"), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 下一题
// @Description 已在末题时改为结算
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/assessment/next [post]
func (c *AssessmentController) Next(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.Next(user.UserID, ctx.Param("sessionId"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 上一题
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/assessment/previous [post]
func (c *AssessmentController) Previous(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.Previous(user.UserID, ctx.Param("sessionId"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 结算测验
// @Description 只统计选择题自动得分，开放题留待人工评阅
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/assessment/finish [post]
func (c *AssessmentController) Finish(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.Finish(user.UserID, ctx.Param("sessionId"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 重新开始测验
// @Description 沿用原题集重置状态机；换题集请走动态出题接口
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/assessment/restart [post]
func (c *AssessmentController) Restart(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.Restart(user.UserID, ctx.Param("sessionId"), nil)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 动态出题
// @Description 按数量/难度/题型生成新题集并整体替换；同一会话同时只允许一个生成请求
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Param body body service.CustomExamRequest true "出题参数"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/assessment/generate [post]
func (c *AssessmentController) Generate(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CustomExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Service.Generate(ctx.Request.Context(), user.UserID, ctx.Param("sessionId"), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
