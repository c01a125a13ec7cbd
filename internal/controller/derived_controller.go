package controller

import (
	"studyforge_backend/internal/service"
	"studyforge_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DerivedContentController struct {
	Service *service.DerivedContentService
}

func NewDerivedContentController(svc *service.DerivedContentService) *DerivedContentController {
	return &DerivedContentController{Service: svc}
}

type studyPlanRequest struct {
	Days int `json:"days"`
}

// @Summary 生成学习计划
// @Tags 派生内容
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Param body body studyPlanRequest false "计划参数"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/study-plan [post]
func (c *DerivedContentController) StudyPlan(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req studyPlanRequest
	_ = ctx.ShouldBindJSON(&req)

	result, err := c.Service.StudyPlan(ctx.Request.Context(), user.UserID, ctx.Param("sessionId"), req.Days)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type probableQuestionsRequest struct {
	Count int `json:"count"`
}

// @Summary 生成高频考题
// @Tags 派生内容
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Param body body probableQuestionsRequest false "出题参数"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/probable-questions [post]
func (c *DerivedContentController) ProbableQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req probableQuestionsRequest
	_ = ctx.ShouldBindJSON(&req)

	result, err := c.Service.ProbableQuestions(ctx.Request.Context(), user.UserID, ctx.Param("sessionId"), req.Count)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 生成自定义测验题集
// @Description 仅返回题集，不影响测验状态机；替换题集请走测验的动态出题接口
// @Tags 派生内容
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Param body body service.CustomExamRequest true "出题参数"
// @Success 200 {object} util.Response
// @Router /sessions/{sessionId}/custom-exam [post]
func (c *DerivedContentController) CustomExam(ctx *gin.Context) {
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

	questions, err := c.Service.CustomExam(ctx.Request.Context(), user.UserID, ctx.Param("sessionId"), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"questions": questions})
}
