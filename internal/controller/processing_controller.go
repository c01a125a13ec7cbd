package controller

import (
	"io"
	"studyforge_backend/internal/service"
	"studyforge_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProcessingController struct {
	Service *service.ProcessingService
}

func NewProcessingController(svc *service.ProcessingService) *ProcessingController {
	return &ProcessingController{Service: svc}
}

// @Summary 提交文档处理
// @Description 上传文档并启动 提取→生成→收尾 处理管线，返回任务快照供轮询
// @Tags 文档处理
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "文档文件"
// @Param sourceLanguage formData string true "源语言"
// @Param targetLanguage formData string false "目标语言，Auto表示沿用源语言"
// @Success 202 {object} util.Response
// @Failure 402 {object} util.Response
// @Router /study/process [post]
func (c *ProcessingController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	view, err := c.Service.Submit(ctx.Request.Context(), service.SubmitRequest{
		OwnerID:        user.UserID,
		FileName:       fileHeader.Filename,
		Data:           data,
		SourceLanguage: ctx.PostForm("sourceLanguage"),
		TargetLanguage: ctx.PostForm("targetLanguage"),
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Accepted(ctx, view)
}

// @Summary 查询处理任务
// @Description 轮询任务阶段、进度与结果
// @Tags 文档处理
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务ID"
// @Success 200 {object} util.Response
// @Router /study/jobs/{id} [get]
func (c *ProcessingController) GetJob(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.GetJob(user.UserID, ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, view)
}
