package controller

import (
	"errors"
	"net/http"
	"studyforge_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondServiceError 将服务层的分类错误映射为HTTP响应
func respondServiceError(ctx *gin.Context, err error) {
	var insufficient *util.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		util.PaymentRequired(ctx, insufficient.Required, insufficient.Available)
		return
	}

	var upstream *util.UpstreamError
	if errors.As(err, &upstream) {
		util.BadGateway(ctx, upstream.Message)
		return
	}

	var generation *util.GenerationError
	if errors.As(err, &generation) {
		util.BadGateway(ctx, generation.Error())
		return
	}

	switch {
	case errors.Is(err, util.ErrEmptyDocument),
		errors.Is(err, util.ErrDocumentTooLarge),
		errors.Is(err, util.ErrUnsupportedLanguage):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrJobInFlight),
		errors.Is(err, util.ErrGenerationInFlight),
		errors.Is(err, util.ErrInvalidAssessmentState):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrJobNotFound),
		errors.Is(err, util.ErrSessionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrNoAssessableContent):
		util.Error(ctx, http.StatusUnprocessableEntity, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
