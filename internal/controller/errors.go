package controller

import (
	"errors"
	"net/http"
	"quest_resume_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 把 service 层的哨兵错误映射为 HTTP 状态码
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrTrainingNotFound),
		errors.Is(err, util.ErrQuestNotFound),
		errors.Is(err, util.ErrObjectiveNotFound),
		errors.Is(err, util.ErrLevelNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidPoints),
		errors.Is(err, util.ErrTitleRequired),
		errors.Is(err, util.ErrInvalidVideo),
		errors.Is(err, util.ErrInvalidYouTubeURL),
		errors.Is(err, util.ErrInvalidVideoFile),
		errors.Is(err, util.ErrInvalidImport):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrVideoTooLarge):
		util.Error(ctx, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, util.ErrInvalidCredential):
		util.Error(ctx, http.StatusUnauthorized, err.Error())
	case errors.Is(err, util.ErrLoginDisabled):
		util.Error(ctx, http.StatusForbidden, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
