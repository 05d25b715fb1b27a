package controller

import (
	"quest_resume_backend/internal/model"
	"quest_resume_backend/internal/service"
	"quest_resume_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LevelController struct {
	TrainingService *service.TrainingService
}

func NewLevelController(trainingService *service.TrainingService) *LevelController {
	return &LevelController{TrainingService: trainingService}
}

// @Summary 难度等级列表
// @Tags 难度等级
// @Produce json
// @Success 200 {object} util.Response{data=[]model.Level}
// @Router /api/levels [get]
func (c *LevelController) ListLevels(ctx *gin.Context) {
	util.Success(ctx, c.TrainingService.ListLevels(ctx.Request.Context()))
}

// @Summary 创建难度等级
// @Tags 难度等级
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param level body model.CreateLevelDto true "等级信息"
// @Success 201 {object} util.Response{data=model.Level}
// @Router /api/levels [post]
func (c *LevelController) CreateLevel(ctx *gin.Context) {
	var dto model.CreateLevelDto
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	level, err := c.TrainingService.CreateLevel(ctx.Request.Context(), dto)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, level)
}

// @Summary 更新难度等级
// @Tags 难度等级
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "等级ID"
// @Param level body model.UpdateLevelDto true "等级信息"
// @Success 200 {object} util.Response{data=model.Level}
// @Failure 404 {object} util.Response
// @Router /api/levels/{id} [put]
func (c *LevelController) UpdateLevel(ctx *gin.Context) {
	var dto model.UpdateLevelDto
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	level, err := c.TrainingService.UpdateLevel(ctx.Request.Context(), ctx.Param("id"), dto)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, level)
}

// @Summary 删除难度等级
// @Description 引用该等级的任务会变为无等级
// @Tags 难度等级
// @Security BearerAuth
// @Param id path string true "等级ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/levels/{id} [delete]
func (c *LevelController) DeleteLevel(ctx *gin.Context) {
	if err := c.TrainingService.DeleteLevel(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
