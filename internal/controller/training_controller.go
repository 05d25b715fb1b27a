package controller

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"quest_resume_backend/internal/model"
	"quest_resume_backend/internal/service"
	"quest_resume_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TrainingController struct {
	TrainingService *service.TrainingService
}

func NewTrainingController(trainingService *service.TrainingService) *TrainingController {
	return &TrainingController{TrainingService: trainingService}
}

// @Summary 获取训练列表
// @Description 返回全部训练（含任务与目标），search 按标题模糊过滤
// @Tags 训练
// @Produce json
// @Param search query string false "标题关键字"
// @Success 200 {object} util.Response{data=[]model.Training}
// @Router /api/trainings [get]
func (c *TrainingController) ListTrainings(ctx *gin.Context) {
	util.Success(ctx, c.TrainingService.ListTrainings(ctx.Request.Context(), ctx.Query("search")))
}

// @Summary 获取训练详情
// @Tags 训练
// @Produce json
// @Param id path string true "训练ID"
// @Success 200 {object} util.Response{data=model.Training}
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id} [get]
func (c *TrainingController) GetTraining(ctx *gin.Context) {
	training, err := c.TrainingService.GetTraining(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, training)
}

// @Summary 获取训练进度
// @Tags 训练
// @Produce json
// @Param id path string true "训练ID"
// @Success 200 {object} util.Response{data=model.TrainingProgressView}
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id}/progress [get]
func (c *TrainingController) GetProgress(ctx *gin.Context) {
	view, err := c.TrainingService.GetProgress(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 训练统计
// @Tags 训练
// @Produce json
// @Success 200 {object} util.Response{data=model.TrainingStats}
// @Router /api/stats [get]
func (c *TrainingController) GetStats(ctx *gin.Context) {
	util.Success(ctx, c.TrainingService.Stats(ctx.Request.Context()))
}

// @Summary 创建训练
// @Tags 训练管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param training body model.CreateTrainingDto true "训练信息"
// @Success 201 {object} util.Response{data=model.Training}
// @Router /api/trainings [post]
func (c *TrainingController) CreateTraining(ctx *gin.Context) {
	var dto model.CreateTrainingDto
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if user := util.GetUserFromContext(ctx); user != nil {
		dto.CreatedBy = user.Username
	}

	training, err := c.TrainingService.CreateTraining(ctx.Request.Context(), dto)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, training)
}

// 导入文件上限
const maxImportBytes = 2 << 20

// @Summary 导入训练
// @Description 从 YAML 文档批量创建训练、任务和目标，任一条目不合法时不写入任何数据
// @Tags 训练管理
// @Accept application/x-yaml
// @Produce json
// @Security BearerAuth
// @Param document body string true "YAML 文档"
// @Success 201 {object} util.Response{data=[]model.Training}
// @Failure 400 {object} util.Response
// @Failure 413 {object} util.Response
// @Router /api/trainings/import [post]
func (c *TrainingController) ImportTrainings(ctx *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			util.Error(ctx, http.StatusRequestEntityTooLarge, "import document is too large")
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}

	createdBy := ""
	if user := util.GetUserFromContext(ctx); user != nil {
		createdBy = user.Username
	}

	trainings, err := c.TrainingService.ImportTrainings(ctx.Request.Context(), bytes.NewReader(body), createdBy)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, trainings)
}

// @Summary 更新训练
// @Description 只能修改标题和描述，积分与完成状态由系统计算
// @Tags 训练管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "训练ID"
// @Param training body model.UpdateTrainingDto true "训练信息"
// @Success 200 {object} util.Response{data=model.Training}
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id} [put]
func (c *TrainingController) UpdateTraining(ctx *gin.Context) {
	var dto model.UpdateTrainingDto
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	training, err := c.TrainingService.UpdateTraining(ctx.Request.Context(), ctx.Param("id"), dto)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, training)
}

// @Summary 删除训练
// @Tags 训练管理
// @Security BearerAuth
// @Param id path string true "训练ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id} [delete]
func (c *TrainingController) DeleteTraining(ctx *gin.Context) {
	if err := c.TrainingService.DeleteTraining(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 创建任务
// @Tags 训练管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "训练ID"
// @Param quest body model.CreateQuestDto true "任务信息"
// @Success 201 {object} util.Response{data=model.Quest}
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id}/quests [post]
func (c *TrainingController) CreateQuest(ctx *gin.Context) {
	var dto model.CreateQuestDto
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quest, err := c.TrainingService.CreateQuest(ctx.Request.Context(), ctx.Param("id"), dto)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, quest)
}

// @Summary 更新任务
// @Tags 训练管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "训练ID"
// @Param questId path string true "任务ID"
// @Param quest body model.UpdateQuestDto true "任务信息"
// @Success 200 {object} util.Response{data=model.Quest}
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id}/quests/{questId} [put]
func (c *TrainingController) UpdateQuest(ctx *gin.Context) {
	var dto model.UpdateQuestDto
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quest, err := c.TrainingService.UpdateQuest(ctx.Request.Context(), ctx.Param("id"), ctx.Param("questId"), dto)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quest)
}

// @Summary 删除任务
// @Tags 训练管理
// @Security BearerAuth
// @Param id path string true "训练ID"
// @Param questId path string true "任务ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id}/quests/{questId} [delete]
func (c *TrainingController) DeleteQuest(ctx *gin.Context) {
	if err := c.TrainingService.DeleteQuest(ctx.Request.Context(), ctx.Param("id"), ctx.Param("questId")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 创建目标
// @Tags 训练管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "训练ID"
// @Param questId path string true "任务ID"
// @Param objective body model.CreateObjectiveDto true "目标信息"
// @Success 201 {object} util.Response{data=model.Objective}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id}/quests/{questId}/objectives [post]
func (c *TrainingController) CreateObjective(ctx *gin.Context) {
	var dto model.CreateObjectiveDto
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	objective, err := c.TrainingService.CreateObjective(ctx.Request.Context(), ctx.Param("id"), ctx.Param("questId"), dto)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, objective)
}

// @Summary 更新目标
// @Tags 训练管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "训练ID"
// @Param questId path string true "任务ID"
// @Param objectiveId path string true "目标ID"
// @Param objective body model.UpdateObjectiveDto true "目标信息"
// @Success 200 {object} util.Response{data=model.Objective}
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id}/quests/{questId}/objectives/{objectiveId} [put]
func (c *TrainingController) UpdateObjective(ctx *gin.Context) {
	var dto model.UpdateObjectiveDto
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	objective, err := c.TrainingService.UpdateObjective(ctx.Request.Context(),
		ctx.Param("id"), ctx.Param("questId"), ctx.Param("objectiveId"), dto)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, objective)
}

// @Summary 删除目标
// @Tags 训练管理
// @Security BearerAuth
// @Param id path string true "训练ID"
// @Param questId path string true "任务ID"
// @Param objectiveId path string true "目标ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id}/quests/{questId}/objectives/{objectiveId} [delete]
func (c *TrainingController) DeleteObjective(ctx *gin.Context) {
	err := c.TrainingService.DeleteObjective(ctx.Request.Context(),
		ctx.Param("id"), ctx.Param("questId"), ctx.Param("objectiveId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 完成目标
// @Description 标记目标为已完成，返回重新计算后的训练
// @Tags 训练管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "训练ID"
// @Param questId path string true "任务ID"
// @Param objectiveId path string true "目标ID"
// @Success 200 {object} util.Response{data=model.Training}
// @Failure 404 {object} util.Response
// @Router /api/trainings/{id}/quests/{questId}/objectives/{objectiveId}/complete [post]
func (c *TrainingController) CompleteObjective(ctx *gin.Context) {
	training, err := c.TrainingService.CompleteObjective(ctx.Request.Context(),
		ctx.Param("id"), ctx.Param("questId"), ctx.Param("objectiveId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, training)
}
