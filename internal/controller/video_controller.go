package controller

import (
	"errors"
	"net/http"
	"quest_resume_backend/internal/service"
	"quest_resume_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type VideoController struct {
	VideoService *service.VideoService
}

func NewVideoController(videoService *service.VideoService) *VideoController {
	return &VideoController{VideoService: videoService}
}

type YouTubeVideoRequest struct {
	URL   string `json:"url" binding:"required"`
	Title string `json:"title"`
}

// @Summary 关联 YouTube 视频
// @Description 校验 YouTube 链接并返回可挂到目标上的 Video
// @Tags 视频
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param video body YouTubeVideoRequest true "YouTube 链接"
// @Success 200 {object} util.Response{data=model.Video}
// @Failure 400 {object} util.Response
// @Router /api/videos/youtube [post]
func (c *VideoController) FromYouTube(ctx *gin.Context) {
	var req YouTubeVideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	video, err := c.VideoService.FromYouTube(ctx.Request.Context(), req.URL, req.Title)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, video)
}

// @Summary 上传视频
// @Description 仅接受视频文件，大小受 video.max_upload_mb 限制
// @Tags 视频
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "视频文件"
// @Success 201 {object} util.Response{data=model.Video}
// @Failure 400 {object} util.Response
// @Failure 413 {object} util.Response
// @Router /api/videos/upload [post]
func (c *VideoController) Upload(ctx *gin.Context) {
	// 多留 1MB 给 multipart 头部
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.VideoService.MaxUploadBytes()+1<<20)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(ctx, util.ErrVideoTooLarge)
			return
		}
		util.BadRequest(ctx, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	video, err := c.VideoService.Upload(ctx.Request.Context(),
		fileHeader.Filename, fileHeader.Size, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, video)
}
