package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/internal/model"
	"quest_resume_backend/internal/util"
	"quest_resume_backend/pkg/logger"
	"quest_resume_backend/pkg/tracing"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// VideoService 生成挂在目标上的 Video：YouTube 链接或服务器上传
type VideoService struct {
	Storage *StorageService
	Cfg     *config.VideoConfig

	// 测试时可替换
	ffmpegAvailable func() bool
}

func NewVideoService(storage *StorageService, cfg *config.VideoConfig) *VideoService {
	return &VideoService{
		Storage:         storage,
		Cfg:             cfg,
		ffmpegAvailable: util.FFmpegAvailable,
	}
}

// FromYouTube 校验链接并生成缩略图地址，原始链接原样保留
func (s *VideoService) FromYouTube(ctx context.Context, url, title string) (*model.Video, error) {
	url = strings.TrimSpace(url)
	videoID, ok := util.ExtractYouTubeVideoID(url)
	if !ok {
		return nil, util.ErrInvalidYouTubeURL
	}

	return &model.Video{
		ID:        model.GenerateUUID(),
		Type:      model.VideoYouTube,
		URL:       url,
		Title:     title,
		Thumbnail: util.YouTubeThumbnail(videoID),
	}, nil
}

func (s *VideoService) MaxUploadBytes() int64 {
	return s.Cfg.MaxUploadMB * 1024 * 1024
}

// Upload 校验并保存上传的视频。declaredType 为客户端声明的 Content-Type。
func (s *VideoService) Upload(ctx context.Context, filename string, size int64, declaredType string, src io.ReadSeeker) (*model.Video, error) {
	ctx, span := tracing.Tracer.Start(ctx, "VideoService.Upload",
		trace.WithAttributes(attribute.String("video.filename", filename), attribute.Int64("video.size", size)))
	defer span.End()

	if size > s.MaxUploadBytes() {
		return nil, util.ErrVideoTooLarge
	}

	contentType, err := s.detectType(filename, declaredType, src)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	id := model.GenerateUUID()
	objectName := "videos/" + id + ext

	video := &model.Video{
		ID:    id,
		Type:  model.VideoServer,
		Title: filename,
	}

	if s.Cfg.ProbeWithFFmpeg && s.ffmpegAvailable() {
		if err := s.uploadWithProbe(ctx, video, objectName, contentType, src); err != nil {
			return nil, err
		}
		return video, nil
	}

	url, err := s.Storage.Upload(ctx, objectName, src, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}
	video.URL = url
	return video, nil
}

// detectType 优先嗅探文件头；容器无法识别时按扩展名和声明类型放行
func (s *VideoService) detectType(filename, declaredType string, src io.ReadSeeker) (string, error) {
	sniffed, err := util.ValidateMimeType(src, []string{util.MimeVideo, util.MimeOctetStream})
	if _, seekErr := src.Seek(0, io.SeekStart); seekErr != nil {
		return "", seekErr
	}
	if err != nil {
		return "", util.ErrInvalidVideoFile
	}

	if util.IsVideo(sniffed) {
		return sniffed, nil
	}
	if util.HasVideoExtension(filename) && (declaredType == "" || util.IsVideo(declaredType)) {
		if declaredType != "" {
			return declaredType, nil
		}
		return util.MimeOctetStream, nil
	}
	return "", util.ErrInvalidVideoFile
}

// uploadWithProbe 先落盘到临时文件，用 ffprobe 取时长并截取缩略图
func (s *VideoService) uploadWithProbe(ctx context.Context, video *model.Video, objectName, contentType string, src io.Reader) error {
	tmp, err := os.CreateTemp("", "quest-video-*"+filepath.Ext(objectName))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("buffer upload: %w", err)
	}
	tmp.Close()

	if info, err := util.GetVideoInfo(tmpPath); err != nil {
		logger.Log.Warn("ffprobe failed, duration unknown", zap.String("file", video.Title), zap.Error(err))
	} else {
		video.Duration = int(math.Round(info.Duration))
	}

	thumbPath := strings.TrimSuffix(tmpPath, filepath.Ext(tmpPath)) + ".jpg"
	defer os.Remove(thumbPath)
	if err := util.GenerateThumbnail(tmpPath, thumbPath, s.Cfg.ThumbnailOffset); err != nil {
		logger.Log.Warn("Thumbnail generation failed", zap.String("file", video.Title), zap.Error(err))
	} else {
		thumbName := "thumbnails/" + video.ID + ".jpg"
		if url, err := s.Storage.UploadFile(ctx, thumbName, thumbPath, "image/jpeg"); err == nil {
			video.Thumbnail = url
		}
	}

	url, err := s.Storage.UploadFile(ctx, objectName, tmpPath, contentType)
	if err != nil {
		return fmt.Errorf("store video: %w", err)
	}
	video.URL = url
	return nil
}
