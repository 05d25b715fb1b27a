package service

import (
	"context"
	"errors"
	"fmt"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/internal/model"
	"quest_resume_backend/internal/repository"
	"quest_resume_backend/internal/store"
	"quest_resume_backend/internal/util"
	"quest_resume_backend/pkg/logger"
	"quest_resume_backend/pkg/monitoring"
	"quest_resume_backend/pkg/tracing"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TrainingService 在内存存储之上负责写穿持久化、统计缓存、指标和链路追踪。
// 内存存储是运行期间的唯一数据源，持久化层只在启动时读取。
type TrainingService struct {
	Store        *store.ProgressStore
	TrainingRepo repository.TrainingRepository
	LevelRepo    repository.LevelRepository
	Cache        *StatsCache
	// Storage 为空时不清理被替换或删除的服务器视频
	Storage *StorageService

	// 串行化 "取快照 + 写库"，保证最后写入的一定是最新快照
	persistMu sync.Mutex
}

func NewTrainingService(
	st *store.ProgressStore,
	trainingRepo repository.TrainingRepository,
	levelRepo repository.LevelRepository,
	cache *StatsCache,
) *TrainingService {
	return &TrainingService{
		Store:        st,
		TrainingRepo: trainingRepo,
		LevelRepo:    levelRepo,
		Cache:        cache,
	}
}

// Bootstrap 从持久化层加载等级和训练，并按配置写入种子数据
func (s *TrainingService) Bootstrap(ctx context.Context, seed config.SeedConfig) error {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.Bootstrap")
	defer span.End()

	levels, err := s.LevelRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load levels: %w", err)
	}
	s.Store.LoadLevels(levels)

	trainings, err := s.TrainingRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load trainings: %w", err)
	}
	s.Store.Load(trainings)

	if seed.DefaultLevels {
		for _, l := range s.Store.SeedDefaultLevels() {
			level := l
			if err := s.LevelRepo.Save(ctx, &level); err != nil {
				return fmt.Errorf("seed level %s: %w", level.Name, err)
			}
		}
	}

	if seed.DemoTraining && len(s.Store.ListTrainings()) == 0 {
		if err := s.seedDemoTraining(ctx); err != nil {
			return fmt.Errorf("seed demo training: %w", err)
		}
	}

	// 代数随进程重新计数，上一个进程留下的缓存不可信
	s.invalidate(ctx)
	logger.Log.Info("Training store loaded",
		zap.Int("trainings", len(s.Store.ListTrainings())),
		zap.Int("levels", len(s.Store.ListLevels())),
	)
	return nil
}

func (s *TrainingService) seedDemoTraining(ctx context.Context) error {
	training, err := s.CreateTraining(ctx, model.CreateTrainingDto{
		Title:       "Go Fundamentals",
		Description: "<p>Learn the basics of the Go programming language</p>",
	})
	if err != nil {
		return err
	}

	questDto := model.CreateQuestDto{
		Title:       "Getting Started",
		Description: "<p>Introduction to Go</p>",
		Order:       1,
	}
	if levels := s.Store.ListLevels(); len(levels) > 0 {
		questDto.LevelID = levels[0].ID
	}
	quest, err := s.CreateQuest(ctx, training.ID, questDto)
	if err != nil {
		return err
	}

	_, err = s.CreateObjective(ctx, training.ID, quest.ID, model.CreateObjectiveDto{
		Title:       "Install the Go toolchain",
		Description: "<p>Learn how to install Go and set up your workspace</p>",
		Points:      10,
		Order:       1,
	})
	return err
}

// ==================== TRAINING ====================

// ListTrainings keyword 为空时返回全部训练
func (s *TrainingService) ListTrainings(ctx context.Context, keyword string) []model.Training {
	_, span := tracing.Tracer.Start(ctx, "TrainingService.ListTrainings")
	defer span.End()

	return s.Store.Search(keyword)
}

func (s *TrainingService) GetTraining(ctx context.Context, id string) (*model.Training, error) {
	t, ok := s.Store.GetTraining(id)
	if !ok {
		return nil, util.ErrTrainingNotFound
	}
	return t, nil
}

func (s *TrainingService) GetProgress(ctx context.Context, id string) (*model.TrainingProgressView, error) {
	t, ok := s.Store.GetTraining(id)
	if !ok {
		return nil, util.ErrTrainingNotFound
	}
	view := model.BuildProgressView(t)
	return &view, nil
}

func (s *TrainingService) CreateTraining(ctx context.Context, dto model.CreateTrainingDto) (*model.Training, error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.CreateTraining")
	defer span.End()

	t, ok := s.Store.CreateTraining(dto)
	if !ok {
		return nil, util.ErrTitleRequired
	}
	span.SetAttributes(attribute.String("training.id", t.ID))

	if err := s.afterChange(ctx, t.ID); err != nil {
		return nil, err
	}
	logger.Log.Info("Training created", zap.String("trainingId", t.ID), zap.String("title", t.Title))
	return t, nil
}

func (s *TrainingService) UpdateTraining(ctx context.Context, id string, dto model.UpdateTrainingDto) (*model.Training, error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.UpdateTraining",
		trace.WithAttributes(attribute.String("training.id", id)))
	defer span.End()

	if titleMissing(dto.Title) {
		return nil, util.ErrTitleRequired
	}
	if !s.Store.UpdateTraining(id, dto) {
		return nil, util.ErrTrainingNotFound
	}
	if err := s.afterChange(ctx, id); err != nil {
		return nil, err
	}
	return s.GetTraining(ctx, id)
}

// DeleteTraining 删除训练及其全部任务和目标
func (s *TrainingService) DeleteTraining(ctx context.Context, id string) error {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.DeleteTraining",
		trace.WithAttributes(attribute.String("training.id", id)))
	defer span.End()

	t, ok := s.Store.GetTraining(id)
	if !ok || !s.Store.DeleteTraining(id) {
		return util.ErrTrainingNotFound
	}

	s.persistMu.Lock()
	err := s.TrainingRepo.Delete(ctx, id)
	s.persistMu.Unlock()
	// 之前写库失败过的训练在库里可能不存在
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return s.persistFailed(ctx, "training", id, err)
	}

	s.invalidate(ctx)
	s.releaseVideos(ctx, trainingVideos(t))
	logger.Log.Info("Training deleted", zap.String("trainingId", id))
	return nil
}

// ==================== QUEST ====================

func (s *TrainingService) CreateQuest(ctx context.Context, trainingID string, dto model.CreateQuestDto) (*model.Quest, error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.CreateQuest",
		trace.WithAttributes(attribute.String("training.id", trainingID)))
	defer span.End()

	if blank(dto.Title) {
		return nil, util.ErrTitleRequired
	}
	dto.TrainingID = trainingID
	if dto.LevelID != "" {
		if _, ok := s.Store.GetLevel(dto.LevelID); !ok {
			return nil, util.ErrLevelNotFound
		}
	}

	q, ok := s.Store.CreateQuest(dto)
	if !ok {
		return nil, util.ErrTrainingNotFound
	}
	if err := s.afterChange(ctx, trainingID); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *TrainingService) UpdateQuest(ctx context.Context, trainingID, questID string, dto model.UpdateQuestDto) (*model.Quest, error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.UpdateQuest",
		trace.WithAttributes(attribute.String("training.id", trainingID), attribute.String("quest.id", questID)))
	defer span.End()

	if titleMissing(dto.Title) {
		return nil, util.ErrTitleRequired
	}
	if dto.LevelID != nil && *dto.LevelID != "" {
		if _, ok := s.Store.GetLevel(*dto.LevelID); !ok {
			return nil, util.ErrLevelNotFound
		}
	}

	if !s.Store.UpdateQuest(trainingID, questID, dto) {
		return nil, s.missing(trainingID, questID)
	}
	if err := s.afterChange(ctx, trainingID); err != nil {
		return nil, err
	}

	q, ok := s.Store.GetQuest(trainingID, questID)
	if !ok {
		return nil, util.ErrQuestNotFound
	}
	return q, nil
}

func (s *TrainingService) DeleteQuest(ctx context.Context, trainingID, questID string) error {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.DeleteQuest",
		trace.WithAttributes(attribute.String("training.id", trainingID), attribute.String("quest.id", questID)))
	defer span.End()

	q, ok := s.Store.GetQuest(trainingID, questID)
	if !ok || !s.Store.DeleteQuest(trainingID, questID) {
		return s.missing(trainingID, questID)
	}
	if err := s.afterChange(ctx, trainingID); err != nil {
		return err
	}
	s.releaseVideos(ctx, questVideos(q))
	return nil
}

// ==================== OBJECTIVE ====================

func (s *TrainingService) CreateObjective(ctx context.Context, trainingID, questID string, dto model.CreateObjectiveDto) (*model.Objective, error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.CreateObjective",
		trace.WithAttributes(attribute.String("training.id", trainingID), attribute.String("quest.id", questID)))
	defer span.End()

	if blank(dto.Title) {
		return nil, util.ErrTitleRequired
	}
	if dto.Points < 1 {
		return nil, util.ErrInvalidPoints
	}
	if err := validateVideo(dto.Video); err != nil {
		return nil, err
	}
	// 任务必须属于路径中的训练
	if _, ok := s.Store.GetQuest(trainingID, questID); !ok {
		return nil, s.missing(trainingID, questID)
	}

	dto.QuestID = questID
	o, ok := s.Store.CreateObjective(dto)
	if !ok {
		return nil, s.missing(trainingID, questID)
	}
	if err := s.afterChange(ctx, trainingID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *TrainingService) UpdateObjective(ctx context.Context, trainingID, questID, objectiveID string, dto model.UpdateObjectiveDto) (*model.Objective, error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.UpdateObjective",
		trace.WithAttributes(attribute.String("objective.id", objectiveID)))
	defer span.End()

	if titleMissing(dto.Title) {
		return nil, util.ErrTitleRequired
	}
	if dto.Points != nil && *dto.Points < 1 {
		return nil, util.ErrInvalidPoints
	}
	if !dto.RemoveVideo {
		if err := validateVideo(dto.Video); err != nil {
			return nil, err
		}
	}

	before, ok := s.Store.GetObjective(trainingID, questID, objectiveID)
	if !ok {
		return nil, s.missing(trainingID, questID)
	}
	if !s.Store.UpdateObjective(trainingID, questID, objectiveID, dto) {
		return nil, s.missing(trainingID, questID)
	}
	if dto.IsCompleted != nil && *dto.IsCompleted && !before.IsCompleted {
		monitoring.ObjectivesCompleted.Inc()
	}
	if err := s.afterChange(ctx, trainingID); err != nil {
		return nil, err
	}

	o, ok := s.Store.GetObjective(trainingID, questID, objectiveID)
	if !ok {
		return nil, util.ErrObjectiveNotFound
	}
	if before.Video != nil && (o.Video == nil || o.Video.URL != before.Video.URL) {
		s.releaseVideos(ctx, []*model.Video{before.Video})
	}
	return o, nil
}

func (s *TrainingService) DeleteObjective(ctx context.Context, trainingID, questID, objectiveID string) error {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.DeleteObjective",
		trace.WithAttributes(attribute.String("objective.id", objectiveID)))
	defer span.End()

	o, ok := s.Store.GetObjective(trainingID, questID, objectiveID)
	if !ok || !s.Store.DeleteObjective(trainingID, questID, objectiveID) {
		return s.missing(trainingID, questID)
	}
	if err := s.afterChange(ctx, trainingID); err != nil {
		return err
	}
	s.releaseVideos(ctx, []*model.Video{o.Video})
	return nil
}

// CompleteObjective 标记目标完成，返回重算后的整个训练
func (s *TrainingService) CompleteObjective(ctx context.Context, trainingID, questID, objectiveID string) (*model.Training, error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.CompleteObjective",
		trace.WithAttributes(attribute.String("objective.id", objectiveID)))
	defer span.End()

	before, ok := s.Store.GetObjective(trainingID, questID, objectiveID)
	if !ok {
		return nil, s.missing(trainingID, questID)
	}
	if !s.Store.CompleteObjective(trainingID, questID, objectiveID) {
		return nil, s.missing(trainingID, questID)
	}
	if !before.IsCompleted {
		monitoring.ObjectivesCompleted.Inc()
	}
	if err := s.afterChange(ctx, trainingID); err != nil {
		return nil, err
	}
	return s.GetTraining(ctx, trainingID)
}

// ==================== STATS ====================

func (s *TrainingService) Stats(ctx context.Context) model.TrainingStats {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.Stats")
	defer span.End()

	if cached, ok := s.Cache.Get(ctx, s.Store.Generation()); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return *cached
	}

	// 统计与代数一起写入，晚到的旧值在下次读取时按代数不匹配处理
	stats, gen := s.Store.StatsWithGeneration()
	s.Cache.Set(ctx, gen, stats)
	return stats
}

// ==================== HELPERS ====================

// afterChange 写穿持久化后刷新缓存与指标
func (s *TrainingService) afterChange(ctx context.Context, trainingID string) error {
	if err := s.persist(ctx, trainingID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// persist 把训练的最新快照写入持久化层，训练已被删除时跳过
func (s *TrainingService) persist(ctx context.Context, trainingID string) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	t, ok := s.Store.GetTraining(trainingID)
	if !ok {
		return nil
	}
	if err := s.TrainingRepo.SaveTree(ctx, t); err != nil {
		return s.persistFailed(ctx, "training", trainingID, err)
	}
	return nil
}

func (s *TrainingService) persistFailed(ctx context.Context, entity, id string, err error) error {
	monitoring.PersistFailures.WithLabelValues(entity).Inc()

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "persist failed")

	logger.Log.Error("Failed to persist "+entity, zap.String("id", id), zap.Error(err))
	return fmt.Errorf("persist %s %s: %w", entity, id, err)
}

func (s *TrainingService) invalidate(ctx context.Context) {
	s.Cache.Invalidate(ctx)
	s.refreshMetrics()
}

func (s *TrainingService) refreshMetrics() {
	stats := s.Store.Stats()
	monitoring.SetProgress(stats.TotalTrainings, stats.CompletedTrainings, stats.TotalPoints, stats.EarnedPoints)
}

// releaseVideos 删除已不被任何目标引用的服务器视频，失败只记录日志
func (s *TrainingService) releaseVideos(ctx context.Context, videos []*model.Video) {
	if s.Storage == nil {
		return
	}
	for _, v := range videos {
		if v == nil || !v.IsServer() || s.Store.VideoInUse(v.URL) {
			continue
		}
		if err := s.Storage.RemoveVideo(ctx, v); err != nil {
			logger.Log.Warn("Failed to remove video object", zap.String("url", v.URL), zap.Error(err))
			continue
		}
		logger.Log.Info("Video object removed", zap.String("url", v.URL))
	}
}

func questVideos(q *model.Quest) []*model.Video {
	var videos []*model.Video
	for i := range q.Objectives {
		if v := q.Objectives[i].Video; v != nil {
			videos = append(videos, v)
		}
	}
	return videos
}

func trainingVideos(t *model.Training) []*model.Video {
	var videos []*model.Video
	for i := range t.Quests {
		videos = append(videos, questVideos(&t.Quests[i])...)
	}
	return videos
}

// missing 判断是训练还是任务不存在；两者都在时说明目标不存在
func (s *TrainingService) missing(trainingID, questID string) error {
	if _, ok := s.Store.GetTraining(trainingID); !ok {
		return util.ErrTrainingNotFound
	}
	if _, ok := s.Store.GetQuest(trainingID, questID); !ok {
		return util.ErrQuestNotFound
	}
	return util.ErrObjectiveNotFound
}

func blank(title string) bool {
	return strings.TrimSpace(title) == ""
}

// titleMissing 可选的标题字段给了但全是空白
func titleMissing(title *string) bool {
	return title != nil && blank(*title)
}

func validateVideo(v *model.Video) error {
	if v == nil {
		return nil
	}
	if v.URL == "" || (!v.IsYouTube() && !v.IsServer()) {
		return util.ErrInvalidVideo
	}
	if v.IsYouTube() {
		if _, ok := util.ExtractYouTubeVideoID(v.URL); !ok {
			return util.ErrInvalidYouTubeURL
		}
	}
	return nil
}
