package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"quest_resume_backend/internal/model"
	"quest_resume_backend/internal/util"
	"quest_resume_backend/pkg/logger"
	"quest_resume_backend/pkg/tracing"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// TrainingImport 训练导入文件的顶层结构
type TrainingImport struct {
	Trainings []ImportedTraining `yaml:"trainings"`
}

type ImportedTraining struct {
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Quests      []ImportedQuest `yaml:"quests"`
}

// ImportedQuest Level 可以是等级 ID 或等级名称（不区分大小写）
type ImportedQuest struct {
	Title       string              `yaml:"title"`
	Description string              `yaml:"description"`
	Level       string              `yaml:"level"`
	Order       int                 `yaml:"order"`
	Objectives  []ImportedObjective `yaml:"objectives"`
}

type ImportedObjective struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Points      int            `yaml:"points"`
	Order       int            `yaml:"order"`
	Completed   bool           `yaml:"completed"`
	Video       *ImportedVideo `yaml:"video"`
}

type ImportedVideo struct {
	Type     string `yaml:"type"`
	URL      string `yaml:"url"`
	Title    string `yaml:"title"`
	Duration int    `yaml:"duration"`
}

// ImportTrainings 从 YAML 导入训练。整个文件先校验，任何一项不合法都不会写入；
// 写入过程中失败时撤销本次已导入的训练。
func (s *TrainingService) ImportTrainings(ctx context.Context, r io.Reader, createdBy string) ([]*model.Training, error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.ImportTrainings")
	defer span.End()

	var file TrainingImport
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", util.ErrInvalidImport)
		}
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidImport, err)
	}
	if len(file.Trainings) == 0 {
		return nil, fmt.Errorf("%w: no trainings", util.ErrInvalidImport)
	}

	levels := s.levelResolver()
	if err := validateImport(&file, levels); err != nil {
		return nil, err
	}

	imported := make([]*model.Training, 0, len(file.Trainings))
	for _, it := range file.Trainings {
		t, err := s.importTraining(ctx, it, createdBy, levels)
		if err != nil {
			s.rollbackImport(ctx, imported)
			return nil, err
		}
		imported = append(imported, t)
	}

	span.SetAttributes(attribute.Int("import.trainings", len(imported)))
	logger.Log.Info("Trainings imported", zap.Int("count", len(imported)), zap.String("by", createdBy))
	return imported, nil
}

func (s *TrainingService) importTraining(ctx context.Context, it ImportedTraining, createdBy string, levels map[string]string) (*model.Training, error) {
	t, ok := s.Store.CreateTraining(model.CreateTrainingDto{
		Title:       strings.TrimSpace(it.Title),
		Description: it.Description,
		CreatedBy:   createdBy,
	})
	if !ok {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidImport, util.ErrTitleRequired)
	}

	for qi, iq := range it.Quests {
		order := iq.Order
		if order == 0 {
			order = qi + 1
		}
		q, ok := s.Store.CreateQuest(model.CreateQuestDto{
			TrainingID:  t.ID,
			LevelID:     levels[strings.ToLower(strings.TrimSpace(iq.Level))],
			Title:       strings.TrimSpace(iq.Title),
			Description: iq.Description,
			Order:       order,
		})
		if !ok {
			// 等级在校验之后被并发删除
			return nil, s.importAborted(ctx, t.ID, util.ErrLevelNotFound)
		}

		for oi, obj := range iq.Objectives {
			order := obj.Order
			if order == 0 {
				order = oi + 1
			}
			o, ok := s.Store.CreateObjective(model.CreateObjectiveDto{
				QuestID:     q.ID,
				Title:       strings.TrimSpace(obj.Title),
				Description: obj.Description,
				Points:      obj.Points,
				Order:       order,
				Video:       obj.Video.toModel(),
			})
			if !ok {
				return nil, s.importAborted(ctx, t.ID, util.ErrQuestNotFound)
			}
			if obj.Completed {
				completed := true
				if !s.Store.UpdateObjective(t.ID, q.ID, o.ID, model.UpdateObjectiveDto{IsCompleted: &completed}) {
					return nil, s.importAborted(ctx, t.ID, util.ErrObjectiveNotFound)
				}
			}
		}
	}

	if err := s.afterChange(ctx, t.ID); err != nil {
		return nil, s.importAborted(ctx, t.ID, err)
	}

	snapshot, ok := s.Store.GetTraining(t.ID)
	if !ok {
		return nil, util.ErrTrainingNotFound
	}
	return snapshot, nil
}

// importAborted 丢弃导入到一半的训练
func (s *TrainingService) importAborted(ctx context.Context, trainingID string, err error) error {
	s.discard(ctx, trainingID)
	logger.Log.Warn("Training import aborted", zap.String("trainingId", trainingID), zap.Error(err))
	return err
}

func (s *TrainingService) rollbackImport(ctx context.Context, imported []*model.Training) {
	for _, t := range imported {
		s.discard(ctx, t.ID)
	}
	s.invalidate(ctx)
	if len(imported) > 0 {
		logger.Log.Warn("Training import rolled back", zap.Int("count", len(imported)))
	}
}

// discard 从内存和持久化层删除训练，库里本来就没有时忽略
func (s *TrainingService) discard(ctx context.Context, trainingID string) {
	s.Store.DeleteTraining(trainingID)

	s.persistMu.Lock()
	err := s.TrainingRepo.Delete(ctx, trainingID)
	s.persistMu.Unlock()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Log.Error("Failed to discard imported training", zap.String("trainingId", trainingID), zap.Error(err))
	}
}

// levelResolver 建立 ID 和小写名称到等级 ID 的映射
func (s *TrainingService) levelResolver() map[string]string {
	levels := map[string]string{"": ""}
	for _, l := range s.Store.ListLevels() {
		levels[strings.ToLower(l.ID)] = l.ID
		levels[strings.ToLower(l.Name)] = l.ID
	}
	return levels
}

func validateImport(file *TrainingImport, levels map[string]string) error {
	for ti, it := range file.Trainings {
		if strings.TrimSpace(it.Title) == "" {
			return fmt.Errorf("%w: trainings[%d]: title is required", util.ErrInvalidImport, ti)
		}
		for qi, iq := range it.Quests {
			path := fmt.Sprintf("trainings[%d].quests[%d]", ti, qi)
			if strings.TrimSpace(iq.Title) == "" {
				return fmt.Errorf("%w: %s: title is required", util.ErrInvalidImport, path)
			}
			if _, ok := levels[strings.ToLower(strings.TrimSpace(iq.Level))]; !ok {
				return fmt.Errorf("%w: %s: unknown level %q", util.ErrInvalidImport, path, iq.Level)
			}
			for oi, obj := range iq.Objectives {
				objPath := fmt.Sprintf("%s.objectives[%d]", path, oi)
				if strings.TrimSpace(obj.Title) == "" {
					return fmt.Errorf("%w: %s: title is required", util.ErrInvalidImport, objPath)
				}
				if obj.Points < 1 {
					return fmt.Errorf("%w: %s: %v", util.ErrInvalidImport, objPath, util.ErrInvalidPoints)
				}
				if err := validateVideo(obj.Video.toModel()); err != nil {
					return fmt.Errorf("%w: %s: %v", util.ErrInvalidImport, objPath, err)
				}
			}
		}
	}
	return nil
}

func (v *ImportedVideo) toModel() *model.Video {
	if v == nil {
		return nil
	}
	video := &model.Video{
		ID:       model.GenerateUUID(),
		Type:     model.VideoSourceType(v.Type),
		URL:      strings.TrimSpace(v.URL),
		Title:    v.Title,
		Duration: v.Duration,
	}
	if video.IsYouTube() {
		if id, ok := util.ExtractYouTubeVideoID(video.URL); ok {
			video.Thumbnail = util.YouTubeThumbnail(id)
		}
	}
	return video
}
