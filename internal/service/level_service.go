package service

import (
	"context"
	"errors"
	"quest_resume_backend/internal/model"
	"quest_resume_backend/internal/util"
	"quest_resume_backend/pkg/logger"
	"quest_resume_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListLevels 按 order 升序
func (s *TrainingService) ListLevels(ctx context.Context) []model.Level {
	return s.Store.ListLevels()
}

func (s *TrainingService) GetLevel(ctx context.Context, id string) (*model.Level, error) {
	l, ok := s.Store.GetLevel(id)
	if !ok {
		return nil, util.ErrLevelNotFound
	}
	return l, nil
}

func (s *TrainingService) CreateLevel(ctx context.Context, dto model.CreateLevelDto) (*model.Level, error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.CreateLevel")
	defer span.End()

	l := s.Store.CreateLevel(dto)
	if err := s.persistLevel(ctx, l.ID); err != nil {
		return nil, err
	}
	logger.Log.Info("Level created", zap.String("levelId", l.ID), zap.String("name", l.Name))
	return l, nil
}

func (s *TrainingService) UpdateLevel(ctx context.Context, id string, dto model.UpdateLevelDto) (*model.Level, error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.UpdateLevel",
		trace.WithAttributes(attribute.String("level.id", id)))
	defer span.End()

	if !s.Store.UpdateLevel(id, dto) {
		return nil, util.ErrLevelNotFound
	}
	if err := s.persistLevel(ctx, id); err != nil {
		return nil, err
	}
	return s.GetLevel(ctx, id)
}

// DeleteLevel 删除等级，引用它的任务变为无等级，并写回受影响的训练
func (s *TrainingService) DeleteLevel(ctx context.Context, id string) error {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingService.DeleteLevel",
		trace.WithAttributes(attribute.String("level.id", id)))
	defer span.End()

	ok, affected := s.Store.DeleteLevel(id)
	if !ok {
		return util.ErrLevelNotFound
	}

	for _, trainingID := range affected {
		if err := s.persist(ctx, trainingID); err != nil {
			return err
		}
	}

	s.persistMu.Lock()
	err := s.LevelRepo.Delete(ctx, id)
	s.persistMu.Unlock()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return s.persistFailed(ctx, "level", id, err)
	}

	logger.Log.Info("Level deleted", zap.String("levelId", id), zap.Int("detachedTrainings", len(affected)))
	return nil
}

func (s *TrainingService) persistLevel(ctx context.Context, id string) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	l, ok := s.Store.GetLevel(id)
	if !ok {
		return nil
	}
	if err := s.LevelRepo.Save(ctx, l); err != nil {
		return s.persistFailed(ctx, "level", id, err)
	}
	return nil
}
