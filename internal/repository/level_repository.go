package repository

import (
	"context"
	"quest_resume_backend/internal/model"

	"gorm.io/gorm"
)

type LevelRepository interface {
	FindAll(ctx context.Context) ([]model.Level, error)
	Save(ctx context.Context, level *model.Level) error
	Delete(ctx context.Context, id string) error
}

type GormLevelRepository struct {
	DB *gorm.DB
}

func NewLevelRepository(db *gorm.DB) *GormLevelRepository {
	return &GormLevelRepository{DB: db}
}

func (r *GormLevelRepository) FindAll(ctx context.Context) ([]model.Level, error) {
	var levels []model.Level
	err := r.DB.WithContext(ctx).Order("sort_order ASC").Find(&levels).Error
	return levels, err
}

func (r *GormLevelRepository) Save(ctx context.Context, level *model.Level) error {
	return r.DB.WithContext(ctx).Save(level).Error
}

func (r *GormLevelRepository) Delete(ctx context.Context, id string) error {
	result := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.Level{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type MemoryLevelRepository struct{}

func (MemoryLevelRepository) FindAll(context.Context) ([]model.Level, error) { return nil, nil }
func (MemoryLevelRepository) Save(context.Context, *model.Level) error       { return nil }
func (MemoryLevelRepository) Delete(context.Context, string) error           { return nil }
