package repository

import (
	"context"
	"quest_resume_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrainingRepository 训练树的持久化
type TrainingRepository interface {
	FindAll(ctx context.Context) ([]model.Training, error)
	// SaveTree 保存训练及其全部任务和目标，删除已不在树中的后代
	SaveTree(ctx context.Context, training *model.Training) error
	// Delete 删除训练及其全部后代
	Delete(ctx context.Context, trainingID string) error
}

type GormTrainingRepository struct {
	DB *gorm.DB
}

func NewTrainingRepository(db *gorm.DB) *GormTrainingRepository {
	return &GormTrainingRepository{DB: db}
}

func (r *GormTrainingRepository) FindAll(ctx context.Context) ([]model.Training, error) {
	var trainings []model.Training
	err := r.DB.WithContext(ctx).
		Preload("Quests", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Quests.Objectives", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("position ASC").
		Find(&trainings).Error
	return trainings, err
}

func (r *GormTrainingRepository) SaveTree(ctx context.Context, training *model.Training) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(training).Error; err != nil {
			return err
		}

		var existingQuestIDs []string
		if err := tx.Model(&model.Quest{}).
			Where("training_id = ?", training.ID).
			Pluck("id", &existingQuestIDs).Error; err != nil {
			return err
		}

		keepQuests := make(map[string]bool, len(training.Quests))
		for i := range training.Quests {
			keepQuests[training.Quests[i].ID] = true
		}
		removedQuests := difference(existingQuestIDs, keepQuests)
		if len(removedQuests) > 0 {
			if err := tx.Where("quest_id IN ?", removedQuests).Delete(&model.Objective{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", removedQuests).Delete(&model.Quest{}).Error; err != nil {
				return err
			}
		}

		for i := range training.Quests {
			quest := &training.Quests[i]
			quest.TrainingID = training.ID
			quest.Position = i
			if err := saveQuest(tx, quest); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveQuest(tx *gorm.DB, quest *model.Quest) error {
	if err := tx.Omit(clause.Associations).Save(quest).Error; err != nil {
		return err
	}

	var existingObjectiveIDs []string
	if err := tx.Model(&model.Objective{}).
		Where("quest_id = ?", quest.ID).
		Pluck("id", &existingObjectiveIDs).Error; err != nil {
		return err
	}

	keep := make(map[string]bool, len(quest.Objectives))
	for i := range quest.Objectives {
		keep[quest.Objectives[i].ID] = true
	}
	if removed := difference(existingObjectiveIDs, keep); len(removed) > 0 {
		if err := tx.Where("id IN ?", removed).Delete(&model.Objective{}).Error; err != nil {
			return err
		}
	}

	for i := range quest.Objectives {
		objective := &quest.Objectives[i]
		objective.QuestID = quest.ID
		objective.Position = i
		if err := tx.Save(objective).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormTrainingRepository) Delete(ctx context.Context, trainingID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		questIDs := tx.Model(&model.Quest{}).Select("id").Where("training_id = ?", trainingID)
		if err := tx.Where("quest_id IN (?)", questIDs).Delete(&model.Objective{}).Error; err != nil {
			return err
		}
		if err := tx.Where("training_id = ?", trainingID).Delete(&model.Quest{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", trainingID).Delete(&model.Training{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func difference(ids []string, keep map[string]bool) []string {
	var out []string
	for _, id := range ids {
		if !keep[id] {
			out = append(out, id)
		}
	}
	return out
}

// MemoryTrainingRepository memory 驱动下不做持久化
type MemoryTrainingRepository struct{}

func (MemoryTrainingRepository) FindAll(context.Context) ([]model.Training, error) { return nil, nil }
func (MemoryTrainingRepository) SaveTree(context.Context, *model.Training) error   { return nil }
func (MemoryTrainingRepository) Delete(context.Context, string) error              { return nil }
