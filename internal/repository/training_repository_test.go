package repository

import (
	"context"
	"testing"

	"quest_resume_backend/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ctx = context.Background()

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(&model.Level{}, &model.Training{}, &model.Quest{}, &model.Objective{})
	require.NoError(t, err)
	return db
}

func sampleTraining() *model.Training {
	tr := &model.Training{
		UUIDBase: model.UUIDBase{ID: model.GenerateUUID()},
		Title:    "Go Fundamentals",
		Position: 1,
		Quests: []model.Quest{
			{
				UUIDBase: model.UUIDBase{ID: model.GenerateUUID()},
				Title:    "Getting Started",
				Objectives: []model.Objective{
					{UUIDBase: model.UUIDBase{ID: model.GenerateUUID()}, Title: "Install Go", Points: 10, IsCompleted: true},
					{
						UUIDBase: model.UUIDBase{ID: model.GenerateUUID()},
						Title:    "Watch intro",
						Points:   20,
						Video:    &model.Video{ID: "v1", Type: model.VideoYouTube, URL: "https://youtu.be/abc"},
					},
				},
			},
			{UUIDBase: model.UUIDBase{ID: model.GenerateUUID()}, Title: "Empty quest"},
		},
	}
	model.Recalculate(tr)
	return tr
}

func TestSaveTreeAndFindAll(t *testing.T) {
	repo := NewTrainingRepository(setupTestDB(t))
	tr := sampleTraining()

	require.NoError(t, repo.SaveTree(ctx, tr))

	list, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, 30, got.TotalPoints)
	assert.Equal(t, 10, got.EarnedPoints)
	require.Len(t, got.Quests, 2)
	assert.Equal(t, "Getting Started", got.Quests[0].Title)
	assert.Equal(t, tr.ID, got.Quests[0].TrainingID)
	require.Len(t, got.Quests[0].Objectives, 2)
	assert.Equal(t, "Install Go", got.Quests[0].Objectives[0].Title)
	require.NotNil(t, got.Quests[0].Objectives[1].Video)
	assert.Equal(t, model.VideoYouTube, got.Quests[0].Objectives[1].Video.Type)
	assert.Nil(t, got.Quests[0].Objectives[0].Video)
}

func TestSaveTreeRemovesDroppedDescendants(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrainingRepository(db)
	tr := sampleTraining()
	require.NoError(t, repo.SaveTree(ctx, tr))

	droppedQuest := tr.Quests[1].ID
	droppedObjective := tr.Quests[0].Objectives[0].ID
	tr.Quests = tr.Quests[:1]
	tr.Quests[0].Objectives = tr.Quests[0].Objectives[1:]
	tr.Quests[0].Objectives[0].IsCompleted = true
	model.Recalculate(tr)

	require.NoError(t, repo.SaveTree(ctx, tr))

	list, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Quests, 1)
	require.Len(t, list[0].Quests[0].Objectives, 1)
	assert.True(t, list[0].Quests[0].Objectives[0].IsCompleted)
	assert.True(t, list[0].IsCompleted)

	var count int64
	db.Model(&model.Quest{}).Where("id = ?", droppedQuest).Count(&count)
	assert.Zero(t, count)
	db.Model(&model.Objective{}).Where("id = ?", droppedObjective).Count(&count)
	assert.Zero(t, count)
}

func TestDeleteTrainingCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrainingRepository(db)
	tr := sampleTraining()
	require.NoError(t, repo.SaveTree(ctx, tr))

	require.NoError(t, repo.Delete(ctx, tr.ID))

	list, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	var count int64
	db.Model(&model.Quest{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&model.Objective{}).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.Delete(ctx, tr.ID), gorm.ErrRecordNotFound)
}

func TestLevelRepository(t *testing.T) {
	repo := NewLevelRepository(setupTestDB(t))

	hard := &model.Level{UUIDBase: model.UUIDBase{ID: model.GenerateUUID()}, Name: "Hard", Order: 3}
	easy := &model.Level{UUIDBase: model.UUIDBase{ID: model.GenerateUUID()}, Name: "Easy", Order: 1}
	require.NoError(t, repo.Save(ctx, hard))
	require.NoError(t, repo.Save(ctx, easy))

	levels, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "Easy", levels[0].Name)

	hard.Name = "Very Hard"
	require.NoError(t, repo.Save(ctx, hard))
	levels, _ = repo.FindAll(ctx)
	assert.Equal(t, "Very Hard", levels[1].Name)

	require.NoError(t, repo.Delete(ctx, easy.ID))
	assert.ErrorIs(t, repo.Delete(ctx, easy.ID), gorm.ErrRecordNotFound)
}
