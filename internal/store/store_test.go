package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quest_resume_backend/internal/model"
)

func ptr[T any](v T) *T { return &v }

// seedTraining 创建训练 + 一个任务 + 给定积分的目标
func seedTraining(t *testing.T, s *ProgressStore, points ...int) (*model.Training, *model.Quest, []*model.Objective) {
	t.Helper()

	tr, _ := s.CreateTraining(model.CreateTrainingDto{Title: "Go Fundamentals", Description: "<p>basics</p>"})
	q, ok := s.CreateQuest(model.CreateQuestDto{Title: "Getting Started", TrainingID: tr.ID, Order: 1})
	require.True(t, ok)

	var objectives []*model.Objective
	for i, p := range points {
		o, ok := s.CreateObjective(model.CreateObjectiveDto{Title: "step", Points: p, Order: i + 1, QuestID: q.ID})
		require.True(t, ok)
		objectives = append(objectives, o)
	}
	return tr, q, objectives
}

// assertConsistent 校验整棵树的汇总不变量
func assertConsistent(t *testing.T, tr *model.Training) {
	t.Helper()

	trainingTotal, trainingEarned := 0, 0
	allQuestsDone := len(tr.Quests) > 0
	for _, q := range tr.Quests {
		total, earned := 0, 0
		allDone := len(q.Objectives) > 0
		for _, o := range q.Objectives {
			total += o.Points
			if o.IsCompleted {
				earned += o.Points
			} else {
				allDone = false
			}
		}
		assert.Equal(t, total, q.TotalPoints, "quest %s total", q.ID)
		assert.Equal(t, earned, q.EarnedPoints, "quest %s earned", q.ID)
		assert.Equal(t, allDone, q.IsCompleted, "quest %s completion", q.ID)

		trainingTotal += q.TotalPoints
		trainingEarned += q.EarnedPoints
		if !q.IsCompleted {
			allQuestsDone = false
		}
	}
	assert.Equal(t, trainingTotal, tr.TotalPoints)
	assert.Equal(t, trainingEarned, tr.EarnedPoints)
	assert.Equal(t, allQuestsDone, tr.IsCompleted)
}

func mustGet(t *testing.T, s *ProgressStore, id string) *model.Training {
	t.Helper()
	tr, ok := s.GetTraining(id)
	require.True(t, ok)
	return tr
}

func TestCreateTraining(t *testing.T) {
	s := NewProgressStore()

	tr, _ := s.CreateTraining(model.CreateTrainingDto{Title: "Go", Description: "desc", CreatedBy: "admin"})

	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, "Go", tr.Title)
	assert.Equal(t, "admin", tr.CreatedBy)
	assert.Empty(t, tr.Quests)
	assert.Zero(t, tr.TotalPoints)
	assert.Zero(t, tr.EarnedPoints)
	assert.False(t, tr.IsCompleted)
	assert.Len(t, s.ListTrainings(), 1)
}

func TestListTrainingsKeepsInsertionOrder(t *testing.T) {
	s := NewProgressStore()
	a, _ := s.CreateTraining(model.CreateTrainingDto{Title: "A"})
	b, _ := s.CreateTraining(model.CreateTrainingDto{Title: "B"})
	c, _ := s.CreateTraining(model.CreateTrainingDto{Title: "C"})

	list := s.ListTrainings()
	require.Len(t, list, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestUpdateTraining(t *testing.T) {
	s := NewProgressStore()
	tr, _ := s.CreateTraining(model.CreateTrainingDto{Title: "Old"})

	ok := s.UpdateTraining(tr.ID, model.UpdateTrainingDto{Title: ptr("New")})
	require.True(t, ok)

	got := mustGet(t, s, tr.ID)
	assert.Equal(t, "New", got.Title)

	assert.False(t, s.UpdateTraining("missing", model.UpdateTrainingDto{Title: ptr("x")}))
}

func TestDeleteTrainingRemovesDescendants(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10, 20)

	require.True(t, s.DeleteTraining(tr.ID))

	_, ok := s.GetTraining(tr.ID)
	assert.False(t, ok)
	_, ok = s.GetQuest(tr.ID, q.ID)
	assert.False(t, ok)
	_, ok = s.CreateObjective(model.CreateObjectiveDto{Title: "orphan", Points: 1, QuestID: q.ID})
	assert.False(t, ok, "quest of a deleted training must be unreachable")
	assert.False(t, s.CompleteObjective(tr.ID, q.ID, objs[0].ID))
	assert.False(t, s.DeleteTraining(tr.ID))
}

func TestCreateQuestRequiresTraining(t *testing.T) {
	s := NewProgressStore()

	q, ok := s.CreateQuest(model.CreateQuestDto{Title: "x", TrainingID: "missing"})
	assert.False(t, ok)
	assert.Nil(t, q)
}

func TestCreateQuestRejectsUnknownLevel(t *testing.T) {
	s := NewProgressStore()
	tr, _ := s.CreateTraining(model.CreateTrainingDto{Title: "T"})

	_, ok := s.CreateQuest(model.CreateQuestDto{Title: "x", TrainingID: tr.ID, LevelID: "nope"})
	assert.False(t, ok)
	assert.Empty(t, mustGet(t, s, tr.ID).Quests)
}

func TestEmptyQuestHasZeroPointsAndIsNotCompleted(t *testing.T) {
	s := NewProgressStore()
	tr, q, _ := seedTraining(t, s)

	assert.Zero(t, q.TotalPoints)
	assert.Zero(t, q.EarnedPoints)
	assert.False(t, q.IsCompleted)

	got := mustGet(t, s, tr.ID)
	assert.False(t, got.IsCompleted)
	assertConsistent(t, got)
}

func TestObjectiveCreationUpdatesAggregates(t *testing.T) {
	s := NewProgressStore()
	tr, q, _ := seedTraining(t, s, 10, 20)

	got := mustGet(t, s, tr.ID)
	assert.Equal(t, 30, got.TotalPoints)
	assert.Equal(t, 0, got.EarnedPoints)
	assert.Equal(t, 30, got.FindQuest(q.ID).TotalPoints)
	assertConsistent(t, got)
}

func TestCreateObjectiveRejectsNonPositivePoints(t *testing.T) {
	s := NewProgressStore()
	tr, q, _ := seedTraining(t, s)

	for _, p := range []int{0, -5} {
		o, ok := s.CreateObjective(model.CreateObjectiveDto{Title: "bad", Points: p, QuestID: q.ID})
		assert.False(t, ok)
		assert.Nil(t, o)
	}
	assert.Empty(t, mustGet(t, s, tr.ID).FindQuest(q.ID).Objectives)
}

func TestCompleteObjectivePropagates(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10, 20)

	require.True(t, s.CompleteObjective(tr.ID, q.ID, objs[0].ID))

	got := mustGet(t, s, tr.ID)
	quest := got.FindQuest(q.ID)
	assert.Equal(t, 10, quest.EarnedPoints)
	assert.False(t, quest.IsCompleted)
	assert.Equal(t, 10, got.EarnedPoints)
	assert.False(t, got.IsCompleted)
	assertConsistent(t, got)

	require.True(t, s.CompleteObjective(tr.ID, q.ID, objs[1].ID))

	got = mustGet(t, s, tr.ID)
	quest = got.FindQuest(q.ID)
	assert.Equal(t, 30, quest.EarnedPoints)
	assert.True(t, quest.IsCompleted)
	assert.Equal(t, 30, got.EarnedPoints)
	assert.True(t, got.IsCompleted)
	assertConsistent(t, got)
}

func TestCompletingTwiceIsIdempotent(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 5)

	require.True(t, s.CompleteObjective(tr.ID, q.ID, objs[0].ID))
	require.True(t, s.CompleteObjective(tr.ID, q.ID, objs[0].ID))

	got := mustGet(t, s, tr.ID)
	assert.Equal(t, 5, got.EarnedPoints)
	assertConsistent(t, got)
}

func TestTrainingNotCompletedWhileAnotherQuestOpen(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10)
	_, ok := s.CreateQuest(model.CreateQuestDto{Title: "empty", TrainingID: tr.ID})
	require.True(t, ok)

	require.True(t, s.CompleteObjective(tr.ID, q.ID, objs[0].ID))

	got := mustGet(t, s, tr.ID)
	assert.True(t, got.FindQuest(q.ID).IsCompleted)
	assert.False(t, got.IsCompleted, "an empty quest is never completed")
	assertConsistent(t, got)
}

func TestAddingQuestToCompletedTrainingReopensIt(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10)
	require.True(t, s.CompleteObjective(tr.ID, q.ID, objs[0].ID))
	require.True(t, mustGet(t, s, tr.ID).IsCompleted)

	_, ok := s.CreateQuest(model.CreateQuestDto{Title: "bonus", TrainingID: tr.ID})
	require.True(t, ok)

	got := mustGet(t, s, tr.ID)
	assert.False(t, got.IsCompleted)
	assertConsistent(t, got)
}

func TestUpdateObjectivePointsAndReopen(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10, 20)
	require.True(t, s.CompleteObjective(tr.ID, q.ID, objs[0].ID))
	require.True(t, s.CompleteObjective(tr.ID, q.ID, objs[1].ID))

	ok := s.UpdateObjective(tr.ID, q.ID, objs[1].ID, model.UpdateObjectiveDto{
		Points:      ptr(50),
		IsCompleted: ptr(false),
		Title:       ptr("renamed"),
	})
	require.True(t, ok)

	got := mustGet(t, s, tr.ID)
	quest := got.FindQuest(q.ID)
	assert.Equal(t, 60, quest.TotalPoints)
	assert.Equal(t, 10, quest.EarnedPoints)
	assert.False(t, quest.IsCompleted)
	assert.Equal(t, "renamed", quest.FindObjective(objs[1].ID).Title)
	assertConsistent(t, got)
}

func TestUpdateObjectiveRejectsInvalidPoints(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10)

	assert.False(t, s.UpdateObjective(tr.ID, q.ID, objs[0].ID, model.UpdateObjectiveDto{Points: ptr(0)}))
	assert.Equal(t, 10, mustGet(t, s, tr.ID).TotalPoints)
}

func TestUpdateObjectiveVideo(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10)
	video := &model.Video{ID: "v1", Type: model.VideoYouTube, URL: "https://youtu.be/abc"}

	require.True(t, s.UpdateObjective(tr.ID, q.ID, objs[0].ID, model.UpdateObjectiveDto{Video: video}))
	o, ok := s.GetObjective(tr.ID, q.ID, objs[0].ID)
	require.True(t, ok)
	require.NotNil(t, o.Video)
	assert.True(t, o.Video.IsYouTube())

	// 调用方修改传入的 video 不影响存储
	video.URL = "mutated"
	o, _ = s.GetObjective(tr.ID, q.ID, objs[0].ID)
	assert.Equal(t, "https://youtu.be/abc", o.Video.URL)

	require.True(t, s.UpdateObjective(tr.ID, q.ID, objs[0].ID, model.UpdateObjectiveDto{RemoveVideo: true}))
	o, _ = s.GetObjective(tr.ID, q.ID, objs[0].ID)
	assert.Nil(t, o.Video)
}

func TestDeleteObjectiveRecomputesAncestors(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10, 20)
	require.True(t, s.CompleteObjective(tr.ID, q.ID, objs[0].ID))

	require.True(t, s.DeleteObjective(tr.ID, q.ID, objs[1].ID))

	got := mustGet(t, s, tr.ID)
	quest := got.FindQuest(q.ID)
	assert.Equal(t, 10, quest.TotalPoints)
	assert.Equal(t, 10, quest.EarnedPoints)
	assert.True(t, quest.IsCompleted, "remaining objective is completed")
	assert.True(t, got.IsCompleted)
	assertConsistent(t, got)

	require.True(t, s.DeleteObjective(tr.ID, q.ID, objs[0].ID))
	got = mustGet(t, s, tr.ID)
	assert.Zero(t, got.TotalPoints)
	assert.False(t, got.FindQuest(q.ID).IsCompleted, "empty quest is not completed")
	assert.False(t, got.IsCompleted)
	assertConsistent(t, got)
}

func TestDeleteQuestRecomputesTraining(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10)
	require.True(t, s.CompleteObjective(tr.ID, q.ID, objs[0].ID))
	open, ok := s.CreateQuest(model.CreateQuestDto{Title: "open", TrainingID: tr.ID})
	require.True(t, ok)
	_, ok = s.CreateObjective(model.CreateObjectiveDto{Title: "todo", Points: 7, QuestID: open.ID})
	require.True(t, ok)
	require.Equal(t, 17, mustGet(t, s, tr.ID).TotalPoints)

	require.True(t, s.DeleteQuest(tr.ID, open.ID))

	got := mustGet(t, s, tr.ID)
	assert.Equal(t, 10, got.TotalPoints)
	assert.Equal(t, 10, got.EarnedPoints)
	assert.True(t, got.IsCompleted)
	assertConsistent(t, got)
}

func TestNotFoundOperationsAreNoOps(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10)
	before := mustGet(t, s, tr.ID)

	assert.False(t, s.UpdateQuest("missing", q.ID, model.UpdateQuestDto{Title: ptr("x")}))
	assert.False(t, s.UpdateQuest(tr.ID, "missing", model.UpdateQuestDto{Title: ptr("x")}))
	assert.False(t, s.DeleteQuest(tr.ID, "missing"))
	assert.False(t, s.DeleteQuest("missing", q.ID))
	assert.False(t, s.UpdateObjective(tr.ID, q.ID, "missing", model.UpdateObjectiveDto{IsCompleted: ptr(true)}))
	assert.False(t, s.UpdateObjective(tr.ID, "missing", objs[0].ID, model.UpdateObjectiveDto{IsCompleted: ptr(true)}))
	assert.False(t, s.DeleteObjective(tr.ID, q.ID, "missing"))
	assert.False(t, s.DeleteObjective("missing", q.ID, objs[0].ID))
	assert.False(t, s.CompleteObjective(tr.ID, q.ID, "missing"))
	_, ok := s.CreateObjective(model.CreateObjectiveDto{Title: "x", Points: 1, QuestID: "missing"})
	assert.False(t, ok)

	after := mustGet(t, s, tr.ID)
	assert.Equal(t, before, after)
}

func TestObjectiveMustBelongToGivenQuest(t *testing.T) {
	s := NewProgressStore()
	tr, q, objs := seedTraining(t, s, 10)
	other, ok := s.CreateQuest(model.CreateQuestDto{Title: "other", TrainingID: tr.ID})
	require.True(t, ok)

	assert.False(t, s.CompleteObjective(tr.ID, other.ID, objs[0].ID))
	assert.False(t, mustGet(t, s, tr.ID).FindQuest(q.ID).FindObjective(objs[0].ID).IsCompleted)
}

func TestUpdateQuest(t *testing.T) {
	s := NewProgressStore()
	tr, q, _ := seedTraining(t, s, 10)

	ok := s.UpdateQuest(tr.ID, q.ID, model.UpdateQuestDto{Title: ptr("Updated Quest"), Order: ptr(3)})
	require.True(t, ok)

	got, ok := s.GetQuest(tr.ID, q.ID)
	require.True(t, ok)
	assert.Equal(t, "Updated Quest", got.Title)
	assert.Equal(t, 3, got.Order)
	assert.Equal(t, 10, got.TotalPoints, "aggregates survive metadata updates")
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := NewProgressStore()
	tr, q, _ := seedTraining(t, s, 10)

	snap := mustGet(t, s, tr.ID)
	snap.Title = "mutated"
	snap.TotalPoints = 999
	snap.Quests[0].Objectives[0].Points = 999
	snap.Quests = nil

	got := mustGet(t, s, tr.ID)
	assert.Equal(t, "Go Fundamentals", got.Title)
	assert.Equal(t, 10, got.TotalPoints)
	assert.Equal(t, 10, got.FindQuest(q.ID).Objectives[0].Points)
}

func TestStats(t *testing.T) {
	s := NewProgressStore()
	done, q, objs := seedTraining(t, s, 10, 5)
	require.True(t, s.CompleteObjective(done.ID, q.ID, objs[0].ID))
	require.True(t, s.CompleteObjective(done.ID, q.ID, objs[1].ID))
	seedTraining(t, s, 20)
	s.CreateTraining(model.CreateTrainingDto{Title: "empty"})

	stats := s.Stats()
	assert.Equal(t, 3, stats.TotalTrainings)
	assert.Equal(t, 1, stats.CompletedTrainings)
	assert.Equal(t, 35, stats.TotalPoints)
	assert.Equal(t, 15, stats.EarnedPoints)
	assert.LessOrEqual(t, stats.EarnedPoints, stats.TotalPoints)
}

func TestSearch(t *testing.T) {
	s := NewProgressStore()
	s.CreateTraining(model.CreateTrainingDto{Title: "Go Fundamentals"})
	s.CreateTraining(model.CreateTrainingDto{Title: "Kubernetes"})

	assert.Len(t, s.Search("go"), 1)
	assert.Len(t, s.Search("  "), 2)
	assert.Empty(t, s.Search("rust"))
}

func TestLoadRecomputesPersistedAggregates(t *testing.T) {
	s := NewProgressStore()
	persisted := []model.Training{{
		UUIDBase:    model.UUIDBase{ID: "t1"},
		Title:       "persisted",
		TotalPoints: 1000, // 陈旧的汇总值
		IsCompleted: true,
		Position:    4,
		Quests: []model.Quest{{
			UUIDBase:   model.UUIDBase{ID: "q1"},
			TrainingID: "t1",
			Objectives: []model.Objective{
				{UUIDBase: model.UUIDBase{ID: "o1"}, QuestID: "q1", Points: 3, IsCompleted: true},
				{UUIDBase: model.UUIDBase{ID: "o2"}, QuestID: "q1", Points: 4},
			},
		}},
	}}

	s.Load(persisted)

	got := mustGet(t, s, "t1")
	assert.Equal(t, 7, got.TotalPoints)
	assert.Equal(t, 3, got.EarnedPoints)
	assert.False(t, got.IsCompleted)
	assertConsistent(t, got)

	next, _ := s.CreateTraining(model.CreateTrainingDto{Title: "next"})
	assert.Equal(t, 5, next.Position)
}

func TestLevels(t *testing.T) {
	s := NewProgressStore()

	seeded := s.SeedDefaultLevels()
	require.Len(t, seeded, 4)
	assert.Nil(t, s.SeedDefaultLevels(), "seeding twice is a no-op")

	levels := s.ListLevels()
	assert.Equal(t, "Beginner", levels[0].Name)
	assert.Equal(t, "Expert", levels[3].Name)

	require.True(t, s.UpdateLevel(levels[0].ID, model.UpdateLevelDto{Order: ptr(10)}))
	levels = s.ListLevels()
	assert.Equal(t, "Intermediate", levels[0].Name)
	assert.Equal(t, "Beginner", levels[3].Name)
	assert.False(t, s.UpdateLevel("missing", model.UpdateLevelDto{Order: ptr(1)}))
}

func TestDeleteLevelDetachesQuests(t *testing.T) {
	s := NewProgressStore()
	lvl := s.CreateLevel(model.CreateLevelDto{Name: "Hard", Order: 1})
	tr, _ := s.CreateTraining(model.CreateTrainingDto{Title: "T"})
	q, ok := s.CreateQuest(model.CreateQuestDto{Title: "q", TrainingID: tr.ID, LevelID: lvl.ID})
	require.True(t, ok)
	require.NotNil(t, q.Level)
	assert.Equal(t, "Hard", q.Level.Name)

	deleted, affected := s.DeleteLevel(lvl.ID)
	require.True(t, deleted)
	assert.Equal(t, []string{tr.ID}, affected)

	got, _ := s.GetQuest(tr.ID, q.ID)
	assert.Empty(t, got.LevelID)
	assert.Nil(t, got.Level)

	deleted, _ = s.DeleteLevel(lvl.ID)
	assert.False(t, deleted)
}

func TestListAndSearchIncludeQuestLevel(t *testing.T) {
	s := NewProgressStore()
	lvl := s.CreateLevel(model.CreateLevelDto{Name: "Hard", Order: 1})
	tr, _ := s.CreateTraining(model.CreateTrainingDto{Title: "Go"})
	_, ok := s.CreateQuest(model.CreateQuestDto{Title: "q", TrainingID: tr.ID, LevelID: lvl.ID})
	require.True(t, ok)

	for name, list := range map[string][]model.Training{
		"list":   s.ListTrainings(),
		"search": s.Search("go"),
	} {
		require.Len(t, list, 1, name)
		require.Len(t, list[0].Quests, 1, name)
		require.NotNil(t, list[0].Quests[0].Level, name)
		assert.Equal(t, "Hard", list[0].Quests[0].Level.Name, name)
	}
}

func TestBlankTitlesAreRejected(t *testing.T) {
	s := NewProgressStore()

	_, ok := s.CreateTraining(model.CreateTrainingDto{Title: "  "})
	assert.False(t, ok)
	assert.Empty(t, s.ListTrainings())

	tr, q, objectives := seedTraining(t, s, 10)

	_, ok = s.CreateQuest(model.CreateQuestDto{Title: "", TrainingID: tr.ID})
	assert.False(t, ok)
	_, ok = s.CreateObjective(model.CreateObjectiveDto{Title: "\t", Points: 5, QuestID: q.ID})
	assert.False(t, ok)

	assert.False(t, s.UpdateTraining(tr.ID, model.UpdateTrainingDto{Title: ptr(" ")}))
	assert.False(t, s.UpdateQuest(tr.ID, q.ID, model.UpdateQuestDto{Title: ptr("")}))
	assert.False(t, s.UpdateObjective(tr.ID, q.ID, objectives[0].ID, model.UpdateObjectiveDto{Title: ptr("")}))

	got := mustGet(t, s, tr.ID)
	assert.Equal(t, "Go Fundamentals", got.Title)
	assert.Len(t, got.Quests, 1)
	assert.Len(t, got.Quests[0].Objectives, 1)
}

func TestGenerationAdvancesOnEveryChange(t *testing.T) {
	s := NewProgressStore()
	start := s.Generation()

	tr, q, objectives := seedTraining(t, s, 10)
	afterSeed := s.Generation()
	assert.Greater(t, afterSeed, start)

	stats, gen := s.StatsWithGeneration()
	assert.Equal(t, afterSeed, gen)
	assert.Equal(t, 10, stats.TotalPoints)

	require.True(t, s.CompleteObjective(tr.ID, q.ID, objectives[0].ID))
	assert.Greater(t, s.Generation(), afterSeed)

	// 失败的操作不改变版本
	before := s.Generation()
	assert.False(t, s.DeleteTraining("missing"))
	assert.Equal(t, before, s.Generation())
}

func TestVideoInUse(t *testing.T) {
	s := NewProgressStore()
	_, q, _ := seedTraining(t, s)
	video := &model.Video{Type: model.VideoServer, URL: "/uploads/videos/a.mp4"}

	assert.False(t, s.VideoInUse(video.URL))
	_, ok := s.CreateObjective(model.CreateObjectiveDto{Title: "watch", Points: 1, QuestID: q.ID, Video: video})
	require.True(t, ok)
	assert.True(t, s.VideoInUse(video.URL))
}
