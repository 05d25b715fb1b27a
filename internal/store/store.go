// Package store 是训练进度的内存存储。
//
// 训练 -> 任务 -> 目标 三层树全部保存在内存中，任何叶子节点的变更都会在同一把写锁内
// 自底向上重算任务与训练的积分和完成状态，因此读者永远看不到不一致的汇总值。
// 所有读取返回深拷贝。找不到实体时操作不产生任何效果并返回 false。
package store

import (
	"strings"
	"sync"
	"time"

	"quest_resume_backend/internal/model"
)

// ProgressStore 内存中的训练集合
type ProgressStore struct {
	mu        sync.RWMutex
	trainings []*model.Training
	levels    []*model.Level
	seq       int
	now       func() time.Time

	// 每次成功修改训练树时递增，供统计缓存判断新旧
	gen uint64
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{now: time.Now}
}

// Load 用持久化数据替换当前内容，并重新计算所有汇总值
func (s *ProgressStore) Load(trainings []model.Training) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trainings = make([]*model.Training, 0, len(trainings))
	s.seq = 0
	for i := range trainings {
		t := trainings[i].Clone()
		model.Recalculate(t)
		if t.Position > s.seq {
			s.seq = t.Position
		}
		s.trainings = append(s.trainings, t)
	}
	for _, t := range s.trainings {
		if t.Position == 0 {
			s.seq++
			t.Position = s.seq
		}
	}
	s.gen++
}

// ==================== TRAINING ====================

func (s *ProgressStore) ListTrainings() []model.Training {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.Training, 0, len(s.trainings))
	for _, t := range s.trainings {
		list = append(list, *s.snapshot(t))
	}
	return list
}

func (s *ProgressStore) GetTraining(id string) (*model.Training, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.findTraining(id)
	if t == nil {
		return nil, false
	}
	return s.snapshot(t), true
}

// CreateTraining 标题不能为空
func (s *ProgressStore) CreateTraining(dto model.CreateTrainingDto) (*model.Training, bool) {
	if blank(dto.Title) {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.seq++
	t := &model.Training{
		UUIDBase: model.UUIDBase{
			ID:        model.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:       dto.Title,
		Description: dto.Description,
		Quests:      []model.Quest{},
		CreatedBy:   dto.CreatedBy,
		Position:    s.seq,
	}
	s.trainings = append(s.trainings, t)
	s.gen++
	return t.Clone(), true
}

func (s *ProgressStore) UpdateTraining(id string, dto model.UpdateTrainingDto) bool {
	if dto.Title != nil && blank(*dto.Title) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findTraining(id)
	if t == nil {
		return false
	}
	if dto.Title != nil {
		t.Title = *dto.Title
	}
	if dto.Description != nil {
		t.Description = *dto.Description
	}
	t.UpdatedAt = s.now()
	s.gen++
	return true
}

// DeleteTraining 删除训练及其所有任务和目标
func (s *ProgressStore) DeleteTraining(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.trainings {
		if t.ID == id {
			s.trainings = append(s.trainings[:i], s.trainings[i+1:]...)
			s.gen++
			return true
		}
	}
	return false
}

// ==================== QUEST ====================

func (s *ProgressStore) CreateQuest(dto model.CreateQuestDto) (*model.Quest, bool) {
	if blank(dto.Title) {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findTraining(dto.TrainingID)
	if t == nil {
		return nil, false
	}
	if dto.LevelID != "" && s.findLevel(dto.LevelID) == nil {
		return nil, false
	}

	now := s.now()
	q := model.Quest{
		UUIDBase: model.UUIDBase{
			ID:        model.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		TrainingID:  t.ID,
		LevelID:     dto.LevelID,
		Title:       dto.Title,
		Description: dto.Description,
		Objectives:  []model.Objective{},
		Order:       dto.Order,
	}
	t.Quests = append(t.Quests, q)
	t.UpdatedAt = now
	// 新任务没有目标，训练不可能再是已完成状态
	model.RecalculateTrainingTotals(t)
	s.gen++

	return s.withLevel(t.Quests[len(t.Quests)-1].Clone()), true
}

func (s *ProgressStore) GetQuest(trainingID, questID string) (*model.Quest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.findTraining(trainingID)
	if t == nil {
		return nil, false
	}
	q := t.FindQuest(questID)
	if q == nil {
		return nil, false
	}
	return s.withLevel(q.Clone()), true
}

func (s *ProgressStore) UpdateQuest(trainingID, questID string, dto model.UpdateQuestDto) bool {
	if dto.Title != nil && blank(*dto.Title) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findTraining(trainingID)
	if t == nil {
		return false
	}
	q := t.FindQuest(questID)
	if q == nil {
		return false
	}
	if dto.LevelID != nil && *dto.LevelID != "" && s.findLevel(*dto.LevelID) == nil {
		return false
	}

	if dto.Title != nil {
		q.Title = *dto.Title
	}
	if dto.Description != nil {
		q.Description = *dto.Description
	}
	if dto.Order != nil {
		q.Order = *dto.Order
	}
	if dto.LevelID != nil {
		q.LevelID = *dto.LevelID
	}
	now := s.now()
	q.UpdatedAt = now
	t.UpdatedAt = now
	s.gen++
	return true
}

func (s *ProgressStore) DeleteQuest(trainingID, questID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findTraining(trainingID)
	if t == nil {
		return false
	}
	for i := range t.Quests {
		if t.Quests[i].ID == questID {
			t.Quests = append(t.Quests[:i], t.Quests[i+1:]...)
			t.UpdatedAt = s.now()
			model.RecalculateTrainingTotals(t)
			s.gen++
			return true
		}
	}
	return false
}

// ==================== OBJECTIVE ====================

// CreateObjective 通过任务 ID 找到所属训练，积分必须 >= 1
func (s *ProgressStore) CreateObjective(dto model.CreateObjectiveDto) (*model.Objective, bool) {
	if dto.Points < 1 || blank(dto.Title) {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, q := s.findQuestAnywhere(dto.QuestID)
	if q == nil {
		return nil, false
	}

	now := s.now()
	o := model.Objective{
		UUIDBase: model.UUIDBase{
			ID:        model.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		QuestID:     q.ID,
		Title:       dto.Title,
		Description: dto.Description,
		Points:      dto.Points,
		Order:       dto.Order,
	}
	if dto.Video != nil {
		v := *dto.Video
		o.Video = &v
	}
	q.Objectives = append(q.Objectives, o)
	q.UpdatedAt = now
	t.UpdatedAt = now
	s.recalculate(t, q)

	return q.Objectives[len(q.Objectives)-1].Clone(), true
}

func (s *ProgressStore) GetObjective(trainingID, questID, objectiveID string) (*model.Objective, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, _, o := s.findObjective(trainingID, questID, objectiveID)
	if o == nil {
		return nil, false
	}
	return o.Clone(), true
}

func (s *ProgressStore) UpdateObjective(trainingID, questID, objectiveID string, dto model.UpdateObjectiveDto) bool {
	if dto.Points != nil && *dto.Points < 1 {
		return false
	}
	if dto.Title != nil && blank(*dto.Title) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, q, o := s.findObjective(trainingID, questID, objectiveID)
	if o == nil {
		return false
	}

	if dto.Title != nil {
		o.Title = *dto.Title
	}
	if dto.Description != nil {
		o.Description = *dto.Description
	}
	if dto.RemoveVideo {
		o.Video = nil
	} else if dto.Video != nil {
		v := *dto.Video
		o.Video = &v
	}
	if dto.Points != nil {
		o.Points = *dto.Points
	}
	if dto.Order != nil {
		o.Order = *dto.Order
	}
	if dto.IsCompleted != nil {
		o.IsCompleted = *dto.IsCompleted
	}

	now := s.now()
	o.UpdatedAt = now
	q.UpdatedAt = now
	t.UpdatedAt = now
	s.recalculate(t, q)
	return true
}

func (s *ProgressStore) DeleteObjective(trainingID, questID, objectiveID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findTraining(trainingID)
	if t == nil {
		return false
	}
	q := t.FindQuest(questID)
	if q == nil {
		return false
	}
	for i := range q.Objectives {
		if q.Objectives[i].ID == objectiveID {
			q.Objectives = append(q.Objectives[:i], q.Objectives[i+1:]...)
			now := s.now()
			q.UpdatedAt = now
			t.UpdatedAt = now
			s.recalculate(t, q)
			return true
		}
	}
	return false
}

// CompleteObjective 标记目标为已完成
func (s *ProgressStore) CompleteObjective(trainingID, questID, objectiveID string) bool {
	completed := true
	return s.UpdateObjective(trainingID, questID, objectiveID, model.UpdateObjectiveDto{IsCompleted: &completed})
}

// ==================== STATS ====================

func (s *ProgressStore) Stats() model.TrainingStats {
	stats, _ := s.StatsWithGeneration()
	return stats
}

// StatsWithGeneration 返回统计值以及计算时的版本号，两者在同一把读锁内取得
func (s *ProgressStore) StatsWithGeneration() (model.TrainingStats, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats model.TrainingStats
	stats.TotalTrainings = len(s.trainings)
	for _, t := range s.trainings {
		if t.IsCompleted {
			stats.CompletedTrainings++
		}
		stats.TotalPoints += t.TotalPoints
		stats.EarnedPoints += t.EarnedPoints
	}
	return stats, s.gen
}

// Generation 当前训练树的版本号
func (s *ProgressStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Search 按标题模糊查找训练（不区分大小写）
func (s *ProgressStore) Search(keyword string) []model.Training {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return s.ListTrainings()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.Training, 0)
	for _, t := range s.trainings {
		if strings.Contains(strings.ToLower(t.Title), keyword) {
			list = append(list, *s.snapshot(t))
		}
	}
	return list
}

// ==================== HELPERS ====================

// recalculate 先重算任务，再重算所属训练；调用方必须持有写锁
func (s *ProgressStore) recalculate(t *model.Training, q *model.Quest) {
	model.RecalculateQuest(q)
	model.RecalculateTrainingTotals(t)
	s.gen++
}

func (s *ProgressStore) findTraining(id string) *model.Training {
	for _, t := range s.trainings {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *ProgressStore) findQuestAnywhere(questID string) (*model.Training, *model.Quest) {
	for _, t := range s.trainings {
		if q := t.FindQuest(questID); q != nil {
			return t, q
		}
	}
	return nil, nil
}

func (s *ProgressStore) findObjective(trainingID, questID, objectiveID string) (*model.Training, *model.Quest, *model.Objective) {
	t := s.findTraining(trainingID)
	if t == nil {
		return nil, nil, nil
	}
	q := t.FindQuest(questID)
	if q == nil {
		return nil, nil, nil
	}
	o := q.FindObjective(objectiveID)
	if o == nil {
		return nil, nil, nil
	}
	return t, q, o
}

// snapshot 深拷贝训练并填充各任务的等级；调用方必须持有锁
func (s *ProgressStore) snapshot(t *model.Training) *model.Training {
	c := t.Clone()
	for i := range c.Quests {
		s.withLevel(&c.Quests[i])
	}
	return c
}

// VideoInUse 是否还有目标引用该地址的视频
func (s *ProgressStore) VideoInUse(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.trainings {
		for _, q := range t.Quests {
			for _, o := range q.Objectives {
				if o.Video != nil && o.Video.URL == url {
					return true
				}
			}
		}
	}
	return false
}

func blank(title string) bool {
	return strings.TrimSpace(title) == ""
}

func (s *ProgressStore) withLevel(q *model.Quest) *model.Quest {
	if q.LevelID == "" {
		return q
	}
	if l := s.findLevel(q.LevelID); l != nil {
		c := *l
		q.Level = &c
	}
	return q
}
