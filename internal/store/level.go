package store

import (
	"sort"

	"quest_resume_backend/internal/model"
)

// LoadLevels 用持久化的等级替换当前等级
func (s *ProgressStore) LoadLevels(levels []model.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.levels = make([]*model.Level, 0, len(levels))
	for i := range levels {
		l := levels[i]
		s.levels = append(s.levels, &l)
	}
	s.sortLevels()
}

// SeedDefaultLevels 等级为空时写入预置等级，返回新建的等级
func (s *ProgressStore) SeedDefaultLevels() []model.Level {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.levels) > 0 {
		return nil
	}
	created := make([]model.Level, 0, len(model.DefaultLevels))
	for _, dto := range model.DefaultLevels {
		created = append(created, *s.createLevel(dto))
	}
	return created
}

// ListLevels 按 order 升序返回
func (s *ProgressStore) ListLevels() []model.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.Level, 0, len(s.levels))
	for _, l := range s.levels {
		list = append(list, *l)
	}
	return list
}

func (s *ProgressStore) GetLevel(id string) (*model.Level, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := s.findLevel(id)
	if l == nil {
		return nil, false
	}
	c := *l
	return &c, true
}

func (s *ProgressStore) CreateLevel(dto model.CreateLevelDto) *model.Level {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.createLevel(dto)
	c := *l
	return &c
}

func (s *ProgressStore) UpdateLevel(id string, dto model.UpdateLevelDto) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.findLevel(id)
	if l == nil {
		return false
	}
	if dto.Name != nil {
		l.Name = *dto.Name
	}
	if dto.Description != nil {
		l.Description = *dto.Description
	}
	if dto.Color != nil {
		l.Color = *dto.Color
	}
	if dto.Order != nil {
		l.Order = *dto.Order
	}
	l.UpdatedAt = s.now()
	s.sortLevels()
	return true
}

// DeleteLevel 删除等级，并解除引用它的任务；返回受影响的训练 ID
func (s *ProgressStore) DeleteLevel(id string) (bool, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, l := range s.levels {
		if l.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	s.levels = append(s.levels[:idx], s.levels[idx+1:]...)

	var affected []string
	now := s.now()
	for _, t := range s.trainings {
		touched := false
		for i := range t.Quests {
			if t.Quests[i].LevelID == id {
				t.Quests[i].LevelID = ""
				t.Quests[i].UpdatedAt = now
				touched = true
			}
		}
		if touched {
			t.UpdatedAt = now
			affected = append(affected, t.ID)
		}
	}
	if len(affected) > 0 {
		s.gen++
	}
	return true, affected
}

func (s *ProgressStore) createLevel(dto model.CreateLevelDto) *model.Level {
	now := s.now()
	l := &model.Level{
		UUIDBase: model.UUIDBase{
			ID:        model.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        dto.Name,
		Description: dto.Description,
		Color:       dto.Color,
		Order:       dto.Order,
	}
	s.levels = append(s.levels, l)
	s.sortLevels()
	return l
}

func (s *ProgressStore) findLevel(id string) *model.Level {
	for _, l := range s.levels {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (s *ProgressStore) sortLevels() {
	sort.SliceStable(s.levels, func(i, j int) bool {
		return s.levels[i].Order < s.levels[j].Order
	})
}
