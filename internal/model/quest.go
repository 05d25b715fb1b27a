package model

// Quest 训练中的一组任务，包含多个目标（Objective）
// swagger:model Quest
type Quest struct {
	UUIDBase
	TrainingID   string      `gorm:"index;type:varchar(36);not null" json:"trainingId"`
	LevelID      string      `gorm:"index;type:varchar(36)" json:"levelId,omitempty"`
	Level        *Level      `gorm:"-" json:"level,omitempty"`
	Title        string      `gorm:"size:255;not null" json:"title"`
	Description  string      `gorm:"type:text" json:"description"`
	Objectives   []Objective `gorm:"foreignKey:QuestID" json:"objectives"`
	TotalPoints  int         `gorm:"default:0" json:"totalPoints"`
	EarnedPoints int         `gorm:"default:0" json:"earnedPoints"`
	Order        int         `gorm:"column:sort_order;default:0" json:"order"`
	IsCompleted  bool        `gorm:"default:false" json:"isCompleted"`
	Position     int         `gorm:"default:0" json:"-"`
}

func (Quest) TableName() string {
	return "quests"
}

func (q *Quest) Clone() *Quest {
	c := *q
	if q.Level != nil {
		l := *q.Level
		c.Level = &l
	}
	c.Objectives = make([]Objective, len(q.Objectives))
	for i := range q.Objectives {
		c.Objectives[i] = *q.Objectives[i].Clone()
	}
	return &c
}

func (q *Quest) FindObjective(objectiveID string) *Objective {
	for i := range q.Objectives {
		if q.Objectives[i].ID == objectiveID {
			return &q.Objectives[i]
		}
	}
	return nil
}

// CreateQuestDto 创建任务请求
// swagger:model CreateQuestDto
type CreateQuestDto struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	TrainingID  string `json:"trainingId"`
	LevelID     string `json:"levelId"`
}

// UpdateQuestDto 更新任务请求
// swagger:model UpdateQuestDto
type UpdateQuestDto struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
	LevelID     *string `json:"levelId"`
}
