package model

// Training 训练课程，最顶层实体，包含多个任务（Quest）
// swagger:model Training
type Training struct {
	UUIDBase
	Title        string  `gorm:"size:255;not null" json:"title"`
	Description  string  `gorm:"type:text" json:"description"` // 支持 HTML
	Quests       []Quest `gorm:"foreignKey:TrainingID" json:"quests"`
	TotalPoints  int     `gorm:"default:0" json:"totalPoints"`
	EarnedPoints int     `gorm:"default:0" json:"earnedPoints"`
	IsCompleted  bool    `gorm:"default:false" json:"isCompleted"`
	CreatedBy    string  `gorm:"size:100" json:"createdBy,omitempty"`
	Position     int     `gorm:"index;default:0" json:"-"`
}

func (Training) TableName() string {
	return "trainings"
}

// Clone 深拷贝，保证调用方拿到的快照与存储互不影响
func (t *Training) Clone() *Training {
	if t == nil {
		return nil
	}
	c := *t
	c.Quests = make([]Quest, len(t.Quests))
	for i := range t.Quests {
		c.Quests[i] = *t.Quests[i].Clone()
	}
	return &c
}

// FindQuest 返回指向训练内任务的指针，不存在时返回 nil
func (t *Training) FindQuest(questID string) *Quest {
	for i := range t.Quests {
		if t.Quests[i].ID == questID {
			return &t.Quests[i]
		}
	}
	return nil
}

// CreateTrainingDto 创建训练请求
// swagger:model CreateTrainingDto
type CreateTrainingDto struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	CreatedBy   string `json:"-"`
}

// UpdateTrainingDto 更新训练请求，派生字段（积分、完成状态）不可由调用方写入
// swagger:model UpdateTrainingDto
type UpdateTrainingDto struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
}

// TrainingStats 所有训练的汇总统计
// swagger:model TrainingStats
type TrainingStats struct {
	TotalTrainings     int `json:"totalTrainings"`
	CompletedTrainings int `json:"completedTrainings"`
	TotalPoints        int `json:"totalPoints"`
	EarnedPoints       int `json:"earnedPoints"`
}

// TrainingProgressView 单个训练的进度视图
// swagger:model TrainingProgressView
type TrainingProgressView struct {
	TrainingID      string `json:"trainingId"`
	TotalPoints     int    `json:"totalPoints"`
	EarnedPoints    int    `json:"earnedPoints"`
	Progress        int    `json:"progress"` // 百分比 0-100
	IsCompleted     bool   `json:"isCompleted"`
	QuestCount      int    `json:"questCount"`
	CompletedQuests int    `json:"completedQuests"`
}
