package model

// Objective 训练层级中最小的可完成单元，携带固定积分
// swagger:model Objective
type Objective struct {
	UUIDBase
	QuestID     string `gorm:"index;type:varchar(36);not null" json:"questId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Video       *Video `gorm:"serializer:json;type:text" json:"video,omitempty"`
	Points      int    `gorm:"not null" json:"points"`
	Order       int    `gorm:"column:sort_order;default:0" json:"order"`
	IsCompleted bool   `gorm:"default:false" json:"isCompleted"`
	Position    int    `gorm:"default:0" json:"-"`
}

func (Objective) TableName() string {
	return "objectives"
}

func (o *Objective) Clone() *Objective {
	c := *o
	if o.Video != nil {
		v := *o.Video
		c.Video = &v
	}
	return &c
}

// CreateObjectiveDto 创建目标请求
// swagger:model CreateObjectiveDto
type CreateObjectiveDto struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	Video       *Video `json:"video"`
	Points      int    `json:"points" binding:"required,min=1"`
	Order       int    `json:"order"`
	QuestID     string `json:"questId"`
}

// UpdateObjectiveDto 更新目标请求
// swagger:model UpdateObjectiveDto
type UpdateObjectiveDto struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Video       *Video  `json:"video"`
	RemoveVideo bool    `json:"removeVideo"`
	Points      *int    `json:"points" binding:"omitempty,min=1"`
	Order       *int    `json:"order"`
	IsCompleted *bool   `json:"isCompleted"`
}
