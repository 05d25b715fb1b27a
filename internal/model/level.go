package model

// Level 难度等级，用于给任务分类（order 越小越简单）
// swagger:model Level
type Level struct {
	UUIDBase
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:255" json:"description,omitempty"`
	Color       string `gorm:"size:16" json:"color,omitempty"` // 十六进制颜色
	Order       int    `gorm:"column:sort_order;default:0" json:"order"`
}

func (Level) TableName() string {
	return "levels"
}

// swagger:model CreateLevelDto
type CreateLevelDto struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	Color       string `json:"color" binding:"omitempty,hexcolor"`
	Order       int    `json:"order" binding:"min=1"`
}

// swagger:model UpdateLevelDto
type UpdateLevelDto struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Color       *string `json:"color" binding:"omitempty,hexcolor"`
	Order       *int    `json:"order" binding:"omitempty,min=1"`
}

// DefaultLevels 预置难度等级
var DefaultLevels = []CreateLevelDto{
	{Name: "Beginner", Description: "Easy quests for beginners", Color: "#4CAF50", Order: 1},
	{Name: "Intermediate", Description: "Moderate difficulty quests", Color: "#FF9800", Order: 2},
	{Name: "Advanced", Description: "Challenging quests", Color: "#F44336", Order: 3},
	{Name: "Expert", Description: "Very difficult quests for experts", Color: "#9C27B0", Order: 4},
}
