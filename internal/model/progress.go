package model

import "math"

// QuestTotalPoints 任务总积分 = 所有目标积分之和
func QuestTotalPoints(q *Quest) int {
	total := 0
	for _, o := range q.Objectives {
		total += o.Points
	}
	return total
}

// QuestEarnedPoints 已获得积分 = 已完成目标积分之和
func QuestEarnedPoints(q *Quest) int {
	earned := 0
	for _, o := range q.Objectives {
		if o.IsCompleted {
			earned += o.Points
		}
	}
	return earned
}

// IsQuestCompleted 至少有一个目标且全部完成
func IsQuestCompleted(q *Quest) bool {
	if len(q.Objectives) == 0 {
		return false
	}
	for _, o := range q.Objectives {
		if !o.IsCompleted {
			return false
		}
	}
	return true
}

func TrainingTotalPoints(t *Training) int {
	total := 0
	for _, q := range t.Quests {
		total += q.TotalPoints
	}
	return total
}

func TrainingEarnedPoints(t *Training) int {
	earned := 0
	for _, q := range t.Quests {
		earned += q.EarnedPoints
	}
	return earned
}

func IsTrainingCompleted(t *Training) bool {
	if len(t.Quests) == 0 {
		return false
	}
	for _, q := range t.Quests {
		if !q.IsCompleted {
			return false
		}
	}
	return true
}

// TrainingProgress 完成百分比（四舍五入），总积分为 0 时返回 0
func TrainingProgress(t *Training) int {
	if t.TotalPoints == 0 {
		return 0
	}
	return int(math.Round(float64(t.EarnedPoints) / float64(t.TotalPoints) * 100))
}

// RecalculateQuest 根据目标重新计算任务的积分和完成状态
func RecalculateQuest(q *Quest) {
	q.TotalPoints = QuestTotalPoints(q)
	q.EarnedPoints = QuestEarnedPoints(q)
	q.IsCompleted = IsQuestCompleted(q)
}

// RecalculateTrainingTotals 只根据任务的现有汇总值重新计算训练
func RecalculateTrainingTotals(t *Training) {
	t.TotalPoints = TrainingTotalPoints(t)
	t.EarnedPoints = TrainingEarnedPoints(t)
	t.IsCompleted = IsTrainingCompleted(t)
}

// Recalculate 自底向上重算整棵树：目标 -> 任务 -> 训练
func Recalculate(t *Training) {
	for i := range t.Quests {
		RecalculateQuest(&t.Quests[i])
	}
	RecalculateTrainingTotals(t)
}

// BuildProgressView 生成训练进度视图
func BuildProgressView(t *Training) TrainingProgressView {
	view := TrainingProgressView{
		TrainingID:   t.ID,
		TotalPoints:  t.TotalPoints,
		EarnedPoints: t.EarnedPoints,
		Progress:     TrainingProgress(t),
		IsCompleted:  t.IsCompleted,
		QuestCount:   len(t.Quests),
	}
	for _, q := range t.Quests {
		if q.IsCompleted {
			view.CompletedQuests++
		}
	}
	return view
}
