package accident

import (
	"time"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/deadline"
)

// Deadline は today 時点の DIAT 期限区分を返します。
// 期限日は事故発生日の翌日です。提出済みの場合は期限を持ちません。
func Deadline(a *Accident, today time.Time) deadline.Classification {
	if a == nil || a.DiatStatus == DiatStatusSent {
		return deadline.Classification{Tier: deadline.DIATWindow.None.Tier, Urgency: deadline.DIATWindow.None.Urgency}
	}
	due := deadline.Truncate(a.EventAt).AddDate(0, 0, 1)
	return deadline.Classify(today, due, deadline.DIATWindow)
}

// Evaluate は today 時点で記録されるべき DIAT 状況を返します。
// sent と overdue は一方向で、いずれも pending へは戻りません。
func Evaluate(a *Accident, today time.Time) DiatStatus {
	switch a.DiatStatus {
	case DiatStatusSent, DiatStatusOverdue:
		return a.DiatStatus
	}
	if Deadline(a, today).Tier == deadline.TierExpired {
		return DiatStatusOverdue
	}
	return DiatStatusPending
}

// OverdueCutoff は today 時点で期限切れとなる事故発生時刻の境界です。
// 境界より前に発生した pending の記録は Evaluate で overdue になります。
func OverdueCutoff(today time.Time) time.Time {
	return deadline.Truncate(today).AddDate(0, 0, -1)
}

// ElapsedDays は事故発生日から today までの経過日数です。
func ElapsedDays(a *Accident, today time.Time) int {
	return deadline.DaysBetween(a.EventAt, today)
}

func isValidStatus(s DiatStatus) bool {
	switch s {
	case DiatStatusPending, DiatStatusSent, DiatStatusOverdue:
		return true
	default:
		return false
	}
}
