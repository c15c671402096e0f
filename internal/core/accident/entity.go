package accident

import "time"

// DiatStatus は労災申告 (DIAT) の提出状況です。
type DiatStatus string

const (
	DiatStatusPending DiatStatus = "pending"
	DiatStatusSent    DiatStatus = "sent"
	DiatStatusOverdue DiatStatus = "overdue"
)

// Accident は労働災害の記録です。
// DiatStatus は経過日数から導出される値で、直接設定できるのは提出済み (sent) のみです。
type Accident struct {
	ID          string
	CompanyID   string
	EmployeeID  string
	EventAt     time.Time
	Description string
	Location    string
	DiatStatus  DiatStatus
	DiatNumber  *string
	DiatSentAt  *time.Time
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
