package employee

import "time"

// Status は従業員の在籍状態を表します。
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusDismissed Status = "dismissed"
)

// Employee は従業員エンティティです。
// RUT はチリの納税者番号で、"12345678-5" の形式に正規化されています。
type Employee struct {
	ID           string
	CompanyID    string
	RUT          string
	FullName     string
	Status       Status
	HiredAt      *time.Time
	TerminatedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
