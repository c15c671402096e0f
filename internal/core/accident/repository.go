package accident

import (
	"context"
	"time"
)

// Repository は労災記録永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, accident *Accident) (*Accident, error)
	FindByID(ctx context.Context, companyID, id string) (*Accident, error)
	List(ctx context.Context, filter ListAccidentsFilter) ([]*Accident, string, error)
	// UpdateDiat は保存済みの版数が accident.Version と一致する場合のみ DIAT 項目を更新します。
	UpdateDiat(ctx context.Context, accident *Accident) (*Accident, error)
	// EscalateOverdue は eventBefore より前に発生した pending の記録をまとめて overdue にし、更新件数を返します。
	EscalateOverdue(ctx context.Context, companyID string, eventBefore, updatedAt time.Time) (int64, error)
}

// ListAccidentsFilter は一覧取得用フィルタです。
type ListAccidentsFilter struct {
	CompanyID  string
	EmployeeID *string
	Status     *DiatStatus
	Limit      int
	Offset     int
}
