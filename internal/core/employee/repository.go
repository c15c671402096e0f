package employee

import (
	"context"
	"time"
)

// Repository は従業員永続化の抽象です。
// すべての操作は会社 (テナント) ID で絞り込まれます。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	FindByID(ctx context.Context, companyID, id string) (*Employee, error)
	FindByCompanyAndRUT(ctx context.Context, companyID, rut string) (*Employee, error)
	List(ctx context.Context, filter ListEmployeesFilter) ([]*Employee, string, error)
	UpdateStatus(ctx context.Context, companyID, id string, status Status, terminatedAt *time.Time, updatedAt time.Time) error
}

// ListEmployeesFilter は一覧取得用フィルタです。
type ListEmployeesFilter struct {
	CompanyID string
	Status    *Status
	Limit     int
	Offset    int
}
