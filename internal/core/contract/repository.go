package contract

import (
	"context"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/employee"
)

// Repository は契約永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, contract *Contract) (*Contract, error)
	FindByID(ctx context.Context, companyID, id string) (*Contract, error)
	ListActiveByEmployee(ctx context.Context, companyID, employeeID string) ([]*Contract, error)
	// UpdateStatus は保存済みの状態が expected かつ版数が contract.Version と一致する場合のみ更新します。
	// 一致しない場合は ErrConcurrentModification を返します。
	UpdateStatus(ctx context.Context, contract *Contract, expected Status) (*Contract, error)
}

// SettlementRepository は清算書永続化の抽象です。
type SettlementRepository interface {
	// NextSettlementNumber は会社ごとの連番を排他的に払い出します。欠番は許容されますが重複はしません。
	NextSettlementNumber(ctx context.Context, companyID string) (int64, error)
	Create(ctx context.Context, settlement *Settlement) (*Settlement, error)
	FindByContract(ctx context.Context, companyID, contractID string) (*Settlement, error)
}

// EmployeeStatusUpdater は従業員の在籍状態を変更する協調者です。
// 契約の状態遷移と同じトランザクションで呼び出されます。
type EmployeeStatusUpdater interface {
	SetStatus(ctx context.Context, companyID, employeeID string, status employee.Status) error
}
