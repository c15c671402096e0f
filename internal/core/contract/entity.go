package contract

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type は契約種別です。
type Type string

const (
	TypeIndefinite Type = "indefinite"
	TypeFixedTerm  Type = "fixed_term"
	TypeProject    Type = "project"
	TypePartTime   Type = "part_time"
)

// RequiresEndDate は終了日が必須の契約種別かを返します。
func (t Type) RequiresEndDate() bool {
	return t == TypeFixedTerm || t == TypeProject
}

// Status は契約の法的状態です。
type Status string

const (
	StatusDraft      Status = "draft"
	StatusIssued     Status = "issued"
	StatusSigned     Status = "signed"
	StatusActive     Status = "active"
	StatusTerminated Status = "terminated"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal は以降の遷移が存在しない状態かを返します。
func (s Status) IsTerminal() bool {
	return s == StatusTerminated || s == StatusCancelled
}

// Contract は労働契約エンティティです。
// Version は楽観的排他制御に用い、状態が更新されるたびに増加します。
type Contract struct {
	ID              string
	CompanyID       string
	EmployeeID      string
	Type            Type
	StartDate       time.Time
	EndDate         *time.Time
	Status          Status
	BaseSalary      decimal.Decimal
	Position        string
	IssuedAt        *time.Time
	SignedAt        *time.Time
	ActivatedAt     *time.Time
	TerminatedAt    *time.Time
	TerminationDate *time.Time
	CancelledAt     *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Settlement は契約終了時に自動生成される清算書 (pre-finiquito) です。
// SettlementNumber は会社ごとに単調増加します。
type Settlement struct {
	ID               string
	CompanyID        string
	ContractID       string
	EmployeeID       string
	SettlementNumber int64
	TerminationDate  time.Time
	CauseCode        string
	NoticeGiven      bool
	NoticeDays       int
	CreatedAt        time.Time
}
