package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus は分割返済の各回の状態です。
type InstallmentStatus string

const (
	InstallmentStatusPending  InstallmentStatus = "pending"
	InstallmentStatusApplied  InstallmentStatus = "applied"
	InstallmentStatusDeferred InstallmentStatus = "deferred"
)

// Loan は従業員への貸付です。
// ExceedsLegalLimit、LegalCeiling、CeilingRatio は実行時点の法定上限判定を監査用に保持します。
type Loan struct {
	ID                  string
	CompanyID           string
	EmployeeID          string
	Amount              decimal.Decimal
	InterestRate        decimal.Decimal
	TotalAmount         decimal.Decimal
	Installments        int
	InstallmentAmount   decimal.Decimal
	MonthlySalary       decimal.Decimal
	DaysWorked          int
	DaysOnLeave         int
	LegalCeiling        decimal.Decimal
	CeilingRatio        decimal.Decimal
	ExceedsLegalLimit   bool
	AuthorizationSigned bool
	AuthorizationDate   *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Schedule []Installment
}

// Installment は返済予定 1 回分です。
type Installment struct {
	ID             string
	LoanID         string
	Sequence       int
	DueYear        int
	DueMonth       int
	AmountExpected decimal.Decimal
	AmountApplied  decimal.Decimal
	AmountDeferred decimal.Decimal
	Status         InstallmentStatus
}
