package loan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/contract"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/discount"
)

// MaxInstallments は分割回数の上限です。
const MaxInstallments = 48

var hundred = decimal.NewFromInt(100)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// ActiveContractLister は報酬額の参照先となる有効な契約を取得します。
type ActiveContractLister interface {
	ListActiveByEmployee(ctx context.Context, companyID, employeeID string) ([]*contract.Contract, error)
}

// Service は貸付の実行を扱います。
type Service struct {
	repo      Repository
	contracts ActiveContractLister
	clock     Clock
	tx        TransactionManager
	logger    *slog.Logger
}

// UseCase は貸付ユースケースの公開インターフェースです。
type UseCase interface {
	OriginateLoan(ctx context.Context, in OriginateLoanInput) (*Loan, error)
	GetLoan(ctx context.Context, in GetLoanInput) (*Loan, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, contracts ActiveContractLister, clock Clock, tx TransactionManager, logger *slog.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, contracts: contracts, clock: clock, tx: tx, logger: logger}
}

// OriginateLoanInput は貸付実行時の入力です。
// MonthlySalary が 0 の場合は有効な契約の基本給を使います。
// DaysWorked を省略した場合は 30 日から休職日数を引いた日数とします。
// FirstDueYear / FirstDueMonth を省略した場合は実行月の翌月から返済を開始します。
type OriginateLoanInput struct {
	CompanyID           string
	EmployeeID          string
	Amount              decimal.Decimal
	InterestRate        decimal.Decimal
	Installments        int
	MonthlySalary       decimal.Decimal
	DaysWorked          *int
	DaysOnLeave         int
	FirstDueYear        int
	FirstDueMonth       int
	AuthorizationSigned bool
	AuthorizationDate   *time.Time
}

// GetLoanInput は貸付取得時の入力です。
type GetLoanInput struct {
	CompanyID string
	ID        string
}

// OriginateLoan は法定控除上限を確認したうえで貸付と返済予定を登録します。
// 分割額が上限を超え、承認がない場合は *discount.LegalLimitExceededError を返します。
func (s *Service) OriginateLoan(ctx context.Context, in OriginateLoanInput) (*Loan, error) {
	companyID, err := normalizeRequired(in.CompanyID, ErrInvalidCompanyID)
	if err != nil {
		return nil, err
	}
	employeeID, err := normalizeRequired(in.EmployeeID, ErrInvalidEmployeeID)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if in.InterestRate.IsNegative() {
		return nil, ErrInvalidInterestRate
	}
	if in.Installments < 1 || in.Installments > MaxInstallments {
		return nil, ErrInvalidInstallments
	}
	if in.AuthorizationDate != nil && !in.AuthorizationSigned {
		return nil, ErrInvalidAuthorization
	}

	now := s.clock.Now()
	firstYear, firstMonth, err := firstDue(in.FirstDueYear, in.FirstDueMonth, now)
	if err != nil {
		return nil, err
	}

	daysWorked := discount.ReferencePeriodDays - in.DaysOnLeave
	if in.DaysWorked != nil {
		daysWorked = *in.DaysWorked
	}

	total, installment := Amortize(in.Amount, in.InterestRate, in.Installments)

	var created *Loan
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		salary := in.MonthlySalary
		if salary.IsZero() {
			resolved, err := s.salaryFromContract(txCtx, companyID, employeeID)
			if err != nil {
				return err
			}
			salary = resolved
		}

		verdict, err := discount.ComputeCeiling(discount.CeilingInput{
			MonthlySalary:     salary,
			DaysWorked:        daysWorked,
			DaysOnLeave:       in.DaysOnLeave,
			ProposedDeduction: installment,
		})
		if err != nil {
			return err
		}
		if err := verdict.RequireAuthorization(in.AuthorizationSigned); err != nil {
			return err
		}

		var authorizedAt *time.Time
		if in.AuthorizationSigned {
			stamp := now
			if in.AuthorizationDate != nil {
				stamp = *in.AuthorizationDate
			}
			authorizedAt = &stamp
		}

		loanID := uuid.NewString()
		result, err := s.repo.Create(txCtx, &Loan{
			ID:                  loanID,
			CompanyID:           companyID,
			EmployeeID:          employeeID,
			Amount:              in.Amount,
			InterestRate:        in.InterestRate,
			TotalAmount:         total,
			Installments:        in.Installments,
			InstallmentAmount:   installment,
			MonthlySalary:       salary,
			DaysWorked:          daysWorked,
			DaysOnLeave:         in.DaysOnLeave,
			LegalCeiling:        verdict.Ceiling,
			CeilingRatio:        verdict.Ratio,
			ExceedsLegalLimit:   verdict.ExceedsLimit,
			AuthorizationSigned: in.AuthorizationSigned,
			AuthorizationDate:   authorizedAt,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
		if err != nil {
			return err
		}

		schedule := Schedule(loanID, in.Installments, installment, total, firstYear, firstMonth)
		for i := range schedule {
			schedule[i].ID = uuid.NewString()
		}
		if err := s.repo.CreateInstallments(txCtx, schedule); err != nil {
			return fmt.Errorf("create installments: %w", err)
		}

		result.Schedule = schedule
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "loan originated",
		slog.String("company_id", companyID),
		slog.String("loan_id", created.ID),
		slog.String("employee_id", employeeID),
		slog.String("installment_amount", created.InstallmentAmount.String()),
		slog.Bool("exceeds_legal_limit", created.ExceedsLegalLimit),
	)
	return created, nil
}

// GetLoan は貸付を返済予定とともに取得します。
func (s *Service) GetLoan(ctx context.Context, in GetLoanInput) (*Loan, error) {
	companyID, err := normalizeRequired(in.CompanyID, ErrInvalidCompanyID)
	if err != nil {
		return nil, err
	}
	id, err := normalizeRequired(in.ID, ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var result *Loan
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, companyID, id)
		if err != nil {
			return err
		}
		schedule, err := s.repo.ListInstallments(txCtx, found.ID)
		if err != nil {
			return err
		}
		found.Schedule = schedule
		result = found
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Amortize は利息込みの総額と、1 回あたりの返済額 (ペソ未満切り上げ) を返します。
func Amortize(amount, ratePercent decimal.Decimal, installments int) (total, installment decimal.Decimal) {
	total = amount.Mul(decimal.NewFromInt(1).Add(ratePercent.Div(hundred)))
	installment = total.Div(decimal.NewFromInt(int64(installments))).Ceil()
	return total, installment
}

// Schedule は firstYear/firstMonth から毎月 1 回の返済予定を組み立てます。
// 各回は amount で、最終回は total の残額です。返済予定の合計は常に total に一致します。
func Schedule(loanID string, installments int, amount, total decimal.Decimal, firstYear, firstMonth int) []Installment {
	out := make([]Installment, 0, installments)
	remaining := total
	year, month := firstYear, firstMonth
	for i := 1; i <= installments; i++ {
		expected := decimal.Min(amount, remaining)
		if i == installments {
			expected = remaining
		}
		remaining = remaining.Sub(expected)

		out = append(out, Installment{
			LoanID:         loanID,
			Sequence:       i,
			DueYear:        year,
			DueMonth:       month,
			AmountExpected: expected,
			AmountApplied:  decimal.Zero,
			AmountDeferred: decimal.Zero,
			Status:         InstallmentStatusPending,
		})
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return out
}

func (s *Service) salaryFromContract(ctx context.Context, companyID, employeeID string) (decimal.Decimal, error) {
	if s.contracts == nil {
		return decimal.Zero, ErrNoActiveContract
	}
	active, err := s.contracts.ListActiveByEmployee(ctx, companyID, employeeID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(active) != 1 {
		return decimal.Zero, ErrNoActiveContract
	}
	return active[0].BaseSalary, nil
}

func firstDue(year, month int, now time.Time) (int, int, error) {
	if year == 0 && month == 0 {
		next := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return next.Year(), int(next.Month()), nil
	}
	if year < 1900 || month < 1 || month > 12 {
		return 0, 0, ErrInvalidFirstDue
	}
	return year, month, nil
}

func normalizeRequired(raw string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", sentinel
	}
	return trimmed, nil
}
