package discount

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ReferencePeriodDays は按分計算に用いる 1 か月の日数です。暦月の日数ではなく 30 日固定とします。
const ReferencePeriodDays = 30

// LegalRate は定期控除の法定上限率 (報酬の 15%) です。
var LegalRate = decimal.RequireFromString("0.15")

const ratioPlaces = 4

var (
	// ErrInvalidAmount は金額が負の場合に返却されます。
	ErrInvalidAmount = errors.New("discount: invalid amount")
	// ErrInvalidDays は勤務日数・休職日数が不正な場合に返却されます。
	ErrInvalidDays = errors.New("discount: invalid days")
	// ErrLegalLimitExceeded は控除額が法定上限を超え、承認がない場合に返却されます。
	ErrLegalLimitExceeded = errors.New("discount: legal limit exceeded")
)

// CeilingInput は上限計算の入力です。
type CeilingInput struct {
	MonthlySalary     decimal.Decimal
	DaysWorked        int
	DaysOnLeave       int
	ProposedDeduction decimal.Decimal
}

// Verdict は上限計算の結果です。
// Unbounded は上限額が 0 で比率が定義できない場合に true になります。
type Verdict struct {
	EffectiveSalary decimal.Decimal
	Ceiling         decimal.Decimal
	Proposed        decimal.Decimal
	Ratio           decimal.Decimal
	ExceedsLimit    bool
	Unbounded       bool
}

// LegalLimitExceededError は承認なしで上限を超えた控除を表します。
type LegalLimitExceededError struct {
	Ceiling  decimal.Decimal
	Proposed decimal.Decimal
	Ratio    decimal.Decimal
}

func (e *LegalLimitExceededError) Error() string {
	if e.Ceiling.IsZero() {
		return fmt.Sprintf("discount: legal limit exceeded: deduction %s against a zero ceiling", e.Proposed.String())
	}
	return fmt.Sprintf("discount: legal limit exceeded: deduction %s exceeds ceiling %s (ratio %s)",
		e.Proposed.String(), e.Ceiling.String(), e.Ratio.StringFixed(ratioPlaces))
}

func (e *LegalLimitExceededError) Unwrap() error {
	return ErrLegalLimitExceeded
}

// ComputeCeiling は勤務日数で按分した報酬に法定上限率を掛け、控除額と比較します。
func ComputeCeiling(in CeilingInput) (Verdict, error) {
	if in.MonthlySalary.IsNegative() {
		return Verdict{}, fmt.Errorf("monthly salary: %w", ErrInvalidAmount)
	}
	if in.ProposedDeduction.IsNegative() {
		return Verdict{}, fmt.Errorf("proposed deduction: %w", ErrInvalidAmount)
	}
	if in.DaysWorked < 0 || in.DaysOnLeave < 0 {
		return Verdict{}, fmt.Errorf("days must not be negative: %w", ErrInvalidDays)
	}
	if in.DaysWorked+in.DaysOnLeave > ReferencePeriodDays {
		return Verdict{}, fmt.Errorf("days worked plus leave exceed %d: %w", ReferencePeriodDays, ErrInvalidDays)
	}

	effective := in.MonthlySalary.
		Mul(decimal.NewFromInt(int64(in.DaysWorked))).
		Div(decimal.NewFromInt(ReferencePeriodDays))
	ceiling := effective.Mul(LegalRate)

	verdict := Verdict{
		EffectiveSalary: effective,
		Ceiling:         ceiling,
		Proposed:        in.ProposedDeduction,
		Ratio:           decimal.Zero,
	}

	if !ceiling.IsPositive() {
		verdict.Unbounded = true
		verdict.ExceedsLimit = in.ProposedDeduction.IsPositive()
		return verdict, nil
	}

	verdict.Ratio = in.ProposedDeduction.DivRound(ceiling, ratioPlaces)
	verdict.ExceedsLimit = in.ProposedDeduction.GreaterThan(ceiling)
	return verdict, nil
}

// RequireAuthorization は上限超過時に承認の有無を確認します。
// 上限内または承認済みであれば nil を返します。
func (v Verdict) RequireAuthorization(authorized bool) error {
	if !v.ExceedsLimit || authorized {
		return nil
	}
	return &LegalLimitExceededError{Ceiling: v.Ceiling, Proposed: v.Proposed, Ratio: v.Ratio}
}
