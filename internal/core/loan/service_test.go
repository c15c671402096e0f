package loan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/contract"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/discount"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeLoanRepo struct {
	loans        map[string]*Loan
	installments map[string][]Installment
	failSchedule error
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{loans: make(map[string]*Loan), installments: make(map[string][]Installment)}
}

func (f *fakeLoanRepo) Create(_ context.Context, l *Loan) (*Loan, error) {
	clone := *l
	f.loans[l.ID] = &clone
	out := clone
	return &out, nil
}

func (f *fakeLoanRepo) CreateInstallments(_ context.Context, installments []Installment) error {
	if f.failSchedule != nil {
		return f.failSchedule
	}
	for _, in := range installments {
		f.installments[in.LoanID] = append(f.installments[in.LoanID], in)
	}
	return nil
}

func (f *fakeLoanRepo) FindByID(_ context.Context, companyID, id string) (*Loan, error) {
	l, ok := f.loans[id]
	if !ok || l.CompanyID != companyID {
		return nil, ErrLoanNotFound
	}
	out := *l
	return &out, nil
}

func (f *fakeLoanRepo) ListInstallments(_ context.Context, loanID string) ([]Installment, error) {
	return append([]Installment(nil), f.installments[loanID]...), nil
}

type fakeContracts struct {
	active []*contract.Contract
}

func (f fakeContracts) ListActiveByEmployee(_ context.Context, companyID, employeeID string) ([]*contract.Contract, error) {
	var out []*contract.Contract
	for _, c := range f.active {
		if c.CompanyID == companyID && c.EmployeeID == employeeID {
			out = append(out, c)
		}
	}
	return out, nil
}

// memoryTx はエラー時に貸付と返済予定の登録を取り消します。
type memoryTx struct {
	repo *fakeLoanRepo
}

func (m memoryTx) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (m memoryTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	loans := make(map[string]*Loan, len(m.repo.loans))
	for k, v := range m.repo.loans {
		loans[k] = v
	}
	installments := make(map[string][]Installment, len(m.repo.installments))
	for k, v := range m.repo.installments {
		installments[k] = v
	}
	if err := fn(ctx); err != nil {
		m.repo.loans = loans
		m.repo.installments = installments
		return err
	}
	return nil
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestService(repo *fakeLoanRepo, contracts fakeContracts) *Service {
	clk := &stubClock{now: time.Date(2025, 11, 20, 15, 0, 0, 0, time.UTC)}
	return NewService(repo, contracts, clk, memoryTx{repo: repo}, nil)
}

func TestAmortize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		amount, rate       string
		installments       int
		total, installment string
	}{
		{amount: "1000000", rate: "2", installments: 12, total: "1020000", installment: "85000"},
		{amount: "100000", rate: "0", installments: 3, total: "100000", installment: "33334"},
		{amount: "500000", rate: "1.5", installments: 48, total: "507500", installment: "10573"},
		{amount: "90000", rate: "0", installments: 1, total: "90000", installment: "90000"},
	}
	for _, tc := range cases {
		total, installment := Amortize(d(tc.amount), d(tc.rate), tc.installments)
		assert.True(t, total.Equal(d(tc.total)), "total for %s: got %s", tc.amount, total)
		assert.True(t, installment.Equal(d(tc.installment)), "installment for %s: got %s", tc.amount, installment)
	}
}

func TestSchedule_RollsOverYear(t *testing.T) {
	t.Parallel()

	schedule := Schedule("loan-1", 4, d("25000"), d("100000"), 2025, 11)
	require.Len(t, schedule, 4)

	want := [][2]int{{2025, 11}, {2025, 12}, {2026, 1}, {2026, 2}}
	for i, s := range schedule {
		assert.Equal(t, i+1, s.Sequence)
		assert.Equal(t, want[i][0], s.DueYear)
		assert.Equal(t, want[i][1], s.DueMonth)
		assert.Equal(t, InstallmentStatusPending, s.Status)
		assert.True(t, s.AmountExpected.Equal(d("25000")))
		assert.True(t, s.AmountApplied.IsZero())
		assert.True(t, s.AmountDeferred.IsZero())
	}
}

func TestSchedule_SumsToTotal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		amount, rate string
		installments int
		last         string
	}{
		{amount: "100000", rate: "0", installments: 3, last: "33332"},
		{amount: "500000", rate: "1.5", installments: 48, last: "10569"},
		{amount: "1000000", rate: "2", installments: 12, last: "85000"},
		{amount: "1000", rate: "3.3", installments: 7, last: "145"},
		{amount: "5", rate: "0", installments: 4, last: "0"},
	}
	for _, tc := range cases {
		total, installment := Amortize(d(tc.amount), d(tc.rate), tc.installments)
		schedule := Schedule("loan-1", tc.installments, installment, total, 2025, 1)
		require.Len(t, schedule, tc.installments)

		sum := decimal.Zero
		for _, s := range schedule {
			assert.False(t, s.AmountExpected.IsNegative(), "negative installment for %s", tc.amount)
			assert.True(t, s.AmountExpected.LessThanOrEqual(installment), "installment above %s for %s", installment, tc.amount)
			sum = sum.Add(s.AmountExpected)
		}
		assert.True(t, sum.Equal(total), "schedule for %s sums to %s, want %s", tc.amount, sum, total)
		assert.True(t, schedule[len(schedule)-1].AmountExpected.Equal(d(tc.last)), "last installment for %s: got %s", tc.amount, schedule[len(schedule)-1].AmountExpected)
	}
}

func TestService_OriginateLoan_WithinLimit(t *testing.T) {
	t.Parallel()

	repo := newFakeLoanRepo()
	svc := newTestService(repo, fakeContracts{})

	loan, err := svc.OriginateLoan(context.Background(), OriginateLoanInput{
		CompanyID:     "company-1",
		EmployeeID:    "emp-1",
		Amount:        d("1000000"),
		InterestRate:  d("2"),
		Installments:  12,
		MonthlySalary: d("1000000"),
	})
	require.NoError(t, err)

	assert.True(t, loan.InstallmentAmount.Equal(d("85000")))
	assert.True(t, loan.LegalCeiling.Equal(d("150000")))
	assert.False(t, loan.ExceedsLegalLimit)
	assert.False(t, loan.AuthorizationSigned)
	assert.Nil(t, loan.AuthorizationDate)
	assert.Equal(t, 30, loan.DaysWorked)

	require.Len(t, loan.Schedule, 12)
	assert.Equal(t, 2025, loan.Schedule[0].DueYear)
	assert.Equal(t, 12, loan.Schedule[0].DueMonth)
	assert.Equal(t, 2026, loan.Schedule[11].DueYear)
	assert.Equal(t, 11, loan.Schedule[11].DueMonth)
	assert.Len(t, repo.installments[loan.ID], 12)

	found, err := svc.GetLoan(context.Background(), GetLoanInput{CompanyID: "company-1", ID: loan.ID})
	require.NoError(t, err)
	assert.Len(t, found.Schedule, 12)

	_, err = svc.GetLoan(context.Background(), GetLoanInput{CompanyID: "company-2", ID: loan.ID})
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestService_OriginateLoan_ExceedsLimit(t *testing.T) {
	t.Parallel()

	repo := newFakeLoanRepo()
	svc := newTestService(repo, fakeContracts{})

	in := OriginateLoanInput{
		CompanyID:     "company-1",
		EmployeeID:    "emp-1",
		Amount:        d("1500000"),
		InterestRate:  decimal.Zero,
		Installments:  10,
		MonthlySalary: d("900000"),
	}

	_, err := svc.OriginateLoan(context.Background(), in)
	var limitErr *discount.LegalLimitExceededError
	require.True(t, errors.As(err, &limitErr), "expected LegalLimitExceededError, got %v", err)
	assert.ErrorIs(t, err, discount.ErrLegalLimitExceeded)
	assert.True(t, limitErr.Ceiling.Equal(d("135000")))
	assert.True(t, limitErr.Ratio.Equal(d("1.1111")))
	assert.Empty(t, repo.loans)

	in.AuthorizationSigned = true
	loan, err := svc.OriginateLoan(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, loan.ExceedsLegalLimit)
	require.NotNil(t, loan.AuthorizationDate)
	assert.True(t, loan.AuthorizationDate.Equal(time.Date(2025, 11, 20, 15, 0, 0, 0, time.UTC)))

	signedAt := time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)
	in.AuthorizationDate = &signedAt
	loan, err = svc.OriginateLoan(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, loan.AuthorizationDate.Equal(signedAt))
}

func TestService_OriginateLoan_ProratesAndUsesContractSalary(t *testing.T) {
	t.Parallel()

	repo := newFakeLoanRepo()
	contracts := fakeContracts{active: []*contract.Contract{{
		ID: "contract-1", CompanyID: "company-1", EmployeeID: "emp-1", BaseSalary: d("1000000"), Status: contract.StatusActive,
	}}}
	svc := newTestService(repo, contracts)

	loan, err := svc.OriginateLoan(context.Background(), OriginateLoanInput{
		CompanyID:    "company-1",
		EmployeeID:   "emp-1",
		Amount:       d("300000"),
		Installments: 4,
		DaysOnLeave:  15,
	})
	require.NoError(t, err)
	assert.True(t, loan.MonthlySalary.Equal(d("1000000")))
	assert.Equal(t, 15, loan.DaysWorked)
	assert.True(t, loan.LegalCeiling.Equal(d("75000")))
	assert.True(t, loan.InstallmentAmount.Equal(d("75000")))
	assert.False(t, loan.ExceedsLegalLimit, "equality with the ceiling is allowed")

	_, err = svc.OriginateLoan(context.Background(), OriginateLoanInput{
		CompanyID:    "company-1",
		EmployeeID:   "emp-2",
		Amount:       d("300000"),
		Installments: 4,
	})
	assert.ErrorIs(t, err, ErrNoActiveContract)
}

func TestService_OriginateLoan_ZeroDaysWorked(t *testing.T) {
	t.Parallel()

	repo := newFakeLoanRepo()
	svc := newTestService(repo, fakeContracts{})
	zero := 0

	_, err := svc.OriginateLoan(context.Background(), OriginateLoanInput{
		CompanyID:     "company-1",
		EmployeeID:    "emp-1",
		Amount:        d("1000"),
		Installments:  1,
		MonthlySalary: d("800000"),
		DaysWorked:    &zero,
	})
	assert.ErrorIs(t, err, discount.ErrLegalLimitExceeded)
}

func TestService_OriginateLoan_ScheduleFailureRollsBack(t *testing.T) {
	t.Parallel()

	repo := newFakeLoanRepo()
	repo.failSchedule = errors.New("insert failed")
	svc := newTestService(repo, fakeContracts{})

	_, err := svc.OriginateLoan(context.Background(), OriginateLoanInput{
		CompanyID:     "company-1",
		EmployeeID:    "emp-1",
		Amount:        d("100000"),
		Installments:  2,
		MonthlySalary: d("1000000"),
	})
	require.Error(t, err)
	assert.Empty(t, repo.loans)
}

func TestService_OriginateLoan_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeLoanRepo(), fakeContracts{})
	signed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	base := OriginateLoanInput{CompanyID: "company-1", EmployeeID: "emp-1", Amount: d("1000"), Installments: 2, MonthlySalary: d("1000000")}

	cases := []struct {
		name   string
		mutate func(in *OriginateLoanInput)
		want   error
	}{
		{name: "company", mutate: func(in *OriginateLoanInput) { in.CompanyID = "" }, want: ErrInvalidCompanyID},
		{name: "employee", mutate: func(in *OriginateLoanInput) { in.EmployeeID = " " }, want: ErrInvalidEmployeeID},
		{name: "amount", mutate: func(in *OriginateLoanInput) { in.Amount = decimal.Zero }, want: ErrInvalidAmount},
		{name: "rate", mutate: func(in *OriginateLoanInput) { in.InterestRate = d("-1") }, want: ErrInvalidInterestRate},
		{name: "zero installments", mutate: func(in *OriginateLoanInput) { in.Installments = 0 }, want: ErrInvalidInstallments},
		{name: "too many installments", mutate: func(in *OriginateLoanInput) { in.Installments = 49 }, want: ErrInvalidInstallments},
		{name: "first due month", mutate: func(in *OriginateLoanInput) { in.FirstDueYear = 2025; in.FirstDueMonth = 13 }, want: ErrInvalidFirstDue},
		{name: "unsigned date", mutate: func(in *OriginateLoanInput) { in.AuthorizationDate = &signed }, want: ErrInvalidAuthorization},
		{name: "leave over period", mutate: func(in *OriginateLoanInput) { in.DaysOnLeave = 31 }, want: discount.ErrInvalidDays},
	}
	for _, tc := range cases {
		in := base
		tc.mutate(&in)
		_, err := svc.OriginateLoan(context.Background(), in)
		assert.ErrorIs(t, err, tc.want, tc.name)
	}
}
