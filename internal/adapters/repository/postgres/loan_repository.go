package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/loan"
	pgdb "github.com/ogurasousui/codex-hr-compliance/internal/platform/db/postgres"
)

const loanColumns = `id, company_id, employee_id, amount::text, interest_rate::text, total_amount::text, installments,
               installment_amount::text, monthly_salary::text, days_worked, days_on_leave, legal_ceiling::text, ceiling_ratio::text,
               exceeds_legal_limit, authorization_signed, authorization_date, created_at, updated_at`

const installmentColumns = `id, loan_id, sequence, due_year, due_month, amount_expected::text, amount_applied::text, amount_deferred::text, status`

// LoanRepository は PostgreSQL を利用した貸付永続化の実装です。
type LoanRepository struct {
	pool pgdb.Queryer
}

// NewLoanRepository は LoanRepository を生成します。
func NewLoanRepository(pool pgdb.Queryer) *LoanRepository {
	return &LoanRepository{pool: pool}
}

// Create は貸付を登録します。
func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO loans (id, company_id, employee_id, amount, interest_rate, total_amount, installments, installment_amount,
                           monthly_salary, days_worked, days_on_leave, legal_ceiling, ceiling_ratio,
                           exceeds_legal_limit, authorization_signed, authorization_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8::numeric,
                $9::numeric, $10, $11, $12::numeric, $13::numeric,
                $14, $15, $16, $17, $18)
        RETURNING `+loanColumns,
		l.ID,
		l.CompanyID,
		l.EmployeeID,
		l.Amount.String(),
		l.InterestRate.String(),
		l.TotalAmount.String(),
		l.Installments,
		l.InstallmentAmount.String(),
		l.MonthlySalary.String(),
		l.DaysWorked,
		l.DaysOnLeave,
		l.LegalCeiling.String(),
		l.CeilingRatio.String(),
		l.ExceedsLegalLimit,
		l.AuthorizationSigned,
		nullableTime(l.AuthorizationDate),
		l.CreatedAt,
		l.UpdatedAt,
	)

	created, err := scanLoan(row)
	if err != nil {
		return nil, translateLoanPgError(err)
	}
	return created, nil
}

// CreateInstallments は返済予定を登録します。
func (r *LoanRepository) CreateInstallments(ctx context.Context, installments []loan.Installment) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	for _, in := range installments {
		if _, err := exec.Exec(ctx, `
        INSERT INTO loan_installments (id, loan_id, sequence, due_year, due_month, amount_expected, amount_applied, amount_deferred, status)
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9)
    `,
			in.ID,
			in.LoanID,
			in.Sequence,
			in.DueYear,
			in.DueMonth,
			in.AmountExpected.String(),
			in.AmountApplied.String(),
			in.AmountDeferred.String(),
			string(in.Status),
		); err != nil {
			return translateLoanPgError(err)
		}
	}
	return nil
}

// FindByID は会社 ID と ID で貸付を取得します。
func (r *LoanRepository) FindByID(ctx context.Context, companyID, id string) (*loan.Loan, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+loanColumns+`
          FROM loans
         WHERE company_id = $1 AND id = $2
         LIMIT 1
    `, companyID, id)

	found, err := scanLoan(row)
	if err != nil {
		return nil, translateLoanPgError(err)
	}
	return found, nil
}

// ListInstallments は貸付の返済予定を回数順に返します。
func (r *LoanRepository) ListInstallments(ctx context.Context, loanID string) ([]loan.Installment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+installmentColumns+`
          FROM loan_installments
         WHERE loan_id = $1
         ORDER BY sequence
    `, loanID)
	if err != nil {
		return nil, translateLoanPgError(err)
	}
	defer rows.Close()

	var out []loan.Installment
	for rows.Next() {
		var (
			in                          loan.Installment
			expected, applied, deferred string
			status                      string
		)
		if err := rows.Scan(&in.ID, &in.LoanID, &in.Sequence, &in.DueYear, &in.DueMonth, &expected, &applied, &deferred, &status); err != nil {
			return nil, translateLoanPgError(err)
		}
		amounts, err := parseDecimals(expected, applied, deferred)
		if err != nil {
			return nil, err
		}
		in.AmountExpected, in.AmountApplied, in.AmountDeferred = amounts[0], amounts[1], amounts[2]
		in.Status = loan.InstallmentStatus(status)
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, translateLoanPgError(err)
	}
	return out, nil
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var (
		l                                                     loan.Loan
		amount, rate, total, installment, salary, ceil, ratio string
		authorizedAt                                          sql.NullTime
	)

	if err := row.Scan(
		&l.ID,
		&l.CompanyID,
		&l.EmployeeID,
		&amount,
		&rate,
		&total,
		&l.Installments,
		&installment,
		&salary,
		&l.DaysWorked,
		&l.DaysOnLeave,
		&ceil,
		&ratio,
		&l.ExceedsLegalLimit,
		&l.AuthorizationSigned,
		&authorizedAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrLoanNotFound
		}
		return nil, err
	}

	values, err := parseDecimals(amount, rate, total, installment, salary, ceil, ratio)
	if err != nil {
		return nil, err
	}
	l.Amount, l.InterestRate, l.TotalAmount = values[0], values[1], values[2]
	l.InstallmentAmount, l.MonthlySalary = values[3], values[4]
	l.LegalCeiling, l.CeilingRatio = values[5], values[6]
	l.AuthorizationDate = timeFromNull(authorizedAt)
	return &l, nil
}

func parseDecimals(raw ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(raw))
	for i, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("postgres: parse numeric %q: %w", v, err)
		}
		out[i] = d
	}
	return out, nil
}

func translateLoanPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return loan.ErrLoanNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == foreignKeyViolationCode && pgErr.ConstraintName == "loans_employee_fkey" {
			return loan.ErrEmployeeNotFound
		}
	}

	return err
}
