package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/contract"
	pgdb "github.com/ogurasousui/codex-hr-compliance/internal/platform/db/postgres"
)

const (
	contractEmployeeFKConstraint = "contracts_employee_fkey"
	contractOneActiveIndex       = "contracts_one_active_per_employee"
)

const contractColumns = `id, company_id, employee_id, contract_type, start_date, end_date, status, base_salary::text, position,
               issued_at, signed_at, activated_at, terminated_at, termination_date, cancelled_at, version, created_at, updated_at`

// ContractRepository は PostgreSQL を利用した契約永続化の実装です。
type ContractRepository struct {
	pool pgdb.Queryer
}

// NewContractRepository は ContractRepository を生成します。
func NewContractRepository(pool pgdb.Queryer) *ContractRepository {
	return &ContractRepository{pool: pool}
}

// Create は契約を新規作成します。
func (r *ContractRepository) Create(ctx context.Context, c *contract.Contract) (*contract.Contract, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO contracts (id, company_id, employee_id, contract_type, start_date, end_date, status, base_salary, position, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12)
        RETURNING `+contractColumns,
		c.ID,
		c.CompanyID,
		c.EmployeeID,
		string(c.Type),
		c.StartDate,
		nullableDate(c.EndDate),
		string(c.Status),
		c.BaseSalary.String(),
		c.Position,
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
	)

	created, err := scanContract(row)
	if err != nil {
		return nil, translateContractPgError(err)
	}
	return created, nil
}

// FindByID は会社 ID と ID で契約を取得します。
func (r *ContractRepository) FindByID(ctx context.Context, companyID, id string) (*contract.Contract, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+contractColumns+`
          FROM contracts
         WHERE company_id = $1 AND id = $2
         LIMIT 1
    `, companyID, id)

	found, err := scanContract(row)
	if err != nil {
		return nil, translateContractPgError(err)
	}
	return found, nil
}

// ListActiveByEmployee は従業員の active な契約を開始日順に返します。
func (r *ContractRepository) ListActiveByEmployee(ctx context.Context, companyID, employeeID string) ([]*contract.Contract, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+contractColumns+`
          FROM contracts
         WHERE company_id = $1 AND employee_id = $2 AND status = $3
         ORDER BY start_date, id
    `, companyID, employeeID, string(contract.StatusActive))
	if err != nil {
		return nil, translateContractPgError(err)
	}
	defer rows.Close()

	var contracts []*contract.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, translateContractPgError(err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translateContractPgError(err)
	}
	return contracts, nil
}

// UpdateStatus は状態と版数が一致する場合のみ契約を更新し、版数を 1 つ進めます。
func (r *ContractRepository) UpdateStatus(ctx context.Context, c *contract.Contract, expected contract.Status) (*contract.Contract, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE contracts
           SET status = $1,
               issued_at = $2,
               signed_at = $3,
               activated_at = $4,
               terminated_at = $5,
               termination_date = $6,
               cancelled_at = $7,
               updated_at = $8,
               version = version + 1
         WHERE company_id = $9 AND id = $10 AND status = $11 AND version = $12
        RETURNING `+contractColumns,
		string(c.Status),
		nullableTime(c.IssuedAt),
		nullableTime(c.SignedAt),
		nullableTime(c.ActivatedAt),
		nullableTime(c.TerminatedAt),
		nullableDate(c.TerminationDate),
		nullableTime(c.CancelledAt),
		c.UpdatedAt,
		c.CompanyID,
		c.ID,
		string(expected),
		c.Version,
	)

	updated, err := scanContract(row)
	if errors.Is(err, contract.ErrContractNotFound) {
		return nil, contract.ErrConcurrentModification
	}
	if err != nil {
		return nil, translateContractPgError(err)
	}
	return updated, nil
}

func scanContract(row pgx.Row) (*contract.Contract, error) {
	var (
		c               contract.Contract
		contractType    string
		status          string
		salary          string
		endDate         sql.NullTime
		issuedAt        sql.NullTime
		signedAt        sql.NullTime
		activatedAt     sql.NullTime
		terminatedAt    sql.NullTime
		terminationDate sql.NullTime
		cancelledAt     sql.NullTime
	)

	if err := row.Scan(
		&c.ID,
		&c.CompanyID,
		&c.EmployeeID,
		&contractType,
		&c.StartDate,
		&endDate,
		&status,
		&salary,
		&c.Position,
		&issuedAt,
		&signedAt,
		&activatedAt,
		&terminatedAt,
		&terminationDate,
		&cancelledAt,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contract.ErrContractNotFound
		}
		return nil, err
	}

	baseSalary, err := decimal.NewFromString(salary)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse base_salary %q: %w", salary, err)
	}

	c.Type = contract.Type(contractType)
	c.Status = contract.Status(status)
	c.BaseSalary = baseSalary
	c.StartDate = dateOnly(c.StartDate)
	c.EndDate = dateFromNull(endDate)
	c.IssuedAt = timeFromNull(issuedAt)
	c.SignedAt = timeFromNull(signedAt)
	c.ActivatedAt = timeFromNull(activatedAt)
	c.TerminatedAt = timeFromNull(terminatedAt)
	c.TerminationDate = dateFromNull(terminationDate)
	c.CancelledAt = timeFromNull(cancelledAt)
	return &c, nil
}

func translateContractPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return contract.ErrContractNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			if pgErr.ConstraintName == contractOneActiveIndex {
				return contract.ErrActiveContractExists
			}
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == contractEmployeeFKConstraint {
				return contract.ErrEmployeeNotFound
			}
		case checkViolationCode:
			return contract.ErrInvalidDateRange
		}
	}

	return err
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
