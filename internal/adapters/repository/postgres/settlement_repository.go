package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/contract"
	pgdb "github.com/ogurasousui/codex-hr-compliance/internal/platform/db/postgres"
)

const settlementColumns = `id, company_id, contract_id, employee_id, settlement_number, termination_date, cause_code, notice_given, notice_days, created_at`

// SettlementRepository は PostgreSQL を利用した清算書永続化の実装です。
type SettlementRepository struct {
	pool pgdb.Queryer
}

// NewSettlementRepository は SettlementRepository を生成します。
func NewSettlementRepository(pool pgdb.Queryer) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

// NextSettlementNumber は会社ごとの採番表を 1 文で更新して次の番号を返します。
// 同じ会社への並行呼び出しは行ロックで直列化され、ロールバックされた番号は欠番になります。
func (r *SettlementRepository) NextSettlementNumber(ctx context.Context, companyID string) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO settlement_sequences (company_id, last_value)
        VALUES ($1, 1)
        ON CONFLICT (company_id) DO UPDATE
           SET last_value = settlement_sequences.last_value + 1
        RETURNING last_value
    `, companyID)

	var next int64
	if err := row.Scan(&next); err != nil {
		return 0, fmt.Errorf("postgres: allocate settlement number: %w", err)
	}
	return next, nil
}

// Create は清算書を登録します。
func (r *SettlementRepository) Create(ctx context.Context, s *contract.Settlement) (*contract.Settlement, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO settlements (id, company_id, contract_id, employee_id, settlement_number, termination_date, cause_code, notice_given, notice_days, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+settlementColumns,
		s.ID,
		s.CompanyID,
		s.ContractID,
		s.EmployeeID,
		s.SettlementNumber,
		dateOnly(s.TerminationDate),
		s.CauseCode,
		s.NoticeGiven,
		s.NoticeDays,
		s.CreatedAt,
	)

	created, err := scanSettlement(row)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// FindByContract は契約に紐づく清算書を取得します。
func (r *SettlementRepository) FindByContract(ctx context.Context, companyID, contractID string) (*contract.Settlement, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+settlementColumns+`
          FROM settlements
         WHERE company_id = $1 AND contract_id = $2
         LIMIT 1
    `, companyID, contractID)

	return scanSettlement(row)
}

func scanSettlement(row pgx.Row) (*contract.Settlement, error) {
	var s contract.Settlement
	if err := row.Scan(
		&s.ID,
		&s.CompanyID,
		&s.ContractID,
		&s.EmployeeID,
		&s.SettlementNumber,
		&s.TerminationDate,
		&s.CauseCode,
		&s.NoticeGiven,
		&s.NoticeDays,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contract.ErrSettlementNotFound
		}
		return nil, err
	}
	s.TerminationDate = dateOnly(s.TerminationDate)
	return &s, nil
}
