package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/accident"
	pgdb "github.com/ogurasousui/codex-hr-compliance/internal/platform/db/postgres"
)

const accidentColumns = `id, company_id, employee_id, event_at, description, location, diat_status, diat_number, diat_sent_at, version, created_at, updated_at`

// AccidentRepository は PostgreSQL を利用した労災記録永続化の実装です。
type AccidentRepository struct {
	pool pgdb.Queryer
}

// NewAccidentRepository は AccidentRepository を生成します。
func NewAccidentRepository(pool pgdb.Queryer) *AccidentRepository {
	return &AccidentRepository{pool: pool}
}

// Create は労災記録を登録します。
func (r *AccidentRepository) Create(ctx context.Context, a *accident.Accident) (*accident.Accident, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO accidents (id, company_id, employee_id, event_at, description, location, diat_status, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+accidentColumns,
		a.ID,
		a.CompanyID,
		a.EmployeeID,
		a.EventAt,
		a.Description,
		a.Location,
		string(a.DiatStatus),
		a.Version,
		a.CreatedAt,
		a.UpdatedAt,
	)

	created, err := scanAccident(row)
	if err != nil {
		return nil, translateAccidentPgError(err)
	}
	return created, nil
}

// FindByID は会社 ID と ID で労災記録を取得します。
func (r *AccidentRepository) FindByID(ctx context.Context, companyID, id string) (*accident.Accident, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+accidentColumns+`
          FROM accidents
         WHERE company_id = $1 AND id = $2
         LIMIT 1
    `, companyID, id)

	found, err := scanAccident(row)
	if err != nil {
		return nil, translateAccidentPgError(err)
	}
	return found, nil
}

// List は労災記録を発生日時の新しい順に返します。
func (r *AccidentRepository) List(ctx context.Context, filter accident.ListAccidentsFilter) ([]*accident.Accident, string, error) {
	if strings.TrimSpace(filter.CompanyID) == "" {
		return nil, "", accident.ErrInvalidCompanyID
	}
	if filter.Limit <= 0 {
		return nil, "", accident.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", accident.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := []any{filter.CompanyID}
	conditions := []string{"company_id = $1"}

	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		conditions = append(conditions, "employee_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, "diat_status = $"+strconv.Itoa(len(args)))
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + accidentColumns + `
          FROM accidents
         WHERE ` + strings.Join(conditions, " AND ") + `
         ORDER BY event_at DESC, id DESC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateAccidentPgError(err)
	}
	defer rows.Close()

	accidents := make([]*accident.Accident, 0, filter.Limit)
	for rows.Next() {
		a, err := scanAccident(rows)
		if err != nil {
			return nil, "", translateAccidentPgError(err)
		}
		accidents = append(accidents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, "", translateAccidentPgError(err)
	}

	var nextToken string
	if len(accidents) == limitWithBuffer {
		accidents = accidents[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}
	return accidents, nextToken, nil
}

// UpdateDiat は版数が一致する場合のみ DIAT 項目を更新します。
func (r *AccidentRepository) UpdateDiat(ctx context.Context, a *accident.Accident) (*accident.Accident, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE accidents
           SET diat_status = $1,
               diat_number = $2,
               diat_sent_at = $3,
               updated_at = $4,
               version = version + 1
         WHERE company_id = $5 AND id = $6 AND version = $7
        RETURNING `+accidentColumns,
		string(a.DiatStatus),
		nullableString(a.DiatNumber),
		nullableTime(a.DiatSentAt),
		a.UpdatedAt,
		a.CompanyID,
		a.ID,
		a.Version,
	)

	updated, err := scanAccident(row)
	if errors.Is(err, accident.ErrAccidentNotFound) {
		return nil, accident.ErrConcurrentModification
	}
	if err != nil {
		return nil, translateAccidentPgError(err)
	}
	return updated, nil
}

// EscalateOverdue は会社内で eventBefore より前に発生した pending の記録を一括で overdue にします。
func (r *AccidentRepository) EscalateOverdue(ctx context.Context, companyID string, eventBefore, updatedAt time.Time) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE accidents
           SET diat_status = $1,
               updated_at = $2,
               version = version + 1
         WHERE company_id = $3 AND diat_status = $4 AND event_at < $5
    `,
		string(accident.DiatStatusOverdue),
		updatedAt,
		companyID,
		string(accident.DiatStatusPending),
		eventBefore,
	)
	if err != nil {
		return 0, translateAccidentPgError(err)
	}
	return tag.RowsAffected(), nil
}

func scanAccident(row pgx.Row) (*accident.Accident, error) {
	var (
		a        accident.Accident
		status   string
		number   sql.NullString
		sentAt   sql.NullTime
		location sql.NullString
	)

	if err := row.Scan(
		&a.ID,
		&a.CompanyID,
		&a.EmployeeID,
		&a.EventAt,
		&a.Description,
		&location,
		&status,
		&number,
		&sentAt,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, accident.ErrAccidentNotFound
		}
		return nil, err
	}

	a.DiatStatus = accident.DiatStatus(status)
	a.Location = location.String
	if number.Valid {
		n := number.String
		a.DiatNumber = &n
	}
	a.DiatSentAt = timeFromNull(sentAt)
	return &a, nil
}

func translateAccidentPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return accident.ErrAccidentNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "accidents_employee_fkey" {
				return accident.ErrEmployeeNotFound
			}
		case checkViolationCode:
			return accident.ErrInvalidStatus
		}
	}
	return err
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
