package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

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

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// Service は従業員に関するユースケースをまとめます。
type Service struct {
	repo   Repository
	clock  Clock
	tx     TransactionManager
	logger *slog.Logger
}

// UseCase は従業員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	SetStatus(ctx context.Context, companyID, employeeID string, status Status) error
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, logger *slog.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clock: clock, tx: tx, logger: logger}
}

// CreateEmployeeInput は従業員登録時の入力です。
type CreateEmployeeInput struct {
	CompanyID string
	RUT       string
	FullName  string
	Status    *Status
	HiredAt   *time.Time
}

// GetEmployeeInput は従業員取得時の入力です。
type GetEmployeeInput struct {
	CompanyID string
	ID        string
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	CompanyID string
	PageSize  int
	PageToken string
	Status    *Status
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees     []*Employee
	NextPageToken string
}

// CreateEmployee は新しい従業員を登録します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	companyID, err := normalizeCompanyID(in.CompanyID)
	if err != nil {
		return nil, err
	}

	rut, err := NormalizeRUT(in.RUT)
	if err != nil {
		return nil, err
	}

	fullName := strings.Join(strings.Fields(in.FullName), " ")
	if fullName == "" {
		return nil, ErrInvalidFullName
	}

	status := StatusActive
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureRUTNotExists(txCtx, companyID, rut); err != nil {
			return err
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Employee{
			CompanyID: companyID,
			RUT:       rut,
			FullName:  fullName,
			Status:    status,
			HiredAt:   normalizeDate(in.HiredAt),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// GetEmployee は従業員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	companyID, err := normalizeCompanyID(in.CompanyID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, companyID, strings.TrimSpace(in.ID))
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は従業員の一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	companyID, err := normalizeCompanyID(in.CompanyID)
	if err != nil {
		return nil, err
	}

	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && !isValidStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}

	var result ListEmployeesResult
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		employees, token, err := s.repo.List(txCtx, ListEmployeesFilter{
			CompanyID: companyID,
			Status:    in.Status,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return err
		}
		result.Employees = employees
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &result, nil
}

// SetStatus は従業員の在籍状態を更新します。
// 呼び出し元のトランザクションがコンテキストにあればそれに参加するため、
// 契約の状態遷移と同じ単位でコミット・ロールバックされます。
func (s *Service) SetStatus(ctx context.Context, companyID, employeeID string, status Status) error {
	companyID, err := normalizeCompanyID(companyID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(employeeID) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}
	if !isValidStatus(status) {
		return ErrInvalidStatus
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, companyID, employeeID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		terminatedAt := existing.TerminatedAt
		switch status {
		case StatusDismissed:
			terminatedAt = normalizeDate(&now)
		case StatusActive:
			terminatedAt = nil
		}

		if err := s.repo.UpdateStatus(txCtx, companyID, employeeID, status, terminatedAt, now); err != nil {
			return err
		}

		if existing.Status != status {
			s.logger.InfoContext(ctx, "employee status changed",
				slog.String("company_id", companyID),
				slog.String("employee_id", employeeID),
				slog.String("from", string(existing.Status)),
				slog.String("to", string(status)),
			)
		}
		return nil
	})
}

func (s *Service) ensureRUTNotExists(ctx context.Context, companyID, rut string) error {
	emp, err := s.repo.FindByCompanyAndRUT(ctx, companyID, rut)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if emp != nil {
		return ErrRUTAlreadyExists
	}
	return nil
}

func normalizeCompanyID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidCompanyID
	}
	return trimmed, nil
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	normalized := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &normalized
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive, StatusDismissed:
		return true
	default:
		return false
	}
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
