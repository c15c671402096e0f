package accident

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
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

// Service は労災記録と DIAT 期限を管理します。
type Service struct {
	repo   Repository
	clock  Clock
	tx     TransactionManager
	logger *slog.Logger
}

// UseCase は労災ユースケースの公開インターフェースです。
type UseCase interface {
	ReportAccident(ctx context.Context, in ReportAccidentInput) (*Accident, error)
	GetAccident(ctx context.Context, in GetAccidentInput) (*Accident, error)
	ListAccidents(ctx context.Context, in ListAccidentsInput) (*ListAccidentsResult, error)
	MarkAsSent(ctx context.Context, in MarkAsSentInput) (*Accident, error)
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

// ReportAccidentInput は労災登録時の入力です。
type ReportAccidentInput struct {
	CompanyID   string
	EmployeeID  string
	EventAt     time.Time
	Description string
	Location    string
}

// GetAccidentInput は労災取得時の入力です。
type GetAccidentInput struct {
	CompanyID string
	ID        string
	Today     time.Time
}

// ListAccidentsInput は一覧取得時の入力です。
// Status は today 時点で期限を再評価した後の状況で絞り込みます。
type ListAccidentsInput struct {
	CompanyID  string
	EmployeeID string
	Status     *DiatStatus
	PageSize   int
	PageToken  string
	Today      time.Time
}

// ListAccidentsResult は一覧取得結果を表します。
type ListAccidentsResult struct {
	Accidents     []*Accident
	NextPageToken string
}

// MarkAsSentInput は DIAT 提出登録時の入力です。
type MarkAsSentInput struct {
	CompanyID  string
	AccidentID string
	DiatNumber string
}

// ReportAccident は DIAT 未提出 (pending) の労災を登録します。
func (s *Service) ReportAccident(ctx context.Context, in ReportAccidentInput) (*Accident, error) {
	companyID, err := normalizeRequired(in.CompanyID, ErrInvalidCompanyID)
	if err != nil {
		return nil, err
	}
	employeeID, err := normalizeRequired(in.EmployeeID, ErrInvalidEmployeeID)
	if err != nil {
		return nil, err
	}
	description, err := normalizeRequired(in.Description, ErrInvalidDescription)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if in.EventAt.IsZero() || in.EventAt.After(now) {
		return nil, ErrInvalidEventAt
	}

	var created *Accident
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Create(txCtx, &Accident{
			ID:          uuid.NewString(),
			CompanyID:   companyID,
			EmployeeID:  employeeID,
			EventAt:     in.EventAt,
			Description: description,
			Location:    strings.TrimSpace(in.Location),
			DiatStatus:  DiatStatusPending,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "accident reported",
		slog.String("company_id", companyID),
		slog.String("accident_id", created.ID),
		slog.String("employee_id", employeeID),
	)
	return created, nil
}

// GetAccident は労災を取得し、today 時点で期限を過ぎていれば overdue に昇格させて保存します。
func (s *Service) GetAccident(ctx context.Context, in GetAccidentInput) (*Accident, error) {
	companyID, err := normalizeRequired(in.CompanyID, ErrInvalidCompanyID)
	if err != nil {
		return nil, err
	}
	id, err := normalizeRequired(in.ID, ErrInvalidID)
	if err != nil {
		return nil, err
	}
	if in.Today.IsZero() {
		return nil, ErrInvalidReferenceDate
	}

	var result *Accident
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, companyID, id)
		if err != nil {
			return err
		}
		refreshed, err := s.refresh(txCtx, found, in.Today)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// ListAccidents は労災の一覧を取得し、各記録の期限を再評価します。
func (s *Service) ListAccidents(ctx context.Context, in ListAccidentsInput) (*ListAccidentsResult, error) {
	companyID, err := normalizeRequired(in.CompanyID, ErrInvalidCompanyID)
	if err != nil {
		return nil, err
	}
	if in.Today.IsZero() {
		return nil, ErrInvalidReferenceDate
	}
	if in.Status != nil && !isValidStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}
	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	filter := ListAccidentsFilter{CompanyID: companyID, Status: in.Status, Limit: limit, Offset: offset}
	if employeeID := strings.TrimSpace(in.EmployeeID); employeeID != "" {
		filter.EmployeeID = &employeeID
	}

	var result ListAccidentsResult
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		// 保存値での絞り込みとページ位置を today 時点の状況に揃える
		escalated, err := s.repo.EscalateOverdue(txCtx, companyID, OverdueCutoff(in.Today), s.clock.Now())
		if err != nil {
			return fmt.Errorf("escalate overdue diats: %w", err)
		}
		if escalated > 0 {
			s.logger.InfoContext(txCtx, "diat escalated",
				slog.String("company_id", companyID),
				slog.Int64("count", escalated),
				slog.String("to", string(DiatStatusOverdue)),
			)
		}

		accidents, token, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		out := make([]*Accident, 0, len(accidents))
		for _, a := range accidents {
			refreshed, err := s.refresh(txCtx, a, in.Today)
			if err != nil {
				return err
			}
			if in.Status != nil && refreshed.DiatStatus != *in.Status {
				continue
			}
			out = append(out, refreshed)
		}
		result.Accidents = out
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkAsSent は DIAT を提出済みにします。提出済みの記録に対しては ErrAlreadySent を返します。
func (s *Service) MarkAsSent(ctx context.Context, in MarkAsSentInput) (*Accident, error) {
	companyID, err := normalizeRequired(in.CompanyID, ErrInvalidCompanyID)
	if err != nil {
		return nil, err
	}
	id, err := normalizeRequired(in.AccidentID, ErrInvalidID)
	if err != nil {
		return nil, err
	}
	number, err := normalizeRequired(in.DiatNumber, ErrInvalidDiatNumber)
	if err != nil {
		return nil, err
	}

	var result *Accident
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, companyID, id)
		if err != nil {
			return err
		}
		if found.DiatStatus == DiatStatusSent {
			return ErrAlreadySent
		}

		now := s.clock.Now()
		next := *found
		next.DiatStatus = DiatStatusSent
		next.DiatNumber = &number
		next.DiatSentAt = &now
		next.UpdatedAt = now

		updated, err := s.repo.UpdateDiat(txCtx, &next)
		if err != nil {
			return err
		}
		result = updated
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "diat marked as sent",
		slog.String("company_id", companyID),
		slog.String("accident_id", id),
		slog.String("diat_number", number),
	)
	return result, nil
}

// refresh は再評価の結果が保存値と異なる場合のみ書き込みます。
// 並行する書き込みに負けた場合は最新の記録を読み直して返します。
func (s *Service) refresh(ctx context.Context, a *Accident, today time.Time) (*Accident, error) {
	status := Evaluate(a, today)
	if status == a.DiatStatus {
		return a, nil
	}

	next := *a
	next.DiatStatus = status
	next.UpdatedAt = s.clock.Now()

	updated, err := s.repo.UpdateDiat(ctx, &next)
	if errors.Is(err, ErrConcurrentModification) {
		latest, findErr := s.repo.FindByID(ctx, a.CompanyID, a.ID)
		if findErr != nil {
			return nil, findErr
		}
		return latest, nil
	}
	if err != nil {
		return nil, fmt.Errorf("escalate diat: %w", err)
	}

	s.logger.InfoContext(ctx, "diat escalated",
		slog.String("company_id", a.CompanyID),
		slog.String("accident_id", a.ID),
		slog.String("from", string(a.DiatStatus)),
		slog.String("to", string(status)),
		slog.Int("elapsed_days", ElapsedDays(a, today)),
	)
	return updated, nil
}

func normalizeRequired(raw string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", sentinel
	}
	return trimmed, nil
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
