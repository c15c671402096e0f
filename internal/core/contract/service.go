package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/deadline"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/employee"
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

// Service は契約のライフサイクルを制御します。
type Service struct {
	repo        Repository
	settlements SettlementRepository
	employees   EmployeeStatusUpdater
	clock       Clock
	tx          TransactionManager
	logger      *slog.Logger
}

// UseCase は契約ユースケースの公開インターフェースです。
type UseCase interface {
	CreateContract(ctx context.Context, in CreateContractInput) (*Contract, error)
	GetContract(ctx context.Context, in GetContractInput) (*Contract, error)
	Transition(ctx context.Context, in TransitionInput) (*TransitionResult, error)
	GetExpirationStatus(ctx context.Context, in GetExpirationStatusInput) (*ExpirationResult, error)
	GetSettlement(ctx context.Context, in GetContractInput) (*Settlement, error)
}

// Dependencies は Service の依存をまとめます。
type Dependencies struct {
	Contracts   Repository
	Settlements SettlementRepository
	Employees   EmployeeStatusUpdater
	Clock       Clock
	Tx          TransactionManager
	Logger      *slog.Logger
}

// NewService は Service を生成します。
func NewService(deps Dependencies) *Service {
	s := &Service{
		repo:        deps.Contracts,
		settlements: deps.Settlements,
		employees:   deps.Employees,
		clock:       deps.Clock,
		tx:          deps.Tx,
		logger:      deps.Logger,
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.tx == nil {
		s.tx = noopTransactionManager{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// CreateContractInput は契約作成時の入力です。
type CreateContractInput struct {
	CompanyID  string
	EmployeeID string
	Type       Type
	StartDate  time.Time
	EndDate    *time.Time
	BaseSalary decimal.Decimal
	Position   string
}

// GetContractInput は契約取得時の入力です。
type GetContractInput struct {
	CompanyID string
	ID        string
}

// TerminationDetails は終了遷移に必要な情報です。
// NoticeGiven は明示的な指定が必須です。NoticeDays を省略した場合は 0 日とします。
type TerminationDetails struct {
	TerminationDate time.Time
	CauseCode       string
	NoticeGiven     *bool
	NoticeDays      *int
}

// TransitionInput は状態遷移要求です。
// ExpectedVersion を指定すると、呼び出し元が参照した版から変更されていないことも確認します。
type TransitionInput struct {
	CompanyID       string
	ContractID      string
	Target          Status
	ExpectedVersion *int64
	Termination     *TerminationDetails
}

// TransitionResult は状態遷移の結果です。
type TransitionResult struct {
	OK         bool
	From       Status
	To         Status
	Contract   *Contract
	Settlement *Settlement
}

// GetExpirationStatusInput は期限区分取得時の入力です。
type GetExpirationStatusInput struct {
	CompanyID  string
	ContractID string
	Today      time.Time
}

// ExpirationResult は契約と期限区分の組です。
type ExpirationResult struct {
	Contract       *Contract
	Classification deadline.Classification
}

// CreateContract は draft 状態の契約を作成します。
func (s *Service) CreateContract(ctx context.Context, in CreateContractInput) (*Contract, error) {
	companyID, err := normalizeRequired(in.CompanyID, ErrInvalidCompanyID)
	if err != nil {
		return nil, err
	}
	employeeID, err := normalizeRequired(in.EmployeeID, ErrInvalidEmployeeID)
	if err != nil {
		return nil, err
	}
	if !isValidType(in.Type) {
		return nil, ErrInvalidType
	}
	if in.StartDate.IsZero() {
		return nil, fmt.Errorf("start date: %w", ErrInvalidDateRange)
	}

	start := dateOf(in.StartDate)
	end := normalizeDate(in.EndDate)
	switch {
	case in.Type.RequiresEndDate() && end == nil:
		return nil, ErrEndDateRequired
	case in.Type == TypeIndefinite && end != nil:
		return nil, ErrUnexpectedEndDate
	case end != nil && end.Before(start):
		return nil, ErrInvalidDateRange
	}

	if !in.BaseSalary.IsPositive() {
		return nil, ErrInvalidSalary
	}
	position := strings.TrimSpace(in.Position)
	if position == "" {
		return nil, ErrInvalidPosition
	}

	var created *Contract
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Contract{
			ID:         uuid.NewString(),
			CompanyID:  companyID,
			EmployeeID: employeeID,
			Type:       in.Type,
			StartDate:  start,
			EndDate:    end,
			Status:     StatusDraft,
			BaseSalary: in.BaseSalary,
			Position:   position,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
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

// GetContract は契約を取得します。
func (s *Service) GetContract(ctx context.Context, in GetContractInput) (*Contract, error) {
	companyID, err := normalizeRequired(in.CompanyID, ErrInvalidCompanyID)
	if err != nil {
		return nil, err
	}
	id, err := normalizeRequired(in.ID, ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var found *Contract
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		c, err := s.repo.FindByID(txCtx, companyID, id)
		if err != nil {
			return err
		}
		found = c
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// GetExpirationStatus は契約を取得し、today 時点の期限区分を返します。
func (s *Service) GetExpirationStatus(ctx context.Context, in GetExpirationStatusInput) (*ExpirationResult, error) {
	if in.Today.IsZero() {
		return nil, fmt.Errorf("today: %w", ErrInvalidDateRange)
	}
	c, err := s.GetContract(ctx, GetContractInput{CompanyID: in.CompanyID, ID: in.ContractID})
	if err != nil {
		return nil, err
	}
	return &ExpirationResult{Contract: c, Classification: ExpirationStatus(c, in.Today)}, nil
}

// GetSettlement は終了済み契約の清算書を取得します。
func (s *Service) GetSettlement(ctx context.Context, in GetContractInput) (*Settlement, error) {
	companyID, err := normalizeRequired(in.CompanyID, ErrInvalidCompanyID)
	if err != nil {
		return nil, err
	}
	contractID, err := normalizeRequired(in.ID, ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var found *Settlement
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		settlement, err := s.settlements.FindByContract(txCtx, companyID, contractID)
		if err != nil {
			return err
		}
		found = settlement
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// Issue は draft から issued へ遷移させます。
func (s *Service) Issue(ctx context.Context, companyID, contractID string) (*TransitionResult, error) {
	return s.Transition(ctx, TransitionInput{CompanyID: companyID, ContractID: contractID, Target: StatusIssued})
}

// Sign は issued から signed へ遷移させます。
func (s *Service) Sign(ctx context.Context, companyID, contractID string) (*TransitionResult, error) {
	return s.Transition(ctx, TransitionInput{CompanyID: companyID, ContractID: contractID, Target: StatusSigned})
}

// Activate は signed から active へ遷移させ、従業員を在籍状態にします。
func (s *Service) Activate(ctx context.Context, companyID, contractID string) (*TransitionResult, error) {
	return s.Transition(ctx, TransitionInput{CompanyID: companyID, ContractID: contractID, Target: StatusActive})
}

// Terminate は active から terminated へ遷移させ、清算書を 1 件作成します。
func (s *Service) Terminate(ctx context.Context, companyID, contractID string, details TerminationDetails) (*TransitionResult, error) {
	return s.Transition(ctx, TransitionInput{CompanyID: companyID, ContractID: contractID, Target: StatusTerminated, Termination: &details})
}

// Cancel は draft または issued の契約を取り消します。
func (s *Service) Cancel(ctx context.Context, companyID, contractID string) (*TransitionResult, error) {
	return s.Transition(ctx, TransitionInput{CompanyID: companyID, ContractID: contractID, Target: StatusCancelled})
}

// Transition は契約を Target の状態へ遷移させます。
// 契約の条件付き更新と副作用 (従業員状態の変更、清算書の作成) は 1 つのトランザクションで実行され、
// いずれかが失敗した場合は何も永続化されません。
func (s *Service) Transition(ctx context.Context, in TransitionInput) (*TransitionResult, error) {
	companyID, err := normalizeRequired(in.CompanyID, ErrInvalidCompanyID)
	if err != nil {
		return nil, err
	}
	contractID, err := normalizeRequired(in.ContractID, ErrInvalidID)
	if err != nil {
		return nil, err
	}
	if !isValidStatus(in.Target) || in.Target == StatusDraft {
		return nil, ErrInvalidStatus
	}

	var termination *validTermination
	if in.Target == StatusTerminated {
		termination, err = validateTermination(in.Termination)
		if err != nil {
			return nil, err
		}
	}

	var result *TransitionResult
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		current, err := s.repo.FindByID(txCtx, companyID, contractID)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != current.Version {
			return ErrConcurrentModification
		}
		if err := checkTransition(current.Status, in.Target); err != nil {
			return err
		}

		from := current.Status
		now := s.clock.Now()
		next := *current
		next.Status = in.Target
		next.UpdatedAt = now

		switch in.Target {
		case StatusIssued:
			next.IssuedAt = &now
		case StatusSigned:
			next.SignedAt = &now
		case StatusActive:
			if err := s.ensureNoOtherActive(txCtx, current); err != nil {
				return err
			}
			next.ActivatedAt = &now
		case StatusTerminated:
			if termination.date.Before(current.StartDate) {
				return fmt.Errorf("termination date before contract start: %w", ErrInvalidTermination)
			}
			next.TerminatedAt = &now
			date := termination.date
			next.TerminationDate = &date
		case StatusCancelled:
			next.CancelledAt = &now
		}

		// 先に条件付き更新を行い行ロックを取得する。並行する同一遷移はここで失敗する。
		updated, err := s.repo.UpdateStatus(txCtx, &next, from)
		if err != nil {
			return err
		}

		res := &TransitionResult{OK: true, From: from, To: in.Target, Contract: updated}

		switch in.Target {
		case StatusActive:
			if err := s.employees.SetStatus(txCtx, companyID, current.EmployeeID, employee.StatusActive); err != nil {
				return fmt.Errorf("activate employee: %w", err)
			}
		case StatusTerminated:
			settlement, err := s.createSettlement(txCtx, updated, termination, now)
			if err != nil {
				return err
			}
			res.Settlement = settlement
			if err := s.employees.SetStatus(txCtx, companyID, current.EmployeeID, employee.StatusDismissed); err != nil {
				return fmt.Errorf("dismiss employee: %w", err)
			}
		}

		result = res
		return nil
	}); err != nil {
		s.logger.WarnContext(ctx, "contract transition rejected",
			slog.String("company_id", companyID),
			slog.String("contract_id", contractID),
			slog.String("target", string(in.Target)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	attrs := []any{
		slog.String("company_id", companyID),
		slog.String("contract_id", contractID),
		slog.String("from", string(result.From)),
		slog.String("to", string(result.To)),
	}
	if result.Settlement != nil {
		attrs = append(attrs, slog.Int64("settlement_number", result.Settlement.SettlementNumber))
	}
	s.logger.InfoContext(ctx, "contract transitioned", attrs...)

	return result, nil
}

func (s *Service) ensureNoOtherActive(ctx context.Context, c *Contract) error {
	active, err := s.repo.ListActiveByEmployee(ctx, c.CompanyID, c.EmployeeID)
	if err != nil {
		return err
	}
	for _, other := range active {
		if other.ID != c.ID {
			return ErrActiveContractExists
		}
	}
	return nil
}

func (s *Service) createSettlement(ctx context.Context, c *Contract, t *validTermination, now time.Time) (*Settlement, error) {
	number, err := s.settlements.NextSettlementNumber(ctx, c.CompanyID)
	if err != nil {
		return nil, &SettlementCreationError{ContractID: c.ID, Err: err}
	}

	created, err := s.settlements.Create(ctx, &Settlement{
		ID:               uuid.NewString(),
		CompanyID:        c.CompanyID,
		ContractID:       c.ID,
		EmployeeID:       c.EmployeeID,
		SettlementNumber: number,
		TerminationDate:  t.date,
		CauseCode:        t.causeCode,
		NoticeGiven:      t.noticeGiven,
		NoticeDays:       t.noticeDays,
		CreatedAt:        now,
	})
	if err != nil {
		return nil, &SettlementCreationError{ContractID: c.ID, Err: err}
	}
	return created, nil
}

type validTermination struct {
	date        time.Time
	causeCode   string
	noticeGiven bool
	noticeDays  int
}

func validateTermination(d *TerminationDetails) (*validTermination, error) {
	if d == nil {
		return nil, fmt.Errorf("termination details are required: %w", ErrInvalidTermination)
	}
	if d.TerminationDate.IsZero() {
		return nil, fmt.Errorf("termination date is required: %w", ErrInvalidTermination)
	}
	if d.NoticeGiven == nil {
		return nil, fmt.Errorf("notice given is required: %w", ErrInvalidTermination)
	}

	code := strings.TrimSpace(d.CauseCode)
	if code == "" {
		return nil, fmt.Errorf("cause code is required: %w", ErrInvalidTermination)
	}
	if _, ok := causeCodes[code]; !ok {
		return nil, fmt.Errorf("%q: %w", code, ErrInvalidCauseCode)
	}

	days := 0
	if d.NoticeDays != nil {
		days = *d.NoticeDays
	}
	if days < 0 {
		return nil, fmt.Errorf("notice days must not be negative: %w", ErrInvalidTermination)
	}

	return &validTermination{
		date:        dateOf(d.TerminationDate),
		causeCode:   code,
		noticeGiven: *d.NoticeGiven,
		noticeDays:  days,
	}, nil
}

func normalizeRequired(raw string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", sentinel
	}
	return trimmed, nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := dateOf(*t)
	return &d
}

// IsNotFound は契約または従業員が存在しないことを示すエラーかを返します。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound) || errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrSettlementNotFound)
}
