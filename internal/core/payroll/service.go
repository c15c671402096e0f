package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/contract"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/deadline"
)

const defaultBatchConcurrency = 8

// ActiveContractLister は従業員の有効な契約を取得します。
type ActiveContractLister interface {
	ListActiveByEmployee(ctx context.Context, companyID, employeeID string) ([]*contract.Contract, error)
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Dependencies は Service の依存をまとめます。
type Dependencies struct {
	Contracts ActiveContractLister
	Tx        TransactionManager
	Logger    *slog.Logger
	// BatchConcurrency は一括判定で同時に評価する従業員数の上限です。0 以下の場合は既定値を使います。
	BatchConcurrency int
}

// Service は給与計算の可否を判定します。
type Service struct {
	contracts   ActiveContractLister
	tx          TransactionManager
	logger      *slog.Logger
	concurrency int
}

// UseCase は給与判定ユースケースの公開インターフェースです。
type UseCase interface {
	CanGeneratePayroll(ctx context.Context, in GateInput) (*GateResult, error)
	BatchCanGeneratePayroll(ctx context.Context, in BatchInput) (*BatchResult, error)
}

// NewService は Service を生成します。
func NewService(deps Dependencies) *Service {
	s := &Service{
		contracts:   deps.Contracts,
		tx:          deps.Tx,
		logger:      deps.Logger,
		concurrency: deps.BatchConcurrency,
	}
	if s.tx == nil {
		s.tx = noopTransactionManager{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultBatchConcurrency
	}
	return s
}

// GateInput は従業員 1 名の判定入力です。
type GateInput struct {
	CompanyID  string
	EmployeeID string
	Period     Period
	Today      time.Time
}

// BatchInput は一括判定の入力です。
type BatchInput struct {
	CompanyID   string
	EmployeeIDs []string
	Period      Period
	Today       time.Time
}

// CanGeneratePayroll は従業員の有効な契約と期限区分から給与計算の可否を判定します。
// 判定による拒否はエラーではなく GateResult として返します。
func (s *Service) CanGeneratePayroll(ctx context.Context, in GateInput) (*GateResult, error) {
	companyID, err := validateCommon(in.CompanyID, in.Period, in.Today)
	if err != nil {
		return nil, err
	}
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		return nil, ErrInvalidEmployeeID
	}

	return s.evaluate(ctx, companyID, employeeID, in.Period, in.Today)
}

// BatchCanGeneratePayroll は複数の従業員を並行に判定します。
// 個々の評価失敗は evaluation_failed として Invalid に入り、一括処理全体は失敗しません。
func (s *Service) BatchCanGeneratePayroll(ctx context.Context, in BatchInput) (*BatchResult, error) {
	companyID, err := validateCommon(in.CompanyID, in.Period, in.Today)
	if err != nil {
		return nil, err
	}

	ids := uniqueIDs(in.EmployeeIDs)
	results := make([]GateResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if id == "" {
				results[i] = failed(id, in.Period, ErrInvalidEmployeeID)
				return nil
			}
			res, err := s.evaluate(gctx, companyID, id, in.Period, in.Today)
			if err != nil {
				s.logger.WarnContext(gctx, "payroll gate evaluation failed",
					slog.String("company_id", companyID),
					slog.String("employee_id", id),
					slog.String("error", err.Error()),
				)
				results[i] = failed(id, in.Period, err)
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	// 各評価はエラーを返さないため Wait は常に nil になる
	_ = g.Wait()

	batch := &BatchResult{Period: in.Period, Results: results}
	for _, r := range results {
		if !r.Allowed {
			batch.Invalid = append(batch.Invalid, r)
			continue
		}
		batch.Valid = append(batch.Valid, r)
		if r.HasWarning() {
			batch.Warnings = append(batch.Warnings, r)
		}
	}

	s.logger.InfoContext(ctx, "payroll batch evaluated",
		slog.String("company_id", companyID),
		slog.String("period", in.Period.String()),
		slog.Int("valid", len(batch.Valid)),
		slog.Int("invalid", len(batch.Invalid)),
		slog.Int("warnings", len(batch.Warnings)),
	)

	return batch, nil
}

func (s *Service) evaluate(ctx context.Context, companyID, employeeID string, period Period, today time.Time) (*GateResult, error) {
	var active []*contract.Contract
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		list, err := s.contracts.ListActiveByEmployee(txCtx, companyID, employeeID)
		if err != nil {
			return err
		}
		active = list
		return nil
	}); err != nil {
		return nil, fmt.Errorf("list active contracts: %w", err)
	}

	result := &GateResult{EmployeeID: employeeID, Period: period}

	switch len(active) {
	case 0:
		result.BlockReason = BlockReasonNoActiveContract
		result.Message = "employee has no active contract"
		result.Suggestions = []string{
			"create a contract for the employee",
			"activate the employee's signed contract",
		}
		return result, nil
	case 1:
	default:
		result.BlockReason = BlockReasonMultipleActiveContracts
		result.Message = fmt.Sprintf("employee has %d active contracts", len(active))
		result.Suggestions = []string{"terminate the duplicated active contracts before generating payroll"}
		return result, nil
	}

	c := active[0]
	classification := contract.ExpirationStatus(c, today)
	result.ContractID = c.ID
	result.Expiration = &classification

	switch classification.Tier {
	case deadline.TierExpired:
		result.BlockReason = BlockReasonContractExpired
		result.Message = fmt.Sprintf("contract expired %s ago", dayCount(classification.Days))
		result.Suggestions = expiredSuggestions()
	case deadline.TierExpiresToday:
		result.BlockReason = BlockReasonContractExpired
		result.Message = "contract expires today"
		result.Suggestions = expiredSuggestions()
	case deadline.TierExpiringCritical, deadline.TierExpiringUrgent:
		result.Allowed = true
		result.Warning = fmt.Sprintf("contract expires in %s", dayCount(classification.Days))
		result.Message = "payroll can be generated; " + result.Warning
		result.Suggestions = []string{"renew the contract before it expires"}
	default:
		result.Allowed = true
		result.Message = "payroll can be generated"
	}

	return result, nil
}

func expiredSuggestions() []string {
	return []string{
		"renew the contract with a new end date",
		"terminate the contract and generate the settlement",
	}
}

func failed(employeeID string, period Period, err error) GateResult {
	return GateResult{
		EmployeeID:  employeeID,
		Period:      period,
		BlockReason: BlockReasonEvaluationFailed,
		Message:     err.Error(),
	}
}

func dayCount(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func validateCommon(rawCompanyID string, period Period, today time.Time) (string, error) {
	companyID := strings.TrimSpace(rawCompanyID)
	if companyID == "" {
		return "", ErrInvalidCompanyID
	}
	if err := period.Validate(); err != nil {
		return "", err
	}
	if today.IsZero() {
		return "", ErrInvalidReferenceDate
	}
	return companyID, nil
}

func uniqueIDs(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
