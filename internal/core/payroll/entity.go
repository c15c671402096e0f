package payroll

import (
	"fmt"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/deadline"
)

// Period は給与計算の対象年月です。
type Period struct {
	Year  int
	Month int
}

// Validate は年月が有効な範囲にあるかを検証します。
func (p Period) Validate() error {
	if p.Year < 1900 || p.Month < 1 || p.Month > 12 {
		return ErrInvalidPeriod
	}
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// BlockReason は給与計算を拒否した理由です。
type BlockReason string

const (
	BlockReasonNoActiveContract        BlockReason = "no_active_contract"
	BlockReasonMultipleActiveContracts BlockReason = "multiple_active_contracts"
	BlockReasonContractExpired         BlockReason = "contract_expired"
	BlockReasonEvaluationFailed        BlockReason = "evaluation_failed"
)

// GateResult は従業員 1 名に対する判定結果です。
// Allowed が true でも Warning が空でない場合は呼び出し元で注意喚起する必要があります。
type GateResult struct {
	EmployeeID  string
	Period      Period
	Allowed     bool
	Message     string
	BlockReason BlockReason
	Warning     string
	Suggestions []string
	Expiration  *deadline.Classification
	ContractID  string
}

// HasWarning は警告付きで許可された結果かを返します。
func (r GateResult) HasWarning() bool {
	return r.Allowed && r.Warning != ""
}

// BatchResult は一括判定の結果です。
// Results は入力順 (重複を除く) に並び、Valid / Invalid / Warnings はその部分集合です。
type BatchResult struct {
	Period   Period
	Results  []GateResult
	Valid    []GateResult
	Invalid  []GateResult
	Warnings []GateResult
}
