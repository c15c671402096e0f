package contract

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID                = errors.New("contract: invalid id")
	ErrInvalidCompanyID         = errors.New("contract: invalid company id")
	ErrInvalidEmployeeID        = errors.New("contract: invalid employee id")
	ErrInvalidType              = errors.New("contract: invalid type")
	ErrInvalidStatus            = errors.New("contract: invalid status")
	ErrInvalidDateRange         = errors.New("contract: end date before start date")
	ErrEndDateRequired          = errors.New("contract: end date is required for this contract type")
	ErrUnexpectedEndDate        = errors.New("contract: indefinite contracts cannot have an end date")
	ErrInvalidSalary            = errors.New("contract: invalid base salary")
	ErrInvalidPosition          = errors.New("contract: invalid position")
	ErrInvalidTermination       = errors.New("contract: invalid termination details")
	ErrInvalidCauseCode         = errors.New("contract: unknown termination cause code")
	ErrContractNotFound         = errors.New("contract: not found")
	ErrEmployeeNotFound         = errors.New("contract: employee not found")
	ErrSettlementNotFound       = errors.New("contract: settlement not found")
	ErrActiveContractExists     = errors.New("contract: employee already has an active contract")
	ErrInvalidTransition        = errors.New("contract: invalid transition")
	ErrConcurrentModification   = errors.New("contract: concurrent modification")
	ErrSettlementCreationFailed = errors.New("contract: settlement creation failed")
)

// InvalidTransitionError は現在の状態から要求された状態へ遷移できないことを表します。
type InvalidTransitionError struct {
	Current   Status
	Requested Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("contract: invalid transition from %s to %s", e.Current, e.Requested)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// SettlementCreationError は清算書の採番または登録に失敗したことを表します。
// 契約の終了遷移全体が取り消されます。
type SettlementCreationError struct {
	ContractID string
	Err        error
}

func (e *SettlementCreationError) Error() string {
	return fmt.Sprintf("contract: settlement creation failed for %s: %v", e.ContractID, e.Err)
}

func (e *SettlementCreationError) Unwrap() []error {
	return []error{ErrSettlementCreationFailed, e.Err}
}

// IsRetryable は再取得のうえ再試行すれば成功しうるエラーかを返します。
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrSettlementCreationFailed)
}
