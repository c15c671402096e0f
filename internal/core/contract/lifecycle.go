package contract

import (
	"time"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/deadline"
)

var forward = map[Status]Status{
	StatusDraft:  StatusIssued,
	StatusIssued: StatusSigned,
	StatusSigned: StatusActive,
	StatusActive: StatusTerminated,
}

// CanTransition は from から to への遷移が許可されているかを返します。
// 前進は 1 段階ずつで、取消は draft と issued からのみ可能です。
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusCancelled {
		return from == StatusDraft || from == StatusIssued
	}
	next, ok := forward[from]
	return ok && next == to
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{Current: from, Requested: to}
	}
	return nil
}

// ExpirationStatus は today 時点の契約期限区分を返します。
// 無期契約や終了日のない契約は常に active/low です。
func ExpirationStatus(c *Contract, today time.Time) deadline.Classification {
	if c == nil || c.Type == TypeIndefinite || c.EndDate == nil {
		return deadline.NoExpiration()
	}
	return deadline.Classify(today, *c.EndDate, deadline.ContractExpiration)
}

// causeCodes は労働法典第 159 条から第 161 条に基づく終了事由です。
var causeCodes = map[string]string{
	"159-1": "mutual agreement",
	"159-2": "resignation",
	"159-3": "death of the worker",
	"159-4": "expiry of the agreed term",
	"159-5": "completion of the work or service",
	"159-6": "act of god or force majeure",
	"160-1": "serious misconduct",
	"160-2": "prohibited negotiations",
	"160-3": "unjustified absence",
	"160-4": "abandonment of work",
	"160-5": "actions affecting safety",
	"160-6": "material damage to facilities",
	"160-7": "serious breach of obligations",
	"161-1": "business needs",
	"161-2": "employer discretion",
}

// CauseDescription は終了事由コードの説明を返します。
func CauseDescription(code string) (string, bool) {
	desc, ok := causeCodes[code]
	return desc, ok
}

func isValidType(t Type) bool {
	switch t {
	case TypeIndefinite, TypeFixedTerm, TypeProject, TypePartTime:
		return true
	default:
		return false
	}
}

func isValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusIssued, StatusSigned, StatusActive, StatusTerminated, StatusCancelled:
		return true
	default:
		return false
	}
}
