package handler

import (
	"time"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/accident"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/contract"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/deadline"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/discount"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/employee"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/loan"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/payroll"
	"github.com/shopspring/decimal"
)

type createEmployeeRequest struct {
	CompanyID string `json:"company_id" validate:"required,uuid"`
	RUT       string `json:"rut" validate:"required"`
	FullName  string `json:"full_name" validate:"required"`
	Status    string `json:"status,omitempty"`
	HiredAt   string `json:"hired_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type getEmployeeRequest struct {
	CompanyID  string `json:"company_id" validate:"required,uuid"`
	EmployeeID string `json:"employee_id" validate:"required,uuid"`
}

type listEmployeesRequest struct {
	CompanyID string `json:"company_id" validate:"required,uuid"`
	PageSize  int    `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
	Status    string `json:"status,omitempty"`
}

type createContractRequest struct {
	CompanyID  string          `json:"company_id" validate:"required,uuid"`
	EmployeeID string          `json:"employee_id" validate:"required,uuid"`
	Type       string          `json:"contract_type" validate:"required"`
	StartDate  string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string          `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	BaseSalary decimal.Decimal `json:"base_salary"`
	Position   string          `json:"position" validate:"required"`
}

type contractRef struct {
	CompanyID  string `json:"company_id" validate:"required,uuid"`
	ContractID string `json:"contract_id" validate:"required,uuid"`
}

type terminationRequest struct {
	TerminationDate string `json:"termination_date" validate:"required,datetime=2006-01-02"`
	CauseCode       string `json:"cause_code" validate:"required"`
	NoticeGiven     *bool  `json:"notice_given" validate:"required"`
	NoticeDays      *int   `json:"notice_days,omitempty"`
}

type transitionContractRequest struct {
	CompanyID       string              `json:"company_id" validate:"required,uuid"`
	ContractID      string              `json:"contract_id" validate:"required,uuid"`
	Target          string              `json:"target" validate:"required"`
	ExpectedVersion *int64              `json:"expected_version,omitempty"`
	Termination     *terminationRequest `json:"termination,omitempty"`
}

type contractExpirationRequest struct {
	CompanyID  string `json:"company_id" validate:"required,uuid"`
	ContractID string `json:"contract_id" validate:"required,uuid"`
	Today      string `json:"today,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type payrollGateRequest struct {
	CompanyID  string `json:"company_id" validate:"required,uuid"`
	EmployeeID string `json:"employee_id" validate:"required,uuid"`
	Year       int    `json:"year" validate:"required"`
	Month      int    `json:"month" validate:"required"`
	Today      string `json:"today,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type payrollBatchRequest struct {
	CompanyID   string   `json:"company_id" validate:"required,uuid"`
	EmployeeIDs []string `json:"employee_ids" validate:"required,min=1,dive,uuid"`
	Year        int      `json:"year" validate:"required"`
	Month       int      `json:"month" validate:"required"`
	Today       string   `json:"today,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type reportAccidentRequest struct {
	CompanyID   string `json:"company_id" validate:"required,uuid"`
	EmployeeID  string `json:"employee_id" validate:"required,uuid"`
	EventAt     string `json:"event_at" validate:"required"`
	Description string `json:"description" validate:"required"`
	Location    string `json:"location,omitempty"`
}

type accidentRef struct {
	CompanyID  string `json:"company_id" validate:"required,uuid"`
	AccidentID string `json:"accident_id" validate:"required,uuid"`
	Today      string `json:"today,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type listAccidentsRequest struct {
	CompanyID  string `json:"company_id" validate:"required,uuid"`
	EmployeeID string `json:"employee_id,omitempty" validate:"omitempty,uuid"`
	Status     string `json:"diat_status,omitempty"`
	PageSize   int    `json:"page_size,omitempty"`
	PageToken  string `json:"page_token,omitempty"`
	Today      string `json:"today,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type markDiatSentRequest struct {
	CompanyID  string `json:"company_id" validate:"required,uuid"`
	AccidentID string `json:"accident_id" validate:"required,uuid"`
	DiatNumber string `json:"diat_number" validate:"required"`
}

type originateLoanRequest struct {
	CompanyID           string          `json:"company_id" validate:"required,uuid"`
	EmployeeID          string          `json:"employee_id" validate:"required,uuid"`
	Amount              decimal.Decimal `json:"amount"`
	InterestRate        decimal.Decimal `json:"interest_rate"`
	Installments        int             `json:"installments" validate:"required"`
	MonthlySalary       decimal.Decimal `json:"monthly_salary"`
	DaysWorked          *int            `json:"days_worked,omitempty"`
	DaysOnLeave         int             `json:"days_on_leave,omitempty"`
	FirstDueYear        int             `json:"first_due_year,omitempty"`
	FirstDueMonth       int             `json:"first_due_month,omitempty"`
	AuthorizationSigned bool            `json:"authorization_signed,omitempty"`
	AuthorizationDate   string          `json:"authorization_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type loanRef struct {
	CompanyID string `json:"company_id" validate:"required,uuid"`
	LoanID    string `json:"loan_id" validate:"required,uuid"`
}

type discountCeilingRequest struct {
	MonthlySalary     decimal.Decimal `json:"monthly_salary"`
	DaysWorked        *int            `json:"days_worked" validate:"required"`
	DaysOnLeave       int             `json:"days_on_leave,omitempty"`
	ProposedDeduction decimal.Decimal `json:"proposed_deduction"`
}

type employeeMessage struct {
	ID           string  `json:"id"`
	CompanyID    string  `json:"company_id"`
	RUT          string  `json:"rut"`
	FullName     string  `json:"full_name"`
	Status       string  `json:"status"`
	HiredAt      *string `json:"hired_at,omitempty"`
	TerminatedAt *string `json:"terminated_at,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toEmployeeMessage(e *employee.Employee) *employeeMessage {
	if e == nil {
		return nil
	}
	return &employeeMessage{
		ID:           e.ID,
		CompanyID:    e.CompanyID,
		RUT:          e.RUT,
		FullName:     e.FullName,
		Status:       string(e.Status),
		HiredAt:      formatDate(e.HiredAt),
		TerminatedAt: formatDate(e.TerminatedAt),
		CreatedAt:    *formatTimestamp(&e.CreatedAt),
		UpdatedAt:    *formatTimestamp(&e.UpdatedAt),
	}
}

type contractMessage struct {
	ID              string  `json:"id"`
	CompanyID       string  `json:"company_id"`
	EmployeeID      string  `json:"employee_id"`
	Type            string  `json:"contract_type"`
	StartDate       string  `json:"start_date"`
	EndDate         *string `json:"end_date,omitempty"`
	Status          string  `json:"status"`
	BaseSalary      string  `json:"base_salary"`
	Position        string  `json:"position"`
	IssuedAt        *string `json:"issued_at,omitempty"`
	SignedAt        *string `json:"signed_at,omitempty"`
	ActivatedAt     *string `json:"activated_at,omitempty"`
	TerminatedAt    *string `json:"terminated_at,omitempty"`
	TerminationDate *string `json:"termination_date,omitempty"`
	CancelledAt     *string `json:"cancelled_at,omitempty"`
	Version         int64   `json:"version"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toContractMessage(c *contract.Contract) *contractMessage {
	if c == nil {
		return nil
	}
	return &contractMessage{
		ID:              c.ID,
		CompanyID:       c.CompanyID,
		EmployeeID:      c.EmployeeID,
		Type:            string(c.Type),
		StartDate:       *formatDate(&c.StartDate),
		EndDate:         formatDate(c.EndDate),
		Status:          string(c.Status),
		BaseSalary:      c.BaseSalary.String(),
		Position:        c.Position,
		IssuedAt:        formatTimestamp(c.IssuedAt),
		SignedAt:        formatTimestamp(c.SignedAt),
		ActivatedAt:     formatTimestamp(c.ActivatedAt),
		TerminatedAt:    formatTimestamp(c.TerminatedAt),
		TerminationDate: formatDate(c.TerminationDate),
		CancelledAt:     formatTimestamp(c.CancelledAt),
		Version:         c.Version,
		CreatedAt:       *formatTimestamp(&c.CreatedAt),
		UpdatedAt:       *formatTimestamp(&c.UpdatedAt),
	}
}

type settlementMessage struct {
	ID               string `json:"id"`
	ContractID       string `json:"contract_id"`
	EmployeeID       string `json:"employee_id"`
	SettlementNumber int64  `json:"settlement_number"`
	TerminationDate  string `json:"termination_date"`
	CauseCode        string `json:"cause_code"`
	CauseDescription string `json:"cause_description,omitempty"`
	NoticeGiven      bool   `json:"notice_given"`
	NoticeDays       int    `json:"notice_days"`
	CreatedAt        string `json:"created_at"`
}

func toSettlementMessage(s *contract.Settlement) *settlementMessage {
	if s == nil {
		return nil
	}
	description, _ := contract.CauseDescription(s.CauseCode)
	return &settlementMessage{
		ID:               s.ID,
		ContractID:       s.ContractID,
		EmployeeID:       s.EmployeeID,
		SettlementNumber: s.SettlementNumber,
		TerminationDate:  *formatDate(&s.TerminationDate),
		CauseCode:        s.CauseCode,
		CauseDescription: description,
		NoticeGiven:      s.NoticeGiven,
		NoticeDays:       s.NoticeDays,
		CreatedAt:        *formatTimestamp(&s.CreatedAt),
	}
}

type transitionMessage struct {
	OK         bool               `json:"ok"`
	From       string             `json:"from"`
	To         string             `json:"to"`
	Contract   *contractMessage   `json:"contract"`
	Settlement *settlementMessage `json:"settlement,omitempty"`
}

type classificationMessage struct {
	Tier     string `json:"tier"`
	Urgency  string `json:"urgency"`
	Days     int    `json:"days"`
	DiffDays int    `json:"diff_days"`
}

func toClassificationMessage(c deadline.Classification) classificationMessage {
	return classificationMessage{
		Tier:     string(c.Tier),
		Urgency:  string(c.Urgency),
		Days:     c.Days,
		DiffDays: c.DiffDays,
	}
}

type expirationMessage struct {
	Contract       *contractMessage      `json:"contract"`
	Classification classificationMessage `json:"classification"`
}

type gateMessage struct {
	EmployeeID  string                 `json:"employee_id"`
	Period      string                 `json:"period"`
	Allowed     bool                   `json:"allowed"`
	Message     string                 `json:"message"`
	BlockReason string                 `json:"block_reason,omitempty"`
	Warning     string                 `json:"warning,omitempty"`
	Suggestions []string               `json:"suggestions,omitempty"`
	Expiration  *classificationMessage `json:"expiration,omitempty"`
	ContractID  string                 `json:"contract_id,omitempty"`
}

func toGateMessage(r payroll.GateResult) gateMessage {
	msg := gateMessage{
		EmployeeID:  r.EmployeeID,
		Period:      r.Period.String(),
		Allowed:     r.Allowed,
		Message:     r.Message,
		BlockReason: string(r.BlockReason),
		Warning:     r.Warning,
		Suggestions: r.Suggestions,
		ContractID:  r.ContractID,
	}
	if r.Expiration != nil {
		c := toClassificationMessage(*r.Expiration)
		msg.Expiration = &c
	}
	return msg
}

func toGateMessages(results []payroll.GateResult) []gateMessage {
	out := make([]gateMessage, 0, len(results))
	for _, r := range results {
		out = append(out, toGateMessage(r))
	}
	return out
}

type batchMessage struct {
	Period   string        `json:"period"`
	Results  []gateMessage `json:"results"`
	Valid    []gateMessage `json:"valid"`
	Invalid  []gateMessage `json:"invalid"`
	Warnings []gateMessage `json:"warnings"`
}

type accidentMessage struct {
	ID          string                `json:"id"`
	CompanyID   string                `json:"company_id"`
	EmployeeID  string                `json:"employee_id"`
	EventAt     string                `json:"event_at"`
	Description string                `json:"description"`
	Location    string                `json:"location,omitempty"`
	DiatStatus  string                `json:"diat_status"`
	DiatNumber  *string               `json:"diat_number,omitempty"`
	DiatSentAt  *string               `json:"diat_sent_at,omitempty"`
	Deadline    classificationMessage `json:"deadline"`
	Version     int64                 `json:"version"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
}

func toAccidentMessage(a *accident.Accident, today time.Time) *accidentMessage {
	if a == nil {
		return nil
	}
	return &accidentMessage{
		ID:          a.ID,
		CompanyID:   a.CompanyID,
		EmployeeID:  a.EmployeeID,
		EventAt:     *formatTimestamp(&a.EventAt),
		Description: a.Description,
		Location:    a.Location,
		DiatStatus:  string(a.DiatStatus),
		DiatNumber:  a.DiatNumber,
		DiatSentAt:  formatTimestamp(a.DiatSentAt),
		Deadline:    toClassificationMessage(accident.Deadline(a, today)),
		Version:     a.Version,
		CreatedAt:   *formatTimestamp(&a.CreatedAt),
		UpdatedAt:   *formatTimestamp(&a.UpdatedAt),
	}
}

type installmentMessage struct {
	Sequence       int    `json:"sequence"`
	DueYear        int    `json:"due_year"`
	DueMonth       int    `json:"due_month"`
	AmountExpected string `json:"amount_expected"`
	AmountApplied  string `json:"amount_applied"`
	AmountDeferred string `json:"amount_deferred"`
	Status         string `json:"status"`
}

type loanMessage struct {
	ID                  string               `json:"id"`
	CompanyID           string               `json:"company_id"`
	EmployeeID          string               `json:"employee_id"`
	Amount              string               `json:"amount"`
	InterestRate        string               `json:"interest_rate"`
	TotalAmount         string               `json:"total_amount"`
	Installments        int                  `json:"installments"`
	InstallmentAmount   string               `json:"installment_amount"`
	LegalCeiling        string               `json:"legal_ceiling"`
	CeilingRatio        string               `json:"ceiling_ratio"`
	ExceedsLegalLimit   bool                 `json:"exceeds_legal_limit"`
	AuthorizationSigned bool                 `json:"authorization_signed"`
	AuthorizationDate   *string              `json:"authorization_date,omitempty"`
	Schedule            []installmentMessage `json:"schedule"`
	CreatedAt           string               `json:"created_at"`
}

func toLoanMessage(l *loan.Loan) *loanMessage {
	if l == nil {
		return nil
	}
	schedule := make([]installmentMessage, 0, len(l.Schedule))
	for _, in := range l.Schedule {
		schedule = append(schedule, installmentMessage{
			Sequence:       in.Sequence,
			DueYear:        in.DueYear,
			DueMonth:       in.DueMonth,
			AmountExpected: in.AmountExpected.String(),
			AmountApplied:  in.AmountApplied.String(),
			AmountDeferred: in.AmountDeferred.String(),
			Status:         string(in.Status),
		})
	}
	return &loanMessage{
		ID:                  l.ID,
		CompanyID:           l.CompanyID,
		EmployeeID:          l.EmployeeID,
		Amount:              l.Amount.String(),
		InterestRate:        l.InterestRate.String(),
		TotalAmount:         l.TotalAmount.String(),
		Installments:        l.Installments,
		InstallmentAmount:   l.InstallmentAmount.String(),
		LegalCeiling:        l.LegalCeiling.String(),
		CeilingRatio:        l.CeilingRatio.String(),
		ExceedsLegalLimit:   l.ExceedsLegalLimit,
		AuthorizationSigned: l.AuthorizationSigned,
		AuthorizationDate:   formatDate(l.AuthorizationDate),
		Schedule:            schedule,
		CreatedAt:           *formatTimestamp(&l.CreatedAt),
	}
}

type ceilingMessage struct {
	EffectiveSalary string `json:"effective_salary"`
	Ceiling         string `json:"ceiling"`
	Proposed        string `json:"proposed"`
	Ratio           string `json:"ratio"`
	ExceedsLimit    bool   `json:"exceeds_limit"`
	Unbounded       bool   `json:"unbounded"`
}

func toCeilingMessage(v discount.Verdict) ceilingMessage {
	return ceilingMessage{
		EffectiveSalary: v.EffectiveSalary.String(),
		Ceiling:         v.Ceiling.String(),
		Proposed:        v.Proposed.String(),
		Ratio:           v.Ratio.String(),
		ExceedsLimit:    v.ExceedsLimit,
		Unbounded:       v.Unbounded,
	}
}
