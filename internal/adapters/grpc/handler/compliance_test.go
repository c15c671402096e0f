package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/accident"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/contract"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/deadline"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/employee"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/payroll"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type stubContractUseCase struct {
	createInput contract.CreateContractInput
	createOut   *contract.Contract
	createErr   error

	transitionInput contract.TransitionInput
	transitionOut   *contract.TransitionResult
	transitionErr   error

	expirationInput contract.GetExpirationStatusInput
	expirationOut   *contract.ExpirationResult
}

func (s *stubContractUseCase) CreateContract(ctx context.Context, in contract.CreateContractInput) (*contract.Contract, error) {
	s.createInput = in
	return s.createOut, s.createErr
}

func (s *stubContractUseCase) GetContract(ctx context.Context, in contract.GetContractInput) (*contract.Contract, error) {
	return nil, contract.ErrContractNotFound
}

func (s *stubContractUseCase) Transition(ctx context.Context, in contract.TransitionInput) (*contract.TransitionResult, error) {
	s.transitionInput = in
	return s.transitionOut, s.transitionErr
}

func (s *stubContractUseCase) GetExpirationStatus(ctx context.Context, in contract.GetExpirationStatusInput) (*contract.ExpirationResult, error) {
	s.expirationInput = in
	return s.expirationOut, nil
}

func (s *stubContractUseCase) GetSettlement(ctx context.Context, in contract.GetContractInput) (*contract.Settlement, error) {
	return nil, contract.ErrSettlementNotFound
}

type stubPayrollUseCase struct {
	gateInput  payroll.GateInput
	gateOut    *payroll.GateResult
	batchInput payroll.BatchInput
	batchOut   *payroll.BatchResult
}

func (s *stubPayrollUseCase) CanGeneratePayroll(ctx context.Context, in payroll.GateInput) (*payroll.GateResult, error) {
	s.gateInput = in
	return s.gateOut, nil
}

func (s *stubPayrollUseCase) BatchCanGeneratePayroll(ctx context.Context, in payroll.BatchInput) (*payroll.BatchResult, error) {
	s.batchInput = in
	return s.batchOut, nil
}

type stubEmployeeUseCase struct {
	createInput employee.CreateEmployeeInput
	createOut   *employee.Employee
	createErr   error
}

func (s *stubEmployeeUseCase) CreateEmployee(ctx context.Context, in employee.CreateEmployeeInput) (*employee.Employee, error) {
	s.createInput = in
	return s.createOut, s.createErr
}

func (s *stubEmployeeUseCase) GetEmployee(ctx context.Context, in employee.GetEmployeeInput) (*employee.Employee, error) {
	return nil, employee.ErrEmployeeNotFound
}

func (s *stubEmployeeUseCase) ListEmployees(ctx context.Context, in employee.ListEmployeesInput) (*employee.ListEmployeesResult, error) {
	return &employee.ListEmployeesResult{}, nil
}

func (s *stubEmployeeUseCase) SetStatus(ctx context.Context, companyID, employeeID string, status employee.Status) error {
	return nil
}

type stubAccidentUseCase struct {
	getInput accident.GetAccidentInput
	getOut   *accident.Accident
}

func (s *stubAccidentUseCase) ReportAccident(ctx context.Context, in accident.ReportAccidentInput) (*accident.Accident, error) {
	return nil, accident.ErrInvalidEventAt
}

func (s *stubAccidentUseCase) GetAccident(ctx context.Context, in accident.GetAccidentInput) (*accident.Accident, error) {
	s.getInput = in
	return s.getOut, nil
}

func (s *stubAccidentUseCase) ListAccidents(ctx context.Context, in accident.ListAccidentsInput) (*accident.ListAccidentsResult, error) {
	return &accident.ListAccidentsResult{}, nil
}

func (s *stubAccidentUseCase) MarkAsSent(ctx context.Context, in accident.MarkAsSentInput) (*accident.Accident, error) {
	return nil, accident.ErrAlreadySent
}

const (
	testCompanyID       = "0b6f6a4e-3c1d-4f52-9a47-5d2e8c1b7a10"
	testEmployeeID      = "5a9d2c71-8e4b-4c3f-b0a6-1f7e2d9c4b21"
	testOtherEmployeeID = "5a9d2c71-8e4b-4c3f-b0a6-1f7e2d9c4b22"
	testContractID      = "c4e81f3b-2a6d-4b9e-8c57-3e0d1a2b6f31"
	testAccidentID      = "e7a3b5c9-1d2f-4e8a-9b6c-4d5e6f7a8b41"
)

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("failed to build struct: %v", err)
	}
	return s
}

func codeOf(err error) codes.Code {
	st, _ := status.FromError(err)
	return st.Code()
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
}

func TestComplianceHandler_DecodeRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	h := NewComplianceHandler(Services{Contracts: &stubContractUseCase{}})
	_, err := h.GetContract(context.Background(), mustStruct(t, map[string]any{
		"company_id":  testCompanyID,
		"contract_id": testContractID,
		"colour":      "blue",
	}))
	if codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for unknown field, got %v", err)
	}
}

func TestComplianceHandler_DecodeRejectsMissingRequired(t *testing.T) {
	t.Parallel()

	h := NewComplianceHandler(Services{Contracts: &stubContractUseCase{}})
	_, err := h.GetContract(context.Background(), mustStruct(t, map[string]any{"company_id": testCompanyID}))
	if codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for missing contract_id, got %v", err)
	}
	if st, _ := status.FromError(err); st.Message() != "contractRef.contract_id: failed on required" {
		t.Fatalf("unexpected message %q", st.Message())
	}

	if _, err := h.GetContract(context.Background(), nil); codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for nil request, got %v", err)
	}
}

func TestComplianceHandler_DecodeRejectsMalformedIDs(t *testing.T) {
	t.Parallel()

	h := NewComplianceHandler(Services{Contracts: &stubContractUseCase{}, Payroll: &stubPayrollUseCase{}})
	_, err := h.GetContract(context.Background(), mustStruct(t, map[string]any{
		"company_id":  testCompanyID,
		"contract_id": "ctr-1",
	}))
	if codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for malformed contract_id, got %v", err)
	}
	if st, _ := status.FromError(err); st.Message() != "contractRef.contract_id: failed on uuid" {
		t.Fatalf("unexpected message %q", st.Message())
	}

	_, err = h.BatchCanGeneratePayroll(context.Background(), mustStruct(t, map[string]any{
		"company_id":   testCompanyID,
		"employee_ids": []any{testEmployeeID, "emp-2"},
		"year":         2025,
		"month":        3,
	}))
	if codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for malformed employee id, got %v", err)
	}
	if st, _ := status.FromError(err); st.Message() != "payrollBatchRequest.employee_ids[1]: failed on uuid" {
		t.Fatalf("unexpected message %q", st.Message())
	}
}

func TestComplianceHandler_CreateContract(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	stub := &stubContractUseCase{createOut: &contract.Contract{
		ID:         testContractID,
		CompanyID:  testCompanyID,
		EmployeeID: testEmployeeID,
		Type:       contract.TypeFixedTerm,
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    &end,
		Status:     contract.StatusDraft,
		BaseSalary: decimal.NewFromInt(900000),
		Position:   "Analyst",
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}}

	h := NewComplianceHandler(Services{Contracts: stub})
	resp, err := h.CreateContract(context.Background(), mustStruct(t, map[string]any{
		"company_id":    testCompanyID,
		"employee_id":   testEmployeeID,
		"contract_type": "fixed_term",
		"start_date":    "2025-01-01",
		"end_date":      "2025-12-31",
		"base_salary":   "900000",
		"position":      "Analyst",
	}))
	if err != nil {
		t.Fatalf("CreateContract returned error: %v", err)
	}

	if stub.createInput.EndDate == nil || !stub.createInput.EndDate.Equal(end) {
		t.Errorf("expected end date parsed, got %+v", stub.createInput.EndDate)
	}
	if !stub.createInput.BaseSalary.Equal(decimal.NewFromInt(900000)) {
		t.Errorf("expected salary parsed, got %s", stub.createInput.BaseSalary)
	}

	c := resp.GetFields()["contract"].GetStructValue().GetFields()
	if c["status"].GetStringValue() != "draft" || c["end_date"].GetStringValue() != "2025-12-31" {
		t.Fatalf("unexpected contract payload %v", c)
	}
	if c["base_salary"].GetStringValue() != "900000" {
		t.Fatalf("expected salary as string, got %v", c["base_salary"])
	}
}

func TestComplianceHandler_CreateContract_InvalidDate(t *testing.T) {
	t.Parallel()

	h := NewComplianceHandler(Services{Contracts: &stubContractUseCase{}})
	_, err := h.CreateContract(context.Background(), mustStruct(t, map[string]any{
		"company_id":    testCompanyID,
		"employee_id":   testEmployeeID,
		"contract_type": "fixed_term",
		"start_date":    "2025/01/01",
		"position":      "Analyst",
	}))
	if codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for date format, got %v", err)
	}
}

func TestComplianceHandler_TransitionContract_Terminate(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	termination := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	stub := &stubContractUseCase{transitionOut: &contract.TransitionResult{
		OK:   true,
		From: contract.StatusActive,
		To:   contract.StatusTerminated,
		Contract: &contract.Contract{
			ID:        testContractID,
			Status:    contract.StatusTerminated,
			StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Version:   5,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Settlement: &contract.Settlement{
			ID:               "stl-1",
			ContractID:       testContractID,
			SettlementNumber: 12,
			TerminationDate:  termination,
			CauseCode:        "161-1",
			NoticeGiven:      true,
			NoticeDays:       30,
			CreatedAt:        now,
		},
	}}

	h := NewComplianceHandler(Services{Contracts: stub})
	resp, err := h.TransitionContract(context.Background(), mustStruct(t, map[string]any{
		"company_id":       testCompanyID,
		"contract_id":      testContractID,
		"target":           "terminated",
		"expected_version": 4,
		"termination": map[string]any{
			"termination_date": "2025-06-30",
			"cause_code":       "161-1",
			"notice_given":     true,
			"notice_days":      30,
		},
	}))
	if err != nil {
		t.Fatalf("TransitionContract returned error: %v", err)
	}

	in := stub.transitionInput
	if in.Target != contract.StatusTerminated || in.ExpectedVersion == nil || *in.ExpectedVersion != 4 {
		t.Errorf("unexpected transition input %+v", in)
	}
	if in.Termination == nil || in.Termination.NoticeGiven == nil || !*in.Termination.NoticeGiven {
		t.Fatalf("expected termination details, got %+v", in.Termination)
	}
	if !in.Termination.TerminationDate.Equal(termination) {
		t.Errorf("unexpected termination date %s", in.Termination.TerminationDate)
	}

	fields := resp.GetFields()
	if !fields["ok"].GetBoolValue() {
		t.Fatalf("expected ok=true")
	}
	settlement := fields["settlement"].GetStructValue().GetFields()
	if settlement["settlement_number"].GetNumberValue() != 12 {
		t.Fatalf("unexpected settlement number %v", settlement["settlement_number"])
	}
	if settlement["cause_description"].GetStringValue() == "" {
		t.Fatalf("expected cause description for 161-1")
	}
}

func TestComplianceHandler_TransitionContract_TerminationRequiresNotice(t *testing.T) {
	t.Parallel()

	h := NewComplianceHandler(Services{Contracts: &stubContractUseCase{}})
	_, err := h.TransitionContract(context.Background(), mustStruct(t, map[string]any{
		"company_id":  testCompanyID,
		"contract_id": testContractID,
		"target":      "terminated",
		"termination": map[string]any{
			"termination_date": "2025-06-30",
			"cause_code":       "161-1",
		},
	}))
	if codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument without notice_given, got %v", err)
	}
}

func TestComplianceHandler_TransitionContract_Rejected(t *testing.T) {
	t.Parallel()

	stub := &stubContractUseCase{transitionErr: &contract.InvalidTransitionError{Current: contract.StatusActive, Requested: contract.StatusIssued}}
	h := NewComplianceHandler(Services{Contracts: stub})

	_, err := h.TransitionContract(context.Background(), mustStruct(t, map[string]any{
		"company_id":  testCompanyID,
		"contract_id": testContractID,
		"target":      "issued",
	}))
	if codeOf(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestComplianceHandler_GetContractExpiration_DefaultsToday(t *testing.T) {
	t.Parallel()

	stub := &stubContractUseCase{expirationOut: &contract.ExpirationResult{
		Contract:       &contract.Contract{ID: testContractID},
		Classification: deadline.Classification{Tier: deadline.TierExpiringCritical, Urgency: deadline.UrgencyCritical, Days: 3, DiffDays: 3},
	}}
	h := NewComplianceHandler(Services{Contracts: stub})
	h.now = fixedNow

	resp, err := h.GetContractExpiration(context.Background(), mustStruct(t, map[string]any{
		"company_id":  testCompanyID,
		"contract_id": testContractID,
	}))
	if err != nil {
		t.Fatalf("GetContractExpiration returned error: %v", err)
	}

	if want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC); !stub.expirationInput.Today.Equal(want) {
		t.Errorf("expected today %s, got %s", want, stub.expirationInput.Today)
	}
	classification := resp.GetFields()["classification"].GetStructValue().GetFields()
	if classification["tier"].GetStringValue() != "expiring_critical" || classification["days"].GetNumberValue() != 3 {
		t.Fatalf("unexpected classification %v", classification)
	}
}

func TestComplianceHandler_CanGeneratePayroll(t *testing.T) {
	t.Parallel()

	stub := &stubPayrollUseCase{gateOut: &payroll.GateResult{
		EmployeeID:  testEmployeeID,
		Period:      payroll.Period{Year: 2025, Month: 3},
		Allowed:     false,
		Message:     "employee has no active contract",
		BlockReason: payroll.BlockReasonNoActiveContract,
		Suggestions: []string{"create a contract", "activate a signed contract"},
	}}
	h := NewComplianceHandler(Services{Payroll: stub})

	resp, err := h.CanGeneratePayroll(context.Background(), mustStruct(t, map[string]any{
		"company_id":  testCompanyID,
		"employee_id": testEmployeeID,
		"year":        2025,
		"month":       3,
		"today":       "2025-03-01",
	}))
	if err != nil {
		t.Fatalf("CanGeneratePayroll returned error: %v", err)
	}

	if stub.gateInput.Period != (payroll.Period{Year: 2025, Month: 3}) {
		t.Errorf("unexpected period %+v", stub.gateInput.Period)
	}
	fields := resp.GetFields()
	if fields["allowed"].GetBoolValue() || fields["block_reason"].GetStringValue() != "no_active_contract" {
		t.Fatalf("unexpected gate payload %v", fields)
	}
	if fields["period"].GetStringValue() != "2025-03" {
		t.Fatalf("unexpected period %v", fields["period"])
	}
	if len(fields["suggestions"].GetListValue().GetValues()) != 2 {
		t.Fatalf("expected two suggestions")
	}
}

func TestComplianceHandler_BatchCanGeneratePayroll_RequiresIDs(t *testing.T) {
	t.Parallel()

	h := NewComplianceHandler(Services{Payroll: &stubPayrollUseCase{}})
	_, err := h.BatchCanGeneratePayroll(context.Background(), mustStruct(t, map[string]any{
		"company_id":   testCompanyID,
		"employee_ids": []any{},
		"year":         2025,
		"month":        3,
	}))
	if codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for empty batch, got %v", err)
	}
}

func TestComplianceHandler_BatchCanGeneratePayroll(t *testing.T) {
	t.Parallel()

	allowed := payroll.GateResult{EmployeeID: testEmployeeID, Allowed: true, Message: "payroll can be generated"}
	blocked := payroll.GateResult{EmployeeID: testOtherEmployeeID, BlockReason: payroll.BlockReasonEvaluationFailed, Message: "boom"}
	stub := &stubPayrollUseCase{batchOut: &payroll.BatchResult{
		Period:  payroll.Period{Year: 2025, Month: 4},
		Results: []payroll.GateResult{allowed, blocked},
		Valid:   []payroll.GateResult{allowed},
		Invalid: []payroll.GateResult{blocked},
	}}
	h := NewComplianceHandler(Services{Payroll: stub})

	resp, err := h.BatchCanGeneratePayroll(context.Background(), mustStruct(t, map[string]any{
		"company_id":   testCompanyID,
		"employee_ids": []any{testEmployeeID, testOtherEmployeeID},
		"year":         2025,
		"month":        4,
	}))
	if err != nil {
		t.Fatalf("BatchCanGeneratePayroll returned error: %v", err)
	}

	if len(stub.batchInput.EmployeeIDs) != 2 {
		t.Errorf("expected employee ids passed, got %v", stub.batchInput.EmployeeIDs)
	}
	fields := resp.GetFields()
	if len(fields["results"].GetListValue().GetValues()) != 2 || len(fields["invalid"].GetListValue().GetValues()) != 1 {
		t.Fatalf("unexpected batch payload %v", fields)
	}
	if len(fields["warnings"].GetListValue().GetValues()) != 0 {
		t.Fatalf("expected empty warnings")
	}
}

func TestComplianceHandler_GetAccident_IncludesDeadline(t *testing.T) {
	t.Parallel()

	event := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	stub := &stubAccidentUseCase{getOut: &accident.Accident{
		ID:         testAccidentID,
		EventAt:    event,
		DiatStatus: accident.DiatStatusOverdue,
		Version:    2,
		CreatedAt:  event,
		UpdatedAt:  event,
	}}
	h := NewComplianceHandler(Services{Accidents: stub})

	resp, err := h.GetAccident(context.Background(), mustStruct(t, map[string]any{
		"company_id":  testCompanyID,
		"accident_id": testAccidentID,
		"today":       "2025-05-04",
	}))
	if err != nil {
		t.Fatalf("GetAccident returned error: %v", err)
	}

	if !stub.getInput.Today.Equal(time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected today %s", stub.getInput.Today)
	}
	a := resp.GetFields()["accident"].GetStructValue().GetFields()
	if a["diat_status"].GetStringValue() != "overdue" {
		t.Fatalf("unexpected status %v", a["diat_status"])
	}
	if a["deadline"].GetStructValue().GetFields()["tier"].GetStringValue() != string(deadline.TierExpired) {
		t.Fatalf("expected expired deadline, got %v", a["deadline"])
	}
}

func TestComplianceHandler_ServiceErrorsAreMapped(t *testing.T) {
	t.Parallel()

	h := NewComplianceHandler(Services{
		Employees: &stubEmployeeUseCase{createErr: employee.ErrRUTAlreadyExists},
		Accidents: &stubAccidentUseCase{},
	})

	_, err := h.CreateEmployee(context.Background(), mustStruct(t, map[string]any{
		"company_id": testCompanyID,
		"rut":        "12.345.678-5",
		"full_name":  "María González",
	}))
	if codeOf(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	_, err = h.MarkDiatSent(context.Background(), mustStruct(t, map[string]any{
		"company_id":  testCompanyID,
		"accident_id": testAccidentID,
		"diat_number": "DIAT-1",
	}))
	if codeOf(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition for repeated send, got %v", err)
	}

	_, err = h.ReportAccident(context.Background(), mustStruct(t, map[string]any{
		"company_id":  testCompanyID,
		"employee_id": testEmployeeID,
		"event_at":    "yesterday",
		"description": "fall",
	}))
	if codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for event_at, got %v", err)
	}
}

func TestComplianceHandler_ComputeDiscountCeiling(t *testing.T) {
	t.Parallel()

	h := NewComplianceHandler(Services{})
	resp, err := h.ComputeDiscountCeiling(context.Background(), mustStruct(t, map[string]any{
		"monthly_salary":     "900000",
		"days_worked":        30,
		"proposed_deduction": "150000",
	}))
	if err != nil {
		t.Fatalf("ComputeDiscountCeiling returned error: %v", err)
	}

	fields := resp.GetFields()
	if fields["ceiling"].GetStringValue() != "135000" {
		t.Fatalf("unexpected ceiling %v", fields["ceiling"])
	}
	if fields["ratio"].GetStringValue() != "1.1111" || !fields["exceeds_limit"].GetBoolValue() {
		t.Fatalf("unexpected verdict %v", fields)
	}

	_, err = h.ComputeDiscountCeiling(context.Background(), mustStruct(t, map[string]any{
		"monthly_salary":     "900000",
		"days_worked":        25,
		"days_on_leave":      10,
		"proposed_deduction": "1",
	}))
	if codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for days over 30, got %v", err)
	}
}

func TestToStatusError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"invalid", contract.ErrInvalidCauseCode, codes.InvalidArgument},
		{"not found", contract.ErrContractNotFound, codes.NotFound},
		{"active exists", contract.ErrActiveContractExists, codes.FailedPrecondition},
		{"conflict", contract.ErrConcurrentModification, codes.Aborted},
		{"accident conflict", accident.ErrConcurrentModification, codes.Aborted},
		{"settlement", &contract.SettlementCreationError{ContractID: testContractID, Err: errors.New("sequence down")}, codes.Internal},
		{"settlement conflict", &contract.SettlementCreationError{ContractID: testContractID, Err: contract.ErrConcurrentModification}, codes.Internal},
		{"unknown", errors.New("boom"), codes.Internal},
	}

	for _, tc := range cases {
		if got := codeOf(toStatusError(tc.err)); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}

	if toStatusError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
