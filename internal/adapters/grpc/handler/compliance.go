package handler

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/accident"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/contract"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/discount"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/employee"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/loan"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/payroll"
	"google.golang.org/protobuf/types/known/structpb"
)

// Services は ComplianceHandler が呼び出すユースケースの集合です。
type Services struct {
	Employees employee.UseCase
	Contracts contract.UseCase
	Payroll   payroll.UseCase
	Accidents accident.UseCase
	Loans     loan.UseCase
}

// ComplianceHandler は ComplianceService の gRPC 実装です。
// リクエストとレスポンスはすべて google.protobuf.Struct で表現されます。
type ComplianceHandler struct {
	svc      Services
	validate *validator.Validate
	now      func() time.Time
}

// NewComplianceHandler は ComplianceHandler を生成します。
func NewComplianceHandler(svc Services) *ComplianceHandler {
	return &ComplianceHandler{svc: svc, validate: newValidator(), now: time.Now}
}

// CreateEmployee は従業員を登録します。
func (h *ComplianceHandler) CreateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in createEmployeeRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}

	hiredAt, err := parseDate("hired_at", in.HiredAt)
	if err != nil {
		return nil, err
	}

	var statusPtr *employee.Status
	if in.Status != "" {
		st := employee.Status(in.Status)
		statusPtr = &st
	}

	created, err := h.svc.Employees.CreateEmployee(ctx, employee.CreateEmployeeInput{
		CompanyID: in.CompanyID,
		RUT:       in.RUT,
		FullName:  in.FullName,
		Status:    statusPtr,
		HiredAt:   hiredAt,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(map[string]any{"employee": toEmployeeMessage(created)})
}

// GetEmployee は従業員を取得します。
func (h *ComplianceHandler) GetEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in getEmployeeRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}

	found, err := h.svc.Employees.GetEmployee(ctx, employee.GetEmployeeInput{CompanyID: in.CompanyID, ID: in.EmployeeID})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(map[string]any{"employee": toEmployeeMessage(found)})
}

// ListEmployees は従業員の一覧を取得します。
func (h *ComplianceHandler) ListEmployees(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in listEmployeesRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}

	var statusPtr *employee.Status
	if in.Status != "" {
		st := employee.Status(in.Status)
		statusPtr = &st
	}

	result, err := h.svc.Employees.ListEmployees(ctx, employee.ListEmployeesInput{
		CompanyID: in.CompanyID,
		PageSize:  in.PageSize,
		PageToken: in.PageToken,
		Status:    statusPtr,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	employees := make([]*employeeMessage, 0, len(result.Employees))
	for _, e := range result.Employees {
		employees = append(employees, toEmployeeMessage(e))
	}
	return encodeResponse(map[string]any{"employees": employees, "next_page_token": result.NextPageToken})
}

// CreateContract は draft 状態の契約を作成します。
func (h *ComplianceHandler) CreateContract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in createContractRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}

	start, err := parseDate("start_date", in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end_date", in.EndDate)
	if err != nil {
		return nil, err
	}

	created, err := h.svc.Contracts.CreateContract(ctx, contract.CreateContractInput{
		CompanyID:  in.CompanyID,
		EmployeeID: in.EmployeeID,
		Type:       contract.Type(in.Type),
		StartDate:  *start,
		EndDate:    end,
		BaseSalary: in.BaseSalary,
		Position:   in.Position,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(map[string]any{"contract": toContractMessage(created)})
}

// GetContract は契約を取得します。
func (h *ComplianceHandler) GetContract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in contractRef
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}

	found, err := h.svc.Contracts.GetContract(ctx, contract.GetContractInput{CompanyID: in.CompanyID, ID: in.ContractID})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(map[string]any{"contract": toContractMessage(found)})
}

// TransitionContract は契約の状態を遷移させます。terminated への遷移では清算書も返します。
func (h *ComplianceHandler) TransitionContract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in transitionContractRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}

	var details *contract.TerminationDetails
	if in.Termination != nil {
		terminationDate, err := parseDate("termination.termination_date", in.Termination.TerminationDate)
		if err != nil {
			return nil, err
		}
		details = &contract.TerminationDetails{
			TerminationDate: *terminationDate,
			CauseCode:       in.Termination.CauseCode,
			NoticeGiven:     in.Termination.NoticeGiven,
			NoticeDays:      in.Termination.NoticeDays,
		}
	}

	result, err := h.svc.Contracts.Transition(ctx, contract.TransitionInput{
		CompanyID:       in.CompanyID,
		ContractID:      in.ContractID,
		Target:          contract.Status(in.Target),
		ExpectedVersion: in.ExpectedVersion,
		Termination:     details,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return encodeResponse(transitionMessage{
		OK:         result.OK,
		From:       string(result.From),
		To:         string(result.To),
		Contract:   toContractMessage(result.Contract),
		Settlement: toSettlementMessage(result.Settlement),
	})
}

// GetContractExpiration は契約の期限区分を返します。
func (h *ComplianceHandler) GetContractExpiration(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in contractExpirationRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}
	today, err := h.referenceDate(in.Today)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.Contracts.GetExpirationStatus(ctx, contract.GetExpirationStatusInput{
		CompanyID:  in.CompanyID,
		ContractID: in.ContractID,
		Today:      today,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return encodeResponse(expirationMessage{
		Contract:       toContractMessage(result.Contract),
		Classification: toClassificationMessage(result.Classification),
	})
}

// GetSettlement は契約に紐づく清算書を取得します。
func (h *ComplianceHandler) GetSettlement(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in contractRef
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}

	found, err := h.svc.Contracts.GetSettlement(ctx, contract.GetContractInput{CompanyID: in.CompanyID, ID: in.ContractID})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(map[string]any{"settlement": toSettlementMessage(found)})
}

// CanGeneratePayroll は従業員 1 名の給与計算可否を判定します。
func (h *ComplianceHandler) CanGeneratePayroll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in payrollGateRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}
	today, err := h.referenceDate(in.Today)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.Payroll.CanGeneratePayroll(ctx, payroll.GateInput{
		CompanyID:  in.CompanyID,
		EmployeeID: in.EmployeeID,
		Period:     payroll.Period{Year: in.Year, Month: in.Month},
		Today:      today,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(toGateMessage(*result))
}

// BatchCanGeneratePayroll は複数従業員の給与計算可否を一括判定します。
func (h *ComplianceHandler) BatchCanGeneratePayroll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in payrollBatchRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}
	today, err := h.referenceDate(in.Today)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.Payroll.BatchCanGeneratePayroll(ctx, payroll.BatchInput{
		CompanyID:   in.CompanyID,
		EmployeeIDs: in.EmployeeIDs,
		Period:      payroll.Period{Year: in.Year, Month: in.Month},
		Today:       today,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return encodeResponse(batchMessage{
		Period:   result.Period.String(),
		Results:  toGateMessages(result.Results),
		Valid:    toGateMessages(result.Valid),
		Invalid:  toGateMessages(result.Invalid),
		Warnings: toGateMessages(result.Warnings),
	})
}

// ReportAccident は労災を登録します。
func (h *ComplianceHandler) ReportAccident(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in reportAccidentRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}
	eventAt, err := parseTimestamp("event_at", in.EventAt)
	if err != nil {
		return nil, err
	}

	created, err := h.svc.Accidents.ReportAccident(ctx, accident.ReportAccidentInput{
		CompanyID:   in.CompanyID,
		EmployeeID:  in.EmployeeID,
		EventAt:     eventAt,
		Description: in.Description,
		Location:    in.Location,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	today, _ := h.referenceDate("")
	return encodeResponse(map[string]any{"accident": toAccidentMessage(created, today)})
}

// GetAccident は期限を再評価したうえで労災を取得します。
func (h *ComplianceHandler) GetAccident(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in accidentRef
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}
	today, err := h.referenceDate(in.Today)
	if err != nil {
		return nil, err
	}

	found, err := h.svc.Accidents.GetAccident(ctx, accident.GetAccidentInput{CompanyID: in.CompanyID, ID: in.AccidentID, Today: today})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(map[string]any{"accident": toAccidentMessage(found, today)})
}

// ListAccidents は期限を再評価したうえで労災の一覧を取得します。
func (h *ComplianceHandler) ListAccidents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in listAccidentsRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}
	today, err := h.referenceDate(in.Today)
	if err != nil {
		return nil, err
	}

	var statusPtr *accident.DiatStatus
	if in.Status != "" {
		st := accident.DiatStatus(in.Status)
		statusPtr = &st
	}

	result, err := h.svc.Accidents.ListAccidents(ctx, accident.ListAccidentsInput{
		CompanyID:  in.CompanyID,
		EmployeeID: in.EmployeeID,
		Status:     statusPtr,
		PageSize:   in.PageSize,
		PageToken:  in.PageToken,
		Today:      today,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	accidents := make([]*accidentMessage, 0, len(result.Accidents))
	for _, a := range result.Accidents {
		accidents = append(accidents, toAccidentMessage(a, today))
	}
	return encodeResponse(map[string]any{"accidents": accidents, "next_page_token": result.NextPageToken})
}

// MarkDiatSent は DIAT の提出を記録します。
func (h *ComplianceHandler) MarkDiatSent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in markDiatSentRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}

	updated, err := h.svc.Accidents.MarkAsSent(ctx, accident.MarkAsSentInput{
		CompanyID:  in.CompanyID,
		AccidentID: in.AccidentID,
		DiatNumber: in.DiatNumber,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	today, _ := h.referenceDate("")
	return encodeResponse(map[string]any{"accident": toAccidentMessage(updated, today)})
}

// OriginateLoan は法定控除上限を確認して貸付を実行します。
func (h *ComplianceHandler) OriginateLoan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in originateLoanRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}
	authorizedAt, err := parseDate("authorization_date", in.AuthorizationDate)
	if err != nil {
		return nil, err
	}

	created, err := h.svc.Loans.OriginateLoan(ctx, loan.OriginateLoanInput{
		CompanyID:           in.CompanyID,
		EmployeeID:          in.EmployeeID,
		Amount:              in.Amount,
		InterestRate:        in.InterestRate,
		Installments:        in.Installments,
		MonthlySalary:       in.MonthlySalary,
		DaysWorked:          in.DaysWorked,
		DaysOnLeave:         in.DaysOnLeave,
		FirstDueYear:        in.FirstDueYear,
		FirstDueMonth:       in.FirstDueMonth,
		AuthorizationSigned: in.AuthorizationSigned,
		AuthorizationDate:   authorizedAt,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(map[string]any{"loan": toLoanMessage(created)})
}

// GetLoan は貸付と返済予定を取得します。
func (h *ComplianceHandler) GetLoan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in loanRef
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}

	found, err := h.svc.Loans.GetLoan(ctx, loan.GetLoanInput{CompanyID: in.CompanyID, ID: in.LoanID})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(map[string]any{"loan": toLoanMessage(found)})
}

// ComputeDiscountCeiling は控除額が法定上限内かを判定します。永続化は行いません。
func (h *ComplianceHandler) ComputeDiscountCeiling(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in discountCeilingRequest
	if err := h.decodeRequest(req, &in); err != nil {
		return nil, err
	}

	verdict, err := discount.ComputeCeiling(discount.CeilingInput{
		MonthlySalary:     in.MonthlySalary,
		DaysWorked:        *in.DaysWorked,
		DaysOnLeave:       in.DaysOnLeave,
		ProposedDeduction: in.ProposedDeduction,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(toCeilingMessage(verdict))
}
