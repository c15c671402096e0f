package handler

import (
	"errors"

	"github.com/ogurasousui/codex-hr-compliance/internal/core/accident"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/contract"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/discount"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/employee"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/loan"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/payroll"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var invalidArgumentErrors = []error{
	employee.ErrInvalidID,
	employee.ErrInvalidCompanyID,
	employee.ErrInvalidRUT,
	employee.ErrInvalidFullName,
	employee.ErrInvalidStatus,
	employee.ErrInvalidPageSize,
	employee.ErrInvalidPageToken,
	employee.ErrInvalidDateRange,
	contract.ErrInvalidID,
	contract.ErrInvalidCompanyID,
	contract.ErrInvalidEmployeeID,
	contract.ErrInvalidType,
	contract.ErrInvalidStatus,
	contract.ErrInvalidDateRange,
	contract.ErrEndDateRequired,
	contract.ErrUnexpectedEndDate,
	contract.ErrInvalidSalary,
	contract.ErrInvalidPosition,
	contract.ErrInvalidTermination,
	contract.ErrInvalidCauseCode,
	payroll.ErrInvalidCompanyID,
	payroll.ErrInvalidEmployeeID,
	payroll.ErrInvalidPeriod,
	payroll.ErrInvalidReferenceDate,
	accident.ErrInvalidID,
	accident.ErrInvalidCompanyID,
	accident.ErrInvalidEmployeeID,
	accident.ErrInvalidEventAt,
	accident.ErrInvalidDescription,
	accident.ErrInvalidDiatNumber,
	accident.ErrInvalidStatus,
	accident.ErrInvalidReferenceDate,
	accident.ErrInvalidPageSize,
	accident.ErrInvalidPageToken,
	loan.ErrInvalidID,
	loan.ErrInvalidCompanyID,
	loan.ErrInvalidEmployeeID,
	loan.ErrInvalidAmount,
	loan.ErrInvalidInterestRate,
	loan.ErrInvalidInstallments,
	loan.ErrInvalidFirstDue,
	loan.ErrInvalidAuthorization,
	discount.ErrInvalidAmount,
	discount.ErrInvalidDays,
}

var notFoundErrors = []error{
	employee.ErrEmployeeNotFound,
	contract.ErrContractNotFound,
	contract.ErrEmployeeNotFound,
	contract.ErrSettlementNotFound,
	accident.ErrAccidentNotFound,
	accident.ErrEmployeeNotFound,
	loan.ErrLoanNotFound,
	loan.ErrEmployeeNotFound,
}

var failedPreconditionErrors = []error{
	contract.ErrInvalidTransition,
	contract.ErrActiveContractExists,
	discount.ErrLegalLimitExceeded,
	accident.ErrAlreadySent,
	loan.ErrNoActiveContract,
}

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, contract.ErrSettlementCreationFailed):
		return status.Error(codes.Internal, err.Error()+" (retry the transition)")
	case isAny(err, invalidArgumentErrors):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, employee.ErrRUTAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case isAny(err, notFoundErrors):
		return status.Error(codes.NotFound, err.Error())
	case isAny(err, failedPreconditionErrors):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, contract.ErrConcurrentModification), errors.Is(err, accident.ErrConcurrentModification):
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
