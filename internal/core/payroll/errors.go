package payroll

import "errors"

var (
	ErrInvalidCompanyID     = errors.New("payroll: invalid company id")
	ErrInvalidEmployeeID    = errors.New("payroll: invalid employee id")
	ErrInvalidPeriod        = errors.New("payroll: invalid period")
	ErrInvalidReferenceDate = errors.New("payroll: reference date is required")
)
