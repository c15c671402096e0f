package loan

import "errors"

var (
	ErrInvalidID            = errors.New("loan: invalid id")
	ErrInvalidCompanyID     = errors.New("loan: invalid company id")
	ErrInvalidEmployeeID    = errors.New("loan: invalid employee id")
	ErrInvalidAmount        = errors.New("loan: amount must be positive")
	ErrInvalidInterestRate  = errors.New("loan: interest rate must not be negative")
	ErrInvalidInstallments  = errors.New("loan: installments must be between 1 and 48")
	ErrInvalidFirstDue      = errors.New("loan: invalid first due month")
	ErrInvalidAuthorization = errors.New("loan: authorization date given without signed authorization")
	ErrNoActiveContract     = errors.New("loan: employee has no single active contract to take the salary from")
	ErrLoanNotFound         = errors.New("loan: not found")
	ErrEmployeeNotFound     = errors.New("loan: employee not found")
)
