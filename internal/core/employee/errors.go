package employee

import "errors"

var (
	ErrInvalidID        = errors.New("employee: invalid id")
	ErrInvalidCompanyID = errors.New("employee: invalid company id")
	ErrInvalidRUT       = errors.New("employee: invalid rut")
	ErrInvalidFullName  = errors.New("employee: invalid full name")
	ErrInvalidStatus    = errors.New("employee: invalid status")
	ErrInvalidPageSize  = errors.New("employee: invalid page size")
	ErrInvalidPageToken = errors.New("employee: invalid page token")
	ErrInvalidDateRange = errors.New("employee: invalid employment period")
	ErrEmployeeNotFound = errors.New("employee: not found")
	ErrRUTAlreadyExists = errors.New("employee: rut already exists")
)
