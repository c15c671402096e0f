package accident

import "errors"

var (
	ErrInvalidID              = errors.New("accident: invalid id")
	ErrInvalidCompanyID       = errors.New("accident: invalid company id")
	ErrInvalidEmployeeID      = errors.New("accident: invalid employee id")
	ErrInvalidEventAt         = errors.New("accident: invalid event time")
	ErrInvalidDescription     = errors.New("accident: invalid description")
	ErrInvalidDiatNumber      = errors.New("accident: invalid diat number")
	ErrInvalidStatus          = errors.New("accident: invalid diat status")
	ErrInvalidReferenceDate   = errors.New("accident: reference date is required")
	ErrInvalidPageSize        = errors.New("accident: invalid page size")
	ErrInvalidPageToken       = errors.New("accident: invalid page token")
	ErrAccidentNotFound       = errors.New("accident: not found")
	ErrEmployeeNotFound       = errors.New("accident: employee not found")
	ErrAlreadySent            = errors.New("accident: diat already sent")
	ErrConcurrentModification = errors.New("accident: concurrent modification")
)
