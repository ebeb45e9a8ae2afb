package services

import "errors"

// Typed failures surfaced to callers. Controllers map these onto HTTP
// status codes; none are swallowed inside the services.
var (
	// ErrDuplicateDispatch means assignments already exist for the
	// requested date within the caller's vehicle scope.
	ErrDuplicateDispatch = errors.New("dispatch already exists for this date")

	// ErrNoEligibleStudents means the cohort filter left nobody to place.
	ErrNoEligibleStudents = errors.New("no eligible students for dispatch")

	// ErrNoAvailableVehicle means no vehicle in scope has a driver.
	ErrNoAvailableVehicle = errors.New("no available vehicle with an assigned driver")

	// ErrInvalidTransition means a dispatch status update would move
	// backwards or leave a terminal state.
	ErrInvalidTransition = errors.New("invalid dispatch status transition")

	// ErrNoStartWindow means a subscription extension was requested for
	// a student whose end date was never set.
	ErrNoStartWindow = errors.New("subscription end date is not set")

	// ErrAuthorization means the operator's scope does not cover the
	// target of a mutating call.
	ErrAuthorization = errors.New("operation not permitted for this operator")

	// ErrNotFound means an unknown student, vehicle, class or
	// assignment identifier.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRequest means a malformed service input, such as a
	// special request without students or a reason.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRequestResolved means a special request was already approved
	// or rejected.
	ErrRequestResolved = errors.New("special request already resolved")

	// Pairing failures.
	ErrVehicleTaken   = errors.New("vehicle already has a driver")
	ErrDriverTaken    = errors.New("driver already has a vehicle")
	ErrNotADriver     = errors.New("user does not hold the driver role")
	ErrBranchMismatch = errors.New("driver and vehicle belong to different branches")

	// ErrPersistence wraps transient storage failures, including
	// constraint races. Callers decide whether to retry.
	ErrPersistence = errors.New("persistence failure")
)
