package capacity

import (
	"errors"
	"fmt"
)

// Domain errors surfaced verbatim to callers; they drive user-facing
// messages and must not be swallowed or wrapped into generic failures.
var (
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrSectionNotFound    = errors.New("section not found")
	ErrVariantNotFound    = errors.New("variant not found")
	ErrAllocationNotFound = errors.New("allocation not found")
	ErrHoldNotFound       = errors.New("hold not found")
	ErrNotAvailable       = errors.New("capacity is not available for booking")
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrInvalidRelease     = errors.New("release quantity exceeds reserved capacity")
	ErrInvalidConfirm     = errors.New("confirm quantity exceeds remaining capacity")
	ErrHoldNotActive      = errors.New("hold is no longer active")
)

// InsufficientCapacityError carries the requested vs. available counts so
// the caller can render messages like "only 3 seats left".
type InsufficientCapacityError struct {
	Requested int
	Available int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: requested %d, available %d", e.Requested, e.Available)
}

// IsInsufficientCapacity reports whether err is an InsufficientCapacityError
func IsInsufficientCapacity(err error) bool {
	var ice *InsufficientCapacityError
	return errors.As(err, &ice)
}

// HierarchyValidationError describes a section whose child allocation
// totals exceed its own total capacity. Validation reports the mismatch;
// it never silently fixes data.
type HierarchyValidationError struct {
	SectionID      string
	SectionTotal   int
	AllocatedTotal int
}

func (e *HierarchyValidationError) Error() string {
	return fmt.Sprintf("section %s capacity mismatch: allocations total %d exceeds section total %d",
		e.SectionID, e.AllocatedTotal, e.SectionTotal)
}
