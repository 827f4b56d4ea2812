package sales

// SaleStatus represents the lifecycle state of a sale
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "PENDING"
	SaleStatusCompleted SaleStatus = "COMPLETED"
	SaleStatusCancelled SaleStatus = "CANCELLED"
	SaleStatusReturned  SaleStatus = "RETURNED"
	SaleStatusOnHold    SaleStatus = "ON_HOLD"
)

// AllStatuses lists every valid status
var AllStatuses = []SaleStatus{
	SaleStatusPending,
	SaleStatusCompleted,
	SaleStatusCancelled,
	SaleStatusReturned,
	SaleStatusOnHold,
}

// IsValid checks if the status is a valid SaleStatus
func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusCancelled, SaleStatusReturned, SaleStatusOnHold:
		return true
	}
	return false
}

// String returns the string representation of SaleStatus
func (s SaleStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s SaleStatus) CanTransitionTo(target SaleStatus) bool {
	switch s {
	case SaleStatusPending:
		return target == SaleStatusCompleted || target == SaleStatusCancelled || target == SaleStatusOnHold
	case SaleStatusOnHold:
		return target == SaleStatusPending || target == SaleStatusCompleted || target == SaleStatusCancelled
	case SaleStatusCompleted:
		return target == SaleStatusReturned
	case SaleStatusCancelled, SaleStatusReturned:
		return false // Terminal states
	}
	return false
}

// HoldsStock reports whether line items in this status keep their stock reserved
func (s SaleStatus) HoldsStock() bool {
	switch s {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusOnHold:
		return true
	}
	return false
}

// AllowsItemChanges reports whether line items may be added, edited or removed
func (s SaleStatus) AllowsItemChanges() bool {
	return s == SaleStatusPending || s == SaleStatusOnHold
}
