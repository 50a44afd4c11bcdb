package memory

import "fmt"

// CapacityInvariantError reports a tier holding more turns than its
// configured capacity after an ingest returned. This is a
// programming-error class, not a runtime condition: tier sizing
// guarantees it cannot happen, so the Manager panics with it instead of
// returning it.
type CapacityInvariantError struct {
	Tier     TierName
	Size     int
	Capacity int
}

func (e *CapacityInvariantError) Error() string {
	return fmt.Sprintf("memory: tier %s holds %d turns, capacity %d", e.Tier, e.Size, e.Capacity)
}
