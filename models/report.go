package models

// UpdateState is where a product ended up after one run.
type UpdateState string

const (
	StatePending            UpdateState = "PENDING"
	StateSkippedAlreadyDone UpdateState = "SKIPPED_ALREADY_DONE"
	StateSkippedNoData      UpdateState = "SKIPPED_NO_DATA"
	StateUpdated            UpdateState = "UPDATED"
	StateFailed             UpdateState = "FAILED"
)

// ProductResult records the outcome of one product's update step.
type ProductResult struct {
	Product Product
	State   UpdateState
	Stats   *DailyStats
	Err     error
}

// RunReport collects all product results of a run, in processing order.
type RunReport struct {
	RunID   string
	Results []ProductResult
}

// Count returns how many products ended in the given state.
func (r *RunReport) Count(state UpdateState) int {
	n := 0
	for _, res := range r.Results {
		if res.State == state {
			n++
		}
	}
	return n
}

// Failed reports whether any product failed.
func (r *RunReport) Failed() bool {
	return r.Count(StateFailed) > 0
}
