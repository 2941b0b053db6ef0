package enricher

import (
	"fmt"
)

// BatchFailure is a batch whose provider calls failed after all retries.
// Its keywords are marked missing and the run moves on to the next batch.
type BatchFailure struct {
	Index    int
	Endpoint string
	Keywords []string
	Err      error
}

func (e *BatchFailure) Error() string {
	return fmt.Sprintf("batch %d failed on %s (%d keywords): %v", e.Index, e.Endpoint, len(e.Keywords), e.Err)
}

func (e *BatchFailure) Unwrap() error {
	return e.Err
}

// Reason is the missing-data marker written onto the batch's rows
func (e *BatchFailure) Reason() string {
	return fmt.Sprintf("batch %d failed: %v", e.Index, e.Err)
}
