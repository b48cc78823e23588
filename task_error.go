package batchpool

import (
	"errors"
	"fmt"
)

// TaskError attributes a task failure to its position in a run. A
// [FailFast] pool returns it from [Pool.Process] when a task fails.
type TaskError struct {
	RunID string
	Batch int // zero-based batch number
	Index int // position of the task in the run's outcomes
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d (batch %d) failed: %v", e.Index, e.Batch, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsTaskError reports whether err (or any error in its chain) is a [*TaskError].
func IsTaskError(err error) bool {
	if err == nil {
		return false
	}
	var te *TaskError
	return errors.As(err, &te)
}

// CauseOf returns the underlying reason of the first [*TaskError] in err's
// chain. If err is not a TaskError, it is returned as-is.
func CauseOf(err error) error {
	if err == nil {
		return nil
	}
	var te *TaskError
	if errors.As(err, &te) {
		return te.Err
	}
	return err
}
