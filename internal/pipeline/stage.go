package pipeline

import "fmt"

// Stage names one step of a run.
type Stage string

// Stages in execution order.
const (
	StageLoadCursor    Stage = "load_cursor"
	StageFetchPage     Stage = "fetch_page"
	StagePersistCursor Stage = "persist_cursor"
	StageProvision     Stage = "provision"
	StageLoad          Stage = "load"
)

// StageError records which stage aborted a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
