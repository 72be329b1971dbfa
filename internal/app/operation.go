package app

import "time"

const opIDLayout = "20060102T150405Z"

// Operation tracks the CLI command being run. Its ID tags every log line
// the command writes, so one invocation can be followed through wl.log.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
}

// NewOperation creates an operation that started at now.
func NewOperation(name, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         now.UTC().Format(opIDLayout),
		Name:       name,
		Parameters: parameters,
		Status:     "success",
		StartedAt:  now,
	}
}

// Fail marks the operation as failed when err is not nil.
func (op *Operation) Fail(err error) {
	if err != nil {
		op.Status = "error"
	}
}

// Failed returns true if Fail was called with an error.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}
