package types

import (
	"fmt"
	"time"

	"github.com/criyle/go-sandbox/runner"
	"github.com/goccy/go-json"
)

// ErrorKind classifies why a single test case could not produce an output.
// The zero value means the case ran to completion.
type ErrorKind int

// Per-case error kinds. None of them affect sibling cases.
const (
	ErrorNone ErrorKind = iota
	ErrorFunctionMissing
	ErrorTimeout
	ErrorRuntimeThrow
	ErrorMemoryLimit
)

var errorKindToString = []string{
	"",
	"FunctionMissing",
	"Timeout",
	"RuntimeThrow",
	"MemoryLimit",
}

func (k ErrorKind) String() string {
	i := int(k)
	if i < 0 || i >= len(errorKindToString) {
		return errorKindToString[0]
	}
	return errorKindToString[i]
}

// MarshalJSON encodes the kind by name
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes the kind from its name
func (k *ErrorKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for i, v := range errorKindToString {
		if v == s {
			*k = ErrorKind(i)
			return nil
		}
	}
	return fmt.Errorf("invalid error kind: %q", s)
}

// TestResult contains the outcome of a single test case.
//
// When ErrorKind is set Output is empty and Passed is false. Otherwise Output
// holds the canonical return value (nil for undefined) and Passed tells whether
// it equals Expected.
type TestResult struct {
	Input     []json.RawMessage
	Output    json.RawMessage
	Expected  json.RawMessage
	Passed    bool
	ErrorKind ErrorKind
	Message   string

	// detail stats
	Time   time.Duration
	Memory runner.Size
}

// ReportStatus discriminates the execution report variants
type ReportStatus int

// Report variants
const (
	ReportCompleted ReportStatus = iota + 1
	ReportCompileFailed
)

func (s ReportStatus) String() string {
	switch s {
	case ReportCompleted:
		return "Completed"
	case ReportCompileFailed:
		return "CompileFailed"
	default:
		return "Invalid"
	}
}

// Report is the single result produced for a submission.
// A CompileFailed report carries only CompileError; a Completed report has one
// result per test case in catalog order.
type Report struct {
	Status       ReportStatus
	CompileError string
	Results      []TestResult
	AllPassed    bool
}

// ProgressStatus defines progress status
type ProgressStatus int

// Whether progress success / fail
const (
	ProgressSucceeded ProgressStatus = iota + 1
	ProgressFailed
)

// ProgressCompiled compiled progress
type ProgressCompiled struct {
	Status  ProgressStatus
	Message string // diagnostic if failed
}

// ProgressProgressed contains progress of current task
type ProgressProgressed struct {
	// defines which test case finished
	TestCaseIndex int
	TestCaseCount int

	// test case result
	TestResult
}
