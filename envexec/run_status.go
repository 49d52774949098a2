package envexec

import (
	"fmt"
	"strconv"
)

// Status defines run task Status return status
type Status int

// Defines run task Status result status
const (
	// not initialized status (as error)
	StatusInvalid Status = iota

	// returned normally
	StatusAccepted
	StatusWrongAnswer

	// submission could not be parsed
	StatusCompileError

	// function not defined or not callable
	StatusFunctionMissing

	// terminated
	StatusTimeLimitExceeded   // TLE
	StatusMemoryLimitExceeded // MLE
	StatusOutputLimitExceeded // OLE

	// script threw
	StatusRuntimeError // RE

	// internal error including: engine panic, environment build failed, etc
	StatusInternalError
)

var statusToString = []string{
	"Invalid",
	"Accepted",
	"Wrong Answer",
	"Compile Error",
	"Function Missing",
	"Time Limit Exceeded",
	"Memory Limit Exceeded",
	"Output Limit Exceeded",
	"Runtime Error",
	"Internal Error",
}

// stringToStatus map string to corresponding Status
var stringToStatus = make(map[string]Status)

func (s Status) String() string {
	si := int(s)
	if si < 0 || si >= len(statusToString) {
		return statusToString[0] // invalid
	}
	return statusToString[si]
}

// StringToStatus convert string to Status
func StringToStatus(s string) (Status, error) {
	v, ok := stringToStatus[s]
	if !ok {
		return 0, fmt.Errorf("invalid string converting: %s", s)
	}
	return v, nil
}

// MarshalJSON encodes status as string
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalJSON decodes status from string
func (s *Status) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	v, err := StringToStatus(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func init() {
	for i, v := range statusToString {
		stringToStatus[v] = Status(i)
	}
}
