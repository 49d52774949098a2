package types

import "github.com/goccy/go-json"

// Challenge defines a coding challenge and its hidden test suite.
// It is owned by the catalog and never mutated once loaded.
type Challenge struct {
	ID           string
	Name         string
	Description  string
	Difficulty   int
	FunctionName string
	InitialCode  string
	TestCases    []TestCase
}

// TestCase defines a single call of the challenge function.
// Input holds the positional arguments, every value in canonical JSON.
type TestCase struct {
	Input          []json.RawMessage
	ExpectedOutput json.RawMessage
}
