package challenge

import (
	"github.com/DuHerb/code-squad/types"
	"github.com/goccy/go-json"
)

func call(expected any, input ...any) types.TestCase {
	in := make([]json.RawMessage, 0, len(input))
	for _, v := range input {
		in = append(in, types.MustCanonical(v))
	}
	return types.TestCase{
		Input:          in,
		ExpectedOutput: types.MustCanonical(expected),
	}
}

// Builtin returns the debugging challenges shipped with the server
func Builtin() []types.Challenge {
	return []types.Challenge{
		{
			ID:           "hello-world-typo",
			Name:         "Debug: Hello World Typo",
			Description:  "Debug the function to fix the typo in the return statement.",
			Difficulty:   1,
			FunctionName: "greet",
			InitialCode: "function greet(name) {\n" +
				"  // Fix the typo!\n" +
				"  retun 'Hello, ' + name + '!';\n" +
				"}",
			TestCases: []types.TestCase{
				call("Hello, World!", "World"),
				call("Hello, Code Squad!", "Code Squad"),
			},
		},
		{
			ID:           "simple-add",
			Name:         "Debug: Simple Addition",
			Description:  "Debug the function to correctly add two numbers.",
			Difficulty:   1,
			FunctionName: "add",
			InitialCode: "function add(a, b) {\n" +
				"  // Debug this function - it's not adding correctly!\n" +
				"  return a - b; // Logical error: subtraction instead of addition\n" +
				"}",
			TestCases: []types.TestCase{
				call(3, 1, 2),
				call(5, 10, -5),
				call(0, 0, 0),
			},
		},
		{
			ID:           "sum-array",
			Name:         "Debug: Sum Array Elements",
			Description:  "Debug the function to correctly sum array elements. Pay attention to the empty array case.",
			Difficulty:   2,
			FunctionName: "sumArray",
			InitialCode: "function sumArray(numbers) {\n" +
				"  // Debug this function - it doesn't handle all cases correctly.\n" +
				"  if (numbers.length === 0) {\n" +
				"     // What should happen here?\n" +
				"  }\n" +
				"  return numbers.reduce((sum, current) => sum + current); // Fails on empty array, initial value needed\n" +
				"}",
			TestCases: []types.TestCase{
				call(6, []int{1, 2, 3}),
				call(7, []int{10, -5, 2}),
				call(5, []int{5}),
				call(0, []int{}),
				call(0, []int{0, 0, 0}),
			},
		},
		{
			ID:           "reverse-string",
			Name:         "Debug: Reverse String",
			Description:  "Debug the function to correctly reverse the string.",
			Difficulty:   2,
			FunctionName: "reverseString",
			InitialCode: "function reverseString(str) {\n" +
				"  // Debug this function - it's not reversing fully.\n" +
				"  let reversed = '';\n" +
				"  for (let i = str.length - 1; i > 0; i--) { // Off-by-one error (should be i >= 0)\n" +
				"    reversed += str[i];\n" +
				"  }\n" +
				"  return reversed;\n" +
				"}",
			TestCases: []types.TestCase{
				call("olleh", "hello"),
				call("dlrow", "world"),
				call("a", "a"),
				call("", ""),
			},
		},
		{
			ID:           "is-even",
			Name:         "Debug: Is Even?",
			Description:  "Debug the function to correctly determine if a number is even.",
			Difficulty:   1,
			FunctionName: "isEven",
			InitialCode: "function isEven(num) {\n" +
				"  // Debug this function - the condition is wrong.\n" +
				"  return num % 2 === 1; // Logical error: checks for odd instead of even\n" +
				"}",
			TestCases: []types.TestCase{
				call(true, 2),
				call(false, 3),
				call(true, 0),
				call(true, -4),
				call(false, -7),
			},
		},
	}
}

// NewBuiltin returns a catalog of the builtin challenges
func NewBuiltin() *Memory {
	m, err := NewMemory(Builtin()...)
	if err != nil {
		panic(err)
	}
	return m
}
