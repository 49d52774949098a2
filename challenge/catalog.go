package challenge

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/DuHerb/code-squad/types"
	"github.com/goccy/go-json"
)

// ErrDuplicate is returned when two challenges share an id
var ErrDuplicate = errors.New("duplicate challenge id")

// Catalog provides read only access to challenges.
// Returned challenges must not be modified.
type Catalog interface {
	Get(id string) (*types.Challenge, bool)
	List() []*types.Challenge
}

var _ Catalog = &Memory{}

// Memory is an immutable in-memory catalog
type Memory struct {
	byID map[string]*types.Challenge
	list []*types.Challenge
}

// NewMemory validates the challenges and stores their test values in
// canonical JSON
func NewMemory(challenges ...types.Challenge) (*Memory, error) {
	m := &Memory{
		byID: make(map[string]*types.Challenge, len(challenges)),
		list: make([]*types.Challenge, 0, len(challenges)),
	}
	for i := range challenges {
		c, err := prepare(challenges[i])
		if err != nil {
			return nil, err
		}
		if _, ok := m.byID[c.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, c.ID)
		}
		m.byID[c.ID] = c
		m.list = append(m.list, c)
	}
	slices.SortStableFunc(m.list, func(a, b *types.Challenge) int {
		if a.Difficulty != b.Difficulty {
			return a.Difficulty - b.Difficulty
		}
		return strings.Compare(a.ID, b.ID)
	})
	return m, nil
}

// Get returns the challenge with the id
func (m *Memory) Get(id string) (*types.Challenge, bool) {
	c, ok := m.byID[id]
	return c, ok
}

// List returns every challenge sorted by difficulty, then id
func (m *Memory) List() []*types.Challenge {
	return slices.Clone(m.list)
}

// Len returns the number of challenges
func (m *Memory) Len() int {
	return len(m.list)
}

func prepare(c types.Challenge) (*types.Challenge, error) {
	if c.ID == "" {
		return nil, errors.New("challenge id is empty")
	}
	if !isIdentifier(c.FunctionName) {
		return nil, fmt.Errorf("challenge %s: invalid function name %q", c.ID, c.FunctionName)
	}
	cases := make([]types.TestCase, 0, len(c.TestCases))
	for i, tc := range c.TestCases {
		input := make([]json.RawMessage, 0, len(tc.Input))
		for j, v := range tc.Input {
			cv, err := types.CanonicalRaw(v)
			if err != nil {
				return nil, fmt.Errorf("challenge %s: case %d: input %d: %w", c.ID, i, j, err)
			}
			input = append(input, cv)
		}
		expected, err := types.CanonicalRaw(tc.ExpectedOutput)
		if err != nil {
			return nil, fmt.Errorf("challenge %s: case %d: expected output: %w", c.ID, i, err)
		}
		cases = append(cases, types.TestCase{Input: input, ExpectedOutput: expected})
	}
	c.TestCases = cases
	return &c, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
