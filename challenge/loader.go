package challenge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DuHerb/code-squad/types"
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

type fileTestCase struct {
	Input          []any `json:"input" yaml:"input" toml:"input"`
	ExpectedOutput any   `json:"expectedOutput" yaml:"expectedOutput" toml:"expectedOutput"`
}

type fileChallenge struct {
	ID           string         `json:"id" yaml:"id" toml:"id"`
	Name         string         `json:"name" yaml:"name" toml:"name"`
	Description  string         `json:"description" yaml:"description" toml:"description"`
	Difficulty   int            `json:"difficulty" yaml:"difficulty" toml:"difficulty"`
	FunctionName string         `json:"functionName" yaml:"functionName" toml:"functionName"`
	InitialCode  string         `json:"initialCode" yaml:"initialCode" toml:"initialCode"`
	TestCases    []fileTestCase `json:"testCases" yaml:"testCases" toml:"testCases"`
}

type catalogFile struct {
	Challenges []fileChallenge `json:"challenges" yaml:"challenges" toml:"challenges"`
}

// Load reads challenges from a .yaml / .yml, .toml or .json file
func Load(path string) ([]types.Challenge, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(filepath.Ext(path), b)
}

// Parse decodes a catalog document, ext selects the format
func Parse(ext string, b []byte) ([]types.Challenge, error) {
	var f catalogFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown catalog format %q", ext)
	}

	rt := make([]types.Challenge, 0, len(f.Challenges))
	for _, fc := range f.Challenges {
		c := types.Challenge{
			ID:           fc.ID,
			Name:         fc.Name,
			Description:  fc.Description,
			Difficulty:   fc.Difficulty,
			FunctionName: fc.FunctionName,
			InitialCode:  fc.InitialCode,
			TestCases:    make([]types.TestCase, 0, len(fc.TestCases)),
		}
		for i, tc := range fc.TestCases {
			in := make([]json.RawMessage, 0, len(tc.Input))
			for j, v := range tc.Input {
				cv, err := types.Canonical(v)
				if err != nil {
					return nil, fmt.Errorf("challenge %s: case %d: input %d: %w", fc.ID, i, j, err)
				}
				in = append(in, cv)
			}
			out, err := types.Canonical(tc.ExpectedOutput)
			if err != nil {
				return nil, fmt.Errorf("challenge %s: case %d: expected output: %w", fc.ID, i, err)
			}
			c.TestCases = append(c.TestCases, types.TestCase{Input: in, ExpectedOutput: out})
		}
		rt = append(rt, c)
	}
	return rt, nil
}

// Open loads the catalog file, or the builtin challenges when path is empty
func Open(path string) (*Memory, error) {
	if path == "" {
		return NewBuiltin(), nil
	}
	cs, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewMemory(cs...)
}
