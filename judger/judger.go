package judger

import (
	"errors"

	"github.com/DuHerb/code-squad/envexec"
	"github.com/DuHerb/code-squad/types"
	"go.uber.org/zap"
)

// Structural errors, reported before anything is compiled
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrChallengeNotFound = errors.New("challenge not found")
)

// DefaultMaxSourceSize bounds the submitted source when MaxSourceSize is not set
const DefaultMaxSourceSize = 64 << 10

// Catalog looks up challenges by id
type Catalog interface {
	Get(id string) (*types.Challenge, bool)
}

// Notifier records that a user completed a challenge
type Notifier interface {
	NotifyCompleted(challengeID string)
}

// Judger runs submissions against the test suite of a challenge.
// It holds no per-submission state and is safe for concurrent use.
type Judger struct {
	Builder envexec.Builder
	Catalog Catalog
	Logger  *zap.Logger

	// GateLimit is used to check that the source compiles,
	// CaseLimit for every test case
	GateLimit envexec.Limit
	CaseLimit envexec.Limit

	MaxSourceSize int
}

// Request is a single submission
type Request struct {
	RequestID   string
	ChallengeID string
	Source      string

	// Notifier is told once when every test case passed, may be nil
	Notifier Notifier
}
