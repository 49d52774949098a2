package judger

import "github.com/DuHerb/code-squad/types"

// Task receives progress of a single submission
type Task interface {
	// Parsed called when the challenge was found and the source accepted
	Parsed(*types.Challenge)

	// Compiled called when the compilation gate finished (success / fail)
	Compiled(*types.ProgressCompiled)

	// Progressed called when single test case finished
	Progressed(*types.ProgressProgressed)

	// Finished called with the final report
	Finished(*types.Report)
}

type nopTask struct{}

func (nopTask) Parsed(*types.Challenge)              {}
func (nopTask) Compiled(*types.ProgressCompiled)     {}
func (nopTask) Progressed(*types.ProgressProgressed) {}
func (nopTask) Finished(*types.Report)               {}
