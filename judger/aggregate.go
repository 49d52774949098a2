package judger

import "github.com/DuHerb/code-squad/types"

// Aggregate folds case results into a completed report.
// AllPassed is true for an empty list.
func Aggregate(results []types.TestResult) types.Report {
	if results == nil {
		results = []types.TestResult{}
	}
	allPassed := true
	for _, r := range results {
		if !r.Passed {
			allPassed = false
			break
		}
	}
	return types.Report{
		Status:    types.ReportCompleted,
		Results:   results,
		AllPassed: allPassed,
	}
}
