package judge

import "gitlab.com/offlinejudge.net/internal/domain"

// AssembleReport folds per-test results, already in index order, into a
// report. A run without results never counts as passed.
func AssembleReport(results []domain.TestResult) *domain.RunReport {
	report := &domain.RunReport{
		TestResults: make([]domain.TestResult, 0, len(results)),
		TotalCount:  len(results),
	}
	allPassed := len(results) > 0
	for _, res := range results {
		report.TestResults = append(report.TestResults, res)
		if res.Passed {
			report.PassedCount++
		} else {
			allPassed = false
		}
	}
	report.AllPassed = allPassed
	return report
}

// AssembleGlobalError builds the report of a run that never reached its tests
func AssembleGlobalError(err *domain.JudgeError) *domain.RunReport {
	msg := err.Message
	return &domain.RunReport{
		TestResults:     []domain.TestResult{},
		GlobalError:     &msg,
		GlobalErrorKind: err.Kind,
	}
}
