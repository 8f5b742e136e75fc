package judge

import (
	"encoding/json"
	"testing"

	"gitlab.com/offlinejudge.net/internal/domain"
)

func TestAssembleReportEmpty(t *testing.T) {
	report := AssembleReport(nil)
	if report.AllPassed {
		t.Error("an empty run must not pass")
	}
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"testResults":[],"allPassed":false,"globalError":null,"passedCount":0,"totalCount":0}`
	if string(data) != want {
		t.Errorf("json = %s\nwant %s", data, want)
	}
}

func TestAssembleReportCounts(t *testing.T) {
	report := AssembleReport([]domain.TestResult{
		{Index: 1, Passed: true},
		{Index: 2, Passed: false},
		{Index: 3, Passed: true},
	})
	if report.AllPassed || report.PassedCount != 2 || report.TotalCount != 3 {
		t.Errorf("report = %+v", report)
	}

	report = AssembleReport([]domain.TestResult{{Index: 1, Passed: true}})
	if !report.AllPassed {
		t.Error("single passing test should pass the run")
	}
}

func TestAssembleGlobalError(t *testing.T) {
	report := AssembleGlobalError(domain.NewMissingSymbolError("function %q is not defined", "twoSum"))
	if report.GlobalError == nil || *report.GlobalError != `function "twoSum" is not defined` {
		t.Fatalf("globalError = %v", report.GlobalError)
	}
	if report.GlobalErrorKind != domain.FaultMissingSymbol || report.AllPassed || len(report.TestResults) != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestGradeRejectsNonTerminalOutcome(t *testing.T) {
	res := grade(0, domain.TestCase{ExpectedOutput: domain.Int(1)}, outcome{state: stateInvoking})
	if res.Passed || res.Error == nil || res.Fault != domain.FaultRuntime {
		t.Errorf("result = %+v", res)
	}
}
