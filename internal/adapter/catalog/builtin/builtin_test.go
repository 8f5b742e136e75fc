package builtin

import (
	"context"
	"testing"

	"gitlab.com/offlinejudge.net/internal/domain"
)

func TestBuiltinCatalog(t *testing.T) {
	catalog, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summaries, err := catalog.ListProblems(context.Background())
	if err != nil {
		t.Fatalf("ListProblems: %v", err)
	}
	wantOrder := []string{"twoSum", "reverseString", "maxSubArray", "isPalindrome"}
	if len(summaries) != len(wantOrder) {
		t.Fatalf("got %d problems", len(summaries))
	}
	for i, id := range wantOrder {
		if summaries[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, summaries[i].ID, id)
		}
	}

	rev, err := catalog.GetProblem(context.Background(), "reverseString")
	if err != nil {
		t.Fatalf("GetProblem: %v", err)
	}
	for i, tc := range rev.TestCases {
		if !tc.InPlace {
			t.Errorf("reverseString test %d should be in-place", i+1)
		}
	}

	maxSub, _ := catalog.GetProblem(context.Background(), "maxSubArray")
	if maxSub.Difficulty != domain.DifficultyMedium {
		t.Errorf("difficulty = %s", maxSub.Difficulty)
	}
	if got := maxSub.TestCases[3].ExpectedOutput; !domain.Equal(got, domain.Int(-1)) || got.Kind() != domain.KindInt {
		t.Errorf("expected output = %s (%s)", got, got.Kind())
	}
}
