package model

import (
	"math"
	"testing"
)

func TestKeyResultProgressClamped(t *testing.T) {
	kr := &KeyResult{StartValue: 0, TargetValue: 100, CurrentValue: 50}
	if got := kr.Progress(); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}

	kr.CurrentValue = 150
	if got := kr.Progress(); got != 100 {
		t.Fatalf("expected overshoot clamped to 100, got %v", got)
	}

	kr.CurrentValue = -10
	if got := kr.Progress(); got != 0 {
		t.Fatalf("expected undershoot clamped to 0, got %v", got)
	}
}

func TestKeyResultProgressDecreasingTarget(t *testing.T) {
	// Reduction goals run target below start.
	kr := &KeyResult{StartValue: 200, TargetValue: 100, CurrentValue: 150}
	if got := kr.Progress(); got != 50 {
		t.Fatalf("expected 50 halfway down, got %v", got)
	}
}

func TestKeyResultProgressZeroSpan(t *testing.T) {
	kr := &KeyResult{StartValue: 10, TargetValue: 10, CurrentValue: 10}
	if got := kr.Progress(); got != 0 {
		t.Fatalf("expected 0 for a degenerate span, got %v", got)
	}
}

func TestRollupProgressWeightedMean(t *testing.T) {
	links := []ObjectiveKeyResult{
		{Weight: 1, KeyResult: &KeyResult{ProgressPct: 100}},
		{Weight: 3, KeyResult: &KeyResult{ProgressPct: 0}},
	}
	if got := RollupProgress(links); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
}

func TestRollupProgressSkipsZeroWeightAndNil(t *testing.T) {
	links := []ObjectiveKeyResult{
		{Weight: 0, KeyResult: &KeyResult{ProgressPct: 100}},
		{Weight: 2, KeyResult: nil},
		{Weight: 1, KeyResult: &KeyResult{ProgressPct: 40}},
	}
	if got := RollupProgress(links); got != 40 {
		t.Fatalf("expected 40, got %v", got)
	}

	if got := RollupProgress(nil); got != 0 {
		t.Fatalf("expected 0 with no links, got %v", got)
	}
	if got := RollupProgress([]ObjectiveKeyResult{{Weight: 0, KeyResult: &KeyResult{ProgressPct: 80}}}); got != 0 {
		t.Fatalf("expected 0 with no positive weights, got %v", got)
	}
}

func TestRollupProgressFractionalWeights(t *testing.T) {
	links := []ObjectiveKeyResult{
		{Weight: 0.5, KeyResult: &KeyResult{ProgressPct: 60}},
		{Weight: 1.5, KeyResult: &KeyResult{ProgressPct: 20}},
	}
	if got := RollupProgress(links); math.Abs(got-30) > 1e-9 {
		t.Fatalf("expected 30, got %v", got)
	}
}

func TestIsValidOKRStatus(t *testing.T) {
	for _, s := range []OKRStatus{StatusOnTrack, StatusAtRisk, StatusOffTrack, StatusCompleted, StatusCancelled} {
		if !IsValidOKRStatus(s) {
			t.Fatalf("expected %s valid", s)
		}
	}
	if IsValidOKRStatus(OKRStatus("DONE")) {
		t.Fatalf("expected DONE rejected")
	}
}
