package costs

import (
	"math"
	"testing"
)

func TestTrackerAccumulates(t *testing.T) {
	tr := NewTracker("gemini-2.5-flash")
	tr.AddUsage(1000, 500)
	tr.AddUsage(2000, 1500)

	if tr.InputTokens() != 3000 || tr.OutputTokens() != 2000 {
		t.Fatalf("tokens = %d/%d, want 3000/2000", tr.InputTokens(), tr.OutputTokens())
	}

	want := 3.0*0.0003 + 2.0*0.0025
	if math.Abs(tr.Cost()-want) > 1e-9 {
		t.Fatalf("cost = %f, want %f", tr.Cost(), want)
	}
}

func TestTrackerUnknownModelUsesDefaultPricing(t *testing.T) {
	known := NewTracker("gemini-2.5-flash")
	unknown := NewTracker("some-future-model")
	known.AddUsage(10000, 10000)
	unknown.AddUsage(10000, 10000)

	if known.Cost() != unknown.Cost() {
		t.Fatalf("unknown model cost %f, want default %f", unknown.Cost(), known.Cost())
	}
}

func TestTrackerZeroUsageIsFree(t *testing.T) {
	tr := NewTracker("gemini-2.5-pro")
	if tr.Cost() != 0 {
		t.Fatalf("cost = %f, want 0", tr.Cost())
	}
}
