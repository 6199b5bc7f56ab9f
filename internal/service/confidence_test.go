package service

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/veritaslabs/veritas/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClamp(t *testing.T) {
	if got := domain.Clamp(-0.2); got != 0 {
		t.Fatalf("expected clamp to 0, got %f", got)
	}
	if got := domain.Clamp(1.7); got != 1 {
		t.Fatalf("expected clamp to 1, got %f", got)
	}
	if got := domain.Clamp(0.42); got != 0.42 {
		t.Fatalf("expected 0.42 unchanged, got %f", got)
	}
}

func TestShouldPropagate(t *testing.T) {
	if ShouldPropagate(0.03, DefaultPropagationThreshold) {
		t.Fatal("expected 0.03 not to propagate")
	}
	if ShouldPropagate(DefaultPropagationThreshold, DefaultPropagationThreshold) {
		t.Fatal("expected change exactly at the threshold not to propagate")
	}
	if !ShouldPropagate(0.06, DefaultPropagationThreshold) {
		t.Fatal("expected 0.06 to propagate")
	}
	if !ShouldPropagate(-0.2, DefaultPropagationThreshold) {
		t.Fatal("expected negative changes to propagate on magnitude")
	}
}

func TestPlanPropagation(t *testing.T) {
	neighbors := []domain.ArgumentWithScore{
		{Argument: domain.Argument{ID: uuid.New()}, Similarity: 0.90},
		{Argument: domain.Argument{ID: uuid.New()}, Similarity: 0.87},
	}

	steps := PlanPropagation(0.2, DefaultTunables(), neighbors)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if !almostEqual(steps[0].Delta, 0.2*0.9*0.90) {
		t.Fatalf("expected delta %f, got %f", 0.2*0.9*0.90, steps[0].Delta)
	}
	if !almostEqual(steps[1].Delta, 0.2*0.9*0.87) {
		t.Fatalf("expected delta %f, got %f", 0.2*0.9*0.87, steps[1].Delta)
	}
	if steps[0].TargetID != neighbors[0].ID {
		t.Fatal("expected step order to follow neighbor order")
	}
}

func TestDiminishingImpact(t *testing.T) {
	if !almostEqual(DiminishingImpact(0.05, 1), 0.05) {
		t.Fatalf("expected first event at full impact, got %f", DiminishingImpact(0.05, 1))
	}
	if !almostEqual(DiminishingImpact(0.05, 4), 0.025) {
		t.Fatalf("expected fourth event at half impact, got %f", DiminishingImpact(0.05, 4))
	}
	if !almostEqual(DiminishingImpact(0.05, 0), 0.05) {
		t.Fatalf("expected zero count treated as one, got %f", DiminishingImpact(0.05, 0))
	}
}

func TestEffectiveConfidence(t *testing.T) {
	if !almostEqual(domain.EffectiveConfidence(0.6, nil), 0.6) {
		t.Fatal("expected no dependencies to leave confidence untouched")
	}

	deps := []domain.FactDependency{
		{FactConfidence: 0.4, DependencyStrength: 1.0},
	}
	if !almostEqual(domain.EffectiveConfidence(0.6, deps), 0.24) {
		t.Fatalf("expected 0.24, got %f", domain.EffectiveConfidence(0.6, deps))
	}

	// Strength 0 means the dependency cannot dampen at all.
	deps = []domain.FactDependency{
		{FactConfidence: 0.0, DependencyStrength: 0.0},
	}
	if !almostEqual(domain.EffectiveConfidence(0.6, deps), 0.6) {
		t.Fatalf("expected zero-strength dependency to be neutral, got %f", domain.EffectiveConfidence(0.6, deps))
	}

	deps = []domain.FactDependency{
		{FactConfidence: 0.5, DependencyStrength: 0.8},
		{FactConfidence: 1.0, DependencyStrength: 0.5},
	}
	want := 0.6 * ((1-0.8)+0.8*0.5) * ((1-0.5)+0.5*1.0)
	if !almostEqual(domain.EffectiveConfidence(0.6, deps), want) {
		t.Fatalf("expected %f, got %f", want, domain.EffectiveConfidence(0.6, deps))
	}
}

func TestPropagatedDelta(t *testing.T) {
	if !almostEqual(domain.PropagatedDelta(0.3, 0.9, 0.9), 0.3*0.9*0.9) {
		t.Fatalf("expected %f, got %f", 0.3*0.9*0.9, domain.PropagatedDelta(0.3, 0.9, 0.9))
	}
	if !almostEqual(domain.PropagatedDelta(-0.3, 0.9, 0.9), -0.3*0.9*0.9) {
		t.Fatal("expected sign to be preserved")
	}
}
