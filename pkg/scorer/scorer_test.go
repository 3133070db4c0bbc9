package scorer

import (
	"math"
	"testing"

	"github.com/paiche/paiche/pkg/model"
)

func TestWorkloadScore_Bands(t *testing.T) {
	tests := []struct {
		days     int
		want     float64
		excluded bool
	}{
		{1, 0.8, false},
		{3, 0.8, false},
		{4, 1.0, false},
		{5, 1.0, false},
		{6, 0.3, false},
		{7, 0, true},
	}

	for _, tt := range tests {
		got, excluded := workloadScore(tt.days)
		if got != tt.want || excluded != tt.excluded {
			t.Errorf("workloadScore(%d) = (%f, %v), want (%f, %v)",
				tt.days, got, excluded, tt.want, tt.excluded)
		}
	}
}

func TestScorer_OwnedComposite(t *testing.T) {
	s := NewScorer(DefaultWeights())

	// 份额 0.9、分配后 4 天（理想负载）：0.9*0.5 + 1.0*0.3 + 1.0*0.2
	score := s.Evaluate(model.SlotOwned, Input{Share: 0.9, DaysIfAssigned: 4})
	if score.Excluded {
		t.Fatal("unexpected exclusion")
	}
	want := 0.9*0.5 + 1.0*0.3 + 1.0*0.2
	if math.Abs(score.Value-want) > 1e-9 {
		t.Errorf("score = %f, want %f", score.Value, want)
	}
	if score.Breakdown.Compliance != 1.0 {
		t.Errorf("compliance = %f, want 1.0", score.Breakdown.Compliance)
	}
}

func TestScorer_OwnedExcludesOverloaded(t *testing.T) {
	s := NewScorer(DefaultWeights())

	score := s.Evaluate(model.SlotOwned, Input{Share: 1.0, DaysIfAssigned: 7})
	if !score.Excluded {
		t.Error("7th day must exclude the candidate")
	}
}

func TestFairnessScore(t *testing.T) {
	// 天数最少得 1.0，最多得 0.2，线性插值
	if got := FairnessScore(2, 2, 5); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("min days score = %f, want 1.0", got)
	}
	if got := FairnessScore(5, 2, 5); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("max days score = %f, want 0.2", got)
	}
	if got := FairnessScore(3, 2, 5); got <= 0.2 || got >= 1.0 {
		t.Errorf("mid days score = %f, want in (0.2, 1.0)", got)
	}

	// 池内天数全部相同时取中性值
	if got := FairnessScore(3, 3, 3); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("uniform pool score = %f, want 0.6", got)
	}
}

func TestScorer_RotatingFairnessOutweighsShare(t *testing.T) {
	s := NewScorer(DefaultWeights())

	// 份额较高但本周 5 天的司机 A，对阵份额稍低但只 2 天的司机 B
	scoreA := s.Evaluate(model.SlotRotating, Input{
		Share: 0.40, CurrentDays: 5, PoolMinDays: 2, PoolMaxDays: 5,
	})
	scoreB := s.Evaluate(model.SlotRotating, Input{
		Share: 0.35, CurrentDays: 2, PoolMinDays: 2, PoolMaxDays: 5,
	})

	wantA := 0.2*0.7 + 0.40*1.3*0.3
	wantB := 1.0*0.7 + 0.35*1.3*0.3
	if math.Abs(scoreA.Value-wantA) > 1e-9 {
		t.Errorf("score A = %f, want %f", scoreA.Value, wantA)
	}
	if math.Abs(scoreB.Value-wantB) > 1e-9 {
		t.Errorf("score B = %f, want %f", scoreB.Value, wantB)
	}
	if scoreB.Value <= scoreA.Value {
		t.Errorf("fairness must outweigh share: B=%f A=%f", scoreB.Value, scoreA.Value)
	}
}

func TestScorer_UnknownClassUsesRotating(t *testing.T) {
	s := NewScorer(DefaultWeights())

	score := s.Evaluate(model.SlotUnknown, Input{CurrentDays: 1, PoolMinDays: 1, PoolMaxDays: 1})
	if score.Breakdown.Fairness == 0 {
		t.Error("unknown slot must be scored with the rotating strategy")
	}
}
