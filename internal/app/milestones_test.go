package app

import (
	"math"
	"testing"

	"github.com/autohub/donation-service/internal/domain"
)

func testThresholds() []domain.MilestoneThreshold {
	return []domain.MilestoneThreshold{
		{Amount: 1000000, Description: "Duy trì server 1 tháng"},
		{Amount: 3000000, Description: "Nâng cấp hạ tầng bot"},
		{Amount: 5000000, Description: "Phát triển tính năng mới"},
	}
}

func TestComputeMilestones_MixedProgress(t *testing.T) {
	milestones := ComputeMilestones(3250000, testThresholds())
	if len(milestones) != 3 {
		t.Fatalf("expected 3 milestones, got %d", len(milestones))
	}

	if !milestones[0].Reached || milestones[0].Progress != 100 {
		t.Errorf("first milestone: reached=%t progress=%v, want reached at 100", milestones[0].Reached, milestones[0].Progress)
	}
	if !milestones[1].Reached || milestones[1].Progress != 100 {
		t.Errorf("second milestone: reached=%t progress=%v, want reached at 100", milestones[1].Reached, milestones[1].Progress)
	}
	if milestones[2].Reached {
		t.Error("third milestone should not be reached at 3,250,000 of 5,000,000")
	}
	if math.Abs(milestones[2].Progress-65.0) > 1e-9 {
		t.Errorf("third milestone progress = %v, want 65.0", milestones[2].Progress)
	}
}

func TestComputeMilestones_ExactThresholdIsReached(t *testing.T) {
	milestones := ComputeMilestones(1000000, testThresholds())
	if !milestones[0].Reached {
		t.Error("a total exactly equal to the threshold must count as reached")
	}
}

func TestComputeMilestones_ZeroTotal(t *testing.T) {
	for _, m := range ComputeMilestones(0, testThresholds()) {
		if m.Reached || m.Progress != 0 {
			t.Errorf("milestone %d: reached=%t progress=%v, want unreached at 0", m.Amount, m.Reached, m.Progress)
		}
	}
}

func TestComputeMilestones_ProgressIsMonotonic(t *testing.T) {
	previous := ComputeMilestones(0, testThresholds())
	for total := int64(500000); total <= 6000000; total += 500000 {
		current := ComputeMilestones(total, testThresholds())
		for i := range current {
			if current[i].Progress < previous[i].Progress {
				t.Fatalf("milestone %d progress regressed from %v to %v at total %d",
					current[i].Amount, previous[i].Progress, current[i].Progress, total)
			}
			if previous[i].Reached && !current[i].Reached {
				t.Fatalf("milestone %d unreached after being reached at total %d", current[i].Amount, total)
			}
		}
		previous = current
	}
}

func TestComputeMilestones_SkipsNonPositiveThresholds(t *testing.T) {
	milestones := ComputeMilestones(100, []domain.MilestoneThreshold{
		{Amount: 0, Description: "broken"},
		{Amount: 1000, Description: "ok"},
	})
	if len(milestones) != 1 || milestones[0].Amount != 1000 {
		t.Fatalf("expected only the positive threshold, got %+v", milestones)
	}
}
