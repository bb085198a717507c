/**
 * @description
 * Milestone evaluation. Milestones are fixed monetary checkpoints configured
 * per deployment; they are recomputed from the campaign total on every query
 * and never persisted. Thresholds are evaluated independently, not
 * cumulatively: a later threshold being reached does not change how earlier
 * thresholds report.
 */

package app

import "github.com/autohub/donation-service/internal/domain"

// ComputeMilestones evaluates every configured threshold against the current
// campaign total. Reached thresholds report 100%; unreached thresholds report
// progress toward their own amount, capped at 100.
func ComputeMilestones(currentAmount int64, thresholds []domain.MilestoneThreshold) []domain.Milestone {
	milestones := make([]domain.Milestone, 0, len(thresholds))
	for _, threshold := range thresholds {
		if threshold.Amount <= 0 {
			continue
		}
		milestone := domain.Milestone{
			Amount:      threshold.Amount,
			Description: threshold.Description,
			Reached:     currentAmount >= threshold.Amount,
		}
		if milestone.Reached {
			milestone.Progress = 100
		} else {
			progress := float64(currentAmount) / float64(threshold.Amount) * 100
			if progress > 100 {
				progress = 100
			}
			if progress < 0 {
				progress = 0
			}
			milestone.Progress = progress
		}
		milestones = append(milestones, milestone)
	}
	return milestones
}
