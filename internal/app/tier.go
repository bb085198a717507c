/**
 * @description
 * Donor tier classification. A donor's lifetime successful total maps to a
 * badge tier with fixed inclusive lower bounds, evaluated highest-to-lowest
 * so a donor exactly at a boundary gets the higher tier.
 */

package app

import "github.com/autohub/donation-service/internal/domain"

// Tier thresholds in VND, inclusive lower bounds.
const (
	TierDiamondThreshold int64 = 10_000_000
	TierGoldThreshold    int64 = 2_000_000
	TierSilverThreshold  int64 = 500_000
	TierBronzeThreshold  int64 = 100_000
)

// ClassifyTier maps a donor's lifetime successful total to a tier label.
func ClassifyTier(lifetimeTotal int64) string {
	switch {
	case lifetimeTotal >= TierDiamondThreshold:
		return domain.TierDiamond
	case lifetimeTotal >= TierGoldThreshold:
		return domain.TierGold
	case lifetimeTotal >= TierSilverThreshold:
		return domain.TierSilver
	case lifetimeTotal >= TierBronzeThreshold:
		return domain.TierBronze
	default:
		return domain.TierNone
	}
}
