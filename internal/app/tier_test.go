package app

import (
	"testing"

	"github.com/autohub/donation-service/internal/domain"
)

func TestClassifyTier_Boundaries(t *testing.T) {
	cases := []struct {
		lifetimeTotal int64
		want          string
	}{
		{0, domain.TierNone},
		{99999, domain.TierNone},
		{100000, domain.TierBronze},
		{499999, domain.TierBronze},
		{500000, domain.TierSilver},
		{1999999, domain.TierSilver},
		{2000000, domain.TierGold},
		{9999999, domain.TierGold},
		{10000000, domain.TierDiamond},
		{50000000, domain.TierDiamond},
	}
	for _, tc := range cases {
		if got := ClassifyTier(tc.lifetimeTotal); got != tc.want {
			t.Errorf("ClassifyTier(%d) = %q, want %q", tc.lifetimeTotal, got, tc.want)
		}
	}
}
