package config

import (
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("server port = %q, want 8080", cfg.ServerPort)
	}
	if cfg.RedisRateLimitPrefix != "donation:rate_limit" {
		t.Errorf("rate limit prefix = %q", cfg.RedisRateLimitPrefix)
	}
	if cfg.LeaderboardWeekMode != "rolling" {
		t.Errorf("week mode = %q, want rolling", cfg.LeaderboardWeekMode)
	}
	if cfg.LeaderboardIncludeAnonymous {
		t.Error("anonymous donors must be excluded from the leaderboard by default")
	}
	if cfg.CreatePaymentRateLimitPerMinute != 10 {
		t.Errorf("create-payment rate limit = %d, want 10", cfg.CreatePaymentRateLimitPerMinute)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9091")
	t.Setenv("LEADERBOARD_WEEK_MODE", "calendar")
	t.Setenv("CREATE_PAYMENT_RATE_LIMIT_PER_MINUTE", "25")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.ServerPort != "9091" {
		t.Errorf("server port = %q, want 9091", cfg.ServerPort)
	}
	if cfg.LeaderboardWeekMode != "calendar" {
		t.Errorf("week mode = %q, want calendar", cfg.LeaderboardWeekMode)
	}
	if cfg.CreatePaymentRateLimitPerMinute != 25 {
		t.Errorf("create-payment rate limit = %d, want 25", cfg.CreatePaymentRateLimitPerMinute)
	}
}

func TestLoadConfig_UnknownWeekModeFallsBackToRolling(t *testing.T) {
	t.Setenv("LEADERBOARD_WEEK_MODE", "fortnight")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.LeaderboardWeekMode != "rolling" {
		t.Errorf("week mode = %q, want rolling fallback", cfg.LeaderboardWeekMode)
	}
}

func TestMilestoneThresholds_DefaultList(t *testing.T) {
	cfg := Config{}
	thresholds := cfg.MilestoneThresholds()
	if len(thresholds) != 4 {
		t.Fatalf("expected 4 default milestones, got %d", len(thresholds))
	}
	if thresholds[0].Amount != 1000000 {
		t.Errorf("first threshold = %d, want 1000000", thresholds[0].Amount)
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i].Amount <= thresholds[i-1].Amount {
			t.Errorf("thresholds not ascending at index %d: %d <= %d", i, thresholds[i].Amount, thresholds[i-1].Amount)
		}
	}
}

func TestMilestoneThresholds_ParsesCustomList(t *testing.T) {
	cfg := Config{DonationMilestones: "500000:First goal, 2000000:Second goal"}
	thresholds := cfg.MilestoneThresholds()
	if len(thresholds) != 2 {
		t.Fatalf("expected 2 milestones, got %d", len(thresholds))
	}
	if thresholds[0].Amount != 500000 || thresholds[0].Description != "First goal" {
		t.Errorf("first threshold = %+v", thresholds[0])
	}
	if thresholds[1].Amount != 2000000 || thresholds[1].Description != "Second goal" {
		t.Errorf("second threshold = %+v", thresholds[1])
	}
}

func TestMilestoneThresholds_SkipsMalformedEntries(t *testing.T) {
	cfg := Config{DonationMilestones: "oops,1000:ok,-5:negative,abc:notanumber"}
	thresholds := cfg.MilestoneThresholds()
	if len(thresholds) != 1 {
		t.Fatalf("expected only the valid entry, got %+v", thresholds)
	}
	if thresholds[0].Amount != 1000 || thresholds[0].Description != "ok" {
		t.Errorf("threshold = %+v", thresholds[0])
	}
}
