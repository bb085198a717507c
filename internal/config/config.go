/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/autohub/donation-service/internal/domain"
)

// Config holds all the configuration variables for the donation-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                      string `mapstructure:"SERVER_PORT"`
	DatabaseURL                     string `mapstructure:"DATABASE_URL"`
	RedisURL                        string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix            string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                     string `mapstructure:"RABBITMQ_URL"`
	PayOSAPIBaseURL                 string `mapstructure:"PAYOS_API_BASE_URL"`
	PayOSClientID                   string `mapstructure:"PAYOS_CLIENT_ID"`
	PayOSAPIKey                     string `mapstructure:"PAYOS_API_KEY"`
	PayOSChecksumKey                string `mapstructure:"PAYOS_CHECKSUM_KEY"`
	PayOSReturnURL                  string `mapstructure:"PAYOS_RETURN_URL"`
	PayOSCancelURL                  string `mapstructure:"PAYOS_CANCEL_URL"`
	JWTSecret                       string `mapstructure:"JWT_SECRET"`
	LeaderboardWeekMode             string `mapstructure:"LEADERBOARD_WEEK_MODE"`
	LeaderboardIncludeAnonymous     bool   `mapstructure:"LEADERBOARD_INCLUDE_ANONYMOUS"`
	DonationMilestones              string `mapstructure:"DONATION_MILESTONES"`
	CreatePaymentRateLimitPerMinute int    `mapstructure:"CREATE_PAYMENT_RATE_LIMIT_PER_MINUTE"`
}

// defaultMilestones mirrors the portal's original stretch goals.
const defaultMilestones = "1000000:Duy trì server 1 tháng,3000000:Nâng cấp hạ tầng bot,5000000:Phát triển tính năng mới,10000000:Mở rộng cộng đồng"

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("PAYOS_API_BASE_URL", "https://api-merchant.payos.vn")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "donation:rate_limit")
	viper.SetDefault("LEADERBOARD_WEEK_MODE", "rolling")
	viper.SetDefault("LEADERBOARD_INCLUDE_ANONYMOUS", false)
	viper.SetDefault("DONATION_MILESTONES", defaultMilestones)
	viper.SetDefault("CREATE_PAYMENT_RATE_LIMIT_PER_MINUTE", 10)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PAYOS_API_BASE_URL")
	_ = viper.BindEnv("PAYOS_CLIENT_ID")
	_ = viper.BindEnv("PAYOS_API_KEY")
	_ = viper.BindEnv("PAYOS_CHECKSUM_KEY")
	_ = viper.BindEnv("PAYOS_RETURN_URL")
	_ = viper.BindEnv("PAYOS_CANCEL_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("LEADERBOARD_WEEK_MODE")
	_ = viper.BindEnv("LEADERBOARD_INCLUDE_ANONYMOUS")
	_ = viper.BindEnv("DONATION_MILESTONES")
	_ = viper.BindEnv("CREATE_PAYMENT_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "donation:rate_limit"
	}

	config.LeaderboardWeekMode = strings.ToLower(strings.TrimSpace(config.LeaderboardWeekMode))
	if config.LeaderboardWeekMode != "calendar" {
		config.LeaderboardWeekMode = "rolling"
	}

	if config.CreatePaymentRateLimitPerMinute <= 0 {
		config.CreatePaymentRateLimitPerMinute = 10
	}

	return
}

// MilestoneThresholds parses the DONATION_MILESTONES value into ordered
// thresholds. The format is a comma-separated list of "amount:description"
// pairs; malformed pairs are skipped with a warning.
func (c Config) MilestoneThresholds() []domain.MilestoneThreshold {
	raw := strings.TrimSpace(c.DonationMilestones)
	if raw == "" {
		raw = defaultMilestones
	}

	var thresholds []domain.MilestoneThreshold
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		amountStr, description, found := strings.Cut(pair, ":")
		if !found {
			log.Printf("level=warn component=config msg=\"skipping malformed milestone entry\" entry=%q", pair)
			continue
		}
		amount, parseErr := strconv.ParseInt(strings.TrimSpace(amountStr), 10, 64)
		if parseErr != nil || amount <= 0 {
			log.Printf("level=warn component=config msg=\"skipping milestone with invalid amount\" entry=%q", pair)
			continue
		}
		thresholds = append(thresholds, domain.MilestoneThreshold{
			Amount:      amount,
			Description: strings.TrimSpace(description),
		})
	}
	return thresholds
}
