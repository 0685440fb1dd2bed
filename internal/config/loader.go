package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WALLETWATCH_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WALLETWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file. Wallet entries themselves only come from the file.
func applyEnvOverrides(cfg *Config) {
	// ── Tracker ──
	setDuration(&cfg.Tracker.CheckInterval, "WALLETWATCH_CHECK_INTERVAL")
	setFloat64(&cfg.Tracker.BalanceThreshold, "WALLETWATCH_BALANCE_THRESHOLD")
	setFloat64(&cfg.Tracker.PositionThreshold, "WALLETWATCH_POSITION_THRESHOLD")
	setStr(&cfg.Tracker.ExecutionMode, "WALLETWATCH_EXECUTION_MODE")
	setInt(&cfg.Tracker.MaxConcurrent, "WALLETWATCH_MAX_CONCURRENT")

	// ── Etherscan ──
	setStr(&cfg.Etherscan.APIKey, "WALLETWATCH_ETHERSCAN_API_KEY")
	setStr(&cfg.Etherscan.BaseURL, "WALLETWATCH_ETHERSCAN_BASE_URL")
	setStr(&cfg.Etherscan.LegacyURL, "WALLETWATCH_ETHERSCAN_LEGACY_URL")
	setFloat64(&cfg.Etherscan.CallsPerSecond, "WALLETWATCH_ETHERSCAN_CALLS_PER_SECOND")
	setDuration(&cfg.Etherscan.Timeout, "WALLETWATCH_ETHERSCAN_TIMEOUT")

	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.BaseURL, "WALLETWATCH_HYPERLIQUID_BASE_URL")
	setFloat64(&cfg.Hyperliquid.CallsPerSecond, "WALLETWATCH_HYPERLIQUID_CALLS_PER_SECOND")
	setDuration(&cfg.Hyperliquid.Timeout, "WALLETWATCH_HYPERLIQUID_TIMEOUT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WALLETWATCH_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WALLETWATCH_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "WALLETWATCH_DISCORD_WEBHOOK_URL")
	setBool(&cfg.Notify.Console, "WALLETWATCH_NOTIFY_CONSOLE")
	setStringSlice(&cfg.Notify.Events, "WALLETWATCH_NOTIFY_EVENTS")
	setStr(&cfg.Notify.SMTPHost, "WALLETWATCH_SMTP_HOST")
	setInt(&cfg.Notify.SMTPPort, "WALLETWATCH_SMTP_PORT")
	setStr(&cfg.Notify.SMTPUsername, "WALLETWATCH_SMTP_USERNAME")
	setStr(&cfg.Notify.SMTPPassword, "WALLETWATCH_SMTP_PASSWORD")
	setStr(&cfg.Notify.EmailFrom, "WALLETWATCH_EMAIL_FROM")
	setStringSlice(&cfg.Notify.EmailTo, "WALLETWATCH_EMAIL_TO")

	// ── Audit ──
	setBool(&cfg.Audit.Enabled, "WALLETWATCH_AUDIT_ENABLED")
	setStr(&cfg.Audit.Path, "WALLETWATCH_AUDIT_PATH")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "WALLETWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
