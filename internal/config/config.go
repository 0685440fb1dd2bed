// Package config defines the top-level configuration for the wallet tracker
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by WALLETWATCH_* environment
// variables.
type Config struct {
	Tracker     TrackerConfig   `toml:"tracker"`
	Etherscan   EtherscanConfig `toml:"etherscan"`
	Hyperliquid ProviderConfig  `toml:"hyperliquid"`
	Notify      NotifyConfig    `toml:"notify"`
	Audit       AuditConfig     `toml:"audit"`
	Wallets     []WalletConfig  `toml:"wallets"`
	LogLevel    string          `toml:"log_level"`
}

// TrackerConfig holds the change-detection thresholds and the polling
// schedule shared by all wallets.
type TrackerConfig struct {
	CheckInterval     duration `toml:"check_interval"`
	BalanceThreshold  float64  `toml:"balance_threshold"`
	PositionThreshold float64  `toml:"position_threshold"`
	ExecutionMode     string   `toml:"execution_mode"` // "sequential" or "concurrent"
	MaxConcurrent     int      `toml:"max_concurrent"`
	EthTxLimit        int      `toml:"eth_tx_limit"`
	TokenTxLimit      int      `toml:"token_tx_limit"`
}

// ProviderConfig holds the resilience tuning for one upstream API.
type ProviderConfig struct {
	BaseURL          string   `toml:"base_url"`
	Timeout          duration `toml:"timeout"`
	CallsPerSecond   float64  `toml:"calls_per_second"`
	MaxRetries       int      `toml:"max_retries"`
	RetryBaseDelay   duration `toml:"retry_base_delay"`
	RetryMaxDelay    duration `toml:"retry_max_delay"`
	FailureThreshold int      `toml:"failure_threshold"`
	RecoveryTimeout  duration `toml:"recovery_timeout"`
}

// EtherscanConfig extends ProviderConfig with the API key and the legacy
// endpoint used as a fallback while the V2 migration rolls out.
type EtherscanConfig struct {
	ProviderConfig
	APIKey    string `toml:"api_key"`
	LegacyURL string `toml:"legacy_url"`
}

// WalletConfig describes one tracked wallet. ID must be unique; the optional
// notification fields override the global channel routing for this wallet.
type WalletConfig struct {
	ID             string `toml:"id"`
	Address        string `toml:"address"`
	Name           string `toml:"name"`
	Enabled        bool   `toml:"enabled"`
	TelegramChatID string `toml:"telegram_chat_id"`
	EmailRecipient string `toml:"email_recipient"`
}

// NotifyConfig holds notification channel credentials. A channel is active
// when its credentials are present; the console channel is controlled by its
// own flag and defaults to on.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Console           bool     `toml:"console"`
	Events            []string `toml:"events"`

	SMTPHost     string   `toml:"smtp_host"`
	SMTPPort     int      `toml:"smtp_port"`
	SMTPUsername string   `toml:"smtp_username"`
	SMTPPassword string   `toml:"smtp_password"`
	EmailFrom    string   `toml:"email_from"`
	EmailTo      []string `toml:"email_to"`
}

// AuditConfig controls the JSONL event log.
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "10m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration. The resilience numbers match
// the public rate limits of the two APIs.
func Defaults() Config {
	return Config{
		Tracker: TrackerConfig{
			CheckInterval:     duration{10 * time.Minute},
			BalanceThreshold:  0.1,
			PositionThreshold: 0.05,
			ExecutionMode:     "concurrent",
			MaxConcurrent:     20,
			EthTxLimit:        5,
			TokenTxLimit:      10,
		},
		Etherscan: EtherscanConfig{
			ProviderConfig: ProviderConfig{
				BaseURL:          "https://api.etherscan.io/v2/api",
				Timeout:          duration{30 * time.Second},
				CallsPerSecond:   2,
				MaxRetries:       3,
				RetryBaseDelay:   duration{time.Second},
				RetryMaxDelay:    duration{30 * time.Second},
				FailureThreshold: 3,
				RecoveryTimeout:  duration{60 * time.Second},
			},
			LegacyURL: "https://api.etherscan.io/api",
		},
		Hyperliquid: ProviderConfig{
			BaseURL:          "https://api.hyperliquid.xyz/info",
			Timeout:          duration{30 * time.Second},
			CallsPerSecond:   10,
			MaxRetries:       2,
			RetryBaseDelay:   duration{time.Second},
			RetryMaxDelay:    duration{20 * time.Second},
			FailureThreshold: 3,
			RecoveryTimeout:  duration{60 * time.Second},
		},
		Notify: NotifyConfig{
			Console:  true,
			SMTPPort: 587,
		},
		Audit: AuditConfig{
			Path: "walletwatch-audit.jsonl",
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validExecutionModes = map[string]bool{
	"sequential": true,
	"concurrent": true,
}

var validEvents = map[string]bool{
	"balance_change":     true,
	"position_change":    true,
	"position_summary":   true,
	"deposit_withdrawal": true,
	"fetch_error":        true,
}

// Validate checks the whole configuration and returns one error listing every
// problem found, so operators can fix a config file in a single pass.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if !validExecutionModes[strings.ToLower(c.Tracker.ExecutionMode)] {
		errs = append(errs, fmt.Sprintf("tracker: unknown execution_mode %q (valid: sequential, concurrent)", c.Tracker.ExecutionMode))
	}
	if c.Tracker.CheckInterval.Duration <= 0 {
		errs = append(errs, "tracker: check_interval must be positive")
	}
	if c.Tracker.BalanceThreshold < 0 {
		errs = append(errs, "tracker: balance_threshold must not be negative")
	}
	if c.Tracker.PositionThreshold <= 0 {
		errs = append(errs, "tracker: position_threshold must be positive")
	}
	if c.Tracker.MaxConcurrent <= 0 {
		errs = append(errs, "tracker: max_concurrent must be positive")
	}

	if c.Etherscan.APIKey == "" {
		errs = append(errs, "etherscan: api_key is required")
	}
	errs = append(errs, validateProvider("etherscan", c.Etherscan.ProviderConfig)...)
	errs = append(errs, validateProvider("hyperliquid", c.Hyperliquid)...)

	if len(c.Wallets) == 0 {
		errs = append(errs, "wallets: at least one wallet must be configured")
	}
	seen := make(map[string]bool, len(c.Wallets))
	for i, w := range c.Wallets {
		where := fmt.Sprintf("wallets[%d]", i)
		if w.ID == "" {
			errs = append(errs, where+": id is required")
		} else if seen[w.ID] {
			errs = append(errs, fmt.Sprintf("%s: duplicate id %q", where, w.ID))
		}
		seen[w.ID] = true
		if !common.IsHexAddress(w.Address) {
			errs = append(errs, fmt.Sprintf("%s: %q is not a valid Ethereum address", where, w.Address))
		}
	}

	for _, e := range c.Notify.Events {
		if !validEvents[e] {
			errs = append(errs, fmt.Sprintf("notify: unknown event %q in events filter", e))
		}
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == "" {
		hasOverride := false
		for _, w := range c.Wallets {
			if w.TelegramChatID != "" {
				hasOverride = true
				break
			}
		}
		if !hasOverride {
			errs = append(errs, "notify: telegram_chat_id is required when telegram_token is set")
		}
	}
	if (len(c.Notify.EmailTo) > 0 || anyEmailOverride(c.Wallets)) && c.Notify.SMTPHost == "" {
		errs = append(errs, "notify: smtp_host is required when email recipients are set")
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		errs = append(errs, "audit: path is required when audit is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %d problem(s):\n  - %s", len(errs), strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateProvider(name string, p ProviderConfig) []string {
	var errs []string
	if p.BaseURL == "" {
		errs = append(errs, name+": base_url is required")
	}
	if p.CallsPerSecond <= 0 {
		errs = append(errs, name+": calls_per_second must be positive")
	}
	if p.MaxRetries < 0 {
		errs = append(errs, name+": max_retries must not be negative")
	}
	if p.FailureThreshold <= 0 {
		errs = append(errs, name+": failure_threshold must be positive")
	}
	if p.RecoveryTimeout.Duration <= 0 {
		errs = append(errs, name+": recovery_timeout must be positive")
	}
	if p.Timeout.Duration <= 0 {
		errs = append(errs, name+": timeout must be positive")
	}
	return errs
}

func anyEmailOverride(wallets []WalletConfig) bool {
	for _, w := range wallets {
		if w.EmailRecipient != "" {
			return true
		}
	}
	return false
}

// EnabledWallets returns the wallets with Enabled set, preserving file order.
func (c *Config) EnabledWallets() []WalletConfig {
	out := make([]WalletConfig, 0, len(c.Wallets))
	for _, w := range c.Wallets {
		if w.Enabled {
			out = append(out, w)
		}
	}
	return out
}
