package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleTOML = `
log_level = "debug"

[tracker]
check_interval = "5m"
balance_threshold = 0.25
execution_mode = "sequential"

[etherscan]
api_key = "KEY123"

[notify]
telegram_token = "tok"
telegram_chat_id = "chat"
events = ["balance_change", "position_change"]

[[wallets]]
id = "main"
address = "0x1234567890abcdef1234567890abcdef12345678"
name = "Main"
enabled = true

[[wallets]]
id = "cold"
address = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
enabled = false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Values from the file.
	if cfg.Tracker.CheckInterval.Duration != 5*time.Minute {
		t.Errorf("check_interval = %v", cfg.Tracker.CheckInterval.Duration)
	}
	if cfg.Tracker.BalanceThreshold != 0.25 {
		t.Errorf("balance_threshold = %v", cfg.Tracker.BalanceThreshold)
	}
	if cfg.Etherscan.APIKey != "KEY123" {
		t.Errorf("api_key = %q", cfg.Etherscan.APIKey)
	}

	// Defaults fill what the file leaves out.
	if cfg.Tracker.PositionThreshold != 0.05 {
		t.Errorf("position_threshold default = %v", cfg.Tracker.PositionThreshold)
	}
	if cfg.Hyperliquid.CallsPerSecond != 10 {
		t.Errorf("hyperliquid calls_per_second default = %v", cfg.Hyperliquid.CallsPerSecond)
	}
	if cfg.Etherscan.FailureThreshold != 3 {
		t.Errorf("etherscan failure_threshold default = %v", cfg.Etherscan.FailureThreshold)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("WALLETWATCH_ETHERSCAN_API_KEY", "FROM_ENV")
	t.Setenv("WALLETWATCH_CHECK_INTERVAL", "30s")
	t.Setenv("WALLETWATCH_NOTIFY_EVENTS", "fetch_error, balance_change")

	cfg, err := Load(writeConfig(t, sampleTOML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Etherscan.APIKey != "FROM_ENV" {
		t.Errorf("api_key = %q, want env override", cfg.Etherscan.APIKey)
	}
	if cfg.Tracker.CheckInterval.Duration != 30*time.Second {
		t.Errorf("check_interval = %v", cfg.Tracker.CheckInterval.Duration)
	}
	if len(cfg.Notify.Events) != 2 || cfg.Notify.Events[0] != "fetch_error" {
		t.Errorf("events = %v", cfg.Notify.Events)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Tracker.ExecutionMode = "parallel"
	cfg.Etherscan.APIKey = ""
	cfg.Wallets = []WalletConfig{
		{ID: "a", Address: "not-an-address", Enabled: true},
		{ID: "a", Address: "0x1234567890abcdef1234567890abcdef12345678"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"log_level",
		"execution_mode",
		"api_key is required",
		"not a valid Ethereum address",
		"duplicate id",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestEnabledWallets(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	enabled := cfg.EnabledWallets()
	if len(enabled) != 1 || enabled[0].ID != "main" {
		t.Errorf("EnabledWallets = %+v", enabled)
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	red := RedactedConfig(cfg)
	if red.Etherscan.APIKey != "***" {
		t.Errorf("api_key not redacted: %q", red.Etherscan.APIKey)
	}
	if red.Notify.TelegramToken != "***" {
		t.Errorf("telegram_token not redacted: %q", red.Notify.TelegramToken)
	}
	if cfg.Etherscan.APIKey != "KEY123" {
		t.Errorf("original mutated: %q", cfg.Etherscan.APIKey)
	}
}
