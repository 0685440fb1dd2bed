package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ozanylmz/walletwatch/internal/audit"
	"github.com/ozanylmz/walletwatch/internal/config"
	"github.com/ozanylmz/walletwatch/internal/domain"
	"github.com/ozanylmz/walletwatch/internal/gateway"
	"github.com/ozanylmz/walletwatch/internal/notify"
	"github.com/ozanylmz/walletwatch/internal/platform/etherscan"
	"github.com/ozanylmz/walletwatch/internal/platform/hyperliquid"
	"github.com/ozanylmz/walletwatch/internal/tracker"
)

// Dependencies bundles everything the application modes need: the resilient
// fetch gateway, one tracker per enabled wallet behind the orchestrator, a
// per-wallet notifier honoring routing overrides, and the audit trail.
type Dependencies struct {
	Gateway      *gateway.Gateway
	Orchestrator *tracker.Orchestrator
	Notifiers    map[string]*notify.Notifier // keyed by wallet ID
	Audit        audit.Recorder
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Raw API clients ---
	eth := etherscan.NewClient(cfg.Etherscan.APIKey, cfg.Etherscan.Timeout.Duration)
	eth.SetBaseURLs(cfg.Etherscan.BaseURL, cfg.Etherscan.LegacyURL)

	hl := hyperliquid.NewClient(cfg.Hyperliquid.Timeout.Duration)
	hl.SetBaseURL(cfg.Hyperliquid.BaseURL)

	gw := gateway.New(eth, hl, gateway.Config{
		EtherscanRate:               cfg.Etherscan.CallsPerSecond,
		HyperliquidRate:             cfg.Hyperliquid.CallsPerSecond,
		EtherscanBreakerThreshold:   cfg.Etherscan.FailureThreshold,
		EtherscanBreakerRecovery:    cfg.Etherscan.RecoveryTimeout.Duration,
		HyperliquidBreakerThreshold: cfg.Hyperliquid.FailureThreshold,
		HyperliquidBreakerRecovery:  cfg.Hyperliquid.RecoveryTimeout.Duration,
		EtherscanRetries:            cfg.Etherscan.MaxRetries,
		EtherscanBackoff:            cfg.Etherscan.RetryBaseDelay.Duration,
		EtherscanMaxDelay:           cfg.Etherscan.RetryMaxDelay.Duration,
		HyperliquidRetries:          cfg.Hyperliquid.MaxRetries,
		HyperliquidBackoff:          cfg.Hyperliquid.RetryBaseDelay.Duration,
		HyperliquidMaxDelay:         cfg.Hyperliquid.RetryMaxDelay.Duration,
		EthTxLimit:                  cfg.Tracker.EthTxLimit,
		TokenTxLimit:                cfg.Tracker.TokenTxLimit,
	})

	// --- Trackers and notifiers, one per enabled wallet ---
	enabled := cfg.EnabledWallets()
	if len(enabled) == 0 {
		return nil, nil, fmt.Errorf("wire: no enabled wallets")
	}

	// The console sender is shared so concurrent wallets do not interleave
	// output.
	var console *notify.ConsoleSender
	if cfg.Notify.Console {
		console = notify.NewConsoleSender()
	}
	var discord *notify.DiscordSender
	if cfg.Notify.DiscordWebhookURL != "" {
		discord = notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL)
	}

	events := make([]domain.EventType, 0, len(cfg.Notify.Events))
	for _, e := range cfg.Notify.Events {
		events = append(events, domain.EventType(e))
	}

	trackers := make([]*tracker.WalletTracker, 0, len(enabled))
	notifiers := make(map[string]*notify.Notifier, len(enabled))
	for _, wc := range enabled {
		w := domain.Wallet{
			ID:             wc.ID,
			Address:        wc.Address,
			Name:           wc.Name,
			Enabled:        wc.Enabled,
			TelegramChatID: wc.TelegramChatID,
			EmailRecipient: wc.EmailRecipient,
		}

		trackers = append(trackers, tracker.NewWalletTracker(
			w, gw,
			cfg.Tracker.BalanceThreshold,
			cfg.Tracker.PositionThreshold,
			cfg.Tracker.CheckInterval.Duration,
			logger,
		))
		notifiers[w.ID] = notify.NewNotifier(walletSenders(cfg, w, console, discord), events, logger)
	}

	orch := tracker.NewOrchestrator(
		trackers,
		tracker.ExecutionMode(strings.ToLower(cfg.Tracker.ExecutionMode)),
		cfg.Tracker.MaxConcurrent,
		logger,
	)

	// --- Audit trail ---
	var recorder audit.Recorder = audit.Nop{}
	if cfg.Audit.Enabled {
		fr, err := audit.NewFileRecorder(cfg.Audit.Path, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: audit: %w", err)
		}
		closers = append(closers, func() { _ = fr.Close() })
		recorder = fr
	}

	deps := &Dependencies{
		Gateway:      gw,
		Orchestrator: orch,
		Notifiers:    notifiers,
		Audit:        recorder,
	}
	return deps, cleanup, nil
}

// walletSenders assembles the notification channels for one wallet, applying
// its per-wallet Telegram chat and email recipient overrides.
func walletSenders(cfg *config.Config, w domain.Wallet, console *notify.ConsoleSender, discord *notify.DiscordSender) []notify.Sender {
	var senders []notify.Sender

	if console != nil {
		senders = append(senders, console)
	}

	if cfg.Notify.TelegramToken != "" {
		chatID := cfg.Notify.TelegramChatID
		if w.TelegramChatID != "" {
			chatID = w.TelegramChatID
		}
		if chatID != "" {
			senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, chatID))
		}
	}

	if discord != nil {
		senders = append(senders, discord)
	}

	if cfg.Notify.SMTPHost != "" {
		to := cfg.Notify.EmailTo
		if w.EmailRecipient != "" {
			to = []string{w.EmailRecipient}
		}
		if len(to) > 0 {
			senders = append(senders, notify.NewEmailSender(
				cfg.Notify.SMTPHost,
				cfg.Notify.SMTPPort,
				cfg.Notify.SMTPUsername,
				cfg.Notify.SMTPPassword,
				cfg.Notify.EmailFrom,
				to,
			))
		}
	}

	return senders
}
