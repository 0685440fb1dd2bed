// Package domain holds the core wallet-tracking model: wallets, balances,
// positions, transfers, and the change events a poll cycle can produce. It
// has no dependencies on transports or providers.
package domain

import "fmt"

// Wallet is one tracked Ethereum address with its per-wallet notification
// routing. ID is the stable key used in config, logs, and audit records.
type Wallet struct {
	ID      string
	Address string
	Name    string
	Enabled bool

	// Optional per-wallet overrides for notification routing. Empty means
	// use the global channel configuration.
	TelegramChatID string
	EmailRecipient string
}

// ShortAddress returns the address abbreviated for display, e.g.
// "0x1234...abcd". Addresses too short to abbreviate are returned as-is.
func (w Wallet) ShortAddress() string {
	if len(w.Address) < 12 {
		return w.Address
	}
	return fmt.Sprintf("%s...%s", w.Address[:6], w.Address[len(w.Address)-4:])
}

// DisplayName returns the wallet's name, falling back to the short address
// when no name was configured.
func (w Wallet) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.ShortAddress()
}
