package domain

import "time"

// TransferDirection indicates whether a transfer moved funds into or out of
// the tracked wallet.
type TransferDirection string

const (
	TransferIn  TransferDirection = "in"
	TransferOut TransferDirection = "out"
)

// Transfer is one on-chain movement touching a tracked wallet: either a plain
// ETH transfer or an ERC-20 token transfer. Asset is "ETH" for normal
// transactions, otherwise the provider's token symbol.
type Transfer struct {
	Hash      string
	From      string
	To        string
	Asset     string
	Amount    float64
	Direction TransferDirection
	Timestamp time.Time
}
