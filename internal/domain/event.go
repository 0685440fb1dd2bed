package domain

// EventType identifies the kind of change a poll detected. The values double
// as the notifier's event filter keys and the audit log's record types.
type EventType string

const (
	EventBalanceChange   EventType = "balance_change"
	EventPositionEvent   EventType = "position_change"
	EventPositionSummary EventType = "position_summary"
	EventTransfer        EventType = "deposit_withdrawal"
	EventFetchError      EventType = "fetch_error"
)

// ChangeEvent is the tagged union of everything a wallet check can report.
// Events are ephemeral: built per poll cycle, handed to the notification and
// audit paths, never stored.
type ChangeEvent interface {
	Type() EventType
}

// BalanceChange is emitted when the wallet's ETH balance moved by more than
// the configured threshold since the previous poll. Delta is the absolute
// change; Old and New carry the sign.
type BalanceChange struct {
	Old   float64
	New   float64
	Delta float64
}

func (BalanceChange) Type() EventType { return EventBalanceChange }

// PositionChangeKind classifies a detected position change.
type PositionChangeKind string

const (
	PositionOpened  PositionChangeKind = "opened"
	PositionClosed  PositionChangeKind = "closed"
	PositionResized PositionChangeKind = "changed"
)

// PositionChange is emitted when a coin's position was opened, closed, or
// resized past the configured percentage. At most one coin is flagged per
// poll; Coin names it and Snapshot is the full post-change state.
type PositionChange struct {
	Kind     PositionChangeKind
	Coin     string
	Snapshot PositionSnapshot
}

func (PositionChange) Type() EventType { return EventPositionEvent }

// PositionSummary is emitted once per wallet, when the first successful
// positions fetch finds the wallet already holding open positions. It is a
// non-empty-initial-state signal, not a change: seeding itself stays silent.
type PositionSummary struct {
	Snapshot PositionSnapshot
}

func (PositionSummary) Type() EventType { return EventPositionSummary }

// TransferActivity is emitted when any ETH or token transfer touching the
// wallet landed within the last poll interval.
type TransferActivity struct {
	Transfers []Transfer
}

func (TransferActivity) Type() EventType { return EventTransfer }

// FetchError is emitted when an endpoint exhausted its retry and breaker
// policy for one track. It never mutates stored tracker state.
type FetchError struct {
	Source  string // "balance", "positions", or "transactions"
	Message string
}

func (FetchError) Type() EventType { return EventFetchError }
