package hyperliquid

import "strconv"

// Hyperliquid returns every number as a JSON string; these raw types mirror
// the clearinghouseState payload exactly and convert on demand.

// ClearinghouseState is the POST /info response for a user's perp account.
type ClearinghouseState struct {
	MarginSummary  *RawMarginSummary  `json:"marginSummary"`
	AssetPositions []RawAssetPosition `json:"assetPositions"`
}

// RawMarginSummary is the account-level margin rollup.
type RawMarginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalMarginUsed string `json:"totalMarginUsed"`
	TotalRawUsd     string `json:"totalRawUsd"`
}

// RawAssetPosition wraps one coin's position entry.
type RawAssetPosition struct {
	Type     string      `json:"type"`
	Position RawPosition `json:"position"`
}

// RawPosition is one coin's perp position.
type RawPosition struct {
	Coin           string      `json:"coin"`
	Szi            string      `json:"szi"`
	EntryPx        string      `json:"entryPx"`
	PositionValue  string      `json:"positionValue"`
	UnrealizedPnl  string      `json:"unrealizedPnl"`
	Leverage       RawLeverage `json:"leverage"`
	LiquidationPx  string      `json:"liquidationPx"`
	MarginUsed     string      `json:"marginUsed"`
	ReturnOnEquity string      `json:"returnOnEquity"`
	CumFunding     RawFunding  `json:"cumFunding"`
}

// RawLeverage holds the leverage mode and multiplier.
type RawLeverage struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// RawFunding holds cumulative funding figures.
type RawFunding struct {
	AllTime     string `json:"allTime"`
	SinceOpen   string `json:"sinceOpen"`
	SinceChange string `json:"sinceChange"`
}

// Num parses one of Hyperliquid's stringified numbers. Empty or malformed
// fields read as zero; liquidationPx in particular is null for unleveraged
// positions.
func Num(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
