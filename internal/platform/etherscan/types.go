package etherscan

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/params"
)

// apiResponse is the envelope Etherscan wraps every account-module response
// in. Result is a decimal string for balance calls and an array for list
// calls, so it stays raw until the caller knows the shape.
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Transaction is one entry from the txlist action.
type Transaction struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	TimeStamp string `json:"timeStamp"`
	IsError   string `json:"isError"`
}

// Time parses the transaction's unix timestamp. A malformed field yields the
// zero time, which any recency filter will exclude.
func (t Transaction) Time() time.Time {
	return parseUnix(t.TimeStamp)
}

// ValueEther converts the wei value string to ETH.
func (t Transaction) ValueEther() (float64, error) {
	return weiToEther(t.Value)
}

// TokenTransfer is one entry from the tokentx action.
type TokenTransfer struct {
	Hash         string `json:"hash"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	TimeStamp    string `json:"timeStamp"`
	TokenSymbol  string `json:"tokenSymbol"`
	TokenDecimal string `json:"tokenDecimal"`
}

// Time parses the transfer's unix timestamp.
func (t TokenTransfer) Time() time.Time {
	return parseUnix(t.TimeStamp)
}

// Amount converts the raw token value using the provider's tokenDecimal
// field, defaulting to 18 when the field is missing or malformed.
func (t TokenTransfer) Amount() (float64, error) {
	decimals, err := strconv.Atoi(t.TokenDecimal)
	if err != nil || decimals < 0 {
		decimals = 18
	}
	raw, ok := new(big.Float).SetString(t.Value)
	if !ok {
		return 0, fmt.Errorf("etherscan: bad token value %q", t.Value)
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(raw, scale).Float64()
	return out, nil
}

func parseUnix(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// weiToEther converts a decimal wei string to ETH.
func weiToEther(wei string) (float64, error) {
	w, ok := new(big.Float).SetString(wei)
	if !ok {
		return 0, fmt.Errorf("etherscan: bad wei value %q", wei)
	}
	eth, _ := new(big.Float).Quo(w, big.NewFloat(params.Ether)).Float64()
	return eth, nil
}
