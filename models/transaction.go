package models

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Transaction direction.
const (
	TransactionDeposit    = "deposit"
	TransactionWithdrawal = "withdrawal"
)

// Unified transaction statuses.
const (
	TransactionPending  = "pending"
	TransactionOK       = "ok"
	TransactionCanceled = "canceled"
	TransactionFailed   = "failed"
)

// Transaction is a deposit or withdrawal as reported by the venue.
type Transaction struct {
	ID        string           `json:"id"`
	TxID      string           `json:"txid,omitempty"`
	Type      string           `json:"type"`
	Currency  string           `json:"currency"`
	Network   string           `json:"network,omitempty"`
	Address   string           `json:"address,omitempty"`
	Tag       string           `json:"tag,omitempty"`
	Status    string           `json:"status"`
	Timestamp int64            `json:"timestamp,omitempty"`
	Updated   int64            `json:"updated,omitempty"`
	Amount    *decimal.Decimal `json:"amount"`
	Fee       *Fee             `json:"fee,omitempty"`
	Info      gjson.Result     `json:"-"`
}

// DepositAddress is a funding address for one currency on one network.
type DepositAddress struct {
	Currency string       `json:"currency"`
	Network  string       `json:"network,omitempty"`
	Address  string       `json:"address"`
	Tag      string       `json:"tag,omitempty"`
	Info     gjson.Result `json:"-"`
}

// TransferEntry is an internal funds movement between accounts.
type TransferEntry struct {
	ID          string           `json:"id,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	Amount      *decimal.Decimal `json:"amount"`
	FromAccount string           `json:"from_account,omitempty"`
	ToAccount   string           `json:"to_account,omitempty"`
	Status      string           `json:"status"`
	Timestamp   int64            `json:"timestamp,omitempty"`
	Info        gjson.Result     `json:"-"`
}

// Account is the free/used/total triple for one currency.
type Account struct {
	Free  *decimal.Decimal `json:"free"`
	Used  *decimal.Decimal `json:"used"`
	Total *decimal.Decimal `json:"total"`
}

// Balance maps currency codes to accounts.
type Balance struct {
	Accounts map[string]Account `json:"accounts"`
	Info     gjson.Result       `json:"-"`
}

// Get returns the account for a currency code, zero value when absent.
func (b Balance) Get(code string) Account {
	if b.Accounts == nil {
		return Account{}
	}
	return b.Accounts[code]
}
