package models

import "time"

// BankAccount holds the authoritative running balance for one account of a
// restaurant. The balance is mutated only by paid transactions and transfers,
// never written directly by API callers. Negative balances are allowed.
type BankAccount struct {
	ID             int       `json:"id"`
	RestaurantID   int       `json:"restaurant_id"`
	Name           string    `json:"name"`
	CurrentBalance Money     `json:"current_balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BankAccountInput is used for creating/updating bank accounts.
// InitialBalance is honored on create only; later balance changes go through
// the ledger.
type BankAccountInput struct {
	Name           string `json:"name"`
	InitialBalance Money  `json:"initial_balance"`
}

func (a *BankAccountInput) Validate() string {
	if a.Name == "" {
		return "name is required"
	}
	return ""
}
