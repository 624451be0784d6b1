package models

import "time"

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction statuses. Only paid transactions affect account balances.
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusCanceled = "canceled"
)

// Recurrence frequencies for template transactions.
const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// Transaction represents one ledger entry: an income or expense, optionally
// linked to an account, category, supplier, order, or a paired transfer leg.
// A transaction with IsRecurring set and no parent is a recurrence template;
// generated instances point back to it via ParentTransactionID.
type Transaction struct {
	ID                  int       `json:"id"`
	RestaurantID        int       `json:"restaurant_id"`
	Description         string    `json:"description"`
	Amount              Money     `json:"amount"`
	Type                string    `json:"type"`   // income, expense
	Status              string    `json:"status"` // pending, paid, canceled
	DueDate             string    `json:"due_date"`
	PaymentDate         *string   `json:"payment_date"`
	PaymentMethod       *string   `json:"payment_method"`
	Reference           *string   `json:"reference"`
	CategoryID          *int      `json:"category_id"`
	SupplierID          *int      `json:"supplier_id"`
	BankAccountID       *int      `json:"bank_account_id"`
	OrderID             *int      `json:"order_id"`
	RecipientUserID     *int      `json:"recipient_user_id"`
	IsRecurring         bool      `json:"is_recurring"`
	RecurrenceFrequency *string   `json:"recurrence_frequency"`
	RecurrenceEndDate   *string   `json:"recurrence_end_date"`
	ParentTransactionID *int      `json:"parent_transaction_id"`
	LinkedTransactionID *int      `json:"linked_transaction_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	// Computed fields
	CategoryName    *string `json:"category_name,omitempty"`
	SupplierName    *string `json:"supplier_name,omitempty"`
	BankAccountName *string `json:"bank_account_name,omitempty"`
}

// TransactionInput is used for creating transactions.
type TransactionInput struct {
	Description         string  `json:"description"`
	Amount              Money   `json:"amount"`
	Type                string  `json:"type"`
	Status              string  `json:"status"`
	DueDate             string  `json:"due_date"`
	PaymentDate         *string `json:"payment_date"`
	PaymentMethod       *string `json:"payment_method"`
	CategoryID          *int    `json:"category_id"`
	SupplierID          *int    `json:"supplier_id"`
	BankAccountID       *int    `json:"bank_account_id"`
	OrderID             *int    `json:"order_id"`
	RecipientUserID     *int    `json:"recipient_user_id"`
	IsRecurring         bool    `json:"is_recurring"`
	RecurrenceFrequency *string `json:"recurrence_frequency"`
	RecurrenceEndDate   *string `json:"recurrence_end_date"`
}

func (t *TransactionInput) Validate() string {
	if t.Description == "" {
		return "description is required"
	}
	if t.Amount <= 0 {
		return "amount must be positive"
	}
	switch t.Type {
	case TypeIncome, TypeExpense:
	default:
		return "type must be one of: income, expense"
	}
	switch t.Status {
	case "", StatusPending, StatusPaid, StatusCanceled:
	default:
		return "status must be one of: pending, paid, canceled"
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.DueDate == "" {
		return "due_date is required"
	}
	if msg := validateDate(t.DueDate, "due_date"); msg != "" {
		return msg
	}
	if t.PaymentDate != nil {
		if msg := validateDate(*t.PaymentDate, "payment_date"); msg != "" {
			return msg
		}
	}
	if t.IsRecurring {
		if t.RecurrenceFrequency == nil {
			return "recurrence_frequency is required for recurring transactions"
		}
		if msg := validateFrequency(*t.RecurrenceFrequency); msg != "" {
			return msg
		}
		if t.RecurrenceEndDate != nil {
			if msg := validateDate(*t.RecurrenceEndDate, "recurrence_end_date"); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// TransactionUpdate carries a partial update; nil fields are left unchanged.
type TransactionUpdate struct {
	Description         *string `json:"description"`
	Amount              *Money  `json:"amount"`
	Type                *string `json:"type"`
	Status              *string `json:"status"`
	DueDate             *string `json:"due_date"`
	PaymentDate         *string `json:"payment_date"`
	PaymentMethod       *string `json:"payment_method"`
	CategoryID          *int    `json:"category_id"`
	SupplierID          *int    `json:"supplier_id"`
	BankAccountID       *int    `json:"bank_account_id"`
	RecipientUserID     *int    `json:"recipient_user_id"`
	IsRecurring         *bool   `json:"is_recurring"`
	RecurrenceFrequency *string `json:"recurrence_frequency"`
	RecurrenceEndDate   *string `json:"recurrence_end_date"`
}

func (t *TransactionUpdate) Validate() string {
	if t.Description != nil && *t.Description == "" {
		return "description cannot be empty"
	}
	if t.Amount != nil && *t.Amount <= 0 {
		return "amount must be positive"
	}
	if t.Type != nil {
		switch *t.Type {
		case TypeIncome, TypeExpense:
		default:
			return "type must be one of: income, expense"
		}
	}
	if t.Status != nil {
		switch *t.Status {
		case StatusPending, StatusPaid, StatusCanceled:
		default:
			return "status must be one of: pending, paid, canceled"
		}
	}
	if t.DueDate != nil {
		if msg := validateDate(*t.DueDate, "due_date"); msg != "" {
			return msg
		}
	}
	if t.PaymentDate != nil {
		if msg := validateDate(*t.PaymentDate, "payment_date"); msg != "" {
			return msg
		}
	}
	if t.RecurrenceFrequency != nil {
		if msg := validateFrequency(*t.RecurrenceFrequency); msg != "" {
			return msg
		}
	}
	if t.RecurrenceEndDate != nil {
		if msg := validateDate(*t.RecurrenceEndDate, "recurrence_end_date"); msg != "" {
			return msg
		}
	}
	return ""
}

// TransferInput is used for moving funds between two accounts.
type TransferInput struct {
	FromAccountID int     `json:"from_account_id"`
	ToAccountID   int     `json:"to_account_id"`
	Amount        Money   `json:"amount"`
	Date          *string `json:"date"`
	Description   *string `json:"description"`
}

func (t *TransferInput) Validate() string {
	if t.FromAccountID <= 0 {
		return "from_account_id is required"
	}
	if t.ToAccountID <= 0 {
		return "to_account_id is required"
	}
	if t.FromAccountID == t.ToAccountID {
		return "to_account_id must differ from from_account_id"
	}
	if t.Amount <= 0 {
		return "amount must be positive"
	}
	if t.Date != nil {
		if msg := validateDate(*t.Date, "date"); msg != "" {
			return msg
		}
	}
	return ""
}

// TransactionSummary aggregates a filtered transaction listing.
type TransactionSummary struct {
	TotalIncome  Money `json:"total_income"`
	TotalExpense Money `json:"total_expense"`
}

func validateDate(s, field string) string {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return field + " must be in YYYY-MM-DD format"
	}
	return ""
}

func validateFrequency(f string) string {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return ""
	}
	return "recurrence_frequency must be one of: weekly, monthly, yearly"
}
