package models

import "time"

// TransactionCategory classifies transactions within one restaurant.
type TransactionCategory struct {
	ID           int       `json:"id"`
	RestaurantID int       `json:"restaurant_id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"` // income, expense
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TransactionCategoryInput is used for creating/updating categories.
type TransactionCategoryInput struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (c *TransactionCategoryInput) Validate() string {
	if c.Name == "" {
		return "name is required"
	}
	switch c.Type {
	case TypeIncome, TypeExpense:
	default:
		return "type must be one of: income, expense"
	}
	return ""
}
