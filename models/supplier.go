package models

import "time"

// Supplier is a vendor a restaurant buys from, optionally referenced by
// expense transactions.
type Supplier struct {
	ID           int       `json:"id"`
	RestaurantID int       `json:"restaurant_id"`
	Name         string    `json:"name"`
	Email        *string   `json:"email"`
	Phone        *string   `json:"phone"`
	TaxID        *string   `json:"tax_id"`
	Address      *string   `json:"address"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SupplierInput is used for creating/updating suppliers.
type SupplierInput struct {
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	TaxID   *string `json:"tax_id"`
	Address *string `json:"address"`
}

func (s *SupplierInput) Validate() string {
	if s.Name == "" {
		return "name is required"
	}
	return ""
}
