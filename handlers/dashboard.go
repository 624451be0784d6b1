package handlers

import (
	"net/http"
	"time"

	"github.com/tavolo-app/finance/models"
)

type dashboardData struct {
	TotalAccounts    int          `json:"total_accounts"`
	TotalSuppliers   int          `json:"total_suppliers"`
	TotalCategories  int          `json:"total_categories"`
	CombinedBalance  models.Money `json:"combined_balance"`
	PendingIncome    models.Money `json:"pending_income"`
	PendingExpense   models.Money `json:"pending_expense"`
	OverdueCount     int          `json:"overdue_count"`
	PaidIncomeMonth  models.Money `json:"paid_income_month"`
	PaidExpenseMonth models.Money `json:"paid_expense_month"`

	RecentTransactions []map[string]any `json:"recent_transactions"`
}

// GetDashboard retrieves financial summary statistics
// @Summary      Get dashboard
// @Description  Get combined balances, pending totals, overdue count, and recent transactions for the restaurant.
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  Response{data=dashboardData}
// @Router       /dashboard [get]
// @Security     BasicAuth
func GetDashboard(w http.ResponseWriter, r *http.Request) {
	var d dashboardData
	rid := restaurantID(r)
	today := time.Now().Format("2006-01-02")
	monthStart := time.Now().Format("2006-01") + "-01"

	DB.QueryRow("SELECT COUNT(*) FROM bank_accounts WHERE restaurant_id = ?", rid).Scan(&d.TotalAccounts)
	DB.QueryRow("SELECT COUNT(*) FROM suppliers WHERE restaurant_id = ?", rid).Scan(&d.TotalSuppliers)
	DB.QueryRow("SELECT COUNT(*) FROM transaction_categories WHERE restaurant_id = ?", rid).Scan(&d.TotalCategories)
	DB.QueryRow("SELECT COALESCE(SUM(current_balance), 0) FROM bank_accounts WHERE restaurant_id = ?", rid).Scan(&d.CombinedBalance)

	DB.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE restaurant_id = ? AND status = 'pending' AND type = 'income'`, rid).Scan(&d.PendingIncome)
	DB.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE restaurant_id = ? AND status = 'pending' AND type = 'expense'`, rid).Scan(&d.PendingExpense)
	DB.QueryRow(`SELECT COUNT(*) FROM transactions
		WHERE restaurant_id = ? AND status = 'pending' AND due_date < ?`, rid, today).Scan(&d.OverdueCount)

	DB.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE restaurant_id = ? AND status = 'paid' AND type = 'income' AND due_date >= ?`, rid, monthStart).Scan(&d.PaidIncomeMonth)
	DB.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE restaurant_id = ? AND status = 'paid' AND type = 'expense' AND due_date >= ?`, rid, monthStart).Scan(&d.PaidExpenseMonth)

	// Recent 5 transactions
	rows, err := DB.Query(`SELECT t.id, t.type, t.status, t.amount, t.due_date, t.description, a.name
		FROM transactions t LEFT JOIN bank_accounts a ON t.bank_account_id = a.id
		WHERE t.restaurant_id = ?
		ORDER BY t.created_at DESC LIMIT 5`, rid)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var id int
			var tp, status, due, desc string
			var acct *string
			var amount int64
			rows.Scan(&id, &tp, &status, &amount, &due, &desc, &acct)
			d.RecentTransactions = append(d.RecentTransactions, map[string]any{
				"id":           id,
				"type":         tp,
				"status":       status,
				"amount":       amount,
				"due_date":     due,
				"description":  desc,
				"account_name": acct,
			})
		}
	}
	if d.RecentTransactions == nil {
		d.RecentTransactions = []map[string]any{}
	}

	writeJSON(w, http.StatusOK, d)
}
