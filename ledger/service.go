package ledger

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tavolo-app/finance/models"
)

const txnSelectQuery = `SELECT t.id, t.restaurant_id, t.description, t.amount, t.type, t.status,
	t.due_date, t.payment_date, t.payment_method, t.reference,
	t.category_id, t.supplier_id, t.bank_account_id, t.order_id, t.recipient_user_id,
	t.is_recurring, t.recurrence_frequency, t.recurrence_end_date,
	t.parent_transaction_id, t.linked_transaction_id,
	t.created_at, t.updated_at,
	c.name, s.name, a.name
	FROM transactions t
	LEFT JOIN transaction_categories c ON t.category_id = c.id
	LEFT JOIN suppliers s ON t.supplier_id = s.id
	LEFT JOIN bank_accounts a ON t.bank_account_id = a.id`

// Service owns every read-modify-write on transactions and account balances.
// All balance mutation goes through adjustBalance inside a single database
// transaction, so a half-applied effect is never observable.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (models.Transaction, error) {
	var t models.Transaction
	err := scanner.Scan(&t.ID, &t.RestaurantID, &t.Description, &t.Amount, &t.Type, &t.Status,
		&t.DueDate, &t.PaymentDate, &t.PaymentMethod, &t.Reference,
		&t.CategoryID, &t.SupplierID, &t.BankAccountID, &t.OrderID, &t.RecipientUserID,
		&t.IsRecurring, &t.RecurrenceFrequency, &t.RecurrenceEndDate,
		&t.ParentTransactionID, &t.LinkedTransactionID,
		&t.CreatedAt, &t.UpdatedAt,
		&t.CategoryName, &t.SupplierName, &t.BankAccountName)
	return t, err
}

// signedEffect is the delta a paid transaction applies to its account.
func signedEffect(typ string, amount models.Money) models.Money {
	if typ == models.TypeIncome {
		return amount
	}
	return -amount
}

// adjustBalance applies a signed delta to one account inside tx. Negative
// resulting balances are allowed; overdraft is a business reality, not an
// error.
func adjustBalance(tx *sql.Tx, restaurantID, accountID int, delta models.Money) error {
	res, err := tx.Exec(`UPDATE bank_accounts SET current_balance = current_balance + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND restaurant_id = ?`, int64(delta), accountID, restaurantID)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func accountExists(tx *sql.Tx, restaurantID, accountID int) error {
	var one int
	err := tx.QueryRow("SELECT 1 FROM bank_accounts WHERE id = ? AND restaurant_id = ?", accountID, restaurantID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrAccountNotFound
	}
	return err
}

// Get returns one transaction with joined category/supplier/account names.
func (s *Service) Get(restaurantID, id int) (models.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRow(txnSelectQuery+" WHERE t.id = ? AND t.restaurant_id = ?", id, restaurantID))
	if err == sql.ErrNoRows {
		return t, ErrTransactionNotFound
	}
	return t, err
}

// ListFilters narrows a transaction listing. Empty fields are ignored;
// the date range is inclusive on both ends.
type ListFilters struct {
	StartDate string
	EndDate   string
	Status    string
	Type      string
}

// List returns transactions ordered by due date ascending, plus the
// income/expense totals of the filtered set.
func (s *Service) List(restaurantID int, f ListFilters) ([]models.Transaction, models.TransactionSummary, error) {
	query := txnSelectQuery
	conditions := []string{"t.restaurant_id = ?"}
	args := []any{restaurantID}

	if f.StartDate != "" {
		conditions = append(conditions, "t.due_date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		conditions = append(conditions, "t.due_date <= ?")
		args = append(args, f.EndDate)
	}
	if f.Status != "" {
		conditions = append(conditions, "t.status = ?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		conditions = append(conditions, "t.type = ?")
		args = append(args, f.Type)
	}
	query += " WHERE " + strings.Join(conditions, " AND ")
	query += " ORDER BY t.due_date ASC, t.id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, models.TransactionSummary{}, err
	}
	defer rows.Close()

	txns := []models.Transaction{}
	var summary models.TransactionSummary
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, models.TransactionSummary{}, err
		}
		switch t.Type {
		case models.TypeIncome:
			summary.TotalIncome += t.Amount
		case models.TypeExpense:
			summary.TotalExpense += t.Amount
		}
		txns = append(txns, t)
	}
	return txns, summary, rows.Err()
}

// Create persists a new transaction. When it is created already paid and
// linked to an account, the balance effect is applied in the same unit of
// work as the insert.
func (s *Service) Create(restaurantID int, in models.TransactionInput) (models.Transaction, error) {
	if in.Status == "" {
		in.Status = models.StatusPending
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Transaction{}, err
	}
	defer tx.Rollback()

	if in.BankAccountID != nil {
		if err := accountExists(tx, restaurantID, *in.BankAccountID); err != nil {
			return models.Transaction{}, err
		}
	}

	res, err := tx.Exec(`INSERT INTO transactions (restaurant_id, description, amount, type, status,
		due_date, payment_date, payment_method, category_id, supplier_id, bank_account_id,
		order_id, recipient_user_id, is_recurring, recurrence_frequency, recurrence_end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		restaurantID, in.Description, int64(in.Amount), in.Type, in.Status,
		in.DueDate, in.PaymentDate, in.PaymentMethod, in.CategoryID, in.SupplierID, in.BankAccountID,
		in.OrderID, in.RecipientUserID, in.IsRecurring, in.RecurrenceFrequency, in.RecurrenceEndDate)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, _ := res.LastInsertId()

	if in.Status == models.StatusPaid && in.BankAccountID != nil {
		if err := adjustBalance(tx, restaurantID, *in.BankAccountID, signedEffect(in.Type, in.Amount)); err != nil {
			slog.Error("create: balance adjustment failed", "transaction_id", id, "account_id", *in.BankAccountID, "error", err)
			return models.Transaction{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Transaction{}, err
	}
	return s.Get(restaurantID, int(id))
}

// Update applies a partial update with the reverse-then-reapply rule:
// the old effect (if any) is undone, the new fields are persisted, and the
// new effect (if any) is applied, all in one unit so no double counting or
// residual effect can survive a status or account change.
func (s *Service) Update(restaurantID, id int, in models.TransactionUpdate) (models.Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return models.Transaction{}, err
	}
	defer tx.Rollback()

	old, err := loadForUpdate(tx, restaurantID, id)
	if err != nil {
		return models.Transaction{}, err
	}

	if old.Status == models.StatusPaid && old.BankAccountID != nil {
		if err := adjustBalance(tx, restaurantID, *old.BankAccountID, -signedEffect(old.Type, old.Amount)); err != nil {
			slog.Error("update: reversing old effect failed", "transaction_id", id, "account_id", *old.BankAccountID, "error", err)
			return models.Transaction{}, err
		}
	}

	next := applyUpdate(old, in)
	if next.BankAccountID != nil && (old.BankAccountID == nil || *old.BankAccountID != *next.BankAccountID) {
		if err := accountExists(tx, restaurantID, *next.BankAccountID); err != nil {
			return models.Transaction{}, err
		}
	}

	_, err = tx.Exec(`UPDATE transactions SET description = ?, amount = ?, type = ?, status = ?,
		due_date = ?, payment_date = ?, payment_method = ?, category_id = ?, supplier_id = ?,
		bank_account_id = ?, recipient_user_id = ?, is_recurring = ?, recurrence_frequency = ?,
		recurrence_end_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND restaurant_id = ?`,
		next.Description, int64(next.Amount), next.Type, next.Status,
		next.DueDate, next.PaymentDate, next.PaymentMethod, next.CategoryID, next.SupplierID,
		next.BankAccountID, next.RecipientUserID, next.IsRecurring, next.RecurrenceFrequency,
		next.RecurrenceEndDate, id, restaurantID)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	if next.Status == models.StatusPaid && next.BankAccountID != nil {
		if err := adjustBalance(tx, restaurantID, *next.BankAccountID, signedEffect(next.Type, next.Amount)); err != nil {
			slog.Error("update: applying new effect failed", "transaction_id", id, "account_id", *next.BankAccountID, "error", err)
			return models.Transaction{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Transaction{}, err
	}
	return s.Get(restaurantID, id)
}

// Delete reverses the balance effect of a paid, account-linked transaction
// and removes the record in one unit. Templates whose generated instances
// still carry applied effects cannot be deleted.
func (s *Service) Delete(restaurantID, id int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	old, err := loadForUpdate(tx, restaurantID, id)
	if err != nil {
		return err
	}

	// Children cascade on delete; refuse when any of them holds an applied
	// balance effect that would silently vanish.
	var paidChildren int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM transactions
		WHERE parent_transaction_id = ? AND status = ? AND bank_account_id IS NOT NULL`,
		id, models.StatusPaid).Scan(&paidChildren); err != nil {
		return err
	}
	if paidChildren > 0 {
		return ErrConstraint
	}

	if old.Status == models.StatusPaid && old.BankAccountID != nil {
		if err := adjustBalance(tx, restaurantID, *old.BankAccountID, -signedEffect(old.Type, old.Amount)); err != nil {
			slog.Error("delete: reversing effect failed", "transaction_id", id, "account_id", *old.BankAccountID, "error", err)
			return err
		}
	}

	if _, err := tx.Exec("DELETE FROM transactions WHERE id = ? AND restaurant_id = ?", id, restaurantID); err != nil {
		if strings.Contains(err.Error(), "constraint") {
			return ErrConstraint
		}
		return fmt.Errorf("delete transaction: %w", err)
	}

	return tx.Commit()
}

// Transfer moves funds between two accounts as one indivisible event: a paid
// expense leg on the source, a paid income leg on the destination, linked to
// each other, plus both balance mutations. Either everything commits or
// nothing does.
func (s *Service) Transfer(restaurantID int, in models.TransferInput) (debit, credit models.Transaction, err error) {
	date := time.Now().Format(dateLayout)
	if in.Date != nil {
		date = *in.Date
	}
	desc := "Transfer between accounts"
	if in.Description != nil && *in.Description != "" {
		desc = *in.Description
	}
	ref := "TRF-" + uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return debit, credit, err
	}
	defer tx.Rollback()

	if err = accountExists(tx, restaurantID, in.FromAccountID); err != nil {
		return debit, credit, err
	}
	if err = accountExists(tx, restaurantID, in.ToAccountID); err != nil {
		return debit, credit, err
	}

	res, err := tx.Exec(`INSERT INTO transactions (restaurant_id, description, amount, type, status,
		due_date, payment_date, reference, bank_account_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		restaurantID, "Transfer out: "+desc, int64(in.Amount), models.TypeExpense, models.StatusPaid,
		date, date, ref, in.FromAccountID)
	if err != nil {
		return debit, credit, fmt.Errorf("insert debit leg: %w", err)
	}
	debitID, _ := res.LastInsertId()

	res, err = tx.Exec(`INSERT INTO transactions (restaurant_id, description, amount, type, status,
		due_date, payment_date, reference, bank_account_id, linked_transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		restaurantID, "Transfer in: "+desc, int64(in.Amount), models.TypeIncome, models.StatusPaid,
		date, date, ref, in.ToAccountID, debitID)
	if err != nil {
		return debit, credit, fmt.Errorf("insert credit leg: %w", err)
	}
	creditID, _ := res.LastInsertId()

	if _, err = tx.Exec("UPDATE transactions SET linked_transaction_id = ? WHERE id = ?", creditID, debitID); err != nil {
		return debit, credit, fmt.Errorf("link transfer legs: %w", err)
	}

	if err = adjustBalance(tx, restaurantID, in.FromAccountID, -in.Amount); err != nil {
		return debit, credit, err
	}
	if err = adjustBalance(tx, restaurantID, in.ToAccountID, in.Amount); err != nil {
		return debit, credit, err
	}

	if err = tx.Commit(); err != nil {
		return debit, credit, err
	}

	slog.Info("transfer completed", "restaurant_id", restaurantID,
		"from_account", in.FromAccountID, "to_account", in.ToAccountID,
		"amount_cents", int64(in.Amount), "reference", ref)

	if debit, err = s.Get(restaurantID, int(debitID)); err != nil {
		return debit, credit, err
	}
	credit, err = s.Get(restaurantID, int(creditID))
	return debit, credit, err
}

// loadForUpdate reads the raw row inside tx without joins.
func loadForUpdate(tx *sql.Tx, restaurantID, id int) (models.Transaction, error) {
	var t models.Transaction
	err := tx.QueryRow(`SELECT id, restaurant_id, description, amount, type, status,
		due_date, payment_date, payment_method, reference,
		category_id, supplier_id, bank_account_id, order_id, recipient_user_id,
		is_recurring, recurrence_frequency, recurrence_end_date,
		parent_transaction_id, linked_transaction_id, created_at, updated_at
		FROM transactions WHERE id = ? AND restaurant_id = ?`, id, restaurantID).
		Scan(&t.ID, &t.RestaurantID, &t.Description, &t.Amount, &t.Type, &t.Status,
			&t.DueDate, &t.PaymentDate, &t.PaymentMethod, &t.Reference,
			&t.CategoryID, &t.SupplierID, &t.BankAccountID, &t.OrderID, &t.RecipientUserID,
			&t.IsRecurring, &t.RecurrenceFrequency, &t.RecurrenceEndDate,
			&t.ParentTransactionID, &t.LinkedTransactionID, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrTransactionNotFound
	}
	return t, err
}

// applyUpdate overlays the provided fields onto the existing record.
func applyUpdate(old models.Transaction, in models.TransactionUpdate) models.Transaction {
	next := old
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Amount != nil {
		next.Amount = *in.Amount
	}
	if in.Type != nil {
		next.Type = *in.Type
	}
	if in.Status != nil {
		next.Status = *in.Status
	}
	if in.DueDate != nil {
		next.DueDate = *in.DueDate
	}
	if in.PaymentDate != nil {
		next.PaymentDate = in.PaymentDate
	}
	if in.PaymentMethod != nil {
		next.PaymentMethod = in.PaymentMethod
	}
	if in.CategoryID != nil {
		next.CategoryID = in.CategoryID
	}
	if in.SupplierID != nil {
		next.SupplierID = in.SupplierID
	}
	if in.BankAccountID != nil {
		next.BankAccountID = in.BankAccountID
	}
	if in.RecipientUserID != nil {
		next.RecipientUserID = in.RecipientUserID
	}
	if in.IsRecurring != nil {
		next.IsRecurring = *in.IsRecurring
	}
	if in.RecurrenceFrequency != nil {
		next.RecurrenceFrequency = in.RecurrenceFrequency
	}
	if in.RecurrenceEndDate != nil {
		next.RecurrenceEndDate = in.RecurrenceEndDate
	}
	return next
}
