package ledger_test

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tavolo-app/finance/db"
	"github.com/tavolo-app/finance/ledger"
	"github.com/tavolo-app/finance/models"
)

const testRestaurant = 1

func newTestLedger(t *testing.T) (*sql.DB, *ledger.Service) {
	t.Helper()
	database, err := db.OpenPath(filepath.Join(t.TempDir(), "finance.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return database, ledger.NewService(database)
}

func createAccount(t *testing.T, database *sql.DB, name string, balance models.Money) int {
	t.Helper()
	var id int
	err := database.QueryRow("INSERT INTO bank_accounts (restaurant_id, name, current_balance) VALUES (?, ?, ?) RETURNING id",
		testRestaurant, name, int64(balance)).Scan(&id)
	if err != nil {
		t.Fatalf("create account %q: %v", name, err)
	}
	return id
}

func accountBalance(t *testing.T, database *sql.DB, id int) models.Money {
	t.Helper()
	var balance int64
	if err := database.QueryRow("SELECT current_balance FROM bank_accounts WHERE id = ?", id).Scan(&balance); err != nil {
		t.Fatalf("read balance of account %d: %v", id, err)
	}
	return models.Money(balance)
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreatePaidAppliesBalanceEffect(t *testing.T) {
	database, svc := newTestLedger(t)
	acct := createAccount(t, database, "Checking", 0)

	_, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:   "Catering gig",
		Amount:        5000,
		Type:          models.TypeIncome,
		Status:        models.StatusPaid,
		DueDate:       "2024-01-10",
		BankAccountID: intPtr(acct),
	})
	if err != nil {
		t.Fatalf("create paid income: %v", err)
	}
	if got := accountBalance(t, database, acct); got != 5000 {
		t.Errorf("balance after paid income = %d, want 5000", got)
	}

	_, err = svc.Create(testRestaurant, models.TransactionInput{
		Description:   "Produce order",
		Amount:        2000,
		Type:          models.TypeExpense,
		Status:        models.StatusPaid,
		DueDate:       "2024-01-11",
		BankAccountID: intPtr(acct),
	})
	if err != nil {
		t.Fatalf("create paid expense: %v", err)
	}
	if got := accountBalance(t, database, acct); got != 3000 {
		t.Errorf("balance after paid expense = %d, want 3000", got)
	}
}

func TestCreatePendingHasNoBalanceEffect(t *testing.T) {
	database, svc := newTestLedger(t)
	acct := createAccount(t, database, "Checking", 1000)

	_, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:   "Rent",
		Amount:        90000,
		Type:          models.TypeExpense,
		DueDate:       "2024-02-01",
		BankAccountID: intPtr(acct),
	})
	if err != nil {
		t.Fatalf("create pending expense: %v", err)
	}
	if got := accountBalance(t, database, acct); got != 1000 {
		t.Errorf("balance after pending expense = %d, want 1000", got)
	}
}

func TestStatusTransitionReversal(t *testing.T) {
	database, svc := newTestLedger(t)
	acct := createAccount(t, database, "Checking", 0)

	txn, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:   "Delivery payout",
		Amount:        50,
		Type:          models.TypeIncome,
		Status:        models.StatusPaid,
		DueDate:       "2024-01-10",
		BankAccountID: intPtr(acct),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := accountBalance(t, database, acct); got != 50 {
		t.Fatalf("balance after paid = %d, want 50", got)
	}

	if _, err := svc.Update(testRestaurant, txn.ID, models.TransactionUpdate{Status: strPtr(models.StatusCanceled)}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := accountBalance(t, database, acct); got != 0 {
		t.Errorf("balance after cancel = %d, want 0", got)
	}

	if _, err := svc.Update(testRestaurant, txn.ID, models.TransactionUpdate{Status: strPtr(models.StatusPaid)}); err != nil {
		t.Fatalf("re-pay: %v", err)
	}
	if got := accountBalance(t, database, acct); got != 50 {
		t.Errorf("balance after re-pay = %d, want 50 (no double count)", got)
	}
}

func TestUpdateMovesEffectBetweenAccounts(t *testing.T) {
	database, svc := newTestLedger(t)
	from := createAccount(t, database, "Checking", 0)
	to := createAccount(t, database, "Savings", 0)

	txn, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:   "Equipment sale",
		Amount:        700,
		Type:          models.TypeIncome,
		Status:        models.StatusPaid,
		DueDate:       "2024-01-10",
		BankAccountID: intPtr(from),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Update(testRestaurant, txn.ID, models.TransactionUpdate{BankAccountID: intPtr(to)}); err != nil {
		t.Fatalf("move account: %v", err)
	}
	if got := accountBalance(t, database, from); got != 0 {
		t.Errorf("old account residual = %d, want 0", got)
	}
	if got := accountBalance(t, database, to); got != 700 {
		t.Errorf("new account balance = %d, want 700", got)
	}
}

func TestUpdateAmountWhilePaid(t *testing.T) {
	database, svc := newTestLedger(t)
	acct := createAccount(t, database, "Checking", 0)

	txn, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:   "Wine order",
		Amount:        300,
		Type:          models.TypeExpense,
		Status:        models.StatusPaid,
		DueDate:       "2024-01-10",
		BankAccountID: intPtr(acct),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	amt := models.Money(450)
	if _, err := svc.Update(testRestaurant, txn.ID, models.TransactionUpdate{Amount: &amt}); err != nil {
		t.Fatalf("update amount: %v", err)
	}
	if got := accountBalance(t, database, acct); got != -450 {
		t.Errorf("balance after amount change = %d, want -450", got)
	}
}

func TestDeletePaidReversesBalanceEffect(t *testing.T) {
	database, svc := newTestLedger(t)
	acct := createAccount(t, database, "Checking", 0)

	txn, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:   "Till deposit",
		Amount:        1200,
		Type:          models.TypeIncome,
		Status:        models.StatusPaid,
		DueDate:       "2024-01-10",
		BankAccountID: intPtr(acct),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(testRestaurant, txn.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := accountBalance(t, database, acct); got != 0 {
		t.Errorf("balance after delete = %d, want 0", got)
	}
	if _, err := svc.Get(testRestaurant, txn.ID); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Errorf("get after delete = %v, want ErrTransactionNotFound", err)
	}
}

func TestDeleteTemplateWithPaidChildrenBlocked(t *testing.T) {
	database, svc := newTestLedger(t)
	acct := createAccount(t, database, "Checking", 0)

	tmpl, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:         "Rent",
		Amount:              90000,
		Type:                models.TypeExpense,
		DueDate:             "2024-01-15",
		BankAccountID:       intPtr(acct),
		IsRecurring:         true,
		RecurrenceFrequency: strPtr(models.FrequencyMonthly),
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	generated, err := svc.SyncRecurring(testRestaurant, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(generated) != 1 {
		t.Fatalf("generated %d instances, want 1", len(generated))
	}

	if _, err := svc.Update(testRestaurant, generated[0].ID, models.TransactionUpdate{Status: strPtr(models.StatusPaid)}); err != nil {
		t.Fatalf("pay child: %v", err)
	}

	if err := svc.Delete(testRestaurant, tmpl.ID); !errors.Is(err, ledger.ErrConstraint) {
		t.Errorf("delete template with paid child = %v, want ErrConstraint", err)
	}
}

func TestTransferAtomicity(t *testing.T) {
	database, svc := newTestLedger(t)
	from := createAccount(t, database, "Checking", 50000)
	to := createAccount(t, database, "Savings", 0)

	debit, credit, err := svc.Transfer(testRestaurant, models.TransferInput{
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        10000,
		Date:          strPtr("2024-03-01"),
		Description:   strPtr("monthly savings"),
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := accountBalance(t, database, from); got != 40000 {
		t.Errorf("source balance = %d, want 40000", got)
	}
	if got := accountBalance(t, database, to); got != 10000 {
		t.Errorf("destination balance = %d, want 10000", got)
	}

	if debit.Type != models.TypeExpense || debit.Status != models.StatusPaid {
		t.Errorf("debit leg = %s/%s, want expense/paid", debit.Type, debit.Status)
	}
	if credit.Type != models.TypeIncome || credit.Status != models.StatusPaid {
		t.Errorf("credit leg = %s/%s, want income/paid", credit.Type, credit.Status)
	}
	if debit.LinkedTransactionID == nil || *debit.LinkedTransactionID != credit.ID {
		t.Errorf("debit leg not linked to credit leg")
	}
	if credit.LinkedTransactionID == nil || *credit.LinkedTransactionID != debit.ID {
		t.Errorf("credit leg not linked to debit leg")
	}
	if debit.Reference == nil || credit.Reference == nil || *debit.Reference != *credit.Reference {
		t.Errorf("transfer legs do not share a reference")
	}
}

func TestTransferUnknownAccountRollsBack(t *testing.T) {
	database, svc := newTestLedger(t)
	from := createAccount(t, database, "Checking", 50000)

	_, _, err := svc.Transfer(testRestaurant, models.TransferInput{
		FromAccountID: from,
		ToAccountID:   9999,
		Amount:        10000,
	})
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("transfer to missing account = %v, want ErrAccountNotFound", err)
	}
	if got := accountBalance(t, database, from); got != 50000 {
		t.Errorf("source balance after failed transfer = %d, want 50000", got)
	}

	var count int
	database.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count)
	if count != 0 {
		t.Errorf("%d transaction rows after failed transfer, want 0", count)
	}
}

func TestListFiltersAndSummary(t *testing.T) {
	_, svc := newTestLedger(t)

	seed := []models.TransactionInput{
		{Description: "Lunch service", Amount: 3000, Type: models.TypeIncome, Status: models.StatusPaid, DueDate: "2024-01-05"},
		{Description: "Dinner service", Amount: 7000, Type: models.TypeIncome, Status: models.StatusPaid, DueDate: "2024-01-20"},
		{Description: "Gas bill", Amount: 1500, Type: models.TypeExpense, DueDate: "2024-01-10"},
		{Description: "February rent", Amount: 90000, Type: models.TypeExpense, DueDate: "2024-02-01"},
	}
	for _, in := range seed {
		if _, err := svc.Create(testRestaurant, in); err != nil {
			t.Fatalf("seed %q: %v", in.Description, err)
		}
	}

	txns, summary, err := svc.List(testRestaurant, ledger.ListFilters{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("filtered list returned %d transactions, want 3", len(txns))
	}
	for i := 1; i < len(txns); i++ {
		if txns[i].DueDate < txns[i-1].DueDate {
			t.Errorf("list not ordered by due date: %s before %s", txns[i-1].DueDate, txns[i].DueDate)
		}
	}
	if summary.TotalIncome != 10000 {
		t.Errorf("total income = %d, want 10000", summary.TotalIncome)
	}
	if summary.TotalExpense != 1500 {
		t.Errorf("total expense = %d, want 1500", summary.TotalExpense)
	}

	pending, _, err := svc.List(testRestaurant, ledger.ListFilters{Status: models.StatusPending})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending list returned %d transactions, want 2", len(pending))
	}
}

// The reconciliation invariant: after any sequence of operations, an
// account's balance equals the signed sum of its currently paid
// transactions.
func TestReconciliationInvariant(t *testing.T) {
	database, svc := newTestLedger(t)
	acct := createAccount(t, database, "Checking", 0)

	first, err := svc.Create(testRestaurant, models.TransactionInput{
		Description: "Catering deposit", Amount: 10000, Type: models.TypeIncome,
		Status: models.StatusPaid, DueDate: "2024-01-05", BankAccountID: intPtr(acct),
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}

	second, err := svc.Create(testRestaurant, models.TransactionInput{
		Description: "Knife sharpening", Amount: 4000, Type: models.TypeExpense,
		DueDate: "2024-01-08", BankAccountID: intPtr(acct),
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := svc.Update(testRestaurant, second.ID, models.TransactionUpdate{Status: strPtr(models.StatusPaid)}); err != nil {
		t.Fatalf("pay second: %v", err)
	}

	third, err := svc.Create(testRestaurant, models.TransactionInput{
		Description: "Mistaken entry", Amount: 2500, Type: models.TypeExpense,
		Status: models.StatusPaid, DueDate: "2024-01-09", BankAccountID: intPtr(acct),
	})
	if err != nil {
		t.Fatalf("create third: %v", err)
	}
	if err := svc.Delete(testRestaurant, third.ID); err != nil {
		t.Fatalf("delete third: %v", err)
	}

	if _, err := svc.Update(testRestaurant, first.ID, models.TransactionUpdate{Status: strPtr(models.StatusCanceled)}); err != nil {
		t.Fatalf("cancel first: %v", err)
	}
	if _, err := svc.Update(testRestaurant, first.ID, models.TransactionUpdate{Status: strPtr(models.StatusPaid)}); err != nil {
		t.Fatalf("re-pay first: %v", err)
	}

	var paidSum int64
	err = database.QueryRow(`SELECT COALESCE(SUM(CASE type WHEN 'income' THEN amount ELSE -amount END), 0)
		FROM transactions WHERE bank_account_id = ? AND status = 'paid'`, acct).Scan(&paidSum)
	if err != nil {
		t.Fatalf("sum paid effects: %v", err)
	}

	if got := accountBalance(t, database, acct); int64(got) != paidSum {
		t.Errorf("balance = %d, paid-effect sum = %d; reconciliation broken", got, paidSum)
	}
	if got := accountBalance(t, database, acct); got != 6000 {
		t.Errorf("balance = %d, want 6000", got)
	}
}

func TestSyncRecurringMonthlyWindow(t *testing.T) {
	database, svc := newTestLedger(t)
	acct := createAccount(t, database, "Checking", 0)

	tmpl, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:         "Rent",
		Amount:              90000,
		Type:                models.TypeExpense,
		DueDate:             "2024-01-15",
		BankAccountID:       intPtr(acct),
		IsRecurring:         true,
		RecurrenceFrequency: strPtr(models.FrequencyMonthly),
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	now := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	generated, err := svc.SyncRecurring(testRestaurant, now)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(generated) != 1 {
		t.Fatalf("generated %d instances, want 1 (2024-02-15 within window, 2024-03-15 beyond)", len(generated))
	}

	child := generated[0]
	if child.DueDate != "2024-02-15" {
		t.Errorf("child due date = %s, want 2024-02-15", child.DueDate)
	}
	if child.Status != models.StatusPending {
		t.Errorf("child status = %s, want pending", child.Status)
	}
	if child.IsRecurring {
		t.Errorf("generated child must not be recurring")
	}
	if child.ParentTransactionID == nil || *child.ParentTransactionID != tmpl.ID {
		t.Errorf("child not linked to template")
	}
	if child.Amount != tmpl.Amount || child.Type != tmpl.Type || child.Description != tmpl.Description {
		t.Errorf("child does not inherit template fields")
	}
	if child.BankAccountID == nil || *child.BankAccountID != acct {
		t.Errorf("child does not inherit account link")
	}
	if got := accountBalance(t, database, acct); got != 0 {
		t.Errorf("pending instance changed balance: %d", got)
	}

	// Idempotent within the already-projected window.
	again, err := svc.SyncRecurring(testRestaurant, now)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second sync generated %d instances, want 0", len(again))
	}
}

func TestSyncRecurringRespectsEndDate(t *testing.T) {
	_, svc := newTestLedger(t)

	_, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:         "Short-lived subscription",
		Amount:              2000,
		Type:                models.TypeExpense,
		DueDate:             "2024-01-15",
		IsRecurring:         true,
		RecurrenceFrequency: strPtr(models.FrequencyMonthly),
		RecurrenceEndDate:   strPtr("2024-02-01"),
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	generated, err := svc.SyncRecurring(testRestaurant, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(generated) != 0 {
		t.Errorf("generated %d instances, want 0 (first step 2024-02-15 exceeds end date)", len(generated))
	}
}

func TestSyncRecurringAdvancesFromNewestChild(t *testing.T) {
	_, svc := newTestLedger(t)

	_, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:         "Produce delivery",
		Amount:              5000,
		Type:                models.TypeExpense,
		DueDate:             "2024-01-01",
		IsRecurring:         true,
		RecurrenceFrequency: strPtr(models.FrequencyWeekly),
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	first, err := svc.SyncRecurring(testRestaurant, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("first sync generated nothing")
	}

	// A later run opens a wider window and continues from the newest child.
	second, err := svc.SyncRecurring(testRestaurant, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	seen := map[string]bool{}
	for _, txn := range append(first, second...) {
		if seen[txn.DueDate] {
			t.Errorf("duplicate instance generated for %s", txn.DueDate)
		}
		seen[txn.DueDate] = true
	}
}

func TestTenantIsolation(t *testing.T) {
	database, svc := newTestLedger(t)
	acct := createAccount(t, database, "Checking", 0)

	txn, err := svc.Create(testRestaurant, models.TransactionInput{
		Description:   "Lunch service",
		Amount:        3000,
		Type:          models.TypeIncome,
		Status:        models.StatusPaid,
		DueDate:       "2024-01-05",
		BankAccountID: intPtr(acct),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	otherRestaurant := 2
	if _, err := svc.Get(otherRestaurant, txn.ID); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Errorf("cross-tenant get = %v, want ErrTransactionNotFound", err)
	}
	if _, err := svc.Create(otherRestaurant, models.TransactionInput{
		Description:   "Poaching attempt",
		Amount:        100,
		Type:          models.TypeIncome,
		Status:        models.StatusPaid,
		DueDate:       "2024-01-05",
		BankAccountID: intPtr(acct),
	}); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Errorf("cross-tenant account link = %v, want ErrAccountNotFound", err)
	}
}
