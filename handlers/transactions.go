package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tavolo-app/finance/ledger"
	"github.com/tavolo-app/finance/models"
)

// transactionListData is the payload of a transaction listing.
type transactionListData struct {
	Transactions []models.Transaction      `json:"transactions"`
	Summary      models.TransactionSummary `json:"summary"`
}

// transferData confirms a completed transfer.
type transferData struct {
	Success bool               `json:"success"`
	Debit   models.Transaction `json:"debit"`
	Credit  models.Transaction `json:"credit"`
}

// syncRecurringData reports the instances created by a recurrence sync.
type syncRecurringData struct {
	GeneratedCount int                  `json:"generated_count"`
	Generated      []models.Transaction `json:"generated"`
}

// ListTransactions lists transactions with an aggregate summary
// @Summary      List transactions
// @Description  Get transactions filtered by due-date range, status, and type, ordered by due date, with income/expense totals over the filtered set.
// @Tags         transactions
// @Produce      json
// @Param        start_date  query     string  false  "Due date from (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "Due date to (YYYY-MM-DD)"
// @Param        status      query     string  false  "Filter by status (pending, paid, canceled)"
// @Param        type        query     string  false  "Filter by type (income, expense)"
// @Success      200         {object}  Response{data=transactionListData}
// @Router       /transactions [get]
// @Security     BasicAuth
func ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txns, summary, err := Ledger.List(restaurantID(r), ledger.ListFilters{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Status:    q.Get("status"),
		Type:      q.Get("type"),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionListData{Transactions: txns, Summary: summary})
}

// GetTransaction retrieves a single transaction by ID
// @Summary      Get transaction
// @Description  Get details of a specific transaction.
// @Tags         transactions
// @Produce      json
// @Param        id   path      int  true  "Transaction ID"
// @Success      200  {object}  Response{data=models.Transaction}
// @Failure      404  {object}  Response{error=string}
// @Router       /transactions/{id} [get]
// @Security     BasicAuth
func GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	t, err := Ledger.Get(restaurantID(r), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTransaction creates a new transaction
// @Summary      Create transaction
// @Description  Create a new income or expense. Creating it already paid with a linked account applies the balance effect atomically with the insert.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        transaction  body      models.TransactionInput  true  "Transaction contents"
// @Success      201          {object}  Response{data=models.Transaction}
// @Failure      400          {object}  Response{error=string}
// @Router       /transactions [post]
// @Security     BasicAuth
func CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var input models.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	t, err := Ledger.Create(restaurantID(r), input)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if Events != nil {
		Events.TransactionEvent(r.Context(), "transaction.created", t.RestaurantID, t.ID)
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTransaction applies a partial update to a transaction
// @Summary      Update transaction
// @Description  Update fields of a transaction. Status and account changes reverse the old balance effect and apply the new one in a single unit.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id           path      int                       true  "Transaction ID"
// @Param        transaction  body      models.TransactionUpdate  true  "Fields to update"
// @Success      200          {object}  Response{data=models.Transaction}
// @Failure      400          {object}  Response{error=string}
// @Failure      404          {object}  Response{error=string}
// @Router       /transactions/{id} [put]
// @Security     BasicAuth
func UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var input models.TransactionUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	t, err := Ledger.Update(restaurantID(r), id, input)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if Events != nil {
		Events.TransactionEvent(r.Context(), "transaction.updated", t.RestaurantID, t.ID)
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTransaction deletes a transaction
// @Summary      Delete transaction
// @Description  Remove a transaction, reversing its balance effect first when it was paid and account-linked.
// @Tags         transactions
// @Produce      json
// @Param        id   path      int  true  "Transaction ID"
// @Success      204  "No Content"
// @Failure      404  {object}  Response{error=string}
// @Router       /transactions/{id} [delete]
// @Security     BasicAuth
func DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	if err := Ledger.Delete(restaurantID(r), id); err != nil {
		writeLedgerError(w, err)
		return
	}
	if Events != nil {
		Events.TransactionEvent(r.Context(), "transaction.deleted", restaurantID(r), id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTransfer moves funds between two accounts
// @Summary      Create transfer
// @Description  Move funds between two accounts as one indivisible event: two paired paid transactions plus both balance mutations.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        transfer  body      models.TransferInput  true  "Transfer contents"
// @Success      201       {object}  Response{data=transferData}
// @Failure      400       {object}  Response{error=string}
// @Router       /transactions/transfer [post]
// @Security     BasicAuth
func CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var input models.TransferInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	debit, credit, err := Ledger.Transfer(restaurantID(r), input)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if Events != nil {
		Events.TransferEvent(r.Context(), restaurantID(r), debit.ID, credit.ID, int64(input.Amount))
	}
	writeJSON(w, http.StatusCreated, transferData{Success: true, Debit: debit, Credit: credit})
}

// SyncRecurring projects pending instances from recurrence templates
// @Summary      Sync recurring transactions
// @Description  Materialize upcoming pending transactions from active recurring templates, up to 45 days ahead. Idempotent within an already-projected window.
// @Tags         transactions
// @Produce      json
// @Success      200  {object}  Response{data=syncRecurringData}
// @Router       /transactions/sync-recurring [post]
// @Security     BasicAuth
func SyncRecurring(w http.ResponseWriter, r *http.Request) {
	generated, err := Ledger.SyncRecurring(restaurantID(r), time.Now())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if Events != nil && len(generated) > 0 {
		Events.RecurringSyncEvent(r.Context(), restaurantID(r), len(generated))
	}
	writeJSON(w, http.StatusOK, syncRecurringData{GeneratedCount: len(generated), Generated: generated})
}
