package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tavolo-app/finance/models"
)

const accountSelectQuery = `SELECT id, restaurant_id, name, current_balance, created_at, updated_at
	FROM bank_accounts`

func scanAccount(scanner interface{ Scan(...any) error }) (models.BankAccount, error) {
	var a models.BankAccount
	err := scanner.Scan(&a.ID, &a.RestaurantID, &a.Name, &a.CurrentBalance, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func getAccountByID(restaurantID, id int) (models.BankAccount, error) {
	return scanAccount(DB.QueryRow(accountSelectQuery+" WHERE id = ? AND restaurant_id = ?", id, restaurantID))
}

// ListAccounts lists all bank accounts
// @Summary      List bank accounts
// @Description  Get all bank accounts of the restaurant with current balances.
// @Tags         accounts
// @Produce      json
// @Param        search  query     string  false  "Search by name"
// @Success      200     {object}  Response{data=[]models.BankAccount}
// @Router       /accounts [get]
// @Security     BasicAuth
func ListAccounts(w http.ResponseWriter, r *http.Request) {
	query := accountSelectQuery + " WHERE restaurant_id = ?"
	args := []any{restaurantID(r)}
	if search := r.URL.Query().Get("search"); search != "" {
		query += " AND name LIKE ?"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY name"

	rows, err := DB.Query(query, args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	accounts := []models.BankAccount{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		accounts = append(accounts, a)
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccount retrieves a single bank account by ID
// @Summary      Get bank account
// @Description  Get details and current balance of a specific account.
// @Tags         accounts
// @Produce      json
// @Param        id   path      int  true  "Account ID"
// @Success      200  {object}  Response{data=models.BankAccount}
// @Failure      404  {object}  Response{error=string}
// @Router       /accounts/{id} [get]
// @Security     BasicAuth
func GetAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	a, err := getAccountByID(restaurantID(r), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "bank account not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// CreateAccount creates a new bank account
// @Summary      Create bank account
// @Description  Create a new bank account. The initial balance is the only balance write outside the ledger.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        account  body      models.BankAccountInput  true  "Account contents"
// @Success      201      {object}  Response{data=models.BankAccount}
// @Failure      400      {object}  Response{error=string}
// @Router       /accounts [post]
// @Security     BasicAuth
func CreateAccount(w http.ResponseWriter, r *http.Request) {
	var input models.BankAccountInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var id int
	err := DB.QueryRow("INSERT INTO bank_accounts (restaurant_id, name, current_balance) VALUES (?, ?, ?) RETURNING id",
		restaurantID(r), input.Name, int64(input.InitialBalance)).Scan(&id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a, err := getAccountByID(restaurantID(r), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to re-fetch created account: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// UpdateAccount renames an existing bank account
// @Summary      Update bank account
// @Description  Rename an account. Balances cannot be edited directly.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id       path      int                      true  "Account ID"
// @Param        account  body      models.BankAccountInput  true  "Updated account contents"
// @Success      200      {object}  Response{data=models.BankAccount}
// @Failure      400      {object}  Response{error=string}
// @Failure      404      {object}  Response{error=string}
// @Router       /accounts/{id} [put]
// @Security     BasicAuth
func UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var input models.BankAccountInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := DB.Exec("UPDATE bank_accounts SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND restaurant_id = ?",
		input.Name, id, restaurantID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "bank account not found")
		return
	}

	a, err := getAccountByID(restaurantID(r), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to re-fetch updated account: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAccount deletes a bank account
// @Summary      Delete bank account
// @Description  Remove an account. Fails while transactions still reference it.
// @Tags         accounts
// @Produce      json
// @Param        id   path      int  true  "Account ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /accounts/{id} [delete]
// @Security     BasicAuth
func DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	res, err := DB.Exec("DELETE FROM bank_accounts WHERE id = ? AND restaurant_id = ?", id, restaurantID(r))
	if err != nil {
		if strings.Contains(err.Error(), "constraint") {
			writeError(w, http.StatusInternalServerError, "account is still referenced by transactions; delete or reassign them first")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "bank account not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
