package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tavolo-app/finance/models"
)

const supplierSelectQuery = `SELECT id, restaurant_id, name, email, phone, tax_id, address, created_at, updated_at
	FROM suppliers`

func scanSupplier(scanner interface{ Scan(...any) error }) (models.Supplier, error) {
	var s models.Supplier
	err := scanner.Scan(&s.ID, &s.RestaurantID, &s.Name, &s.Email, &s.Phone, &s.TaxID, &s.Address, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// ListSuppliers lists all suppliers
// @Summary      List suppliers
// @Description  Get all suppliers of the restaurant.
// @Tags         suppliers
// @Produce      json
// @Param        search  query     string  false  "Search by name"
// @Success      200     {object}  Response{data=[]models.Supplier}
// @Router       /suppliers [get]
// @Security     BasicAuth
func ListSuppliers(w http.ResponseWriter, r *http.Request) {
	query := supplierSelectQuery + " WHERE restaurant_id = ?"
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

	suppliers := []models.Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		suppliers = append(suppliers, s)
	}
	writeJSON(w, http.StatusOK, suppliers)
}

// GetSupplier retrieves a single supplier by ID
// @Summary      Get supplier
// @Description  Get details of a specific supplier.
// @Tags         suppliers
// @Produce      json
// @Param        id   path      int  true  "Supplier ID"
// @Success      200  {object}  Response{data=models.Supplier}
// @Failure      404  {object}  Response{error=string}
// @Router       /suppliers/{id} [get]
// @Security     BasicAuth
func GetSupplier(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	s, err := scanSupplier(DB.QueryRow(supplierSelectQuery+" WHERE id = ? AND restaurant_id = ?", id, restaurantID(r)))
	if err != nil {
		writeError(w, http.StatusNotFound, "supplier not found")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// CreateSupplier creates a new supplier
// @Summary      Create supplier
// @Description  Create a new supplier.
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        supplier  body      models.SupplierInput  true  "Supplier contents"
// @Success      201       {object}  Response{data=models.Supplier}
// @Failure      400       {object}  Response{error=string}
// @Router       /suppliers [post]
// @Security     BasicAuth
func CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var input models.SupplierInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var id int
	err := DB.QueryRow(`INSERT INTO suppliers (restaurant_id, name, email, phone, tax_id, address)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		restaurantID(r), input.Name, input.Email, input.Phone, input.TaxID, input.Address).Scan(&id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s, err := scanSupplier(DB.QueryRow(supplierSelectQuery+" WHERE id = ?", id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to re-fetch created supplier: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// UpdateSupplier updates an existing supplier
// @Summary      Update supplier
// @Description  Update details of an existing supplier.
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        id        path      int                   true  "Supplier ID"
// @Param        supplier  body      models.SupplierInput  true  "Updated supplier contents"
// @Success      200       {object}  Response{data=models.Supplier}
// @Failure      400       {object}  Response{error=string}
// @Failure      404       {object}  Response{error=string}
// @Router       /suppliers/{id} [put]
// @Security     BasicAuth
func UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var input models.SupplierInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := DB.Exec(`UPDATE suppliers SET name = ?, email = ?, phone = ?, tax_id = ?, address = ?,
		updated_at = CURRENT_TIMESTAMP WHERE id = ? AND restaurant_id = ?`,
		input.Name, input.Email, input.Phone, input.TaxID, input.Address, id, restaurantID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "supplier not found")
		return
	}

	s, err := scanSupplier(DB.QueryRow(supplierSelectQuery+" WHERE id = ?", id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to re-fetch updated supplier: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DeleteSupplier deletes a supplier
// @Summary      Delete supplier
// @Description  Remove a supplier. Transactions referencing it keep running with the link cleared.
// @Tags         suppliers
// @Produce      json
// @Param        id   path      int  true  "Supplier ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /suppliers/{id} [delete]
// @Security     BasicAuth
func DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	res, err := DB.Exec("DELETE FROM suppliers WHERE id = ? AND restaurant_id = ?", id, restaurantID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "supplier not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
