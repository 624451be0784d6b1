package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tavolo-app/finance/models"
)

const categorySelectQuery = `SELECT id, restaurant_id, name, type, created_at, updated_at
	FROM transaction_categories`

func scanCategory(scanner interface{ Scan(...any) error }) (models.TransactionCategory, error) {
	var c models.TransactionCategory
	err := scanner.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListCategories lists all transaction categories
// @Summary      List categories
// @Description  Get all transaction categories of the restaurant.
// @Tags         categories
// @Produce      json
// @Param        type  query     string  false  "Filter by type (income, expense)"
// @Success      200   {object}  Response{data=[]models.TransactionCategory}
// @Router       /categories [get]
// @Security     BasicAuth
func ListCategories(w http.ResponseWriter, r *http.Request) {
	query := categorySelectQuery + " WHERE restaurant_id = ?"
	args := []any{restaurantID(r)}
	if tp := r.URL.Query().Get("type"); tp != "" {
		query += " AND type = ?"
		args = append(args, tp)
	}
	query += " ORDER BY name"

	rows, err := DB.Query(query, args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	categories := []models.TransactionCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		categories = append(categories, c)
	}
	writeJSON(w, http.StatusOK, categories)
}

// CreateCategory creates a new transaction category
// @Summary      Create category
// @Description  Create a new income or expense category.
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        category  body      models.TransactionCategoryInput  true  "Category contents"
// @Success      201       {object}  Response{data=models.TransactionCategory}
// @Failure      400       {object}  Response{error=string}
// @Router       /categories [post]
// @Security     BasicAuth
func CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input models.TransactionCategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var id int
	err := DB.QueryRow("INSERT INTO transaction_categories (restaurant_id, name, type) VALUES (?, ?, ?) RETURNING id",
		restaurantID(r), input.Name, input.Type).Scan(&id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c, err := scanCategory(DB.QueryRow(categorySelectQuery+" WHERE id = ?", id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to re-fetch created category: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCategory renames an existing category
// @Summary      Update category
// @Description  Rename a category. The type is fixed once transactions reference it, so only the name changes.
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id        path      int                              true  "Category ID"
// @Param        category  body      models.TransactionCategoryInput  true  "Updated category contents"
// @Success      200       {object}  Response{data=models.TransactionCategory}
// @Failure      400       {object}  Response{error=string}
// @Failure      404       {object}  Response{error=string}
// @Router       /categories/{id} [put]
// @Security     BasicAuth
func UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var input models.TransactionCategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if input.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	res, err := DB.Exec("UPDATE transaction_categories SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND restaurant_id = ?",
		input.Name, id, restaurantID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	c, err := scanCategory(DB.QueryRow(categorySelectQuery+" WHERE id = ?", id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to re-fetch updated category: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCategory deletes a category
// @Summary      Delete category
// @Description  Remove a category. Transactions referencing it keep running with the link cleared.
// @Tags         categories
// @Produce      json
// @Param        id   path      int  true  "Category ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /categories/{id} [delete]
// @Security     BasicAuth
func DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	res, err := DB.Exec("DELETE FROM transaction_categories WHERE id = ? AND restaurant_id = ?", id, restaurantID(r))
	if err != nil {
		if strings.Contains(err.Error(), "constraint") {
			writeError(w, http.StatusInternalServerError, "category is still referenced; reassign transactions first")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
