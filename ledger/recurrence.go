package ledger

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/tavolo-app/finance/models"
)

const dateLayout = "2006-01-02"

// Projection bounds. The window keeps advancing because callers re-invoke
// the sync periodically; the step cap guarantees termination even on
// misconfigured recurrence data.
const (
	projectionWindowDays = 45
	maxStepsPerTemplate  = 12
)

// nextOccurrence steps a due date forward by one recurrence interval.
// Month and year steps clamp to the last day of the target month, so a
// template due on Jan 31 recurs on Feb 29/28 rather than skipping into
// March. Returns false for an unknown frequency.
func nextOccurrence(frequency string, from time.Time) (time.Time, bool) {
	switch frequency {
	case models.FrequencyWeekly:
		return from.AddDate(0, 0, 7), true
	case models.FrequencyMonthly:
		return addMonthsClamped(from, 1), true
	case models.FrequencyYearly:
		return addMonthsClamped(from, 12), true
	default:
		return time.Time{}, false
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// projectDates returns the due dates to materialize for one template:
// stepping from lastDate, bounded by the recurrence end date (inclusive),
// the projection window end (inclusive), and the per-invocation step cap.
func projectDates(frequency string, lastDate, windowEnd time.Time, endDate *time.Time) []time.Time {
	var dates []time.Time
	cur := lastDate
	for i := 0; i < maxStepsPerTemplate; i++ {
		next, ok := nextOccurrence(frequency, cur)
		if !ok {
			break
		}
		if endDate != nil && next.After(*endDate) {
			break
		}
		if next.After(windowEnd) {
			break
		}
		dates = append(dates, next)
		cur = next
	}
	return dates
}

// recurringTemplate is the subset of a template row the projector needs.
type recurringTemplate struct {
	ID                int
	Description       string
	Amount            models.Money
	Type              string
	DueDate           string
	Frequency         *string
	RecurrenceEndDate *string
	CategoryID        *int
	SupplierID        *int
	BankAccountID     *int
}

// SyncRecurring materializes pending instances for every active recurrence
// template of a restaurant, projecting from each template's newest child (or
// its own due date) up to now + 45 days. Each template is its own atomic
// unit; a failing template is logged and skipped so the rest still project.
// Repeated calls inside an already-projected window create nothing.
func (s *Service) SyncRecurring(restaurantID int, now time.Time) ([]models.Transaction, error) {
	today := now.Format(dateLayout)
	windowEnd := now.AddDate(0, 0, projectionWindowDays)

	rows, err := s.db.Query(`SELECT id, description, amount, type, due_date,
		recurrence_frequency, recurrence_end_date, category_id, supplier_id, bank_account_id
		FROM transactions
		WHERE restaurant_id = ? AND is_recurring = 1 AND parent_transaction_id IS NULL
		AND (recurrence_end_date IS NULL OR recurrence_end_date >= ?)`, restaurantID, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []recurringTemplate
	for rows.Next() {
		var t recurringTemplate
		if err := rows.Scan(&t.ID, &t.Description, &t.Amount, &t.Type, &t.DueDate,
			&t.Frequency, &t.RecurrenceEndDate, &t.CategoryID, &t.SupplierID, &t.BankAccountID); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	generated := []models.Transaction{}
	for _, tmpl := range templates {
		created, err := s.projectTemplate(restaurantID, tmpl, windowEnd)
		if err != nil {
			slog.Error("recurrence projection failed for template",
				"template_id", tmpl.ID, "restaurant_id", restaurantID, "error", err)
			continue
		}
		generated = append(generated, created...)
	}

	slog.Info("recurring sync complete", "restaurant_id", restaurantID,
		"templates", len(templates), "generated", len(generated))
	return generated, nil
}

// projectTemplate generates the missing instances of one template in a
// single database transaction.
func (s *Service) projectTemplate(restaurantID int, tmpl recurringTemplate, windowEnd time.Time) ([]models.Transaction, error) {
	if tmpl.Frequency == nil {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// lastDate = newest generated child, else the template's own due date.
	lastDateStr := tmpl.DueDate
	var childDue string
	err = tx.QueryRow(`SELECT due_date FROM transactions WHERE parent_transaction_id = ?
		ORDER BY due_date DESC LIMIT 1`, tmpl.ID).Scan(&childDue)
	switch err {
	case nil:
		lastDateStr = childDue
	case sql.ErrNoRows:
	default:
		return nil, err
	}

	lastDate, err := time.Parse(dateLayout, lastDateStr)
	if err != nil {
		return nil, err
	}

	var endDate *time.Time
	if tmpl.RecurrenceEndDate != nil {
		d, err := time.Parse(dateLayout, *tmpl.RecurrenceEndDate)
		if err != nil {
			return nil, err
		}
		endDate = &d
	}

	var ids []int64
	for _, due := range projectDates(*tmpl.Frequency, lastDate, windowEnd, endDate) {
		res, err := tx.Exec(`INSERT INTO transactions (restaurant_id, description, amount, type, status,
			due_date, category_id, supplier_id, bank_account_id, is_recurring, parent_transaction_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			restaurantID, tmpl.Description, int64(tmpl.Amount), tmpl.Type, models.StatusPending,
			due.Format(dateLayout), tmpl.CategoryID, tmpl.SupplierID, tmpl.BankAccountID, tmpl.ID)
		if err != nil {
			return nil, err
		}
		id, _ := res.LastInsertId()
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	var created []models.Transaction
	for _, id := range ids {
		t, err := s.Get(restaurantID, int(id))
		if err != nil {
			return created, err
		}
		created = append(created, t)
	}
	return created, nil
}
