package ledger

import (
	"testing"
	"time"

	"github.com/tavolo-app/finance/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name      string
		frequency string
		from      time.Time
		want      time.Time
		ok        bool
	}{
		{
			name:      "weekly adds seven days",
			frequency: models.FrequencyWeekly,
			from:      date(2024, 1, 15),
			want:      date(2024, 1, 22),
			ok:        true,
		},
		{
			name:      "weekly crosses month boundary",
			frequency: models.FrequencyWeekly,
			from:      date(2024, 1, 29),
			want:      date(2024, 2, 5),
			ok:        true,
		},
		{
			name:      "monthly keeps day of month",
			frequency: models.FrequencyMonthly,
			from:      date(2024, 1, 15),
			want:      date(2024, 2, 15),
			ok:        true,
		},
		{
			name:      "monthly clamps Jan 31 to leap Feb 29",
			frequency: models.FrequencyMonthly,
			from:      date(2024, 1, 31),
			want:      date(2024, 2, 29),
			ok:        true,
		},
		{
			name:      "monthly clamps Jan 31 to Feb 28 outside leap years",
			frequency: models.FrequencyMonthly,
			from:      date(2023, 1, 31),
			want:      date(2023, 2, 28),
			ok:        true,
		},
		{
			name:      "monthly crosses year boundary",
			frequency: models.FrequencyMonthly,
			from:      date(2023, 12, 15),
			want:      date(2024, 1, 15),
			ok:        true,
		},
		{
			name:      "yearly keeps month and day",
			frequency: models.FrequencyYearly,
			from:      date(2024, 3, 10),
			want:      date(2025, 3, 10),
			ok:        true,
		},
		{
			name:      "yearly clamps leap day",
			frequency: models.FrequencyYearly,
			from:      date(2024, 2, 29),
			want:      date(2025, 2, 28),
			ok:        true,
		},
		{
			name:      "unknown frequency refused",
			frequency: "daily",
			from:      date(2024, 1, 15),
			ok:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := nextOccurrence(tt.frequency, tt.from)
			if ok != tt.ok {
				t.Fatalf("nextOccurrence() ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("nextOccurrence() = %s, want %s", got.Format(dateLayout), tt.want.Format(dateLayout))
			}
		})
	}
}

func TestProjectDates(t *testing.T) {
	end := date(2024, 2, 1)

	tests := []struct {
		name      string
		frequency string
		lastDate  time.Time
		windowEnd time.Time
		endDate   *time.Time
		want      []time.Time
	}{
		{
			name:      "monthly generates one instance inside window",
			frequency: models.FrequencyMonthly,
			lastDate:  date(2024, 1, 15),
			windowEnd: date(2024, 1, 20).AddDate(0, 0, 45),
			want:      []time.Time{date(2024, 2, 15)},
		},
		{
			name:      "end date before first step yields nothing",
			frequency: models.FrequencyMonthly,
			lastDate:  date(2024, 1, 15),
			windowEnd: date(2024, 1, 20).AddDate(0, 0, 45),
			endDate:   &end,
			want:      nil,
		},
		{
			name:      "weekly fills the window",
			frequency: models.FrequencyWeekly,
			lastDate:  date(2024, 1, 1),
			windowEnd: date(2024, 1, 29),
			want: []time.Time{
				date(2024, 1, 8), date(2024, 1, 15), date(2024, 1, 22), date(2024, 1, 29),
			},
		},
		{
			name:      "step cap bounds a stale template",
			frequency: models.FrequencyWeekly,
			lastDate:  date(2023, 1, 2),
			windowEnd: date(2024, 3, 1),
			want: []time.Time{
				date(2023, 1, 9), date(2023, 1, 16), date(2023, 1, 23), date(2023, 1, 30),
				date(2023, 2, 6), date(2023, 2, 13), date(2023, 2, 20), date(2023, 2, 27),
				date(2023, 3, 6), date(2023, 3, 13), date(2023, 3, 20), date(2023, 3, 27),
			},
		},
		{
			name:      "unknown frequency stops immediately",
			frequency: "fortnightly",
			lastDate:  date(2024, 1, 1),
			windowEnd: date(2024, 12, 31),
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := projectDates(tt.frequency, tt.lastDate, tt.windowEnd, tt.endDate)
			if len(got) != len(tt.want) {
				t.Fatalf("projectDates() returned %d dates, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("projectDates()[%d] = %s, want %s", i, got[i].Format(dateLayout), tt.want[i].Format(dateLayout))
				}
			}
			if len(got) > maxStepsPerTemplate {
				t.Errorf("projectDates() exceeded step cap: %d", len(got))
			}
		})
	}
}
