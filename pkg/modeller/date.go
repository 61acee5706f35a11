// pkg/modeller/date.go
package modeller

import (
	"time"

	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

// buildDateDimension builds the calendar spine: one row per day between the
// earliest and latest invoice date in the cleaned rowset, inclusive, whether
// or not that day has transactions. Rows without a timestamp do not
// contribute to the range; if no row carries a timestamp the spine is empty.
func (b *StarSchemaBuilder) buildDateDimension(rs *model.RowSet) ([]model.DateRow, error) {
	var minDate, maxDate time.Time
	found := false

	for _, row := range rs.Rows {
		ts, ok := row[model.ColInvoiceDate].(time.Time)
		if !ok {
			continue
		}

		day := truncateToDay(ts)
		if !found {
			minDate, maxDate = day, day
			found = true
			continue
		}
		if day.Before(minDate) {
			minDate = day
		}
		if day.After(maxDate) {
			maxDate = day
		}
	}

	if !found {
		b.logger.Warn("No parseable invoice dates, date dimension is empty")
		return []model.DateRow{}, nil
	}

	spine := make([]model.DateRow, 0, int(maxDate.Sub(minDate).Hours()/24)+1)
	for day := minDate; !day.After(maxDate); day = day.AddDate(0, 0, 1) {
		spine = append(spine, newDateRow(day))
	}

	b.logger.Debug("Date spine built",
		zap.Time("start", minDate),
		zap.Time("end", maxDate),
		zap.Int("days", len(spine)))

	return spine, nil
}

func newDateRow(day time.Time) model.DateRow {
	month := int64(day.Month())
	// Monday = 0 convention, weekend is Saturday and Sunday.
	dayOfWeek := int64((int(day.Weekday()) + 6) % 7)

	return model.DateRow{
		DateKey:   model.DateKey(day),
		FullDate:  day,
		Year:      int64(day.Year()),
		Quarter:   (month-1)/3 + 1,
		Month:     month,
		MonthName: day.Month().String(),
		Day:       int64(day.Day()),
		DayOfWeek: dayOfWeek,
		DayName:   day.Weekday().String(),
		IsWeekend: dayOfWeek >= 5,
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
