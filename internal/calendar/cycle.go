package calendar

// CycleStart returns the start date of the statement cycle that contains the
// reference date, for a card whose statement renews on renewalDay (1–31).
// Renewal dates that land on a weekend shift back to the preceding Friday.
//
// The resolution has two branches. First the renewal day is weekend-adjusted
// within the reference month; that adjusted date is this cycle's start only
// when the reference day is on or after it AND the adjustment did not roll it
// into the previous month. A renewal day near the start of a month can do
// exactly that (e.g. renewal day 1 on a Sunday adjusts into the prior month),
// in which case the adjusted date belongs to the cycle that is already over,
// not the one in progress. In every other case the cycle started on the
// weekend-adjusted renewal date of the month before the reference month,
// wrapping December to the previous year.
func CycleStart(renewalDay int, ref Date) Date {
	adjusted := New(ref.Year, ref.Month, renewalDay).AdjustForWeekend()

	if ref.Day >= adjusted.Day && adjusted.Month == ref.Month {
		return adjusted
	}

	prevYear, prevMonth := ref.Year, ref.Month-1
	if ref.Month == 1 {
		prevYear, prevMonth = ref.Year-1, 12
	}
	return New(prevYear, prevMonth, renewalDay).AdjustForWeekend()
}
