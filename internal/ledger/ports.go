// Package ledger defines the outbound port for mirroring spending records to
// an external ledger (a Google Sheet in production, memory in tests).
package ledger

import (
	"context"

	"cardwise/internal/calendar"
)

// Entry is one exported spending row.
type Entry struct {
	Date        calendar.Date
	CardName    string
	Category    string
	Amount      float64
	MilesEarned float64
}

// Writer appends entries to the ledger and returns an adapter-specific row
// reference.
type Writer interface {
	Append(ctx context.Context, e Entry) (rowRef string, err error)
}
