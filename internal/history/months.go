package history

import (
	"time"

	"github.com/flor3z/fide-tracker/internal/storage"
)

// span is an inclusive range of months
type span struct {
	from, to time.Time
}

func (s span) months() []time.Time {
	var out []time.Time
	for m := s.from; !m.After(s.to); m = m.AddDate(0, 1, 0) {
		out = append(out, m)
	}
	return out
}

// missingSpans returns the months needed to extend the stored envelope over
// [start, end]: [start, min-1] and [max+1, end]. A window that does not touch
// the envelope also pulls in the months between them, so the envelope never
// grows over months that were not fetched.
func missingSpans(start, end time.Time, cov storage.Coverage, covered bool) []span {
	if !covered {
		return []span{{start, end}}
	}

	lo, hi := storage.FirstOfMonth(cov.Min), storage.FirstOfMonth(cov.Max)
	var gaps []span
	if start.Before(lo) {
		gaps = append(gaps, span{start, lo.AddDate(0, -1, 0)})
	}
	if end.After(hi) {
		gaps = append(gaps, span{hi.AddDate(0, 1, 0), end})
	}
	return gaps
}

// MonthsBack returns the window of n months ending with the month of now
func MonthsBack(now time.Time, n int) (start, end time.Time) {
	if n < 1 {
		n = 1
	}
	end = storage.FirstOfMonth(now)
	return end.AddDate(0, -(n - 1), 0), end
}
