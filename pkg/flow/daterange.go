package flow

import "time"

// TripDays is the inclusive length of the insured period.
const TripDays = 30

// DateLayout is the format the wizard uses in its date attributes.
const DateLayout = "2006-01-02"

// DateRange is the trip period selected in the wizard.
// End is always Start + TripDays-1 calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds the range starting on the calendar day of ref.
// The time of day is dropped; the location of ref is kept.
func NewDateRange(ref time.Time) DateRange {
	start := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	return DateRange{
		Start: start,
		End:   start.AddDate(0, 0, TripDays-1),
	}
}

// Days returns the inclusive number of days in the range.
func (r DateRange) Days() int {
	// Calendar arithmetic in UTC so DST shifts do not eat an hour.
	s := time.Date(r.Start.Year(), r.Start.Month(), r.Start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(r.End.Year(), r.End.Month(), r.End.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}

// Date returns the formatted date for an anchor, or "" for an unknown anchor.
func (r DateRange) Date(anchor DateAnchor) string {
	switch anchor {
	case AnchorStart:
		return r.Start.Format(DateLayout)
	case AnchorEnd:
		return r.End.Format(DateLayout)
	default:
		return ""
	}
}

// String returns "start..end".
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
