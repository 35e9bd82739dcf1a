package users

// Freshness tags a cached remote record so callers can tell a deliberately
// retained stale value apart from a freshly fetched one.
type Freshness int

const (
	Absent Freshness = iota // No value has been resolved
	Fresh                   // Value reflects the last successful remote fetch
	Stale                   // Value was kept after a failed refresh
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}
