package model

// Tier ranks how specifically a query matched an item. Lower is better.
type Tier int

const (
	ExactPath   Tier = iota // the query was the item's full path
	PartialPath             // the query was a trailing run of the item's path
	BareName                // the query matched the item's name
)

func (t Tier) String() string {
	switch t {
	case ExactPath:
		return "exact"
	case PartialPath:
		return "partial"
	case BareName:
		return "name"
	default:
		return "unknown"
	}
}

// Match is an item returned for a query.
type Match struct {
	Item Item
	Tier Tier
}
