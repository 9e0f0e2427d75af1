package mode

// Sort is the result ordering requested from the daemon.
type Sort string

// Sort mode constants.
const (
	// Relevance orders by match weight and must not carry a sort field.
	Relevance  Sort = "relevance"
	Descending Sort = "desc"
	Ascending  Sort = "asc"
	// Time orders by time segments of the sort attribute, then relevance.
	Time Sort = "time"
	// Extended takes an SQL-like sort clause instead of a single attribute.
	Extended Sort = "extended"
)

// IsValid checks if the sort mode is one of the supported values.
func (s Sort) IsValid() bool {
	switch s {
	case Relevance, Descending, Ascending, Time, Extended:
		return true
	}
	return false
}

// NeedsField reports whether the mode orders by a caller-supplied attribute.
func (s Sort) NeedsField() bool { return s != Relevance }

// Wire returns the daemon's numeric code for the mode.
func (s Sort) Wire() uint32 {
	switch s {
	case Descending:
		return 1
	case Ascending:
		return 2
	case Time:
		return 3
	case Extended:
		return 4
	default:
		return 0
	}
}

// Match is the daemon's query interpretation mode.
type Match uint32

// Match mode constants.
const (
	MatchAll      Match = 0
	MatchAny      Match = 1
	MatchPhrase   Match = 2
	MatchBoolean  Match = 3
	MatchExtended Match = 4
)

// Group is the daemon's group-by function.
type Group uint32

// Group function constants.
const (
	GroupDay       Group = 0
	GroupWeek      Group = 1
	GroupMonth     Group = 2
	GroupYear      Group = 3
	GroupAttribute Group = 4
)
