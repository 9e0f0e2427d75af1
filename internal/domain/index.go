package domain

// Names shared between the index generator and the search client.
// Both sides must agree on them, so they are fixed at compile time.
const (
	// UnifiedIndexName is the index spanning every entity type.
	UnifiedIndexName = "complete"
	// EntityTypeAttribute holds the registry id of each indexed record.
	EntityTypeAttribute = "class_id"
	// FacetSuffix names the hashed shadow attribute of a text field.
	FacetSuffix = "_facet"
	// EmptySearchableField is present on every indexed record.
	EmptySearchableField = "empty_searchable"
	// EmptySearchableToken is the only value EmptySearchableField ever holds.
	EmptySearchableToken = "__empty_searchable__"
	// EmptyQuery matches every indexed record.
	EmptyQuery = "@" + EmptySearchableField + " " + EmptySearchableToken
	// GroupByAttribute and GroupCountAttribute are attached to grouped matches.
	GroupByAttribute    = "@groupby"
	GroupCountAttribute = "@count"
)
