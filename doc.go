// Package unisearch is a client for a full-text search daemon serving one
// unified index over many entity types.
//
// Records of every entity type share one flat document id space, so a single
// query searches albums, songs and users together and the results come back
// in relevance order with their records loaded from the record store.
//
//	client, _ := unisearch.New(ctx,
//	    unisearch.WithSearchd("localhost", 3312),
//	    unisearch.WithSchemaFiles("config/entity_types.yaml", "config/fields.yaml"),
//	    unisearch.WithSQLite("file:records.db?mode=ro", nil),
//	)
//	defer client.Close()
//
//	s, _ := client.Query("title:artichoke NOT hearts").
//	    PerPage(10).
//	    Where("year", unisearch.Between(1990, 2000)).
//	    Facet("genre").
//	    Build()
//	if err := s.Run(ctx); err != nil { ... }
//	results, _ := s.Results()
//
// Result accessors return ErrNotRun until the search has been run.
package unisearch
