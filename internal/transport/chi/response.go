package chi

import (
	"github.com/kailas-cloud/unisearch/internal/domain/search/request"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

// SearchResponse is the JSON body of GET /search.
type SearchResponse struct {
	ID           string                    `json:"id"`
	Query        string                    `json:"query"`
	Results      []ResultItem              `json:"results"`
	TotalEntries int                       `json:"total_entries"`
	Page         int                       `json:"page"`
	PerPage      int                       `json:"per_page"`
	PageCount    int                       `json:"page_count"`
	ElapsedMS    int64                     `json:"elapsed_ms"`
	Warning      string                    `json:"warning,omitempty"`
	Facets       map[string]map[string]int `json:"facets,omitempty"`
	Subtotals    map[string]int            `json:"subtotals,omitempty"`
}

// ResultItem is one search result. Fields is empty for raw searches.
type ResultItem struct {
	EntityType  string            `json:"entity_type"`
	ID          uint64            `json:"id"`
	Rank        int               `json:"rank"`
	Weight      int               `json:"weight,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Highlighted []string          `json:"highlighted,omitempty"`
}

func searchResponseFrom(exec *searchuc.Execution, opts *request.Options) SearchResponse {
	resp := SearchResponse{
		ID:           exec.ID,
		Query:        exec.Parsed,
		Results:      make([]ResultItem, 0, len(exec.Hits)+len(exec.Refs)),
		TotalEntries: exec.Total,
		Page:         opts.Page(),
		PerPage:      opts.PerPage(),
		PageCount:    (exec.Total + opts.PerPage() - 1) / opts.PerPage(),
		Facets:       exec.Facets,
		Subtotals:    exec.Subtotals,
	}
	if exec.Response != nil {
		resp.ElapsedMS = exec.Response.Elapsed.Milliseconds()
		resp.Warning = exec.Response.Warning
	}
	for _, h := range exec.Hits {
		resp.Results = append(resp.Results, hitToItem(h))
	}
	for _, r := range exec.Refs {
		resp.Results = append(resp.Results, ResultItem{
			EntityType: r.EntityType,
			ID:         r.ID,
			Rank:       r.Rank,
			Weight:     r.Weight,
		})
	}
	return resp
}

func hitToItem(h result.Hit) ResultItem {
	rec := h.Record()
	item := ResultItem{
		EntityType: rec.EntityType(),
		ID:         rec.ID(),
		Rank:       h.Rank(),
	}

	var stored result.Record = rec
	if ex, ok := rec.(result.Excerpted); ok {
		stored = ex.Original()
		item.Highlighted = ex.Highlighted()
	}
	if v, ok := stored.(interface{ Values() map[string]string }); ok {
		item.Fields = v.Values()
	}
	for _, name := range item.Highlighted {
		if item.Fields == nil {
			item.Fields = make(map[string]string)
		}
		item.Fields[name], _ = rec.Field(name)
	}
	return item
}
