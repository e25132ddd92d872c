package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"inmobiliaria-portal/internal/models"
)

// FilterParams holds the typed catalog search filters
type FilterParams struct {
	Query       string
	MinPrice    *float64
	MaxPrice    *float64
	Types       []string
	City        string
	MinBedrooms *int
	Status      string
	SortBy      string
	Limit       int64
}

// quoteFilterValue single-quotes v for a Meilisearch filter
// expression, escaping embedded backslashes and quotes
func quoteFilterValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// FilterSearch performs a catalog search with filters
func (s *SearchClient) FilterSearch(params FilterParams) ([]models.Property, error) {
	var filters []string

	if params.MinPrice != nil {
		filters = append(filters, fmt.Sprintf("price >= %g", *params.MinPrice))
	}
	if params.MaxPrice != nil {
		filters = append(filters, fmt.Sprintf("price <= %g", *params.MaxPrice))
	}

	if len(params.Types) > 0 {
		typeFilters := make([]string, len(params.Types))
		for i, t := range params.Types {
			typeFilters[i] = fmt.Sprintf("type = %s", quoteFilterValue(t))
		}
		filters = append(filters, fmt.Sprintf("(%s)", strings.Join(typeFilters, " OR ")))
	}

	if params.City != "" {
		filters = append(filters, fmt.Sprintf("city = %s", quoteFilterValue(params.City)))
	}
	if params.MinBedrooms != nil {
		filters = append(filters, fmt.Sprintf("bedrooms >= %d", *params.MinBedrooms))
	}
	if params.Status != "" {
		filters = append(filters, fmt.Sprintf("status = %s", quoteFilterValue(params.Status)))
	}

	var filterStr string
	if len(filters) > 0 {
		filterStr = strings.Join(filters, " AND ")
	}

	var sort []string
	if params.SortBy != "" {
		sort = []string{params.SortBy}
	}

	if params.Limit == 0 {
		params.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit: params.Limit,
	}
	if filterStr != "" {
		searchReq.Filter = filterStr
	}
	if len(sort) > 0 {
		searchReq.Sort = sort
	}

	searchRes, err := s.client.Index(s.index).Search(params.Query, searchReq)
	if err != nil {
		return nil, err
	}

	// Convert hits back into properties through JSON
	properties := make([]models.Property, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		hitJSON, err := json.Marshal(hit)
		if err != nil {
			continue
		}

		var property models.Property
		if err := json.Unmarshal(hitJSON, &property); err != nil {
			continue
		}
		if property.Images == nil {
			property.Images = make([]string, 0)
		}

		properties = append(properties, property)
	}

	return properties, nil
}
