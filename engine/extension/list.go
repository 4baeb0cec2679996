package extension

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/integration"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	defaultFilter  = "status=Installed"
)

// ListOptions mirrors the query parameters of the extension listing.
type ListOptions struct {
	// Filter is a comma separated list of field=value pairs. Empty means installed only.
	Filter    string `form:"query"`
	Type      string `form:"extensionType"`
	Sort      string `form:"sort"`
	Direction string `form:"direction"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}

type ListResult struct {
	Items      []integration.Extension `json:"items"`
	TotalCount int                     `json:"totalCount"`
}

type fieldGetter func(*integration.Extension) string

var listFields = map[string]fieldGetter{
	"id":            func(e *integration.Extension) string { return e.ID },
	"extensionId":   func(e *integration.Extension) string { return e.ExtensionID },
	"name":          func(e *integration.Extension) string { return e.Name },
	"version":       func(e *integration.Extension) string { return e.Version },
	"status":        func(e *integration.Extension) string { return string(e.Status) },
	"extensionType": func(e *integration.Extension) string { return string(e.ExtensionType) },
	"userId":        func(e *integration.Extension) string { return e.UserID },
	"lastUpdated":   func(e *integration.Extension) string { return e.LastUpdated.UTC().Format("20060102150405.000000000") },
	"createdDate":   func(e *integration.Extension) string { return e.CreatedAt.UTC().Format("20060102150405.000000000") },
}

type match struct {
	get   fieldGetter
	value string
}

func parseFilter(filter string) ([]match, error) {
	if strings.TrimSpace(filter) == "" {
		filter = defaultFilter
	}
	var out []match
	for _, part := range strings.Split(filter, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, core.Errorf(core.CodeInvalidInput, "invalid filter expression %q", part)
		}
		get, ok := listFields[strings.TrimSpace(key)]
		if !ok {
			return nil, core.Errorf(core.CodeInvalidInput, "unknown filter field %q", key)
		}
		out = append(out, match{get: get, value: strings.TrimSpace(value)})
	}
	return out, nil
}

// List returns a page of stored extensions matching opts.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	matches, err := parseFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	if opts.Type != "" {
		matches = append(matches, match{get: listFields["extensionType"], value: opts.Type})
	}
	all, err := s.resources.ListExtensions(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]integration.Extension, 0, len(all))
outer:
	for i := range all {
		for _, m := range matches {
			if m.get(&all[i]) != m.value {
				continue outer
			}
		}
		items = append(items, all[i])
	}
	if err := sortExtensions(items, opts.Sort, opts.Direction); err != nil {
		return nil, err
	}
	total := len(items)
	return &ListResult{Items: paginate(items, opts.Page, opts.PerPage), TotalCount: total}, nil
}

func sortExtensions(items []integration.Extension, field, direction string) error {
	if field == "" {
		return nil
	}
	get, ok := listFields[field]
	if !ok {
		return core.Errorf(core.CodeInvalidInput, "unknown sort field %q", field)
	}
	var desc bool
	switch strings.ToLower(direction) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return core.NewError(fmt.Errorf("invalid sort direction %q", direction), core.CodeInvalidInput, nil)
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := get(&items[i]), get(&items[j])
		if desc {
			return a > b
		}
		return a < b
	})
	return nil
}

func paginate(items []integration.Extension, page, perPage int) []integration.Extension {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return []integration.Extension{}
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}
