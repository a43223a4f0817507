// Package paging holds the page/size/sort request shape shared by the
// list endpoints.
package paging

import (
	"fmt"
	"strings"
)

const (
	DefaultSize = 10
	MaxSize     = 100
)

type Sort struct {
	Field string
	Desc  bool
}

type Request struct {
	Page int
	Size int
	Sort []Sort
}

func (r Request) Limit() int {
	if r.Size <= 0 {
		return DefaultSize
	}
	if r.Size > MaxSize {
		return MaxSize
	}
	return r.Size
}

func (r Request) Offset() int {
	if r.Page <= 0 {
		return 0
	}
	return r.Page * r.Limit()
}

// ParseSort turns "field,asc"/"field,desc" tokens into sort orders,
// accepting only whitelisted fields. The whitelist maps the exposed
// field name to the storage column.
func ParseSort(tokens []string, sortable map[string]string) ([]Sort, error) {
	var orders []Sort
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		parts := strings.SplitN(token, ",", 2)
		column, ok := sortable[parts[0]]
		if !ok {
			return nil, fmt.Errorf("unsortable field %q", parts[0])
		}
		desc := false
		if len(parts) == 2 {
			switch strings.ToLower(strings.TrimSpace(parts[1])) {
			case "", "asc":
			case "desc":
				desc = true
			default:
				return nil, fmt.Errorf("invalid sort direction %q", parts[1])
			}
		}
		orders = append(orders, Sort{Field: column, Desc: desc})
	}
	return orders, nil
}
