// Package query reads list parameters: "filter:<field>" values plus limit and
// offset paging.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	filterPrefix = "filter:"
	DefaultLimit = 20
	MaxLimit     = 10000
)

type Parser struct {
	Filters map[string][]string
	Limit   int
	Offset  int
}

// Parse never fails: malformed paging values fall back to the defaults and
// negative values are clamped.
func Parse(values url.Values) Parser {
	p := Parser{
		Filters: map[string][]string{},
		Limit:   intParam(values, "limit", DefaultLimit),
		Offset:  intParam(values, "offset", 0),
	}
	if p.Limit < 0 {
		p.Limit = 0
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	for key, vals := range values {
		if !strings.HasPrefix(key, filterPrefix) {
			continue
		}
		field := strings.TrimPrefix(key, filterPrefix)
		for _, v := range vals {
			if v = strings.TrimSpace(v); v != "" {
				p.Filters[field] = append(p.Filters[field], v)
			}
		}
	}
	return p
}

// First returns the first value of a filter.
func (p Parser) First(field string) (string, bool) {
	vals := p.Filters[field]
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// FirstInt64 returns the first value of a filter parsed as an integer.
func (p Parser) FirstInt64(field string) (int64, bool, error) {
	v, ok := p.First(field)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("filter:%s: %w", field, err)
	}
	return n, true, nil
}

func intParam(values url.Values, key string, def int) int {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
