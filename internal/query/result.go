package query

// Result is the paged list envelope returned by index endpoints.
type Result[T any] struct {
	Status  string `json:"status"`
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	Pages   int    `json:"pages"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	Results []T    `json:"results"`
}

func NewResult[T any](results []T, total int, p Parser) Result[T] {
	if results == nil {
		results = []T{}
	}
	r := Result[T]{
		Status:  "ok",
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		Results: results,
		Page:    1,
	}
	if p.Limit > 0 {
		r.Page = p.Offset/p.Limit + 1
		r.Pages = (total + p.Limit - 1) / p.Limit
	}
	return r
}
