package query

import (
	"net/url"
	"strings"

	"github.com/gorilla/schema"
	"github.com/nullix/taskdeck/internal/model"
)

const (
	StatusAll = "all"

	SortCreatedDesc = "created_desc"
	SortCreatedAsc  = "created_asc"
	SortStatus      = "status"

	DefaultPageSize = 10
)

// PageSizes are the page sizes the list view offers.
var PageSizes = []int{5, 10, 20, 50}

var (
	encoder = schema.NewEncoder()
	decoder = schema.NewDecoder()
)

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// Query is the single source of truth for what the task list shows. It is
// mirrored into a URL query string so a view is shareable and survives a
// restart; Parse(Values(q)) always reproduces a normalized q.
type Query struct {
	Status   string `schema:"status"`
	Page     int    `schema:"page"`
	PageSize int    `schema:"page_size"`
	Keyword  string `schema:"q"`
	Sort     string `schema:"sort"`
}

func Default() Query {
	return Query{
		Status:   StatusAll,
		Page:     1,
		PageSize: DefaultPageSize,
		Sort:     SortCreatedDesc,
	}
}

// Normalize replaces every invalid or missing field with its default.
func (q Query) Normalize() Query {
	switch q.Status {
	case model.StatusPending, model.StatusCompleted:
	default:
		q.Status = StatusAll
	}

	if q.Page < 1 {
		q.Page = 1
	}

	if !validPageSize(q.PageSize) {
		q.PageSize = DefaultPageSize
	}

	switch q.Sort {
	case SortCreatedAsc, SortStatus:
	default:
		q.Sort = SortCreatedDesc
	}

	q.Keyword = strings.TrimSpace(q.Keyword)
	return q
}

// Values serializes the query into URL parameters. The keyword is dropped
// when blank; everything else is always present.
func Values(q Query) url.Values {
	q = q.Normalize()

	values := url.Values{}
	if err := encoder.Encode(&q, values); err != nil {
		// The struct has only string and int fields; encoding cannot fail.
		panic(err)
	}
	if q.Keyword == "" {
		values.Del("q")
	}
	return values
}

// String renders the canonical query-string mirror.
func String(q Query) string {
	return Values(q).Encode()
}

// Parse rebuilds a Query from URL parameters. Unknown keys are ignored and
// unparsable values fall back to defaults field by field.
func Parse(values url.Values) Query {
	var q Query
	// A MultiError leaves the offending fields zero; Normalize defaults them.
	_ = decoder.Decode(&q, values)
	return q.Normalize()
}

// ParseString parses a raw query string, treating a malformed one as empty.
func ParseString(raw string) Query {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Default()
	}
	return Parse(values)
}

// TotalPages is the page count for a total, floored at one page.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

func validPageSize(size int) bool {
	for _, allowed := range PageSizes {
		if size == allowed {
			return true
		}
	}
	return false
}
