package pkg

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/listing"
)

// validFieldName matches an identifier or a dotted path of identifiers ("vendor.name").
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)

// SortParam is a parsed "key:dir" sort parameter. An empty Key clears the sort.
type SortParam struct {
	Key string
	Dir listing.Direction
}

// ListParams holds the list transitions requested through query parameters.
// A nil field means the parameter was absent and the current state is kept.
type ListParams struct {
	Search   *string
	Status   *string
	Type     *string
	Sort     *SortParam
	Page     *int
	PageSize *int
	Scope    *string
	Refresh  bool
}

// ParseListParams reads search, status, type, sort, page, page_size, view and
// refresh from the query string. Sort keys must be in allowed; page sizes are
// capped at maxPageSize.
func ParseListParams(c *gin.Context, allowed []string, maxPageSize int) (ListParams, error) {
	var p ListParams

	if v, ok := c.GetQuery("search"); ok {
		p.Search = &v
	}
	if v, ok := c.GetQuery("status"); ok {
		p.Status = &v
	}
	if v, ok := c.GetQuery("type"); ok {
		p.Type = &v
	}
	if v, ok := c.GetQuery("view"); ok {
		v = strings.TrimSpace(v)
		p.Scope = &v
	}
	if v, ok := c.GetQuery("sort"); ok {
		s, err := ParseSort(v, allowed)
		if err != nil {
			return p, err
		}
		p.Sort = &s
	}

	page, err := intQuery(c, "page")
	if err != nil {
		return p, err
	}
	p.Page = page

	size, err := intQuery(c, "page_size")
	if err != nil {
		return p, err
	}
	if size != nil && maxPageSize > 0 && *size > maxPageSize {
		*size = maxPageSize
	}
	p.PageSize = size

	if v, ok := c.GetQuery("refresh"); ok {
		p.Refresh = v == "" || v == "1" || strings.EqualFold(v, "true")
	}
	return p, nil
}

// ParseSort parses "key", "key:asc" or "key:desc". An empty string clears
// the sort. The key must be a valid field path present in allowed.
func ParseSort(raw string, allowed []string) (SortParam, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SortParam{}, nil
	}

	key, dirRaw, hasDir := strings.Cut(raw, ":")
	key = strings.TrimSpace(key)
	dir := listing.Asc
	if hasDir {
		d, ok := listing.ParseDirection(dirRaw)
		if !ok {
			return SortParam{}, domain.NewAppError(domain.CodeValidation, "invalid sort direction: "+dirRaw, nil)
		}
		dir = d
	}
	if err := CheckSortKey(key, allowed); err != nil {
		return SortParam{}, err
	}
	return SortParam{Key: key, Dir: dir}, nil
}

// CheckSortKey reports a validation error unless key is a valid field path
// present in allowed.
func CheckSortKey(key string, allowed []string) error {
	if !validFieldName.MatchString(key) || !slices.Contains(allowed, key) {
		return domain.NewAppError(domain.CodeValidation, "invalid sort key: "+key, nil)
	}
	return nil
}

func intQuery(c *gin.Context, name string) (*int, error) {
	v, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil, domain.NewAppError(domain.CodeValidation, "invalid "+name+": "+v, nil)
	}
	return &n, nil
}
