package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Operator is a filter comparison supported by the Generic Handler.
type Operator string

const (
	Eq      Operator = "eq"
	Neq     Operator = "neq"
	Gt      Operator = "gt"
	Gte     Operator = "gte"
	Lt      Operator = "lt"
	Lte     Operator = "lte"
	Like    Operator = "like"
	In      Operator = "in"
	IsNull  Operator = "is_null"
	NotNull Operator = "not_null"
)

var operators = map[Operator]bool{
	Eq: true, Neq: true, Gt: true, Gte: true, Lt: true, Lte: true,
	Like: true, In: true, IsNull: true, NotNull: true,
}

// ErrInvalidFilter is returned when a filter is structurally wrong.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter is a single field predicate.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Validate checks the operator is known and the value shape matches the operator.
func (f Filter) Validate() error {
	if f.Field == "" {
		return errors.Wrap(ErrInvalidFilter, "missing field")
	}
	if !operators[f.Op] {
		return errors.Wrapf(ErrInvalidFilter, "unknown operator %q for field %s", f.Op, f.Field)
	}
	switch f.Op {
	case IsNull, NotNull:
		if f.Value != nil {
			return errors.Wrapf(ErrInvalidFilter, "operator %s for field %s takes no value", f.Op, f.Field)
		}
	case In:
		if f.Value == nil {
			return errors.Wrapf(ErrInvalidFilter, "operator in for field %s requires a list", f.Field)
		}
		if k := reflect.TypeOf(f.Value).Kind(); k != reflect.Slice && k != reflect.Array {
			return errors.Wrapf(ErrInvalidFilter, "operator in for field %s requires a list", f.Field)
		}
	default:
		if f.Value == nil {
			return errors.Wrapf(ErrInvalidFilter, "operator %s for field %s requires a value", f.Op, f.Field)
		}
	}
	return nil
}

// Key is the query string key for the filter, e.g. filter[age][gte].
func (f Filter) Key() string {
	return "filter[" + f.Field + "][" + string(f.Op) + "]"
}

// ParseFilter parses the field:op:value shorthand. Values for in are split on |.
func ParseFilter(val string) (Filter, error) {
	tok := strings.SplitN(val, ":", 3)
	if len(tok) < 2 {
		return Filter{}, errors.Wrapf(ErrInvalidFilter, "expected field:op[:value] but got %q", val)
	}
	f := Filter{Field: tok[0], Op: Operator(tok[1])}
	if len(tok) == 3 {
		if f.Op == In {
			f.Value = strings.Split(tok[2], "|")
		} else {
			f.Value = tok[2]
		}
	}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Sort orders results by a field.
type Sort struct {
	Field      string
	Descending bool
}

func (s Sort) String() string {
	if s.Descending {
		return "-" + s.Field
	}
	return s.Field
}

// ParseSort parses field or -field.
func ParseSort(val string) Sort {
	if strings.HasPrefix(val, "-") {
		return Sort{Field: val[1:], Descending: true}
	}
	return Sort{Field: val}
}

// Params are the list parameters understood by the Generic Handler.
type Params struct {
	Limit    int
	Offset   int
	Page     int
	PageSize int
	Sort     []Sort
	Search   string
	Filters  []Filter
	Include  []string
}

// Validate checks all filters.
func (p *Params) Validate() error {
	if p.Limit < 0 || p.Offset < 0 || p.Page < 0 || p.PageSize < 0 {
		return errors.New("pagination values cannot be negative")
	}
	for _, f := range p.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Map converts the params into the generic map form consumed by the url builder.
// Zero values are dropped.
func (p *Params) Map() map[string]any {
	res := make(map[string]any)
	if p == nil {
		return res
	}
	if p.Limit > 0 {
		res["limit"] = p.Limit
	}
	if p.Offset > 0 {
		res["offset"] = p.Offset
	}
	if p.Page > 0 {
		res["page"] = p.Page
	}
	if p.PageSize > 0 {
		res["pageSize"] = p.PageSize
	}
	if len(p.Sort) > 0 {
		sorts := make([]string, 0, len(p.Sort))
		for _, s := range p.Sort {
			sorts = append(sorts, s.String())
		}
		res["sort"] = sorts
	}
	if p.Search != "" {
		res["search"] = p.Search
	}
	for _, f := range p.Filters {
		switch f.Op {
		case IsNull, NotNull:
			res[f.Key()] = true
		default:
			res[f.Key()] = f.Value
		}
	}
	if len(p.Include) > 0 {
		res["include"] = p.Include
	}
	return res
}

// Encode turns a parameter map into a query string. Nil values are omitted, slices are joined
// with commas, maps and structs are JSON encoded. Keys are sorted so the output is stable.
func Encode(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if isNil(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(escape(k))
		sb.WriteByte('=')
		sb.WriteString(escape(Stringify(params[k])))
	}
	return sb.String()
}

// Stringify converts a single parameter value to its query string form.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, Stringify(rv.Index(i).Interface()))
		}
		return strings.Join(parts, ",")
	case reflect.Map, reflect.Struct:
		buf, _ := json.Marshal(v)
		return string(buf)
	case reflect.Ptr:
		if rv.IsNil() {
			return ""
		}
		return Stringify(rv.Elem().Interface())
	}
	return fmt.Sprintf("%v", v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// escape is url.QueryEscape but keeps the brackets and commas readable.
func escape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			sb.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~' || c == '[' || c == ']' || c == ',':
			sb.WriteByte(c)
		case c == ' ':
			sb.WriteByte('+')
		default:
			fmt.Fprintf(&sb, "%%%02X", c)
		}
	}
	return sb.String()
}
