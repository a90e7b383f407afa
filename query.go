package sio

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/fatih/structs"
)

// encodeQuery accepts a string, url.Values, map[string]string,
// map[string]any or a struct (keys taken from `json` tags).
func encodeQuery(q any) (string, error) {
	switch q := q.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimPrefix(q, "?"), nil
	case url.Values:
		return q.Encode(), nil
	case map[string]string:
		values := make(url.Values, len(q))
		for k, v := range q {
			values.Set(k, v)
		}
		return values.Encode(), nil
	case map[string]any:
		return encodeQueryMap(q), nil
	}

	rv := reflect.ValueOf(q)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "", nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return "", fmt.Errorf("sio: unsupported query type: %T", q)
	}

	s := structs.New(rv.Interface())
	s.TagName = "json"
	return encodeQueryMap(s.Map()), nil
}

func encodeQueryMap(m map[string]any) string {
	values := make(url.Values, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		values.Set(k, fmt.Sprint(v))
	}
	return values.Encode()
}
