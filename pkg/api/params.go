package api

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/adfharrison1/go-filestore/pkg/domain"
)

// parseFindParams reads filter, sort, fields, limit and skip from the query string.
// filter, sort and fields are JSON objects.
func parseFindParams(values url.Values) (map[string]interface{}, *domain.FindOptions, error) {
	filter, err := parseObject(values.Get("filter"), "filter")
	if err != nil {
		return nil, nil, err
	}

	opts := &domain.FindOptions{}
	if raw := values.Get("sort"); raw != "" {
		keys, err := parseSort(raw)
		if err != nil {
			return nil, nil, err
		}
		opts.Sort = keys
	}

	if raw := values.Get("fields"); raw != "" {
		fields, err := parseObject(raw, "fields")
		if err != nil {
			return nil, nil, err
		}
		opts.Fields = make(map[string]int, len(fields))
		for field, v := range fields {
			include, ok := domain.ToInt64(v)
			if !ok {
				return nil, nil, fmt.Errorf("%w: fields.%s must be 0 or 1", domain.ErrInvalidQuery, field)
			}
			opts.Fields[field] = int(include)
		}
	}

	if opts.Limit, err = parseInt(values.Get("limit"), "limit"); err != nil {
		return nil, nil, err
	}
	if opts.Skip, err = parseInt(values.Get("skip"), "skip"); err != nil {
		return nil, nil, err
	}
	return filter, opts, nil
}

func parseObject(raw, name string) (map[string]interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("%w: %s must be a JSON object: %v", domain.ErrInvalidQuery, name, err)
	}
	return obj, nil
}

func parseInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidQuery, name)
	}
	return n, nil
}

// parseSort decodes a JSON object such as {"name":1,"age":-1} keeping key order.
func parseSort(raw string) ([]domain.SortKey, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	invalid := func(reason string) error {
		return fmt.Errorf("%w: sort %s", domain.ErrInvalidQuery, reason)
	}

	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, invalid("must be a JSON object")
	}

	var keys []domain.SortKey
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, invalid(err.Error())
		}
		field, ok := tok.(string)
		if !ok {
			return nil, invalid("keys must be strings")
		}

		var dir int
		if err := dec.Decode(&dir); err != nil || (dir != 1 && dir != -1) {
			return nil, invalid(fmt.Sprintf("direction for %q must be 1 or -1", field))
		}
		keys = append(keys, domain.SortKey{Field: field, Direction: dir})
	}
	if _, err := dec.Token(); err != nil {
		return nil, invalid(err.Error())
	}
	return keys, nil
}
