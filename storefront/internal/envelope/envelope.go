// Package envelope turns the API's response wrappers into stable values.
//
// The backend wraps payloads inconsistently: {data: {data: [...], meta}},
// {data: [...]}, or a bare value. Every known variant is tried explicitly;
// anything else is reported as errs.ErrUnexpectedShape instead of silently
// becoming an empty result.
package envelope

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

var (
	itemPaths = []string{"data.data", "data"}
	listPaths = []string{"data.data", "data.items", "data", "items"}
	metaPaths = []string{"data.meta", "meta"}

	messagePaths = []string{"message", "error.message", "error", "data.message"}
)

func Item[T any](body []byte) (T, error) {
	var zero T
	if !gjson.ValidBytes(body) {
		return zero, shapeErr("invalid json")
	}
	raw, ok := locateItem(gjson.ParseBytes(body))
	if !ok {
		return zero, shapeErr("no object at data.data, data or root")
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, &errs.APIError{Err: errors.Wrap(errs.ErrUnexpectedShape, err.Error())}
	}
	return v, nil
}

func locateItem(root gjson.Result) (string, bool) {
	for _, p := range itemPaths {
		if r := root.Get(p); r.IsObject() {
			return r.Raw, true
		}
	}
	if root.IsObject() && !root.Get("data").Exists() {
		return root.Raw, true
	}
	return "", false
}

func List[T any](body []byte) (model.Page[T], error) {
	if !gjson.ValidBytes(body) {
		return model.Page[T]{}, shapeErr("invalid json")
	}
	root := gjson.ParseBytes(body)
	raw, ok := locateList(root)
	if !ok {
		return model.Page[T]{}, shapeErr("no array at data.data, data.items, data, items or root")
	}
	items := make([]T, 0)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return model.Page[T]{}, &errs.APIError{Err: errors.Wrap(errs.ErrUnexpectedShape, err.Error())}
		}
	}
	return model.Page[T]{
		Items: items,
		Meta:  locateMeta(root, len(items)),
	}, nil
}

// locateList returns "" with ok=true for an explicit null list.
func locateList(root gjson.Result) (string, bool) {
	if root.IsArray() {
		return root.Raw, true
	}
	for _, p := range listPaths {
		r := root.Get(p)
		if r.IsArray() {
			return r.Raw, true
		}
	}
	for _, p := range []string{"data.data", "data"} {
		if r := root.Get(p); r.Exists() && r.Type == gjson.Null {
			return "", true
		}
	}
	return "", false
}

func locateMeta(root gjson.Result, count int) model.Meta {
	var m gjson.Result
	for _, p := range metaPaths {
		if r := root.Get(p); r.IsObject() {
			m = r
			break
		}
	}
	if !m.Exists() {
		return model.Meta{CurrentPage: 1, TotalPages: 1, Total: count}
	}

	meta := model.Meta{
		CurrentPage: firstInt(m, "current_page", "currentPage", "page"),
		TotalPages:  firstInt(m, "last_page", "totalPages", "total_pages"),
		Total:       firstInt(m, "total"),
		PerPage:     firstInt(m, "per_page", "perPage", "limit"),
	}
	if !m.Get("total").Exists() {
		meta.Total = count
	}
	if meta.TotalPages <= 0 && meta.PerPage > 0 {
		meta.TotalPages = (meta.Total + meta.PerPage - 1) / meta.PerPage
	}
	return Normalize(meta)
}

// Normalize enforces 1 <= CurrentPage <= TotalPages.
func Normalize(m model.Meta) model.Meta {
	if m.TotalPages < 1 {
		m.TotalPages = 1
	}
	if m.CurrentPage < 1 {
		m.CurrentPage = 1
	}
	if m.CurrentPage > m.TotalPages {
		m.CurrentPage = m.TotalPages
	}
	return m
}

// Message extracts the server's human-readable error text, if any.
func Message(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)
	for _, p := range messagePaths {
		if r := root.Get(p); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

func firstInt(m gjson.Result, keys ...string) int {
	for _, k := range keys {
		if r := m.Get(k); r.Exists() {
			return int(r.Int())
		}
	}
	return 0
}

func shapeErr(detail string) error {
	return &errs.APIError{Err: errors.Wrap(errs.ErrUnexpectedShape, detail)}
}
