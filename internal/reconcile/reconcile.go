// Package reconcile maps heterogeneous backend payloads onto the stable
// User and CreatorApplication records the rest of the gateway works with.
//
// Each target field has an ordered alias table of (source path, key) pairs.
// The first alias whose value is present wins. Nothing is invented: a field
// none of whose aliases is present stays absent. Reconciling the canonical
// payload of a record yields the same record again.
package reconcile

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Alias names one place a value may live: Path is a dot-separated list of
// object keys from the payload root ("" is the root itself).
type Alias struct {
	Path string
	Key  string
}

func (a Alias) String() string {
	if a.Path == "" {
		return a.Key
	}
	return a.Path + "." + a.Key
}

// Aliases expands sources x keys into an ordered alias list. Sources vary
// slowest, so every key is tried in the most specific source first.
func Aliases(sources []string, keys ...string) []Alias {
	out := make([]Alias, 0, len(sources)*len(keys))
	for _, src := range sources {
		for _, k := range keys {
			out = append(out, Alias{Path: src, Key: k})
		}
	}
	return out
}

// Payload is a decoded JSON object.
type Payload = map[string]any

// Decode reads one JSON object.
func Decode(r io.Reader) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

func object(p Payload, path string) (Payload, bool) {
	if path == "" {
		return p, p != nil
	}
	cur := p
	for _, k := range strings.Split(path, ".") {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Lookup returns the first value across aliases that is present, non-null
// and accepted by convert. convert reports false to skip a value and keep
// looking.
func Lookup[T any](p Payload, aliases []Alias, convert func(any) (T, bool)) (T, bool) {
	for _, a := range aliases {
		obj, ok := object(p, a.Path)
		if !ok {
			continue
		}
		raw, ok := obj[a.Key]
		if !ok || raw == nil {
			continue
		}
		if v, ok := convert(raw); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// ─── Converters ──────────────────────────────────────────────────────────

func asString(v any) (string, bool) {
	s, err := cast.ToStringE(v)
	return s, err == nil
}

func asNonEmptyString(v any) (string, bool) {
	s, ok := asString(v)
	return s, ok && strings.TrimSpace(s) != ""
}

func asBool(v any) (bool, bool) {
	b, err := cast.ToBoolE(v)
	return b, err == nil
}

func asTime(v any) (time.Time, bool) {
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}
