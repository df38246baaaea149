package replication

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

// extractEntity pulls the object describing the subject entity out of an
// event payload. Upstream publishers have shipped several envelope shapes
// over time, so the lookup is deliberately forgiving: it tries data.<name>,
// then the payload root, then payload.<name>. Absent all three, the payload
// root itself is treated as the entity.
func extractEntity(data map[string]any, name string) map[string]any {
	if m, ok := asObject(data[name]); ok {
		return m
	}
	if p, ok := asObject(data["payload"]); ok {
		if m, ok := asObject(p[name]); ok {
			return m
		}
		return p
	}
	return data
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asInt64 coerces the loosely typed numerics that survive JSON decoding.
// Numeric strings are accepted because some upstream serializers emit IDs
// as strings.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(b) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	case float64:
		return b != 0, true
	}
	return false, false
}

// requireInt64 returns the named identifier or a MissingFieldError.
func requireInt64(entity map[string]any, field string) (int64, error) {
	v, ok := asInt64(entity[field])
	if !ok {
		return 0, &MissingFieldError{Field: field}
	}
	return v, nil
}

func requireString(entity map[string]any, field string) (string, error) {
	s, ok := asString(entity[field])
	if !ok || s == "" {
		return "", &MissingFieldError{Field: field}
	}
	return s, nil
}

// deltaKeys are the wrapper keys upstream producers have used for the map of
// {from, to} pairs on update events.
var deltaKeys = []string{"changed_fields", "changes"}

// deltaValue resolves a field from an update payload. Update events carry
// either the full entity or a changed-fields map of {from, to} pairs; in the
// latter case only the "to" side matters to the replica. Returns ok=false
// when the field is absent entirely, which callers treat as "leave the
// column alone".
func deltaValue(entity map[string]any, field string) (any, bool) {
	v, ok := entity[field]
	for _, key := range deltaKeys {
		if ok {
			break
		}
		if changes, isObj := asObject(entity[key]); isObj {
			v, ok = changes[field]
		}
	}
	if !ok {
		return nil, false
	}
	if pair, isObj := asObject(v); isObj {
		to, hasTo := pair["to"]
		if !hasTo {
			return nil, false
		}
		// Only scalar transitions are applied; nested objects in a
		// delta are upstream noise.
		if _, nested := asObject(to); nested {
			return nil, false
		}
		return to, true
	}
	return v, true
}

// refID resolves a referenced entity's upstream ID, accepting either a flat
// "<name>_id" field or a nested "<name>" object with an "id".
func refID(entity map[string]any, name string) (int64, bool) {
	if n, ok := asInt64(entity[name+"_id"]); ok {
		return n, true
	}
	if m, ok := asObject(entity[name]); ok {
		if n, ok := asInt64(m["id"]); ok {
			return n, true
		}
	}
	return 0, false
}

// refName resolves a referenced entity's name, accepting "<name>" as a bare
// string, a flat "<name>_name" field, or a nested "<name>" object.
func refName(entity map[string]any, name string) (string, bool) {
	if s, ok := asString(entity[name]); ok && s != "" {
		return s, true
	}
	if s, ok := asString(entity[name+"_name"]); ok && s != "" {
		return s, true
	}
	if m, ok := asObject(entity[name]); ok {
		if s, ok := asString(m["name"]); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// asTime parses the timestamp layouts upstream producers have used.
func asTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stringList coerces a JSON array into []string, skipping non-string
// members. A scalar string is promoted to a single-element list.
func stringList(v any) []string {
	switch vs := v.(type) {
	case []any:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := asString(e); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vs == "" {
			return nil
		}
		return []string{vs}
	default:
		return nil
	}
}

// int64List mirrors stringList for numeric ID arrays.
func int64List(v any) []int64 {
	vs, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(vs))
	for _, e := range vs {
		if n, ok := asInt64(e); ok {
			out = append(out, n)
		}
	}
	return out
}

// groupNumber extracts the store's group number from its metadata. The key
// is not standardized upstream: any key containing "group"
// (case-insensitive) is accepted, scanned in sorted key order so the result
// is stable when several keys match. Absent or unparseable values yield the
// UnknownGroup sentinel.
func groupNumber(metadata map[string]any) int64 {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		if strings.Contains(strings.ToLower(k), "group") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if n, ok := asInt64(metadata[k]); ok {
			return n
		}
	}
	return identity.UnknownGroup
}

// guardName defaults the permission guard when the payload omits it.
func guardName(entity map[string]any) string {
	if g, ok := asString(entity["guard_name"]); ok && g != "" {
		return g
	}
	return identity.DefaultGuard
}
