// internal/normalize/count.go
package normalize

import "fmt"

var (
	countAliases = []string{"total", "count", "total_count", "totalItems", "items_total"}
	metaAliases  = []string{"meta", "pagination"}
	listAliases  = []string{"data", "results", "items"}
)

// TallyCap bounds the client-side breakdown fallback. Tallies over payloads
// declaring more items than this are approximations.
const TallyCap = 500

// Items unwraps a raw item list from the usual envelopes ({data}, {results},
// {items}) or a bare list. Returns nil when no list is present.
func Items(payload interface{}) []interface{} {
	switch v := payload.(type) {
	case []interface{}:
		return v
	case map[string]interface{}:
		for _, key := range listAliases {
			if list, ok := v[key].([]interface{}); ok {
				return list
			}
		}
	}
	return nil
}

// Count extracts an item total from a payload of unknown shape. ok is false
// when no total can be found; callers must distinguish "unknown" from zero.
func Count(payload interface{}) (int, bool) {
	switch v := payload.(type) {
	case []interface{}:
		return len(v), true
	case map[string]interface{}:
		if n, ok := intByAliases(v, countAliases); ok {
			return n, true
		}
		for _, metaKey := range metaAliases {
			if meta, ok := v[metaKey].(map[string]interface{}); ok {
				if n, ok := intByAliases(meta, countAliases); ok {
					return n, true
				}
			}
		}
		for _, listKey := range listAliases {
			if list, ok := v[listKey].([]interface{}); ok {
				return len(list), true
			}
		}
	}
	return 0, false
}

// Breakdown extracts a category -> count mapping from a payload, trying the
// given candidate keys in order. Each candidate may hold either a direct
// integer mapping or a list of {category, count} objects.
func Breakdown(payload interface{}, keys ...string) (map[string]int, bool) {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		if list, ok := payload.([]interface{}); ok {
			return reducePairs(list)
		}
		return nil, false
	}

	if m, ok := intMap(obj); ok {
		return m, true
	}

	for _, key := range keys {
		switch v := obj[key].(type) {
		case map[string]interface{}:
			if m, ok := intMap(v); ok {
				return m, true
			}
		case []interface{}:
			if m, ok := reducePairs(v); ok {
				return m, true
			}
		}
	}
	return nil, false
}

// Keys that name the category in a {category, count} pair object.
var pairCategoryKeys = []string{"type", "status", "category", "name", "key", "label"}

// Keys that name the count in a {category, count} pair object.
var pairCountKeys = []string{"count", "total", "value"}

// reducePairs folds a list of {category-key, count-key} objects into a
// mapping. Fails unless every element contributes a pair.
func reducePairs(list []interface{}) (map[string]int, bool) {
	if len(list) == 0 {
		return nil, false
	}
	out := make(map[string]int, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cat, ok := firstString(obj, pairCategoryKeys)
		if !ok {
			return nil, false
		}
		n, ok := intByAliases(obj, pairCountKeys)
		if !ok {
			return nil, false
		}
		out[cat] += n
	}
	return out, true
}

// Tally counts category occurrences over raw items, taking the first present
// field per item as the category. Last-resort fallback when the upstream
// exposes no structured breakdown; bounded by TallyCap.
func Tally(items []interface{}, fields ...string) map[string]int {
	out := make(map[string]int)
	for i, item := range items {
		if i >= TallyCap {
			break
		}
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		for _, field := range fields {
			if v, ok := obj[field]; ok && v != nil {
				out[fmt.Sprint(v)]++
				break
			}
		}
	}
	return out
}

func intByAliases(obj map[string]interface{}, aliases []string) (int, bool) {
	for _, key := range aliases {
		if v, ok := obj[key]; ok {
			if n, ok := asInt(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// intMap converts an object to a string->int map. Fails if any value is not
// numeric.
func intMap(obj map[string]interface{}) (map[string]int, bool) {
	if len(obj) == 0 {
		return nil, false
	}
	out := make(map[string]int, len(obj))
	for k, v := range obj {
		n, ok := asInt(v)
		if !ok {
			return nil, false
		}
		out[k] = n
	}
	return out, true
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}
