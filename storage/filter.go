package storage

import (
	"fmt"
	"reflect"

	"github.com/ruteri/nildb-agentkit/interfaces"
)

// MatchFilter reports whether record satisfies filter. Numbers are compared by
// value regardless of their Go type.
func MatchFilter(record interfaces.Record, filter map[string]any) (bool, error) {
	for field, cond := range filter {
		value, present := record[field]

		ops, isOps := operatorMap(cond)
		if !isOps {
			if !present || !equalValues(value, cond) {
				return false, nil
			}
			continue
		}

		for op, arg := range ops {
			switch op {
			case "$eq":
				if !present || !equalValues(value, arg) {
					return false, nil
				}
			case "$ne":
				if present && equalValues(value, arg) {
					return false, nil
				}
			case "$in":
				list, ok := arg.([]any)
				if !ok {
					return false, fmt.Errorf("$in on %s requires a list", field)
				}
				if !present || !containsValue(list, value) {
					return false, nil
				}
			default:
				return false, fmt.Errorf("unsupported filter operator %s", op)
			}
		}
	}
	return true, nil
}

// operatorMap returns cond as an operator mapping when every key starts with $.
func operatorMap(cond any) (map[string]any, bool) {
	m, ok := cond.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if len(k) == 0 || k[0] != '$' {
			return nil, false
		}
	}
	return m, true
}

func containsValue(list []any, value any) bool {
	for _, candidate := range list {
		if equalValues(candidate, value) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
