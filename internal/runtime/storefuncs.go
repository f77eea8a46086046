package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/tslop/internal/store"
)

// makeCachedUnitFn creates the "cached_unit" host function.
//
// cached_unit(path) → {path, hash, rules_hash, changed, output, lines,
// sites, rewritten} or nil when the unit has never been processed
func makeCachedUnitFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("cached_unit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("cached_unit", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("cached_unit: %v", err)
		}
		u, lookupErr := s.UnitByPath(path)
		if lookupErr != nil {
			return object.Errorf("cached_unit: %v", lookupErr)
		}
		if u == nil {
			return object.Nil
		}
		return unitToMap(u)
	})
}

// makeCachedUnitsFn creates the "cached_units" host function.
//
// cached_units() → list of unit maps ordered by path
func makeCachedUnitsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("cached_units", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("cached_units", 0, len(args))
		}
		units, err := s.Units()
		if err != nil {
			return object.Errorf("cached_units: %v", err)
		}
		results := make([]object.Object, 0, len(units))
		for _, u := range units {
			results = append(results, unitToMap(u))
		}
		return object.NewList(results)
	})
}

// makeDBQueryFn creates the "db_query" host function. Only SELECT
// statements are accepted.
//
// db_query(sql, args...) → list of row maps
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		// Convert remaining args to query parameters.
		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		var results []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

// unitToMap converts a cached unit to a Risor map.
func unitToMap(u *store.Unit) object.Object {
	return object.NewMap(map[string]object.Object{
		"path":       object.NewString(u.Path),
		"hash":       object.NewString(u.Hash),
		"rules_hash": object.NewString(u.RulesHash),
		"changed":    object.NewBool(u.Changed),
		"output":     object.NewString(string(u.Output)),
		"lines":      intsToList(u.Lines),
		"sites":      object.NewInt(int64(u.Sites)),
		"rewritten":  object.NewInt(int64(u.Rewritten)),
	})
}

// intsToList converts []int to a Risor list of ints.
func intsToList(values []int) *object.List {
	items := make([]object.Object, len(values))
	for i, v := range values {
		items[i] = object.NewInt(int64(v))
	}
	return object.NewList(items)
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
