package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// stringsToArgs converts []string to []any for use with database/sql.
func stringsToArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// marshalLines converts []int to JSON text for storage.
func marshalLines(lines []int) string {
	if len(lines) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(lines)
	return string(b)
}

// unmarshalLines converts JSON text back to []int.
func unmarshalLines(s string) []int {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var lines []int
	_ = json.Unmarshal([]byte(s), &lines)
	return lines
}
