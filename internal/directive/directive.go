// Package directive scans source text for the line comments that override
// the rewrite policy: "//@tsl" forces a rewrite and "//@js" forces the
// native operator to be kept.
package directive

import (
	"regexp"
	"sort"
	"strings"
)

// Mode is the override a directive comment requests.
type Mode uint8

const (
	None Mode = iota
	ForceRewrite
	ForcePreserve
)

func (m Mode) String() string {
	switch m {
	case ForceRewrite:
		return "tsl"
	case ForcePreserve:
		return "js"
	}
	return "none"
}

var pattern = regexp.MustCompile(`(?i)// ?@(tsl|js)\b`)

// Map holds the directive found on each 1-based line. It is built once per
// unit and never modified afterwards.
type Map map[int]Mode

// Scan records the first directive comment on every line of src.
func Scan(src []byte) Map {
	m := Map{}
	for i, line := range strings.Split(string(src), "\n") {
		match := pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		if strings.EqualFold(match[1], "tsl") {
			m[i+1] = ForceRewrite
		} else {
			m[i+1] = ForcePreserve
		}
	}
	return m
}

// Lookup returns the directive governing a node that starts on line: a
// directive on the same line wins over one on the line directly above.
func (m Map) Lookup(line int) Mode {
	if mode, ok := m[line]; ok {
		return mode
	}
	return m[line-1]
}

// Lines returns the lines carrying a directive in ascending order.
func (m Map) Lines() []int {
	lines := make([]int, 0, len(m))
	for l := range m {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}
