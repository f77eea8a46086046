package store

import "time"

// Unit is the cached rewrite outcome of one source file. A row is valid
// only while both Hash and RulesHash match the current input.
type Unit struct {
	Path      string
	Hash      string
	RulesHash string

	Changed bool
	// Output is the rewritten source; empty when Changed is false.
	Output []byte
	// Lines are the 1-based lines of the original source that changed.
	Lines []int

	Sites     int
	Rewritten int

	LastProcessed time.Time
}

// Fresh reports whether u was produced from content with the given hash
// under the given rules.
func (u *Unit) Fresh(hash, rulesHash string) bool {
	return u != nil && u.Hash == hash && u.RulesHash == rulesHash
}
