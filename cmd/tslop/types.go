package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIUnit is a JSON-friendly rewrite outcome.
type CLIUnit struct {
	Path      string `json:"path"`
	Language  string `json:"language,omitempty"`
	Changed   bool   `json:"changed"`
	Cached    bool   `json:"cached,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
	Written   bool   `json:"written,omitempty"`
	Sites     int    `json:"sites"`
	Rewritten int    `json:"rewritten"`
	Lines     []int  `json:"lines,omitempty"`
	Diff      string `json:"diff,omitempty"`
	// Code is set for units read from stdin.
	Code string `json:"code,omitempty"`
}

// CLIRewriteSummary is the JSON result of the rewrite command.
type CLIRewriteSummary struct {
	Units     []CLIUnit `json:"units"`
	Changed   int       `json:"changed"`
	Cached    int       `json:"cached"`
	Skipped   int       `json:"skipped"`
	Sites     int       `json:"sites"`
	Rewritten int       `json:"rewritten"`
}

// CLIDirective is one directive comment of a unit.
type CLIDirective struct {
	Line int    `json:"line"`
	Mode string `json:"mode"`
}

// CLICachedUnit is a JSON-friendly cache entry.
type CLICachedUnit struct {
	Path          string `json:"path"`
	Hash          string `json:"hash"`
	Changed       bool   `json:"changed"`
	Sites         int    `json:"sites"`
	Rewritten     int    `json:"rewritten"`
	Lines         []int  `json:"lines,omitempty"`
	LastProcessed string `json:"last_processed,omitempty"`
}
