// internal/ingest/result.go

// Package ingest reads periodic sales and stock extracts from the account
// directory layout on disk and normalizes them into domain rows. Each file
// produces an explicit outcome; one unreadable extract never aborts a run.
package ingest

import "fmt"

// FileResult is the outcome of parsing one extract file.
type FileResult struct {
	Path    string
	Account string
	Rows    int
	Skipped int
	Err     error
}

// Summary aggregates the per-file outcomes of one ingestion run.
type Summary struct {
	Files []FileResult
}

func (s *Summary) add(r FileResult) {
	s.Files = append(s.Files, r)
}

// Rows is the total number of normalized rows across all files.
func (s Summary) Rows() int {
	n := 0
	for _, f := range s.Files {
		n += f.Rows
	}
	return n
}

// Failed returns the results that ended in an error.
func (s Summary) Failed() []FileResult {
	var out []FileResult
	for _, f := range s.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

func (s Summary) String() string {
	return fmt.Sprintf("%d files, %d rows, %d failed", len(s.Files), s.Rows(), len(s.Failed()))
}
