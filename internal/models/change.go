package models

import "time"

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
	ChangeAll    ChangeType = "*"
)

// Change is one row-level event of the realtime feed.
type Change struct {
	Type            ChangeType     `json:"type"`
	Schema          string         `json:"schema"`
	Table           string         `json:"table"`
	Record          map[string]any `json:"record,omitempty"`
	OldRecord       map[string]any `json:"old_record,omitempty"`
	CommitTimestamp time.Time      `json:"commit_timestamp"`
}

func (c ChangeType) Matches(event ChangeType) bool {
	return c == ChangeAll || c == "" || c == event
}

type FileObject struct {
	Bucket   string `json:"bucket"`
	Path     string `json:"path"`
	FullPath string `json:"full_path"`
}
