package dto

// HealthResponse reports the server status.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Rows    int    `json:"rows"`
}

// Row is one extracted fact.
type Row struct {
	ID         string  `json:"id" jsonschema:"description=Unique row identifier"`
	Section    string  `json:"section" jsonschema:"description=Free-text category label"`
	Key        string  `json:"key" jsonschema:"description=Field name within the section"`
	Value      string  `json:"value" jsonschema:"description=Field value"`
	Confidence float64 `json:"confidence" jsonschema:"description=Extraction confidence, nominally 0 to 1"`
	SourceSpan *string `json:"sourceSpan,omitempty" jsonschema:"description=Page or figure locator"`
}

// RowsResponse is a list of rows and the total number of rows in the store.
type RowsResponse struct {
	Rows  []Row `json:"rows"`
	Total int   `json:"total"`
}

// ListSectionsResponse lists the distinct sections in order of first appearance.
type ListSectionsResponse struct {
	Sections []string `json:"sections"`
}

// DeleteRowResponse confirms a deletion.
type DeleteRowResponse struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

// JournalEntry is one committed mutation.
type JournalEntry struct {
	ID     string   `json:"id"`
	Time   string   `json:"time" jsonschema:"description=Commit time (RFC3339)"`
	Op     string   `json:"op"`
	RowIDs []string `json:"rowIds,omitempty"`
	Field  string   `json:"field,omitempty"`
	Count  int      `json:"count"`
}

// ListJournalResponse lists journal entries, newest first.
type ListJournalResponse struct {
	Entries []JournalEntry `json:"entries"`
}

// Revision is one committed snapshot.
type Revision struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date" jsonschema:"description=Commit time (RFC3339)"`
}

// ListRevisionsResponse lists snapshot revisions, newest first.
type ListRevisionsResponse struct {
	Revisions []Revision `json:"revisions"`
}
