package ingest

import "time"

// Summary is one entry of a listing page.
type Summary struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Listing is the decoded body of a paginated listing call.
type Listing struct {
	Results []Summary `json:"results"`
	Next    *string   `json:"next"`
}

// NextURL returns the next page link, or "" when the listing has none.
func (l Listing) NextURL() string {
	if l.Next == nil {
		return ""
	}
	return *l.Next
}

// ItemRecord is the subset of a detail payload the loader cares about.
type ItemRecord struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Height int64  `json:"height"`
	Weight int64  `json:"weight"`
}

// Page is the result of fetching one listing page and all of its details.
type Page struct {
	Items []ItemRecord
	// Next is the listing's next link verbatim; empty when absent.
	Next string
}

// Row is a single warehouse row.
type Row struct {
	ID     int64  `json:"id" bigquery:"id"`
	Name   string `json:"name" bigquery:"name"`
	Height int64  `json:"height" bigquery:"height"`
	Weight int64  `json:"weight" bigquery:"weight"`
}

// RowFromItem projects an item record onto the warehouse columns.
func RowFromItem(item ItemRecord) Row {
	return Row{
		ID:     item.ID,
		Name:   item.Name,
		Height: item.Height,
		Weight: item.Weight,
	}
}

// RowsFromItems projects every record, preserving order.
func RowsFromItems(items []ItemRecord) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, RowFromItem(item))
	}
	return rows
}

// FieldType enumerates warehouse column types.
type FieldType string

// Supported column types.
const (
	FieldTypeInteger FieldType = "INTEGER"
	FieldTypeString  FieldType = "STRING"
)

// Field describes a single column.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
}

// Schema is an ordered column list.
type Schema []Field

// Columns returns the column names in order.
func (s Schema) Columns() []string {
	cols := make([]string, 0, len(s))
	for _, f := range s {
		cols = append(cols, f.Name)
	}
	return cols
}

// ItemSchema is the fixed table definition for loaded items.
var ItemSchema = Schema{
	{Name: "id", Type: FieldTypeInteger, Required: true},
	{Name: "name", Type: FieldTypeString, Required: true},
	{Name: "height", Type: FieldTypeInteger, Required: true},
	{Name: "weight", Type: FieldTypeInteger, Required: true},
}

// RunSummary is published after each successful run.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Cursor       string    `json:"cursor"`
	NextCursor   string    `json:"next_cursor"`
	ItemsFetched int       `json:"items_fetched"`
	RowsInserted int       `json:"rows_inserted"`
	Dataset      string    `json:"dataset"`
	Table        string    `json:"table"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// RunStatus is the terminal state of a run.
type RunStatus string

// Run statuses.
const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one row of run history.
type RunRecord struct {
	ID           string
	Status       RunStatus
	Cursor       string
	NextCursor   string
	ItemsFetched int
	RowsInserted int
	// FailedStage names the stage that aborted the run; empty on success.
	FailedStage  string
	ErrorMessage *string
	StartedAt    time.Time
	FinishedAt   time.Time
}
