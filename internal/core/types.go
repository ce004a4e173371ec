package core

import (
	"context"
	"strings"
	"time"
)

// Delimiters supported by detection and parsing, in fallback ranking order.
const (
	Comma     = ','
	Tab       = '\t'
	Semicolon = ';'
	Pipe      = '|'
)

// candidateDelimiters lists every delimiter the engine will ever produce.
var candidateDelimiters = []rune{Comma, Tab, Semicolon, Pipe}

// IsSupportedDelimiter reports whether d is one of the four supported separators.
func IsSupportedDelimiter(d rune) bool {
	for _, c := range candidateDelimiters {
		if c == d {
			return true
		}
	}
	return false
}

// Directives maps a lowercase directive key to its trimmed value.
type Directives map[string]string

// DirectiveNoteType selects the note type for the import, bypassing inference.
const DirectiveNoteType = "notetype"

// NoteType returns the value of the notetype directive, if present.
func (d Directives) NoteType() (string, bool) {
	v, ok := d[DirectiveNoteType]
	return v, ok && strings.TrimSpace(v) != ""
}

// Row is one tokenized line of the body, cells in file order.
type Row []string

// IsEmpty returns true if every cell is empty or whitespace-only.
func (r Row) IsEmpty() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Schema is a note type: a name plus its ordered field names.
// Schemas handed to the engine are point-in-time snapshots.
type Schema struct {
	ID     int64    `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Fields []string `json:"fields" yaml:"fields"`
}

// FieldCount returns the number of fields in the schema.
func (s Schema) FieldCount() int {
	return len(s.Fields)
}

// Collection is an import target (a deck). Names use "::" for hierarchy.
type Collection struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CollectionSeparator joins parent and child collection names.
const CollectionSeparator = "::"

// Record is one note ready for the sink. Fields always has one entry per
// schema field; absent cells are empty strings.
type Record struct {
	GUID     string   `json:"guid"`
	SchemaID int64    `json:"schemaId"`
	Fields   []string `json:"fields"`
	Tags     []string `json:"tags,omitempty"`
	Line     int      `json:"line"` // 1-indexed source row within the body
}

// DetectionResult is the outcome of delimiter detection over a body.
type DetectionResult struct {
	Delimiter rune   `json:"delimiter"`
	RowCount  int    `json:"rowCount"`
	Strategy  string `json:"strategy"` // which detection strategy decided
}

// SchemaSource records how the schema for a run was chosen.
type SchemaSource string

const (
	SourceNone      SchemaSource = ""
	SourceDirective SchemaSource = "directive"
	SourceInferred  SchemaSource = "inferred"
	SourceManual    SchemaSource = "manual"
)

// ImportPhase indicates the current stage of an import run.
type ImportPhase string

const (
	PhaseIdle            ImportPhase = "idle"
	PhaseFileLoaded      ImportPhase = "file_loaded"
	PhaseContentAnalyzed ImportPhase = "content_analyzed"
	PhaseImporting       ImportPhase = "importing"
	PhaseDone            ImportPhase = "done"
	PhaseFailed          ImportPhase = "failed"
)

// ImportOutcome summarises a finished import run.
type ImportOutcome struct {
	RunID        string        `json:"runId"`
	Added        int           `json:"added"`
	SkippedEmpty int           `json:"skippedEmpty"`
	Delimiter    rune          `json:"-"`
	Strategy     string        `json:"strategy"` // delimiter strategy, "manual" if chosen by the user
	SchemaName   string        `json:"schemaName"`
	SchemaSource SchemaSource  `json:"schemaSource"`
	CollectionID int64         `json:"collectionId"`
	Duration     time.Duration `json:"duration"`
}

// Host is the application the engine imports into. Implementations supply
// registry snapshots and accept records; they are called synchronously.
type Host interface {
	Schemas(ctx context.Context) ([]Schema, error)
	Collections(ctx context.Context) ([]Collection, error)
	GetOrCreateCollection(ctx context.Context, name string) (int64, error)
	SelectCollection(ctx context.Context, id int64) error
	AddRecord(ctx context.Context, rec Record, collectionID int64) error
	Commit(ctx context.Context) error
}

// CurrentCollectioner is implemented by hosts that track a selected collection.
type CurrentCollectioner interface {
	CurrentCollection(ctx context.Context) (Collection, bool, error)
}

// Preferences persists the last directory a file was picked from.
type Preferences interface {
	LastDirectory(ctx context.Context) (string, error)
	SetLastDirectory(ctx context.Context, dir string) error
}
