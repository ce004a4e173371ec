package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// fakeHost records everything the importer hands it.
type fakeHost struct {
	schemas     []Schema
	schemaErr   error
	collections []Collection
	selected    int64
	current     *Collection
	records     []Record
	recordDecks []int64
	commits     int
	failAfter   int // AddRecord fails once this many records are stored; 0 disables
	commitErr   error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		schemas: []Schema{
			{ID: 1, Name: "Basic", Fields: []string{"Front", "Back"}},
			{ID: 2, Name: "Cloze", Fields: []string{"Text", "Back Extra"}},
			{ID: 3, Name: "Vocab", Fields: []string{"Word", "Meaning", "Example"}},
		},
		collections: []Collection{{ID: 1, Name: "Default"}},
	}
}

func (h *fakeHost) Schemas(context.Context) ([]Schema, error) {
	return h.schemas, h.schemaErr
}

func (h *fakeHost) Collections(context.Context) ([]Collection, error) {
	return h.collections, nil
}

func (h *fakeHost) GetOrCreateCollection(_ context.Context, name string) (int64, error) {
	for _, c := range h.collections {
		if strings.EqualFold(c.Name, name) {
			return c.ID, nil
		}
	}
	c := Collection{ID: int64(len(h.collections) + 1), Name: name}
	h.collections = append(h.collections, c)
	return c.ID, nil
}

func (h *fakeHost) SelectCollection(_ context.Context, id int64) error {
	h.selected = id
	return nil
}

func (h *fakeHost) AddRecord(_ context.Context, rec Record, collectionID int64) error {
	if h.failAfter > 0 && len(h.records) >= h.failAfter {
		return errors.New("disk full")
	}
	h.records = append(h.records, rec)
	h.recordDecks = append(h.recordDecks, collectionID)
	return nil
}

func (h *fakeHost) Commit(context.Context) error {
	h.commits++
	return h.commitErr
}

// currentHost adds a selected collection to fakeHost.
type currentHost struct {
	*fakeHost
}

func (h currentHost) CurrentCollection(context.Context) (Collection, bool, error) {
	if h.current == nil {
		return Collection{}, false, nil
	}
	return *h.current, true, nil
}

func importOpts(deck string) Options {
	opts := DefaultOptions()
	opts.Deck = deck
	return opts
}

func TestImporter_Import(t *testing.T) {
	host := newFakeHost()
	im := NewImporter(host, nil)

	text := "What is 2+2?\t4\nCapital of France?\tParis\n\nLargest planet?\tJupiter\n"
	out, err := im.Import(context.Background(), text, importOpts("Trivia"))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if out.Added != 3 {
		t.Errorf("Added = %d, want 3", out.Added)
	}
	if out.SkippedEmpty != 1 {
		t.Errorf("SkippedEmpty = %d, want 1", out.SkippedEmpty)
	}
	if out.Delimiter != Tab || out.Strategy != StrategySniff {
		t.Errorf("delimiter = %q via %s", out.Delimiter, out.Strategy)
	}
	if out.SchemaName != "Basic" || out.SchemaSource != SourceInferred {
		t.Errorf("schema = %s (%s), want Basic (inferred)", out.SchemaName, out.SchemaSource)
	}
	if out.RunID == "" {
		t.Error("missing RunID")
	}

	if host.commits != 1 {
		t.Errorf("commits = %d, want 1", host.commits)
	}
	if host.selected != out.CollectionID {
		t.Errorf("selected %d, want %d", host.selected, out.CollectionID)
	}
	for i, id := range host.recordDecks {
		if id != out.CollectionID {
			t.Errorf("record %d went to deck %d, want %d", i, id, out.CollectionID)
		}
	}
	if got := host.records[2]; got.Line != 4 || !reflect.DeepEqual(got.Fields, []string{"Largest planet?", "Jupiter"}) {
		t.Errorf("last record = %+v", got)
	}
	for _, rec := range host.records {
		if len(rec.Fields) != 2 {
			t.Errorf("line %d has %d fields", rec.Line, len(rec.Fields))
		}
	}
}

func TestImporter_SchemaPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		manual     string
		wantSchema string
		wantSource SchemaSource
		wantWarn   bool
	}{
		{"directive beats manual", "#notetype:Cloze\na,b", "Vocab", "Cloze", SourceDirective, false},
		{"manual beats inference", "a,b", "Vocab", "Vocab", SourceManual, false},
		{"alias resolves", "#notetype:cloze\na,b", "", "Cloze", SourceDirective, false},
		{"unknown directive falls through to manual", "#notetype:Nope\na,b", "Cloze", "Cloze", SourceManual, true},
		{"unknown manual falls through to inference", "a,b,c", "Nope", "Vocab", SourceInferred, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.NoteType = tt.manual

			a, err := NewImporter(newFakeHost(), nil).Analyze(context.Background(), tt.text, opts)
			if err != nil {
				t.Fatal(err)
			}
			if a.Schema == nil {
				t.Fatal("no schema resolved")
			}
			if a.Schema.Name != tt.wantSchema || a.Source != tt.wantSource {
				t.Errorf("got %s (%s), want %s (%s)", a.Schema.Name, a.Source, tt.wantSchema, tt.wantSource)
			}
			if got := len(a.Warnings) > 0; got != tt.wantWarn {
				t.Errorf("warnings = %q, wantWarn %v", a.Warnings, tt.wantWarn)
			}
		})
	}
}

func TestImporter_AnalyzeManualDelimiter(t *testing.T) {
	opts := DefaultOptions()
	opts.Delimiter = DelimiterSemicolon

	a, err := NewImporter(newFakeHost(), nil).Analyze(context.Background(), "a,b;c\nd,e;f", opts)
	if err != nil {
		t.Fatal(err)
	}
	if a.Detection.Delimiter != Semicolon || a.Detection.Strategy != StrategyManual {
		t.Errorf("detection = %+v", a.Detection)
	}
	if a.Rows[0][0] != "a,b" {
		t.Errorf("first cell = %q, want %q", a.Rows[0][0], "a,b")
	}
	if !strings.Contains(a.Status(), "Semicolon (;) delimiter") {
		t.Errorf("Status() = %q", a.Status())
	}
}

func TestImporter_AnalyzeStatus(t *testing.T) {
	a, err := NewImporter(newFakeHost(), nil).Analyze(context.Background(), "#notetype:Basic\nq,a\nq2,a2", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := "✓ Detected: Comma (,) delimiter • 2 row(s) • Note type: Basic (2 field(s), via directive)"
	if got := a.Status(); got != want {
		t.Errorf("Status() = %q, want %q", got, want)
	}
}

func TestImporter_HeaderFlag(t *testing.T) {
	host := newFakeHost()
	opts := importOpts("Vocab deck")
	opts.Header = true

	out, err := NewImporter(host, nil).Import(context.Background(), "Word,Meaning,Example\nperro,dog,el perro ladra", opts)
	if err != nil {
		t.Fatal(err)
	}
	if out.Added != 1 || out.SchemaName != "Vocab" {
		t.Errorf("outcome = %+v", out)
	}
	if host.records[0].Fields[0] != "perro" {
		t.Errorf("header row imported as data: %q", host.records[0].Fields)
	}
}

func TestImporter_SniffedHeaderKeepsFirstRow(t *testing.T) {
	text := "Paris,France\nRome,Italy"

	a, err := NewImporter(newFakeHost(), nil).Analyze(context.Background(), text, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !a.Header {
		t.Fatal("expected the sniffer to guess a header")
	}

	host := newFakeHost()
	out, err := NewImporter(host, nil).Import(context.Background(), text, importOpts("Default"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Added != 2 {
		t.Fatalf("Added = %d, want 2", out.Added)
	}
	if got := host.records[0]; got.Line != 1 || !reflect.DeepEqual(got.Fields, []string{"Paris", "France"}) {
		t.Errorf("first record = %+v", got)
	}
}

func TestImporter_Subdeck(t *testing.T) {
	host := newFakeHost()
	opts := importOpts("Languages")
	opts.Subdeck = "Spanish   Verbs"

	out, err := NewImporter(host, nil).Import(context.Background(), "#notetype:Basic\nir,to go", opts)
	if err != nil {
		t.Fatal(err)
	}
	got := host.collections[out.CollectionID-1].Name
	if got != "Languages::Spanish Verbs" {
		t.Errorf("deck = %q", got)
	}
}

func TestImporter_CurrentCollection(t *testing.T) {
	base := newFakeHost()
	base.current = &Collection{ID: 1, Name: "Default"}

	out, err := NewImporter(currentHost{base}, nil).Import(context.Background(), "#notetype:Basic\nq,a", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if out.CollectionID != 1 {
		t.Errorf("CollectionID = %d, want 1", out.CollectionID)
	}

	// A host without a current collection needs an explicit deck.
	_, err = NewImporter(newFakeHost(), nil).Import(context.Background(), "#notetype:Basic\nq,a", DefaultOptions())
	if !errors.Is(err, ErrCollectionUnresolved) {
		t.Errorf("got %v, want ErrCollectionUnresolved", err)
	}
}

func TestImporter_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		host func() *fakeHost
		want error
	}{
		{"empty input", "  \n\t\n", newFakeHost, ErrEmptyInput},
		{"only directives", "#notetype:Basic\n\n", newFakeHost, ErrEmptyInput},
		{"only blank rows", "#notetype:Basic\n\"\",\"\"\n,", newFakeHost, ErrEmptyInput},
		{"directives without a note type", "#deck:Spanish\n\n", newFakeHost, ErrEmptyInput},
		{"blank cells without a note type", " , \n,", newFakeHost, ErrEmptyInput},
		{"no schemas", "a,b", func() *fakeHost {
			h := newFakeHost()
			h.schemas = nil
			return h
		}, ErrSchemaResolution},
		{"registry failure", "a,b", func() *fakeHost {
			h := newFakeHost()
			h.schemaErr = errors.New("db down")
			return h
		}, ErrSchemaResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := tt.host()
			_, err := NewImporter(host, nil).Import(context.Background(), tt.text, importOpts("X"))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if len(host.records) != 0 || host.commits != 0 {
				t.Errorf("sink touched: %d records, %d commits", len(host.records), host.commits)
			}
		})
	}
}

func TestImporter_EmitFailure(t *testing.T) {
	host := newFakeHost()
	host.failAfter = 2

	_, err := NewImporter(host, nil).Import(context.Background(), "#notetype:Basic\na,1\nb,2\nc,3\nd,4", importOpts("X"))

	var emitErr *RecordEmitError
	if !errors.As(err, &emitErr) {
		t.Fatalf("got %v, want *RecordEmitError", err)
	}
	if emitErr.Added != 2 || emitErr.Line != 3 {
		t.Errorf("Added = %d, Line = %d; want 2, 3", emitErr.Added, emitErr.Line)
	}
	if !errors.Is(err, ErrRecordEmit) {
		t.Error("expected errors.Is(err, ErrRecordEmit)")
	}
	if host.commits != 0 {
		t.Errorf("commits = %d, want 0", host.commits)
	}
	if len(host.records) != 2 {
		t.Errorf("records = %d, earlier records must stay", len(host.records))
	}
}

func TestImporter_CommitFailure(t *testing.T) {
	host := newFakeHost()
	host.commitErr = errors.New("locked")

	_, err := NewImporter(host, nil).Import(context.Background(), "#notetype:Basic\na,1\nb,2", importOpts("X"))

	var emitErr *RecordEmitError
	if !errors.As(err, &emitErr) {
		t.Fatalf("got %v, want *RecordEmitError", err)
	}
	if emitErr.Added != 2 {
		t.Errorf("Added = %d, want 2", emitErr.Added)
	}
}

func TestImporter_Phases(t *testing.T) {
	var seen []ImportPhase
	var runIDs = make(map[string]bool)
	im := NewImporter(newFakeHost(), nil)
	im.OnPhase(func(runID string, _, to ImportPhase) {
		runIDs[runID] = true
		seen = append(seen, to)
	})

	if _, err := im.Import(context.Background(), "#notetype:Basic\nq,a", importOpts("X")); err != nil {
		t.Fatal(err)
	}
	want := []ImportPhase{PhaseFileLoaded, PhaseContentAnalyzed, PhaseImporting, PhaseDone}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("phases = %v, want %v", seen, want)
	}

	seen = nil
	if _, err := im.Import(context.Background(), "", importOpts("X")); err == nil {
		t.Fatal("expected error")
	}
	want = []ImportPhase{PhaseFileLoaded, PhaseFailed}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("failed phases = %v, want %v", seen, want)
	}
	if len(runIDs) != 2 {
		t.Errorf("expected a run id per import, got %d", len(runIDs))
	}
}

func TestImporter_ImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.csv")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBF#notetype:Basic\nq,a\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	host := newFakeHost()
	out, err := NewImporter(host, nil).ImportFile(context.Background(), path, importOpts("X"))
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if out.Added != 1 || out.SchemaSource != SourceDirective {
		t.Errorf("outcome = %+v", out)
	}
}

func TestImportOutcome_Summary(t *testing.T) {
	out := &ImportOutcome{Added: 3, SkippedEmpty: 1, Delimiter: Tab, Strategy: StrategySniff}
	want := "Added: 3 note(s)\nSkipped empty rows: 1\nUsed delimiter: Tab"
	if got := out.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}

	manual := &ImportOutcome{Added: 1, Delimiter: Comma, Strategy: StrategyManual}
	if got := manual.Summary(); got != "Added: 1 note(s)" {
		t.Errorf("Summary() = %q", got)
	}
}
