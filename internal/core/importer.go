package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/cardimport/internal/logging"
	"github.com/google/uuid"
)

// Options are the user-controlled settings of an import.
type Options struct {
	// Header forces the first row to be treated as a header.
	Header bool
	// Delimiter is a manual delimiter, or DelimiterAuto.
	Delimiter DelimiterChoice
	// NoteType names a schema chosen by the user. A notetype directive in
	// the file takes precedence.
	NoteType string
	// TagOverflow turns the last cell of overlong rows into tags.
	TagOverflow bool
	// Deck is the target collection name. Empty selects the host's current
	// collection when it tracks one.
	Deck string
	// Subdeck is appended to Deck as a child collection when set.
	Subdeck string
	// Source names the input for logs, usually the file path.
	Source string
}

// DefaultOptions returns options with auto-detection and tag overflow on.
func DefaultOptions() Options {
	return Options{Delimiter: DelimiterAuto, TagOverflow: true}
}

// Analysis is the result of running every step up to schema resolution.
// It is rebuilt from scratch on each call; nothing is cached between runs.
type Analysis struct {
	Directives Directives
	Body       string
	Detection  DetectionResult
	// DetectErr is set when row analysis failed; Detection then only
	// carries the fallback delimiter.
	DetectErr       error
	// Header is the user flag or the sniffed guess. It steers schema
	// matching but never drops a row on its own.
	Header          bool
	Rows            []Row
	ObservedColumns int
	Schemas         []Schema
	Schema          *Schema
	Source          SchemaSource
	// SchemaErr is the last schema resolution problem, kept even when a
	// later step resolved a schema.
	SchemaErr error
	Warnings  []string
}

func (a *Analysis) warn(err error) {
	a.SchemaErr = err
	a.Warnings = append(a.Warnings, err.Error())
}

// Status renders the one-line analysis summary shown to users.
func (a *Analysis) Status() string {
	if a.DetectErr != nil {
		return fmt.Sprintf("⚠ Detection failed: %v", a.DetectErr)
	}
	parts := []string{
		fmt.Sprintf("✓ Detected: %s delimiter", DelimiterName(a.Detection.Delimiter)),
		fmt.Sprintf("%d row(s)", a.Detection.RowCount),
	}
	if a.Schema != nil {
		via := ""
		if a.Source == SourceDirective {
			via = ", via directive"
		}
		parts = append(parts, fmt.Sprintf("Note type: %s (%d field(s)%s)", a.Schema.Name, a.Schema.FieldCount(), via))
	}
	return strings.Join(parts, " • ")
}

// HeaderRow returns the first non-empty row when a header is present.
func (a *Analysis) HeaderRow() []string {
	if !a.Header {
		return nil
	}
	for _, r := range a.Rows {
		if !r.IsEmpty() {
			hdr := make([]string, len(r))
			for i, c := range r {
				hdr[i] = strings.TrimSpace(c)
			}
			return hdr
		}
	}
	return nil
}

// Summary renders the completion message for an outcome.
func (o *ImportOutcome) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Added: %d note(s)", o.Added)
	if o.SkippedEmpty > 0 {
		fmt.Fprintf(&b, "\nSkipped empty rows: %d", o.SkippedEmpty)
	}
	if o.Strategy != StrategyManual {
		fmt.Fprintf(&b, "\nUsed delimiter: %s", DelimiterName(o.Delimiter))
	}
	return b.String()
}

// PhaseObserver is notified of every phase transition of a run.
type PhaseObserver func(runID string, from, to ImportPhase)

// Importer runs analysis and imports against a host.
type Importer struct {
	host     Host
	detector *Detector
	observer PhaseObserver
}

// NewImporter creates an importer. A nil detector uses the defaults.
func NewImporter(host Host, detector *Detector) *Importer {
	if detector == nil {
		detector = NewDetector(0, 0)
	}
	return &Importer{host: host, detector: detector}
}

// OnPhase registers an observer for phase transitions.
func (im *Importer) OnPhase(fn PhaseObserver) {
	im.observer = fn
}

// Detector returns the detector used for analysis.
func (im *Importer) Detector() *Detector {
	return im.detector
}

// run tracks the phase of a single import invocation.
type run struct {
	id       string
	phase    ImportPhase
	started  time.Time
	logger   *slog.Logger
	observer PhaseObserver
}

func (im *Importer) newRun(ctx context.Context, opts Options) *run {
	id := uuid.New().String()
	source := opts.Source
	if source == "" {
		source = SourceFromContext(ctx)
	}
	logger := logging.WithFields(ctx, "run_id", id, "source", source)
	if ip := ClientIPFromContext(ctx); ip != "" {
		logger = logger.With("client_ip", ip)
	}
	return &run{
		id:       id,
		phase:    PhaseIdle,
		started:  time.Now(),
		logger:   logger,
		observer: im.observer,
	}
}

func (r *run) transition(to ImportPhase, args ...any) {
	from := r.phase
	r.phase = to
	r.logger.Debug("import phase", append([]any{"from", from, "to", to}, args...)...)
	if r.observer != nil {
		r.observer(r.id, from, to)
	}
}

func (r *run) fail(err error) error {
	r.transition(PhaseFailed, "error", err)
	r.logger.Warn("import failed", "error", err, "duration_ms", time.Since(r.started).Milliseconds())
	return err
}

// AnalyzeFile loads path and analyzes it.
func (im *Importer) AnalyzeFile(ctx context.Context, path string, opts Options) (*Analysis, error) {
	text, info, err := LoadText(path)
	if err != nil {
		return nil, err
	}
	if opts.Source == "" {
		opts.Source = path
	}
	a, err := im.Analyze(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	if info.Lossy {
		a.Warnings = append(a.Warnings, fmt.Sprintf("%v: decoded as %s, some characters may be wrong", ErrDecode, info.Charset))
	}
	return a, nil
}

// Analyze runs directive extraction, delimiter detection, row parsing,
// header classification and schema resolution over decoded text.
// Detection and schema inference degrade to defaults instead of failing.
func (im *Importer) Analyze(ctx context.Context, text string, opts Options) (*Analysis, error) {
	logger := logging.WithFields(ctx, "source", opts.Source)
	return im.analyze(ctx, logger, text, opts)
}

func (im *Importer) analyze(ctx context.Context, logger *slog.Logger, text string, opts Options) (*Analysis, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, ErrEmptyInput
	}

	a := &Analysis{}
	a.Directives, a.Body = SplitDirectives(raw)

	if delim, ok := opts.Delimiter.Rune(); ok {
		n, err := RowCount(a.Body, delim)
		if err != nil {
			n = 0
		}
		a.Detection = DetectionResult{Delimiter: delim, RowCount: n, Strategy: StrategyManual}
	} else {
		det, err := im.detector.Analyze(a.Body)
		a.Detection = det
		if err != nil {
			a.DetectErr = err
			logger.Warn("delimiter detection failed", "error", err)
		}
	}
	logger.Debug("delimiter resolved",
		"delimiter", DelimiterName(a.Detection.Delimiter),
		"strategy", a.Detection.Strategy,
		"rows", a.Detection.RowCount,
	)

	rows, err := ParseRows(a.Body, a.Detection.Delimiter)
	if err != nil {
		if a.DetectErr == nil {
			a.DetectErr = fmt.Errorf("%w: %v", ErrDetection, err)
		}
		rows = nil
	}
	a.Rows = rows
	a.Header = im.detector.HasHeader(a.Body, opts.Header)

	schemas, err := im.host.Schemas(ctx)
	if err != nil {
		logger.Warn("note type registry unavailable", "error", err)
		a.warn(fmt.Errorf("%w: %v", ErrSchemaResolution, err))
		return a, nil
	}
	a.Schemas = schemas
	im.resolveSchema(logger, a, opts)
	return a, nil
}

// resolveSchema picks the schema by directive, then manual choice, then
// inference. Unknown names are reported as warnings and fall through.
func (im *Importer) resolveSchema(logger *slog.Logger, a *Analysis, opts Options) {
	if name, ok := a.Directives.NoteType(); ok {
		if idx, found := FindSchemaByName(name, a.Schemas); found {
			a.Schema, a.Source = &a.Schemas[idx], SourceDirective
			return
		}
		logger.Warn("directive note type not found", "notetype", name)
		a.warn(fmt.Errorf("%w: directive note type %q not found", ErrSchemaResolution, name))
	}

	if name := strings.TrimSpace(opts.NoteType); name != "" {
		if idx, found := FindSchemaByName(name, a.Schemas); found {
			a.Schema, a.Source = &a.Schemas[idx], SourceManual
			return
		}
		a.warn(fmt.Errorf("%w: note type %q not found", ErrSchemaResolution, name))
	}

	a.ObservedColumns = ObservedColumns(a.Rows, a.Header)
	if idx, ok := MatchSchema(a.HeaderRow(), a.ObservedColumns, a.Schemas); ok {
		a.Schema, a.Source = &a.Schemas[idx], SourceInferred
		logger.Debug("note type inferred",
			"notetype", a.Schema.Name,
			"observed_columns", a.ObservedColumns,
		)
	}
}

// ImportFile loads path and imports it.
func (im *Importer) ImportFile(ctx context.Context, path string, opts Options) (*ImportOutcome, error) {
	text, info, err := LoadText(path)
	if err != nil {
		return nil, err
	}
	if info.Lossy {
		logging.FromContext(ctx).Warn("file decoded lossily", "path", path, "charset", info.Charset, "error", ErrDecode)
	}
	if opts.Source == "" {
		opts.Source = path
	}
	return im.Import(ctx, text, opts)
}

// Import analyzes text from scratch and emits one record per non-empty row
// into the resolved collection, then commits. A sink failure aborts the run
// with a *RecordEmitError; records already emitted are not rolled back.
func (im *Importer) Import(ctx context.Context, text string, opts Options) (*ImportOutcome, error) {
	r := im.newRun(ctx, opts)

	r.transition(PhaseFileLoaded, "bytes", len(text))

	a, err := im.analyze(ctx, r.logger, text, opts)
	if err != nil {
		return nil, r.fail(err)
	}
	if len(NonEmptyRows(a.Rows)) == 0 {
		return nil, r.fail(ErrEmptyInput)
	}
	if a.Schema == nil {
		err := a.SchemaErr
		if err == nil {
			err = fmt.Errorf("%w: no note type matched", ErrSchemaResolution)
		}
		return nil, r.fail(err)
	}
	schema := *a.Schema
	r.transition(PhaseContentAnalyzed,
		"delimiter", DelimiterName(a.Detection.Delimiter),
		"header", a.Header,
		"notetype", schema.Name,
		"notetype_source", a.Source,
	)

	// The sniffed guess only steers matching. A row is discarded as a header
	// when the caller says so.
	records, skipped := BuildRecords(a.Rows, schema, opts.Header, opts.TagOverflow)
	if len(records) == 0 {
		return nil, r.fail(ErrEmptyInput)
	}

	collectionID, err := im.resolveCollection(ctx, opts)
	if err != nil {
		return nil, r.fail(err)
	}

	r.transition(PhaseImporting, "collection_id", collectionID, "records", len(records))
	added := 0
	for _, rec := range records {
		if err := im.host.AddRecord(ctx, rec, collectionID); err != nil {
			return nil, r.fail(&RecordEmitError{Added: added, Line: rec.Line, Err: err})
		}
		added++
	}
	if err := im.host.Commit(ctx); err != nil {
		return nil, r.fail(&RecordEmitError{Added: added, Line: records[len(records)-1].Line, Err: fmt.Errorf("commit: %w", err)})
	}

	out := &ImportOutcome{
		RunID:        r.id,
		Added:        added,
		SkippedEmpty: skipped,
		Delimiter:    a.Detection.Delimiter,
		Strategy:     a.Detection.Strategy,
		SchemaName:   schema.Name,
		SchemaSource: a.Source,
		CollectionID: collectionID,
		Duration:     time.Since(r.started),
	}
	r.transition(PhaseDone)
	r.logger.Info("import completed",
		"added", out.Added,
		"skipped_empty", out.SkippedEmpty,
		"notetype", out.SchemaName,
		"collection_id", out.CollectionID,
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

// resolveCollection gets or creates the target collection and selects it.
func (im *Importer) resolveCollection(ctx context.Context, opts Options) (int64, error) {
	name := strings.TrimSpace(opts.Deck)
	if name == "" {
		cc, ok := im.host.(CurrentCollectioner)
		if !ok {
			return 0, fmt.Errorf("%w: no deck given", ErrCollectionUnresolved)
		}
		cur, found, err := cc.CurrentCollection(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCollectionUnresolved, err)
		}
		if !found {
			return 0, fmt.Errorf("%w: no deck given and none selected", ErrCollectionUnresolved)
		}
		name = cur.Name
	}
	if child := strings.TrimSpace(opts.Subdeck); child != "" {
		var err error
		if name, err = SubdeckName(name, child); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCollectionUnresolved, err)
		}
	}

	id, err := im.host.GetOrCreateCollection(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrCollectionUnresolved, name, err)
	}
	if err := im.host.SelectCollection(ctx, id); err != nil {
		return 0, fmt.Errorf("%w: select %q: %v", ErrCollectionUnresolved, name, err)
	}
	return id, nil
}
