package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/JonMunkholm/cardimport/internal/logging"
)

// AnalyzeResponse describes what an import of the uploaded file would do.
type AnalyzeResponse struct {
	Status         string            `json:"status"`
	Delimiter      string            `json:"delimiter"`
	Strategy       string            `json:"strategy"`
	RowCount       int               `json:"rowCount"`
	Header         bool              `json:"header"`
	HeaderRow      []string          `json:"headerRow,omitempty"`
	NoteType       string            `json:"noteType,omitempty"`
	NoteTypeSource core.SchemaSource `json:"noteTypeSource,omitempty"`
	Fields         []string          `json:"fields,omitempty"`
	Directives     core.Directives   `json:"directives,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	DetectionError string            `json:"detectionError,omitempty"`
	Encoding       string            `json:"encoding"`
	Lossy          bool              `json:"lossy,omitempty"`
	SuggestSubdeck string            `json:"suggestedSubdeck,omitempty"`
}

// ImportResponse reports a finished import.
type ImportResponse struct {
	*core.ImportOutcome
	Delimiter string `json:"delimiter"`
	Summary   string `json:"summary"`
}

// handleAnalyze runs detection and note type resolution without writing.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	up, form, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	opts, err := form.options(up.Name)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := withImportMetadata(r, up.Name)
	a, err := s.importer.Analyze(ctx, up.Text, opts)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.metrics.ObserveAnalysis(a)

	resp := AnalyzeResponse{
		Status:         a.Status(),
		Delimiter:      core.DelimiterName(a.Detection.Delimiter),
		Strategy:       a.Detection.Strategy,
		RowCount:       a.Detection.RowCount,
		Header:         a.Header,
		HeaderRow:      a.HeaderRow(),
		Directives:     a.Directives,
		Warnings:       a.Warnings,
		Encoding:       up.Info.Encoding,
		Lossy:          up.Info.Lossy,
		SuggestSubdeck: core.SuggestSubdeck(up.Name),
	}
	if a.DetectErr != nil {
		resp.DetectionError = a.DetectErr.Error()
	}
	if a.Schema != nil {
		resp.NoteType = a.Schema.Name
		resp.NoteTypeSource = a.Source
		resp.Fields = a.Schema.Fields
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleImport imports the uploaded file. Imports are serialized by the
// import limiter; a request that cannot get a slot in time gets 503.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	up, form, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if form.Deck == "" {
		form.Deck = s.currentOrDefaultDeck(r.Context())
	}
	opts, err := form.options(up.Name)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := withImportMetadata(r, up.Name)
	logger := logging.FromContext(ctx)
	if up.Info.Lossy {
		logger.Warn("file decoded lossily", "name", up.Name, "charset", up.Info.Charset)
	}

	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Import.Timeout)
	defer cancel()

	out, err := s.importer.Import(ctx, up.Text, opts)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.metrics.ObserveOutcome(out)

	if form.Directory != "" {
		if err := s.store.SetLastDirectory(ctx, form.Directory); err != nil {
			logger.Warn("save last directory", "error", err)
		}
	}

	writeJSON(w, r, http.StatusOK, ImportResponse{
		ImportOutcome: out,
		Delimiter:     core.DelimiterName(out.Delimiter),
		Summary:       out.Summary(),
	})
}

// currentOrDefaultDeck returns the selected deck's name, or the configured
// default when nothing is selected.
func (s *Server) currentOrDefaultDeck(ctx context.Context) string {
	if cur, ok, err := s.store.CurrentCollection(ctx); err == nil && ok {
		return cur.Name
	}
	return s.cfg.Import.DefaultDeck
}

// handleImportStatus returns the current state of the import limiter.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.limiter.Status())
}
