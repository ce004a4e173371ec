package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/cardimport/internal/core"
)

// importForm is the multipart payload of /api/analyze and /api/import.
type importForm struct {
	Header      bool   `validate:"-"`
	Delimiter   string `validate:"max=20"`
	NoteType    string `validate:"max=200"`
	Deck        string `validate:"max=500"`
	Subdeck     string `validate:"max=200"`
	TagOverflow bool   `validate:"-"`
	// Directory is the client-side folder the file was picked from.
	// Browsers only send the base name with the file part.
	Directory   string `validate:"max=4096"`
}

// createDeckRequest is the JSON body of POST /api/decks.
type createDeckRequest struct {
	Parent string `json:"parent" validate:"required,max=500"`
	Child  string `json:"child" validate:"max=200"`
	Select bool   `json:"select"`
}

// lastDirectoryRequest is the JSON body of PUT /api/preferences/last-directory.
type lastDirectoryRequest struct {
	Directory string `json:"directory" validate:"required,max=4096"`
}

// uploadedText is a decoded multipart file.
type uploadedText struct {
	Name string
	Text string
	Info core.TextInfo
}

// readUpload parses the multipart form, decodes the "file" part and
// validates the remaining fields.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*uploadedText, importForm, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, importForm{}, fmt.Errorf("%w: %v", errBadForm, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, importForm{}, core.ErrNoFile
	}
	defer file.Close()

	if header.Size > maxSize {
		return nil, importForm{}, fmt.Errorf("%w: %d bytes exceeds %dMB limit", core.ErrFileTooLarge, header.Size, maxSize/(1024*1024))
	}

	form := importForm{
		Header:      formBool(r, "header", false),
		Delimiter:   r.FormValue("delimiter"),
		NoteType:    r.FormValue("notetype"),
		Deck:        r.FormValue("deck"),
		Subdeck:     r.FormValue("subdeck"),
		TagOverflow: formBool(r, "tags", s.cfg.Import.TagOverflow),
		Directory:   strings.TrimSpace(r.FormValue("directory")),
	}
	if err := s.validate.Struct(form); err != nil {
		return nil, importForm{}, err
	}

	text, info, err := core.ReadText(file)
	if err != nil {
		return nil, importForm{}, err
	}
	return &uploadedText{Name: header.Filename, Text: text, Info: info}, form, nil
}

// options converts the form into importer options.
func (f importForm) options(source string) (core.Options, error) {
	delim, err := core.ParseDelimiterChoice(f.Delimiter)
	if err != nil {
		return core.Options{}, fmt.Errorf("%w: %v", errBadForm, err)
	}
	return core.Options{
		Header:      f.Header,
		Delimiter:   delim,
		NoteType:    f.NoteType,
		TagOverflow: f.TagOverflow,
		Deck:        f.Deck,
		Subdeck:     f.Subdeck,
		Source:      source,
	}, nil
}

func formBool(r *http.Request, name string, def bool) bool {
	v := r.FormValue(name)
	if v == "" {
		return def
	}
	if v == "on" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
