package web

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/a-h/templ"
)

// indexData is everything the upload page shows.
type indexData struct {
	NoteTypes     []core.Schema
	Decks         []core.Collection
	DefaultDeck   string
	LastDirectory string
	TagOverflow   bool
}

var delimiterOptions = []struct{ value, label string }{
	{"auto", "Auto-detect"},
	{"comma", "Comma (,)"},
	{"tab", "Tab"},
	{"semicolon", "Semicolon (;)"},
	{"pipe", "Pipe (|)"},
}

func indexPage(d indexData) templ.Component {
	return layout("Import notes from CSV", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<form method="post" action="/api/import" enctype="multipart/form-data">`)
		b.WriteString(`<label>File <input type="file" name="file" accept=".csv,.tsv,.txt" required></label>`)
		if d.LastDirectory != "" {
			fmt.Fprintf(&b, `<p class="hint">Last directory: %s</p>`, templ.EscapeString(d.LastDirectory))
		}

		b.WriteString(`<label>Delimiter <select name="delimiter">`)
		for _, o := range delimiterOptions {
			fmt.Fprintf(&b, `<option value="%s">%s</option>`, o.value, templ.EscapeString(o.label))
		}
		b.WriteString(`</select></label>`)

		b.WriteString(`<label><input type="checkbox" name="header" value="true"> First row is a header</label>`)
		checked := ""
		if d.TagOverflow {
			checked = " checked"
		}
		fmt.Fprintf(&b, `<label><input type="checkbox" name="tags" value="true"%s> Extra last column holds tags</label>`, checked)

		b.WriteString(`<label>Note type <select name="notetype"><option value="">Detect</option>`)
		for _, s := range d.NoteTypes {
			fmt.Fprintf(&b, `<option value="%s">%s (%d fields)</option>`,
				templ.EscapeString(s.Name), templ.EscapeString(s.Name), s.FieldCount())
		}
		b.WriteString(`</select></label>`)

		fmt.Fprintf(&b, `<label>Deck <input name="deck" list="decks" value="%s"></label><datalist id="decks">`,
			templ.EscapeString(d.DefaultDeck))
		for _, c := range d.Decks {
			fmt.Fprintf(&b, `<option value="%s">`, templ.EscapeString(c.Name))
		}
		b.WriteString(`</datalist>`)
		b.WriteString(`<label>Subdeck <input name="subdeck" placeholder="optional"></label>`)

		b.WriteString(`<button type="submit" formaction="/api/analyze">Analyze</button> `)
		b.WriteString(`<button type="submit">Import</button></form>`)

		_, err := io.WriteString(w, b.String())
		return err
	}))
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title>`+
			`<style>body{font-family:sans-serif;max-width:40rem;margin:2rem auto}label{display:block;margin:.6rem 0}.hint{color:#666}</style>`+
			`</head><body><h1>%s</h1>`, templ.EscapeString(title), templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}
