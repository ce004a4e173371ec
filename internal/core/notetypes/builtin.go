package notetypes

import "github.com/JonMunkholm/cardimport/internal/core"

// Built-in note type names.
const (
	Basic             = "Basic"
	BasicReversed     = "Basic (and reversed card)"
	BasicOptionalRev  = "Basic (optional reversed card)"
	BasicTypeInAnswer = "Basic (type in the answer)"
	Cloze             = "Cloze"
)

func init() {
	registerBuiltins()
}

// registerBuiltins registers the standard note types. Registration order is
// the order the matcher sees them in, so Basic wins ties between equal
// two-field types.
func registerBuiltins() {
	core.Register(core.Schema{Name: Basic, Fields: []string{"Front", "Back"}})
	core.Register(core.Schema{Name: BasicReversed, Fields: []string{"Front", "Back"}})
	core.Register(core.Schema{Name: BasicOptionalRev, Fields: []string{"Front", "Back", "Add Reverse"}})
	core.Register(core.Schema{Name: BasicTypeInAnswer, Fields: []string{"Front", "Back"}})
	core.Register(core.Schema{Name: Cloze, Fields: []string{"Text", "Back Extra"}})
}
