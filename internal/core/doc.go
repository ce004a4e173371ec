// Package core provides the CSV ingestion and note-type inference engine.
//
// The package has no UI or storage dependencies. Frontends supply a [Host]
// that exposes note types, decks and a note sink; the CLI, the HTTP server
// and the tests all drive the same [Importer].
//
// # Pipeline
//
// An import runs these steps over a whole-file buffer:
//
//  1. [LoadText] or [ReadText] reads at most [MaxFileSize] bytes and decodes
//     them: strict UTF-8, then UTF-8 with BOM, then a lossy decode using a
//     guessed charset.
//  2. [SplitDirectives] reads the leading "#key:value" block and returns the
//     remaining body.
//  3. [Detector.Detect] picks one of , TAB ; | using statistical sniffing,
//     then a per-line consistency check, then comma.
//  4. [ParseRows] tokenizes the body.
//  5. [Detector.HasHeader] combines the user's header flag with a sniffed guess.
//  6. [MatchSchema] scores every note type against the header and observed
//     column count, unless a "#notetype:" directive or a manual choice names one.
//  7. [BuildRecords] maps rows to fields and overflow tags; the [Importer]
//     hands each record to the host and commits.
//
// # Note Type Registry
//
// Built-in note types are registered at init time using [Register] from the
// notetypes package and seeded into stores on open:
//
//	core.Register(core.Schema{
//	    Name:   "Basic",
//	    Fields: []string{"Front", "Back"},
//	})
//
// Hosts always hand the engine snapshots; the engine never keeps a reference
// to a mutable registry.
//
// # Error Handling
//
// Best-effort steps (decoding, delimiter detection, note type inference)
// degrade to defaults. Empty input, an unresolved deck or note type, and
// sink failures end the run. Technical errors are mapped to user-facing
// messages with support codes by [MapError].
package core
