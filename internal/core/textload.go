package core

// textload.go decodes raw file content to a string.
//
// Decoding is an ordered strategy list. Each strategy either returns text or
// declines, and the first one that accepts wins:
//
//  1. utf-8:     strict UTF-8 without a byte order mark
//  2. utf-8-sig: strict UTF-8 after stripping a leading BOM
//  3. lossy:     charset guessed by chardet and decoded with x/text, or as a
//                last resort UTF-8 with invalid bytes replaced by U+FFFD
//
// The lossy step always accepts, so decoding never fails outright.

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// MaxFileSize is the largest input ReadText will buffer (100MB).
var MaxFileSize int64 = 100 * 1024 * 1024

// MinCharsetConfidence is the chardet confidence required before a guessed
// single-byte charset is trusted over UTF-8 replacement.
var MinCharsetConfidence = 30

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextInfo describes how file content was decoded.
type TextInfo struct {
	Encoding string // name of the strategy that accepted
	Charset  string // charset used by the lossy strategy, if any
	Lossy    bool   // true if bytes may have been replaced or reinterpreted
	Size     int    // raw byte length
}

type decodeStrategy struct {
	name   string
	decode func(data []byte, info *TextInfo) (string, bool)
}

var decodeStrategies = []decodeStrategy{
	{name: "utf-8", decode: decodeStrictUTF8},
	{name: "utf-8-sig", decode: decodeUTF8BOM},
	{name: "lossy", decode: decodeLossy},
}

// DecodeText decodes raw bytes using the strategy chain.
func DecodeText(data []byte) (string, TextInfo) {
	info := TextInfo{Size: len(data)}
	for _, s := range decodeStrategies {
		if text, ok := s.decode(data, &info); ok {
			info.Encoding = s.name
			return text, info
		}
	}
	// Unreachable: the lossy strategy always accepts.
	info.Encoding = "lossy"
	info.Lossy = true
	return string(sanitizeUTF8(data)), info
}

func decodeStrictUTF8(data []byte, _ *TextInfo) (string, bool) {
	if bytes.HasPrefix(data, utf8BOM) || !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func decodeUTF8BOM(data []byte, _ *TextInfo) (string, bool) {
	if !bytes.HasPrefix(data, utf8BOM) || !utf8.Valid(data[len(utf8BOM):]) {
		return "", false
	}
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func decodeLossy(data []byte, info *TextInfo) (string, bool) {
	info.Lossy = true
	data = bytes.TrimPrefix(data, utf8BOM)

	if enc, name := guessCharset(data); enc != nil {
		if out, err := enc.NewDecoder().Bytes(data); err == nil {
			info.Charset = name
			return string(out), true
		}
	}

	info.Charset = "utf-8"
	return string(sanitizeUTF8(data)), true
}

// guessCharset returns a decoder for the most likely non-UTF-8 charset, or
// nil when the guess is UTF-8, unknown, or not confident enough.
func guessCharset(data []byte) (encoding.Encoding, string) {
	res, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || res == nil || res.Confidence < MinCharsetConfidence {
		return nil, ""
	}

	name := strings.ToLower(res.Charset)
	switch name {
	case "utf-8", "ascii", "us-ascii":
		return nil, ""
	case "iso-8859-1":
		// htmlindex maps latin-1 to windows-1252; keep the literal table.
		return charmap.ISO8859_1, name
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, ""
	}
	return enc, name
}

// sanitizeUTF8 replaces each invalid byte with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.Write(data[:size])
		}
		data = data[size:]
	}

	return buf.Bytes()
}
