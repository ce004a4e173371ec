package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseRows(t *testing.T) {
	tests := []struct {
		name    string
		content string
		delim   rune
		want    []Row
	}{
		{
			name:    "simple",
			content: "a,b\nc,d",
			delim:   Comma,
			want:    []Row{{"a", "b"}, {"c", "d"}},
		},
		{
			name:    "blank line kept as empty row",
			content: "a,b\n\nc,d",
			delim:   Comma,
			want:    []Row{{"a", "b"}, {}, {"c", "d"}},
		},
		{
			name:    "several blank lines",
			content: "a\n\n\nb",
			delim:   Comma,
			want:    []Row{{"a"}, {}, {}, {"b"}},
		},
		{
			name:    "trailing newline adds no row",
			content: "a,b\n",
			delim:   Comma,
			want:    []Row{{"a", "b"}},
		},
		{
			name:    "quoted field spanning lines",
			content: "\"multi\nline\",x\ny,z",
			delim:   Comma,
			want:    []Row{{"multi\nline", "x"}, {"y", "z"}},
		},
		{
			name:    "ragged rows",
			content: "a\nb,c,d",
			delim:   Comma,
			want:    []Row{{"a"}, {"b", "c", "d"}},
		},
		{
			name:    "stray quotes accepted",
			content: `say "hi" now,ok`,
			delim:   Comma,
			want:    []Row{{`say "hi" now`, "ok"}},
		},
		{
			name:    "tab",
			content: "hola\thello\nadiós\tgoodbye",
			delim:   Tab,
			want:    []Row{{"hola", "hello"}, {"adiós", "goodbye"}},
		},
		{
			name:    "pipe keeps commas",
			content: "1,5|one and a half",
			delim:   Pipe,
			want:    []Row{{"1,5", "one and a half"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRows(tt.content, tt.delim)
			if err != nil {
				t.Fatalf("ParseRows() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRows() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRows_UnsupportedDelimiter(t *testing.T) {
	_, err := ParseRows("a:b", ':')
	if !errors.Is(err, ErrDetection) {
		t.Errorf("expected ErrDetection, got %v", err)
	}
}

func TestRowCount(t *testing.T) {
	n, err := RowCount("a;b\n\nc;d\ne;f", Semicolon)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("RowCount = %d, want 4", n)
	}
}

func TestRow_IsEmpty(t *testing.T) {
	tests := []struct {
		row  Row
		want bool
	}{
		{Row{}, true},
		{Row{"", "  ", "\t"}, true},
		{Row{"", "x"}, false},
	}
	for _, tt := range tests {
		if got := tt.row.IsEmpty(); got != tt.want {
			t.Errorf("%q.IsEmpty() = %v, want %v", tt.row, got, tt.want)
		}
	}
}

func TestNonEmptyRows(t *testing.T) {
	rows := []Row{{"a"}, {}, {" "}, {"b", ""}}
	got := NonEmptyRows(rows)
	want := []Row{{"a"}, {"b", ""}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NonEmptyRows() = %q, want %q", got, want)
	}
}
