package core

import (
	"reflect"
	"testing"
)

func TestExtractDirectives(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Directives
	}{
		{
			name:    "keys lowercased and values trimmed",
			content: "#separator:comma\n#NoteType: Basic \nfront,back",
			want:    Directives{"separator": "comma", "notetype": "Basic"},
		},
		{
			name:    "later duplicate wins",
			content: "#notetype:Basic\n#notetype:Cloze\nx",
			want:    Directives{"notetype": "Cloze"},
		},
		{
			name:    "blank lines inside the run",
			content: "\n#html:true\n\n#deck:Spanish\nhola,hello",
			want:    Directives{"html": "true", "deck": "Spanish"},
		},
		{
			name:    "comment lines contribute nothing",
			content: "# exported from my notes\n#tags:verbs\nx,y",
			want:    Directives{"tags": "verbs"},
		},
		{
			name:    "empty value is not a directive",
			content: "#deck:\nx,y",
			want:    Directives{},
		},
		{
			name:    "run ends at first data line",
			content: "a,b\n#notetype:Cloze",
			want:    Directives{},
		},
		{
			name:    "crlf line endings",
			content: "#notetype:Basic\r\n#deck:X\r\na,b\r\n",
			want:    Directives{"notetype": "Basic", "deck": "X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDirectives(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractDirectives() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripDirectives(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no directives", "a,b\nc,d", "a,b\nc,d"},
		{"directives removed", "#a:1\n\n#b:2\nx,y\n#c:3\n\nz", "x,y\n#c:3\n\nz"},
		{"only directives", "#a:1\n#b:2", ""},
		{"crlf preserved in body", "#a:1\r\nx,y\r\nz\r\n", "x,y\r\nz\r\n"},
		{"comment line consumed", "# note\nx", "x"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripDirectives(tt.content); got != tt.want {
				t.Errorf("StripDirectives(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestStripDirectives_Idempotent(t *testing.T) {
	inputs := []string{
		"#a:1\nx,y",
		"\n\n#a:1\n\n\nx\n#b:2",
		"plain,row\n\n#later:1",
		"#only:directives\n",
		"#a:1\r\n\r\nq\r\n",
	}
	for _, in := range inputs {
		once := StripDirectives(in)
		if twice := StripDirectives(once); twice != once {
			t.Errorf("StripDirectives not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSplitDirectives(t *testing.T) {
	d, body := SplitDirectives("#notetype:Cloze\n{{c1::Paris}} is in France,geo")
	if name, ok := d.NoteType(); !ok || name != "Cloze" {
		t.Errorf("NoteType() = %q, %v; want Cloze, true", name, ok)
	}
	if body != "{{c1::Paris}} is in France,geo" {
		t.Errorf("body = %q", body)
	}
}

func TestDirectives_NoteTypeBlank(t *testing.T) {
	d := Directives{DirectiveNoteType: "   "}
	if _, ok := d.NoteType(); ok {
		t.Error("expected blank notetype directive to be ignored")
	}
}
