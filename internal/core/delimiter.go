package core

import (
	"fmt"
	"sort"
	"strings"
)

// Default detection limits.
const (
	DefaultSniffSampleSize = 2048
	DefaultFallbackLines   = 5
)

// Strategy names reported in DetectionResult.Strategy.
const (
	StrategySniff       = "sniff"
	StrategyConsistency = "consistency"
	StrategyDefault     = "default"
	StrategyManual      = "manual"
)

// delimiterStrategy returns a delimiter, or false when inconclusive.
type delimiterStrategy struct {
	name  string
	guess func(sample string) (rune, bool)
}

// Detector infers the field separator of a body.
type Detector struct {
	// SampleSize is the number of characters handed to the strategies.
	SampleSize int
	// FallbackLines is the number of non-blank lines the consistency
	// strategy inspects.
	FallbackLines int

	strategies []delimiterStrategy
}

// NewDetector creates a detector. Non-positive limits select the defaults.
func NewDetector(sampleSize, fallbackLines int) *Detector {
	if sampleSize <= 0 {
		sampleSize = DefaultSniffSampleSize
	}
	if fallbackLines <= 0 {
		fallbackLines = DefaultFallbackLines
	}
	d := &Detector{SampleSize: sampleSize, FallbackLines: fallbackLines}
	d.strategies = []delimiterStrategy{
		{name: StrategySniff, guess: sniffDelimiter},
		{name: StrategyConsistency, guess: d.consistentDelimiter},
	}
	return d
}

// Sample returns the prefix of content the strategies look at.
func (d *Detector) Sample(content string) string {
	return prefixChars(content, d.SampleSize)
}

// Detect infers the delimiter of content and names the strategy that
// decided. Comma is returned when every strategy is inconclusive.
func (d *Detector) Detect(content string) (rune, string) {
	sample := d.Sample(content)
	for _, s := range d.strategies {
		if delim, ok := s.guess(sample); ok && IsSupportedDelimiter(delim) {
			return delim, s.name
		}
	}
	return Comma, StrategyDefault
}

// Analyze detects the delimiter and counts rows over the full content.
func (d *Detector) Analyze(content string) (DetectionResult, error) {
	delim, strategy := d.Detect(content)
	n, err := RowCount(content, delim)
	if err != nil {
		return DetectionResult{Delimiter: delim, Strategy: strategy}, fmt.Errorf("%w: %v", ErrDetection, err)
	}
	return DetectionResult{Delimiter: delim, RowCount: n, Strategy: strategy}, nil
}

// delimiterStats is the consistency strategy's view of one candidate.
type delimiterStats struct {
	delim      rune
	average    float64
	consistent bool
}

// consistentDelimiter prefers a delimiter that occurs the same positive
// number of times on every sampled line, then the highest average count.
func (d *Detector) consistentDelimiter(sample string) (rune, bool) {
	var lines []string
	for _, line := range strings.Split(sample, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == d.FallbackLines {
			break
		}
	}
	if len(lines) == 0 {
		return 0, false
	}

	var stats []delimiterStats
	for _, delim := range candidateDelimiters {
		counts := make([]int, len(lines))
		sum := 0
		uniform := true
		for i, line := range lines {
			counts[i] = strings.Count(line, string(delim))
			sum += counts[i]
			if counts[i] != counts[0] {
				uniform = false
			}
		}
		avg := float64(sum) / float64(len(counts))
		switch {
		case uniform && counts[0] > 0:
			stats = append(stats, delimiterStats{delim: delim, average: avg, consistent: true})
		case avg > 0:
			stats = append(stats, delimiterStats{delim: delim, average: avg})
		}
	}
	if len(stats) == 0 {
		return 0, false
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].consistent != stats[j].consistent {
			return stats[i].consistent
		}
		return stats[i].average > stats[j].average
	})
	return stats[0].delim, true
}

// prefixChars returns the first n characters (not bytes) of s.
func prefixChars(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// DelimiterChoice is a user-facing delimiter option.
type DelimiterChoice string

const (
	DelimiterAuto      DelimiterChoice = "auto"
	DelimiterComma     DelimiterChoice = "comma"
	DelimiterTab       DelimiterChoice = "tab"
	DelimiterSemicolon DelimiterChoice = "semicolon"
	DelimiterPipe      DelimiterChoice = "pipe"
)

// ParseDelimiterChoice accepts option names, display names and the literal
// characters. An empty string means auto-detect.
func ParseDelimiterChoice(s string) (DelimiterChoice, error) {
	if s == "\t" {
		return DelimiterTab, nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "auto-detect", "autodetect":
		return DelimiterAuto, nil
	case "comma", ",", "comma (,)":
		return DelimiterComma, nil
	case "tab", `\t`, "tsv":
		return DelimiterTab, nil
	case "semicolon", ";", "semicolon (;)":
		return DelimiterSemicolon, nil
	case "pipe", "|", "pipe (|)":
		return DelimiterPipe, nil
	}
	return "", fmt.Errorf("unknown delimiter %q (use auto, comma, tab, semicolon or pipe)", s)
}

// Rune returns the delimiter for a manual choice, or false for auto.
func (c DelimiterChoice) Rune() (rune, bool) {
	switch c {
	case DelimiterComma:
		return Comma, true
	case DelimiterTab:
		return Tab, true
	case DelimiterSemicolon:
		return Semicolon, true
	case DelimiterPipe:
		return Pipe, true
	}
	return 0, false
}

// DelimiterName returns the display name of a delimiter.
func DelimiterName(d rune) string {
	switch d {
	case Comma:
		return "Comma (,)"
	case Tab:
		return "Tab"
	case Semicolon:
		return "Semicolon (;)"
	case Pipe:
		return "Pipe (|)"
	}
	return fmt.Sprintf("'%c'", d)
}
