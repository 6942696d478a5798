package dialogue

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Extraction is the structured result of scanning one transcript.
// At most one token per category is ever reported.
type Extraction struct {
	Doctor string
	Date   string
	Time   string
}

// Extractor turns free-form transcribed speech into structured booking fields.
// Implementations must be pure and safe for concurrent use.
//
// This is a bounded best-effort strategy, not general language understanding;
// a stronger extractor can be substituted without touching the state machine.
type Extractor interface {
	Extract(transcript string) Extraction
}

// RegexExtractor matches a fixed set of patterns per category, in priority
// order, and reports only the first matching pattern class. That first-match
// rule is a deliberate simplicity/precision tradeoff.
type RegexExtractor struct{}

func NewRegexExtractor() RegexExtractor { return RegexExtractor{} }

var doctorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`dr\.?\s+([a-z]+)`),
	regexp.MustCompile(`doctor\s+([a-z]+)`),
	regexp.MustCompile(`([a-z]+)\s+doctor`),
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`monday|tuesday|wednesday|thursday|friday|saturday|sunday`),
	regexp.MustCompile(`(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\w*\s+\d{1,2}`),
	regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`),
	regexp.MustCompile(`tomorrow|today|next week`),
}

var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}:\d{2}\s*(?:am|pm)?`),
	regexp.MustCompile(`\d{1,2}\s*(?:am|pm)`),
	regexp.MustCompile(`morning|afternoon|evening|noon`),
}

func (RegexExtractor) Extract(transcript string) Extraction {
	text := strings.ToLower(transcript)
	out := Extraction{}

	for _, p := range doctorPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			out.Doctor = TitleWord(m[1])
			break
		}
	}
	for _, p := range datePatterns {
		if m := p.FindString(text); m != "" {
			out.Date = m
			break
		}
	}
	for _, p := range timePatterns {
		if m := p.FindString(text); m != "" {
			out.Time = m
			break
		}
	}
	return out
}

// namePhrases are the only constructions the greeting stage trusts for
// picking a name out of an open-ended reply.
var namePhrases = []string{"i'm", "my name is"}

// ExtractName applies the constrained greeting-stage name match: the first
// token following "I'm" or "my name is", title-cased. It requires at least
// two words so a bare "I'm" never yields a name.
func ExtractName(transcript string) (string, bool) {
	lower := strings.ToLower(transcript)
	if len(strings.Fields(lower)) < 2 {
		return "", false
	}
	for _, phrase := range namePhrases {
		idx := strings.Index(lower, phrase)
		if idx < 0 {
			continue
		}
		rest := strings.Fields(lower[idx+len(phrase):])
		if len(rest) == 0 {
			continue
		}
		return TitleWord(rest[0]), true
	}
	return "", false
}

// TitleWord upper-cases the first rune and lower-cases the remainder.
func TitleWord(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// TitleWords title-cases every whitespace-separated word, for use when the
// whole utterance is taken as a name.
func TitleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = TitleWord(w)
	}
	return strings.Join(words, " ")
}
