package llm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Scraped print text goes straight into prompts, so instruction-shaped
// fragments are neutralized first.
var redactExprs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)you are now`),
	regexp.MustCompile(`(?i)system prompt:`),
	regexp.MustCompile(`(?i)---\s*END.*?---`),
}

// headingExpr matches structural heading lines in Czech legislative texts:
// all-caps lines, section markers, roman numerals and report headers.
var headingExpr = regexp.MustCompile(
	`(?m)^(?:` +
		`[A-ZÁČĎÉĚÍŇÓŘŠŤÚŮÝŽ\s]{10,}` +
		`|(?:Část|ČÁST|Hlava|HLAVA|Článek|ČLÁNEK|Díl|DÍL)\s` +
		`|(?:I{1,3}V?|VI{0,3}|IX|X{1,3})\.\s` +
		`|DŮVODOVÁ ZPRÁVA` +
		`|ZVLÁŠTNÍ ČÁST` +
		`|OBECNÁ ČÁST` +
		`)`,
)

// Sanitize replaces prompt-injection markers in untrusted text with a
// [REDACTED] placeholder. Normal legislative Czech passes through unchanged.
func Sanitize(text string) string {
	for _, expr := range redactExprs {
		text = expr.ReplaceAllString(text, "[REDACTED]")
	}
	return text
}

// TruncateLegislative shortens a legislative text to the prompt budget. The
// first verbatim runes stay intact since they carry the explanatory report,
// then heading lines from the remainder are kept with 200 runes of context
// each, and the result is hard-capped at max runes.
func TruncateLegislative(text string, verbatim, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	head := firstRunes(text, verbatim)
	remainder := text[len(head):]

	var highlights []string
	for _, loc := range headingExpr.FindAllStringIndex(remainder, -1) {
		heading := remainder[loc[0]:loc[1]]
		snippet := firstRunes(remainder[loc[0]:], 200+utf8.RuneCountInString(heading))
		highlights = append(highlights, strings.TrimSpace(snippet))
	}

	result := head
	if len(highlights) > 0 {
		result += "\n\n[...]\n\n" + strings.Join(highlights, "\n\n")
	}
	return firstRunes(result, max)
}

// firstRunes returns the prefix of s holding at most n runes.
func firstRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
