// Package segment cleans raw article text and splits it into sentences.
package segment

import (
	"html"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/rewired-gh/finsent/internal/models"
)

// Tidy unescapes HTML entities, collapses whitespace runs to one space,
// applies NFKC and trims.
func Tidy(s string) string {
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(norm.NFKC.String(s))
}

// Segment fills a.Sentences with the tagged headline followed by the body
// sentences, and resets the ticker list for the enrich stage.
func Segment(a *models.Article, marker string) {
	sentences := []string{Tidy(a.Headline) + marker}
	for _, s := range SplitSentences(Tidy(a.Body)) {
		if s = Tidy(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	a.Sentences = sentences
	a.Tickers = []string{}
}

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "sr": true, "jr": true, "st": true,
	"inc": true, "corp": true, "co": true, "ltd": true, "plc": true, "llc": true, "cos": true, "bros": true,
	"u.s": true, "u.k": true, "e.u": true, "u.n": true, "e.g": true, "i.e": true, "etc": true, "vs": true,
	"no": true, "approx": true, "est": true, "dept": true, "gov": true, "sen": true, "rep": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true, "jul": true, "aug": true,
	"sep": true, "sept": true, "oct": true, "nov": true, "dec": true,
}

const closers = `"')]”’`

// SplitSentences splits on terminal punctuation followed by whitespace and a
// plausible sentence start. Decimals, initials and common abbreviations such
// as "Inc." or "U.S." do not end a sentence.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		for end < len(runes) && (strings.ContainsRune(".!?", runes[end]) || strings.ContainsRune(closers, runes[end])) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		next := end
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if next < len(runes) && !startsSentence(runes[next]) {
			i = end - 1
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			i = end - 1
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func startsSentence(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsDigit(r) || strings.ContainsRune(`"'“‘(`, r)
}

// isAbbreviation reports whether the word ending just before a period is a
// known abbreviation or a single-letter initial.
func isAbbreviation(before []rune) bool {
	j := len(before)
	for j > 0 && !unicode.IsSpace(before[j-1]) {
		j--
	}
	word := strings.TrimLeft(string(before[j:]), `"'“‘(`)
	if word == "" {
		return false
	}
	w := []rune(word)
	if len(w) == 1 && unicode.IsUpper(w[0]) {
		return true
	}
	return abbreviations[strings.ToLower(word)]
}
