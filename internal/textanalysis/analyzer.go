// Package textanalysis holds pure helpers over extracted document text.
package textanalysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Sentence length thresholds used by the different callers.
const (
	MinSearchLen  = 0
	MinContextLen = 10
	MinSummaryLen = 20

	maxSearchResults = 5
	minKeywordLen    = 3
)

var (
	sentenceBreak = regexp.MustCompile(`[.!?]+`)
	numberPattern = regexp.MustCompile(`\d+`)
	datePattern   = regexp.MustCompile(`\d{4}|\d{1,2}/\d{1,2}/\d{2,4}`)
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	"can": {}, "this": {}, "that": {}, "these": {}, "those": {},
}

// SegmentSentences splits text on runs of '.', '!' and '?' and keeps the
// trimmed fragments longer than minLen runes.
func SegmentSentences(text string, minLen int) []string {
	var out []string
	for _, frag := range sentenceBreak.Split(text, -1) {
		frag = strings.TrimSpace(frag)
		if utf8.RuneCountInString(frag) > minLen {
			out = append(out, frag)
		}
	}
	return out
}

// Search returns up to five sentences containing query, case-insensitively.
func Search(text, query string) []string {
	if text == "" || query == "" {
		return nil
	}

	needle := strings.ToLower(query)
	var matches []string
	for _, s := range SegmentSentences(text, MinSearchLen) {
		if strings.Contains(strings.ToLower(s), needle) {
			matches = append(matches, s)
			if len(matches) == maxSearchResults {
				break
			}
		}
	}
	return matches
}

// TopKeywords returns the k most frequent non-stop-word tokens longer than
// three runes. Equal counts keep first-seen order.
func TopKeywords(text string, k int) []string {
	counts := map[string]int{}
	var order []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(tok) <= minKeywordLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > k {
		order = order[:k]
	}
	return order
}

// Numbers returns every digit run in document order.
func Numbers(text string) []string {
	return numberPattern.FindAllString(text, -1)
}

// Dates returns four-digit runs and d/m/y style dates in document order.
func Dates(text string) []string {
	return datePattern.FindAllString(text, -1)
}

// ContainsAny reports whether s contains any of the keywords, ignoring case.
func ContainsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
