package support

import (
	"regexp"
	"strings"
)

// Similarity thresholds for duplicate detection. A shared component label is
// enough corroboration to accept a weaker text match.
const (
	thresholdComponentMatch = 0.4
	thresholdDefault        = 0.6
)

const (
	minKeywordLen    = 3 // strictly greater than
	minSimilarityLen = 2 // strictly greater than
	maxKeywords      = 3
)

var tokenSplit = regexp.MustCompile(`\W+`)

// stopwords are excluded from keywords and similarity tokens. The last two
// are domain words that appear in nearly every report and carry no signal.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "been": true, "be": true,
	"have": true, "has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "with": true, "from": true, "they": true, "them": true,
	"there": true, "here": true, "when": true, "where": true, "what": true,
	"which": true, "while": true, "about": true, "into": true, "over": true,
	"not": true, "very": true, "just": true, "also": true,
	"image": true, "app": true,
}

func tokenize(s string) []string {
	var out []string
	for _, tok := range tokenSplit.Split(strings.ToLower(s), -1) {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// SearchKeywords extracts up to three search terms from a message.
func SearchKeywords(message string) []string {
	var keywords []string
	for _, tok := range tokenize(message) {
		if len(tok) <= minKeywordLen || stopwords[tok] {
			continue
		}
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// similaritySet builds the filtered token set used for Jaccard comparison.
// Tokens are lightly stemmed so inflections of the same word ("working",
// "works", "work") count as one.
func similaritySet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(s) {
		if len(tok) <= minSimilarityLen || stopwords[tok] {
			continue
		}
		set[stem(tok)] = true
	}
	return set
}

// stem strips the most common English suffixes. Not a real stemmer; just
// enough that rephrased reports of the same fault overlap.
func stem(tok string) string {
	switch {
	case len(tok) > 5 && strings.HasSuffix(tok, "ing"):
		return tok[:len(tok)-3]
	case len(tok) > 4 && strings.HasSuffix(tok, "ed"):
		return tok[:len(tok)-2]
	case len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss"):
		return tok[:len(tok)-1]
	}
	return tok
}

// Jaccard computes set overlap between two texts over filtered tokens.
// Either side empty yields zero, never a division error.
func Jaccard(a, b string) float64 {
	setA, setB := similaritySet(a), similaritySet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// FindDuplicate returns the first issue whose title is similar enough to the
// new report's title, in the caller's order. Issues sharing the classified
// component accept a lower threshold.
func FindDuplicate(issues []Issue, c *Classification, title string) *Issue {
	for i := range issues {
		threshold := thresholdDefault
		if c.Component != "" && hasLabel(issues[i].Labels, componentLabel(c.Component)) {
			threshold = thresholdComponentMatch
		}
		if Jaccard(title, issues[i].Title) >= threshold {
			return &issues[i]
		}
	}
	return nil
}

func componentLabel(component string) string {
	return "component:" + component
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, want) {
			return true
		}
	}
	return false
}
