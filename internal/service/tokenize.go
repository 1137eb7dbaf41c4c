package service

import "strings"

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"of": {}, "with": {}, "by": {}, "from": {}, "is": {}, "was": {}, "are": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "may": {}, "might": {}, "shall": {}, "can": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "i": {}, "me": {}, "my": {}, "we": {}, "our": {}, "you": {}, "your": {}, "he": {},
	"she": {}, "it": {}, "they": {}, "them": {}, "their": {}, "what": {}, "which": {}, "who": {}, "whom": {},
	"so": {}, "than": {}, "too": {}, "very": {}, "just": {}, "about": {}, "above": {}, "after": {}, "before": {},
	"between": {}, "both": {}, "each": {}, "few": {}, "more": {}, "most": {}, "other": {}, "some": {}, "such": {},
	"no": {}, "not": {}, "only": {}, "same": {}, "into": {}, "over": {}, "under": {}, "again": {}, "then": {},
	"once": {}, "here": {}, "there": {}, "when": {}, "where": {}, "why": {}, "how": {}, "all": {}, "any": {},
	"as": {}, "if": {},
}

// IsStopword reports whether term is dropped by Tokenize.
func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

// Tokenize lowercases text and splits it on runs of characters outside
// [a-z0-9], dropping single-character tokens and stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len(f) <= 1 || IsStopword(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
