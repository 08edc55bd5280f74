// Package corpus implements the document model and the snapshot-based
// document store for the retrieval engine. Raw text sources are chunked,
// classified, and indexed into an immutable Snapshot; a reload produces a
// brand-new Snapshot and swaps it atomically so in-flight readers are
// never affected.
package corpus

import (
	"sort"
	"strings"
	"unicode"
)

// Metadata describes where a document chunk came from.
type Metadata struct {
	// SourceFile is the identifier of the source the chunk was cut from
	// (typically a file name within the corpus directory).
	SourceFile string `json:"sourceFile"`

	// SourceType is the category assigned by the SourceClassifier
	// (e.g. "linkedin", "jobboard", "style", "general").
	SourceType string `json:"sourceType"`

	// PlatformTag is the optional platform label used for query boosts.
	// Empty when the source is not platform-specific.
	PlatformTag string `json:"platformTag,omitempty"`

	// ChunkIndex is the sequential position of this chunk within its source.
	ChunkIndex int `json:"chunkIndex"`
}

// Document is one immutable chunk of indexed corpus text. Documents are
// created only during ingestion and are never mutated afterwards.
type Document struct {
	// ID uniquely identifies the chunk within one snapshot. It is derived
	// deterministically from the source ID and chunk index, so re-ingesting
	// identical input yields identical IDs.
	ID string `json:"id"`

	// Content is the raw chunk text.
	Content string `json:"content"`

	// NormalizedContent is Content lowercased, used for matching.
	NormalizedContent string `json:"-"`

	// Keywords is the sorted set of significant tokens extracted from
	// Content. A pure deterministic function of Content.
	Keywords []string `json:"-"`

	// Metadata holds source attribution for this chunk.
	Metadata Metadata `json:"metadata"`
}

// Query is a parsed search query.
type Query struct {
	// RawText is the original query string.
	RawText string

	// Normalized is RawText lowercased and whitespace-trimmed.
	Normalized string

	// Tokens is the lowercased word split of RawText.
	Tokens []string

	// Keywords is Tokens minus stopwords and short words, deduplicated.
	Keywords []string

	// PlatformHint optionally restricts the platform boost
	// (e.g. "linkedin"). Empty means no platform preference.
	PlatformHint string
}

// NewQuery parses raw text into a Query. The platform hint is lowercased
// so matching against Metadata.PlatformTag is case-insensitive.
func NewQuery(text, platformHint string) Query {
	normalized := strings.ToLower(strings.TrimSpace(text))
	return Query{
		RawText:      text,
		Normalized:   normalized,
		Tokens:       tokenize(normalized),
		Keywords:     ExtractKeywords(normalized),
		PlatformHint: strings.ToLower(strings.TrimSpace(platformHint)),
	}
}

// stopwords lists common English words excluded from keyword extraction.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"being": true, "have": true, "has": true, "had": true, "do": true,
	"does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "its": true,
	"from": true, "into": true, "about": true, "your": true,
	"their": true, "they": true, "them": true, "what": true,
	"which": true, "when": true, "where": true, "how": true,
}

// tokenize splits text into lowercase word tokens. Punctuation and any
// non-alphanumeric runes act as separators.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ExtractKeywords returns the significant tokens of text: lowercased,
// longer than three runes, stopwords removed, deduplicated, and sorted so
// the result is a pure deterministic function of the input.
func ExtractKeywords(text string) []string {
	seen := make(map[string]bool)
	for _, w := range tokenize(text) {
		if len(w) <= 3 || stopwords[w] {
			continue
		}
		seen[w] = true
	}
	if len(seen) == 0 {
		return nil
	}
	keywords := make([]string, 0, len(seen))
	for w := range seen {
		keywords = append(keywords, w)
	}
	sort.Strings(keywords)
	return keywords
}
