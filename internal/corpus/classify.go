package corpus

import (
	"strings"
)

// SourceClassifier assigns a source type and optional platform tag to a raw
// source before chunking. Implementations must be deterministic: the same
// (sourceID, text) pair always yields the same classification.
type SourceClassifier interface {
	// Classify inspects the source identifier and its raw text and returns
	// the source type plus an optional platform tag (empty when the source
	// is not platform-specific).
	Classify(sourceID, text string) (sourceType, platformTag string)
}

// classifierRule maps an identifier substring to a classification.
type classifierRule struct {
	// match is the lowercase substring looked for in the source ID.
	match string
	// sourceType is the category assigned on match.
	sourceType string
	// platformTag is the platform label assigned on match. May be empty.
	platformTag string
}

// defaultRules is the ordered rule list used by KeywordClassifier.
// First match wins, so more specific rules come first.
var defaultRules = []classifierRule{
	{match: "linkedin", sourceType: "linkedin", platformTag: "linkedin"},
	{match: "indeed", sourceType: "jobboard", platformTag: "indeed"},
	{match: "glassdoor", sourceType: "jobboard", platformTag: "glassdoor"},
	{match: "style", sourceType: "style"},
	{match: "tone", sourceType: "style"},
	{match: "template", sourceType: "template"},
}

// KeywordClassifier classifies sources by keyword heuristics on the source
// identifier, falling back to a scan of the opening text. It is the default
// SourceClassifier; new source types are added by extending the rule table,
// never by per-document special cases.
type KeywordClassifier struct {
	// rules is the ordered rule list; first match wins.
	rules []classifierRule
}

// NewKeywordClassifier returns a KeywordClassifier with the default rules.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: defaultRules}
}

// headProbeLen is how much of the source text is scanned when the source ID
// alone does not match any rule. The head of a curated knowledge file
// usually names its subject; scanning the whole text would misclassify
// sources that merely mention a platform in passing.
const headProbeLen = 512

// Classify returns the source type and platform tag for the given source.
// Unmatched sources classify as "general" with no platform tag.
func (c *KeywordClassifier) Classify(sourceID, text string) (string, string) {
	id := strings.ToLower(sourceID)
	for _, r := range c.rules {
		if strings.Contains(id, r.match) {
			return r.sourceType, r.platformTag
		}
	}

	head := strings.ToLower(text)
	if len(head) > headProbeLen {
		head = head[:headProbeLen]
	}
	for _, r := range c.rules {
		if r.platformTag != "" && strings.Contains(head, r.match) {
			return r.sourceType, r.platformTag
		}
	}

	return "general", ""
}
