// Package normalize implements the deterministic transform chain applied
// to raw model output before a brief is persisted. Every transform is a
// fixed point on already-clean text, so re-running the chain (as the
// language gate does after translation) never changes a clean result.
package normalize

import (
	"regexp"
	"strings"
)

const (
	markdownOpenTag   = "```markdown"
	markdownCloseTag  = "```"
	reasoningCloseTag = "</think>"
)

// rejectionTags are the equivalent in-band markers the model may emit to
// signal that an edit request should not be applied.
var rejectionTags = []string{"<REJECTED />", "<rejected />", "<rechazado />"}

var (
	// Pure rhetorical-question headings (## ¿...? etc.) and paragraphs
	// that consist only of a Spanish interrogative, optionally bolded.
	questionHeaderPattern    = regexp.MustCompile(`(?m)^(#{2,6})\s*(\*\*|__)?\s*¿[^?]+\?\s*(\*\*|__)?\s*$`)
	questionParagraphPattern = regexp.MustCompile(`(?m)^(\*\*|__)?\s*¿[^?]+\?\s*(\*\*|__)?\s*$`)
	horizontalRulePattern    = regexp.MustCompile(`(?m)^\s*(-{3,}|\*{3,}|_{3,})\s*$`)
)

// UnwrapMarkdown extracts the interior of a fenced markdown block. Text
// without a complete ```markdown ... ``` wrapper passes through untouched.
func UnwrapMarkdown(text string) string {
	start := strings.Index(text, markdownOpenTag)
	if start == -1 {
		return text
	}
	start += len(markdownOpenTag)
	end := strings.Index(text[start:], markdownCloseTag)
	if end == -1 {
		return text
	}
	return strings.TrimSpace(text[start : start+end])
}

// StripReasoning discards everything up to and including the closing
// reasoning delimiter, keeping only the remainder.
func StripReasoning(text string) string {
	end := strings.Index(text, reasoningCloseTag)
	if end == -1 {
		return text
	}
	return strings.TrimLeft(text[end+len(reasoningCloseTag):], " \t\n\r")
}

// StripRejection removes any rejection sentinels and reports whether one
// was present.
func StripRejection(text string) (string, bool) {
	found := false
	for _, tag := range rejectionTags {
		if strings.Contains(text, tag) {
			found = true
			text = strings.ReplaceAll(text, tag, "")
		}
	}
	return text, found
}

// RemoveQuestionLines drops lines that are pure rhetorical-question
// headings or paragraphs and pure horizontal-rule lines.
func RemoveQuestionLines(text string) string {
	text = questionHeaderPattern.ReplaceAllString(text, "")
	text = questionParagraphPattern.ReplaceAllString(text, "")
	text = horizontalRulePattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Clean applies the full ordered chain to free-text generation output:
// markdown unwrap, reasoning strip, rejection-sentinel detection, then
// structural cleanup.
func Clean(text string) (string, bool) {
	text = UnwrapMarkdown(text)
	text = StripReasoning(text)
	text, rejected := StripRejection(text)
	text = RemoveQuestionLines(text)
	return text, rejected
}

// CleanSentence applies the subset used for the edit flow's structured
// sentence field: markdown unwrap, reasoning strip and structural cleanup.
// Rejection is carried by the structured verdict, not by sentinels.
func CleanSentence(text string) string {
	text = UnwrapMarkdown(text)
	text = StripReasoning(text)
	return RemoveQuestionLines(text)
}
