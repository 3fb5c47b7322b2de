package scorer

import (
	"fmt"
	"strings"
)

// relevanceTarget is the completion token whose log-likelihood is read back
// as the relevance score.
const relevanceTarget = "true"

// TruncateDocument truncates text to at most maxChars characters, keeping the
// prefix and dropping the suffix. Truncation happens on rune boundaries so a
// multi-byte character is never split. maxChars <= 0 disables truncation.
func TruncateDocument(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

// buildPairPrompt assembles the fixed relevance prompt for one document.
// The trailing target token is appended so the model endpoint can echo its
// log-likelihood back.
func buildPairPrompt(query, document string) string {
	var sb strings.Builder
	sb.WriteString("Judge whether the document answers the query.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n", query)
	fmt.Fprintf(&sb, "Document: %s\n\n", document)
	sb.WriteString("Relevant (true/false): ")
	sb.WriteString(relevanceTarget)
	return sb.String()
}

// buildBatchPrompt assembles a single prompt covering every document in the
// batch. One model invocation over this prompt yields one aggregate judgment
// for the whole group.
func buildBatchPrompt(query string, documents []string) string {
	var sb strings.Builder
	sb.WriteString("Judge whether the documents answer the query.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\n", query)
	for i, doc := range documents {
		fmt.Fprintf(&sb, "Document %d: %s\n", i+1, doc)
	}
	sb.WriteString("\nRelevant (true/false): ")
	sb.WriteString(relevanceTarget)
	return sb.String()
}
