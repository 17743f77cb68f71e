package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/docflow/internal/extract"
)

// BuildAnalyzePrompt asks for a summary of extracted PDF text.
func BuildAnalyzePrompt(text string) string {
	return "Please analyze the following text from a PDF document and provide a comprehensive summary: " + text
}

// BuildQuestionsPrompt asks for questions a reader could ask about context.
func BuildQuestionsPrompt(context string) string {
	return "Based on the following context, generate relevant questions that could be asked: " + context
}

// BuildDocumentSystemPrompt grounds a chat in a document. content is sanitized
// and summarized to extract.SummaryLength before it is embedded.
func BuildDocumentSystemPrompt(title, content string) string {
	summary := extract.Summarize(extract.Sanitize(content), extract.SummaryLength)
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}

	rules := []string{
		"Provide accurate, helpful responses based on the available content",
		"If content is truncated, focus on the visible portions while acknowledging limitations",
		"Keep responses clear and concise",
		"Use markdown formatting for better readability",
		"If you need specific sections not shown, mention this in your response",
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing the document %q. Here's the extracted content:\n\n", title)
	b.WriteString(summary)
	b.WriteString("\n\nInstructions:")
	for i, r := range rules {
		fmt.Fprintf(&b, "\n%d. %s", i+1, r)
	}
	return b.String()
}
