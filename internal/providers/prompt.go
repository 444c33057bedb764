package providers

import "strings"

const QASystemPrompt = "You are a helpful assistant answering questions about a single uploaded document. " +
	"Answer only from the provided context. If the context does not contain the answer, say that you do not know."

const contextRule = "---------------------"

// RenderQAPrompt builds the user message for a retrieval-augmented question.
func RenderQAPrompt(question string, passages []string) string {
	var b strings.Builder
	b.WriteString("Context information is below.\n")
	b.WriteString(contextRule + "\n")
	b.WriteString(strings.Join(passages, "\n\n"))
	b.WriteString("\n" + contextRule + "\n")
	b.WriteString("Given the context information and not prior knowledge, answer the query.\n")
	b.WriteString("Query: " + question + "\n")
	b.WriteString("Answer: ")
	return b.String()
}
