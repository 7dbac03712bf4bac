package answer

import "strings"

const instructionPrompt = `You are a medical-document summarization assistant. Use the excerpts below to answer the user's question, but always

- Provide your response as concise bullet points (each starting with "- ")
- Focus on the most important findings or instructions
- If the information isn't in the text, reply "I don't know."`

// BuildPrompt assembles the retrieved chunks and the question into the fixed
// instruction template.
func BuildPrompt(contextChunks []string, question string) string {
	var sb strings.Builder
	sb.WriteString(instructionPrompt)
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(strings.Join(contextChunks, "\n\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:\n")
	return sb.String()
}

// ParseBullets splits the model's raw response into one string per non-empty
// line. Lines are returned verbatim; a line without a bullet marker is kept
// as-is.
func ParseBullets(raw string) []string {
	var bullets []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		bullets = append(bullets, line)
	}
	return bullets
}
