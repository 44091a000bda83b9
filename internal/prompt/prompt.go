package prompt

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/newsrag/models"
)

// Assembler renders the generation prompt from retrieved passages and the
// trimmed conversation history. Build is pure: identical inputs always
// produce byte-identical text.
type Assembler struct {
	historyTurns int
}

func NewAssembler(historyTurns int) *Assembler {
	if historyTurns <= 0 {
		historyTurns = 6
	}
	return &Assembler{historyTurns: historyTurns}
}

const instructions = `You are a news assistant. Answer the user's question using ONLY the provided news passages. Cite the URL of every passage you use. If the passages do not contain the answer, say so plainly instead of guessing.`

// Build assembles the four fixed sections: instructions, recent history,
// retrieved passages, and the literal user question.
func (a *Assembler) Build(history []models.ChatTurn, passages []models.RetrievedPassage, query string) string {
	var sb strings.Builder

	sb.WriteString(instructions)
	sb.WriteString("\n\n")

	sb.WriteString("Conversation so far:\n")
	trimmed := history
	if len(trimmed) > a.historyTurns {
		trimmed = trimmed[len(trimmed)-a.historyTurns:]
	}
	if len(trimmed) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, turn := range trimmed {
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("News passages:\n")
	if len(passages) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, p := range passages {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, p.Title))
		sb.WriteString(p.Content)
		sb.WriteString("\n")
		sb.WriteString("URL: ")
		sb.WriteString(p.URL)
		sb.WriteString("\n\n")
	}

	sb.WriteString("User question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer only from the passages above and cite their URLs when used.")

	return sb.String()
}
