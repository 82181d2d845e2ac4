package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"owlynn-be/internal/constant"
	"owlynn-be/pkg/llm"
	"owlynn-be/pkg/store"
)

// ContextualBuilder assembles the answer prompt from retrieved documents and
// the user question. History travels separately as chat messages.
type ContextualBuilder struct {
	documents []store.Document
	query     string
	maxChars  int
}

// NewContextualBuilder creates a new contextual prompt builder. maxChars caps
// the reference section; zero means no cap.
func NewContextualBuilder(documents []store.Document, query string, maxChars int) *ContextualBuilder {
	return &ContextualBuilder{
		documents: documents,
		query:     query,
		maxChars:  maxChars,
	}
}

func (b *ContextualBuilder) Build() string {
	var prompt strings.Builder

	b.writeReferenceMaterial(&prompt)
	b.writeTask(&prompt)
	b.writeGuidelines(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

func (b *ContextualBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	if len(b.documents) == 0 {
		return
	}

	budget := b.maxChars
	prompt.WriteString("<reference_material>\n")
	for i, doc := range b.documents {
		content := doc.Content
		if b.maxChars > 0 {
			if budget <= 0 {
				break
			}
			content = truncate(content, budget)
			budget -= len(content)
		}
		fmt.Fprintf(prompt, "[%d] %s\n%s\n\n", i+1, doc.Filename, content)
	}
	prompt.WriteString("</reference_material>\n\n")
}

func (b *ContextualBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	if len(b.documents) > 0 {
		prompt.WriteString("Answer the user's question. Use the reference material from their uploaded documents where it is relevant.\n")
	} else {
		prompt.WriteString("Answer the user's question using the conversation so far and your general knowledge.\n")
	}
	prompt.WriteString("</task>\n\n")
}

func (b *ContextualBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Prefer facts from the reference material over general knowledge\n")
	prompt.WriteString("2. Cite documents as [N] when you use them\n")
	prompt.WriteString("3. If the material doesn't contain what's being asked, say so honestly\n")
	prompt.WriteString("4. Remember what the user told you earlier in the conversation\n")
	prompt.WriteString("</guidelines>\n\n")
}

func (b *ContextualBuilder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.query)
	prompt.WriteString("\n</user_question>")
}

// AnswerMessages returns the full message list for the answer call: system
// prompt, prior turns, then the built prompt as the final user turn.
func AnswerMessages(history []store.Message, builtPrompt string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: constant.SystemPrompt})
	msgs = append(msgs, ToLLMMessages(history)...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: builtPrompt})
	return msgs
}

// StandaloneQuestion renders the condense-question prompt.
func StandaloneQuestion(history []store.Message, question string) string {
	var prompt strings.Builder
	prompt.WriteString(constant.StandaloneQuestionPrompt)
	prompt.WriteString("\n\n<chat_history>\n")
	for _, m := range history {
		role := "User"
		if m.Role == store.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&prompt, "%s: %s\n", role, m.Content)
	}
	prompt.WriteString("</chat_history>\n\n")
	prompt.WriteString("Follow-up question: ")
	prompt.WriteString(question)
	prompt.WriteString("\nStandalone question:")
	return prompt.String()
}

func ToLLMMessages(history []store.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == store.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// CleanOutput drops reasoning blocks some local models emit and trims
// surrounding whitespace.
func CleanOutput(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
