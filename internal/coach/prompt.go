package coach

import (
	"fmt"
	"strings"

	"github.com/bridgetext/coach/internal/domain"
)

// Prompt payload bounds. History is truncated oldest-first.
const (
	maxHistoryPairs = 4
	maxSnippets     = 3
)

const professionalToneDirective = "Use a PROFESSIONAL tone: measured, empathetic, but formal like a workplace mentor or HR coach. " +
	"Use complete sentences with proper grammar. Be empathetic but maintain professional distance. Avoid slang."

const casualToneDirective = "Use a CASUAL tone: relaxed and conversational, like texting a smart friend. " +
	"Use contractions, keep it short and natural, and be supportive but chill. Sound like you're texting, not writing an essay."

// BuildPrompt assembles the generation payload from session state, retrieved
// snippets, and the current message. Deterministic given its inputs. Returns
// an error if tone is unset, since reaching free dialogue without a tone is a
// state-machine invariant violation.
func BuildPrompt(tone domain.Tone, fw Framework, history []domain.Exchange, snippets []string, input string) (Prompt, error) {
	if tone == "" {
		return Prompt{}, fmt.Errorf("prompt requires a tone, none set")
	}

	toneDirective := professionalToneDirective
	if tone == domain.ToneCasual {
		toneDirective = casualToneDirective
	}

	if len(history) > maxHistoryPairs {
		history = history[len(history)-maxHistoryPairs:]
	}
	if len(snippets) > maxSnippets {
		snippets = snippets[:maxSnippets]
	}

	var b strings.Builder
	b.WriteString("You are a workplace coach guiding young professionals through workplace challenges. ")
	b.WriteString("Your goal is not to solve the user's problem, but to help them gain perspective and self-awareness. ")
	b.WriteString("Always emphasize what is within their personal control. ")
	b.WriteString("Stay strictly within the workplace environment; if the user goes off topic, steer the conversation back on track, ")
	b.WriteString("and if they don't agree, politely decline to help outside workplace topics.\n\n")

	b.WriteString("Tone requirement: ")
	b.WriteString(toneDirective)
	b.WriteString("\n\n")

	b.WriteString(frameworkSteps(fw))
	b.WriteString("\n\n")

	b.WriteString("Formatting: reply in 2-4 short sentences. The only markup available is **bold** for emphasis and plain line breaks. ")
	b.WriteString("Do not use lists, headings, or any other markup.\n")

	if len(snippets) > 0 {
		b.WriteString("\nReference coaching scenarios:\n")
		for _, snippet := range snippets {
			b.WriteString(snippet)
			b.WriteString("\n\n")
		}
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, ex := range history {
			fmt.Fprintf(&b, "User: %s\nCoach: %s\n", ex.User, ex.AI)
		}
	}

	return Prompt{System: b.String(), User: input}, nil
}
