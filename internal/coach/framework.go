package coach

import "strings"

// Framework is one of the two fixed four-step coaching templates. The choice
// is a prompt-only concern: it never influences control flow and is not
// user-visible state.
type Framework string

const (
	// FrameworkSTEP (Spot/Think/Engage/Perform) targets adaptability and
	// flexibility challenges.
	FrameworkSTEP Framework = "STEP"
	// Framework4Rs (Recognize/Regulate/Respect/Reflect) targets emotional
	// intelligence and conflict challenges.
	Framework4Rs Framework = "4Rs"
)

var (
	adaptabilityKeywords = []string{
		"change", "changing", "new ", "deadline", "workload", "priorit",
		"adapt", "switch", "shift", "reorg", "transition", "learn",
		"process", "tool", "task",
	}
	emotionKeywords = []string{
		"feel", "felt", "angry", "upset", "frustrat", "annoy", "conflict",
		"argu", "relationship", "emotion", "stress", "anxious", "ignor",
		"disrespect", "tension", "resent",
	}
)

// SelectFramework picks a framework for one message with a deterministic
// keyword heuristic: emotion/conflict language selects 4Rs, otherwise STEP.
func SelectFramework(message string) Framework {
	normalized := strings.ToLower(message)

	adapt := countHits(normalized, adaptabilityKeywords)
	emotion := countHits(normalized, emotionKeywords)

	if emotion > adapt {
		return Framework4Rs
	}
	return FrameworkSTEP
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}

func frameworkSteps(fw Framework) string {
	if fw == Framework4Rs {
		return "Apply the 4Rs flow:\n" +
			"- Recognize: guide the user to notice emotions, their own and others'.\n" +
			"- Regulate: explore ways they could manage their response.\n" +
			"- Respect: help them consider how to acknowledge others' perspectives respectfully.\n" +
			"- Reflect: support them in drawing a takeaway for next time."
	}
	return "Apply the STEP flow:\n" +
		"- Spot: help the user identify the specific adaptability challenge.\n" +
		"- Think: encourage perspective-shifting.\n" +
		"- Engage: suggest one small, doable action.\n" +
		"- Perform: reflect on what worked and what didn't."
}
