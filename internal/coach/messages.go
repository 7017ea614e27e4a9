package coach

import (
	"fmt"
	"strings"

	"github.com/bridgetext/coach/internal/domain"
)

// Replies use exactly two markup primitives that the frontend renders as
// rich text: Emphasis around bold spans and LineBreak between lines.
const (
	Emphasis  = "**"
	LineBreak = "\n"
)

const crisisMessage = "I'm concerned about what you've shared. If you're in immediate danger or witnessing illegal activity, please contact:\n\n" +
	"**Emergency Services: 911**\n" +
	"**National Suicide Prevention Lifeline: 988**\n" +
	"**Workplace Violence Hotline: 1-800-799-7233**\n\n" +
	"I'm designed to help with workplace communication challenges, not crisis or safety situations. Please reach out to professionals who can provide proper support."

const offTopicMessage = "I'm specifically designed for workplace communication challenges. " +
	"For health concerns, please consult a medical professional. " +
	"Can we focus on a work-related communication or teamwork challenge instead?"

const limitMessage = "You've reached the free message limit (10 messages). " +
	"Upgrade to **Premium** for unlimited conversations!"

const apologyMessage = "Sorry, I'm having trouble generating a response right now. Please try again."

const greetingMessage = "Hey! I'm your workplace coach. Before we get started, how would you like me to talk with you?"

func toneConfirmation(tone domain.Tone) string {
	return fmt.Sprintf("Got it, I'll reply in a **%s** tone. Which area would you like to work on?", tone)
}

func topicAcknowledgement(topic string) string {
	return fmt.Sprintf("Let's talk about **%s**. What's going on?", strings.ToLower(topic))
}
