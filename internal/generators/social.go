package generators

import (
	"regexp"
	"strings"
)

var (
	howAreYou     = regexp.MustCompile(`\bhow\s+(?:are|r)\s+(?:you|u|ya)\b|\bhow'?s\s+it\s+going\b|\bhow\s+have\s+you\s+been\b`)
	whatsUp       = regexp.MustCompile(`\b(?:what'?s\s+up|sup|wassup)\b`)
	goodMorning   = regexp.MustCompile(`\bgood\s+morning\b`)
	goodAfternoon = regexp.MustCompile(`\bgood\s+afternoon\b`)
	goodEvening   = regexp.MustCompile(`\bgood\s+evening\b`)
)

const helpMenu = `Here are a few things I can help with:
- Answering questions and explaining topics
- Writing, editing and summarizing text
- Math calculations and code fixes
- Advice on health, finance, career, travel and more`

// Greeting answers hellos, with a variant for "how are you" and time-of-day greetings.
func Greeting(_, lower string) string {
	switch {
	case howAreYou.MatchString(lower):
		return "I'm doing great, thanks for asking! How are you doing today?\n\nIs there anything I can help you with?"
	case whatsUp.MatchString(lower):
		return "Not much, just here and ready to help! What's on your mind?"
	case goodMorning.MatchString(lower):
		return "Good morning! I hope your day is off to a great start.\n\n" + helpMenu
	case goodAfternoon.MatchString(lower):
		return "Good afternoon! I hope your day is going well.\n\n" + helpMenu
	case goodEvening.MatchString(lower):
		return "Good evening! I hope you had a good day.\n\n" + helpMenu
	}
	return "Hello! It's great to hear from you. How can I help you today?\n\n" + helpMenu
}

// Gratitude acknowledges thanks.
func Gratitude(_, lower string) string {
	if strings.Contains(lower, "so much") || strings.Contains(lower, "really") || strings.Contains(lower, "appreciate") {
		return "You're very welcome! I'm really glad I could help.\n\nIf anything else comes up, just ask."
	}
	return "You're welcome! Happy to help.\n\nIs there anything else you'd like to know?"
}

// Farewell closes the conversation.
func Farewell(_, lower string) string {
	if strings.Contains(lower, "night") {
		return "Good night! Sleep well, and feel free to come back anytime."
	}
	return "Goodbye! It was nice chatting with you. Come back anytime you need a hand."
}

// Identity describes the assistant.
func Identity(_, lower string) string {
	var b strings.Builder
	b.WriteString("## About Me\n\n")
	switch {
	case strings.Contains(lower, "name"):
		b.WriteString("I'm your AI assistant. You can just call me Assistant.")
	case strings.Contains(lower, "human") || strings.Contains(lower, "real person") || strings.Contains(lower, "robot") || strings.Contains(lower, "bot"):
		b.WriteString("I'm an AI assistant, not a human. I generate answers from language models and, when those are unavailable, from a built-in library of topics.")
	default:
		b.WriteString("I'm an AI assistant here to help you think, write and learn.")
	}
	b.WriteString("\n\n")
	b.WriteString(helpMenu)
	b.WriteString("\n\nWhat would you like to start with?")
	return b.String()
}
