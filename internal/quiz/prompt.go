package quiz

import (
	"fmt"
	"strings"
)

const (
	// TestingSystemPrompt sets the persona while the question flow is running.
	TestingSystemPrompt = "You are Ryan, a fun guy texting a friend during a personality test. You MUST use at least 2-3 emojis in every reply. Keep replies to 1-2 short casual sentences. Text like a gen-z person. Never use brackets, labels, or tags."

	// ChatSystemPrompt sets the persona for free chat.
	ChatSystemPrompt = "You are Ryan, a chill guy texting casually with a friend. Keep replies short and natural. Use slang and emojis sometimes."
)

// UserPrompt builds the user turn for question idx: the question, the answer
// and the instruction the model must follow.
func UserPrompt(idx int, rawAnswer string) string {
	question, _ := At(idx)
	lines := []string{
		fmt.Sprintf("Question: \"%s\"", question),
		fmt.Sprintf("Her answer: \"%s\"", rawAnswer),
		"",
		"IMPORTANT - You MUST follow this instruction exactly:",
		Instruction(idx, rawAnswer),
		"",
		"Use 2-3 emojis. Keep it to 1-2 sentences. If her answer is vague, tease her and pick for her.",
	}
	return strings.Join(lines, "\n")
}
