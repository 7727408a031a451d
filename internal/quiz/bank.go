// Package quiz holds the scripted side of the personality test: the question
// bank, the per-question instructions sent to the model and the canned replies
// used when the model's answer can't be shown.
package quiz

const (
	// WelcomeText opens every new session.
	WelcomeText = "Hello! Welcome to the personality test. Please answer the following question to get started! Say 'start' to begin."

	// CompletionText is appended once the last question has been answered.
	CompletionText = "That's all the questions! The personality test is complete. Tap 'See Results' below 🎉"
)

var questions = [...]string{
	"What's your name?",
	"How do you like to start your day? Do you go running, make breakfast, doomscroll in bed...?",
	"What do you fear more, being late or tall heights?",
	"What's your favorite color?",
	"Do you have a favorite animal? Any pets? What are their names?",
	"If you are given the choice between sushi, tacos, pizza, or a burger for your last meal, which would you pick?",
	"If you were a pokemon type which would you be?",
	"In what order do you put on your toothpaste? Water then toothpaste, or toothpaste then water?",
	"Gay son or thot daughter?",
	"Which Asian country is your favorite and why is it China?",
	"Who is more attractive, a man who can explain the difference between a catapult and a trebuchet, or a man who can't?",
}

// Len is the number of questions in the bank.
func Len() int { return len(questions) }

// At returns the question at position i.
func At(i int) (string, bool) {
	if i < 0 || i >= len(questions) {
		return "", false
	}
	return questions[i], true
}

// IsLast reports whether i is the final question index (or beyond it).
func IsLast(i int) bool { return i >= len(questions)-1 }

// All returns a copy of the questions in order.
func All() []string {
	out := make([]string, len(questions))
	copy(out, questions[:])
	return out
}
