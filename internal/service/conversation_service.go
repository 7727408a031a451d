package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	app_errors "ryan-quiz/backend/internal/errors"
	"ryan-quiz/backend/internal/llm"
	"ryan-quiz/backend/internal/model"
	"ryan-quiz/backend/internal/quiz"
	"ryan-quiz/backend/internal/reply"
	"ryan-quiz/backend/internal/repository"
)

const (
	// DefaultModel is the fine-tuned persona model served by Ollama.
	DefaultModel = "ryan-mistral-gpu"
	// DefaultHistoryLimit is how many past messages free chat sends along.
	DefaultHistoryLimit = 20
	// DefaultCallTimeout bounds a single model call.
	DefaultCallTimeout = 60 * time.Second

	noReplyText      = "Sorry, no reply from model."
	contactErrorText = "Error contacting model."
)

// Sampling parameters per mode. Testing mode is a bit colder so the model
// sticks to the instruction.
var (
	testingOptions = llm.Options{Temperature: 0.55, TopP: 0.75, NumPredict: 60, RepeatPenalty: 1.25, TopK: 40}
	chatOptions    = llm.Options{Temperature: 0.6, TopP: 0.8, NumPredict: 60, RepeatPenalty: 1.2, TopK: 50}
)

var (
	startCommand = regexp.MustCompile(`(?i)^(?:start|begin)[!.]*$`)
	// scriptedPhrase keeps the welcome text and other scripted prompts out of
	// the free-chat transcript.
	scriptedPhrase = regexp.MustCompile(`(?i)personality test|say.*start`)
)

// SubmitRequest is the body of a message submission.
type SubmitRequest struct {
	Text string `json:"text" validate:"required,max=2000" example:"start"`
}

// SubmitResult carries the session after a submission and the messages the
// submission appended, in order.
type SubmitResult struct {
	Session  *model.Session  `json:"session"`
	Appended []model.Message `json:"appended"`
}

// Options tunes a ConversationService. Zero values select the defaults.
type Options struct {
	ModelName    string
	CallTimeout  time.Duration
	HistoryLimit int
	Rand         quiz.Rand
}

// ConversationService drives the personality test: it walks the question
// sequence, relays answers to the model and falls back to canned replies.
type ConversationService struct {
	repo         repository.Repository
	llm          llm.Provider
	modelName    string
	callTimeout  time.Duration
	historyLimit int
	rng          quiz.Rand
	newID        func() string
	now          func() time.Time
}

func NewConversationService(repo repository.Repository, provider llm.Provider, opts Options) *ConversationService {
	s := &ConversationService{
		repo:         repo,
		llm:          provider,
		modelName:    opts.ModelName,
		callTimeout:  opts.CallTimeout,
		historyLimit: opts.HistoryLimit,
		rng:          opts.Rand,
		newID:        uuid.NewString,
		now:          time.Now,
	}
	if s.modelName == "" {
		s.modelName = DefaultModel
	}
	if s.callTimeout <= 0 {
		s.callTimeout = DefaultCallTimeout
	}
	if s.historyLimit <= 0 {
		s.historyLimit = DefaultHistoryLimit
	}
	if s.rng == nil {
		s.rng = quiz.DefaultRand
	}
	return s
}

// Questions returns the question bank in order.
func (s *ConversationService) Questions() []string {
	return quiz.All()
}

// CreateSession starts a new idle session holding only the welcome message.
func (s *ConversationService) CreateSession(ctx context.Context) (*model.Session, error) {
	now := s.now().UTC()
	session := &model.Session{
		ID:        s.newID(),
		Messages:  []model.Message{{Text: quiz.WelcomeText, Sender: model.SenderBot}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: could not create session: %w", app_errors.ErrInternal, err)
	}
	slog.Info("Session created", "session_id", session.ID)
	return session, nil
}

func (s *ConversationService) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, translateRepoError(err, sessionID)
	}
	return session, nil
}

func (s *ConversationService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return translateRepoError(err, sessionID)
	}
	slog.Info("Session deleted", "session_id", sessionID)
	return nil
}

// turn is what a submission captured from the session when it was accepted.
type turn struct {
	started       bool
	testing       bool
	index         int
	answer        string
	placeholderID string
	transcript    []llm.Message
	appended      []model.Message
}

// Submit handles one user message. A start command enters the question flow.
// Otherwise the user message and a loading placeholder are stored together,
// exactly one model call is made, and the placeholder is resolved with the
// reply. In the question flow the cursor then advances whatever the reply's
// source was.
func (s *ConversationService) Submit(ctx context.Context, sessionID, text string) (*SubmitResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message text is empty", app_errors.ErrValidation)
	}

	var t turn
	session, err := s.repo.Update(ctx, sessionID, func(sess *model.Session) error {
		t = s.beginTurn(sess, text)
		return nil
	})
	if err != nil {
		return nil, translateRepoError(err, sessionID)
	}
	if t.started {
		slog.Info("Personality test started", "session_id", sessionID)
		return &SubmitResult{Session: session, Appended: t.appended}, nil
	}

	// The reply is produced even if the client goes away, so the placeholder
	// never stays loading.
	detached := context.WithoutCancel(ctx)
	callCtx, cancel := context.WithTimeout(detached, s.callTimeout)
	var replyText string
	if t.testing {
		replyText = s.resolveQuizReply(callCtx, sessionID, t.index, t.answer)
	} else {
		replyText = s.resolveChatReply(callCtx, sessionID, t.transcript)
	}
	cancel()

	session, err = s.repo.Update(detached, sessionID, func(sess *model.Session) error {
		t.appended = append(t.appended[:1], s.finishTurn(sess, t, replyText)...)
		return nil
	})
	if err != nil {
		return nil, translateRepoError(err, sessionID)
	}
	return &SubmitResult{Session: session, Appended: t.appended}, nil
}

func (s *ConversationService) beginTurn(sess *model.Session, text string) turn {
	if !sess.State.InTestingMode && startCommand.MatchString(strings.TrimSpace(text)) {
		question, _ := quiz.At(0)
		msg := model.Message{ID: questionID(0), Text: question, Sender: model.SenderBot}
		sess.State.InTestingMode = true
		sess.State.Cursor = 0
		sess.Messages = append(sess.Messages, msg)
		return turn{started: true, appended: []model.Message{msg}}
	}

	user := model.Message{ID: s.newID(), Text: text, Sender: model.SenderUser}
	placeholder := model.Message{ID: "bot-" + s.newID(), Sender: model.SenderBot, Loading: true}
	sess.Messages = append(sess.Messages, user, placeholder)

	t := turn{
		testing:       sess.State.InTestingMode,
		index:         sess.State.Cursor,
		answer:        text,
		placeholderID: placeholder.ID,
		appended:      []model.Message{user},
	}
	if !t.testing {
		t.transcript = buildTranscript(sess.Messages, s.historyLimit)
	}
	return t
}

// finishTurn resolves the placeholder and, in the question flow, moves on to
// the next question or completes the test. It returns the messages it added
// or resolved.
func (s *ConversationService) finishTurn(sess *model.Session, t turn, replyText string) []model.Message {
	botReply := model.Message{ID: t.placeholderID, Text: replyText, Sender: model.SenderBot}
	if !sess.ResolveMessage(t.placeholderID, replyText) {
		sess.Messages = append(sess.Messages, botReply)
	}
	out := []model.Message{botReply}
	if !t.testing {
		return out
	}

	// A concurrent submission for the same question may already have advanced.
	if !sess.State.InTestingMode || sess.State.Cursor != t.index {
		return out
	}
	if quiz.IsLast(t.index) {
		sess.State.InTestingMode = false
		sess.State.Completed = true
		done := model.Message{ID: model.CompletionID, Text: quiz.CompletionText, Sender: model.SenderBot}
		sess.Messages = append(sess.Messages, done)
		slog.Info("Personality test completed", "session_id", sess.ID)
		return append(out, done)
	}
	next := t.index + 1
	question, _ := quiz.At(next)
	sess.State.Cursor = next
	msg := model.Message{ID: questionID(next), Text: question, Sender: model.SenderBot}
	sess.Messages = append(sess.Messages, msg)
	return append(out, msg)
}

// resolveQuizReply asks the model for a reply to question idx and returns it
// if usable, otherwise a canned fallback. It never fails.
func (s *ConversationService) resolveQuizReply(ctx context.Context, sessionID string, idx int, answer string) string {
	fallback := quiz.Fallback(s.rng, idx, answer)
	req := &llm.ChatRequest{
		Model: s.modelName,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: quiz.TestingSystemPrompt},
			{Role: llm.RoleUser, Content: quiz.UserPrompt(idx, answer)},
		},
		Options: &testingOptions,
	}
	log := slog.With("session_id", sessionID, "question", idx)

	body, err := s.llm.Chat(ctx, req)
	if err != nil {
		log.Warn("Model call failed, using fallback", "error", err)
		return fallback
	}
	raw, ok := reply.Extract(body)
	if !ok {
		log.Warn("No reply text in model response, using fallback", "body", truncate(string(body), 200))
		return fallback
	}
	candidate := reply.Sanitize(raw, reply.ModeTesting)
	if ok, reason := reply.Acceptable(candidate); !ok {
		log.Warn("Model reply rejected, using fallback", "reason", reason, "reply", candidate)
		return fallback
	}
	log.Debug("Using model reply", "shape", reply.MatchedShape(body), "reply", candidate)
	return candidate
}

// resolveChatReply relays the transcript to the model. Failures are shown to
// the user as text; there are no canned replies in free chat.
func (s *ConversationService) resolveChatReply(ctx context.Context, sessionID string, transcript []llm.Message) string {
	messages := make([]llm.Message, 0, len(transcript)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: quiz.ChatSystemPrompt})
	messages = append(messages, transcript...)
	req := &llm.ChatRequest{Model: s.modelName, Messages: messages, Options: &chatOptions}

	body, err := s.llm.Chat(ctx, req)
	if err != nil {
		slog.Warn("Model call failed in free chat", "session_id", sessionID, "error", err)
		if msg := err.Error(); msg != "" {
			return msg
		}
		return contactErrorText
	}
	raw, ok := reply.Extract(body)
	if !ok {
		return noReplyText
	}
	if out := reply.Sanitize(raw, reply.ModeChat); out != "" {
		return out
	}
	return noReplyText
}

// buildTranscript maps the visible, unscripted history onto model turns,
// keeping only the most recent limit entries.
func buildTranscript(messages []model.Message, limit int) []llm.Message {
	kept := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if m.Text == "" || m.Loading || m.IsScripted() || scriptedPhrase.MatchString(m.Text) {
			continue
		}
		kept = append(kept, m)
	}
	if limit > 0 && len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	out := make([]llm.Message, len(kept))
	for i, m := range kept {
		role := llm.RoleAssistant
		if m.Sender == model.SenderUser {
			role = llm.RoleUser
		}
		out[i] = llm.Message{Role: role, Content: m.Text}
	}
	return out
}

func questionID(idx int) string {
	return fmt.Sprintf("%s%d", model.QuestionIDPrefix, idx)
}

func translateRepoError(err error, sessionID string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: session %s", app_errors.ErrNotFound, sessionID)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: session %s", app_errors.ErrConflict, sessionID)
	default:
		return fmt.Errorf("%w: session %s: %w", app_errors.ErrInternal, sessionID, err)
	}
}

// truncate shortens a string to a specified number of runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
