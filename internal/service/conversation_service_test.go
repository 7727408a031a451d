package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app_errors "ryan-quiz/backend/internal/errors"
	"ryan-quiz/backend/internal/llm"
	mock_llm "ryan-quiz/backend/internal/llm/mocks"
	"ryan-quiz/backend/internal/model"
	"ryan-quiz/backend/internal/quiz"
	"ryan-quiz/backend/internal/repository"
	"ryan-quiz/backend/internal/service"
)

// firstPick always chooses the first fallback template.
type firstPick struct{}

func (firstPick) IntN(int) int { return 0 }

type Mocks struct {
	repo repository.Repository
	llm  *mock_llm.MockProvider
}

func setupConversationService(t *testing.T, opts service.Options) (*service.ConversationService, Mocks) {
	mocks := Mocks{
		repo: repository.NewMemoryRepository(),
		llm:  mock_llm.NewMockProvider(t),
	}
	if opts.Rand == nil {
		opts.Rand = firstPick{}
	}
	return service.NewConversationService(mocks.repo, mocks.llm, opts), mocks
}

func ollamaReply(t *testing.T, text string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"model":   service.DefaultModel,
		"message": map[string]string{"role": "assistant", "content": text},
		"done":    true,
	})
	require.NoError(t, err)
	return body
}

func isTestingRequest(req *llm.ChatRequest) bool {
	return req.Options != nil && req.Options.Temperature == 0.55 && len(req.Messages) == 2
}

func isChatRequest(req *llm.ChatRequest) bool {
	return req.Options != nil && req.Options.Temperature == 0.6
}

// startedSession creates a session and sends the start command.
func startedSession(t *testing.T, svc *service.ConversationService) *model.Session {
	t.Helper()
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	res, err := svc.Submit(ctx, session.ID, "start")
	require.NoError(t, err)
	return res.Session
}

func TestConversationService_CreateSession(t *testing.T) {
	svc, _ := setupConversationService(t, service.Options{})

	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, quiz.WelcomeText, session.Messages[0].Text)
	assert.Equal(t, model.SenderBot, session.Messages[0].Sender)
	assert.Equal(t, model.PhaseIdle, session.State.Phase())

	got, err := svc.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestConversationService_GetAndDeleteUnknown(t *testing.T) {
	svc, _ := setupConversationService(t, service.Options{})
	ctx := context.Background()

	_, err := svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, app_errors.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, "missing"), app_errors.ErrNotFound)
	_, err = svc.Submit(ctx, "missing", "hi")
	assert.ErrorIs(t, err, app_errors.ErrNotFound)
}

func TestConversationService_Submit_BlankText(t *testing.T) {
	svc, _ := setupConversationService(t, service.Options{})
	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.Submit(context.Background(), session.ID, text)
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	}

	got, err := svc.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}

func TestConversationService_Submit_Start(t *testing.T) {
	for _, text := range []string{"start", "Start!", "  BEGIN... ", "begin"} {
		t.Run(text, func(t *testing.T) {
			svc, _ := setupConversationService(t, service.Options{})
			session, err := svc.CreateSession(context.Background())
			require.NoError(t, err)

			// No model call is expected; the mock fails the test if one happens.
			res, err := svc.Submit(context.Background(), session.ID, text)
			require.NoError(t, err)

			first, _ := quiz.At(0)
			require.Len(t, res.Appended, 1)
			assert.Equal(t, model.Message{ID: "q-0", Text: first, Sender: model.SenderBot}, res.Appended[0])
			assert.Equal(t, model.ConversationState{Cursor: 0, InTestingMode: true}, res.Session.State)
			assert.Len(t, res.Session.Messages, 2)
		})
	}
}

func TestConversationService_Submit_ModelReply(t *testing.T) {
	svc, mocks := setupConversationService(t, service.Options{})
	session := startedSession(t, svc)

	mocks.llm.On("Chat", mock.Anything, mock.MatchedBy(func(req *llm.ChatRequest) bool {
		return isTestingRequest(req) &&
			req.Model == service.DefaultModel &&
			req.Messages[0].Role == llm.RoleSystem &&
			req.Messages[0].Content == quiz.TestingSystemPrompt &&
			req.Messages[1].Content == quiz.UserPrompt(0, "Alice")
	})).Return(ollamaReply(t, `Ryan: "hey Alice!! love that name. it's so pretty. tell me more."`), nil).Once()

	res, err := svc.Submit(context.Background(), session.ID, "Alice")
	require.NoError(t, err)

	require.Len(t, res.Appended, 3)
	assert.Equal(t, "Alice", res.Appended[0].Text)
	assert.Equal(t, model.SenderUser, res.Appended[0].Sender)
	assert.Equal(t, "hey Alice!! love that name.", res.Appended[1].Text)
	assert.False(t, res.Appended[1].Loading)
	assert.Equal(t, "q-1", res.Appended[2].ID)

	assert.Equal(t, 1, res.Session.State.Cursor)
	assert.True(t, res.Session.State.InTestingMode)
	// welcome, q-0, answer, reply, q-1
	require.Len(t, res.Session.Messages, 5)
	for _, m := range res.Session.Messages {
		assert.False(t, m.Loading)
	}
}

func TestConversationService_Submit_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		err  error
	}{
		{name: "transport error", err: errors.New("connection refused")},
		{name: "api error", err: &llm.APIError{StatusCode: 500, Body: "model not loaded"}},
		{name: "no reply text", body: []byte(`{"done":true}`)},
		{name: "malformed body", body: []byte(`<html>bad gateway</html>`)},
		{name: "too short", body: ollamaReply(t, "ok")},
		{name: "junk", body: ollamaReply(t, "your verification code is 123456")},
		{name: "only a label", body: ollamaReply(t, "Ryan:")},
		{name: "empty content", body: ollamaReply(t, "")},
		{name: "blank content", body: ollamaReply(t, "  \n ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mocks := setupConversationService(t, service.Options{})
			session := startedSession(t, svc)

			mocks.llm.On("Chat", mock.Anything, mock.MatchedBy(isTestingRequest)).Return(tt.body, tt.err).Once()

			res, err := svc.Submit(context.Background(), session.ID, "Alice")
			require.NoError(t, err)

			require.Len(t, res.Appended, 3)
			reply := res.Appended[1].Text
			assert.Contains(t, quiz.Fallbacks(0, "Alice"), reply)
			assert.Equal(t, quiz.Fallbacks(0, "Alice")[0], reply)
			assert.Equal(t, 1, res.Session.State.Cursor, "the test advances whatever the reply source")
		})
	}
}

func TestConversationService_Submit_FullRun(t *testing.T) {
	svc, mocks := setupConversationService(t, service.Options{})
	ctx := context.Background()
	session := startedSession(t, svc)

	mocks.llm.On("Chat", mock.Anything, mock.MatchedBy(isTestingRequest)).Return(nil, errors.New("offline"))

	var res *service.SubmitResult
	var err error
	for i := 0; i < quiz.Len(); i++ {
		res, err = svc.Submit(ctx, session.ID, "answer")
		require.NoError(t, err)
		if i < quiz.Len()-1 {
			assert.Equal(t, i+1, res.Session.State.Cursor)
		}
	}

	last := res.Appended[len(res.Appended)-1]
	assert.Equal(t, model.Message{ID: model.CompletionID, Text: quiz.CompletionText, Sender: model.SenderBot}, last)
	assert.Equal(t, model.PhaseCompleted, res.Session.State.Phase())
	assert.False(t, res.Session.State.InTestingMode)
	// welcome + every question + an answer and a reply per question + done
	assert.Len(t, res.Session.Messages, 1+3*quiz.Len()+1)

	var questionIDs []string
	for _, m := range res.Session.Messages {
		if m.IsScripted() && m.ID != model.CompletionID {
			questionIDs = append(questionIDs, m.ID)
		}
	}
	assert.Len(t, questionIDs, quiz.Len(), "each question is asked exactly once")

	t.Run("restart after completion", func(t *testing.T) {
		res, err := svc.Submit(ctx, session.ID, "start")
		require.NoError(t, err)
		assert.Equal(t, model.PhaseAsking, res.Session.State.Phase())
		assert.Equal(t, 0, res.Session.State.Cursor)
		assert.True(t, res.Session.State.Completed)
		assert.Equal(t, "q-0", res.Appended[0].ID)
	})
}

func TestConversationService_Submit_Chat(t *testing.T) {
	t.Run("relays the filtered transcript", func(t *testing.T) {
		svc, mocks := setupConversationService(t, service.Options{})
		session, err := svc.CreateSession(context.Background())
		require.NoError(t, err)

		var captured *llm.ChatRequest
		mocks.llm.On("Chat", mock.Anything, mock.MatchedBy(isChatRequest)).
			Run(func(args mock.Arguments) { captured = args.Get(1).(*llm.ChatRequest) }).
			Return(ollamaReply(t, "Assistant: hiii! how are you? I'm good. what's up? anyway."), nil).Once()

		res, err := svc.Submit(context.Background(), session.ID, "hello")
		require.NoError(t, err)

		require.NotNil(t, captured)
		assert.Equal(t, []llm.Message{
			{Role: llm.RoleSystem, Content: quiz.ChatSystemPrompt},
			{Role: llm.RoleUser, Content: "hello"},
		}, captured.Messages)
		assert.Equal(t, 60, captured.Options.NumPredict)

		require.Len(t, res.Appended, 2)
		assert.Equal(t, "hiii! how are you? I'm good.", res.Appended[1].Text)
		assert.Equal(t, model.PhaseIdle, res.Session.State.Phase())
	})

	t.Run("skips scripted messages and caps history", func(t *testing.T) {
		svc, mocks := setupConversationService(t, service.Options{HistoryLimit: 3})
		ctx := context.Background()
		session := startedSession(t, svc)

		// Finish the test so the next messages go to free chat.
		mocks.llm.On("Chat", mock.Anything, mock.MatchedBy(isTestingRequest)).Return(nil, errors.New("offline"))
		for i := 0; i < quiz.Len(); i++ {
			_, err := svc.Submit(ctx, session.ID, "answer")
			require.NoError(t, err)
		}

		var requests []*llm.ChatRequest
		mocks.llm.On("Chat", mock.Anything, mock.MatchedBy(isChatRequest)).
			Run(func(args mock.Arguments) { requests = append(requests, args.Get(1).(*llm.ChatRequest)) }).
			Return(ollamaReply(t, "sure thing"), nil)

		_, err := svc.Submit(ctx, session.ID, "first")
		require.NoError(t, err)
		_, err = svc.Submit(ctx, session.ID, "second")
		require.NoError(t, err)

		require.Len(t, requests, 2)
		last := requests[1].Messages
		require.Len(t, last, 4, "system prompt plus the three most recent turns")
		assert.Equal(t, llm.RoleSystem, last[0].Role)
		assert.Equal(t, []llm.Message{
			{Role: llm.RoleUser, Content: "first"},
			{Role: llm.RoleAssistant, Content: "sure thing"},
			{Role: llm.RoleUser, Content: "second"},
		}, last[1:])

		for _, req := range requests {
			for _, m := range req.Messages[1:] {
				assert.NotEqual(t, quiz.CompletionText, m.Content)
				assert.NotEqual(t, quiz.WelcomeText, m.Content)
			}
		}
	})

	t.Run("errors are shown as text", func(t *testing.T) {
		tests := []struct {
			name string
			body []byte
			err  error
			want string
		}{
			{name: "api error", err: &llm.APIError{StatusCode: 500, Body: "boom"}, want: "Model API error: 500 boom"},
			{name: "transport error", err: errors.New("dial tcp: connection refused"), want: "dial tcp: connection refused"},
			{name: "no reply", body: []byte(`{"done":true}`), want: "Sorry, no reply from model."},
			{name: "empty content", body: ollamaReply(t, ""), want: "Sorry, no reply from model."},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc, mocks := setupConversationService(t, service.Options{})
				session, err := svc.CreateSession(context.Background())
				require.NoError(t, err)

				mocks.llm.On("Chat", mock.Anything, mock.Anything).Return(tt.body, tt.err).Once()

				res, err := svc.Submit(context.Background(), session.ID, "hey")
				require.NoError(t, err)
				assert.Equal(t, tt.want, res.Appended[1].Text)
			})
		}
	})
}

func TestConversationService_Submit_PlaceholderWhileWaiting(t *testing.T) {
	svc, mocks := setupConversationService(t, service.Options{})
	session := startedSession(t, svc)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mocks.llm.On("Chat", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		current, err := mocks.repo.Get(context.Background(), session.ID)
		require.NoError(t, err)
		last := current.Messages[len(current.Messages)-1]
		assert.True(t, last.Loading, "placeholder is stored before the model is called")
		assert.Equal(t, "Alice", current.Messages[len(current.Messages)-2].Text)

		// The caller going away does not abort reply resolution.
		cancel()
		assert.NoError(t, args.Get(0).(context.Context).Err())
	}).Return(ollamaReply(t, "hey Alice!! cute name"), nil).Once()

	res, err := svc.Submit(ctx, session.ID, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "hey Alice!! cute name", res.Appended[1].Text)
}

func TestConversationService_Submit_ConcurrentAnswers(t *testing.T) {
	svc, mocks := setupConversationService(t, service.Options{})
	session := startedSession(t, svc)

	// Both submissions are accepted before either reply resolves.
	var inFlight sync.WaitGroup
	inFlight.Add(2)
	mocks.llm.On("Chat", mock.Anything, mock.MatchedBy(isTestingRequest)).Run(func(mock.Arguments) {
		inFlight.Done()
		inFlight.Wait()
	}).Return(nil, errors.New("offline")).Twice()

	var wg sync.WaitGroup
	for _, answer := range []string{"Alice", "Bob"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), session.ID, answer)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.State.Cursor, "the cursor advances once per question")

	var asked int
	for _, m := range got.Messages {
		if m.ID == "q-1" {
			asked++
		}
		assert.False(t, m.Loading)
	}
	assert.Equal(t, 1, asked)
}

func TestConversationService_Questions(t *testing.T) {
	svc, _ := setupConversationService(t, service.Options{})
	assert.Equal(t, quiz.All(), svc.Questions())
}
