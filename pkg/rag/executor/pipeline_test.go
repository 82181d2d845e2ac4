package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"owlynn-be/internal/constant"
	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/pkg/llm"
	"owlynn-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	generateOut string
	generateErr error
	chatOut     string
	chatErr     error

	generateCalls []string
	chatCalls     [][]llm.Message
}

func (f *fakeLLM) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	f.chatCalls = append(f.chatCalls, history)
	return f.chatOut, f.chatErr
}

func (f *fakeLLM) Generate(_ context.Context, p string, _ ...llm.Option) (string, error) {
	f.generateCalls = append(f.generateCalls, p)
	return f.generateOut, f.generateErr
}

type fakeMemory struct {
	convs       map[string]*store.Conversation
	docs        []store.Document
	loadErrs    []error
	storeErr    error
	loadCalls   int
	searchQuery string
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{convs: map[string]*store.Conversation{}}
}

func (f *fakeMemory) GetConversation(_ context.Context, sessionID string) (*store.Conversation, error) {
	f.loadCalls++
	if len(f.loadErrs) > 0 {
		err := f.loadErrs[0]
		f.loadErrs = f.loadErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.convs[sessionID], nil
}

func (f *fakeMemory) SearchDocuments(_ context.Context, query string, _ int) ([]store.Document, error) {
	f.searchQuery = query
	return f.docs, nil
}

func (f *fakeMemory) StoreConversation(_ context.Context, sessionID string, messages []store.Message, metadata store.Metadata) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.convs[sessionID] = &store.Conversation{Messages: messages, Metadata: metadata}
	return nil
}

func newTestExecutor(l *fakeLLM, m *fakeMemory) *PipelineExecutor {
	return NewPipelineExecutor(l, m, Config{
		LLMTimeout:   time.Second,
		StoreTimeout: time.Second,
		ReadRetries:  2,
	}, nil)
}

func TestExecute_NewSessionSkipsRewrite(t *testing.T) {
	l := &fakeLLM{chatOut: "Hi there!"}
	m := newFakeMemory()
	p := newTestExecutor(l, m)
	p.newID = func() string { return "generated-id" }

	res, err := p.Execute(context.Background(), TurnRequest{Text: "Hello"})
	require.NoError(t, err)

	assert.Equal(t, "generated-id", res.SessionID)
	assert.True(t, res.SessionCreated)
	assert.Equal(t, "Hi there!", res.Reply)
	assert.Empty(t, l.generateCalls)
	assert.Equal(t, "Hello", m.searchQuery)
	require.Len(t, l.chatCalls, 1)

	stored := m.convs["generated-id"]
	require.NotNil(t, stored)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, store.RoleUser, stored.Messages[0].Role)
	assert.Equal(t, "Hello", stored.Messages[0].Content)
	assert.Equal(t, store.RoleAssistant, stored.Messages[1].Role)
	assert.Equal(t, "Hi there!", stored.Messages[1].Content)
}

func TestExecute_HistoryTriggersRewrite(t *testing.T) {
	l := &fakeLLM{generateOut: "What is Ada's favourite colour?", chatOut: "Blue."}
	m := newFakeMemory()
	m.convs["s1"] = &store.Conversation{Messages: []store.Message{
		store.NewMessage(store.RoleUser, "Ada likes blue"),
		store.NewMessage(store.RoleAssistant, "Noted."),
	}}
	p := newTestExecutor(l, m)

	res, err := p.Execute(context.Background(), TurnRequest{SessionID: "s1", Text: "What does she like?"})
	require.NoError(t, err)

	require.Len(t, l.generateCalls, 1)
	assert.Contains(t, l.generateCalls[0], "Ada likes blue")
	assert.Equal(t, "What is Ada's favourite colour?", m.searchQuery)
	assert.Equal(t, "What is Ada's favourite colour?", res.StandaloneQuestion)
	assert.False(t, res.SessionCreated)

	// system + two prior turns + prompt
	require.Len(t, l.chatCalls[0], 4)

	stored := m.convs["s1"].Messages
	require.Len(t, stored, 4)
	assert.Equal(t, "Ada likes blue", stored[0].Content)
	assert.Equal(t, "What does she like?", stored[2].Content)
	assert.Equal(t, "Blue.", stored[3].Content)
}

func TestExecute_RewriteFailureUsesRawQuestion(t *testing.T) {
	l := &fakeLLM{generateErr: errors.New("timeout"), chatOut: "ok"}
	m := newFakeMemory()
	m.convs["s1"] = &store.Conversation{Messages: []store.Message{store.NewMessage(store.RoleUser, "earlier")}}
	p := newTestExecutor(l, m)

	res, err := p.Execute(context.Background(), TurnRequest{SessionID: "s1", Text: "and now?"})
	require.NoError(t, err)
	assert.Equal(t, "and now?", m.searchQuery)
	assert.Equal(t, "and now?", res.StandaloneQuestion)
}

func TestExecute_FallbackOnModelFailure(t *testing.T) {
	tests := map[string]*fakeLLM{
		"error":      {chatErr: apperror.ModelInvocationFailure(errors.New("connection refused"))},
		"empty":      {chatOut: "   "},
		"only-think":  {chatOut: "<think>hmm</think>"},
	}
	for name, l := range tests {
		t.Run(name, func(t *testing.T) {
			m := newFakeMemory()
			p := newTestExecutor(l, m)

			res, err := p.Execute(context.Background(), TurnRequest{SessionID: "s", Text: "Hello"})
			require.NoError(t, err)
			assert.Equal(t, constant.FallbackReply, res.Reply)
			assert.True(t, res.Fallback)

			stored := m.convs["s"].Messages
			require.Len(t, stored, 2)
			assert.Equal(t, true, stored[1].Metadata[store.MetaFallback])
		})
	}
}

func TestExecute_SourcesRecorded(t *testing.T) {
	l := &fakeLLM{chatOut: "See [1]."}
	m := newFakeMemory()
	m.docs = []store.Document{{ID: 7, Filename: "notes.txt", Content: "relevant"}}
	p := newTestExecutor(l, m)

	res, err := p.Execute(context.Background(), TurnRequest{SessionID: "s", Text: "q"})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)

	last := l.chatCalls[0][len(l.chatCalls[0])-1]
	assert.Contains(t, last.Content, "relevant")
	assert.Equal(t, []string{"7"}, m.convs["s"].Messages[1].Metadata[store.MetaSources])
}

func TestExecute_RetriesTransientLoadFailure(t *testing.T) {
	l := &fakeLLM{chatOut: "ok"}
	m := newFakeMemory()
	m.loadErrs = []error{apperror.StoreConnectionFailure("fast load", errors.New("reset")), nil}
	p := newTestExecutor(l, m)

	_, err := p.Execute(context.Background(), TurnRequest{SessionID: "s", Text: "q"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.loadCalls)
}

func TestExecute_LoadFailureSurfaces(t *testing.T) {
	l := &fakeLLM{chatOut: "ok"}
	m := newFakeMemory()
	fail := apperror.StoreConnectionFailure("fast load", errors.New("refused"))
	m.loadErrs = []error{fail, fail, fail, fail}
	p := newTestExecutor(l, m)

	_, err := p.Execute(context.Background(), TurnRequest{SessionID: "s", Text: "q"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindStoreConnectionFailure))
	assert.Equal(t, 3, m.loadCalls)
	assert.Empty(t, l.chatCalls)
}

func TestExecute_PersistFailureSurfaces(t *testing.T) {
	l := &fakeLLM{chatOut: "ok"}
	m := newFakeMemory()
	m.storeErr = apperror.StoreConnectionFailure("durable append", errors.New("refused"))
	p := newTestExecutor(l, m)

	_, err := p.Execute(context.Background(), TurnRequest{SessionID: "s", Text: "q"})
	assert.True(t, apperror.Is(err, apperror.KindStoreConnectionFailure))
}

func TestExecute_EmptyText(t *testing.T) {
	p := newTestExecutor(&fakeLLM{}, newFakeMemory())
	_, err := p.Execute(context.Background(), TurnRequest{Text: ""})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
