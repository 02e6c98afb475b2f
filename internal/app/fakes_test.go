package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"mealtrack-bff/internal/ai"
	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/repository"
)

var testCaller = &jwtutil.Identity{Subject: "u1", Role: "authenticated"}

type mockMealStore struct {
	mock.Mock
}

func (m *mockMealStore) ListByUserInRange(ctx context.Context, id *jwtutil.Identity, userID string, from, to time.Time) ([]model.Meal, error) {
	args := m.Called(ctx, id, userID, from, to)
	meals, _ := args.Get(0).([]model.Meal)
	return meals, args.Error(1)
}

func (m *mockMealStore) ListRecent(ctx context.Context, id *jwtutil.Identity, userID string, since time.Time, limit int) ([]model.Meal, error) {
	args := m.Called(ctx, id, userID, since, limit)
	meals, _ := args.Get(0).([]model.Meal)
	return meals, args.Error(1)
}

func (m *mockMealStore) Create(ctx context.Context, id *jwtutil.Identity, meal *model.Meal) error {
	return m.Called(ctx, id, meal).Error(0)
}

func (m *mockMealStore) Update(ctx context.Context, id *jwtutil.Identity, mealID int64, upd repository.MealUpdate) (*model.Meal, error) {
	args := m.Called(ctx, id, mealID, upd)
	meal, _ := args.Get(0).(*model.Meal)
	return meal, args.Error(1)
}

func (m *mockMealStore) Delete(ctx context.Context, id *jwtutil.Identity, mealID int64) error {
	return m.Called(ctx, id, mealID).Error(0)
}

type fakeBlobs struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	failOn   int
}

func (b *fakeBlobs) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failOn == len(b.uploaded)+1 {
		return "", errors.New("storage unavailable")
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	b.uploaded = append(b.uploaded, key)
	return "https://storage.test/Meals/" + key, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, key)
	return nil
}

type fakePublisher struct {
	jobs []model.EmbeddingJob
	err  error
}

func (p *fakePublisher) PublishEmbeddingJob(ctx context.Context, job model.EmbeddingJob) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

// fakeLLM stands in for every model capability the services use.
type fakeLLM struct {
	transcript   string
	completion   string
	completeErr  error
	vector       []float32
	descriptions map[string]string

	prompts   [][]ai.ChatMessage
	embedded  []string
	audioRead string
}

func (l *fakeLLM) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	l.prompts = append(l.prompts, messages)
	return l.completion, l.completeErr
}

func (l *fakeLLM) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", err
	}
	l.audioRead = string(data)
	return l.transcript, nil
}

func (l *fakeLLM) Embed(ctx context.Context, text string) (ai.Embedding, error) {
	l.embedded = append(l.embedded, text)
	return ai.Embedding{Vector: l.vector, TokenCount: len(text) / 4}, nil
}

func (l *fakeLLM) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	desc, ok := l.descriptions[imageURL]
	if !ok {
		return "", errors.New("image not reachable")
	}
	return desc, nil
}

type mockRunAPI struct {
	mock.Mock
}

func (m *mockRunAPI) CreateRun(ctx context.Context, threadID string) (ai.Run, error) {
	args := m.Called(ctx, threadID)
	return args.Get(0).(ai.Run), args.Error(1)
}

func (m *mockRunAPI) RetrieveRun(ctx context.Context, threadID, runID string) (ai.Run, error) {
	args := m.Called(ctx, threadID, runID)
	return args.Get(0).(ai.Run), args.Error(1)
}

func (m *mockRunAPI) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ai.ToolOutput) (ai.Run, error) {
	args := m.Called(ctx, threadID, runID, outputs)
	return args.Get(0).(ai.Run), args.Error(1)
}

func (m *mockRunAPI) CancelRun(ctx context.Context, threadID, runID string) error {
	return m.Called(ctx, threadID, runID).Error(0)
}

func (m *mockRunAPI) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	args := m.Called(ctx, threadID)
	return args.String(0), args.Error(1)
}

type memoryThreads struct {
	mu      sync.Mutex
	rows    map[string]*model.MessageThread
	nextID  int64
	creates int
}

func newMemoryThreads() *memoryThreads {
	return &memoryThreads{rows: make(map[string]*model.MessageThread)}
}

func (s *memoryThreads) GetByUserID(ctx context.Context, id *jwtutil.Identity, userID string) (*model.MessageThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *row
	cp.Messages = append(make([]model.Turn, 0, len(row.Messages)), row.Messages...)
	return &cp, nil
}

func (s *memoryThreads) Create(ctx context.Context, id *jwtutil.Identity, thread *model.MessageThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[thread.UserID]; ok {
		return errors.New("duplicate key value violates unique constraint")
	}
	s.nextID++
	s.creates++
	thread.ID = s.nextID
	cp := *thread
	s.rows[thread.UserID] = &cp
	return nil
}

func (s *memoryThreads) AppendTurns(ctx context.Context, id *jwtutil.Identity, rowID int64, turns []model.Turn, tokens int) (*model.MessageThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == rowID {
			row.Messages = append(row.Messages, turns...)
			row.TokenCount += tokens
			cp := *row
			return &cp, nil
		}
	}
	return nil, errors.New("thread not found")
}

type fakeThreadAPI struct {
	created  int
	messages []string
}

func (a *fakeThreadAPI) CreateThread(ctx context.Context) (string, error) {
	a.created++
	return "thread_" + string(rune('0'+a.created)), nil
}

func (a *fakeThreadAPI) AddUserMessage(ctx context.Context, threadID, content string) error {
	a.messages = append(a.messages, content)
	return nil
}
