package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

// MockBookClient mocks the libros backend client.
type MockBookClient struct {
	ListFunc   func(ctx context.Context) ([]Book, error)
	GetFunc    func(ctx context.Context, id int) (Book, error)
	CreateFunc func(ctx context.Context, payload BookPayload) (Book, error)
	UpdateFunc func(ctx context.Context, id int, payload BookPayload) (Book, error)
	DeleteFunc func(ctx context.Context, id int) (json.RawMessage, error)
}

func (m *MockBookClient) List(ctx context.Context) ([]Book, error) {
	return m.ListFunc(ctx)
}

func (m *MockBookClient) Get(ctx context.Context, id int) (Book, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockBookClient) Create(ctx context.Context, payload BookPayload) (Book, error) {
	return m.CreateFunc(ctx, payload)
}

func (m *MockBookClient) Update(ctx context.Context, id int, payload BookPayload) (Book, error) {
	return m.UpdateFunc(ctx, id, payload)
}

func (m *MockBookClient) Delete(ctx context.Context, id int) (json.RawMessage, error) {
	return m.DeleteFunc(ctx, id)
}

// MockBookService mocks the book service used by the api handlers.
type MockBookService struct {
	ListFunc   func(ctx context.Context) ([]Book, error)
	GetFunc    func(ctx context.Context, id int) (Book, error)
	CreateFunc func(ctx context.Context, payload BookPayload) (Book, error)
	UpdateFunc func(ctx context.Context, id int, payload BookPayload) (Book, error)
	DeleteFunc func(ctx context.Context, id int) (json.RawMessage, error)
}

func (m *MockBookService) List(ctx context.Context) ([]Book, error) {
	return m.ListFunc(ctx)
}

func (m *MockBookService) Get(ctx context.Context, id int) (Book, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockBookService) Create(ctx context.Context, payload BookPayload) (Book, error) {
	return m.CreateFunc(ctx, payload)
}

func (m *MockBookService) Update(ctx context.Context, id int, payload BookPayload) (Book, error) {
	return m.UpdateFunc(ctx, id, payload)
}

func (m *MockBookService) Delete(ctx context.Context, id int) (json.RawMessage, error) {
	return m.DeleteFunc(ctx, id)
}

// MockQueuer records pushed events. Pop serves the events of the
// Popped channel and fails with the context error once it is done.
type MockQueuer struct {
	mu      sync.Mutex
	Pushed  map[string][]JournalEvent
	PushErr error
	Popped  chan QueuedEvent
}

// QueuedEvent is an event waiting on a given queue.
type QueuedEvent struct {
	QID   string
	Event JournalEvent
}

func NewMockQueuer() *MockQueuer {
	return &MockQueuer{
		Pushed: make(map[string][]JournalEvent),
		Popped: make(chan QueuedEvent, 16),
	}
}

func (m *MockQueuer) Push(_ context.Context, qid string, event JournalEvent) error {
	if m.PushErr != nil {
		return m.PushErr
	}
	m.mu.Lock()
	m.Pushed[qid] = append(m.Pushed[qid], event)
	m.mu.Unlock()
	return nil
}

func (m *MockQueuer) Pop(ctx context.Context, _ ...string) (string, JournalEvent, error) {
	select {
	case <-ctx.Done():
		return "", JournalEvent{}, ctx.Err()
	case qe := <-m.Popped:
		return qe.QID, qe.Event, nil
	}
}

// Events returns a copy of the events pushed on a given queue.
func (m *MockQueuer) Events(qid string) []JournalEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]JournalEvent(nil), m.Pushed[qid]...)
}

// MockJournalStorage is an in-memory journal.
type MockJournalStorage struct {
	mu     sync.Mutex
	events []JournalEvent
	Err    error
}

func (m *MockJournalStorage) Add(_ context.Context, event JournalEvent) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	return nil
}

func (m *MockJournalStorage) GetAll(_ context.Context) ([]JournalEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]JournalEvent{}, m.events...), nil
}

func (m *MockJournalStorage) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events), m.Err
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
// equals to `2023-07-02 00:00:00 +0000 UTC` in String format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}
