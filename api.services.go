package main

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	List(ctx context.Context) ([]Book, error)
	Get(ctx context.Context, id int) (Book, error)
	Create(ctx context.Context, book BookPayload) (Book, error)
	Update(ctx context.Context, id int, book BookPayload) (Book, error)
	Delete(ctx context.Context, id int) (json.RawMessage, error)
}

// BookService forwards each operation to the backend client. Successful
// writes are announced on the journal queue when one is configured.
type BookService struct {
	logger *zap.Logger
	clock  Clocker
	ids    UIDHandler
	client BookClient
	queue  Queuer
}

func NewBookService(logger *zap.Logger, clock Clocker, ids UIDHandler, client BookClient, queue Queuer) BookServiceProvider {
	return &BookService{
		logger: logger,
		clock:  clock,
		ids:    ids,
		client: client,
		queue:  queue,
	}
}

func (bs *BookService) List(ctx context.Context) ([]Book, error) {
	return bs.client.List(ctx)
}

func (bs *BookService) Get(ctx context.Context, id int) (Book, error) {
	return bs.client.Get(ctx, id)
}

func (bs *BookService) Create(ctx context.Context, payload BookPayload) (Book, error) {
	book, err := bs.client.Create(ctx, payload)
	if err != nil {
		return book, err
	}
	bs.publish(ctx, CreateQueue, book.ID, book)
	return book, nil
}

func (bs *BookService) Update(ctx context.Context, id int, payload BookPayload) (Book, error) {
	book, err := bs.client.Update(ctx, id, payload)
	if err != nil {
		return book, err
	}
	bs.publish(ctx, UpdateQueue, id, book)
	return book, nil
}

func (bs *BookService) Delete(ctx context.Context, id int) (json.RawMessage, error) {
	data, err := bs.client.Delete(ctx, id)
	if err != nil {
		return data, err
	}
	bs.publish(ctx, DeleteQueue, id, Book{ID: id})
	return data, nil
}

// publish pushes the journal event. A failure is only logged since the
// write already happened on the backend.
func (bs *BookService) publish(ctx context.Context, qid string, id int, book Book) {
	if bs.queue == nil {
		return
	}
	event := JournalEvent{
		ID:        bs.ids.Generate(JournalIDPrefix),
		Kind:      qid,
		BookID:    id,
		Book:      book,
		RequestID: GetValueFromContext(ctx, RequestIDContextKey),
		At:        bs.clock.Now().UTC().Format(time.RFC3339),
	}
	if err := bs.queue.Push(ctx, qid, event); err != nil {
		bs.logger.Error("service: failed to push event to queue", zap.String("qid", qid), zap.Int("book.id", id), zap.Error(err))
	}
}
