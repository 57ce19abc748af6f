package main

import "context"

// JournalEvent records one successful write performed through the book service.
type JournalEvent struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	BookID    int    `json:"book_id"`
	Book      Book   `json:"book"`
	RequestID string `json:"request_id,omitempty"`
	At        string `json:"at"`
}

// JournalStorage defines possible operations on the writes journal.
type JournalStorage interface {
	Add(ctx context.Context, event JournalEvent) error
	GetAll(ctx context.Context) ([]JournalEvent, error)
	Count(ctx context.Context) (int, error)
}
