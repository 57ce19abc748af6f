package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retryDelay is the pause after a failed pop.
const retryDelay = 500 * time.Millisecond

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

type journalConsumer struct {
	logger  *zap.Logger
	queue   Queuer
	journal JournalStorage
}

func NewJournalConsumer(logger *zap.Logger, q Queuer, journal JournalStorage) Consumer {
	return &journalConsumer{logger, q, journal}
}

// Consume pops events from the given queues and appends them to the journal
// until the context is done.
func (jc *journalConsumer) Consume(ctx context.Context, qids ...string) error {
	var event JournalEvent
	var err error
	var qid string
	for {
		qid, event, err = jc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			jc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			jc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}

		switch qid {
		case CreateQueue, UpdateQueue, DeleteQueue:
			if err = jc.journal.Add(ctx, event); err != nil {
				jc.logger.Error("consumer: failed to journal event", zap.String("qid", qid), zap.Any("event", event), zap.Error(err))
			}
		default:
			jc.logger.Warn("consumer: received event on unknow queue id", zap.String("qid", qid), zap.Any("event", event))
		}
	}
}
