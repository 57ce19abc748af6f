package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs. Each one also names the kind of journal event it carries.
const (
	CreateQueue = "creation"
	UpdateQueue = "updating"
	DeleteQueue = "deletion"
)

// JournalQueues lists every queue the journal consumer listens on.
var JournalQueues = []string{CreateQueue, UpdateQueue, DeleteQueue}

const popTimeout = time.Second

// Ensure *redisQueue implements Queuer.
var _ Queuer = (*redisQueue)(nil)

// Queuer describes a queue of journal events.
type Queuer interface {
	Push(ctx context.Context, qid string, event JournalEvent) error
	Pop(ctx context.Context, qids ...string) (string, JournalEvent, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Push enqueues an event onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, event JournalEvent) error {
	eventBytes, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, eventBytes).Err()
}

// Pop blocks until an event is available on one of the queue ids
// and returns it together with the queue it was taken from. The
// blocking call is renewed every popTimeout so a done context is
// noticed even when the queues stay empty.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, JournalEvent, error) {
	var event JournalEvent
	for {
		if err := ctx.Err(); err != nil {
			return "", event, err
		}

		infos, err := q.client.BLPop(ctx, popTimeout, qids...).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", event, err
		}

		if err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(infos[1]), &event); err != nil {
			return "", event, err
		}
		return infos[0], event, nil
	}
}
