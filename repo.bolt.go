package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var _ JournalStorage = (*boltJournalStorage)(nil) // ensure boltJournalStorage implements JournalStorage.

type boltJournalStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.BoltDB.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the database folder, %v", err)
	}
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltJournalStorage provides an instance of bolt-based journal storage.
func NewBoltJournalStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) *boltJournalStorage {
	return &boltJournalStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based journal storage.
func (bs *boltJournalStorage) Close() error {
	return bs.client.Close()
}

// Add appends an event to the journal. Keys come from the bucket sequence
// so the cursor walks events in insertion order.
func (bs *boltJournalStorage) Add(_ context.Context, event JournalEvent) error {
	eventBytes, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bs.config.BucketName))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(sequenceKey(seq), eventBytes)
	})
}

// GetAll retrieves all journal events, oldest first.
func (bs *boltJournalStorage) GetAll(_ context.Context) ([]JournalEvent, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(bs.config.BucketName)).Cursor()

	events := []JournalEvent{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var event JournalEvent
		if err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(v, &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Count returns the number of stored events.
func (bs *boltJournalStorage) Count(_ context.Context) (int, error) {
	var n int
	err := bs.client.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bs.config.BucketName)).Stats().KeyN
		return nil
	})
	return n, err
}

func sequenceKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
