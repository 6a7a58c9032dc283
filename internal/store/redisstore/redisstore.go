// Package redisstore implements the store.Gateway contract on Redis.
// Documents live as JSON strings, one key per document, with a set per
// collection as the key index and a pub/sub channel per collection as the
// change-notification feed.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geocoder89/gatherdesk/internal/store"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Store struct {
	rdb *redis.Client
	log *slog.Logger
}

var _ store.Gateway = (*Store)(nil)

func New(cfg Config, log *slog.Logger) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Store{rdb: rdb, log: log}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func docKey(collection, key string) string {
	return "gd:doc:" + collection + ":" + key
}

func indexKey(collection string) string {
	return "gd:idx:" + collection
}

func channel(collection string) string {
	return "gd:ch:" + collection
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

func (s *Store) Get(ctx context.Context, collection, key string) (store.Document, error) {
	raw, err := s.rdb.Get(ctx, docKey(collection, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable(err)
	}

	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func (s *Store) Put(ctx context.Context, collection, key string, doc store.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, docKey(collection, key), raw, 0)
		pipe.SAdd(ctx, indexKey(collection), key)
		pipe.Publish(ctx, channel(collection), key)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}

	return nil
}

// Update does an optimistic read-merge-write guarded by WATCH so concurrent
// merges on the same document serialize instead of clobbering each other.
func (s *Store) Update(ctx context.Context, collection, key string, fields store.Document) error {
	dk := docKey(collection, key)

	const maxAttempts = 10

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, dk).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return store.ErrNotFound
				}
				return err
			}

			var doc store.Document
			if err := json.Unmarshal(raw, &doc); err != nil {
				return err
			}

			for k, v := range fields {
				doc[k] = v
			}

			merged, err := json.Marshal(doc)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, dk, merged, 0)
				pipe.Publish(ctx, channel(collection), key)
				return nil
			})
			return err
		}, dk)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return unavailable(err)
		}
		return nil
	}

	return unavailable(errors.New("update contention exceeded retry budget"))
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	n, err := s.rdb.Del(ctx, docKey(collection, key)).Result()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, indexKey(collection), key)
		pipe.Publish(ctx, channel(collection), key)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}

	return nil
}

func (s *Store) List(ctx context.Context, collection string, pred store.Predicate) ([]store.KeyedDocument, error) {
	keys, err := s.rdb.SMembers(ctx, indexKey(collection)).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]store.KeyedDocument, 0, len(keys))

	for _, key := range keys {
		raw, err := s.rdb.Get(ctx, docKey(collection, key)).Bytes()
		if err != nil {
			// index can briefly lead deletes; skip vanished keys
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, unavailable(err)
		}

		var doc store.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}

		if pred != nil && !pred(doc) {
			continue
		}

		out = append(out, store.KeyedDocument{Key: key, Doc: doc})
	}

	return out, nil
}

func (s *Store) Query(ctx context.Context, collection string, pred store.Predicate) (store.Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, channel(collection))

	// force the SUBSCRIBE to complete so the caller knows delivery is live
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, unavailable(err)
	}

	sub := &subscription{
		ch:   make(chan store.Snapshot, 1),
		stop: make(chan struct{}),
	}
	sub.cleanup = func() { _ = pubsub.Close() }

	initial, err := s.List(ctx, collection, pred)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	sub.deliver(store.Snapshot{Docs: initial})

	go func() {
		msgs := pubsub.Channel()
		for {
			select {
			case <-sub.stop:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}

				docs, err := s.List(ctx, collection, pred)
				if err != nil {
					if s.log != nil {
						s.log.Error("live query refresh failed", "collection", collection, "err", err)
					}
					continue
				}
				sub.deliver(store.Snapshot{Docs: docs})
			}
		}
	}()

	return sub, nil
}

type subscription struct {
	ch      chan store.Snapshot
	stop    chan struct{}
	cleanup func()

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (sub *subscription) Snapshots() <-chan store.Snapshot {
	return sub.ch
}

func (sub *subscription) deliver(snap store.Snapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed {
		return
	}

	select {
	case sub.ch <- snap:
		return
	default:
	}

	select {
	case <-sub.ch:
	default:
	}

	select {
	case sub.ch <- snap:
	default:
	}
}

func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		close(sub.stop)
		sub.cleanup()

		sub.mu.Lock()
		sub.closed = true
		close(sub.ch)
		sub.mu.Unlock()
	})
}
