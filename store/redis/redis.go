/*
Package redis stores scripts in Redis and publishes console output to
Redis channels.

Records are kept as JSON strings under "<prefix>:script:<key>". The set
"<prefix>:scripts" holds the keys of all records.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"golang.org/x/exp/slices"

	"github.com/npillmayer/chartscript/console"
	"github.com/npillmayer/chartscript/store"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'chartscript.store'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.store")
}

// DefaultPrefix prefixes all keys if Config.Prefix is empty.
const DefaultPrefix = "chartscript"

// Config configures the Redis store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Prefix   string
}

// Store keeps script records in Redis.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ store.Scripts = (*Store)(nil)

// New creates a store and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	tracer().Infof("connected to redis at %s", cfg.Addr)
	return &Store{client: client, prefix: prefix}, nil
}

// Client returns the underlying Redis client.
func (s *Store) Client() *goredis.Client { return s.client }

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) recordKey(key string) string {
	return s.prefix + ":script:" + key
}

func (s *Store) indexKey() string {
	return s.prefix + ":scripts"
}

// Save stores r and adds its key to the index.
func (s *Store) Save(ctx context.Context, r store.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.recordKey(r.Key), data, 0)
	pipe.SAdd(ctx, s.indexKey(), r.Key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save %s: %w", r.Key, err)
	}
	return nil
}

// Load reads the record of key.
func (s *Store) Load(ctx context.Context, key string) (store.Record, error) {
	data, err := s.client.Get(ctx, s.recordKey(key)).Bytes()
	if err == goredis.Nil {
		return store.Record{}, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("redis load %s: %w", key, err)
	}
	var r store.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return store.Record{}, fmt.Errorf("redis load %s: %w", key, err)
	}
	return r, nil
}

// Delete removes the record of key.
func (s *Store) Delete(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.recordKey(key))
	pipe.SRem(ctx, s.indexKey(), key)
	_, err := pipe.Exec(ctx)
	return err
}

// Keys lists the keys of all records, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}

// Channel is the pub/sub channel console messages of a script are
// published to.
func (s *Store) Channel(key string) string {
	return s.prefix + ":console:" + key
}

// Publisher publishes console messages as JSON. It is a console.Sink.
type Publisher struct {
	store   *Store
	timeout time.Duration
}

var _ console.Sink = (*Publisher)(nil)

// Publisher returns a console sink publishing to Channel(msg.Key).
func (s *Store) Publisher() *Publisher {
	return &Publisher{store: s, timeout: time.Second}
}

// Emit publishes msg. Failures are traced and otherwise ignored.
func (p *Publisher) Emit(msg console.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		tracer().Errorf("cannot marshal console message: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.client.Publish(ctx, p.store.Channel(msg.Key), data).Err(); err != nil {
		tracer().Errorf("redis publish: %v", err)
	}
}
