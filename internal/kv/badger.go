package kv

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Internal key prefixes keep the four value kinds from colliding.
const (
	stringPrefix = "s:"
	setPrefix    = "m:"
	zsetPrefix   = "z:"
	hashPrefix   = "h:"
)

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(msg string, args ...interface{})   { l.logger.Errorf(msg, args...) }
func (l *badgerLogger) Warningf(msg string, args ...interface{}) { l.logger.Warnf(msg, args...) }
func (l *badgerLogger) Infof(msg string, args ...interface{})    { l.logger.Debugf(msg, args...) }
func (l *badgerLogger) Debugf(msg string, args ...interface{})   { l.logger.Debugf(msg, args...) }

// NewBadgerStore opens a BadgerDB-backed store at path, creating the
// directory if needed. An empty path opens an in-memory database.
func NewBadgerStore(path string, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("create kv dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &badgerLogger{logger: logger.Sugar()}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stringPrefix + key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

func (s *BadgerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(stringPrefix+key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(stringPrefix + key))
	})
}

func setMemberKey(key, member string) []byte {
	return []byte(setPrefix + key + ":" + member)
}

func (s *BadgerStore) SAdd(ctx context.Context, key string, members ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, m := range members {
			if err := txn.Set(setMemberKey(key, m), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) SRem(ctx context.Context, key string, members ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, m := range members {
			if err := txn.Delete(setMemberKey(key, m)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) SMembers(ctx context.Context, key string) ([]string, error) {
	prefix := []byte(setPrefix + key + ":")
	var members []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			members = append(members, string(k[len(prefix):]))
		}
		return nil
	})
	return members, err
}

func zsetMemberKey(key, member string) []byte {
	return []byte(zsetPrefix + key + ":" + member)
}

func (s *BadgerStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(score))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(zsetMemberKey(key, member), buf)
	})
}

func (s *BadgerStore) ZRem(ctx context.Context, key, member string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(zsetMemberKey(key, member))
	})
}

func (s *BadgerStore) ZRevRange(ctx context.Context, key string, offset, count int) ([]string, error) {
	type entry struct {
		member string
		score  float64
	}
	prefix := []byte(zsetPrefix + key + ":")
	var entries []entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if len(v) != 8 {
				continue
			}
			entries = append(entries, entry{
				member: string(k[len(prefix):]),
				score:  math.Float64frombits(binary.BigEndian.Uint64(v)),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].score > entries[j].score })
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return nil, nil
	}
	end := len(entries)
	if count >= 0 && offset+count < end {
		end = offset + count
	}
	out := make([]string, 0, end-offset)
	for _, e := range entries[offset:end] {
		out = append(out, e.member)
	}
	return out, nil
}

func (s *BadgerStore) ZCard(ctx context.Context, key string) (int, error) {
	prefix := []byte(zsetPrefix + key + ":")
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *BadgerStore) HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(hashPrefix+key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *BadgerStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hashPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode hash %s: %w", key, err)
	}
	return fields, nil
}
