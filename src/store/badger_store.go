package store

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const valuePrefix = "value"

// valueRecord is what BadgerStore writes for each value.
type valueRecord struct {
	Value int32 `codec:"value"`
}

// BadgerStore is an implementation of the Store interface that uses an
// InmemStore for reads and a BadgerDB to persist values on disk.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string

	writeLock sync.Mutex
	closed    bool
}

// NewBadgerStore opens the database in path, creating it if it doesn't exist,
// and loads the values it already contains.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(),
		db:         handle,
		path:       path,
	}

	if err := store.dbLoadValues(); err != nil {
		handle.Close()
		return nil, err
	}

	return store, nil
}

/*******************************************************************************
Keys
*******************************************************************************/

func valueKey(v int32) []byte {
	return []byte(fmt.Sprintf("%s_%d", valuePrefix, v))
}

func valueFromKey(key []byte) (int32, error) {
	s := strings.TrimPrefix(string(key), valuePrefix+"_")
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

/*******************************************************************************
Implement the Store interface
*******************************************************************************/

// Add implements the Store interface. The value is written to the database
// before it becomes visible.
func (s *BadgerStore) Add(v int32) (bool, error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if s.closed {
		return false, NewStoreErr("Value", Closed, string(valueKey(v)))
	}

	if s.inmemStore.Contains(v) {
		return false, nil
	}

	if err := s.dbSetValue(v); err != nil {
		return false, err
	}

	return s.inmemStore.Add(v)
}

// Contains implements the Store interface. Values missing from the cache are
// looked up in the database.
func (s *BadgerStore) Contains(v int32) bool {
	if s.inmemStore.Contains(v) {
		return true
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	if s.closed {
		return false
	}

	_, err := s.dbGetValue(v)
	return err == nil
}

// Values implements the Store interface.
func (s *BadgerStore) Values() []int32 {
	return s.inmemStore.Values()
}

// Len implements the Store interface.
func (s *BadgerStore) Len() int {
	return s.inmemStore.Len()
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

/*******************************************************************************
DB Methods
*******************************************************************************/

func (s *BadgerStore) dbSetValue(v int32) error {
	var val []byte
	enc := codec.NewEncoderBytes(&val, new(codec.JsonHandle))
	if err := enc.Encode(&valueRecord{Value: v}); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(valueKey(v), val)
	})
}

func (s *BadgerStore) dbGetValue(v int32) (int32, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(valueKey(v))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return 0, NewStoreErr("Value", KeyNotFound, string(valueKey(v)))
	}
	if err != nil {
		return 0, err
	}

	return decodeRecord(valueKey(v), data)
}

// dbLoadValues copies every value of the database into the inmem store.
func (s *BadgerStore) dbLoadValues() error {
	prefix := []byte(valuePrefix + "_")

	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)

			err := item.Value(func(data []byte) error {
				v, err := decodeRecord(key, data)
				if err != nil {
					return err
				}
				_, err = s.inmemStore.Add(v)
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// decodeRecord decodes a stored record and checks it against its key.
func decodeRecord(key []byte, data []byte) (int32, error) {
	var rec valueRecord
	dec := codec.NewDecoderBytes(data, new(codec.JsonHandle))
	if err := dec.Decode(&rec); err != nil {
		return 0, fmt.Errorf("decoding %s: %v", key, err)
	}

	v, err := valueFromKey(key)
	if err != nil || v != rec.Value {
		return 0, NewStoreErr("Value", Corrupt, string(key))
	}

	return rec.Value, nil
}
