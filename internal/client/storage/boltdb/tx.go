package boltdb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/codec"
)

// tx implements storage.Tx over a single BoltDB transaction
type tx struct {
	tx *bbolt.Tx
}

func (t *tx) Transactions() storage.TransactionCollection {
	return &transactions{c: newTransactionCollection(t.tx)}
}

func (t *tx) Profiles() storage.ProfileCollection {
	return &profiles{c: newProfileCollection(t.tx)}
}

func (t *tx) Outbox() storage.OutboxCollection {
	return &outbox{c: newOutboxCollection(t.tx)}
}

func (t *tx) Cache() storage.CacheCollection {
	return &cache{c: newCacheCollection(t.tx)}
}

func (t *tx) Auth() storage.AuthCollection {
	return &auth{c: newAuthCollection(t.tx)}
}

func (t *tx) Contacts() storage.ContactCollection {
	return &contacts{c: newContactCollection(t.tx)}
}

func (t *tx) Notifications() storage.NotificationCollection {
	return &notifications{c: newNotificationCollection(t.tx)}
}

func (t *tx) Metadata() storage.MetadataCollection {
	return &metadata{tx: t.tx}
}

// index описывает вторичный индекс коллекции.
// keys возвращает ключи записи в индексе; пустой результат - запись не индексируется.
type index[T any] struct {
	keys   func(v *T) [][]byte
	bucket []byte
}

// collection общая реализация коллекции: запись хранится в bucket по id
// в виде CBOR, индексы обновляются в той же транзакции.
type collection[T any] struct {
	tx      *bbolt.Tx
	id      func(v *T) string
	bucket  []byte
	indexes []index[T]
}

func getBucket(btx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	b := btx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}
	return b, nil
}

func (c *collection[T]) writable() error {
	if !c.tx.Writable() {
		return storage.ErrReadOnly
	}
	return nil
}

func (c *collection[T]) get(id string) (*T, error) {
	b, err := getBucket(c.tx, c.bucket)
	if err != nil {
		return nil, err
	}

	data := b.Get([]byte(id))
	if data == nil {
		return nil, storage.ErrNotFound
	}

	v := new(T)
	if err := codec.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s/%s: %w", c.bucket, id, err)
	}
	return v, nil
}

func (c *collection[T]) add(v *T) error {
	if err := c.writable(); err != nil {
		return err
	}

	_, err := c.get(c.id(v))
	switch {
	case err == nil:
		return storage.ErrAlreadyExists
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	return c.write(v, nil)
}

func (c *collection[T]) put(v *T) error {
	if err := c.writable(); err != nil {
		return err
	}

	old, err := c.get(c.id(v))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	return c.write(v, old)
}

// write сохраняет запись и перестраивает ее индексные ключи
func (c *collection[T]) write(v, old *T) error {
	id := c.id(v)
	if id == "" {
		return fmt.Errorf("%s: empty record id", c.bucket)
	}

	if old != nil {
		if err := c.unindex(old); err != nil {
			return err
		}
	}

	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}

	b, err := getBucket(c.tx, c.bucket)
	if err != nil {
		return err
	}
	if err := b.Put([]byte(id), data); err != nil {
		return fmt.Errorf("failed to save %s/%s: %w", c.bucket, id, err)
	}

	for _, ix := range c.indexes {
		ib, err := getBucket(c.tx, ix.bucket)
		if err != nil {
			return err
		}
		for _, k := range ix.keys(v) {
			if err := ib.Put(k, []byte(id)); err != nil {
				return fmt.Errorf("failed to update index %s: %w", ix.bucket, err)
			}
		}
	}

	return nil
}

func (c *collection[T]) unindex(v *T) error {
	for _, ix := range c.indexes {
		ib, err := getBucket(c.tx, ix.bucket)
		if err != nil {
			return err
		}
		for _, k := range ix.keys(v) {
			if err := ib.Delete(k); err != nil {
				return fmt.Errorf("failed to update index %s: %w", ix.bucket, err)
			}
		}
	}
	return nil
}

func (c *collection[T]) delete(id string) error {
	if err := c.writable(); err != nil {
		return err
	}

	old, err := c.get(id)
	if err != nil {
		return err
	}
	if err := c.unindex(old); err != nil {
		return err
	}

	b, err := getBucket(c.tx, c.bucket)
	if err != nil {
		return err
	}
	if err := b.Delete([]byte(id)); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", c.bucket, id, err)
	}
	return nil
}

func (c *collection[T]) count() (int, error) {
	b, err := getBucket(c.tx, c.bucket)
	if err != nil {
		return 0, err
	}

	n := 0
	cur := b.Cursor()
	for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
		n++
	}
	return n, nil
}

// scan обходит индекс начиная с ключа start, пока accept(k) == true,
// и загружает записи, на которые указывают ключи
func (c *collection[T]) scan(ixName, start []byte, accept func(k []byte) bool) ([]*T, error) {
	ib, err := getBucket(c.tx, ixName)
	if err != nil {
		return nil, err
	}

	var out []*T
	cur := ib.Cursor()
	k, v := cur.First()
	if start != nil {
		k, v = cur.Seek(start)
	}
	for ; k != nil && accept(k); k, v = cur.Next() {
		rec, err := c.get(string(v))
		if err != nil {
			return nil, fmt.Errorf("index %s points to %q: %w", ixName, v, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *collection[T]) scanPrefix(ixName, prefix []byte) ([]*T, error) {
	return c.scan(ixName, prefix, func(k []byte) bool {
		return bytes.HasPrefix(k, prefix)
	})
}

// scanReverse обходит весь индекс от последнего ключа к первому
func (c *collection[T]) scanReverse(ixName []byte) ([]*T, error) {
	ib, err := getBucket(c.tx, ixName)
	if err != nil {
		return nil, err
	}

	var out []*T
	cur := ib.Cursor()
	for k, v := cur.Last(); k != nil; k, v = cur.Prev() {
		rec, err := c.get(string(v))
		if err != nil {
			return nil, fmt.Errorf("index %s points to %q: %w", ixName, v, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Помощники для построения индексных ключей.
// Числа кодируются big-endian, поэтому порядок байт совпадает с числовым.

func u64(v int64) []byte {
	if v < 0 {
		v = 0
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func millis(t time.Time) []byte {
	return u64(storage.UnixMilli(t))
}

// term строка, завершенная нулевым байтом, чтобы "ab" не было префиксом "abc"
func term(s string) []byte {
	return append([]byte(s), 0)
}

func flag(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func key(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func single(k []byte) [][]byte {
	return [][]byte{k}
}
