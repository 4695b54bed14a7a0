// Package dummydb is an in-memory storage for tests and the memory mode of the API.
// Writes made within a transaction are undone on rollback; row locks are per-key mutexes held until the end of the transaction.
package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/deadline"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/result"
	"github.com/trezcool/fyp/core/submission"
)

type (
	DB struct {
		sync.RWMutex
		locks *keyedMutex

		docType    map[string]*doctype.DocumentType
		batch      map[string]*deadline.Batch
		project    map[string]*project.Project
		submission map[string]*submission.Submission
		version    map[string]int // last version per (project, document type)
		marks      map[string]*evaluation.Marks
		result     map[string]*result.FinalResult
	}

	tx struct {
		held []string
		undo []func()
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil)

func Open() (*DB, error) {
	db := &DB{
		locks:      newKeyedMutex(),
		docType:    make(map[string]*doctype.DocumentType),
		batch:      make(map[string]*deadline.Batch),
		project:    make(map[string]*project.Project),
		submission: make(map[string]*submission.Submission),
		version:    make(map[string]int),
		marks:      make(map[string]*evaluation.Marks),
		result:     make(map[string]*result.FinalResult),
	}
	return db, nil
}

func txFrom(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	t := new(tx)
	defer func() {
		if r := recover(); r != nil {
			db.rollback(t)
			panic(r)
		}
		if err != nil {
			db.rollback(t)
		}
		db.release(t)
	}()
	return fn(context.WithValue(ctx, txKey{}, t))
}

func (db *DB) rollback(t *tx) {
	db.Lock()
	defer db.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (db *DB) release(t *tx) {
	for i := len(t.held) - 1; i >= 0; i-- {
		db.locks.Unlock(t.held[i])
	}
	t.held = nil
}

// lockRow locks key until the end of the running transaction. It is a no-op outside of transactions.
func (db *DB) lockRow(ctx context.Context, key string) {
	t := txFrom(ctx)
	if t == nil {
		return
	}
	for _, k := range t.held {
		if k == key {
			return
		}
	}
	db.locks.Lock(key)
	t.held = append(t.held, key)
}

// write applies a change under the table lock. The returned undo func is kept
// to roll the change back when running in a transaction.
func (db *DB) write(ctx context.Context, apply func() (undo func(), err error)) error {
	db.Lock()
	defer db.Unlock()
	undo, err := apply()
	if err != nil {
		return err
	}
	if t := txFrom(ctx); t != nil && undo != nil {
		t.undo = append(t.undo, undo)
	}
	return nil
}

// keyedMutex hands out one mutex per key, dropped once nobody holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (km *keyedMutex) Lock(key string) {
	km.mu.Lock()
	l, ok := km.locks[key]
	if !ok {
		l = new(refMutex)
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()
	l.Lock()
}

func (km *keyedMutex) Unlock(key string) {
	km.mu.Lock()
	l := km.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(km.locks, key)
	}
	km.mu.Unlock()
	l.Unlock()
}

func pairKey(a, b string) string {
	return a + "|" + b
}
