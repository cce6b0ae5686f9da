package gate

// Package gate owns the process's single database handle. All statement
// execution funnels through one worker goroutine, which makes the "at most
// one in-flight statement" guarantee structural: there is no lock to forget
// to release on an error path.

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// ErrClosed is returned by With once the gate has been shut down.
var ErrClosed = errors.New("gate: closed")

type job struct {
	fn   func(db *sqlx.DB) error
	done chan error
}

// Gate serializes access to the one live database connection. Jobs submitted
// through With run one at a time, in admission order.
type Gate struct {
	jobs      chan job
	quit      chan struct{}
	closeOnce sync.Once
}

// New starts the owner goroutine for db and returns the gate guarding it.
// The caller must not use db outside of With for the gate's lifetime.
func New(db *sqlx.DB) *Gate {
	g := &Gate{
		jobs: make(chan job),
		quit: make(chan struct{}),
	}
	go g.run(db)
	return g
}

func (g *Gate) run(db *sqlx.DB) {
	for {
		select {
		case j := <-g.jobs:
			j.done <- invoke(db, j.fn)
		case <-g.quit:
			return
		}
	}
}

// invoke runs fn and converts a panic into an error so a misbehaving handler
// cannot kill the owner goroutine and leave the connection unreachable.
func invoke(db *sqlx.DB, fn func(db *sqlx.DB) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gate: handler panicked: %v", r)
		}
	}()
	return fn(db)
}

// With runs fn with exclusive access to the connection, blocking until the
// gate admits it. There is no timeout; a long-running statement holds every
// waiting caller. Returns ErrClosed if the gate has been shut down.
func (g *Gate) With(fn func(db *sqlx.DB) error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case g.jobs <- j:
		return <-j.done
	case <-g.quit:
		return ErrClosed
	}
}

// Close stops the owner goroutine. Jobs already admitted complete; later
// calls to With fail with ErrClosed. Close is idempotent.
func (g *Gate) Close() {
	g.closeOnce.Do(func() {
		close(g.quit)
	})
}
