package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/uptrace/bun"

	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/queue"
)

// Store hands out units of work over a bun database. Events recorded by a
// session are handed to the publisher only after its transaction commits.
type Store struct {
	db        *bun.DB
	publisher queue.Publisher
	logger    *log.Logger
}

func NewStore(db *bun.DB, publisher queue.Publisher, logger *log.Logger) *Store {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &Store{db: db, publisher: publisher, logger: logger}
}

// DB exposes the underlying handle for schema and seed tooling.
func (s *Store) DB() *bun.DB { return s.db }

type sessionKey struct{}

// Begin opens a transaction and returns a context that carries the new
// session. Every service call made with that context joins the session.
func (s *Store) Begin(ctx context.Context) (context.Context, *Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin: %w", err)
	}
	sess := &Session{
		store:   s,
		tx:      tx,
		tracked: make(map[any]struct{}),
	}
	return context.WithValue(ctx, sessionKey{}, sess), sess, nil
}

// SessionFrom returns the session carried by ctx, if any.
func SessionFrom(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*Session)
	return sess, ok && sess != nil
}

// conn picks the session transaction when ctx carries one, the plain
// database handle otherwise.
func (s *Store) conn(ctx context.Context) (bun.IDB, *Session) {
	if sess, ok := SessionFrom(ctx); ok {
		return sess.tx, sess
	}
	return s.db, nil
}

// Session is one unit of work: a transaction, the set of entities loaded
// through tracking queries, and the events waiting for commit. A session
// belongs to a single request and is not safe for concurrent use.
type Session struct {
	store   *Store
	tx      bun.Tx
	tracked map[any]struct{}
	events  []queue.Event
	done    bool
}

// Record queues an event for publication after commit.
func (s *Session) Record(ev queue.Event) {
	s.events = append(s.events, ev)
}

// Commit commits the transaction and then publishes the recorded events.
// Publish failures are logged; the data is already durable at that point.
func (s *Session) Commit(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	events := s.events
	s.events = nil
	if len(events) == 0 {
		return nil
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.publisher.Publish(pctx, events...); err != nil && s.store.logger != nil {
		s.store.logger.Warn("publish events failed", "count", len(events), "err", err)
	}
	return nil
}

// Rollback discards the transaction and every recorded event. It is a
// no-op after Commit or a previous Rollback.
func (s *Session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	s.events = nil
	return s.tx.Rollback()
}

func (s *Session) track(v any) { s.tracked[v] = struct{}{} }

func (s *Session) untrack(v any) { delete(s.tracked, v) }

func (s *Session) isTracked(v any) bool {
	_, ok := s.tracked[v]
	return ok
}

// trackGraph registers v and the entities and links one level below it,
// which is what eager-loading relations produces.
func (s *Session) trackGraph(v any) {
	s.track(v)
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !rv.Type().Field(i).IsExported() {
			continue
		}
		switch f.Kind() {
		case reflect.Slice:
			for j := 0; j < f.Len(); j++ {
				s.trackChild(f.Index(j))
			}
		case reflect.Pointer:
			s.trackChild(f)
		}
	}
}

func (s *Session) trackChild(v reflect.Value) {
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	switch c := v.Interface().(type) {
	case model.Entity:
		s.track(c)
	case model.Link:
		s.track(c)
	}
}

func (s *Session) recordChange(v any, action queue.Action) {
	e, ok := v.(model.Entity)
	if !ok {
		return
	}
	s.Record(queue.EntityChanged(kindOf(v), e.GetID(), action))
}

func kindOf(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return strings.ToLower(t.Name())
}
