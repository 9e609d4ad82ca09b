package repository

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/queue"
)

// Shape adjusts a select query. Services carry a default shape (eager
// loads, ordering) that every query starts from.
type Shape func(*bun.SelectQuery) *bun.SelectQuery

// Service is the generic engine behind every feature: queries, creates,
// updates and deletes for one entity kind. It never cascades; callers
// clear dependent rows themselves and get a *ConstraintError otherwise.
type Service[T any] struct {
	store  *Store
	shapes []Shape
}

func NewService[T any](store *Store, shapes ...Shape) *Service[T] {
	return &Service[T]{store: store, shapes: shapes}
}

// WithShape returns a service whose default query applies the receiver's
// shapes first and then the given ones.
func (s *Service[T]) WithShape(shapes ...Shape) *Service[T] {
	all := make([]Shape, 0, len(s.shapes)+len(shapes))
	all = append(all, s.shapes...)
	all = append(all, shapes...)
	return &Service[T]{store: s.store, shapes: all}
}

// Query starts a lazy query over all rows of T. Rows returned by a
// tracking query may be passed to Update and Delete.
func (s *Service[T]) Query(tracking bool) *Query[T] {
	return &Query[T]{svc: s, tracking: tracking}
}

// Create inserts e, assigns its id and writes any links it owns. The id
// is returned for entities; link rows return 0.
func (s *Service[T]) Create(ctx context.Context, e *T) (int64, error) {
	sess, ok := SessionFrom(ctx)
	if !ok {
		return 0, ErrNoSession
	}
	if _, err := sess.tx.NewInsert().Model(e).Exec(ctx); err != nil {
		return 0, translate("create "+kindOf(e), err)
	}
	sess.track(e)
	id := idOf(e)
	if err := s.insertLinks(ctx, sess, e, id); err != nil {
		return 0, err
	}
	sess.recordChange(e, queue.ActionCreated)
	return id, nil
}

// Update writes e, which must have come from a tracking query of the same
// session. Links set on e that the session does not know yet are inserted;
// the caller removes the replaced ones with DeleteAll beforehand.
func (s *Service[T]) Update(ctx context.Context, e *T) error {
	sess, ok := SessionFrom(ctx)
	if !ok {
		return ErrNoSession
	}
	if !sess.isTracked(e) {
		return ErrNotTracked
	}
	if _, err := sess.tx.NewUpdate().Model(e).WherePK().Exec(ctx); err != nil {
		return translate("update "+kindOf(e), err)
	}
	if err := s.insertLinks(ctx, sess, e, idOf(e)); err != nil {
		return err
	}
	sess.recordChange(e, queue.ActionUpdated)
	return nil
}

// Delete removes a tracked row. Rows still referenced elsewhere make the
// store refuse the delete, reported as *ConstraintError.
func (s *Service[T]) Delete(ctx context.Context, e *T) error {
	sess, ok := SessionFrom(ctx)
	if !ok {
		return ErrNoSession
	}
	if !sess.isTracked(e) {
		return ErrNotTracked
	}
	if _, err := sess.tx.NewDelete().Model(e).WherePK().Exec(ctx); err != nil {
		return translate("delete "+kindOf(e), err)
	}
	sess.untrack(e)
	sess.recordChange(e, queue.ActionDeleted)
	return nil
}

// DeleteAll deletes every row in es with the semantics of Delete.
func (s *Service[T]) DeleteAll(ctx context.Context, es []*T) error {
	for _, e := range es {
		if err := s.Delete(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service[T]) insertLinks(ctx context.Context, sess *Session, e *T, ownerID int64) error {
	owner, ok := any(e).(model.Owner)
	if !ok {
		return nil
	}
	for _, l := range owner.Links() {
		if sess.isTracked(l) {
			continue
		}
		l.BindOwner(ownerID)
		if _, err := sess.tx.NewInsert().Model(l).Exec(ctx); err != nil {
			return translate("create "+kindOf(l), err)
		}
		sess.track(l)
	}
	return nil
}

func idOf(v any) int64 {
	if e, ok := v.(model.Entity); ok {
		return e.GetID()
	}
	return 0
}
