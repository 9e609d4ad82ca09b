package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/queue"
	"github.com/iliyamo/pms-backend/internal/repository"
	"github.com/iliyamo/pms-backend/internal/testing/testdb"
)

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, events ...queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return r.err
}

func newStore(t *testing.T) (*repository.Store, *recorder) {
	t.Helper()
	rec := &recorder{}
	return repository.NewStore(testdb.New(t), rec, log.New(os.Stderr)), rec
}

// inSession runs fn in a unit of work and commits when it succeeds.
func inSession(t *testing.T, store *repository.Store, fn func(ctx context.Context) error) error {
	t.Helper()
	ctx, sess, err := store.Begin(context.Background())
	require.NoError(t, err)
	if err := fn(ctx); err != nil {
		require.NoError(t, sess.Rollback())
		return err
	}
	return sess.Commit(ctx)
}

func TestCreateAssignsIdentityAndWritesLinks(t *testing.T) {
	store, rec := newStore(t)
	roles := repository.NewService[model.Role](store)
	users := repository.NewService[model.User](store,
		func(q *bun.SelectQuery) *bun.SelectQuery { return q.Relation("Roles").Relation("UserRoles") })

	var roleID, userID int64
	require.NoError(t, inSession(t, store, func(ctx context.Context) error {
		r := &model.Role{Name: "Admin"}
		id, err := roles.Create(ctx, r)
		roleID = id
		if err != nil {
			return err
		}
		u := &model.User{UserName: "admin", Password: "admin", IsActive: true}
		u.UserRoles = repository.Sync(0, []int64{roleID, roleID}, model.NewUserRole)
		userID, err = users.Create(ctx, u)
		return err
	}))
	assert.Equal(t, int64(1), roleID)
	assert.NotZero(t, userID)

	u, err := users.Query(false).Where("?TableAlias.id = ?", userID).Single(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin"}, u.RoleNames())
	require.Len(t, u.UserRoles, 1)
	assert.Equal(t, userID, u.UserRoles[0].UserID)

	require.Len(t, rec.events, 2)
	assert.Equal(t, "role", rec.events[0].Kind)
	assert.Equal(t, queue.ActionCreated, rec.events[0].Action)
	assert.Equal(t, "user", rec.events[1].Kind)
}

func TestUpdateRequiresTracking(t *testing.T) {
	store, _ := newStore(t)
	tags := repository.NewService[model.Tag](store)

	require.NoError(t, inSession(t, store, func(ctx context.Context) error {
		_, err := tags.Create(ctx, &model.Tag{Name: "Go"})
		return err
	}))

	err := inSession(t, store, func(ctx context.Context) error {
		tag, err := tags.Query(false).First(ctx)
		if err != nil {
			return err
		}
		tag.Name = "Golang"
		return tags.Update(ctx, tag)
	})
	assert.ErrorIs(t, err, repository.ErrNotTracked)

	require.NoError(t, inSession(t, store, func(ctx context.Context) error {
		tag, err := tags.Query(true).First(ctx)
		if err != nil {
			return err
		}
		tag.Name = "Golang"
		return tags.Update(ctx, tag)
	}))

	tag, err := tags.Query(false).Single(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Golang", tag.Name)
}

func TestWritesNeedSession(t *testing.T) {
	store, _ := newStore(t)
	tags := repository.NewService[model.Tag](store)

	_, err := tags.Create(context.Background(), &model.Tag{Name: "Go"})
	assert.ErrorIs(t, err, repository.ErrNoSession)

	_, err = tags.Query(true).List(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoSession)
}

func TestDeleteWithDependentRowsIsConstraintError(t *testing.T) {
	store, _ := newStore(t)
	roles := repository.NewService[model.Role](store)
	users := repository.NewService[model.User](store,
		func(q *bun.SelectQuery) *bun.SelectQuery { return q.Relation("UserRoles") })
	userRoles := repository.NewService[model.UserRole](store)

	require.NoError(t, inSession(t, store, func(ctx context.Context) error {
		r := &model.Role{Name: "Admin"}
		if _, err := roles.Create(ctx, r); err != nil {
			return err
		}
		u := &model.User{UserName: "admin", Password: "admin", IsActive: true}
		u.UserRoles = repository.Sync(0, []int64{r.ID}, model.NewUserRole)
		_, err := users.Create(ctx, u)
		return err
	}))

	err := inSession(t, store, func(ctx context.Context) error {
		r, err := roles.Query(true).Single(ctx)
		if err != nil {
			return err
		}
		return roles.Delete(ctx, r)
	})
	var ce *repository.ConstraintError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, repository.ErrConstraint)

	require.NoError(t, inSession(t, store, func(ctx context.Context) error {
		u, err := users.Query(true).Single(ctx)
		if err != nil {
			return err
		}
		if err := userRoles.DeleteAll(ctx, u.UserRoles); err != nil {
			return err
		}
		r, err := roles.Query(true).Single(ctx)
		if err != nil {
			return err
		}
		return roles.Delete(ctx, r)
	}))

	n, err := roles.Query(false).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateReplacesLinks(t *testing.T) {
	store, _ := newStore(t)
	tags := repository.NewService[model.Tag](store)
	projects := repository.NewService[model.Project](store,
		func(q *bun.SelectQuery) *bun.SelectQuery { return q.Relation("ProjectTags") })
	projectTags := repository.NewService[model.ProjectTag](store)

	var ids []int64
	require.NoError(t, inSession(t, store, func(ctx context.Context) error {
		for _, name := range []string{"a", "b", "c"} {
			id, err := tags.Create(ctx, &model.Tag{Name: name})
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		p := &model.Project{Name: "Project one"}
		p.ProjectTags = repository.Sync(0, ids[:2], model.NewProjectTag)
		_, err := projects.Create(ctx, p)
		return err
	}))

	require.NoError(t, inSession(t, store, func(ctx context.Context) error {
		p, err := projects.Query(true).Single(ctx)
		if err != nil {
			return err
		}
		if err := projectTags.DeleteAll(ctx, p.ProjectTags); err != nil {
			return err
		}
		p.ProjectTags = repository.Sync(p.ID, ids[1:], model.NewProjectTag)
		return projects.Update(ctx, p)
	}))

	p, err := projects.Query(false).Single(context.Background())
	require.NoError(t, err)
	got := repository.IDs(p.ProjectTags, func(pt *model.ProjectTag) int64 { return pt.TagID })
	assert.ElementsMatch(t, ids[1:], got)
}

func TestUnknownTargetSurfacesAsConstraintError(t *testing.T) {
	store, _ := newStore(t)
	users := repository.NewService[model.User](store)

	err := inSession(t, store, func(ctx context.Context) error {
		u := &model.User{UserName: "ghost", Password: "ghost"}
		u.UserRoles = repository.Sync(0, []int64{42}, model.NewUserRole)
		_, err := users.Create(ctx, u)
		return err
	})
	assert.ErrorIs(t, err, repository.ErrConstraint)

	n, err := users.Query(false).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "failed unit of work must not leave the user row behind")
}

func TestRollbackDropsEvents(t *testing.T) {
	store, rec := newStore(t)
	tags := repository.NewService[model.Tag](store)

	ctx, sess, err := store.Begin(context.Background())
	require.NoError(t, err)
	_, err = tags.Create(ctx, &model.Tag{Name: "Go"})
	require.NoError(t, err)
	require.NoError(t, sess.Rollback())
	require.NoError(t, sess.Rollback())

	assert.Empty(t, rec.events)
	exists, err := tags.Query(false).Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPublishFailureDoesNotFailCommit(t *testing.T) {
	store, rec := newStore(t)
	rec.err = errors.New("broker down")
	tags := repository.NewService[model.Tag](store)

	require.NoError(t, inSession(t, store, func(ctx context.Context) error {
		_, err := tags.Create(ctx, &model.Tag{Name: "Go"})
		return err
	}))
	n, err := tags.Query(false).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSingleAndFirst(t *testing.T) {
	store, _ := newStore(t)
	skills := repository.NewService[model.Skill](store,
		func(q *bun.SelectQuery) *bun.SelectQuery { return q.OrderExpr("?TableAlias.name ASC") })

	_, err := skills.Query(false).Single(context.Background())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, inSession(t, store, func(ctx context.Context) error {
		for _, name := range []string{"b", "a"} {
			if _, err := skills.Create(ctx, &model.Skill{Name: name}); err != nil {
				return err
			}
		}
		return nil
	}))

	_, err = skills.Query(false).Single(context.Background())
	assert.ErrorIs(t, err, repository.ErrMultipleRows)

	first, err := skills.Query(false).First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", first.Name)

	filtered, err := skills.Query(false).Where("UPPER(?TableAlias.name) = ?", "B").Single(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", filtered.Name)
}
