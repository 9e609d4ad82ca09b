// Package service holds the feature handlers: one function per request
// type, registered with the dispatcher. Handlers see a context that
// carries the request's unit of work and never commit on their own.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/uptrace/bun"

	"github.com/iliyamo/pms-backend/internal/dispatch"
	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/repository"
	"github.com/iliyamo/pms-backend/internal/token"
	"github.com/iliyamo/pms-backend/internal/utils"
)

// Handlers bundles the entity services and collaborators the features need.
type Handlers struct {
	store *repository.Store

	roles    *repository.Service[model.Role]
	skills   *repository.Service[model.Skill]
	tags     *repository.Service[model.Tag]
	projects *repository.Service[model.Project]
	works    *repository.Service[model.Work]
	users    *repository.Service[model.User]

	userRoles   *repository.Service[model.UserRole]
	userSkills  *repository.Service[model.UserSkill]
	userDetails *repository.Service[model.UserDetail]
	projectTags *repository.Service[model.ProjectTag]

	tokens      *token.Service
	hasher      utils.PasswordHasher
	phoneRegion string
}

// New wires the entity services over store. phoneRegion is the default
// region for phone numbers given without a country code.
func New(store *repository.Store, tokens *token.Service, hasher utils.PasswordHasher, phoneRegion string) *Handlers {
	if hasher == nil {
		hasher = utils.PlainHasher{}
	}
	return &Handlers{
		store: store,

		roles: repository.NewService[model.Role](store, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Relation("UserRoles").OrderExpr("?TableAlias.name ASC")
		}),
		skills: repository.NewService[model.Skill](store, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Relation("UserSkills").OrderExpr("?TableAlias.name ASC")
		}),
		tags: repository.NewService[model.Tag](store, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Relation("ProjectTags").Relation("Projects").OrderExpr("?TableAlias.name ASC")
		}),
		projects: repository.NewService[model.Project](store, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Relation("ProjectTags").Relation("Tags").
				OrderExpr("?TableAlias.name ASC").
				OrderExpr("?TableAlias.version DESC")
		}),
		works: repository.NewService[model.Work](store, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Relation("Project").
				OrderExpr("?TableAlias.due_date DESC").
				OrderExpr("?TableAlias.start_date DESC").
				OrderExpr("?TableAlias.name ASC")
		}),
		users: repository.NewService[model.User](store, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Relation("UserRoles").Relation("UserSkills").Relation("UserDetails").
				Relation("Roles").Relation("Skills").
				OrderExpr("?TableAlias.user_name ASC")
		}),

		userRoles:   repository.NewService[model.UserRole](store),
		userSkills:  repository.NewService[model.UserSkill](store),
		userDetails: repository.NewService[model.UserDetail](store),
		projectTags: repository.NewService[model.ProjectTag](store),

		tokens:      tokens,
		hasher:      hasher,
		phoneRegion: phoneRegion,
	}
}

// Register adds every feature handler to r and declares every request
// type, so Build fails if one is left out.
func (h *Handlers) Register(r *dispatch.Registry) {
	dispatch.Register(r, h.QueryRoles)
	dispatch.Register(r, h.CreateRole)
	dispatch.Register(r, h.UpdateRole)
	dispatch.Register(r, h.DeleteRole)

	dispatch.Register(r, h.QuerySkills)
	dispatch.Register(r, h.CreateSkill)
	dispatch.Register(r, h.UpdateSkill)
	dispatch.Register(r, h.DeleteSkill)

	dispatch.Register(r, h.QueryTags)
	dispatch.Register(r, h.CreateTag)
	dispatch.Register(r, h.UpdateTag)
	dispatch.Register(r, h.DeleteTag)

	dispatch.Register(r, h.QueryProjects)
	dispatch.Register(r, h.CreateProject)
	dispatch.Register(r, h.UpdateProject)
	dispatch.Register(r, h.DeleteProject)

	dispatch.Register(r, h.QueryWorks)
	dispatch.Register(r, h.CreateWork)
	dispatch.Register(r, h.UpdateWork)
	dispatch.Register(r, h.DeleteWork)

	dispatch.Register(r, h.QueryUsers)
	dispatch.Register(r, h.CreateUser)
	dispatch.Register(r, h.UpdateUser)
	dispatch.Register(r, h.DeleteUser)

	dispatch.Register(r, h.Login)
	dispatch.Register(r, h.Refresh)

	expectAll(r)
}

func expectAll(r *dispatch.Registry) {
	dispatch.Expect[RoleQueryRequest](r)
	dispatch.Expect[RoleCreateRequest](r)
	dispatch.Expect[RoleUpdateRequest](r)
	dispatch.Expect[RoleDeleteRequest](r)
	dispatch.Expect[SkillQueryRequest](r)
	dispatch.Expect[SkillCreateRequest](r)
	dispatch.Expect[SkillUpdateRequest](r)
	dispatch.Expect[SkillDeleteRequest](r)
	dispatch.Expect[TagQueryRequest](r)
	dispatch.Expect[TagCreateRequest](r)
	dispatch.Expect[TagUpdateRequest](r)
	dispatch.Expect[TagDeleteRequest](r)
	dispatch.Expect[ProjectQueryRequest](r)
	dispatch.Expect[ProjectCreateRequest](r)
	dispatch.Expect[ProjectUpdateRequest](r)
	dispatch.Expect[ProjectDeleteRequest](r)
	dispatch.Expect[WorkQueryRequest](r)
	dispatch.Expect[WorkCreateRequest](r)
	dispatch.Expect[WorkUpdateRequest](r)
	dispatch.Expect[WorkDeleteRequest](r)
	dispatch.Expect[UserQueryRequest](r)
	dispatch.Expect[UserCreateRequest](r)
	dispatch.Expect[UserUpdateRequest](r)
	dispatch.Expect[UserDeleteRequest](r)
	dispatch.Expect[TokenRequest](r)
	dispatch.Expect[RefreshTokenRequest](r)
}

// NewDispatcher registers h and builds a dispatcher whose unit of work is
// a store session.
func NewDispatcher(h *Handlers, logger *log.Logger) (*dispatch.Dispatcher, error) {
	r := dispatch.NewRegistry()
	h.Register(r)
	return r.Build(dispatch.WithScope(h.scope), dispatch.WithLogger(logger))
}

func (h *Handlers) scope(ctx context.Context) (context.Context, dispatch.Scope, error) {
	sctx, sess, err := h.store.Begin(ctx)
	if err != nil {
		return ctx, nil, err
	}
	return sctx, sess, nil
}

// normalize is the comparison form of names: trimmed and upper-cased.
func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// taken reports whether another row already has column equal to value
// under normalize. exceptID excludes the row being updated.
func taken[T any](ctx context.Context, q *repository.Query[T], column, value string, exceptID int64) (bool, error) {
	q = q.Where("UPPER(TRIM(?TableAlias.?)) = ?", bun.Ident(column), normalize(value))
	if exceptID != 0 {
		q = q.Where("?TableAlias.id <> ?", exceptID)
	}
	return q.Exists(ctx)
}

// contains filters column by a case-insensitive substring.
func contains[T any](q *repository.Query[T], column, value string) *repository.Query[T] {
	value = normalize(value)
	if value == "" {
		return q
	}
	return q.Where("UPPER(?TableAlias.?) LIKE ?", bun.Ident(column), "%"+value+"%")
}

func byID[T any](q *repository.Query[T], id int64) *repository.Query[T] {
	if id == 0 {
		return q
	}
	return q.Where("?TableAlias.id = ?", id)
}

// load fetches the row with id from a tracking query. A missing row
// yields ok=false with a nil error.
func load[T any](ctx context.Context, svc *repository.Service[T], id int64) (*T, bool, error) {
	e, err := svc.Query(true).Where("?TableAlias.id = ?", id).Single(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}
