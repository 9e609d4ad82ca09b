package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pms-backend/internal/service"
)

const dateLayout = "2006-01-02"

func (a *API) Roles() Resource {
	return crud[service.RoleQueryRequest, service.RoleQueryResponse,
		service.RoleCreateRequest, service.RoleUpdateRequest, service.RoleDeleteRequest]{
		query: func(c echo.Context) (service.RoleQueryRequest, error) {
			var q service.RoleQueryRequest
			err := echo.QueryParamsBinder(c).Int64("id", &q.ID).String("name", &q.Name).BindError()
			return q, err
		},
		withID: func(q service.RoleQueryRequest, id int64) service.RoleQueryRequest { q.ID = id; return q },
		update: func(u service.RoleUpdateRequest, id int64) service.RoleUpdateRequest { u.ID = id; return u },
		remove: func(id int64) service.RoleDeleteRequest { return service.RoleDeleteRequest{ID: id} },
	}.resource(a)
}

func (a *API) Skills() Resource {
	return crud[service.SkillQueryRequest, service.SkillQueryResponse,
		service.SkillCreateRequest, service.SkillUpdateRequest, service.SkillDeleteRequest]{
		query: func(c echo.Context) (service.SkillQueryRequest, error) {
			var q service.SkillQueryRequest
			err := echo.QueryParamsBinder(c).Int64("id", &q.ID).String("name", &q.Name).BindError()
			return q, err
		},
		withID: func(q service.SkillQueryRequest, id int64) service.SkillQueryRequest { q.ID = id; return q },
		update: func(u service.SkillUpdateRequest, id int64) service.SkillUpdateRequest { u.ID = id; return u },
		remove: func(id int64) service.SkillDeleteRequest { return service.SkillDeleteRequest{ID: id} },
	}.resource(a)
}

func (a *API) Tags() Resource {
	return crud[service.TagQueryRequest, service.TagQueryResponse,
		service.TagCreateRequest, service.TagUpdateRequest, service.TagDeleteRequest]{
		query: func(c echo.Context) (service.TagQueryRequest, error) {
			var q service.TagQueryRequest
			err := echo.QueryParamsBinder(c).Int64("id", &q.ID).String("name", &q.Name).BindError()
			return q, err
		},
		withID: func(q service.TagQueryRequest, id int64) service.TagQueryRequest { q.ID = id; return q },
		update: func(u service.TagUpdateRequest, id int64) service.TagUpdateRequest { u.ID = id; return u },
		remove: func(id int64) service.TagDeleteRequest { return service.TagDeleteRequest{ID: id} },
	}.resource(a)
}

func (a *API) Projects() Resource {
	return crud[service.ProjectQueryRequest, service.ProjectQueryResponse,
		service.ProjectCreateRequest, service.ProjectUpdateRequest, service.ProjectDeleteRequest]{
		query: func(c echo.Context) (service.ProjectQueryRequest, error) {
			var q service.ProjectQueryRequest
			err := echo.QueryParamsBinder(c).
				Int64("id", &q.ID).
				String("name", &q.Name).
				Int64("tagId", &q.TagID).
				BindError()
			return q, err
		},
		withID: func(q service.ProjectQueryRequest, id int64) service.ProjectQueryRequest { q.ID = id; return q },
		update: func(u service.ProjectUpdateRequest, id int64) service.ProjectUpdateRequest { u.ID = id; return u },
		remove: func(id int64) service.ProjectDeleteRequest { return service.ProjectDeleteRequest{ID: id} },
	}.resource(a)
}

// Works accepts startDateBegin, startDateEnd, dueDateBegin and dueDateEnd
// as YYYY-MM-DD.
func (a *API) Works() Resource {
	return crud[service.WorkQueryRequest, service.WorkQueryResponse,
		service.WorkCreateRequest, service.WorkUpdateRequest, service.WorkDeleteRequest]{
		query: func(c echo.Context) (service.WorkQueryRequest, error) {
			var q service.WorkQueryRequest
			err := echo.QueryParamsBinder(c).
				Int64("id", &q.ID).
				String("name", &q.Name).
				Time("startDateBegin", &q.StartDateBegin, dateLayout).
				Time("startDateEnd", &q.StartDateEnd, dateLayout).
				Time("dueDateBegin", &q.DueDateBegin, dateLayout).
				Time("dueDateEnd", &q.DueDateEnd, dateLayout).
				BindError()
			if err != nil {
				return q, err
			}
			if v := c.QueryParam("projectId"); v != "" {
				id, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return q, err
				}
				q.ProjectID = &id
			}
			return q, nil
		},
		withID: func(q service.WorkQueryRequest, id int64) service.WorkQueryRequest { q.ID = id; return q },
		update: func(u service.WorkUpdateRequest, id int64) service.WorkUpdateRequest { u.ID = id; return u },
		remove: func(id int64) service.WorkDeleteRequest { return service.WorkDeleteRequest{ID: id} },
	}.resource(a)
}

func (a *API) Users() Resource {
	return crud[service.UserQueryRequest, service.UserQueryResponse,
		service.UserCreateRequest, service.UserUpdateRequest, service.UserDeleteRequest]{
		query: func(c echo.Context) (service.UserQueryRequest, error) {
			var q service.UserQueryRequest
			err := echo.QueryParamsBinder(c).Int64("id", &q.ID).String("userName", &q.UserName).BindError()
			if err != nil {
				return q, err
			}
			if v := c.QueryParam("isActive"); v != "" {
				active, err := strconv.ParseBool(v)
				if err != nil {
					return q, err
				}
				q.IsActive = &active
			}
			return q, nil
		},
		withID: func(q service.UserQueryRequest, id int64) service.UserQueryRequest { q.ID = id; return q },
		update: func(u service.UserUpdateRequest, id int64) service.UserUpdateRequest { u.ID = id; return u },
		remove: func(id int64) service.UserDeleteRequest { return service.UserDeleteRequest{ID: id} },
	}.resource(a)
}
