package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/repository"
)

type RoleQueryResponse struct {
	QueryResponse
	Name    string  `json:"name"`
	UserIDs []int64 `json:"userIds"`
}

func (h *Handlers) QueryRoles(ctx context.Context, req RoleQueryRequest) ([]RoleQueryResponse, error) {
	q := contains(byID(h.roles.Query(false), req.ID), "name", req.Name)
	roles, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleQueryResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleQueryResponse{
			QueryResponse: QueryResponse{ID: r.ID},
			Name:          r.Name,
			UserIDs:       repository.IDs(r.UserRoles, func(ur *model.UserRole) int64 { return ur.UserID }),
		})
	}
	return out, nil
}

func (h *Handlers) CreateRole(ctx context.Context, req RoleCreateRequest) (CommandResponse, error) {
	exists, err := taken(ctx, h.roles.Query(false), "name", req.Name, 0)
	if err != nil {
		return CommandResponse{}, err
	}
	if exists {
		return Failure(ErrConflict, "Role with the same name exists!"), nil
	}
	id, err := h.roles.Create(ctx, &model.Role{Name: strings.TrimSpace(req.Name)})
	if err != nil {
		return CommandResponse{}, err
	}
	return Success("Role created successfully.", id), nil
}

func (h *Handlers) UpdateRole(ctx context.Context, req RoleUpdateRequest) (CommandResponse, error) {
	exists, err := taken(ctx, h.roles.Query(false), "name", req.Name, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if exists {
		return Failure(ErrConflict, "Role with the same name exists!"), nil
	}
	role, ok, err := load(ctx, h.roles, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "Role not found!"), nil
	}
	role.Name = strings.TrimSpace(req.Name)
	if err := h.roles.Update(ctx, role); err != nil {
		return CommandResponse{}, err
	}
	return Success("Role updated successfully.", role.ID), nil
}

// DeleteRole refuses to remove a role that users still hold; the store's
// foreign key decides.
func (h *Handlers) DeleteRole(ctx context.Context, req RoleDeleteRequest) (CommandResponse, error) {
	role, ok, err := load(ctx, h.roles, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "Role not found!"), nil
	}
	if err := h.roles.Delete(ctx, role); err != nil {
		if errors.Is(err, repository.ErrConstraint) {
			return Failure(ErrConstraint, "Role can't be deleted because it has relational users!"), nil
		}
		return CommandResponse{}, err
	}
	return Success("Role deleted successfully.", role.ID), nil
}
