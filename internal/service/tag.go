package service

import (
	"context"
	"strings"

	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/repository"
)

type TagQueryResponse struct {
	QueryResponse
	Name       string   `json:"name"`
	ProjectIDs []int64  `json:"projectIds"`
	Projects   []string `json:"projects"`
}

func (h *Handlers) QueryTags(ctx context.Context, req TagQueryRequest) ([]TagQueryResponse, error) {
	tags, err := contains(byID(h.tags.Query(false), req.ID), "name", req.Name).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TagQueryResponse, 0, len(tags))
	for _, t := range tags {
		projects := make([]string, 0, len(t.Projects))
		for _, p := range t.Projects {
			projects = append(projects, p.Name)
		}
		out = append(out, TagQueryResponse{
			QueryResponse: QueryResponse{ID: t.ID},
			Name:          t.Name,
			ProjectIDs:    repository.IDs(t.ProjectTags, func(pt *model.ProjectTag) int64 { return pt.ProjectID }),
			Projects:      projects,
		})
	}
	return out, nil
}

func (h *Handlers) CreateTag(ctx context.Context, req TagCreateRequest) (CommandResponse, error) {
	exists, err := taken(ctx, h.tags.Query(false), "name", req.Name, 0)
	if err != nil {
		return CommandResponse{}, err
	}
	if exists {
		return Failure(ErrConflict, "Tag with the same name exists!"), nil
	}
	id, err := h.tags.Create(ctx, &model.Tag{Name: strings.TrimSpace(req.Name)})
	if err != nil {
		return CommandResponse{}, err
	}
	return Success("Tag created successfully.", id), nil
}

func (h *Handlers) UpdateTag(ctx context.Context, req TagUpdateRequest) (CommandResponse, error) {
	exists, err := taken(ctx, h.tags.Query(false), "name", req.Name, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if exists {
		return Failure(ErrConflict, "Tag with the same name exists!"), nil
	}
	tag, ok, err := load(ctx, h.tags, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "Tag not found!"), nil
	}
	tag.Name = strings.TrimSpace(req.Name)
	if err := h.tags.Update(ctx, tag); err != nil {
		return CommandResponse{}, err
	}
	return Success("Tag updated successfully.", tag.ID), nil
}

func (h *Handlers) DeleteTag(ctx context.Context, req TagDeleteRequest) (CommandResponse, error) {
	tag, ok, err := load(ctx, h.tags, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "Tag not found!"), nil
	}
	if err := h.projectTags.DeleteAll(ctx, tag.ProjectTags); err != nil {
		return CommandResponse{}, err
	}
	if err := h.tags.Delete(ctx, tag); err != nil {
		return CommandResponse{}, err
	}
	return Success("Tag deleted successfully.", tag.ID), nil
}
