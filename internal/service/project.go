package service

import (
	"context"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/repository"
)

type ProjectQueryResponse struct {
	QueryResponse
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Version     *float64 `json:"version"`
	TagIDs      []int64  `json:"tagIds"`
	Tags        []string `json:"tags"`
}

func (h *Handlers) QueryProjects(ctx context.Context, req ProjectQueryRequest) ([]ProjectQueryResponse, error) {
	q := contains(byID(h.projects.Query(false), req.ID), "name", req.Name)
	if req.TagID != 0 {
		q = q.Where("EXISTS (SELECT 1 FROM project_tags AS x WHERE x.project_id = ?TableAlias.id AND x.tag_id = ?)", req.TagID)
	}
	projects, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectQueryResponse, 0, len(projects))
	for _, p := range projects {
		tags := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			tags = append(tags, t.Name)
		}
		out = append(out, ProjectQueryResponse{
			QueryResponse: QueryResponse{ID: p.ID},
			Name:          p.Name,
			Description:   p.Description,
			URL:           p.URL,
			Version:       p.Version,
			TagIDs:        repository.IDs(p.ProjectTags, func(pt *model.ProjectTag) int64 { return pt.TagID }),
			Tags:          tags,
		})
	}
	return out, nil
}

func (h *Handlers) CreateProject(ctx context.Context, req ProjectCreateRequest) (CommandResponse, error) {
	exists, err := taken(ctx, h.projects.Query(false), "name", req.Name, 0)
	if err != nil {
		return CommandResponse{}, err
	}
	if exists {
		return Failure(ErrConflict, "Project with the same name exists!"), nil
	}
	p := &model.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		URL:         strings.TrimSpace(req.URL),
		Version:     req.Version,
		ProjectTags: repository.Sync(0, req.TagIDs, model.NewProjectTag),
	}
	id, err := h.projects.Create(ctx, p)
	if errors.Is(err, repository.ErrConstraint) {
		return Failure(ErrConstraint, "Tag not found!"), nil
	}
	if err != nil {
		return CommandResponse{}, err
	}
	return Success("Project created successfully.", id), nil
}

func (h *Handlers) UpdateProject(ctx context.Context, req ProjectUpdateRequest) (CommandResponse, error) {
	exists, err := taken(ctx, h.projects.Query(false), "name", req.Name, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if exists {
		return Failure(ErrConflict, "Project with the same name exists!"), nil
	}
	p, ok, err := load(ctx, h.projects, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "Project not found!"), nil
	}
	if err := h.projectTags.DeleteAll(ctx, p.ProjectTags); err != nil {
		return CommandResponse{}, err
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Description = strings.TrimSpace(req.Description)
	p.URL = strings.TrimSpace(req.URL)
	p.Version = req.Version
	p.ProjectTags = repository.Sync(p.ID, req.TagIDs, model.NewProjectTag)
	err = h.projects.Update(ctx, p)
	if errors.Is(err, repository.ErrConstraint) {
		return Failure(ErrConstraint, "Tag not found!"), nil
	}
	if err != nil {
		return CommandResponse{}, err
	}
	return Success("Project updated successfully.", p.ID), nil
}

// DeleteProject removes the project's tag links and detaches its works.
// Works outlive their project.
func (h *Handlers) DeleteProject(ctx context.Context, req ProjectDeleteRequest) (CommandResponse, error) {
	p, err := h.projects.Query(true).
		Where("?TableAlias.id = ?", req.ID).
		Apply(func(q *bun.SelectQuery) *bun.SelectQuery { return q.Relation("Works") }).
		Single(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return Failure(ErrNotFound, "Project not found!"), nil
	}
	if err != nil {
		return CommandResponse{}, err
	}
	for _, w := range p.Works {
		w.ProjectID = nil
		if err := h.works.Update(ctx, w); err != nil {
			return CommandResponse{}, err
		}
	}
	if err := h.projectTags.DeleteAll(ctx, p.ProjectTags); err != nil {
		return CommandResponse{}, err
	}
	if err := h.projects.Delete(ctx, p); err != nil {
		return CommandResponse{}, err
	}
	return Success("Project deleted successfully.", p.ID), nil
}
