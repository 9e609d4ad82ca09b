package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/pms-backend/internal/model"
)

type WorkQueryResponse struct {
	QueryResponse
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	DueDate     time.Time `json:"dueDate"`
	ProjectID   *int64    `json:"projectId"`
	Project     string    `json:"project,omitempty"`
}

func (h *Handlers) QueryWorks(ctx context.Context, req WorkQueryRequest) ([]WorkQueryResponse, error) {
	q := contains(byID(h.works.Query(false), req.ID), "name", req.Name)
	if req.ProjectID != nil {
		q = q.Where("?TableAlias.project_id = ?", *req.ProjectID)
	}
	if !req.StartDateBegin.IsZero() {
		q = q.Where("?TableAlias.start_date >= ?", req.StartDateBegin.UTC())
	}
	if !req.StartDateEnd.IsZero() {
		q = q.Where("?TableAlias.start_date <= ?", req.StartDateEnd.UTC())
	}
	if !req.DueDateBegin.IsZero() {
		q = q.Where("?TableAlias.due_date >= ?", req.DueDateBegin.UTC())
	}
	if !req.DueDateEnd.IsZero() {
		q = q.Where("?TableAlias.due_date <= ?", req.DueDateEnd.UTC())
	}
	works, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]WorkQueryResponse, 0, len(works))
	for _, w := range works {
		r := WorkQueryResponse{
			QueryResponse: QueryResponse{ID: w.ID},
			Name:          w.Name,
			Description:   w.Description,
			StartDate:     w.StartDate,
			DueDate:       w.DueDate,
			ProjectID:     w.ProjectID,
		}
		if w.Project != nil && w.Project.ID != 0 {
			r.Project = w.Project.Name
		}
		out = append(out, r)
	}
	return out, nil
}

// checkWork applies the rules shared by create and update. A non-empty
// response is the failure to return.
func (h *Handlers) checkWork(ctx context.Context, id int64, name string, start, due time.Time, projectID *int64) (*CommandResponse, error) {
	exists, err := taken(ctx, h.works.Query(false), "name", name, id)
	if err != nil {
		return nil, err
	}
	if exists {
		r := Failure(ErrConflict, "Work with the same name exists!")
		return &r, nil
	}
	if due.Before(start) {
		r := Failure(ErrInvalid, "Due date must be later or equal to start date!")
		return &r, nil
	}
	if projectID != nil {
		found, err := byID(h.projects.Query(false), *projectID).Exists(ctx)
		if err != nil {
			return nil, err
		}
		if !found {
			r := Failure(ErrNotFound, "Project not found!")
			return &r, nil
		}
	}
	return nil, nil
}

func (h *Handlers) CreateWork(ctx context.Context, req WorkCreateRequest) (CommandResponse, error) {
	failed, err := h.checkWork(ctx, 0, req.Name, req.StartDate, req.DueDate, req.ProjectID)
	if err != nil {
		return CommandResponse{}, err
	}
	if failed != nil {
		return *failed, nil
	}
	id, err := h.works.Create(ctx, &model.Work{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		StartDate:   req.StartDate.UTC(),
		DueDate:     req.DueDate.UTC(),
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		return CommandResponse{}, err
	}
	return Success("Work created successfully.", id), nil
}

func (h *Handlers) UpdateWork(ctx context.Context, req WorkUpdateRequest) (CommandResponse, error) {
	failed, err := h.checkWork(ctx, req.ID, req.Name, req.StartDate, req.DueDate, req.ProjectID)
	if err != nil {
		return CommandResponse{}, err
	}
	if failed != nil {
		return *failed, nil
	}
	w, ok, err := load(ctx, h.works, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "Work not found!"), nil
	}
	w.Name = strings.TrimSpace(req.Name)
	w.Description = strings.TrimSpace(req.Description)
	w.StartDate = req.StartDate.UTC()
	w.DueDate = req.DueDate.UTC()
	w.ProjectID = req.ProjectID
	if err := h.works.Update(ctx, w); err != nil {
		return CommandResponse{}, err
	}
	return Success("Work updated successfully.", w.ID), nil
}

func (h *Handlers) DeleteWork(ctx context.Context, req WorkDeleteRequest) (CommandResponse, error) {
	w, ok, err := load(ctx, h.works, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "Work not found!"), nil
	}
	if err := h.works.Delete(ctx, w); err != nil {
		return CommandResponse{}, err
	}
	return Success("Work deleted successfully.", w.ID), nil
}
