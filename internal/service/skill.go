package service

import (
	"context"
	"strings"

	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/repository"
)

type SkillQueryResponse struct {
	QueryResponse
	Name    string  `json:"name"`
	UserIDs []int64 `json:"userIds"`
}

func (h *Handlers) QuerySkills(ctx context.Context, req SkillQueryRequest) ([]SkillQueryResponse, error) {
	skills, err := contains(byID(h.skills.Query(false), req.ID), "name", req.Name).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SkillQueryResponse, 0, len(skills))
	for _, s := range skills {
		out = append(out, SkillQueryResponse{
			QueryResponse: QueryResponse{ID: s.ID},
			Name:          s.Name,
			UserIDs:       repository.IDs(s.UserSkills, func(us *model.UserSkill) int64 { return us.UserID }),
		})
	}
	return out, nil
}

func (h *Handlers) CreateSkill(ctx context.Context, req SkillCreateRequest) (CommandResponse, error) {
	exists, err := taken(ctx, h.skills.Query(false), "name", req.Name, 0)
	if err != nil {
		return CommandResponse{}, err
	}
	if exists {
		return Failure(ErrConflict, "Skill with the same name exists!"), nil
	}
	id, err := h.skills.Create(ctx, &model.Skill{Name: strings.TrimSpace(req.Name)})
	if err != nil {
		return CommandResponse{}, err
	}
	return Success("Skill created successfully.", id), nil
}

func (h *Handlers) UpdateSkill(ctx context.Context, req SkillUpdateRequest) (CommandResponse, error) {
	exists, err := taken(ctx, h.skills.Query(false), "name", req.Name, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if exists {
		return Failure(ErrConflict, "Skill with the same name exists!"), nil
	}
	skill, ok, err := load(ctx, h.skills, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "Skill not found!"), nil
	}
	skill.Name = strings.TrimSpace(req.Name)
	if err := h.skills.Update(ctx, skill); err != nil {
		return CommandResponse{}, err
	}
	return Success("Skill updated successfully.", skill.ID), nil
}

// DeleteSkill detaches the skill from every user before removing it.
func (h *Handlers) DeleteSkill(ctx context.Context, req SkillDeleteRequest) (CommandResponse, error) {
	skill, ok, err := load(ctx, h.skills, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "Skill not found!"), nil
	}
	if err := h.userSkills.DeleteAll(ctx, skill.UserSkills); err != nil {
		return CommandResponse{}, err
	}
	if err := h.skills.Delete(ctx, skill); err != nil {
		return CommandResponse{}, err
	}
	return Success("Skill deleted successfully.", skill.ID), nil
}
