package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/repository"
)

// UserQueryResponse is the public projection of a user. Credentials and
// refresh state are never part of it.
type UserQueryResponse struct {
	QueryResponse
	UserName         string     `json:"userName"`
	IsActive         bool       `json:"isActive"`
	Name             string     `json:"name"`
	Surname          string     `json:"surname"`
	FullName         string     `json:"fullName"`
	RegistrationDate *time.Time `json:"registrationDate"`
	RoleIDs          []int64    `json:"roleIds"`
	Roles            []string   `json:"roles"`
	SkillIDs         []int64    `json:"skillIds"`
	Skills           []string   `json:"skills"`
	Phone            string     `json:"phone,omitempty"`
	Email            string     `json:"email,omitempty"`
	Address          string     `json:"address,omitempty"`
}

func (h *Handlers) QueryUsers(ctx context.Context, req UserQueryRequest) ([]UserQueryResponse, error) {
	q := contains(byID(h.users.Query(false), req.ID), "user_name", req.UserName)
	if req.IsActive != nil {
		q = q.Where("?TableAlias.is_active = ?", *req.IsActive)
	}
	users, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserQueryResponse, 0, len(users))
	for _, u := range users {
		out = append(out, projectUser(u))
	}
	return out, nil
}

func projectUser(u *model.User) UserQueryResponse {
	skills := make([]string, 0, len(u.Skills))
	for _, s := range u.Skills {
		skills = append(skills, s.Name)
	}
	r := UserQueryResponse{
		QueryResponse:    QueryResponse{ID: u.ID},
		UserName:         u.UserName,
		IsActive:         u.IsActive,
		Name:             u.Name,
		Surname:          u.Surname,
		FullName:         strings.TrimSpace(u.Name + " " + u.Surname),
		RegistrationDate: u.RegistrationDate,
		RoleIDs:          repository.IDs(u.UserRoles, func(ur *model.UserRole) int64 { return ur.RoleID }),
		Roles:            u.RoleNames(),
		SkillIDs:         repository.IDs(u.UserSkills, func(us *model.UserSkill) int64 { return us.SkillID }),
		Skills:           skills,
	}
	if d := u.FirstDetail(); d != nil {
		r.Phone, r.Email, r.Address = d.Phone, d.Email, d.Address
	}
	return r
}

// userFields is what create and update have in common.
type userFields struct {
	id               int64
	userName         string
	password         string
	isActive         bool
	name             string
	surname          string
	registrationDate *time.Time
	roleIDs          []int64
	skillIDs         []int64
	phone            string
	email            string
	address          string
}

// checkUser runs the uniqueness rules and builds the detail row. A non-nil
// response is the failure to return.
func (h *Handlers) checkUser(ctx context.Context, f userFields) (*model.UserDetail, *CommandResponse, error) {
	exists, err := taken(ctx, h.users.Query(false), "user_name", f.userName, f.id)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		r := Failure(ErrConflict, "User with the same user name exists!")
		return nil, &r, nil
	}
	if strings.TrimSpace(f.name) != "" && strings.TrimSpace(f.surname) != "" {
		q := h.users.Query(false).
			Where("UPPER(TRIM(?TableAlias.name)) = ?", normalize(f.name)).
			Where("UPPER(TRIM(?TableAlias.surname)) = ?", normalize(f.surname))
		if f.id != 0 {
			q = q.Where("?TableAlias.id <> ?", f.id)
		}
		exists, err := q.Exists(ctx)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			r := Failure(ErrConflict, "User with the same full name exists!")
			return nil, &r, nil
		}
	}
	detail, ok := h.detail(f.phone, f.email, f.address)
	if !ok {
		r := Failure(ErrInvalid, "Invalid phone number!")
		return nil, &r, nil
	}
	return detail, nil, nil
}

// detail builds the contact row, nil when no contact data was given.
// Phone numbers are stored in E.164.
func (h *Handlers) detail(phone, email, address string) (*model.UserDetail, bool) {
	phone, email, address = strings.TrimSpace(phone), strings.TrimSpace(email), strings.TrimSpace(address)
	if phone == "" && email == "" && address == "" {
		return nil, true
	}
	if phone != "" {
		num, err := phonenumbers.Parse(phone, h.phoneRegion)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			return nil, false
		}
		phone = phonenumbers.Format(num, phonenumbers.E164)
	}
	return &model.UserDetail{Phone: phone, Email: email, Address: address}, true
}

func (h *Handlers) apply(u *model.User, f userFields, password string, detail *model.UserDetail) {
	u.UserName = strings.TrimSpace(f.userName)
	u.Password = password
	u.IsActive = f.isActive
	u.Name = strings.TrimSpace(f.name)
	u.Surname = strings.TrimSpace(f.surname)
	u.RegistrationDate = f.registrationDate
	u.UserRoles = repository.Sync(u.ID, f.roleIDs, model.NewUserRole)
	u.UserSkills = repository.Sync(u.ID, f.skillIDs, model.NewUserSkill)
	u.UserDetails = nil
	if detail != nil {
		u.UserDetails = []*model.UserDetail{detail}
	}
}

func (h *Handlers) CreateUser(ctx context.Context, req UserCreateRequest) (CommandResponse, error) {
	f := req.fields()
	detail, failed, err := h.checkUser(ctx, f)
	if err != nil {
		return CommandResponse{}, err
	}
	if failed != nil {
		return *failed, nil
	}
	password, err := h.hasher.Hash(f.password)
	if err != nil {
		return CommandResponse{}, err
	}
	u := &model.User{}
	h.apply(u, f, password, detail)
	id, err := h.users.Create(ctx, u)
	if errors.Is(err, repository.ErrConstraint) {
		return Failure(ErrConstraint, "Role or skill not found!"), nil
	}
	if err != nil {
		return CommandResponse{}, err
	}
	return Success("User created successfully.", id), nil
}

// UpdateUser replaces the user's attributes, role and skill links and
// contact details.
func (h *Handlers) UpdateUser(ctx context.Context, req UserUpdateRequest) (CommandResponse, error) {
	f := req.fields()
	detail, failed, err := h.checkUser(ctx, f)
	if err != nil {
		return CommandResponse{}, err
	}
	if failed != nil {
		return *failed, nil
	}
	u, ok, err := load(ctx, h.users, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "User not found!"), nil
	}
	if err := h.clearUserLinks(ctx, u); err != nil {
		return CommandResponse{}, err
	}
	password, err := h.hasher.Hash(f.password)
	if err != nil {
		return CommandResponse{}, err
	}
	h.apply(u, f, password, detail)
	err = h.users.Update(ctx, u)
	if errors.Is(err, repository.ErrConstraint) {
		return Failure(ErrConstraint, "Role or skill not found!"), nil
	}
	if err != nil {
		return CommandResponse{}, err
	}
	return Success("User updated successfully.", u.ID), nil
}

func (h *Handlers) DeleteUser(ctx context.Context, req UserDeleteRequest) (CommandResponse, error) {
	u, ok, err := load(ctx, h.users, req.ID)
	if err != nil {
		return CommandResponse{}, err
	}
	if !ok {
		return Failure(ErrNotFound, "User not found!"), nil
	}
	if err := h.clearUserLinks(ctx, u); err != nil {
		return CommandResponse{}, err
	}
	if err := h.users.Delete(ctx, u); err != nil {
		return CommandResponse{}, err
	}
	return Success("User deleted successfully.", u.ID), nil
}

func (h *Handlers) clearUserLinks(ctx context.Context, u *model.User) error {
	if err := h.userRoles.DeleteAll(ctx, u.UserRoles); err != nil {
		return err
	}
	if err := h.userSkills.DeleteAll(ctx, u.UserSkills); err != nil {
		return err
	}
	return h.userDetails.DeleteAll(ctx, u.UserDetails)
}

func (r UserCreateRequest) fields() userFields {
	return userFields{
		userName:         r.UserName,
		password:         r.Password,
		isActive:         r.IsActive,
		name:             r.Name,
		surname:          r.Surname,
		registrationDate: r.RegistrationDate,
		roleIDs:          r.RoleIDs,
		skillIDs:         r.SkillIDs,
		phone:            r.Phone,
		email:            r.Email,
		address:          r.Address,
	}
}

func (r UserUpdateRequest) fields() userFields {
	f := UserCreateRequest{
		UserName:         r.UserName,
		Password:         r.Password,
		IsActive:         r.IsActive,
		Name:             r.Name,
		Surname:          r.Surname,
		RegistrationDate: r.RegistrationDate,
		RoleIDs:          r.RoleIDs,
		SkillIDs:         r.SkillIDs,
		Phone:            r.Phone,
		Email:            r.Email,
		Address:          r.Address,
	}.fields()
	f.id = r.ID
	return f
}
