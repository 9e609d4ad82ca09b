package service

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Lookups: roles, skills and tags share field rules.

type RoleCreateRequest struct {
	Name string `json:"name"`
}

func (r RoleCreateRequest) Validate() error { return validateLookup(&r.Name) }

type RoleUpdateRequest struct {
	ID   int64  `json:"id" param:"id"`
	Name string `json:"name"`
}

func (r RoleUpdateRequest) Validate() error { return validateLookupUpdate(&r.ID, &r.Name) }

type RoleDeleteRequest struct {
	ID int64 `json:"id" param:"id"`
}

type RoleQueryRequest struct {
	ID   int64
	Name string
}

type SkillCreateRequest struct {
	Name string `json:"name"`
}

func (r SkillCreateRequest) Validate() error { return validateLookup(&r.Name) }

type SkillUpdateRequest struct {
	ID   int64  `json:"id" param:"id"`
	Name string `json:"name"`
}

func (r SkillUpdateRequest) Validate() error { return validateLookupUpdate(&r.ID, &r.Name) }

type SkillDeleteRequest struct {
	ID int64 `json:"id" param:"id"`
}

type SkillQueryRequest struct {
	ID   int64
	Name string
}

type TagCreateRequest struct {
	Name string `json:"name"`
}

func (r TagCreateRequest) Validate() error { return validateLookup(&r.Name) }

type TagUpdateRequest struct {
	ID   int64  `json:"id" param:"id"`
	Name string `json:"name"`
}

func (r TagUpdateRequest) Validate() error { return validateLookupUpdate(&r.ID, &r.Name) }

type TagDeleteRequest struct {
	ID int64 `json:"id" param:"id"`
}

type TagQueryRequest struct {
	ID   int64
	Name string
}

// notBlank rejects values that are empty once trimmed.
var notBlank = validation.By(func(value interface{}) error {
	v, _ := validation.Indirect(value)
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})

func validateLookup(name *string) error {
	return validation.Errors{
		"name": validation.Validate(name, validation.Required, notBlank, validation.Length(1, 150)),
	}.Filter()
}

func validateLookupUpdate(id *int64, name *string) error {
	return validation.Errors{
		"id":   validation.Validate(id, validation.Required),
		"name": validation.Validate(name, validation.Required, notBlank, validation.Length(1, 150)),
	}.Filter()
}

// Projects and works.

type ProjectCreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Version     *float64 `json:"version"`
	TagIDs      []int64  `json:"tagIds"`
}

func (r ProjectCreateRequest) Validate() error {
	return validation.ValidateStruct(&r, projectRules(&r.Name, &r.Description, &r.URL, &r.Version)...)
}

type ProjectUpdateRequest struct {
	ID          int64    `json:"id" param:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Version     *float64 `json:"version"`
	TagIDs      []int64  `json:"tagIds"`
}

func (r ProjectUpdateRequest) Validate() error {
	rules := append(projectRules(&r.Name, &r.Description, &r.URL, &r.Version),
		validation.Field(&r.ID, validation.Required))
	return validation.ValidateStruct(&r, rules...)
}

func projectRules(name, description, url *string, version **float64) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(name, validation.Required, notBlank, validation.Length(5, 200)),
		validation.Field(description, validation.Length(0, 1000)),
		validation.Field(url, validation.Length(0, 400), is.URL),
		validation.Field(version, validation.Min(0.0)),
	}
}

type ProjectDeleteRequest struct {
	ID int64 `json:"id" param:"id"`
}

type ProjectQueryRequest struct {
	ID    int64
	Name  string
	TagID int64
}

type WorkCreateRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	DueDate     time.Time `json:"dueDate"`
	ProjectID   *int64    `json:"projectId"`
}

func (r WorkCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, notBlank, validation.Length(1, 300)),
		validation.Field(&r.StartDate, validation.Required),
		validation.Field(&r.DueDate, validation.Required),
	)
}

type WorkUpdateRequest struct {
	ID          int64     `json:"id" param:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	DueDate     time.Time `json:"dueDate"`
	ProjectID   *int64    `json:"projectId"`
}

func (r WorkUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Name, validation.Required, notBlank, validation.Length(1, 300)),
		validation.Field(&r.StartDate, validation.Required),
		validation.Field(&r.DueDate, validation.Required),
	)
}

type WorkDeleteRequest struct {
	ID int64 `json:"id" param:"id"`
}

// WorkQueryRequest filters works. Zero values mean "no filter"; the date
// bounds are inclusive.
type WorkQueryRequest struct {
	ID             int64
	Name           string
	ProjectID      *int64
	StartDateBegin time.Time
	StartDateEnd   time.Time
	DueDateBegin   time.Time
	DueDateEnd     time.Time
}

// Users.

type UserCreateRequest struct {
	UserName         string     `json:"userName"`
	Password         string     `json:"password"`
	IsActive         bool       `json:"isActive"`
	Name             string     `json:"name"`
	Surname          string     `json:"surname"`
	RegistrationDate *time.Time `json:"registrationDate"`
	RoleIDs          []int64    `json:"roleIds"`
	SkillIDs         []int64    `json:"skillIds"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email"`
	Address          string     `json:"address"`
}

func (r UserCreateRequest) Validate() error {
	return validation.ValidateStruct(&r, userRules(&r.UserName, &r.Password, &r.Name, &r.Surname, &r.Phone, &r.Email, &r.Address)...)
}

type UserUpdateRequest struct {
	ID               int64      `json:"id" param:"id"`
	UserName         string     `json:"userName"`
	Password         string     `json:"password"`
	IsActive         bool       `json:"isActive"`
	Name             string     `json:"name"`
	Surname          string     `json:"surname"`
	RegistrationDate *time.Time `json:"registrationDate"`
	RoleIDs          []int64    `json:"roleIds"`
	SkillIDs         []int64    `json:"skillIds"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email"`
	Address          string     `json:"address"`
}

func (r UserUpdateRequest) Validate() error {
	rules := append(userRules(&r.UserName, &r.Password, &r.Name, &r.Surname, &r.Phone, &r.Email, &r.Address),
		validation.Field(&r.ID, validation.Required))
	return validation.ValidateStruct(&r, rules...)
}

func userRules(userName, password, name, surname, phone, email, address *string) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(userName, validation.Required, notBlank, validation.Length(3, 30)),
		validation.Field(password, validation.Required, notBlank, validation.Length(3, 15)),
		validation.Field(name, validation.Length(0, 50)),
		validation.Field(surname, validation.Length(0, 50)),
		validation.Field(phone, validation.Length(0, 15)),
		validation.Field(email, validation.Length(0, 200), is.Email),
		validation.Field(address, validation.Length(0, 500)),
	}
}

type UserDeleteRequest struct {
	ID int64 `json:"id" param:"id"`
}

type UserQueryRequest struct {
	ID       int64
	UserName string
	IsActive *bool
}

// Auth.

// TokenRequest is the login request.
type TokenRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

func (r TokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserName, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshTokenRequest carries the last access token, possibly expired,
// and the refresh token issued with it.
type RefreshTokenRequest struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (r RefreshTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.RefreshToken, validation.Required),
	)
}
