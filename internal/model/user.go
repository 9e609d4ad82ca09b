package model

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a row of the `users` table.
//
// Fields:
//
//	ID                     – primary key identifier.
//	UserName               – login name, unique (trimmed, case-insensitive).
//	Password               – credential as stored by the configured hasher.
//	IsActive               – inactive users cannot log in.
//	Name, Surname          – optional profile fields.
//	RegistrationDate       – optional, set by the caller.
//	RefreshToken           – opaque value from the last login or refresh; nil when never issued.
//	RefreshTokenExpiration – non-nil whenever RefreshToken is non-nil.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                     int64      `bun:"id,pk,autoincrement"`
	UserName               string     `bun:"user_name,notnull,type:varchar(30)"`
	Password               string     `bun:"password,notnull,type:varchar(255)"`
	IsActive               bool       `bun:"is_active,notnull"`
	Name                   string     `bun:"name,type:varchar(50)"`
	Surname                string     `bun:"surname,type:varchar(50)"`
	RegistrationDate       *time.Time `bun:"registration_date"`
	RefreshToken           *string    `bun:"refresh_token,type:varchar(255)"`
	RefreshTokenExpiration *time.Time `bun:"refresh_token_expiration"`

	UserRoles   []*UserRole   `bun:"rel:has-many,join:id=user_id"`
	UserSkills  []*UserSkill  `bun:"rel:has-many,join:id=user_id"`
	UserDetails []*UserDetail `bun:"rel:has-many,join:id=user_id"`
	Roles       []*Role       `bun:"m2m:user_roles,join:User=Role"`
	Skills      []*Skill      `bun:"m2m:user_skills,join:User=Skill"`
}

func (u *User) GetID() int64 { return u.ID }

// Links returns the role, skill and detail rows written along with the user.
func (u *User) Links() []Link {
	out := make([]Link, 0, len(u.UserRoles)+len(u.UserSkills)+len(u.UserDetails))
	for _, l := range u.UserRoles {
		out = append(out, l)
	}
	for _, l := range u.UserSkills {
		out = append(out, l)
	}
	for _, l := range u.UserDetails {
		out = append(out, l)
	}
	return out
}

// IssueRefreshToken stores a refresh token together with its expiry so the
// two columns can never disagree about being set.
func (u *User) IssueRefreshToken(token string, expiresAt time.Time) {
	u.RefreshToken = &token
	exp := expiresAt.UTC()
	u.RefreshTokenExpiration = &exp
}

// RoleNames lists the names of the eager-loaded roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// FirstDetail returns the first detail row or nil.
func (u *User) FirstDetail() *UserDetail {
	if len(u.UserDetails) == 0 {
		return nil
	}
	return u.UserDetails[0]
}

// UserDetail holds contact data for a user (`user_details`).
type UserDetail struct {
	bun.BaseModel `bun:"table:user_details,alias:ud"`

	ID      int64  `bun:"id,pk,autoincrement"`
	UserID  int64  `bun:"user_id,notnull"`
	Phone   string `bun:"phone,notnull,type:varchar(15)"`
	Email   string `bun:"email,notnull,type:varchar(200)"`
	Address string `bun:"address,type:text"`
}

func (d *UserDetail) GetID() int64          { return d.ID }
func (d *UserDetail) BindOwner(owner int64) { d.UserID = owner }

// UserRole links a user to a role (`user_roles`).
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID int64 `bun:"user_id,pk"`
	User   *User `bun:"rel:belongs-to,join:user_id=id"`
	RoleID int64 `bun:"role_id,pk"`
	Role   *Role `bun:"rel:belongs-to,join:role_id=id"`
}

// NewUserRole has the signature repository.Sync expects.
func NewUserRole(userID, roleID int64) *UserRole {
	return &UserRole{UserID: userID, RoleID: roleID}
}

func (ur *UserRole) BindOwner(owner int64) { ur.UserID = owner }

// UserSkill links a user to a skill (`user_skills`).
type UserSkill struct {
	bun.BaseModel `bun:"table:user_skills,alias:us"`

	UserID  int64  `bun:"user_id,pk"`
	User    *User  `bun:"rel:belongs-to,join:user_id=id"`
	SkillID int64  `bun:"skill_id,pk"`
	Skill   *Skill `bun:"rel:belongs-to,join:skill_id=id"`
}

func NewUserSkill(userID, skillID int64) *UserSkill {
	return &UserSkill{UserID: userID, SkillID: skillID}
}

func (us *UserSkill) BindOwner(owner int64) { us.UserID = owner }
