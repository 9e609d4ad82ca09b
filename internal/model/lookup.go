package model

import "github.com/uptrace/bun"

// Role is a named lookup row of `roles`. Its name is the value carried in
// the access token's role claim.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,type:varchar(150)"`

	UserRoles []*UserRole `bun:"rel:has-many,join:id=role_id"`
	Users     []*User     `bun:"m2m:user_roles,join:Role=User"`
}

func (r *Role) GetID() int64 { return r.ID }

// Skill is a named lookup row of `skills`.
type Skill struct {
	bun.BaseModel `bun:"table:skills,alias:s"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,type:varchar(150)"`

	UserSkills []*UserSkill `bun:"rel:has-many,join:id=skill_id"`
	Users      []*User      `bun:"m2m:user_skills,join:Skill=User"`
}

func (s *Skill) GetID() int64 { return s.ID }

// Tag is a named lookup row of `tags`.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,type:varchar(150)"`

	ProjectTags []*ProjectTag `bun:"rel:has-many,join:id=tag_id"`
	Projects    []*Project    `bun:"m2m:project_tags,join:Tag=Project"`
}

func (t *Tag) GetID() int64 { return t.ID }
