package model

import (
	"time"

	"github.com/uptrace/bun"
)

// Project is a row of `projects`. Tags are attached through ProjectTags;
// works point at their project with a nullable foreign key.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:p"`

	ID          int64    `bun:"id,pk,autoincrement"`
	Name        string   `bun:"name,notnull,type:varchar(200)"`
	Description string   `bun:"description,type:varchar(1000)"`
	URL         string   `bun:"url,type:varchar(400)"`
	Version     *float64 `bun:"version"`

	ProjectTags []*ProjectTag `bun:"rel:has-many,join:id=project_id"`
	Tags        []*Tag        `bun:"m2m:project_tags,join:Project=Tag"`
	Works       []*Work       `bun:"rel:has-many,join:id=project_id"`
}

func (p *Project) GetID() int64 { return p.ID }

func (p *Project) Links() []Link {
	out := make([]Link, 0, len(p.ProjectTags))
	for _, l := range p.ProjectTags {
		out = append(out, l)
	}
	return out
}

// ProjectTag links a project to a tag (`project_tags`).
type ProjectTag struct {
	bun.BaseModel `bun:"table:project_tags,alias:pt"`

	ProjectID int64    `bun:"project_id,pk"`
	Project   *Project `bun:"rel:belongs-to,join:project_id=id"`
	TagID     int64    `bun:"tag_id,pk"`
	Tag       *Tag     `bun:"rel:belongs-to,join:tag_id=id"`
}

func NewProjectTag(projectID, tagID int64) *ProjectTag {
	return &ProjectTag{ProjectID: projectID, TagID: tagID}
}

func (pt *ProjectTag) BindOwner(owner int64) { pt.ProjectID = owner }

// Work is a scheduled unit of work (`works`), optionally attached to a
// project. DueDate is never earlier than StartDate.
type Work struct {
	bun.BaseModel `bun:"table:works,alias:w"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull,type:varchar(300)"`
	Description string    `bun:"description,type:text"`
	StartDate   time.Time `bun:"start_date,notnull"`
	DueDate     time.Time `bun:"due_date,notnull"`
	ProjectID   *int64    `bun:"project_id"`
	Project     *Project  `bun:"rel:belongs-to,join:project_id=id"`
}

func (w *Work) GetID() int64 { return w.ID }
