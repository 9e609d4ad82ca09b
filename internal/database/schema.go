// Package database opens the bun handle for the configured store, creates
// the schema and loads seed data.
package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/iliyamo/pms-backend/internal/model"
)

type foreignKey struct {
	column, table string
}

type tableDef struct {
	model any
	fks   []foreignKey
}

// tables lists every table in creation order. Foreign keys carry no
// ON DELETE action: dependent rows must be cleared by the caller and a
// violation reaches the service layer as a constraint error.
var tables = []tableDef{
	{model: (*model.Role)(nil)},
	{model: (*model.Skill)(nil)},
	{model: (*model.Tag)(nil)},
	{model: (*model.User)(nil)},
	{model: (*model.Project)(nil)},
	{model: (*model.UserDetail)(nil), fks: []foreignKey{{"user_id", "users"}}},
	{model: (*model.UserRole)(nil), fks: []foreignKey{{"user_id", "users"}, {"role_id", "roles"}}},
	{model: (*model.UserSkill)(nil), fks: []foreignKey{{"user_id", "users"}, {"skill_id", "skills"}}},
	{model: (*model.ProjectTag)(nil), fks: []foreignKey{{"project_id", "projects"}, {"tag_id", "tags"}}},
	{model: (*model.Work)(nil), fks: []foreignKey{{"project_id", "projects"}}},
}

// CreateSchema creates missing tables.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.fks {
			q = q.ForeignKey("(?) REFERENCES ? (?)", bun.Ident(fk.column), bun.Ident(fk.table), bun.Ident("id"))
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", t.model, err)
		}
	}
	return nil
}

// DropSchema drops every table in reverse creation order.
func DropSchema(ctx context.Context, db bun.IDB) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i].model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tables[i].model, err)
		}
	}
	return nil
}
