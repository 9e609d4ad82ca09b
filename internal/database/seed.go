package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/utils"
)

// SeedOptions controls Seed.
type SeedOptions struct {
	// Reset deletes existing rows first. Without it Seed is a no-op on a
	// database that already has roles.
	Reset  bool
	Hasher utils.PasswordHasher
}

// Seed loads the initial roles, users, tags, projects and works in one
// transaction.
func Seed(ctx context.Context, db *bun.DB, opts SeedOptions) error {
	if opts.Hasher == nil {
		opts.Hasher = utils.PlainHasher{}
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if opts.Reset {
			if err := clearTables(ctx, tx); err != nil {
				return err
			}
		} else {
			n, err := tx.NewSelect().Model((*model.Role)(nil)).Count(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				return nil
			}
		}
		if err := seedUsers(ctx, tx, opts.Hasher); err != nil {
			return err
		}
		return seedProjects(ctx, tx)
	})
}

func clearTables(ctx context.Context, tx bun.Tx) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := tx.NewDelete().Model(tables[i].model).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear %T: %w", tables[i].model, err)
		}
	}
	return nil
}

func seedUsers(ctx context.Context, tx bun.Tx, hasher utils.PasswordHasher) error {
	admin := &model.Role{Name: "Admin"}
	user := &model.Role{Name: "User"}
	if _, err := tx.NewInsert().Model(&[]*model.Role{admin, user}).Exec(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	skills := []*model.Skill{{Name: "Go"}, {Name: "SQL"}, {Name: "Docker"}}
	if _, err := tx.NewInsert().Model(&skills).Exec(ctx); err != nil {
		return fmt.Errorf("seed skills: %w", err)
	}

	now := time.Now().UTC()
	accounts := []struct {
		name, surname, userName, password string
		role                              *model.Role
		detail                            *model.UserDetail
	}{
		{"Administrator", "", "admin", "admin", admin, &model.UserDetail{Phone: "+905321234567", Email: "admin@pms.com", Address: "Ankara"}},
		{"Regular", "User", "user", "user", user, nil},
	}
	for _, a := range accounts {
		pw, err := hasher.Hash(a.password)
		if err != nil {
			return err
		}
		u := &model.User{
			UserName:         a.userName,
			Password:         pw,
			IsActive:         true,
			Name:             a.name,
			Surname:          a.surname,
			RegistrationDate: &now,
		}
		if _, err := tx.NewInsert().Model(u).Exec(ctx); err != nil {
			return fmt.Errorf("seed user %s: %w", a.userName, err)
		}
		if _, err := tx.NewInsert().Model(model.NewUserRole(u.ID, a.role.ID)).Exec(ctx); err != nil {
			return fmt.Errorf("seed user role %s: %w", a.userName, err)
		}
		if a.detail != nil {
			a.detail.UserID = u.ID
			if _, err := tx.NewInsert().Model(a.detail).Exec(ctx); err != nil {
				return fmt.Errorf("seed user detail %s: %w", a.userName, err)
			}
		}
	}
	return nil
}

func seedProjects(ctx context.Context, tx bun.Tx) error {
	tags := []*model.Tag{{Name: "Go"}, {Name: "Web API"}, {Name: "Database"}, {Name: "Security"}}
	if _, err := tx.NewInsert().Model(&tags).Exec(ctx); err != nil {
		return fmt.Errorf("seed tags: %w", err)
	}

	v1, v2 := 1.0, 2.5
	projects := []*model.Project{
		{Name: "Project Management System", Description: "Projects, works, users and roles.", URL: "https://github.com/iliyamo/pms-backend", Version: &v2},
		{Name: "Inventory Service", Description: "Stock tracking for warehouses.", Version: &v1},
	}
	if _, err := tx.NewInsert().Model(&projects).Exec(ctx); err != nil {
		return fmt.Errorf("seed projects: %w", err)
	}
	links := []*model.ProjectTag{
		model.NewProjectTag(projects[0].ID, tags[0].ID),
		model.NewProjectTag(projects[0].ID, tags[1].ID),
		model.NewProjectTag(projects[0].ID, tags[3].ID),
		model.NewProjectTag(projects[1].ID, tags[2].ID),
	}
	if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
		return fmt.Errorf("seed project tags: %w", err)
	}

	day := func(offset int) time.Time {
		return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}
	works := []*model.Work{
		{Name: "Design data model", StartDate: day(0), DueDate: day(6), ProjectID: &projects[0].ID},
		{Name: "Implement token service", StartDate: day(7), DueDate: day(13), ProjectID: &projects[0].ID},
		{Name: "Stock import job", StartDate: day(3), DueDate: day(20), ProjectID: &projects[1].ID},
		{Name: "Write onboarding guide", StartDate: day(10), DueDate: day(12)},
	}
	if _, err := tx.NewInsert().Model(&works).Exec(ctx); err != nil {
		return fmt.Errorf("seed works: %w", err)
	}
	return nil
}
