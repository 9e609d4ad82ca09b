package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/pms-backend/internal/model"
)

func TestSyncCollapsesDuplicatesInOrder(t *testing.T) {
	links := Sync(5, []int64{3, 1, 3, 2, 1}, model.NewUserRole)

	assert.Equal(t, []*model.UserRole{
		{UserID: 5, RoleID: 3},
		{UserID: 5, RoleID: 1},
		{UserID: 5, RoleID: 2},
	}, links)
}

func TestSyncEmptyRequestClearsLinks(t *testing.T) {
	links := Sync(5, nil, model.NewProjectTag)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestIDsRoundTrip(t *testing.T) {
	links := Sync(1, []int64{4, 8}, model.NewUserSkill)
	ids := IDs(links, func(l *model.UserSkill) int64 { return l.SkillID })
	assert.Equal(t, []int64{4, 8}, ids)
}
