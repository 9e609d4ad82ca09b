package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	ev := EntityChanged("role", 7, ActionDeleted)
	ev.OccurredAt = at
	assert.Equal(t, "[2024-05-01T10:00:00Z] Entity deleted | kind=role | id=7 | event_id="+ev.ID+"\n", FormatLine(ev))

	login := UserLoggedIn(1, "admin")
	login.OccurredAt = at
	assert.Contains(t, FormatLine(login), `User logged in | user_id=1 | user_name="admin"`)
}

func TestAuditConsumerHandleAppends(t *testing.T) {
	dir := t.TempDir()
	a := &AuditConsumer{Dir: dir, Logger: log.New(os.Stderr)}

	for _, ev := range []Event{EntityChanged("tag", 1, ActionCreated), EntityChanged("tag", 1, ActionUpdated)} {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, a.handle(body))
	}

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Entity created | kind=tag | id=1")
	assert.Contains(t, string(data), "Entity updated | kind=tag | id=1")
}

func TestAuditConsumerRejectsGarbage(t *testing.T) {
	a := &AuditConsumer{Dir: t.TempDir(), Logger: log.New(os.Stderr)}
	assert.Error(t, a.handle([]byte("not json")))
	assert.Error(t, a.handle([]byte(`{"id":"x"}`)))
}
