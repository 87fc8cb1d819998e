package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAuditLine(t *testing.T) {
	body, err := json.Marshal(ClaimIssuedEvent{
		EventID:   "e-1",
		DropID:    3,
		DropTitle: "Vinyl",
		UserID:    9,
		Position:  2,
		Stock:     5,
		CodeHint:  "BEEF",
		IssuedAt:  "2025-11-04T10:30:00Z",
	})
	require.NoError(t, err)

	line, err := FormatAuditLine(body)
	require.NoError(t, err)
	assert.Equal(t, "[2025-11-04T10:30:00Z] Claim issued | event_id=e-1 | drop_id=3 | drop=\"Vinyl\" | user_id=9 | position=2/5 | code=****BEEF\n", line)
}

func TestFormatAuditLineRejects(t *testing.T) {
	_, err := FormatAuditLine([]byte("not json"))
	assert.Error(t, err)
	_, err = FormatAuditLine([]byte(`{"drop_id":1}`))
	assert.Error(t, err)
}

func TestAuditConsumerHandleAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	a := NewAuditConsumer("amqp://unused/", dir)
	body := []byte(`{"event_id":"x","drop_id":1,"user_id":2,"issued_at":"t"}`)
	require.NoError(t, a.handle(body))
	require.NoError(t, a.handle(body))

	data, err := os.ReadFile(filepath.Join(dir, "claims.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(string(data)))
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
