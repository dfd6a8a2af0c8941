package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsageDate(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 535, time.UTC)
	d := UsageDate(ts)

	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 14, d.Day())
	assert.Equal(t, 0, d.Hour())
	assert.Equal(t, 0, d.Minute())
}

func TestNewConversation(t *testing.T) {
	t.Run("short message used verbatim", func(t *testing.T) {
		c := NewConversation("user-1", "מה זה פוטוסינתזה?")
		assert.Equal(t, "user-1", c.UserID)
		assert.Equal(t, "מה זה פוטוסינתזה?", c.Title)
		assert.NotEqual(t, c.ID.String(), "00000000-0000-0000-0000-000000000000")
	})

	t.Run("long message truncated to fifty runes", func(t *testing.T) {
		long := strings.Repeat("א", 120)
		c := NewConversation("user-1", long)
		assert.Equal(t, 50, len([]rune(c.Title)))
	})
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "user_analytics", DailyUsage{}.TableName())
	assert.Equal(t, "conversations", Conversation{}.TableName())
	assert.Equal(t, "messages", Turn{}.TableName())
}
