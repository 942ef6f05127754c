package communication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEmailBuffer(t *testing.T) {
	buf, err := BuildEmailBuffer(&EmailInfo{
		From:    "noreply@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Password reset",
		Text:    "reset link",
		HTML:    "<p>reset link</p>",
		Attachments: []Attachment{
			{Filename: "summary.xlsx", ContentType: "application/octet-stream", Content: []byte("xlsx")},
		},
	})
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "From: noreply@example.com\r\n")
	assert.Contains(t, raw, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, raw, "Subject: Password reset\r\n")
	assert.Contains(t, raw, "text/plain; charset=UTF-8")
	assert.Contains(t, raw, "text/html; charset=UTF-8")
	assert.Contains(t, raw, `attachment; filename="summary.xlsx"`)
	assert.Contains(t, raw, "eGxzeA==")
	assert.NotContains(t, raw, "Cc:")
}
