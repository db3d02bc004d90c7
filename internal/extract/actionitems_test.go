package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckexporter/internal/atoms"
	"ckexporter/internal/conversation"
)

func TestExtractActionItemsFromSystemMessage(t *testing.T) {
	messages := []conversation.Message{
		{
			ID:   "notes:next-steps",
			Role: conversation.RoleSystem,
			Text: "### Next steps\n\n- [ ] Alice: send report\n- [x] Bob: review pricing\n",
		},
		{ID: "m2", Role: conversation.RoleUser, Text: "not a checklist line"},
	}

	items := ExtractActionItems("meeting__q3-sync__abcd1234", messages, "2026-01-01T00:00:00Z")
	require.Len(t, items, 2)

	assert.Equal(t, "Alice: send report", items[0].Statement)
	assert.Equal(t, atoms.KindActionItem, items[0].Kind)
	assert.Equal(t, atoms.StatusOpen, items[0].Status)
	require.Len(t, items[0].Evidence, 1)
	assert.Equal(t, "notes:next-steps", items[0].Evidence[0].MessageID)
	assert.Equal(t, "meeting__q3-sync__abcd1234", items[0].Evidence[0].ConversationID)

	assert.Equal(t, "Bob: review pricing", items[1].Statement)
	assert.Equal(t, atoms.StatusClosed, items[1].Status)
}

func TestExtractActionItemsIgnoresNonSystemMessages(t *testing.T) {
	messages := []conversation.Message{
		{ID: "m1", Role: conversation.RoleUser, Text: "- [ ] this should not count"},
	}
	items := ExtractActionItems("conv-1", messages, "2026-01-01T00:00:00Z")
	assert.Empty(t, items)
}

func TestExtractActionItemsSkipsEmptyStatement(t *testing.T) {
	messages := []conversation.Message{
		{ID: "m1", Role: conversation.RoleSystem, Text: "- [ ]   \n- [x] real item"},
	}
	items := ExtractActionItems("conv-1", messages, "2026-01-01T00:00:00Z")
	require.Len(t, items, 1)
	assert.Equal(t, "real item", items[0].Statement)
}
