package linearize

import (
	"testing"

	"ckexporter/internal/conversation"
)

func two(role conversation.Role, text string) *conversation.Message {
	return &conversation.Message{Role: role, Text: text}
}

func TestLinearizeTwoNodeChatGPT(t *testing.T) {
	conv := &conversation.Conversation{
		ID: "conv1",
		Mapping: map[string]conversation.Node{
			"A": {ID: "A", Message: two(conversation.RoleUser, "hello")},
			"B": {ID: "B", ParentID: "A", Message: two(conversation.RoleAssistant, "hi")},
		},
		CurrentNode: "B",
	}
	msgs, err := Linearize(conv)
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "hello" || msgs[1].Text != "hi" {
		t.Fatalf("unexpected sequence: %+v", msgs)
	}
}

func TestLinearizeMissingID(t *testing.T) {
	conv := &conversation.Conversation{Mapping: map[string]conversation.Node{}}
	if _, err := Linearize(conv); err != ErrNoID {
		t.Errorf("err = %v, want ErrNoID", err)
	}
}

func TestLinearizeCycleIsBounded(t *testing.T) {
	conv := &conversation.Conversation{
		ID: "conv-cycle",
		Mapping: map[string]conversation.Node{
			"A": {ID: "A", ParentID: "B", Message: two(conversation.RoleUser, "a")},
			"B": {ID: "B", ParentID: "A", Message: two(conversation.RoleAssistant, "b")},
		},
		CurrentNode: "A",
	}
	msgs, err := Linearize(conv)
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	if len(msgs) > len(conv.Mapping) {
		t.Errorf("emitted %d messages, more than mapping size %d", len(msgs), len(conv.Mapping))
	}
}

func TestLinearizeDropsEmptyMessages(t *testing.T) {
	conv := &conversation.Conversation{
		ID: "conv2",
		Mapping: map[string]conversation.Node{
			"A": {ID: "A", Message: two(conversation.RoleUser, "   ")},
			"B": {ID: "B", ParentID: "A", Message: two(conversation.RoleAssistant, "real")},
		},
		CurrentNode: "B",
	}
	msgs, err := Linearize(conv)
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "real" {
		t.Fatalf("expected only the non-empty message, got %+v", msgs)
	}
}

func TestLinearizeNoSurvivableMessages(t *testing.T) {
	conv := &conversation.Conversation{
		ID: "conv3",
		Mapping: map[string]conversation.Node{
			"A": {ID: "A", Message: two(conversation.RoleUser, "")},
		},
		CurrentNode: "A",
	}
	if _, err := Linearize(conv); err != ErrNoSurvivableMessages {
		t.Errorf("err = %v, want ErrNoSurvivableMessages", err)
	}
}

func TestWriteEvidence(t *testing.T) {
	dir := t.TempDir()
	conv := &conversation.Conversation{ID: "conv1", Title: "Test"}
	msgs := []conversation.Message{
		{ID: "A", Role: conversation.RoleUser, Text: "hello"},
		{ID: "B", Role: conversation.RoleAssistant, Text: "hi"},
	}
	path, err := WriteEvidence(dir, conv, msgs)
	if err != nil {
		t.Fatalf("WriteEvidence: %v", err)
	}
	if path == "" {
		t.Fatal("empty path returned")
	}
}
