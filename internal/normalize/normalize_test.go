package normalize

import (
	"strings"
	"testing"
)

func TestNormalizeTimestampCarriesMinutes(t *testing.T) {
	cases := map[string]string{
		"62:15":     "01:02:15",
		"1:08":      "00:01:08",
		"1:02:15":   "01:02:15",
		"00:00:00":  "00:00:00",
		"not-a-ts":  "00:00:00",
	}
	for in, want := range cases {
		if got := NormalizeTimestamp(in); got != want {
			t.Errorf("NormalizeTimestamp(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeTimestampFixedPoint(t *testing.T) {
	valid := []string{"00:00:00", "01:02:15", "23:59:59"}
	for _, v := range valid {
		if got := NormalizeTimestamp(v); got != v {
			t.Errorf("NormalizeTimestamp(%q) = %q, want fixed point %q", v, got, v)
		}
	}
}

func TestLoadJSONSingleConversation(t *testing.T) {
	data := []byte(`{
		"mapping": {
			"A": {"id":"A","parent":null,"message":{"id":"A","author":{"role":"user"},"content":{"parts":["hello"]}}},
			"B": {"id":"B","parent":"A","message":{"id":"B","author":{"role":"assistant"},"content":{"parts":["hi"]}}}
		},
		"current_node": "B"
	}`)
	convs, err := LoadJSON(data, "stem1", "stem1.json")
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}
	conv := convs[0]
	if conv.ID != "stem1" {
		t.Errorf("ID = %q, want stem1 (injected from filename stem)", conv.ID)
	}
	if conv.CurrentNode != "B" {
		t.Errorf("CurrentNode = %q, want B", conv.CurrentNode)
	}
	if len(conv.Mapping) != 2 {
		t.Errorf("Mapping has %d nodes, want 2", len(conv.Mapping))
	}
}

func TestLoadJSONClaudeExport(t *testing.T) {
	data := []byte(`{
		"platform": "CLAUDE_AI",
		"uuid": "c1",
		"chat_messages": [
			{"uuid":"m1","sender":"human","text":"Q","created_at":"2025-01-01T00:00:00Z"},
			{"uuid":"m2","sender":"assistant","text":"A"}
		]
	}`)
	convs, err := LoadJSON(data, "stem", "path")
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}
	conv := convs[0]
	if conv.ID != "c1" {
		t.Errorf("ID = %q, want c1", conv.ID)
	}
	if conv.CurrentNode != "m2" {
		t.Errorf("CurrentNode = %q, want m2", conv.CurrentNode)
	}
	m1 := conv.Mapping["m1"]
	if m1.Message.CreateTime == nil {
		t.Fatal("m1.CreateTime is nil, want parsed epoch")
	}
	m2 := conv.Mapping["m2"]
	if m2.Message.CreateTime != nil {
		t.Errorf("m2.CreateTime = %v, want nil", *m2.Message.CreateTime)
	}
	if m2.ParentID != "m1" {
		t.Errorf("m2.ParentID = %q, want m1", m2.ParentID)
	}
}

func TestLoadJSONUnsupportedShape(t *testing.T) {
	data := []byte(`{"foo": "bar"}`)
	_, err := LoadJSON(data, "stem", "path")
	if err == nil {
		t.Fatal("expected error for unsupported shape")
	}
	var shapeErr *ErrUnsupportedShape
	if !asShapeErr(err, &shapeErr) {
		t.Errorf("error is not ErrUnsupportedShape: %v", err)
	}
}

func asShapeErr(err error, target **ErrUnsupportedShape) bool {
	if e, ok := err.(*ErrUnsupportedShape); ok {
		*target = e
		return true
	}
	return false
}

func TestParseMarkdownMeetingActionItemSection(t *testing.T) {
	content := []byte("# Standup\n\n### Next steps\n\n- [ ] Alice: send report\n")
	conv := ParseMarkdownMeeting(content, "standup")
	found := false
	for _, node := range conv.Mapping {
		if node.Message != nil && containsActionHint(node.Message.Text) {
			found = true
		}
	}
	if !found {
		t.Error("expected a section with the action-items hint prepended")
	}
}

func containsActionHint(text string) bool {
	return strings.Contains(text, "Action items (treat as commitments/tasks):")
}
