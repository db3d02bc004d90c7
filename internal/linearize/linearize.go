// Package linearize implements the Linearizer: walking a canonical
// conversation from its head to the root, reversing the path into
// chronological order, and emitting a markdown evidence file.
package linearize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ckexporter/internal/conversation"
)

// ErrNoID is returned for a conversation missing an id. Per spec §4.2 this
// is a per-item skip, never fatal.
var ErrNoID = fmt.Errorf("conversation missing id")

// ErrNoSurvivableMessages is returned when linearization yields zero
// messages (every node lacked role, text, or was unreachable).
var ErrNoSurvivableMessages = fmt.Errorf("conversation has no survivable messages")

// Linearize walks conv from CurrentNode to the root, recording visited ids
// to abort on cycles, then reverses the path into chronological order.
// Nodes whose message lacks role, text (after stripping), or is entirely
// absent are dropped.
func Linearize(conv *conversation.Conversation) ([]conversation.Message, error) {
	if conv.ID == "" {
		return nil, ErrNoID
	}

	var path []conversation.Node
	visited := make(map[string]bool)
	id := conv.CurrentNode
	for id != "" {
		if visited[id] {
			break // cycle guard: invariant 2 requires a finite, bounded walk.
		}
		visited[id] = true
		node, ok := conv.Mapping[id]
		if !ok {
			break
		}
		path = append(path, node)
		id = node.ParentID
	}

	messages := make([]conversation.Message, 0, len(path))
	for i := len(path) - 1; i >= 0; i-- {
		node := path[i]
		if node.Message == nil {
			continue
		}
		text := strings.TrimSpace(node.Message.Text)
		if node.Message.Role == "" || text == "" {
			continue
		}
		msg := *node.Message
		msg.Text = text
		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		return nil, ErrNoSurvivableMessages
	}
	return messages, nil
}

// WriteEvidence writes `<evidenceRoot>/<conversation_id>/conversation.md`:
// a header (title, id, optional project) followed by one `## <Role>`
// section per message, separated by `---`.
func WriteEvidence(evidenceRoot string, conv *conversation.Conversation, messages []conversation.Message) (string, error) {
	dir := filepath.Join(evidenceRoot, conv.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", firstNonEmpty(conv.Title, conv.ID))
	fmt.Fprintf(&b, "- id: %s\n", conv.ID)
	if conv.ProjectID != "" || conv.ProjectName != "" {
		fmt.Fprintf(&b, "- project: %s (%s)\n", conv.ProjectName, conv.ProjectID)
	}
	b.WriteString("\n")

	for i, m := range messages {
		fmt.Fprintf(&b, "## %s\n\n", capitalize(string(m.Role)))
		if m.CreateTime != nil {
			fmt.Fprintf(&b, "Time: %s\n\n", epochToISO(*m.CreateTime))
		}
		fmt.Fprintf(&b, "Message ID: %s\n\n", m.ID)
		b.WriteString(m.Text)
		b.WriteString("\n")
		if i != len(messages)-1 {
			b.WriteString("\n---\n\n")
		}
	}

	path := filepath.Join(dir, "conversation.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func epochToISO(epoch float64) string {
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC().Format(time.RFC3339)
}

// TimeISO converts a message's optional epoch time to its ISO-8601
// derivative, or "" if absent. Used by evidence pointers (atom Evidence).
func TimeISO(m conversation.Message) string {
	if m.CreateTime == nil {
		return ""
	}
	return epochToISO(*m.CreateTime)
}
