// Package normalize implements the Input Normalizer: detection and
// conversion of every supported input shape (ChatGPT JSON list, single
// ChatGPT conversation, Claude export, directory of mixed files, and
// meeting notes in Markdown/plain text) into the canonical conversation
// DAG (internal/conversation).
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"ckexporter/internal/conversation"
)

// ErrUnsupportedShape is returned when a JSON document matches none of the
// recognized input shapes. Per spec §7 this is a fatal, surfaced error.
type ErrUnsupportedShape struct {
	Path string
	Keys []string
}

func (e *ErrUnsupportedShape) Error() string {
	return fmt.Sprintf(
		"unsupported input format at %q (keys: %v); expected one of: a list of conversations, "+
			"a single conversation with 'mapping' and 'current_node', or a Claude export with "+
			"platform=CLAUDE_AI and chat_messages[]", e.Path, e.Keys)
}

// rawNode mirrors the ChatGPT export's node shape closely enough to
// decode both genuine exports and our own synthetic (meeting/Claude)
// conversions of them.
type rawNode struct {
	ID      string     `json:"id"`
	Parent  *string    `json:"parent"`
	Message *rawMessage `json:"message"`
}

type rawMessage struct {
	ID      string `json:"id"`
	Author  struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime *float64 `json:"create_time"`
	Content    struct {
		Parts []string `json:"parts"`
	} `json:"content"`
}

type rawConversation struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	Title          string             `json:"title"`
	ProjectID      string             `json:"project_id"`
	ProjectName    string             `json:"project_name"`
	Mapping        map[string]rawNode `json:"mapping"`
	CurrentNode    *string            `json:"current_node"`

	// Claude export fields.
	Platform     string             `json:"platform"`
	UUID         string             `json:"uuid"`
	Name         string             `json:"name"`
	ChatMessages []claudeMessage    `json:"chat_messages"`
}

type claudeMessage struct {
	UUID      string `json:"uuid"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func isChatGPTSingleConversation(v map[string]any) bool {
	_, hasMapping := v["mapping"]
	_, hasCurrent := v["current_node"]
	return hasMapping && hasCurrent
}

func isClaudeConversation(v map[string]any) bool {
	platform, _ := v["platform"].(string)
	_, hasMessages := v["chat_messages"].([]any)
	return platform == "CLAUDE_AI" && hasMessages
}

// LoadJSON loads and normalizes conversations from one JSON export file.
// pathStem is used as a fallback conversation id when the input is a
// single ChatGPT conversation missing both id and conversation_id.
func LoadJSON(data []byte, pathStem, path string) ([]*conversation.Conversation, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse json %q: %w", path, err)
	}

	switch v := generic.(type) {
	case []any:
		out := make([]*conversation.Conversation, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			conv, err := normalizeOne(obj, pathStem)
			if err != nil {
				continue
			}
			out = append(out, conv)
		}
		return out, nil

	case map[string]any:
		conv, err := normalizeOne(v, pathStem)
		if err != nil {
			return nil, err
		}
		return []*conversation.Conversation{conv}, nil

	default:
		return nil, &ErrUnsupportedShape{Path: path}
	}
}

func normalizeOne(obj map[string]any, pathStem string) (*conversation.Conversation, error) {
	if isClaudeConversation(obj) {
		raw, err := reencode[rawConversation](obj)
		if err != nil {
			return nil, err
		}
		return claudeToCanonical(raw), nil
	}
	if isChatGPTSingleConversation(obj) {
		raw, err := reencode[rawConversation](obj)
		if err != nil {
			return nil, err
		}
		if raw.ID == "" && raw.ConversationID == "" {
			raw.ConversationID = pathStem
		}
		return chatGPTToCanonical(raw), nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 10 {
		keys = keys[:10]
	}
	return nil, &ErrUnsupportedShape{Keys: keys}
}

func reencode[T any](v any) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}

func chatGPTToCanonical(raw rawConversation) *conversation.Conversation {
	id := raw.ID
	if id == "" {
		id = raw.ConversationID
	}
	conv := &conversation.Conversation{
		ID:          id,
		Title:       raw.Title,
		ProjectID:   raw.ProjectID,
		ProjectName: raw.ProjectName,
		Mapping:     make(map[string]conversation.Node, len(raw.Mapping)),
	}
	if raw.CurrentNode != nil {
		conv.CurrentNode = *raw.CurrentNode
	}
	for nodeID, rn := range raw.Mapping {
		node := conversation.Node{ID: nodeID}
		if rn.Parent != nil {
			node.ParentID = *rn.Parent
		}
		if rn.Message != nil {
			text := strings.Join(rn.Message.Content.Parts, "\n")
			msgID := rn.Message.ID
			if msgID == "" {
				msgID = nodeID
			}
			node.Message = &conversation.Message{
				ID:         msgID,
				Role:       conversation.Role(rn.Message.Author.Role),
				Text:       text,
				CreateTime: rn.Message.CreateTime,
			}
		}
		conv.Mapping[nodeID] = node
	}
	return conv
}

// claudeToCanonical builds a linear chain, one node per message with a
// non-empty UUID, each linked to its immediate predecessor.
func claudeToCanonical(raw rawConversation) *conversation.Conversation {
	id := raw.UUID
	if id == "" {
		id = "unknown"
	}
	title := raw.Name
	if title == "" {
		title = "Untitled Conversation"
	}
	conv := &conversation.Conversation{
		ID:      id,
		Title:   title,
		Mapping: map[string]conversation.Node{},
	}

	var previous string
	for _, m := range raw.ChatMessages {
		if m.UUID == "" {
			continue
		}
		role := claudeRole(m.Sender)
		var createTime *float64
		if m.CreatedAt != "" {
			if t, ok := parseISOTimestamp(m.CreatedAt); ok {
				createTime = &t
			}
		}
		node := conversation.Node{
			ID: m.UUID,
			Message: &conversation.Message{
				ID:         m.UUID,
				Role:       role,
				Text:       m.Text,
				CreateTime: createTime,
			},
		}
		if previous != "" {
			node.ParentID = previous
		}
		conv.Mapping[m.UUID] = node
		previous = m.UUID
	}
	conv.CurrentNode = previous
	return conv
}

func claudeRole(sender string) conversation.Role {
	switch strings.ToLower(sender) {
	case "human":
		return conversation.RoleUser
	case "assistant":
		return conversation.RoleAssistant
	default:
		return conversation.RoleSystem
	}
}

// parseISOTimestamp parses an ISO-8601 timestamp (including a trailing Z)
// into epoch seconds. ok is false on parse failure (spec: "null").
func parseISOTimestamp(s string) (float64, bool) {
	s = strings.ReplaceAll(s, "Z", "+00:00")
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.UnixNano()) / 1e9, true
		}
	}
	return 0, false
}

// slug lower-cases a string and collapses non-alphanumerics to '-'.
var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = strings.ToLower(s)
	s = nonAlphaNum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// DocumentID builds the `{meeting|doc}__<slug>__<hash8>` id spec §4.1
// requires for .md/.txt/.docx inputs.
func DocumentID(kind, stem string, content []byte) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("%s__%s__%s", kind, slug(stem), hex.EncodeToString(sum[:])[:8])
}

// ListDirectory enumerates *.json, *.md, *.txt files under root in
// deterministic (lexicographic) order: direct children first, falling back
// to a recursive walk if the directory has no direct matches. Invariant 1
// in spec §8 depends on this ordering being stable across runs.
func ListDirectory(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", root, err)
	}

	var direct []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matchesInputExt(e.Name()) {
			direct = append(direct, filepath.Join(root, e.Name()))
		}
	}
	if len(direct) > 0 {
		sort.Strings(direct)
		return direct, nil
	}

	var recursive []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if matchesInputExt(d.Name()) {
			recursive = append(recursive, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(recursive)
	return recursive, nil
}

func matchesInputExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".json" || ext == ".md" || ext == ".txt"
}

// ApplyLimit caps convs to the first N elements (spec §4.1 "Limit
// semantics"). limit <= 0 means unbounded.
func ApplyLimit(convs []*conversation.Conversation, limit int) []*conversation.Conversation {
	if limit <= 0 || len(convs) <= limit {
		return convs
	}
	return convs[:limit]
}
