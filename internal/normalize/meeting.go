package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"ckexporter/internal/conversation"
)

var (
	anchorRe          = regexp.MustCompile(`\s*\{#[^}]+\}`)
	timestampHeadingRe = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?`)
	hmmssRe           = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})$`)
	mssRe             = regexp.MustCompile(`^(\d{1,3}):(\d{2})$`)
	transcriptLineRe  = regexp.MustCompile(`^(\d{1,3}:\d{2}(?::\d{2})?)\s*:\s*([^:]+?)\s*:\s*(.+)$`)
)

var actionHeadingWords = []string{"next steps", "action", "todo", "tasks"}

// NormalizeTimestamp implements spec §4.1.1/§8 invariant 8: normalize any
// M:SS / H:MM:SS / HH:MM:SS string to HH:MM:SS, carrying minutes >= 60 into
// hours. Invalid input returns "00:00:00".
func NormalizeTimestamp(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = anchorRe.ReplaceAllString(raw, "")

	var hours, minutes, seconds int
	if m := hmmssRe.FindStringSubmatch(raw); m != nil {
		hours, _ = strconv.Atoi(m[1])
		minutes, _ = strconv.Atoi(m[2])
		seconds, _ = strconv.Atoi(m[3])
	} else if m := mssRe.FindStringSubmatch(raw); m != nil {
		minutes, _ = strconv.Atoi(m[1])
		seconds, _ = strconv.Atoi(m[2])
	} else {
		return "00:00:00"
	}

	hours += minutes / 60
	minutes = minutes % 60
	return pad2(hours) + ":" + pad2(minutes) + ":" + pad2(seconds)
}

func pad2(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func slugifyHeading(heading string) string {
	heading = strings.TrimLeft(heading, "# ")
	s := slug(heading)
	if s == "" {
		return "section"
	}
	return s
}

func isTimestampHeading(heading string) (string, bool) {
	m := timestampHeadingRe.FindString(heading)
	return m, m != ""
}

func hasActionHeadingHint(heading string) bool {
	lower := strings.ToLower(heading)
	for _, w := range actionHeadingWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

type mdSection struct {
	heading string
	content []string
}

// ParseMarkdownMeeting implements spec §4.1.1: split a Markdown document by
// ATX headings into sections, each becoming exactly one node (a timestamp
// section role=user, a notes section role=system).
func ParseMarkdownMeeting(content []byte, stem string) *conversation.Conversation {
	text := string(content)
	docID := DocumentID("meeting", stem, content)

	title := stem
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i >= 20 {
			break
		}
		if strings.HasPrefix(line, "#") {
			title = strings.TrimSpace(strings.TrimLeft(line, "# "))
			break
		}
	}

	sections := splitSections(lines)

	conv := &conversation.Conversation{
		ID:      docID,
		Title:   firstNonEmpty(title, "Untitled Meeting"),
		Mapping: map[string]conversation.Node{},
	}

	var previous string
	for _, sec := range sections {
		sectionText := strings.TrimSpace(strings.Join(sec.content, "\n"))

		var nodeID string
		var role conversation.Role
		if ts, ok := isTimestampHeading(sec.heading); sec.heading != "" && ok {
			nodeID = NormalizeTimestamp(ts)
			role = conversation.RoleUser
		} else {
			var s string
			if sec.heading != "" {
				s = slugifyHeading(sec.heading)
			} else {
				s = "preface"
			}
			nodeID = "notes:" + s
			role = conversation.RoleSystem
			if hasActionHeadingHint(sec.heading) {
				sectionText = "Action items (treat as commitments/tasks):\n\n" + sectionText
			}
		}

		var fullText string
		switch {
		case sec.heading != "" && sectionText != "":
			fullText = sec.heading + "\n\n" + sectionText
		case sec.heading != "":
			fullText = sec.heading
		default:
			fullText = sectionText
		}
		if strings.TrimSpace(fullText) == "" {
			continue
		}

		node := conversation.Node{
			ID:       nodeID,
			ParentID: previous,
			Message: &conversation.Message{
				ID:   nodeID,
				Role: role,
				Text: fullText,
			},
		}
		conv.Mapping[nodeID] = node
		previous = nodeID
	}
	conv.CurrentNode = previous
	return conv
}

func splitSections(lines []string) []mdSection {
	var sections []mdSection
	cur := mdSection{}
	started := false

	sectionHeadingRe := regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	for _, line := range lines {
		if m := sectionHeadingRe.FindStringSubmatch(line); m != nil {
			if started || len(cur.content) > 0 {
				sections = append(sections, cur)
			}
			cur = mdSection{heading: m[2]}
			started = true
			continue
		}
		cur.content = append(cur.content, line)
	}
	if started || len(cur.content) > 0 {
		sections = append(sections, cur)
	}
	return sections
}

// ParseTextTranscript implements spec §4.1.1's plain-text transcript
// parser: lines matching TIME : NAME : TEXT each produce one node;
// non-matching lines are appended to the most-recent node's body.
func ParseTextTranscript(content []byte, stem string) *conversation.Conversation {
	text := string(content)
	docID := DocumentID("doc", stem, content)

	conv := &conversation.Conversation{
		ID:      docID,
		Title:   firstNonEmpty(stem, "Untitled Transcript"),
		Mapping: map[string]conversation.Node{},
	}

	var previous string
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		if m := transcriptLineRe.FindStringSubmatch(line); m != nil {
			nodeID := NormalizeTimestamp(m[1])
			name := strings.TrimSpace(m[2])
			body := strings.TrimSpace(m[3])
			formatted := "**" + name + ":** " + body

			conv.Mapping[nodeID] = conversation.Node{
				ID:       nodeID,
				ParentID: previous,
				Message: &conversation.Message{
					ID:   nodeID,
					Role: conversation.RoleUser,
					Text: formatted,
				},
			}
			previous = nodeID
			continue
		}
		if previous != "" {
			if node, ok := conv.Mapping[previous]; ok && node.Message != nil {
				node.Message.Text += "\n" + line
				conv.Mapping[previous] = node
			}
		}
	}

	if len(conv.Mapping) == 0 {
		nodeID := "notes:transcript"
		conv.Mapping[nodeID] = conversation.Node{
			ID: nodeID,
			Message: &conversation.Message{
				ID:   nodeID,
				Role: conversation.RoleSystem,
				Text: text,
			},
		}
		previous = nodeID
	}
	conv.CurrentNode = previous
	return conv
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
