package normalize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ckexporter/internal/conversation"
)

// LoadDirectory enumerates root (spec §4.1's directory shape) and
// normalizes every recognized file into canonical conversations, in
// deterministic lexicographic order. Non-conforming files are skipped
// silently; this is a per-item skip, never fatal.
func LoadDirectory(root string) ([]*conversation.Conversation, error) {
	paths, err := ListDirectory(root)
	if err != nil {
		return nil, err
	}

	var out []*conversation.Conversation
	for _, path := range paths {
		convs, err := LoadFile(path)
		if err != nil {
			continue
		}
		out = append(out, convs...)
	}
	return out, nil
}

// LoadFile normalizes a single file by extension: .json through the
// ChatGPT/Claude shape detector, .md through the meeting-notes parser,
// .txt through the transcript parser.
func LoadFile(path string) ([]*conversation.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return LoadBytes(data, stem, filepath.Ext(path), path)
}

// LoadBytes normalizes in-memory file content by extension, the shared
// core LoadFile and non-filesystem sources (e.g. internal/ingestsource/s3)
// both dispatch through.
func LoadBytes(data []byte, stem, ext, displayPath string) ([]*conversation.Conversation, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return LoadJSON(data, stem, displayPath)
	case ".md":
		return []*conversation.Conversation{ParseMarkdownMeeting(data, stem)}, nil
	case ".txt":
		return []*conversation.Conversation{ParseTextTranscript(data, stem)}, nil
	default:
		return nil, fmt.Errorf("unsupported extension for %q", displayPath)
	}
}
