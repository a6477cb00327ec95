package vault

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterFence = "---"

// markerKey is the frontmatter key the terminal tag lives under.
const markerKey = "forfeit"

// WriteMarker upserts the terminal marker into the draft's YAML
// frontmatter, creating a frontmatter block when the file has none and
// preserving any user fields already present.
func WriteMarker(path string, marker Marker) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fields, body, err := splitFrontmatter(raw)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields[markerKey] = marker

	block, err := yaml.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode frontmatter: %w", err)
	}

	var out bytes.Buffer
	out.WriteString(frontmatterFence + "\n")
	out.Write(block)
	out.WriteString(frontmatterFence + "\n")
	out.Write(body)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out.Bytes(), info.Mode().Perm())
}

// ReadMarker returns the terminal marker from a draft's frontmatter, or
// nil when the draft carries none.
func ReadMarker(path string) (*Marker, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fields, _, err := splitFrontmatter(raw)
	if err != nil {
		return nil, err
	}
	value, ok := fields[markerKey]
	if !ok {
		return nil, nil
	}

	// round-trip the sub-tree through yaml to get typed fields back
	encoded, err := yaml.Marshal(value)
	if err != nil {
		return nil, err
	}
	var marker Marker
	if err := yaml.Unmarshal(encoded, &marker); err != nil {
		return nil, fmt.Errorf("decode %s marker: %w", markerKey, err)
	}
	return &marker, nil
}

// splitFrontmatter separates a leading YAML frontmatter block from the
// document body. Files without a block, including a bare fence with no
// closing one, return nil fields and the full content as body.
func splitFrontmatter(raw []byte) (map[string]any, []byte, error) {
	text := string(raw)
	if !strings.HasPrefix(text, frontmatterFence+"\n") {
		return nil, raw, nil
	}

	rest := text[len(frontmatterFence)+1:]
	end := closingFence(rest)
	if end < 0 {
		// unterminated fence; treat the whole file as body
		return nil, raw, nil
	}

	blockText := rest[:end+1]
	body := rest[end+1+len(frontmatterFence):]
	body = strings.TrimPrefix(body, "\n")

	fields := map[string]any{}
	if err := yaml.Unmarshal([]byte(blockText), &fields); err != nil {
		return nil, nil, fmt.Errorf("decode frontmatter: %w", err)
	}
	return fields, []byte(body), nil
}

// closingFence finds the newline starting the closing fence line. The fence
// must occupy a whole line, so a horizontal rule or a line that merely
// starts with dashes does not terminate the block.
func closingFence(rest string) int {
	from := 0
	for {
		i := strings.Index(rest[from:], "\n"+frontmatterFence)
		if i < 0 {
			return -1
		}
		pos := from + i
		after := pos + 1 + len(frontmatterFence)
		if after == len(rest) || rest[after] == '\n' {
			return pos
		}
		from = pos + 1
	}
}
