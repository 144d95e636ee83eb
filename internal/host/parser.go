package host

import (
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/mfolders/internal/models"
)

// Macro is a parsed macro document.
type Macro struct {
	Frontmatter map[string]any
	Command     string
	Descriptor  models.EntryDescriptor
}

// ParseMacro extracts the descriptor of the macro stored as data under id.
// Malformed frontmatter is not an error: the document is then all command.
func ParseMacro(id string, data []byte) *Macro {
	fm, body := splitFrontmatter(data)
	return &Macro{
		Frontmatter: fm,
		Command:     body,
		Descriptor: models.EntryDescriptor{
			ID:         id,
			Name:       deriveName(id, fm, body),
			Author:     stringField(fm, "author"),
			Permission: permissionField(fm),
		},
	}
}

const fmDelim = "---"

// frontmatterBlock returns the raw YAML between leading --- delimiters and the
// body after them. ok is false when data has no delimited block.
func frontmatterBlock(data []byte) (block []byte, body string, ok bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(fmDelim)) {
		return nil, "", false
	}
	rest := trimmed[len(fmDelim):]
	idx := bytes.Index(rest, []byte("\n"+fmDelim))
	if idx < 0 {
		return nil, "", false
	}
	afterDelim := rest[idx+1+len(fmDelim):]
	return rest[:idx], strings.TrimLeft(string(afterDelim), "\n\r"), true
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	block, body, ok := frontmatterBlock(data)
	if !ok {
		return nil, string(data)
	}
	var fm map[string]any
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// SetFrontmatterField sets key to value in the document's frontmatter and
// returns the rewritten document. Other keys keep their order and the body is
// unchanged. A document without usable frontmatter gets a new block.
func SetFrontmatterField(data []byte, key, value string) ([]byte, error) {
	var doc yaml.Node
	body := string(data)
	if block, rest, ok := frontmatterBlock(data); ok {
		var parsed yaml.Node
		if err := yaml.Unmarshal(block, &parsed); err == nil &&
			(parsed.Kind == 0 || (len(parsed.Content) == 1 && parsed.Content[0].Kind == yaml.MappingNode)) {
			doc, body = parsed, rest
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}

	m := doc.Content[0]
	val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	found := false
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = val
			found = true
		}
	}
	if !found {
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, val)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("host: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(fmDelim + "\n")
	buf.Write(out)
	buf.WriteString(fmDelim + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// deriveName returns the frontmatter "name", else the first H1 heading, else
// the last segment of id.
func deriveName(id string, fm map[string]any, body string) string {
	if s := stringField(fm, "name"); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return path.Base(id)
}

func stringField(fm map[string]any, key string) string {
	if fm == nil {
		return ""
	}
	switch v := fm[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func permissionField(fm map[string]any) models.PermissionLevel {
	if fm == nil {
		return models.PermissionNone
	}
	switch v := fm["permission"].(type) {
	case int:
		if lvl := models.PermissionLevel(v); lvl.Valid() {
			return lvl
		}
	case string:
		if lvl, ok := models.ParsePermission(v); ok {
			return lvl
		}
	}
	return models.PermissionNone
}
