package format

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/fsdocs/internal/apperr"
)

const frontmatterDelim = "---"

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Markdown is a Markdown document with optional YAML frontmatter.
// Title and Tags are derived by ParseMarkdown and ignored by Render.
type Markdown struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Tags        []string
}

// Render produces the on-disk text: a frontmatter block (when present)
// followed by the body.
func (m Markdown) Render() (string, error) {
	if len(m.Frontmatter) == 0 {
		return m.Body, nil
	}
	fm, err := yaml.Marshal(m.Frontmatter)
	if err != nil {
		return "", fmt.Errorf("%w: frontmatter: %v", apperr.ErrInvalidContent, err)
	}
	var b strings.Builder
	b.WriteString(frontmatterDelim + "\n")
	b.Write(fm)
	b.WriteString(frontmatterDelim + "\n\n")
	b.WriteString(m.Body)
	return b.String(), nil
}

// ParseMarkdown splits text into frontmatter and body and derives the title
// and tags.
func ParseMarkdown(text string) *Markdown {
	fm, body := splitFrontmatter([]byte(text))
	return &Markdown{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Tags:        extractTags(body, fm),
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. Without a valid block the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(frontmatterDelim)) {
		return nil, string(data)
	}

	rest := trimmed[len(frontmatterDelim):]
	idx := bytes.Index(rest, []byte("\n"+frontmatterDelim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(frontmatterDelim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// extractTags collects the frontmatter "tags" list followed by inline #tags,
// without duplicates.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if raw, ok := fm["tags"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title", else the first H1 heading.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
