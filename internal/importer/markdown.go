package importer

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParsedFile represents a single Markdown file that has been parsed.
type ParsedFile struct {
	// Path is the absolute filesystem path to the file.
	Path string

	// RelativePath is the path relative to the import root directory.
	RelativePath string

	// Kind is the entity kind declared in frontmatter: "contact" or "note".
	// Files without a type declaration default to "note".
	Kind string

	// Title is derived from frontmatter, the first H1 heading, or the filename.
	Title string

	// Content is the raw Markdown body (frontmatter stripped).
	Content string

	// Frontmatter holds the parsed YAML frontmatter key/value pairs.
	Frontmatter map[string]interface{}

	// Tags is the tag list from frontmatter.
	Tags []string

	// Timestamp is from the frontmatter "date" field, or zero if absent.
	Timestamp time.Time
}

// ParseMarkdownFile parses a single Markdown file's content.
// relativePath is used for error reporting and fallback titles.
func ParseMarkdownFile(content []byte, absolutePath, relativePath string) (*ParsedFile, error) {
	text := string(content)

	fm, body, err := splitFrontmatter(text)
	if err != nil {
		return nil, fmt.Errorf("frontmatter parse error in %s: %w", relativePath, err)
	}

	kind := strings.ToLower(extractString(fm, "type", "note"))
	if kind != "contact" && kind != "note" {
		return nil, fmt.Errorf("unknown entity type %q in %s", kind, relativePath)
	}

	title := extractString(fm, "title", "")
	if title == "" {
		if h1 := extractH1(body); h1 != "" {
			title = h1
		} else {
			title = titleFromPath(relativePath)
		}
	}

	return &ParsedFile{
		Path:         absolutePath,
		RelativePath: relativePath,
		Kind:         kind,
		Title:        title,
		Content:      strings.TrimSpace(body),
		Frontmatter:  fm,
		Tags:         extractTags(fm),
		Timestamp:    extractTimestamp(fm),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between --- delimiters) from
// the Markdown body. Returns empty map and full text when no frontmatter found.
func splitFrontmatter(text string) (map[string]interface{}, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) == 0 {
		return map[string]interface{}{}, text, nil
	}

	// Frontmatter must start with "---" on the first line.
	if strings.TrimSpace(lines[0]) != "---" {
		return map[string]interface{}{}, text, nil
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closeIdx = i
			break
		}
	}

	if closeIdx == -1 {
		// No closing delimiter, treat entire file as body.
		return map[string]interface{}{}, text, nil
	}

	fmText := strings.Join(lines[1:closeIdx], "\n")
	fm := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
		return map[string]interface{}{}, text, fmt.Errorf("invalid YAML: %w", err)
	}

	body := strings.Join(lines[closeIdx+1:], "\n")
	return fm, body, nil
}

// titleFromPath derives a human-readable title from the file name (no extension).
func titleFromPath(rel string) string {
	base := filepath.Base(rel)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}

// extractH1 returns the text of the first ATX heading (# ...) found in the body.
func extractH1(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// extractTags reads tags from frontmatter. Handles both list and string forms.
func extractTags(fm map[string]interface{}) []string {
	raw, ok := fm["tags"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []interface{}:
		var tags []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
		return dedupeTags(tags)
	case string:
		if v == "" {
			return nil
		}
		// Comma-separated tags in a single string.
		var tags []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		return dedupeTags(tags)
	}
	return nil
}

// dedupeTags removes duplicates by lowercase value, preserving first-seen casing.
func dedupeTags(tags []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		if !seen[lower] {
			seen[lower] = true
			result = append(result, tag)
		}
	}
	return result
}

// extractTimestamp reads a date field from frontmatter and attempts several
// common layouts.
func extractTimestamp(fm map[string]interface{}) time.Time {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
	}

	for _, key := range []string{"date", "created", "created_at", "updated_at"} {
		raw, ok := fm[key]
		if !ok {
			continue
		}
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case time.Time:
			return v
		default:
			s = fmt.Sprintf("%v", v)
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// extractString pulls a string value from frontmatter by key with a default.
func extractString(fm map[string]interface{}, key, defaultVal string) string {
	v, ok := fm[key]
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return defaultVal
}

// extractBool pulls a boolean value from frontmatter by key.
func extractBool(fm map[string]interface{}, key string) bool {
	v, ok := fm[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
