// Package docs embeds the user documentation shown by "stacker topic".
//
// Every markdown file is a topic named after the file. The index topic introduces
// stacker and lists the others.
package docs

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed *.md
var pages embed.FS

// Index is the topic shown when none is asked for.
const Index = "readme"

// All stands for every topic but the index.
const All = "*"

// ErrUnknownTopic is returned when no page has the requested name.
var ErrUnknownTopic = errors.New("unknown topic")

// Topic describes a documentation page.
type Topic struct {
	Name  string
	Title string // first level one heading, or the name
}

// Topics returns every topic but the index, sorted by name.
func Topics() ([]Topic, error) {
	entries, err := fs.ReadDir(pages, ".")
	if err != nil {
		return nil, err
	}
	topics := make([]Topic, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".md")
		if !ok || name == Index {
			continue
		}
		content, err := pages.ReadFile(e.Name())
		if err != nil {
			return nil, err
		}
		topics = append(topics, Topic{Name: name, Title: title(content, name)})
	}
	return topics, nil
}

// title returns the text of the first "# " line of a page.
func title(content []byte, fallback string) string {
	s := bufio.NewScanner(bytes.NewReader(content))
	for s.Scan() {
		if t, ok := strings.CutPrefix(s.Text(), "# "); ok {
			return strings.TrimSpace(t)
		}
	}
	return fallback
}

// Read returns the pages of the named topics, in order, separated by a blank line.
func Read(names ...string) (string, error) {
	var expanded []string
	for _, name := range names {
		if name != All {
			expanded = append(expanded, name)
			continue
		}
		topics, err := Topics()
		if err != nil {
			return "", err
		}
		for _, t := range topics {
			expanded = append(expanded, t.Name)
		}
	}

	var b strings.Builder
	for _, name := range expanded {
		if err := read(&b, name); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func read(b *strings.Builder, name string) error {
	content, err := pages.ReadFile(name + ".md")
	if err != nil {
		return fmt.Errorf("%w %q", ErrUnknownTopic, name)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.Write(content)
	return nil
}
