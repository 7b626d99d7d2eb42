package content

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed topics/*.yaml
var embedded embed.FS

// Branch is a sub-topic selected when any of its match keywords occurs in the prompt.
type Branch struct {
	Name  string   `yaml:"name"`
	Match []string `yaml:"match"`
	Body  string   `yaml:"body"`
}

// Topic is the static content one category generator renders from.
type Topic struct {
	Name     string   `yaml:"name"`
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
	Intro    string   `yaml:"intro"`
	Branches []Branch `yaml:"branches"`
	Fallback string   `yaml:"fallback"`
	Closing  string   `yaml:"closing"`
}

// Branch returns the first branch with a keyword present in lower, or nil.
func (t *Topic) Branch(lower string) *Branch {
	for i := range t.Branches {
		for _, kw := range t.Branches[i].Match {
			if ContainsKeyword(lower, kw) {
				return &t.Branches[i]
			}
		}
	}
	return nil
}

// KeywordHits counts how many distinct topic keywords occur in lower.
func (t *Topic) KeywordHits(lower string) int {
	n := 0
	for _, kw := range t.Keywords {
		if ContainsKeyword(lower, kw) {
			n++
		}
	}
	return n
}

// Library is an immutable set of topics keyed by name.
type Library struct {
	topics map[string]*Topic
	order  []string
}

// Load parses every *.yaml file under dir in fsys. Files are read in lexical order and
// topics keep their declaration order within a file.
func Load(fsys fs.FS, dir string) (*Library, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob topics: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no topic files in %q", dir)
	}
	sort.Strings(files)

	lib := &Library{topics: make(map[string]*Topic)}
	for _, f := range files {
		raw, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		var topics []*Topic
		if err := yaml.Unmarshal(raw, &topics); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		for _, t := range topics {
			if err := validate(t); err != nil {
				return nil, fmt.Errorf("%s: %w", f, err)
			}
			if _, dup := lib.topics[t.Name]; dup {
				return nil, fmt.Errorf("%s: duplicate topic %q", f, t.Name)
			}
			lib.topics[t.Name] = t
			lib.order = append(lib.order, t.Name)
		}
	}
	return lib, nil
}

func validate(t *Topic) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("topic without name")
	}
	if t.Title == "" || t.Fallback == "" {
		return fmt.Errorf("topic %q needs title and fallback", t.Name)
	}
	for _, b := range t.Branches {
		if len(b.Match) == 0 || strings.TrimSpace(b.Body) == "" {
			return fmt.Errorf("topic %q branch %q needs match keywords and body", t.Name, b.Name)
		}
	}
	return nil
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
)

// Default returns the topics compiled into the binary. A broken embedded file is a build
// defect, so it panics.
func Default() *Library {
	defaultOnce.Do(func() {
		lib, err := Load(embedded, "topics")
		if err != nil {
			panic("content: " + err.Error())
		}
		defaultLib = lib
	})
	return defaultLib
}

// Topic looks a topic up by name.
func (l *Library) Topic(name string) (*Topic, bool) {
	t, ok := l.topics[name]
	return t, ok
}

// Names lists topic names in load order.
func (l *Library) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

func (l *Library) Len() int { return len(l.order) }
