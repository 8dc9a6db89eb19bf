package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

const (
	systemFile     = "SYSTEM.txt"
	editorFile     = "SYSTEM_EDITOR.txt"
	translatorFile = "SYSTEM_TRANSLATOR.txt"
	faqFile        = "FAQ.txt"
)

// Store loads prompt templates, FAQ probes and supporting context
// documents from a directory on disk. Files are read once and cached;
// a missing required file surfaces as a fatal configuration error at
// first use, not at construction.
type Store struct {
	dir string

	mu    sync.Mutex
	cache map[string]string
}

func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]string),
	}
}

func (s *Store) SystemPrompt() (string, error) {
	return s.load(systemFile)
}

func (s *Store) EditorPrompt() (string, error) {
	return s.load(editorFile)
}

func (s *Store) TranslatorPrompt() (string, error) {
	return s.load(translatorFile)
}

// FAQQuestions returns one probe question per non-empty line.
func (s *Store) FAQQuestions() ([]string, error) {
	raw, err := s.load(faqFile)
	if err != nil {
		return nil, err
	}

	var questions []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if len(questions) == 0 {
		return nil, domain.WrapError(domain.ErrConfig, "templates.faq",
			fmt.Errorf("no questions in %s", filepath.Join(s.dir, faqFile)))
	}
	return questions, nil
}

// ContextDocuments concatenates every other .md and .txt file in the
// directory, in name order, as background material for the system
// prompt. An empty directory is fine; the placeholder just collapses.
func (s *Store) ContextDocuments() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", domain.WrapError(domain.ErrConfig, "templates.context",
			fmt.Errorf("read context dir: %w", err))
	}

	reserved := map[string]bool{
		systemFile:     true,
		editorFile:     true,
		translatorFile: true,
		faqFile:        true,
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || reserved[entry.Name()] {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".md", ".txt":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		content, err := s.load(name)
		if err != nil {
			return "", err
		}
		if content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *Store) load(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", domain.WrapError(domain.ErrConfig, "templates.load",
			fmt.Errorf("read template %s: %w", name, err))
	}
	content := strings.TrimSpace(string(raw))
	s.cache[name] = content
	return content, nil
}
