package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/resquick/portal/internal/markdown"
)

var ErrHelpPageNotFound = errors.New("help page not found")

type HelpPage struct {
	Title       string
	Slug        string
	Description string
	Order       int
	Content     string
	Outline     []markdown.Heading
}

// HelpService serves markdown help pages from <contentDir>/help.
type HelpService struct {
	contentDir string
	reload     bool
	parser     *markdown.Parser

	mu    sync.RWMutex
	pages map[string]*HelpPage
}

// NewHelpService reads pages from contentDir. With reload set, every lookup
// re-reads the directory so edits show up without a restart.
func NewHelpService(contentDir string, reload bool) *HelpService {
	return &HelpService{
		contentDir: filepath.Join(contentDir, "help"),
		reload:     reload,
		parser:     markdown.NewParser("/help"),
		pages:      make(map[string]*HelpPage),
	}
}

func (s *HelpService) LoadPages() error {
	files, err := os.ReadDir(s.contentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read help directory: %w", err)
	}

	pages := make(map[string]*HelpPage)
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}

		slug := strings.TrimSuffix(file.Name(), ".md")
		page, err := s.loadPage(slug)
		if err != nil {
			return fmt.Errorf("failed to load page %s: %w", slug, err)
		}

		pages[slug] = page
	}

	s.mu.Lock()
	s.pages = pages
	s.mu.Unlock()
	return nil
}

func (s *HelpService) loadPage(slug string) (*HelpPage, error) {
	content, err := os.ReadFile(filepath.Join(s.contentDir, slug+".md"))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	doc, err := s.parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown: %w", err)
	}

	title := doc.Meta.Title
	if title == "" {
		title = cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " "))
	}

	return &HelpPage{
		Title:       title,
		Slug:        slug,
		Description: doc.Meta.Description,
		Order:       doc.Meta.Order,
		Content:     string(doc.HTML),
		Outline:     doc.Outline,
	}, nil
}

func (s *HelpService) Page(slug string) (*HelpPage, error) {
	if s.reload {
		if err := s.LoadPages(); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	page, ok := s.pages[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHelpPageNotFound, slug)
	}

	return page, nil
}

// Pages lists all help pages by their order, then title.
func (s *HelpService) Pages() []*HelpPage {
	if s.reload {
		_ = s.LoadPages()
	}

	s.mu.RLock()
	pages := make([]*HelpPage, 0, len(s.pages))
	for _, p := range s.pages {
		pages = append(pages, p)
	}
	s.mu.RUnlock()

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Order != pages[j].Order {
			return pages[i].Order < pages[j].Order
		}
		return pages[i].Title < pages[j].Title
	})
	return pages
}
