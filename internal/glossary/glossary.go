// Package glossary manages user dictionaries applied around translation.
// A project groups entries; at most one project is active at a time, and the
// active project's entries drive the pre- and post-translation passes.
package glossary

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fukudafukuo/VoiceNote/internal/textproc"
)

// EntryKind controls how a glossary entry participates in translation.
type EntryKind string

const (
	// NoTranslate shields the source term from translation entirely.
	NoTranslate EntryKind = "no_translate"
	// FixedTranslation forces a configured target term.
	FixedTranslation EntryKind = "fixed_translation"
	// PostTranslateReplace rewrites the translated text literally.
	PostTranslateReplace EntryKind = "post_translate_replace"
)

// Entry is one glossary rule.
type Entry struct {
	Source string    `json:"source"`
	Target string    `json:"target"`
	Kind   EntryKind `json:"kind"`
}

// Project is an ordered collection of entries.
type Project struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Active  bool    `json:"active"`
	Entries []Entry `json:"entries"`
}

// Placeholder records one pre-translation substitution awaiting restoration.
type Placeholder struct {
	Token       string
	Restoration string
}

// Store persists the whole project collection atomically.
type Store interface {
	Load() ([]Project, error)
	Save([]Project) error
}

var ErrProjectNotFound = errors.New("glossary project not found")

// Manager owns the project collection. State is read-mostly; every mutation
// produces a consistent snapshot persisted through the store.
type Manager struct {
	mu       sync.RWMutex
	store    Store
	projects []Project
}

func NewManager(store Store) (*Manager, error) {
	projects, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load glossary projects: %w", err)
	}
	return &Manager{store: store, projects: projects}, nil
}

// Projects returns a snapshot of all projects.
func (m *Manager) Projects() []Project {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneProjects(m.projects)
}

// CreateProject appends a new, inactive project and persists.
func (m *Manager) CreateProject(name string) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := Project{ID: uuid.NewString(), Name: name}
	m.projects = append(m.projects, p)
	if err := m.store.Save(m.projects); err != nil {
		m.projects = m.projects[:len(m.projects)-1]
		return Project{}, err
	}
	return p, nil
}

// DeleteProject removes a project and persists.
func (m *Manager) DeleteProject(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return ErrProjectNotFound
	}
	remaining := make([]Project, 0, len(m.projects)-1)
	remaining = append(remaining, m.projects[:idx]...)
	remaining = append(remaining, m.projects[idx+1:]...)
	next := cloneProjects(remaining)
	if err := m.store.Save(next); err != nil {
		return err
	}
	m.projects = next
	return nil
}

// SetActive makes the given project the single active one; an empty id
// deactivates all projects.
func (m *Manager) SetActive(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" && m.indexOf(id) < 0 {
		return ErrProjectNotFound
	}

	next := cloneProjects(m.projects)
	for i := range next {
		next[i].Active = next[i].ID == id && id != ""
	}
	if err := m.store.Save(next); err != nil {
		return err
	}
	m.projects = next
	return nil
}

// PutEntry appends or updates an entry in a project, keyed by source+kind.
func (m *Manager) PutEntry(projectID string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(projectID)
	if idx < 0 {
		return ErrProjectNotFound
	}

	next := cloneProjects(m.projects)
	entries := next[idx].Entries
	replaced := false
	for i := range entries {
		if entries[i].Source == entry.Source && entries[i].Kind == entry.Kind {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		next[idx].Entries = append(entries, entry)
	}

	if err := m.store.Save(next); err != nil {
		return err
	}
	m.projects = next
	return nil
}

// RemoveEntry deletes an entry from a project.
func (m *Manager) RemoveEntry(projectID string, source string, kind EntryKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(projectID)
	if idx < 0 {
		return ErrProjectNotFound
	}

	next := cloneProjects(m.projects)
	entries := next[idx].Entries[:0:0]
	for _, e := range next[idx].Entries {
		if e.Source == source && e.Kind == kind {
			continue
		}
		entries = append(entries, e)
	}
	next[idx].Entries = entries

	if err := m.store.Save(next); err != nil {
		return err
	}
	m.projects = next
	return nil
}

// ActiveProject returns the active project, if any.
func (m *Manager) ActiveProject() (Project, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.projects {
		if p.Active {
			return cloneProject(p), true
		}
	}
	return Project{}, false
}

// ApplyBefore substitutes NoTranslate and FixedTranslation entries of the
// active project with fresh placeholders, longest source first, and records
// the restoration text for each occurrence. With no active project the text
// passes through unchanged.
func (m *Manager) ApplyBefore(text string) (string, []Placeholder) {
	active, ok := m.ActiveProject()
	if !ok {
		return text, nil
	}

	entries := make([]Entry, 0, len(active.Entries))
	for _, e := range active.Entries {
		if e.Kind == NoTranslate || e.Kind == FixedTranslation {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Source) > len(entries[j].Source)
	})

	var placeholders []Placeholder
	for _, e := range entries {
		if e.Source == "" {
			continue
		}
		restoration := e.Source
		if e.Kind == FixedTranslation {
			restoration = e.Target
		}
		// The scan resumes past each inserted token so a source that happens
		// to match placeholder text cannot re-trigger on its own replacement.
		idx := 0
		for {
			i := strings.Index(text[idx:], e.Source)
			if i < 0 {
				break
			}
			at := idx + i
			token := textproc.NewGlossaryPlaceholder()
			text = text[:at] + token + text[at+len(e.Source):]
			idx = at + len(token)
			placeholders = append(placeholders, Placeholder{Token: token, Restoration: restoration})
		}
	}
	return text, placeholders
}

// ApplyAfter first applies PostTranslateReplace entries as literal substring
// replacement, then resolves every recorded placeholder back to its
// restoration text.
func (m *Manager) ApplyAfter(text string, placeholders []Placeholder) string {
	if active, ok := m.ActiveProject(); ok {
		for _, e := range active.Entries {
			if e.Kind == PostTranslateReplace && e.Source != "" {
				text = strings.ReplaceAll(text, e.Source, e.Target)
			}
		}
	}
	for _, p := range placeholders {
		text = strings.ReplaceAll(text, p.Token, p.Restoration)
	}
	return text
}

func (m *Manager) indexOf(id string) int {
	for i, p := range m.projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func cloneProjects(projects []Project) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, cloneProject(p))
	}
	return out
}

func cloneProject(p Project) Project {
	clone := p
	clone.Entries = append([]Entry(nil), p.Entries...)
	return clone
}
