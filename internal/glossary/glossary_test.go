package glossary

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

type memoryStore struct {
	projects []Project
	saves    int
	failSave bool
}

func (s *memoryStore) Load() ([]Project, error) { return s.projects, nil }

func (s *memoryStore) Save(projects []Project) error {
	if s.failSave {
		return errors.New("disk full")
	}
	s.projects = projects
	s.saves++
	return nil
}

func newTestManager(t *testing.T, store Store) *Manager {
	t.Helper()
	m, err := NewManager(store)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestSetActiveEnforcesSingleActiveProject(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	m := newTestManager(t, store)

	a, err := m.CreateProject("project A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := m.CreateProject("project B")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.SetActive(a.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if err := m.SetActive(b.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}

	activeCount := 0
	for _, p := range m.Projects() {
		if p.Active {
			activeCount++
			if p.ID != b.ID {
				t.Fatalf("wrong project active: %s", p.Name)
			}
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active project, got %d", activeCount)
	}

	if err := m.SetActive(""); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, ok := m.ActiveProject(); ok {
		t.Fatal("expected no active project after deactivation")
	}
}

func TestMutationsPersistImmediately(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	m := newTestManager(t, store)

	p, err := m.CreateProject("terms")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.PutEntry(p.ID, Entry{Source: "VoiceNote", Kind: NoTranslate}); err != nil {
		t.Fatalf("put entry: %v", err)
	}
	if store.saves != 2 {
		t.Fatalf("expected 2 persisted snapshots, got %d", store.saves)
	}
	if len(store.projects) != 1 || len(store.projects[0].Entries) != 1 {
		t.Fatalf("persisted snapshot wrong: %+v", store.projects)
	}
}

func TestFailedSaveLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	m := newTestManager(t, store)
	p, err := m.CreateProject("terms")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	store.failSave = true
	if err := m.PutEntry(p.ID, Entry{Source: "x", Kind: NoTranslate}); err == nil {
		t.Fatal("expected save failure")
	}

	projects := m.Projects()
	if len(projects[0].Entries) != 0 {
		t.Fatalf("failed save mutated in-memory state: %+v", projects[0].Entries)
	}
}

func TestApplyBeforeAndAfterRoundTrip(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	m := newTestManager(t, store)
	p, _ := m.CreateProject("terms")
	if err := m.PutEntry(p.ID, Entry{Source: "VoiceNote", Kind: NoTranslate}); err != nil {
		t.Fatalf("put entry: %v", err)
	}
	if err := m.PutEntry(p.ID, Entry{Source: "音声メモ", Target: "voice memo", Kind: FixedTranslation}); err != nil {
		t.Fatalf("put entry: %v", err)
	}
	if err := m.SetActive(p.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}

	in := "VoiceNoteで音声メモを取ります。"
	masked, placeholders := m.ApplyBefore(in)

	if strings.Contains(masked, "VoiceNote") || strings.Contains(masked, "音声メモ") {
		t.Fatalf("glossary terms not masked: %q", masked)
	}
	if len(placeholders) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(placeholders))
	}

	// Simulated translation leaves placeholders untouched.
	translated := "I take " + masked + " with it."
	restored := m.ApplyAfter(translated, placeholders)

	if !strings.Contains(restored, "VoiceNote") {
		t.Fatalf("NoTranslate term lost: %q", restored)
	}
	if !strings.Contains(restored, "voice memo") {
		t.Fatalf("FixedTranslation target missing: %q", restored)
	}
}

func TestApplyBeforePlaceholderLikeSourceTerminates(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	m := newTestManager(t, store)
	p, _ := m.CreateProject("terms")
	// A source that is a prefix of the generated placeholder text must not
	// re-match its own replacement.
	if err := m.PutEntry(p.ID, Entry{Source: "⟦GL", Kind: NoTranslate}); err != nil {
		t.Fatalf("put entry: %v", err)
	}
	if err := m.SetActive(p.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}

	masked, placeholders := m.ApplyBefore("⟦GLという記号を説明します。")
	if len(placeholders) != 1 {
		t.Fatalf("expected 1 placeholder, got %d", len(placeholders))
	}
	if got := m.ApplyAfter(masked, placeholders); !strings.Contains(got, "⟦GL") {
		t.Fatalf("source not restored: %q", got)
	}
}

func TestApplyAfterPostTranslateReplace(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	m := newTestManager(t, store)
	p, _ := m.CreateProject("terms")
	if err := m.PutEntry(p.ID, Entry{Source: "voice note", Target: "VoiceNote", Kind: PostTranslateReplace}); err != nil {
		t.Fatalf("put entry: %v", err)
	}
	if err := m.SetActive(p.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}

	got := m.ApplyAfter("Open the voice note app.", nil)
	if got != "Open the VoiceNote app." {
		t.Fatalf("post-translate replace failed: %q", got)
	}
}

func TestNoActiveProjectIsPassthrough(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	m := newTestManager(t, store)
	p, _ := m.CreateProject("terms")
	if err := m.PutEntry(p.ID, Entry{Source: "VoiceNote", Kind: NoTranslate}); err != nil {
		t.Fatalf("put entry: %v", err)
	}

	in := "VoiceNoteを使います。"
	masked, placeholders := m.ApplyBefore(in)
	if masked != in || len(placeholders) != 0 {
		t.Fatalf("inactive glossary must pass through: %q %v", masked, placeholders)
	}
	if got := m.ApplyAfter(in, nil); got != in {
		t.Fatalf("inactive glossary must pass through: %q", got)
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "glossary.json")
	store := NewJSONStore(path)

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty collection, got %+v", loaded)
	}

	projects := []Project{{
		ID:     "p1",
		Name:   "terms",
		Active: true,
		Entries: []Entry{
			{Source: "VoiceNote", Kind: NoTranslate},
		},
	}}
	if err := store.Save(projects); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err = store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "terms" || !loaded[0].Active {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if len(loaded[0].Entries) != 1 || loaded[0].Entries[0].Source != "VoiceNote" {
		t.Fatalf("entries lost: %+v", loaded[0].Entries)
	}
}
