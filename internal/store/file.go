package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// snapshot is the on-disk form of a MemoryStore. Records are written in
// insertion order so a restore reproduces list ordering.
type snapshot struct {
	Users         []User         `json:"users"`
	Sessions      []Session      `json:"sessions"`
	Tasks         []Task         `json:"tasks"`
	Bills         []Bill         `json:"bills"`
	Habits        []Habit        `json:"habits"`
	HabitLogs     []HabitLog     `json:"habitLogs"`
	Documents     []Document     `json:"documents"`
	Notifications []Notification `json:"notifications"`
	Conversations []Conversation `json:"conversations"`
	Messages      []ChatMessage  `json:"messages"`
	AIActions     []AIAction     `json:"aiActions"`
}

// FileSnapshot persists a MemoryStore to a single JSON file on disk.
type FileSnapshot struct {
	path string
}

func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

// Load restores m from disk. A missing file is not an error.
func (f *FileSnapshot) Load(m *MemoryStore) error {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", f.path, err)
	}
	m.restore(&snap)
	return nil
}

// Save writes m to disk when it changed since the last save. A failed write
// leaves the store dirty so the next Save retries.
func (f *FileSnapshot) Save(m *MemoryStore) error {
	snap, changed := m.snapshot()
	if !changed {
		return nil
	}
	if err := f.write(snap); err != nil {
		m.markDirty()
		return err
	}
	return nil
}

func (f *FileSnapshot) write(snap *snapshot) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func collect[T any](m *MemoryStore, src map[string]T) []T {
	ids := make([]string, 0, len(src))
	for id := range src {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return m.seqOf[ids[i]] < m.seqOf[ids[j]] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, src[id])
	}
	return out
}

// snapshot copies the store and clears the dirty flag.
func (m *MemoryStore) snapshot() (*snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := m.dirty
	m.dirty = false
	return &snapshot{
		Users:         collect(m, m.users),
		Sessions:      collect(m, m.sessions),
		Tasks:         collect(m, m.tasks),
		Bills:         collect(m, m.bills),
		Habits:        collect(m, m.habits),
		HabitLogs:     collect(m, m.habitLogs),
		Documents:     collect(m, m.documents),
		Notifications: collect(m, m.notifications),
		Conversations: collect(m, m.conversations),
		Messages:      collect(m, m.messages),
		AIActions:     collect(m, m.aiActions),
	}, changed
}

func (m *MemoryStore) markDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = true
}

func (m *MemoryStore) restore(s *snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range s.Users {
		m.stampLocked(&v.ID)
		m.users[v.ID] = v
	}
	for _, v := range s.Sessions {
		m.stampLocked(&v.ID)
		m.sessions[v.ID] = v
	}
	for _, v := range s.Tasks {
		m.stampLocked(&v.ID)
		m.tasks[v.ID] = v
	}
	for _, v := range s.Bills {
		m.stampLocked(&v.ID)
		m.bills[v.ID] = v
	}
	for _, v := range s.Habits {
		m.stampLocked(&v.ID)
		m.habits[v.ID] = v
	}
	for _, v := range s.HabitLogs {
		m.stampLocked(&v.ID)
		m.habitLogs[v.ID] = v
	}
	for _, v := range s.Documents {
		m.stampLocked(&v.ID)
		m.documents[v.ID] = v
	}
	for _, v := range s.Notifications {
		m.stampLocked(&v.ID)
		m.notifications[v.ID] = v
	}
	for _, v := range s.Conversations {
		m.stampLocked(&v.ID)
		m.conversations[v.ID] = v
	}
	for _, v := range s.Messages {
		m.stampLocked(&v.ID)
		m.messages[v.ID] = v
	}
	for _, v := range s.AIActions {
		m.stampLocked(&v.ID)
		m.aiActions[v.ID] = v
	}
	m.dirty = false
}
