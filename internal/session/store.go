package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Load when no session directory exists for the
// given id.
var ErrNotFound = errors.New("session: not found")

// rootDirName is the conventional per-project directory holding all session
// subdirectories.
const rootDirName = ".orchestra"

// Store is durable, crash-safe storage for Session state and file artifacts
// under <root>/<sessionId>/. session.json is written through write-to-temp-
// then-rename for atomic visibility (see DESIGN.md); checkpoint copies and
// reverted files are written in place with os.WriteFile.
type Store struct {
	root  string
	index Index // optional; see WithIndex
}

// NewStore creates a Store rooted at workDir/.orchestra.
func NewStore(workDir string) *Store {
	return &Store{root: filepath.Join(workDir, rootDirName)}
}

func (st *Store) sessionDir(id string) string {
	return filepath.Join(st.root, id)
}

func (st *Store) sessionFile(id string) string {
	return filepath.Join(st.sessionDir(id), "session.json")
}

// Create initializes a new Session for task and persists it immediately.
func (st *Store) Create(task Task) (*Session, error) {
	now := time.Now()
	s := &Session{
		ID:           uuid.NewString(),
		Task:         task,
		Phase:        PhaseInit,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := st.Save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the session.json for id from disk. Returns ErrNotFound if the
// directory or file does not exist.
func (st *Store) Load(id string) (*Session, error) {
	raw, err := os.ReadFile(st.sessionFile(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: read %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", id, err)
	}
	return &s, nil
}

// Save atomically persists s to disk: write-to-temp-then-rename. Updates
// LastActivity as a side effect, per the "updated on every mutating
// operation" invariant.
func (st *Store) Save(s *Session) error {
	s.LastActivity = time.Now()

	dir := st.sessionDir(s.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("session: mkdir %s: %w", dir, err)
	}

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	final := st.sessionFile(s.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("session: write temp: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("session: rename: %w", err)
	}

	if st.index != nil {
		_ = st.index.Upsert(context.Background(), toSummary(s))
	}
	return nil
}

// SetPhase transitions s to phase and persists the change.
func (st *Store) SetPhase(s *Session, phase Phase) error {
	s.Phase = phase
	return st.Save(s)
}

// SetIteration sets s.Iteration, enforcing monotonicity within a resumed
// session, and persists the change.
func (st *Store) SetIteration(s *Session, n int) error {
	if n < s.Iteration {
		return fmt.Errorf("session: iteration must be monotonic (have %d, want %d)", s.Iteration, n)
	}
	s.Iteration = n
	return st.Save(s)
}

// SetAgentStatus records a step outcome for role against the active file,
// appending to s.Steps.
func (st *Store) SetAgentStatus(s *Session, role AgentRole, filePath, status string, duration time.Duration) error {
	s.Steps = append(s.Steps, Step{
		Role:     role,
		FilePath: filePath,
		Status:   status,
		Start:    time.Now().Add(-duration),
		End:      time.Now(),
	})
	return st.Save(s)
}

// CreateCheckpoint snapshots the current on-disk content of filePaths
// (relative to workDir) into a new Checkpoint, appends it to s.Checkpoints,
// and copies the files into checkpoints/<id>/ for later revert.
func (st *Store) CreateCheckpoint(s *Session, workDir, label string, filePaths []string) (*Checkpoint, error) {
	cp := Checkpoint{
		ID:    uuid.NewString(),
		Label: label,
		Files: make(map[string]FileSnapshot, len(filePaths)),
		At:    time.Now(),
	}

	cpDir := filepath.Join(st.sessionDir(s.ID), "checkpoints", cp.ID)
	if err := os.MkdirAll(cpDir, 0o755); err != nil {
		return nil, fmt.Errorf("session: mkdir checkpoint: %w", err)
	}

	for _, rel := range filePaths {
		abs := filepath.Join(workDir, rel)
		content, err := os.ReadFile(abs)
		if err != nil {
			if os.IsNotExist(err) {
				cp.Files[rel] = FileSnapshot{Hash: ""}
				continue
			}
			return nil, fmt.Errorf("session: read %s for checkpoint: %w", rel, err)
		}
		hash := contentHash(content)
		cp.Files[rel] = FileSnapshot{Hash: hash}

		dest := filepath.Join(cpDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return nil, fmt.Errorf("session: write checkpoint copy: %w", err)
		}
	}

	s.Checkpoints = append(s.Checkpoints, cp)
	if err := st.Save(s); err != nil {
		return nil, err
	}
	return &cp, nil
}

// RevertTo restores every file captured in the checkpoint labelled (or id'd)
// label back into workDir, byte-identical to the captured snapshot.
func (st *Store) RevertTo(s *Session, workDir, label string) error {
	var target *Checkpoint
	for i := range s.Checkpoints {
		if s.Checkpoints[i].Label == label || s.Checkpoints[i].ID == label {
			target = &s.Checkpoints[i]
		}
	}
	if target == nil {
		return fmt.Errorf("session: no checkpoint named %q", label)
	}

	cpDir := filepath.Join(st.sessionDir(s.ID), "checkpoints", target.ID)
	for rel, snap := range target.Files {
		if snap.Hash == "" {
			// File did not exist at checkpoint time; remove it if present now.
			_ = os.Remove(filepath.Join(workDir, rel))
			continue
		}
		src := filepath.Join(cpDir, rel)
		content, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("session: read checkpoint copy %s: %w", rel, err)
		}
		dest := filepath.Join(workDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return fmt.Errorf("session: restore %s: %w", rel, err)
		}
	}
	return nil
}

// SetError records a terminal error message on s and persists it.
func (st *Store) SetError(s *Session, msg string) error {
	s.LastError = msg
	return st.Save(s)
}

// CanResume reports whether the on-disk session for id parses and is
// non-terminal.
func (st *Store) CanResume(id string) bool {
	s, err := st.Load(id)
	if err != nil {
		return false
	}
	return s.CanResume()
}

// Clear removes the on-disk directory for id entirely.
func (st *Store) Clear(id string) error {
	if st.index != nil {
		_ = st.index.Delete(context.Background(), id)
	}
	return os.RemoveAll(st.sessionDir(id))
}

// SessionSummary is the lightweight projection returned by List and
// FullTextSearch, carrying only headline fields. List still loads and
// unmarshals each full session.json to build it.
type SessionSummary struct {
	ID           string    `json:"id" db:"id"`
	Task         Task      `json:"task" db:"task"`
	Phase        Phase     `json:"phase" db:"phase"`
	Iteration    int       `json:"iteration" db:"iteration"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Status string // matches Phase if non-empty
	Limit  int    // 0 = unlimited
}

// List enumerates session summaries under root, most recently active first.
func (st *Store) List(filter ListFilter) ([]SessionSummary, error) {
	entries, err := os.ReadDir(st.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []SessionSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s, err := st.Load(e.Name())
		if err != nil {
			continue
		}
		if filter.Status != "" && string(s.Phase) != filter.Status {
			continue
		}
		out = append(out, toSummary(s))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// FullTextSearch scans session.json files for query (case-insensitive
// substring) across the given fields ("task", "id", "lasterror"; task and
// id when empty).
func (st *Store) FullTextSearch(query string, fields []string) ([]SessionSummary, error) {
	all, err := st.List(ListFilter{})
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}
	q := strings.ToLower(query)
	searchTask := len(fields) == 0
	searchID := len(fields) == 0
	searchErr := false
	for _, f := range fields {
		switch f {
		case "task":
			searchTask = true
		case "id":
			searchID = true
		case "lasterror":
			searchErr = true
		}
	}

	var out []SessionSummary
	for _, s := range all {
		if searchTask && strings.Contains(strings.ToLower(string(s.Task)), q) {
			out = append(out, s)
			continue
		}
		if searchID && strings.Contains(strings.ToLower(s.ID), q) {
			out = append(out, s)
			continue
		}
		if searchErr {
			if full, err := st.Load(s.ID); err == nil && strings.Contains(strings.ToLower(full.LastError), q) {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// MostRecentResumable returns the most recently active non-terminal
// session, or ErrNotFound if none exists.
func (st *Store) MostRecentResumable() (*Session, error) {
	summaries, err := st.List(ListFilter{})
	if err != nil {
		return nil, err
	}
	for _, sum := range summaries {
		if !sum.Phase.IsTerminal() {
			return st.Load(sum.ID)
		}
	}
	return nil, ErrNotFound
}

func toSummary(s *Session) SessionSummary {
	return SessionSummary{
		ID:           s.ID,
		Task:         s.Task,
		Phase:        s.Phase,
		Iteration:    s.Iteration,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}
