package memory

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry is one recorded conversation message.
type Entry struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	TS      time.Time `json:"ts"`
}

// HistoryStore keeps a bounded conversation history per chat target,
// one JSONL file each. The file retains 5x the configured window as a
// buffer; Recent caps what callers see.
type HistoryStore struct {
	Dir   string
	Limit int
	mu    sync.Mutex
}

const historyBufferFactor = 5

func (s *HistoryStore) limit() int {
	if s.Limit > 0 {
		return s.Limit
	}
	return 20
}

func (s *HistoryStore) path(chat string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, chat)
	if name == "" {
		name = "default"
	}
	return filepath.Join(s.Dir, name+".jsonl")
}

// Append records a message and trims the file once it exceeds the
// retention buffer.
func (s *HistoryStore) Append(chat, role, content string) error {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return errors.New("history store dir is empty")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	path := s.path(chat)
	entries, err := loadEntries(path)
	if err != nil {
		return err
	}
	entries = append(entries, Entry{Role: role, Content: content, TS: time.Now()})
	if max := s.limit() * historyBufferFactor; len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	return writeEntries(path, entries)
}

// Recent returns up to limit messages for the chat, oldest first.
func (s *HistoryStore) Recent(chat string, limit int) ([]Entry, error) {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return nil, errors.New("history store dir is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := loadEntries(s.path(chat))
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.limit() {
		limit = s.limit()
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Clear drops the chat's history file.
func (s *HistoryStore) Clear(chat string) error {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return errors.New("history store dir is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(chat))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func loadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var out []Entry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if strings.TrimSpace(e.Content) == "" {
			continue
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeEntries(path string, entries []Entry) error {
	var sb strings.Builder
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
