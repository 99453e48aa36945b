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

	"github.com/sahilm/fuzzy"
)

// Fact is one long-term memory item.
type Fact struct {
	Category string    `json:"category"`
	Content  string    `json:"content"`
	TS       time.Time `json:"ts"`
}

// FactStore keeps facts in an append-only JSONL file. Garbled lines are
// skipped on load rather than failing the whole store.
type FactStore struct {
	Path string
	mu   sync.Mutex
}

func (s *FactStore) Add(category, content string) error {
	if s == nil || strings.TrimSpace(s.Path) == "" {
		return errors.New("fact store path is empty")
	}
	category = strings.TrimSpace(category)
	content = strings.TrimSpace(content)
	if category == "" || content == "" {
		return errors.New("category and content are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(Fact{Category: category, Content: content, TS: time.Now()})
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// All returns every stored fact in insertion order.
func (s *FactStore) All() ([]Fact, error) {
	if s == nil || strings.TrimSpace(s.Path) == "" {
		return nil, errors.New("fact store path is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FactStore) loadLocked() ([]Fact, error) {
	f, err := os.Open(s.Path)
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

	var out []Fact
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var fact Fact
		if err := json.Unmarshal([]byte(line), &fact); err != nil {
			continue
		}
		if strings.TrimSpace(fact.Content) == "" {
			continue
		}
		out = append(out, fact)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Recent returns the newest facts, newest first.
func (s *FactStore) Recent(limit int) ([]Fact, error) {
	facts, err := s.All()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(facts) {
		limit = len(facts)
	}
	out := make([]Fact, 0, limit)
	for i := len(facts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, facts[i])
	}
	return out, nil
}

// Count returns the number of stored facts.
func (s *FactStore) Count() (int, error) {
	facts, err := s.All()
	if err != nil {
		return 0, err
	}
	return len(facts), nil
}

type factSource []Fact

func (f factSource) String(i int) string {
	return f[i].Category + " " + f[i].Content
}

func (f factSource) Len() int { return len(f) }

// Search ranks facts against the query. Fuzzy matching covers both the
// exact-substring case and sloppier recall phrasing.
func (s *FactStore) Search(query string, limit int) ([]Fact, error) {
	facts, err := s.All()
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Recent(limit)
	}
	if limit <= 0 {
		limit = 10
	}
	matches := fuzzy.FindFrom(query, factSource(facts))
	out := make([]Fact, 0, limit)
	for _, m := range matches {
		out = append(out, facts[m.Index])
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
