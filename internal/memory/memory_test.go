package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFactStoreAddAndAll(t *testing.T) {
	t.Parallel()
	store := &FactStore{Path: filepath.Join(t.TempDir(), "facts.jsonl")}

	if err := store.Add("preference", "prefers metric units"); err != nil {
		t.Fatal(err)
	}
	if err := store.Add("device", "NAS is at 192.168.1.50"); err != nil {
		t.Fatal(err)
	}

	facts, err := store.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 2 {
		t.Fatalf("got %d facts", len(facts))
	}
	if facts[0].Category != "preference" || facts[1].Content != "NAS is at 192.168.1.50" {
		t.Fatalf("facts = %+v", facts)
	}
}

func TestFactStoreRejectsEmpty(t *testing.T) {
	t.Parallel()
	store := &FactStore{Path: filepath.Join(t.TempDir(), "facts.jsonl")}

	if err := store.Add("", "something"); err == nil {
		t.Fatal("empty category must be rejected")
	}
	if err := store.Add("cat", "   "); err == nil {
		t.Fatal("blank content must be rejected")
	}
}

func TestFactStoreSkipsGarbledLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "facts.jsonl")
	content := `{"category":"a","content":"first"}
not json at all
{"category":"b","content":"second"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &FactStore{Path: path}
	facts, err := store.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 2 {
		t.Fatalf("got %d facts, want garbled line skipped", len(facts))
	}
}

func TestFactStoreSearch(t *testing.T) {
	t.Parallel()
	store := &FactStore{Path: filepath.Join(t.TempDir(), "facts.jsonl")}
	seed := []struct{ cat, content string }{
		{"device", "router admin password is in the safe"},
		{"preference", "likes coffee black"},
		{"person", "sister's birthday is June 3rd"},
	}
	for _, s := range seed {
		if err := store.Add(s.cat, s.content); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := store.Search("router", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || !strings.Contains(hits[0].Content, "router") {
		t.Fatalf("hits = %+v", hits)
	}

	// Empty query falls back to recency, newest first.
	recent, err := store.Search("", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].Category != "person" {
		t.Fatalf("recent = %+v", recent)
	}
}

func TestHistoryStoreRoundTrip(t *testing.T) {
	t.Parallel()
	store := &HistoryStore{Dir: t.TempDir(), Limit: 10}

	if err := store.Append("kitchen", "user", "turn on the lights"); err != nil {
		t.Fatal(err)
	}
	if err := store.Append("kitchen", "assistant", "done"); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Recent("kitchen", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Role != "user" || entries[1].Role != "assistant" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestHistoryStoreIsolatesChats(t *testing.T) {
	t.Parallel()
	store := &HistoryStore{Dir: t.TempDir(), Limit: 10}

	if err := store.Append("a", "user", "for a"); err != nil {
		t.Fatal(err)
	}
	if err := store.Append("b", "user", "for b"); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Recent("a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Content != "for a" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestHistoryStoreTrimsToBuffer(t *testing.T) {
	t.Parallel()
	store := &HistoryStore{Dir: t.TempDir(), Limit: 2}

	for i := 0; i < 20; i++ {
		if err := store.Append("chat", "user", strings.Repeat("m", i+1)); err != nil {
			t.Fatal(err)
		}
	}

	// Recent is capped at the window.
	entries, err := store.Recent("chat", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("recent = %d entries, want window of 2", len(entries))
	}

	// The file itself holds at most limit * buffer factor.
	raw, err := os.ReadFile(filepath.Join(store.Dir, "chat.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Count(strings.TrimSpace(string(raw)), "\n") + 1
	if lines > 2*historyBufferFactor {
		t.Fatalf("file holds %d lines, want at most %d", lines, 2*historyBufferFactor)
	}
}

func TestHistoryStoreClear(t *testing.T) {
	t.Parallel()
	store := &HistoryStore{Dir: t.TempDir(), Limit: 5}

	if err := store.Append("chat", "user", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear("chat"); err != nil {
		t.Fatal(err)
	}
	entries, err := store.Recent("chat", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %+v after clear", entries)
	}
	// Clearing twice is fine.
	if err := store.Clear("chat"); err != nil {
		t.Fatal(err)
	}
}
