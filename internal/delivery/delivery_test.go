package delivery

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestChunkShortTextUntouched(t *testing.T) {
	t.Parallel()

	got := Chunk("hello", 100)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := Chunk("", 100); got != nil {
		t.Fatalf("empty text must chunk to nothing, got %q", got)
	}
}

func TestChunkRespectsLimit(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("x", 20))
	}
	text := strings.Join(lines, "\n")

	chunks := Chunk(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Fatalf("chunk %d is %d bytes", i, len(c))
		}
	}
	joined := strings.Join(chunks, "\n")
	if strings.Count(joined, "x") != 40*20 {
		t.Fatal("content lost while chunking")
	}
}

func TestChunkKeepsFencesBalanced(t *testing.T) {
	t.Parallel()

	var code []string
	for i := 0; i < 30; i++ {
		code = append(code, "print(\"line\")")
	}
	text := "before\n```python\n" + strings.Join(code, "\n") + "\n```\nafter"

	chunks := Chunk(text, 120)
	if len(chunks) < 2 {
		t.Fatalf("expected the fence to span chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 120 {
			t.Fatalf("chunk %d is %d bytes", i, len(c))
		}
		opens := 0
		for _, line := range strings.Split(c, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				opens++
			}
		}
		if opens%2 != 0 {
			t.Fatalf("chunk %d has unbalanced fences:\n%s", i, c)
		}
	}
	// Continuation chunks reopen with the language header.
	if !strings.HasPrefix(chunks[1], "```python") {
		t.Fatalf("chunk 1 does not reopen the fence:\n%s", chunks[1])
	}
}

func TestChunkHardSplitsOverlongLine(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 300) + "\nshort trailer"
	chunks := Chunk(text, 80)
	if len(chunks) < 4 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 80 {
			t.Fatalf("chunk %d is %d bytes", i, len(c))
		}
	}
	total := 0
	for _, c := range chunks {
		total += strings.Count(c, "a")
	}
	if total != 300 {
		t.Fatalf("kept %d of 300 chars", total)
	}
}

type flakySender struct {
	sent  []string
	fail  bool
	calls int
}

func (f *flakySender) Send(_, text string) error {
	f.calls++
	if f.fail {
		return errors.New("transport down")
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestChunkedSenderSplitsBeforeDelivery(t *testing.T) {
	t.Parallel()
	inner := &flakySender{}
	sender := ChunkedSender{Inner: inner, Limit: 50}

	long := strings.Repeat("word ", 40)
	if err := sender.Send("chat", long); err != nil {
		t.Fatal(err)
	}
	if len(inner.sent) < 2 {
		t.Fatalf("sent %d pieces", len(inner.sent))
	}
	for _, piece := range inner.sent {
		if len(piece) > 50 {
			t.Fatalf("piece too long: %d bytes", len(piece))
		}
	}
}

func TestChunkedSenderPropagatesErrors(t *testing.T) {
	t.Parallel()
	sender := ChunkedSender{Inner: &flakySender{fail: true}, Limit: 50}
	if err := sender.Send("chat", "hello"); err == nil {
		t.Fatal("expected delivery error")
	}
}

func TestWriterSender(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := &WriterSender{W: &buf}

	if err := w.Send("kitchen", "lights on"); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "[kitchen] lights on\n" {
		t.Fatalf("wrote %q", got)
	}

	buf.Reset()
	if err := w.Send("", "plain"); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "plain\n" {
		t.Fatalf("wrote %q", got)
	}
}
