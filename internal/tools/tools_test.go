package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testRuntime(t *testing.T, catalog ...Tool) *Runtime {
	t.Helper()
	return NewRuntime(NewRegistry(catalog...), 5*time.Second)
}

func TestInvokeUnknownTool(t *testing.T) {
	t.Parallel()
	rt := testRuntime(t, NewListDirectoryTool(Guard{Root: t.TempDir()}))

	out := rt.Invoke(context.Background(), "frobnicate", nil)
	if !strings.Contains(out, "Unknown tool: frobnicate") {
		t.Fatalf("unexpected reply: %q", out)
	}
	if !strings.Contains(out, "list_directory") {
		t.Fatalf("reply should list available tools: %q", out)
	}
}

func TestInvokeTruncatesLongResults(t *testing.T) {
	t.Parallel()
	big := Tool{
		Definition: Definition{Name: "big", Parameters: objectSchema(nil)},
		Run: func(context.Context, Args) (string, error) {
			return strings.Repeat("x", ResultLimit*2), nil
		},
	}
	rt := testRuntime(t, big)

	out := rt.Invoke(context.Background(), "big", nil)
	if len(out) > ResultLimit+len("\n[truncated]") {
		t.Fatalf("result not bounded: %d bytes", len(out))
	}
	if !strings.HasSuffix(out, "[truncated]") {
		t.Fatal("truncation must be marked")
	}
}

func TestInvokeRecoversFromPanic(t *testing.T) {
	t.Parallel()
	bomb := Tool{
		Definition: Definition{Name: "bomb", Parameters: objectSchema(nil)},
		Run: func(context.Context, Args) (string, error) {
			panic("boom")
		},
	}
	rt := testRuntime(t, bomb)

	out := rt.Invoke(context.Background(), "bomb", nil)
	if !strings.Contains(out, "Error:") || !strings.Contains(out, "boom") {
		t.Fatalf("panic must surface as text: %q", out)
	}
}

func TestParseArgsDegradesGracefully(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "{bad json", `"a string"`, "null"} {
		if got := ParseArgs(json.RawMessage(raw)); got == nil || len(got) != 0 {
			t.Fatalf("ParseArgs(%q) = %v, want empty", raw, got)
		}
	}
	got := ParseArgs(json.RawMessage(`{"path":"a.txt"}`))
	if got["path"] != "a.txt" {
		t.Fatalf("ParseArgs lost data: %v", got)
	}
}

func TestDecodeCoercesWeakTypes(t *testing.T) {
	t.Parallel()
	var in struct {
		Timeout int    `json:"timeout"`
		Command string `json:"command"`
	}
	args := Args{"timeout": "30", "command": "uptime"}
	if err := args.Decode(&in); err != nil {
		t.Fatal(err)
	}
	if in.Timeout != 30 || in.Command != "uptime" {
		t.Fatalf("decoded %+v", in)
	}
}

func TestDeniedCommand(t *testing.T) {
	t.Parallel()
	if _, denied := DeniedCommand("sudo rm -rf /var/log"); !denied {
		t.Fatal("expected denial")
	}
	if _, denied := DeniedCommand("echo hello"); denied {
		t.Fatal("unexpected denial")
	}
}

func TestShellToolBlocksDeniedCommands(t *testing.T) {
	t.Parallel()
	tool := NewShellTool(ShellRunner{Workdir: t.TempDir()})

	out, err := tool.Run(context.Background(), Args{"command": "rm -rf / --no-preserve-root"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "blocked for safety") {
		t.Fatalf("unexpected reply: %q", out)
	}
}

func TestWriteFileBacksUpAndRefusesProtected(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	guard := DefaultGuard(root, filepath.Join(root, "state"))
	write := NewWriteFileTool(guard)

	out, err := write.Run(context.Background(), Args{"path": "note.txt", "content": "v1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Wrote 2 bytes") {
		t.Fatalf("unexpected reply: %q", out)
	}

	if _, err := write.Run(context.Background(), Args{"path": "note.txt", "content": "v2"}); err != nil {
		t.Fatal(err)
	}
	backup, err := os.ReadFile(filepath.Join(root, "note.txt.bak"))
	if err != nil {
		t.Fatal(err)
	}
	if string(backup) != "v1" {
		t.Fatalf("backup = %q, want original content", backup)
	}

	// Protected paths are rejected and left untouched.
	envPath := filepath.Join(root, ".env")
	if err := os.WriteFile(envPath, []byte("SECRET=1"), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err = write.Run(context.Background(), Args{"path": ".env", "content": "SECRET=0"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "protected path") {
		t.Fatalf("unexpected reply: %q", out)
	}
	data, _ := os.ReadFile(envPath)
	if string(data) != "SECRET=1" {
		t.Fatal("protected file was modified")
	}
}

func TestWriteFileRejectsOversizedContent(t *testing.T) {
	t.Parallel()
	write := NewWriteFileTool(DefaultGuard(t.TempDir(), ""))

	out, err := write.Run(context.Background(), Args{
		"path":    "big.txt",
		"content": strings.Repeat("a", MaxWriteBytes+1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "too large") {
		t.Fatalf("unexpected reply: %q", out)
	}
}

func TestReadFileTool(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	read := NewReadFileTool(DefaultGuard(root, ""))

	out, err := read.Run(context.Background(), Args{"path": "a.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello" {
		t.Fatalf("read %q", out)
	}

	out, err = read.Run(context.Background(), Args{"path": "missing.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "File not found") {
		t.Fatalf("unexpected reply: %q", out)
	}
}

func TestRestoreFromBackup(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	guard := DefaultGuard(root, "")
	target := filepath.Join(root, "cfg.txt")
	if err := os.WriteFile(target+".bak", []byte("good"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("bad"), 0o644); err != nil {
		t.Fatal(err)
	}

	restore := NewRestoreBackupTool(guard)
	out, err := restore.Run(context.Background(), Args{"path": "cfg.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Restored") {
		t.Fatalf("unexpected reply: %q", out)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "good" {
		t.Fatalf("restored content = %q", data)
	}
}

func TestListDirectoryTool(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "f.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	list := NewListDirectoryTool(Guard{Root: root})
	out, err := list.Run(context.Background(), Args{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "sub/") || !strings.Contains(out, "f.txt") {
		t.Fatalf("listing missing entries: %q", out)
	}
}

func TestFooter(t *testing.T) {
	t.Parallel()

	if got := BuildFooter(nil); got != "" {
		t.Fatalf("empty actions must yield empty footer, got %q", got)
	}

	actions := []Action{
		{Name: "execute_shell", Detail: "df -h", OK: true},
		{Name: "write_file", Detail: ".env", OK: false},
	}
	footer := BuildFooter(actions)
	if !strings.HasPrefix(footer, "Tool usage (2):") {
		t.Fatalf("footer header wrong: %q", footer)
	}
	if !strings.Contains(footer, "✓ execute_shell: df -h") {
		t.Fatalf("missing success line: %q", footer)
	}
	if !strings.Contains(footer, "✗ write_file: .env") {
		t.Fatalf("missing failure line: %q", footer)
	}

	var many []Action
	for i := 0; i < 12; i++ {
		many = append(many, Action{Name: "execute_shell", OK: true})
	}
	footer = BuildFooter(many)
	if !strings.Contains(footer, "... +4 more") {
		t.Fatalf("overflow not summarized: %q", footer)
	}
}

func TestDescribeCallPrefersCommandLikeKeys(t *testing.T) {
	t.Parallel()
	raw := json.RawMessage(`{"command":"uptime","timeout":30}`)
	if got := DescribeCall("execute_shell", raw); got != "uptime" {
		t.Fatalf("detail = %q", got)
	}
	long := json.RawMessage(`{"path":"` + strings.Repeat("a", 100) + `"}`)
	if got := DescribeCall("read_file", long); len(got) > 70 {
		t.Fatalf("detail not shortened: %d chars", len(got))
	}
}
