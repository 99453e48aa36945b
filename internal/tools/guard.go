package tools

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// deniedCommands are shell patterns rejected before any execution, via a
// plain case-insensitive substring check. None of these have a
// legitimate use in a bot-issued command.
var deniedCommands = []string{
	"rm -rf /",
	"rm -rf /*",
	"rm -rf ~",
	"sudo rm -rf",
	"mkfs",
	"dd if=",
	"> /dev/sd",
	"chmod -r 777 /",
	":(){ :|:& };:",
	"curl | bash",
	"wget | bash",
	"curl|bash",
	"wget|bash",
}

const (
	// MaxReadBytes rejects whole-file reads above this size; the model
	// is pointed at head/tail instead of materializing the file.
	MaxReadBytes = 100 * 1024
	// MaxWriteBytes rejects oversized writes outright.
	MaxWriteBytes = 100 * 1024
)

// Guard holds the filesystem guardrails applied before any side effect.
type Guard struct {
	// Root anchors relative tool paths.
	Root string
	// Protected are path fragments that may never be written or deleted:
	// credentials, the bot's own state, driver and display code.
	Protected []string
}

func DefaultGuard(root, stateDir string) Guard {
	protected := []string{".env", "drivers/", "ui/"}
	if stateDir != "" {
		protected = append(protected, filepath.Clean(stateDir))
	}
	return Guard{Root: root, Protected: protected}
}

// DeniedCommand returns the matched pattern when the command is on the
// denylist.
func DeniedCommand(command string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(command))
	for _, pattern := range deniedCommands {
		if strings.Contains(lowered, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// Resolve expands ~ and anchors relative paths at the guard root.
func (g Guard) Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if !filepath.IsAbs(path) && g.Root != "" {
		path = filepath.Join(g.Root, path)
	}
	return filepath.Abs(path)
}

// IsProtected reports whether writes/deletes to the path are rejected
// unconditionally, regardless of content.
func (g Guard) IsProtected(path string) bool {
	cleaned := filepath.ToSlash(filepath.Clean(path))
	for _, fragment := range g.Protected {
		if fragment == "" {
			continue
		}
		if strings.Contains(cleaned, filepath.ToSlash(fragment)) {
			return true
		}
	}
	return false
}

// BackupPath is the sibling a file is copied to before being overwritten.
func BackupPath(path string) string {
	return path + ".bak"
}

// Backup copies the file to its .bak sibling. Overwriting an existing
// file without this is not an option the catalog offers.
func (g Guard) Backup(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(BackupPath(path))
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Sync()
}
