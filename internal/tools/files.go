package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type pathArgs struct {
	Path string `json:"path"`
}

type writeArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// NewReadFileTool reads a file, rejecting oversized targets with
// guidance instead of materializing them.
func NewReadFileTool(guard Guard) Tool {
	return Tool{
		Definition: Definition{
			Name:        "read_file",
			Description: "Read a text file.",
			Parameters: objectSchema(map[string]any{
				"path": stringProp("File path, relative to the bot root or absolute."),
			}, "path"),
		},
		Run: func(_ context.Context, args Args) (string, error) {
			var in pathArgs
			if err := args.Decode(&in); err != nil {
				return "", err
			}
			target, err := guard.Resolve(in.Path)
			if err != nil {
				return "", err
			}
			info, err := os.Stat(target)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Sprintf("File not found: %s", in.Path), nil
				}
				return "", err
			}
			if info.Size() > MaxReadBytes {
				return fmt.Sprintf("File too large (%d bytes, max %d). Read it in chunks, e.g. execute_shell with head/tail.", info.Size(), MaxReadBytes), nil
			}
			data, err := os.ReadFile(target)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
	}
}

// NewWriteFileTool writes a file behind the protected-path and size
// guardrails, backing up any existing content first.
func NewWriteFileTool(guard Guard) Tool {
	return Tool{
		Definition: Definition{
			Name:        "write_file",
			Description: "Write a text file. An existing file is backed up to a .bak sibling first.",
			Parameters: objectSchema(map[string]any{
				"path":    stringProp("File path, relative to the bot root or absolute."),
				"content": stringProp("Full file content to write."),
			}, "path", "content"),
		},
		Run: func(_ context.Context, args Args) (string, error) {
			var in writeArgs
			if err := args.Decode(&in); err != nil {
				return "", err
			}
			if len(in.Content) > MaxWriteBytes {
				return fmt.Sprintf("Content too large (%d bytes, max %d).", len(in.Content), MaxWriteBytes), nil
			}
			target, err := guard.Resolve(in.Path)
			if err != nil {
				return "", err
			}
			if guard.IsProtected(target) {
				return fmt.Sprintf("Cannot write to protected path: %s", in.Path), nil
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", err
			}
			if _, err := os.Stat(target); err == nil {
				if err := guard.Backup(target); err != nil {
					return "", fmt.Errorf("backup failed, write aborted: %w", err)
				}
			}
			if err := os.WriteFile(target, []byte(in.Content), 0o644); err != nil {
				return "", err
			}
			return fmt.Sprintf("Wrote %d bytes to %s", len(in.Content), in.Path), nil
		},
	}
}

// NewListDirectoryTool lists one directory level.
func NewListDirectoryTool(guard Guard) Tool {
	return Tool{
		Definition: Definition{
			Name:        "list_directory",
			Description: "List the contents of a directory.",
			Parameters: objectSchema(map[string]any{
				"path": stringProp("Directory path (default: bot root)."),
			}),
		},
		Run: func(_ context.Context, args Args) (string, error) {
			var in pathArgs
			_ = args.Decode(&in)
			if strings.TrimSpace(in.Path) == "" {
				in.Path = "."
			}
			target, err := guard.Resolve(in.Path)
			if err != nil {
				return "", err
			}
			entries, err := os.ReadDir(target)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Sprintf("Not found: %s", in.Path), nil
				}
				return "", err
			}
			if len(entries) == 0 {
				return target + "/ (empty)", nil
			}
			names := make([]string, 0, len(entries))
			for _, entry := range entries {
				name := entry.Name()
				if entry.IsDir() {
					name += "/"
				}
				names = append(names, "  "+name)
			}
			sort.Strings(names)
			return target + "/\n" + strings.Join(names, "\n"), nil
		},
	}
}

// NewRestoreBackupTool puts a file back from its .bak sibling.
func NewRestoreBackupTool(guard Guard) Tool {
	return Tool{
		Definition: Definition{
			Name:        "restore_from_backup",
			Description: "Restore a file from its .bak backup. Use after a bad write.",
			Parameters: objectSchema(map[string]any{
				"path": stringProp("Path of the file to restore."),
			}, "path"),
		},
		Run: func(_ context.Context, args Args) (string, error) {
			var in pathArgs
			if err := args.Decode(&in); err != nil {
				return "", err
			}
			target, err := guard.Resolve(in.Path)
			if err != nil {
				return "", err
			}
			if guard.IsProtected(target) {
				return fmt.Sprintf("Cannot write to protected path: %s", in.Path), nil
			}
			backup := BackupPath(target)
			data, err := os.ReadFile(backup)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Sprintf("No backup found: %s", backup), nil
				}
				return "", err
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return "", err
			}
			return fmt.Sprintf("Restored %s from backup", in.Path), nil
		},
	}
}
