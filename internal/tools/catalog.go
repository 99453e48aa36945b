package tools

import (
	"homebot/internal/cron"
	"homebot/internal/delivery"
	"homebot/internal/memory"
)

// CatalogDeps carries everything the full tool set needs.
type CatalogDeps struct {
	Guard     Guard
	Shell     ShellRunner
	Facts     *memory.FactStore
	History   *memory.HistoryStore
	Scheduler *cron.Scheduler
	Sender    delivery.Sender
	// DefaultChat is the target used when a call omits one.
	DefaultChat string
	// OnStatus receives set_status updates; may be nil.
	OnStatus func(string)
}

// BuildCatalog assembles the standard tool registry.
func BuildCatalog(deps CatalogDeps) *Registry {
	return NewRegistry(
		NewShellTool(deps.Shell),
		NewServiceTool(deps.Shell),
		NewReadFileTool(deps.Guard),
		NewWriteFileTool(deps.Guard),
		NewListDirectoryTool(deps.Guard),
		NewRestoreBackupTool(deps.Guard),
		NewRememberFactTool(deps.Facts),
		NewRecallFactsTool(deps.Facts),
		NewRecallMessagesTool(deps.History, deps.DefaultChat),
		NewSendMessageTool(deps.Sender, deps.DefaultChat),
		NewAddTaskTool(deps.Scheduler, deps.DefaultChat),
		NewListTasksTool(deps.Scheduler),
		NewRemoveTaskTool(deps.Scheduler),
		NewSetStatusTool(deps.OnStatus),
	)
}
