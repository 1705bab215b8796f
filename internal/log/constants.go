package log

// Attribute keys shared by every slog call site.
const (
	Args     = "args"
	Cmd      = "cmd"
	Count    = "count"
	Dir      = "dir"
	Duration = "duration"
	Error    = "error"
	Event    = "event"
	ExitCode = "exit_code"
	Failed   = "failed"
	Kind     = "kind"
	Mask     = "mask"
	Path     = "path"
	RunID    = "run_id"
	State    = "state"
)
