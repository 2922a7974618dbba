package tui

// StatusKind indicates severity for status-bar messages.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// status is the transient line shown above the key help.
type status struct {
	text string
	kind StatusKind
	// retry is set when the line reports a failed fetch the retry key can redo
	retry bool
}
