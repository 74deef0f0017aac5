package domain

type MonitorState string

const (
	MonitorStopped  MonitorState = "stopped"
	MonitorWatching MonitorState = "watching"
	MonitorRetrying MonitorState = "retrying"
)

type MonitorSnapshot struct {
	State        MonitorState `json:"state"`
	Active       bool         `json:"active"`
	RetryCount   int          `json:"retry_count"`
	LastPosition *Position    `json:"last_position,omitempty"`
	LastError    string       `json:"last_error,omitempty"`
}
