package model

// CommandType is the kind of work a Command carries.
type CommandType string

const (
	CommandSend  CommandType = "SEND"
	CommandRetry CommandType = "RETRY"
	// CommandCancel is reserved; handlers treat it as a no-op.
	CommandCancel CommandType = "CANCEL"
)

// Command is an ephemeral unit of work routed through the command queue. It is never persisted.
type Command struct {
	NotificationID string            `json:"notification_id"`
	Type           CommandType       `json:"type"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	AttemptCount   int               `json:"attempt_count"`
}

// NewSendCommand builds a SEND command tagged with its source.
func NewSendCommand(id, source string) Command {
	return Command{
		NotificationID: id,
		Type:           CommandSend,
		Metadata:       map[string]string{"source": source},
	}
}
