package ipc

import "encoding/json"

type CommandType string

// What client can send
const (
	CmdPause  CommandType = "pause"
	CmdResume CommandType = "resume"
	CmdCancel CommandType = "cancel"
	CmdList   CommandType = "list"
)

type Command struct {
	Type       CommandType `json:"type"`
	DownloadID string      `json:"download_id"`
}

type Message struct {
	Type string          `json:"type"` // "event", "downloads"
	Data json.RawMessage `json:"data"`
}

func NewMessage(payload any, msgType string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg := Message{Type: msgType, Data: data}
	return json.Marshal(msg)
}
