package relay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Push channel event names. Client to server: authenticate, sendMessage, messageRead.
// Server to client: receiveMessage.
const (
	EventAuthenticate   = "authenticate"
	EventSendMessage    = "sendMessage"
	EventMessageRead    = "messageRead"
	EventReceiveMessage = "receiveMessage"
)

// Envelope is the frame exchanged over the push channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type sendMessagePayload struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Text     string `json:"text"`
}

// messageID accepts either a JSON number or a numeric string.
type messageID uint64

func (id *messageID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid message id %q", s)
	}
	*id = messageID(v)
	return nil
}

// Encode builds a server-to-client frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
