// Package hub fans messages out to websocket clients.
//
// Run owns the client set. Clients join and leave over channels and each
// has exactly one writer goroutine. A hub created WithReplay hands its
// latest message to every new client, so a late viewer starts from the
// current state instead of waiting for the next change.
package hub

// MessageType selects the websocket frame type.
type MessageType int

const (
	JSONMessage   MessageType = iota // text frame
	BinaryMessage                    // e.g. JPEG preview frames
)

// Message is one payload for every client.
type Message struct {
	Type MessageType
	Data []byte
}

func NewJSONMessage(data []byte) Message { return Message{Type: JSONMessage, Data: data} }

func NewBinaryMessage(data []byte) Message { return Message{Type: BinaryMessage, Data: data} }
