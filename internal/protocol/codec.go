package protocol

import (
	"encoding/json"

	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/util"
)

// Encode serializes a message to one JSON line without the trailing
// newline. Messages over MaxMessageSize are rejected.
func Encode(msg *Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errs.Serialization(err.Error())
	}
	if len(data) > MaxMessageSize {
		return nil, errs.MessageTooLarge(len(data))
	}
	return data, nil
}

// Decode parses one JSON line into a message, enforcing the size cap
// and the protocol version.
func Decode(line []byte) (*Message, error) {
	if len(line) > MaxMessageSize {
		return nil, errs.MessageTooLarge(len(line))
	}

	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, errs.InvalidMessage(err.Error())
	}
	if msg.Version != Version {
		return nil, errs.ProtocolVersionMismatch(Version, msg.Version)
	}
	if msg.Type.Type == "" {
		return nil, errs.MissingRequiredField("message_type.type")
	}
	return &msg, nil
}

// Payload decodes a message's data into the given payload type.
func Payload[T any](msg *Message) (T, error) {
	var out T
	if len(msg.Type.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(msg.Type.Data, &out); err != nil {
		return out, errs.InvalidMessage(err.Error())
	}
	return out, nil
}

func marshalData(payload any) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewRequest builds a client-originated message with a fresh id.
func NewRequest(msgType string, payload any) *Message {
	return &Message{
		ID:        util.GenerateShortID(),
		Version:   Version,
		Timestamp: util.CurrentTimestamp(),
		Type:      MessageType{Type: msgType, Data: marshalData(payload)},
	}
}

// NewResponse builds a reply carrying the request's id.
func NewResponse(requestID, msgType string, payload any) *Message {
	return &Message{
		ID:        requestID,
		Version:   Version,
		Timestamp: util.CurrentTimestamp(),
		Type:      MessageType{Type: msgType, Data: marshalData(payload)},
	}
}

// NewNotification builds a server push with no correlation id.
func NewNotification(msgType string, payload any) *Message {
	return &Message{
		Version:   Version,
		Timestamp: util.CurrentTimestamp(),
		Type:      MessageType{Type: msgType, Data: marshalData(payload)},
	}
}

// NewError wraps a server error as a reply to the given request.
func NewError(requestID string, err error) *Message {
	return NewResponse(requestID, TypeError, errs.From(err).Wire())
}

// NewSuccess builds a bare acknowledgment reply.
func NewSuccess(requestID, note string) *Message {
	return NewResponse(requestID, TypeSuccess, SuccessResponse{Message: note})
}
