package chat

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Event names on the live channel. These are wire contracts with the web and
// mobile clients; renaming one breaks them.
const (
	// client -> server
	EventAddUser          = "addUser"
	EventSendMessage      = "sendMessage"
	EventJoinGroup        = "joinGroup"
	EventLeaveGroup       = "leaveGroup"
	EventSendGroupMessage = "sendGroupMessage"
	EventCreateGroup      = "createGroup"

	// server -> client
	EventGetUsers        = "getUsers"
	EventGetMessage      = "getMessage"
	EventGetGroupMessage = "getGroupMessage"
	EventGroupCreated    = "groupCreated"
	EventGroupJoined     = "groupJoined"
)

var (
	ErrUnknownEvent  = errors.New("unknown event")
	ErrBadPayload    = errors.New("malformed event payload")
	eventValidator   = validator.New()
	defaultGroupName = "Unknown"
)

// Frame is the JSON envelope for every message on the websocket and on the
// message bus.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// AddUser registers the sending connection as userId's live session.
type AddUser struct {
	UserID string `json:"userId" validate:"required"`
}

// DirectMessage is a one-to-one envelope.
type DirectMessage struct {
	SenderID   string `json:"senderId" validate:"required"`
	ReceiverID string `json:"receiverId" validate:"required"`
	Text       string `json:"text"`
	FileURL    string `json:"fileUrl,omitempty"`
}

// MembershipChange is the payload for joinGroup and leaveGroup. The two
// events share a shape; which one arrived decides the effect.
type MembershipChange struct {
	UserID  string `json:"userId" validate:"required"`
	GroupID string `json:"groupId" validate:"required"`
}

// GroupMessage is a room fan-out envelope. Sender display fields are filled
// by the client when available and defaulted server-side when not.
type GroupMessage struct {
	SenderID         string `json:"senderId" validate:"required"`
	GroupID          string `json:"groupId" validate:"required"`
	Text             string `json:"text"`
	FileURL          string `json:"fileUrl,omitempty"`
	SenderName       string `json:"senderName,omitempty"`
	SenderFirstname  string `json:"senderFirstname,omitempty"`
	SenderLastname   string `json:"senderLastname,omitempty"`
	SenderProfilePic string `json:"senderProfilePic,omitempty"`
}

// CreateGroup carries the client's group descriptor. We only interpret the id
// and echo the full descriptor back on groupCreated.
type CreateGroup struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name,omitempty"`

	raw json.RawMessage
}

// Descriptor returns the original descriptor object as sent by the client.
func (cg *CreateGroup) Descriptor() json.RawMessage { return cg.raw }

type joinGroup MembershipChange
type leaveGroup MembershipChange

// DecodeEvent parses one inbound frame into its typed event. Unknown names
// and payloads missing identity fields are rejected here so they never reach
// the hub.
func DecodeEvent(data []byte) (any, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch frame.Event {
	case EventAddUser:
		// Historical quirk: addUser's payload is the bare user id string.
		var userID string
		if err := json.Unmarshal(frame.Data, &userID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		ev := &AddUser{UserID: userID}
		return ev, validate(ev)

	case EventSendMessage:
		ev := &DirectMessage{}
		return decodePayload(frame.Data, ev)

	case EventJoinGroup:
		ev := &MembershipChange{}
		if _, err := decodePayload(frame.Data, ev); err != nil {
			return nil, err
		}
		return (*joinGroup)(ev), nil

	case EventLeaveGroup:
		ev := &MembershipChange{}
		if _, err := decodePayload(frame.Data, ev); err != nil {
			return nil, err
		}
		return (*leaveGroup)(ev), nil

	case EventSendGroupMessage:
		ev := &GroupMessage{}
		return decodePayload(frame.Data, ev)

	case EventCreateGroup:
		ev := &CreateGroup{}
		if _, err := decodePayload(frame.Data, ev); err != nil {
			return nil, err
		}
		ev.raw = append(json.RawMessage(nil), frame.Data...)
		return ev, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}
}

func decodePayload[T any](data json.RawMessage, ev *T) (*T, error) {
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := validate(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func validate(ev any) error {
	if err := eventValidator.Struct(ev); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

// EncodeFrame marshals an outbound event. Payloads are our own types, so a
// marshal failure is a programming error; it is reported, not ignored.
func EncodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
