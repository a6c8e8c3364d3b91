package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeAddUser(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"addUser","data":"user-7"}`))
	require.NoError(t, err)
	require.Equal(t, &AddUser{UserID: "user-7"}, ev)
}

func TestDecodeSendMessage(t *testing.T) {
	raw := `{"event":"sendMessage","data":{"senderId":"a","receiverId":"b","text":"hi","fileUrl":"https://f/x"}}`
	ev, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)
	msg, ok := ev.(*DirectMessage)
	require.True(t, ok)
	require.Equal(t, "a", msg.SenderID)
	require.Equal(t, "b", msg.ReceiverID)
	require.Equal(t, "hi", msg.Text)
	require.Equal(t, "https://f/x", msg.FileURL)
}

func TestDecodeJoinAndLeaveAreDistinctTypes(t *testing.T) {
	join, err := DecodeEvent([]byte(`{"event":"joinGroup","data":{"userId":"a","groupId":"r1"}}`))
	require.NoError(t, err)
	require.IsType(t, (*joinGroup)(nil), join)

	leave, err := DecodeEvent([]byte(`{"event":"leaveGroup","data":{"userId":"a","groupId":"r1"}}`))
	require.NoError(t, err)
	require.IsType(t, (*leaveGroup)(nil), leave)
}

func TestDecodeSendGroupMessage(t *testing.T) {
	raw := `{"event":"sendGroupMessage","data":{"senderId":"a","groupId":"r1","text":"yo","senderName":"Ann","senderFirstname":"Ann","senderLastname":"Ng","senderProfilePic":"p.png"}}`
	ev, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)
	msg, ok := ev.(*GroupMessage)
	require.True(t, ok)
	require.Equal(t, "r1", msg.GroupID)
	require.Equal(t, "Ann", msg.SenderName)
	require.Equal(t, "Ng", msg.SenderLastname)
}

func TestDecodeCreateGroupKeepsDescriptor(t *testing.T) {
	raw := `{"event":"createGroup","data":{"id":"r1","name":"Maths","subject":"algebra"}}`
	ev, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)
	cg, ok := ev.(*CreateGroup)
	require.True(t, ok)
	require.Equal(t, "r1", cg.ID)
	require.Equal(t, "Maths", cg.Name)
	// Unknown descriptor fields survive for the groupCreated echo.
	require.JSONEq(t, `{"id":"r1","name":"Maths","subject":"algebra"}`, string(cg.Descriptor()))
}

func TestDecodeRejectsMissingIdentityFields(t *testing.T) {
	cases := map[string]string{
		"empty addUser":             `{"event":"addUser","data":""}`,
		"sendMessage no sender":     `{"event":"sendMessage","data":{"receiverId":"b","text":"hi"}}`,
		"sendMessage no receiver":   `{"event":"sendMessage","data":{"senderId":"a","text":"hi"}}`,
		"joinGroup no group":        `{"event":"joinGroup","data":{"userId":"a"}}`,
		"leaveGroup no user":        `{"event":"leaveGroup","data":{"groupId":"r1"}}`,
		"group message no group":    `{"event":"sendGroupMessage","data":{"senderId":"a","text":"hi"}}`,
		"createGroup without id":    `{"event":"createGroup","data":{"name":"Maths"}}`,
		"sendMessage wrong payload": `{"event":"sendMessage","data":[1,2,3]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(raw))
			require.ErrorIs(t, err, ErrBadPayload)
		})
	}
}

func TestDecodeRejectsUnknownEvent(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"event":"formatAllDisks","data":{}}`))
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeEvent([]byte(`not json at all`))
	require.ErrorIs(t, err, ErrBadPayload)
}

func TestEncodeFrame(t *testing.T) {
	payload, err := EncodeFrame(EventGroupJoined, GroupJoined{UserID: "a", GroupID: "r1"})
	require.NoError(t, err)

	var f Frame
	require.NoError(t, json.Unmarshal(payload, &f))
	require.Equal(t, EventGroupJoined, f.Event)
	require.JSONEq(t, `{"userId":"a","groupId":"r1"}`, string(f.Data))
}
