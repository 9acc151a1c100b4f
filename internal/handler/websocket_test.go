package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"quick_chat/internal/domain"
	apperrors "quick_chat/pkg/errors"
)

func TestWebSocket_RejectsHandshakeWithoutToken(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, testConfig())

	_, resp, err := srv.dial(t, "")

	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	req.Zero(srv.registry.Len())
}

func TestWebSocket_RejectsInvalidToken(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, testConfig())

	_, resp, err := srv.dial(t, "garbage")

	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_MessageRoundTripBetweenTwoClients(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, testConfig())
	alice, aliceToken := srv.register(t, "alice@example.com")
	bob, bobToken := srv.register(t, "bob@example.com")

	aliceConn, _, err := srv.dial(t, aliceToken)
	req.NoError(err)
	bobConn, _, err := srv.dial(t, bobToken)
	req.NoError(err)
	srv.waitOnline(t, alice)
	srv.waitOnline(t, bob)

	// When Alice sends over her socket
	send(t, aliceConn, domain.EventSendMessage, domain.SendMessagePayload{ReceiverID: bob, Text: "hi bob"})

	// Then Bob receives the persisted record and Alice gets the ack
	received := readUntil(t, bobConn, domain.EventReceiveMessage)
	var msg domain.MessagePayload
	req.NoError(json.Unmarshal(received.Data, &msg))
	req.Equal("hi bob", msg.Text)
	req.Equal(alice, msg.SenderID)
	req.False(msg.Seen)

	ack := readUntil(t, aliceConn, domain.EventMessageSent)
	var sent domain.MessagePayload
	req.NoError(json.Unmarshal(ack.Data, &sent))
	req.Equal(msg.ID, sent.ID)

	// And typing indicators flow the other way
	send(t, bobConn, domain.EventTyping, domain.TypingPayload{ReceiverID: alice})
	typing := readUntil(t, aliceConn, domain.EventUserTyping)
	var payload domain.UserTypingPayload
	req.NoError(json.Unmarshal(typing.Data, &payload))
	req.Equal(bob, payload.SenderID)

	// And delete-message defaults to delete for everyone
	send(t, aliceConn, domain.EventDeleteMessage, domain.DeleteMessagePayload{MessageID: msg.ID, ReceiverID: bob})
	deleted := readUntil(t, bobConn, domain.EventMessageDeleted)
	var deletedPayload domain.MessageDeletedPayload
	req.NoError(json.Unmarshal(deleted.Data, &deletedPayload))
	req.Equal(msg.ID, deletedPayload.MessageID)

	// And Alice is told how her delete was applied
	result := readUntil(t, aliceConn, domain.EventMessageDeleteResult)
	var resultPayload domain.MessageDeleteResultPayload
	req.NoError(json.Unmarshal(result.Data, &resultPayload))
	req.Equal(msg.ID, resultPayload.MessageID)
	req.Equal("for_everyone", resultPayload.Mode)
	req.Empty(resultPayload.Rejected)
}

func TestWebSocket_DeleteByNonSenderReportsRejection(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, testConfig())
	alice, aliceToken := srv.register(t, "frank@example.com")
	bob, bobToken := srv.register(t, "grace@example.com")

	aliceConn, _, err := srv.dial(t, aliceToken)
	req.NoError(err)
	bobConn, _, err := srv.dial(t, bobToken)
	req.NoError(err)
	srv.waitOnline(t, alice)
	srv.waitOnline(t, bob)

	// Given Alice sent Bob a message
	send(t, aliceConn, domain.EventSendMessage, domain.SendMessagePayload{ReceiverID: bob, Text: "keep me"})
	received := readUntil(t, bobConn, domain.EventReceiveMessage)
	var msg domain.MessagePayload
	req.NoError(json.Unmarshal(received.Data, &msg))

	// When Bob tries to delete it for everyone
	send(t, bobConn, domain.EventDeleteMessage, domain.DeleteMessagePayload{MessageID: msg.ID, ReceiverID: alice})

	// Then Bob learns it was only deleted for him, and why
	result := readUntil(t, bobConn, domain.EventMessageDeleteResult)
	var payload domain.MessageDeleteResultPayload
	req.NoError(json.Unmarshal(result.Data, &payload))
	req.Equal(msg.ID, payload.MessageID)
	req.Equal("for_me", payload.Mode)
	req.Contains(payload.Rejected, apperrors.ErrNotSender.Error())

	// And Alice still sees the message
	resp, body := srv.do(t, http.MethodGet, "/api/v1/conversations/"+bob.String()+"/messages", aliceToken, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	messages := body["messages"].([]interface{})
	req.Len(messages, 1)
	req.Equal("keep me", messages[0].(map[string]interface{})["text"])
}

func TestWebSocket_InvalidEventGetsErrorFrame(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, testConfig())
	alice, token := srv.register(t, "carol@example.com")

	conn, _, err := srv.dial(t, token)
	req.NoError(err)
	srv.waitOnline(t, alice)

	send(t, conn, domain.EventSendMessage, domain.SendMessagePayload{ReceiverID: alice, Text: "   "})

	evt := readUntil(t, conn, domain.EventError)
	var payload domain.ErrorPayload
	req.NoError(json.Unmarshal(evt.Data, &payload))
	req.Equal(domain.EventSendMessage, payload.Event)
	req.NotEmpty(payload.Error)
}

func TestWebSocket_ReconnectReplacesOldHandle(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, testConfig())
	alice, token := srv.register(t, "dave@example.com")

	first, _, err := srv.dial(t, token)
	req.NoError(err)
	srv.waitOnline(t, alice)
	firstHandle, _ := srv.registry.Lookup(alice)

	second, _, err := srv.dial(t, token)
	req.NoError(err)
	req.Eventually(func() bool {
		h, ok := srv.registry.Lookup(alice)
		return ok && h != firstHandle
	}, 2*time.Second, 5*time.Millisecond)

	// The first socket is closed by the server
	req.NoError(first.SetReadDeadline(time.Now().Add(2 * time.Second)))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	// and its teardown does not evict the newer handle
	time.Sleep(50 * time.Millisecond)
	_, ok := srv.registry.Lookup(alice)
	req.True(ok)
	req.Equal(1, srv.registry.Len())
	_ = second
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, testConfig())
	alice, token := srv.register(t, "erin@example.com")

	conn, _, err := srv.dial(t, token)
	req.NoError(err)
	srv.waitOnline(t, alice)

	req.NoError(conn.Close())

	req.Eventually(func() bool {
		_, ok := srv.registry.Lookup(alice)
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}
