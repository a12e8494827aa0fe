package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexasphere/internal/domain"
	"nexasphere/internal/presence"
	"nexasphere/internal/security"
	"nexasphere/internal/service"
	"nexasphere/internal/ws"
)

// In-memory stores, enough behavior for end-to-end handler scenarios.

type memConvStore struct {
	mu    sync.Mutex
	byKey map[string]*domain.Conversation
	seq   int
}

func newMemConvStore() *memConvStore {
	return &memConvStore{byKey: make(map[string]*domain.Conversation)}
}

func convKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

func (s *memConvStore) FindOrCreate(ctx context.Context, a, b string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byKey[convKey(a, b)]; ok {
		return c, nil
	}
	s.seq++
	c := &domain.Conversation{
		ID:           fmt.Sprintf("conv-%d", s.seq),
		Participants: []string{a, b},
		MessageIDs:   []string{},
	}
	s.byKey[convKey(a, b)] = c
	return c, nil
}

func (s *memConvStore) Get(ctx context.Context, a, b string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byKey[convKey(a, b)], nil
}

func (s *memConvStore) AppendMessage(ctx context.Context, conversationID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byKey {
		if c.ID == conversationID {
			c.MessageIDs = append(c.MessageIDs, messageID)
			return nil
		}
	}
	return domain.ErrNotFound
}

type memMsgStore struct {
	mu   sync.Mutex
	byID map[string]*domain.Message
	seq  int
}

func newMemMsgStore() *memMsgStore {
	return &memMsgStore{byID: make(map[string]*domain.Message)}
}

func (s *memMsgStore) Create(ctx context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		s.seq++
		m.ID = fmt.Sprintf("msg-%d", s.seq)
	}
	s.byID[m.ID] = m
	return nil
}

func (s *memMsgStore) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id], nil
}

func (s *memMsgStore) ListByIDs(ctx context.Context, ids []string) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]*domain.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.byID[id]; ok {
			res = append(res, m)
		}
	}
	return res, nil
}

func (s *memMsgStore) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.byID {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (s *memMsgStore) SoftDelete(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !m.HiddenFor(userID) {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
	return nil
}

func (s *memMsgStore) HardDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

type memUsers map[string]*domain.User

func (u memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, domain.ErrNotFound
}

// recorderConn collects frames pushed to a "connected" user.
type recorderConn struct {
	mu     sync.Mutex
	frames []ws.Event
}

func (c *recorderConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, v.(ws.Event))
	return nil
}

func (c *recorderConn) Close() error { return nil }

func (c *recorderConn) eventTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		types = append(types, f.Type)
	}
	return types
}

type testEnv struct {
	router   http.Handler
	tokens   *security.TokenService
	registry *presence.MemoryRegistry
	convs    *memConvStore
	msgs     *memMsgStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.Default()
	tokens := security.NewTokenService("test-secret", time.Hour)
	registry := presence.NewMemoryRegistry()
	hub := ws.NewHub(registry, log)

	convs := newMemConvStore()
	msgs := newMemMsgStore()
	users := memUsers{
		"alice": {ID: "alice", Username: "alice"},
		"bob":   {ID: "bob", Username: "bob"},
	}

	msgSvc := service.NewMessagingService(convs, msgs, users, log)
	dispatcher := service.NewDispatcher(hub)
	fanout := service.NewFanout(users, hub, log)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))
		r.Route("/message", func(r chi.Router) {
			r.Post("/send/{receiverId}", handleSendMessage(msgSvc, dispatcher))
			r.Get("/getmessage/{otherId}", handleGetMessages(msgSvc))
			r.Patch("/read/{otherId}", handleMarkRead(msgSvc, dispatcher))
			r.Delete("/delete/{messageId}", handleDeleteMessage(msgSvc, dispatcher))
		})
		r.Post("/notify/{targetId}", handleNotify(fanout))
	})

	return &testEnv{router: r, tokens: tokens, registry: registry, convs: convs, msgs: msgs}
}

func (e *testEnv) request(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		token, err := e.tokens.CreateForUser(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestSendRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodPost, "/message/send/bob", "", `{"message":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendToOnlineReceiver(t *testing.T) {
	env := newTestEnv(t)
	bobConn := &recorderConn{}
	env.registry.Connect("bob", bobConn)

	rec := env.request(t, http.MethodPost, "/message/send/bob", "alice", `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"newMessage"`)
	assert.Contains(t, rec.Body.String(), `"hi"`)

	// both the chat-pane event and the badge event fire
	assert.Equal(t, []string{"newMessage", "messageNotification"}, bobConn.eventTypes())
}

func TestSendToOfflineReceiverStillPersists(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/message/send/bob", "alice", `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/message/getmessage/bob", "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hi"`)
}

func TestSendValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/message/send/bob", "alice", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodPost, "/message/send/alice", "alice", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRepeatedSendsShareOneConversation(t *testing.T) {
	env := newTestEnv(t)

	env.request(t, http.MethodPost, "/message/send/bob", "alice", `{"message":"one"}`)
	env.request(t, http.MethodPost, "/message/send/alice", "bob", `{"message":"two"}`)
	env.request(t, http.MethodPost, "/message/send/bob", "alice", `{"message":"three"}`)

	assert.Len(t, env.convs.byKey, 1)

	rec := env.request(t, http.MethodGet, "/message/getmessage/alice", "bob", "")
	body := rec.Body.String()
	assert.Less(t, strings.Index(body, "one"), strings.Index(body, "two"))
	assert.Less(t, strings.Index(body, "two"), strings.Index(body, "three"))
}

func TestGetMessagesWithoutConversation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/message/getmessage/bob", "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)
}

func TestMarkReadIsIdempotentAndNotifiesSender(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.request(t, http.MethodPost, "/message/send/alice", "bob", `{"message":"hello"}`)
	}

	bobConn := &recorderConn{}
	env.registry.Connect("bob", bobConn)

	rec := env.request(t, http.MethodPatch, "/message/read/bob", "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updatedCount":3`)

	rec = env.request(t, http.MethodPatch, "/message/read/bob", "alice", "")
	assert.Contains(t, rec.Body.String(), `"updatedCount":0`)

	types := bobConn.eventTypes()
	require.NotEmpty(t, types)
	assert.Equal(t, "messageRead", types[0])
}

func TestDeleteForEveryone(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/message/send/bob", "alice", `{"message":"oops"}`)

	// only the sender may delete for everyone
	rec := env.request(t, http.MethodDelete, "/message/delete/msg-1", "bob", `{"forEveryone":true}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodDelete, "/message/delete/msg-1", "alice", `{"forEveryone":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":true`)

	// unreachable for both participants afterwards
	for _, user := range []string{"alice", "bob"} {
		rec = env.request(t, http.MethodGet, "/message/getmessage/"+otherOf(user), user, "")
		assert.NotContains(t, rec.Body.String(), "oops")
	}
}

func TestDeleteForMeKeepsMessageForOther(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/message/send/bob", "alice", `{"message":"keep me"}`)

	rec := env.request(t, http.MethodDelete, "/message/delete/msg-1", "alice", `{"forEveryone":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":false`)

	// record intact for bob
	rec = env.request(t, http.MethodGet, "/message/getmessage/alice", "bob", "")
	assert.Contains(t, rec.Body.String(), "keep me")

	// a second delete-for-me is a no-op success
	rec = env.request(t, http.MethodDelete, "/message/delete/msg-1", "alice", `{"forEveryone":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	msg, err := env.msgs.GetByID(context.Background(), "msg-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, msg.DeletedFor)
}

func TestDeleteMissingMessage(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodDelete, "/message/delete/nope", "alice", `{"forEveryone":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotifyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	bobConn := &recorderConn{}
	env.registry.Connect("bob", bobConn)

	rec := env.request(t, http.MethodPost, "/notify/bob", "alice", `{"kind":"like","postId":"p1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"notification"}, bobConn.eventTypes())

	rec = env.request(t, http.MethodPost, "/notify/bob", "alice", `{"kind":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func otherOf(user string) string {
	if user == "alice" {
		return "bob"
	}
	return "alice"
}
