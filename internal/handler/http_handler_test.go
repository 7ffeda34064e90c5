package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/mocks"
	"github.com/weiawesome/wes-io-dm/pkg/jwt"
	"github.com/weiawesome/wes-io-dm/pkg/middleware"
	"github.com/weiawesome/wes-io-dm/pkg/response"
)

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

type staticOnline []string

func (s staticOnline) OnlineUserIDs() []string { return s }

type apiFixture struct {
	engine      *gin.Engine
	token       string
	messages    *mocks.MockMessageService
	partners    *mocks.MockPartnerService
	users       *mocks.MockUserService
	attachments *mocks.MockAttachmentService
}

func newAPIFixture(t *testing.T, online ...string) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	manager, err := jwt.NewManager(jwt.Config{Secret: "test-secret", AccessDuration: time.Minute})
	require.NoError(t, err)
	token, _, err := manager.GenerateAccessToken("alice", "alice")
	require.NoError(t, err)

	f := &apiFixture{
		engine:      gin.New(),
		token:       token,
		messages:    mocks.NewMockMessageService(ctrl),
		partners:    mocks.NewMockPartnerService(ctrl),
		users:       mocks.NewMockUserService(ctrl),
		attachments: mocks.NewMockAttachmentService(ctrl),
	}
	f.users.EXPECT().EnsureUser(gomock.Any(), "alice", "alice").Return(nil).AnyTimes()

	auth := middleware.NewAuthMiddleware(manager, "")
	NewHandler(f.messages, f.partners, f.users, staticOnline(online), auth).RegisterRoutes(f.engine)
	NewAttachmentHandler(f.attachments, 32).RegisterRoutes(f.engine, auth.RequireAuth(), EnsureUser(f.users))
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		r.Header.Set("Authorization", "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, r)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func TestHandler_RequiresAuthentication(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	f.token = ""

	w, env := f.do(t, http.MethodGet, "/api/v1/chats", nil)

	req.Equal(http.StatusUnauthorized, w.Code)
	req.False(env.Success)
	req.Equal("UNAUTHORIZED", env.Error.Code)
}

func TestHandler_SendMessage(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		// Given
		sent := &domain.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Text: "hi", CreatedAt: time.Now().UTC()}
		f.messages.EXPECT().
			SendMessage(gomock.Any(), "alice", "bob", domain.MessageContent{Text: "hi"}).
			Return(sent, nil)

		// When
		w, env := f.do(t, http.MethodPost, "/api/v1/messages/bob", map[string]string{"text": "hi"})

		// Then
		req.Equal(http.StatusCreated, w.Code)
		var got domain.Message
		req.NoError(json.Unmarshal(env.Data, &got))
		req.Equal("m1", got.ID)
		req.Equal("bob", got.ReceiverID)
	})

	t.Run("validation error is a bad request", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		f.messages.EXPECT().
			SendMessage(gomock.Any(), "alice", "bob", gomock.Any()).
			Return(nil, domain.NewValidationError("content", "text or attachment is required"))

		w, env := f.do(t, http.MethodPost, "/api/v1/messages/bob", map[string]string{})

		req.Equal(http.StatusBadRequest, w.Code)
		req.Equal("BAD_REQUEST", env.Error.Code)
		req.Contains(env.Error.Message, "content")
	})

	t.Run("unknown receiver is not found", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		f.messages.EXPECT().
			SendMessage(gomock.Any(), "alice", "ghost", gomock.Any()).
			Return(nil, domain.NotFoundf("user %s", "ghost"))

		w, _ := f.do(t, http.MethodPost, "/api/v1/messages/ghost", map[string]string{"text": "hi"})

		req.Equal(http.StatusNotFound, w.Code)
	})

	t.Run("store timeout is a gateway timeout", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		f.messages.EXPECT().
			SendMessage(gomock.Any(), "alice", "bob", gomock.Any()).
			Return(nil, fmt.Errorf("%w: deadline", domain.ErrLivenessTimeout))

		w, env := f.do(t, http.MethodPost, "/api/v1/messages/bob", map[string]string{"text": "hi"})

		req.Equal(http.StatusGatewayTimeout, w.Code)
		req.Equal("LIVENESS_TIMEOUT", env.Error.Code)
	})

	t.Run("unexpected error is internal", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		f.messages.EXPECT().
			SendMessage(gomock.Any(), "alice", "bob", gomock.Any()).
			Return(nil, fmt.Errorf("disk on fire"))

		w, env := f.do(t, http.MethodPost, "/api/v1/messages/bob", map[string]string{"text": "hi"})

		req.Equal(http.StatusInternalServerError, w.Code)
		req.NotContains(env.Error.Message, "disk")
	})
}

func TestHandler_GetConversation(t *testing.T) {
	t.Run("passes limit and cursor through", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		cursor := "2024-01-01T00:00:00Z"
		next := "2023-12-31T23:00:00Z"
		f.messages.EXPECT().
			GetConversation(gomock.Any(), "alice", "bob", 20, cursor).
			Return(&domain.Page{Messages: []*domain.Message{}, HasMore: true, NextCursor: &next}, nil)

		w, env := f.do(t, http.MethodGet, "/api/v1/messages/bob?limit=20&before="+cursor, nil)

		req.Equal(http.StatusOK, w.Code)
		var page domain.Page
		req.NoError(json.Unmarshal(env.Data, &page))
		req.True(page.HasMore)
		req.Equal(next, *page.NextCursor)
	})

	t.Run("non-numeric limit falls back to the default", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		f.messages.EXPECT().
			GetConversation(gomock.Any(), "alice", "bob", 0, "").
			Return(&domain.Page{Messages: []*domain.Message{}}, nil)

		w, _ := f.do(t, http.MethodGet, "/api/v1/messages/bob?limit=lots", nil)

		req.Equal(http.StatusOK, w.Code)
	})

	t.Run("malformed cursor is a bad request", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		f.messages.EXPECT().
			GetConversation(gomock.Any(), "alice", "bob", 0, "yesterday").
			Return(nil, domain.NewValidationError("before", "must be an RFC3339 timestamp"))

		w, env := f.do(t, http.MethodGet, "/api/v1/messages/bob?before=yesterday", nil)

		req.Equal(http.StatusBadRequest, w.Code)
		req.Contains(env.Error.Message, "before")
	})
}

func TestHandler_DeleteMessage(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	// Given
	gomock.InOrder(
		f.messages.EXPECT().DeleteMessage(gomock.Any(), "alice", "m1").
			Return(&domain.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Deleted: true}, nil),
		f.messages.EXPECT().DeleteMessage(gomock.Any(), "alice", "m2").
			Return(nil, fmt.Errorf("message m2: %w", domain.ErrForbidden)),
	)

	// When / Then
	w, env := f.do(t, http.MethodDelete, "/api/v1/messages/id/m1", nil)
	req.Equal(http.StatusOK, w.Code)
	var got domain.Message
	req.NoError(json.Unmarshal(env.Data, &got))
	req.True(got.Deleted)

	w, env = f.do(t, http.MethodDelete, "/api/v1/messages/id/m2", nil)
	req.Equal(http.StatusForbidden, w.Code)
	req.Equal("FORBIDDEN", env.Error.Code)
}

func TestHandler_GetChatPartners(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	f.partners.EXPECT().GetChatPartners(gomock.Any(), "alice").Return(nil, nil)

	w, env := f.do(t, http.MethodGet, "/api/v1/chats", nil)

	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`[]`, string(env.Data))
}

func TestHandler_Users(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	// Given
	f.users.EXPECT().ListUsers(gomock.Any(), "alice").
		Return([]domain.Profile{{ID: "bob", Username: "bob"}}, nil)
	f.users.EXPECT().GetProfile(gomock.Any(), "carol").
		Return(nil, domain.NotFoundf("user %s", "carol"))
	f.users.EXPECT().
		UpsertProfile(gomock.Any(), "alice", "alice", &domain.UpdateProfileRequest{FullName: "Alice A."}).
		Return(&domain.User{ID: "alice", Username: "alice", FullName: "Alice A."}, nil)

	// When / Then
	w, env := f.do(t, http.MethodGet, "/api/v1/users", nil)
	req.Equal(http.StatusOK, w.Code)
	var list []domain.Profile
	req.NoError(json.Unmarshal(env.Data, &list))
	req.Len(list, 1)
	req.Equal("bob", list[0].ID)

	w, _ = f.do(t, http.MethodGet, "/api/v1/users/carol", nil)
	req.Equal(http.StatusNotFound, w.Code)

	w, env = f.do(t, http.MethodPut, "/api/v1/users/me", map[string]string{"full_name": "Alice A."})
	req.Equal(http.StatusOK, w.Code)
	var profile domain.Profile
	req.NoError(json.Unmarshal(env.Data, &profile))
	req.Equal("Alice A.", profile.FullName)
}

func TestHandler_GetOnlineUsers(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t, "alice", "bob")

	w, env := f.do(t, http.MethodGet, "/api/v1/presence/online", nil)

	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"user_ids":["alice","bob"]}`, string(env.Data))
}

func TestEnsureUser_RejectsFailedResolution(t *testing.T) {
	req := require.New(t)
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserService(ctrl)

	// Given
	users.EXPECT().EnsureUser(gomock.Any(), "alice", "alice").
		Return(fmt.Errorf("%w: db", domain.ErrLivenessTimeout))

	engine := gin.New()
	engine.GET("/x", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "alice")
		c.Set(middleware.UsernameKey, "alice")
		c.Next()
	}, EnsureUser(users), func(c *gin.Context) {
		t.Fatal("handler must not run")
	})

	// When
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	// Then
	req.Equal(http.StatusGatewayTimeout, w.Code)
}
