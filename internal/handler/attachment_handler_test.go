package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/weiawesome/wes-io-dm/internal/domain"
)

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (f *apiFixture) upload(t *testing.T, body io.Reader, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/attachments", body)
	r.Header.Set("Content-Type", contentType)
	r.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, r)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestAttachmentHandler_Upload(t *testing.T) {
	t.Run("stored file returns its reference", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		// Given
		f.attachments.EXPECT().
			Upload(gomock.Any(), "alice", "cat.png", gomock.Any()).
			Return(&domain.Attachment{Ref: "attachments/alice/01.png", URL: "/files/01.png", ContentType: "image/png", Size: 4}, nil)
		body, ct := multipartBody(t, "file", "cat.png", []byte("tiny"))

		// When
		w, env := f.upload(t, body, ct)

		// Then
		req.Equal(http.StatusCreated, w.Code)
		var att domain.Attachment
		req.NoError(json.Unmarshal(env.Data, &att))
		req.Equal("attachments/alice/01.png", att.Ref)
	})

	t.Run("oversized file is rejected before storage", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		body, ct := multipartBody(t, "file", "big.png", bytes.Repeat([]byte{0x1}, 100))

		w, env := f.upload(t, body, ct)

		req.Equal(http.StatusRequestEntityTooLarge, w.Code)
		req.Equal("PAYLOAD_TOO_LARGE", env.Error.Code)
	})

	t.Run("missing file field is a bad request", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		body, ct := multipartBody(t, "other", "cat.png", []byte("tiny"))

		w, _ := f.upload(t, body, ct)

		req.Equal(http.StatusBadRequest, w.Code)
	})

	t.Run("rejected content type is a bad request", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		f.attachments.EXPECT().
			Upload(gomock.Any(), "alice", "notes.txt", gomock.Any()).
			Return(nil, domain.NewValidationError("file", "unsupported content type text/plain"))
		body, ct := multipartBody(t, "file", "notes.txt", []byte("text"))

		w, _ := f.upload(t, body, ct)

		req.Equal(http.StatusBadRequest, w.Code)
	})
}

func TestAttachmentHandler_Download(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	// Given
	f.attachments.EXPECT().Open(gomock.Any(), "attachments/bob/01.png").
		Return(io.NopCloser(strings.NewReader("png-bytes")), "image/png", nil)
	f.attachments.EXPECT().Open(gomock.Any(), "attachments/bob/02.png").
		Return(nil, "", domain.NotFoundf("attachment %s", "attachments/bob/02.png"))

	// When / Then
	w, _ := f.do(t, http.MethodGet, "/api/v1/attachments/files/attachments/bob/01.png", nil)
	req.Equal(http.StatusOK, w.Code)
	req.Equal("image/png", w.Header().Get("Content-Type"))
	req.Equal("png-bytes", w.Body.String())

	w, _ = f.do(t, http.MethodGet, "/api/v1/attachments/files/attachments/bob/02.png", nil)
	req.Equal(http.StatusNotFound, w.Code)
}
