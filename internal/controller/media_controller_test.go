package controller

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/localcache"
	"EnclosureAPI/internal/middleware"
	"EnclosureAPI/internal/model"
	"EnclosureAPI/internal/service"
	"EnclosureAPI/internal/websocket"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	fail bool
	puts []string
}

func (s *memoryStore) Put(ctx context.Context, path, contentType string, body io.Reader) error {
	if s.fail {
		return errors.New("bucket unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, path)
	return nil
}

func (s *memoryStore) ResolveURL(ctx context.Context, path string) (string, error) {
	return "https://cdn.test/" + path, nil
}

type nopPending struct{}

func (nopPending) Insert(ctx context.Context, msg *model.ChatMessage, fToken string) error {
	return nil
}
func (nopPending) Remove(ctx context.Context, senderUID, modelID, receiverUID string) (bool, error) {
	return true, nil
}
func (nopPending) RemoveMany(ctx context.Context, senderUID, receiverUID string, modelIDs []string) (int64, error) {
	return int64(len(modelIDs)), nil
}
func (nopPending) ListByReceiver(ctx context.Context, senderUID, receiverUID string) ([]model.ChatMessage, error) {
	return nil, nil
}
func (nopPending) ListStale(ctx context.Context, pendingBefore, sendingBefore time.Time, limit int) ([]model.PendingMessage, error) {
	return nil, nil
}
func (nopPending) MarkStatus(ctx context.Context, modelID, receiverUID string, status int) error {
	return nil
}
func (nopPending) RecordAttempt(ctx context.Context, modelID, receiverUID string) (int, error) {
	return 1, nil
}

type nopDelivery struct{}

func (nopDelivery) Deliver(ctx context.Context, msg *model.ChatMessage, localFilePath, fToken string) error {
	return nil
}

type nopNotifier struct{}

func (nopNotifier) BroadcastToUser(uid string, event websocket.Event) {}

type mediaFixture struct {
	router *chi.Mux
	store  *memoryStore
	svc    *service.MediaSendService
}

func newMediaFixture(t *testing.T) *mediaFixture {
	cfg := &config.AppConfig{
		ChatRoot:          "CHAT",
		GroupChatRoot:     "GROUPCHAT",
		UploadMaxAssets:   30,
		UploadMaxFileSize: 1 << 20,
		JPEGQuality:       85,
	}
	store := &memoryStore{}
	uploader := service.NewBatchUploader(cfg, service.NewDefaultExporter(cfg, nil), store, localcache.New(t.TempDir()))
	svc := service.NewMediaSendService(cfg, uploader, nopPending{}, nopDelivery{}, nopNotifier{}, nil)
	ctrl := NewMediaController(cfg, config.NewValidator(), svc)

	user := &model.UserDTO{UID: "me", FullName: "Me"}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.UserContextKey, user)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/api/chats/{contactUID}/media", ctrl.SendToContact)
	r.Post("/api/groups/{groupID}/media", ctrl.SendToGroup)
	r.Post("/api/share", ctrl.ShareToContacts)

	return &mediaFixture{router: r, store: store, svc: svc}
}

func pngBytes(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, files [][]byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i, data := range files {
		fw, err := mw.CreateFormFile("files", "asset"+string(rune('a'+i))+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

type batchResponse struct {
	Data    model.BatchReportDTO `json:"data"`
	Error   string               `json:"error"`
	Details model.BatchReportDTO `json:"details"`
}

func (f *mediaFixture) post(t *testing.T, path string, fields map[string]string, files [][]byte) (*httptest.ResponseRecorder, batchResponse) {
	body, contentType := multipartBody(t, fields, files)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)
	f.svc.Wait()

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestSendToContactReturnsReport(t *testing.T) {
	f := newMediaFixture(t)

	rec, resp := f.post(t, "/api/chats/friend/media",
		map[string]string{"kind": "image", "caption": "hello"},
		[][]byte{pngBytes(t, 4, 2), pngBytes(t, 2, 2)})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, resp.Data.Uploaded)
	assert.Equal(t, []string{"friend"}, resp.Data.Receivers)
	require.Len(t, resp.Data.Messages, 2)
	assert.Equal(t, "hello", resp.Data.Messages[0].Caption)
	assert.Empty(t, resp.Data.Messages[1].Caption)
	assert.Equal(t, "2.00", resp.Data.Messages[0].AspectRatio)
	assert.Len(t, f.store.puts, 2)
}

func TestSendToContactRejectsMissingFiles(t *testing.T) {
	f := newMediaFixture(t)

	rec, resp := f.post(t, "/api/chats/friend/media", map[string]string{"kind": "image"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, resp.Error)
}

func TestSendToContactRejectsUnknownKind(t *testing.T) {
	f := newMediaFixture(t)

	rec, _ := f.post(t, "/api/chats/friend/media", map[string]string{"kind": "audio"}, [][]byte{pngBytes(t, 1, 1)})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendAllUploadsFailedReturnsBadGateway(t *testing.T) {
	f := newMediaFixture(t)
	f.store.fail = true

	rec, resp := f.post(t, "/api/groups/g1/media", map[string]string{"kind": "image"}, [][]byte{pngBytes(t, 1, 1)})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 1, resp.Details.Failed)
	assert.Equal(t, "uploadFailed", resp.Details.Failures[0].Kind)
}

func TestShareToContactsSplitsReceivers(t *testing.T) {
	f := newMediaFixture(t)

	rec, resp := f.post(t, "/api/share",
		map[string]string{"kind": "image", "receiver_uids": "a, b,,a"},
		[][]byte{pngBytes(t, 1, 1)})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a", "b"}, resp.Data.Receivers)
	assert.Len(t, resp.Data.Messages, 2)
	assert.Len(t, f.store.puts, 1)
}

func TestShareToContactsRequiresReceivers(t *testing.T) {
	f := newMediaFixture(t)

	rec, _ := f.post(t, "/api/share", map[string]string{"kind": "image"}, [][]byte{pngBytes(t, 1, 1)})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSplitFormList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitFormList([]string{"a, b", " c "}))
	assert.Nil(t, splitFormList(nil))
}
