package service

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/constant"
	"EnclosureAPI/internal/localcache"
	"EnclosureAPI/internal/model"
	"EnclosureAPI/internal/websocket"
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		ChatRoot:                     "CHAT",
		GroupChatRoot:                "GROUPCHAT",
		UploadMaxAssets:              30,
		JPEGQuality:                  85,
		PendingRedeliveryMaxAttempts: 3,
	}
}

// passthroughExporter returns the asset as-is after an optional per-index delay.
type passthroughExporter struct {
	delays map[int]time.Duration
	errs   map[int]error
}

func (e *passthroughExporter) Export(ctx context.Context, a Asset) (ExportedAsset, error) {
	if d := e.delays[a.Index]; d > 0 {
		time.Sleep(d)
	}
	if err := e.errs[a.Index]; err != nil {
		return ExportedAsset{}, err
	}
	thumb := a.Thumbnail
	if thumb == nil {
		thumb = []byte("thumb")
	}
	return ExportedAsset{
		Data:        a.Data,
		ContentType: "application/octet-stream",
		Width:       a.Width,
		Height:      a.Height,
		Thumbnail:   thumb,
	}, nil
}

type fakeStore struct {
	mu       sync.Mutex
	puts     []string
	failPut  map[string]error
	emptyURL map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{failPut: map[string]error{}, emptyURL: map[string]bool{}}
}

func (s *fakeStore) Put(ctx context.Context, path, contentType string, body io.Reader) error {
	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failPut[path]; err != nil {
		return err
	}
	s.puts = append(s.puts, path)
	return nil
}

func (s *fakeStore) ResolveURL(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emptyURL[path] {
		return "", nil
	}
	return "https://cdn.test/" + path, nil
}

func (s *fakeStore) Puts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.puts...)
}

type fakeCache struct {
	mu    sync.Mutex
	saved map[string]int
}

func newFakeCache() *fakeCache {
	return &fakeCache{saved: map[string]int{}}
}

func (c *fakeCache) SaveIfAbsent(kind localcache.Kind, fileName string, data []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := string(kind) + "/" + fileName
	c.saved[key]++
	return c.saved[key] == 1, nil
}

func (c *fakeCache) Path(kind localcache.Kind, fileName string) (string, error) {
	return "/cache/" + string(kind) + "/" + fileName, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (n *fakeNotifier) BroadcastToUser(uid string, event websocket.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) OfType(t websocket.EventType) []websocket.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []websocket.Event
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (n *fakeNotifier) Types() []websocket.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]websocket.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type pendingKey struct{ modelID, receiver string }

type fakePending struct {
	mu       sync.Mutex
	rows     map[pendingKey]*model.PendingMessage
	inserted int
}

func newFakePending() *fakePending {
	return &fakePending{rows: map[pendingKey]*model.PendingMessage{}}
}

func (p *fakePending) Insert(ctx context.Context, msg *model.ChatMessage, fToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inserted++
	p.rows[pendingKey{msg.ID, msg.ReceiverID}] = &model.PendingMessage{Message: *msg, FToken: fToken, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	return nil
}

func (p *fakePending) Remove(ctx context.Context, senderUID, modelID, receiverUID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := pendingKey{modelID, receiverUID}
	row, ok := p.rows[k]
	if !ok || row.Message.UID != senderUID {
		return false, nil
	}
	delete(p.rows, k)
	return true, nil
}

func (p *fakePending) RemoveMany(ctx context.Context, senderUID, receiverUID string, modelIDs []string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int64
	for _, id := range modelIDs {
		k := pendingKey{id, receiverUID}
		if row, ok := p.rows[k]; ok && row.Message.UID == senderUID {
			delete(p.rows, k)
			n++
		}
	}
	return n, nil
}

func (p *fakePending) ListByReceiver(ctx context.Context, senderUID, receiverUID string) ([]model.ChatMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.ChatMessage
	for k, row := range p.rows {
		if k.receiver == receiverUID && row.Message.UID == senderUID && row.Message.UploadStatus != constant.UploadStatusAbandoned {
			out = append(out, row.Message)
		}
	}
	return out, nil
}

func (p *fakePending) ListStale(ctx context.Context, pendingBefore, sendingBefore time.Time, limit int) ([]model.PendingMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.PendingMessage
	for _, row := range p.rows {
		switch row.Message.UploadStatus {
		case constant.UploadStatusPending:
			if row.UpdatedAt.Before(pendingBefore) {
				out = append(out, *row)
			}
		case constant.UploadStatusSending:
			if row.UpdatedAt.Before(sendingBefore) {
				out = append(out, *row)
			}
		}
	}
	return out, nil
}

func (p *fakePending) MarkStatus(ctx context.Context, modelID, receiverUID string, status int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	row, ok := p.rows[pendingKey{modelID, receiverUID}]
	if !ok {
		return errors.New("not found")
	}
	row.Message.UploadStatus = status
	return nil
}

func (p *fakePending) RecordAttempt(ctx context.Context, modelID, receiverUID string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	row, ok := p.rows[pendingKey{modelID, receiverUID}]
	if !ok {
		return 0, errors.New("not found")
	}
	row.Attempts++
	return row.Attempts, nil
}

func (p *fakePending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rows)
}

func (p *fakePending) Status(modelID, receiverUID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rows[pendingKey{modelID, receiverUID}].Message.UploadStatus
}

type fakeDelivery struct {
	mu        sync.Mutex
	err       error
	delivered []model.ChatMessage
	paths     []string
	tokens    []string
}

func (d *fakeDelivery) Deliver(ctx context.Context, msg *model.ChatMessage, localFilePath, fToken string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, *msg)
	d.paths = append(d.paths, localFilePath)
	d.tokens = append(d.tokens, fToken)
	return d.err
}

func (d *fakeDelivery) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}
