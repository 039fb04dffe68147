package service

import (
	"EnclosureAPI/internal/localcache"
	"EnclosureAPI/internal/model"
	"EnclosureAPI/internal/websocket"
	"context"
	"io"
	"time"
)

// ContentStore is the remote object store media is uploaded to.
type ContentStore interface {
	Put(ctx context.Context, path, contentType string, body io.Reader) error
	ResolveURL(ctx context.Context, path string) (string, error)
}

type AssetExporter interface {
	Export(ctx context.Context, asset Asset) (ExportedAsset, error)
}

// ThumbnailGenerator renders a JPEG preview frame from video bytes.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, video []byte) ([]byte, error)
}

type MediaCache interface {
	SaveIfAbsent(kind localcache.Kind, fileName string, data []byte) (bool, error)
	Path(kind localcache.Kind, fileName string) (string, error)
}

type DeliveryPort interface {
	Deliver(ctx context.Context, msg *model.ChatMessage, localFilePath, fToken string) error
}

type PendingStore interface {
	Insert(ctx context.Context, msg *model.ChatMessage, fToken string) error
	Remove(ctx context.Context, senderUID, modelID, receiverUID string) (bool, error)
	RemoveMany(ctx context.Context, senderUID, receiverUID string, modelIDs []string) (int64, error)
	ListByReceiver(ctx context.Context, senderUID, receiverUID string) ([]model.ChatMessage, error)
	ListStale(ctx context.Context, pendingBefore, sendingBefore time.Time, limit int) ([]model.PendingMessage, error)
	MarkStatus(ctx context.Context, modelID, receiverUID string, status int) error
	RecordAttempt(ctx context.Context, modelID, receiverUID string) (int, error)
}

type Notifier interface {
	BroadcastToUser(uid string, event websocket.Event)
}

type ContactDirectory interface {
	GetActiveContacts(ctx context.Context, uid string) ([]model.UserActiveContactModel, error)
}

type GroupDirectory interface {
	GetGroupDetails(ctx context.Context, groupID, viewerUID string) (*model.GroupModel, error)
}
