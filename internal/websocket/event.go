package websocket

import "time"

type EventType string

const (
	EventBatchState     EventType = "batch.state"
	EventBatchDismissed EventType = "batch.dismissed"
	EventToast          EventType = "toast"

	EventMessageSent   EventType = "message.sent"
	EventMessageFailed EventType = "message.failed"

	EventDownloadProgress EventType = "download.progress"
)

type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
	Meta    *EventMeta  `json:"meta,omitempty"`
}

type EventMeta struct {
	Timestamp int64  `json:"timestamp"`
	BatchID   string `json:"batch_id,omitempty"`
	SenderUID string `json:"sender_uid,omitempty"`
}

type BatchStatePayload struct {
	BatchID string `json:"batch_id"`
	State   string `json:"state"`
}

type ToastPayload struct {
	Message string `json:"message"`
}

type MessageStatusPayload struct {
	ModelID     string `json:"model_id"`
	ReceiverUID string `json:"receiver_uid"`
	DataType    string `json:"data_type"`
	Error       string `json:"error,omitempty"`
}

type DownloadProgressPayload struct {
	FileName string `json:"file_name"`
	Percent  int    `json:"percent"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType EventType, payload interface{}, batchID, senderUID string) Event {
	return Event{
		Type:    eventType,
		Payload: payload,
		Meta: &EventMeta{
			Timestamp: time.Now().UnixMilli(),
			BatchID:   batchID,
			SenderUID: senderUID,
		},
	}
}
