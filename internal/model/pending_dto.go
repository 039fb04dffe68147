package model

import "time"

// PendingMessage is a cached outgoing message that has not been confirmed by
// the delivery service yet.
type PendingMessage struct {
	Message   ChatMessage `json:"message"`
	Attempts  int         `json:"attempts"`
	FToken    string      `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type PendingAckRequest struct {
	ModelIDs []string `json:"model_ids" validate:"required,min=1,dive,required"`
}

type PendingAckResponse struct {
	Removed int64 `json:"removed"`
}
