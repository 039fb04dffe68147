package repository

import (
	"EnclosureAPI/internal/constant"
	"EnclosureAPI/internal/model"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const pendingMessagesSchema = `
CREATE TABLE IF NOT EXISTS pending_messages (
	model_id        TEXT NOT NULL,
	receiver_uid    TEXT NOT NULL,
	sender_uid      TEXT NOT NULL,
	conversation    TEXT NOT NULL,
	data_type       TEXT NOT NULL,
	document        TEXT NOT NULL DEFAULT '',
	caption         TEXT NOT NULL DEFAULT '',
	selection_bunch JSONB NOT NULL DEFAULT '[]',
	payload         JSONB NOT NULL,
	upload_status   SMALLINT NOT NULL DEFAULT 0,
	attempts        INT NOT NULL DEFAULT 0,
	f_token         TEXT NOT NULL DEFAULT '',
	sent_at         DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (model_id, receiver_uid)
);
ALTER TABLE pending_messages ADD COLUMN IF NOT EXISTS f_token TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS idx_pending_messages_receiver ON pending_messages (receiver_uid, upload_status, sent_at);
CREATE INDEX IF NOT EXISTS idx_pending_messages_sender ON pending_messages (sender_uid, receiver_uid);
CREATE INDEX IF NOT EXISTS idx_pending_messages_updated ON pending_messages (updated_at) WHERE upload_status IN (0, 1);
`

// PendingMessageRepository is the Postgres backed pending message cache.
type PendingMessageRepository struct {
	db *sql.DB
}

func NewPendingMessageRepository(db *sql.DB) *PendingMessageRepository {
	return &PendingMessageRepository{db: db}
}

func (r *PendingMessageRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, pendingMessagesSchema); err != nil {
		return fmt.Errorf("pendingRepo.Migrate: %w", err)
	}
	return nil
}

// Insert upserts on (model_id, receiver_uid); a re-send resets the attempt
// count. fToken is kept beside the payload for redelivery.
func (r *PendingMessageRepository) Insert(ctx context.Context, msg *model.ChatMessage, fToken string) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("pendingRepo.Insert: encode payload: %w", err)
	}

	bunch := msg.SelectionBunch
	if bunch == nil {
		bunch = []model.SelectionBunchModel{}
	}
	bunchJSON, err := json.Marshal(bunch)
	if err != nil {
		return fmt.Errorf("pendingRepo.Insert: encode selection bunch: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO pending_messages (model_id, receiver_uid, sender_uid, conversation, data_type, document, caption, selection_bunch, payload, upload_status, attempts, f_token, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12)
		 ON CONFLICT (model_id, receiver_uid) DO UPDATE SET
		   sender_uid = EXCLUDED.sender_uid,
		   conversation = EXCLUDED.conversation,
		   data_type = EXCLUDED.data_type,
		   document = EXCLUDED.document,
		   caption = EXCLUDED.caption,
		   selection_bunch = EXCLUDED.selection_bunch,
		   payload = EXCLUDED.payload,
		   upload_status = EXCLUDED.upload_status,
		   attempts = 0,
		   f_token = EXCLUDED.f_token,
		   sent_at = EXCLUDED.sent_at,
		   updated_at = now()`,
		msg.ID, msg.ReceiverID, msg.UID, string(msg.Conversation), msg.DataType, msg.Document, msg.Caption,
		string(bunchJSON), string(payload), msg.UploadStatus, fToken, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("pendingRepo.Insert: %w", err)
	}
	return nil
}

// Remove deletes one row, only when senderUID owns it.
func (r *PendingMessageRepository) Remove(ctx context.Context, senderUID, modelID, receiverUID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_messages WHERE model_id = $1 AND receiver_uid = $2 AND sender_uid = $3`,
		modelID, receiverUID, senderUID)
	if err != nil {
		return false, fmt.Errorf("pendingRepo.Remove: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pendingRepo.Remove: %w", err)
	}
	return n > 0, nil
}

// RemoveMany deletes the given model ids senderUID queued for one receiver.
func (r *PendingMessageRepository) RemoveMany(ctx context.Context, senderUID, receiverUID string, modelIDs []string) (int64, error) {
	if len(modelIDs) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_messages WHERE sender_uid = $1 AND receiver_uid = $2 AND model_id = ANY($3)`,
		senderUID, receiverUID, pq.Array(modelIDs))
	if err != nil {
		return 0, fmt.Errorf("pendingRepo.RemoveMany: %w", err)
	}
	return res.RowsAffected()
}

// ListByReceiver returns the pending and in-flight messages senderUID queued
// for receiverUID, oldest first.
func (r *PendingMessageRepository) ListByReceiver(ctx context.Context, senderUID, receiverUID string) ([]model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload, upload_status, attempts, f_token, created_at, updated_at
		 FROM pending_messages
		 WHERE sender_uid = $1 AND receiver_uid = $2 AND upload_status = ANY($3)
		 ORDER BY sent_at ASC`,
		senderUID, receiverUID, pq.Array([]int64{constant.UploadStatusPending, constant.UploadStatusSending}))
	if err != nil {
		return nil, fmt.Errorf("pendingRepo.ListByReceiver: %w", err)
	}
	defer rows.Close()

	pending, err := scanPending(rows)
	if err != nil {
		return nil, fmt.Errorf("pendingRepo.ListByReceiver: %w", err)
	}

	messages := make([]model.ChatMessage, 0, len(pending))
	for _, p := range pending {
		messages = append(messages, p.Message)
	}
	return messages, nil
}

// ListStale returns pending rows untouched since pendingBefore and sending
// rows whose lease expired at sendingBefore.
func (r *PendingMessageRepository) ListStale(ctx context.Context, pendingBefore, sendingBefore time.Time, limit int) ([]model.PendingMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload, upload_status, attempts, f_token, created_at, updated_at
		 FROM pending_messages
		 WHERE (upload_status = $1 AND updated_at < $2)
		    OR (upload_status = $3 AND updated_at < $4)
		 ORDER BY updated_at ASC
		 LIMIT $5`,
		constant.UploadStatusPending, pendingBefore, constant.UploadStatusSending, sendingBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("pendingRepo.ListStale: %w", err)
	}
	defer rows.Close()

	pending, err := scanPending(rows)
	if err != nil {
		return nil, fmt.Errorf("pendingRepo.ListStale: %w", err)
	}
	return pending, nil
}

func (r *PendingMessageRepository) MarkStatus(ctx context.Context, modelID, receiverUID string, status int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pending_messages SET upload_status = $3, updated_at = now()
		 WHERE model_id = $1 AND receiver_uid = $2`, modelID, receiverUID, status)
	if err != nil {
		return fmt.Errorf("pendingRepo.MarkStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PendingMessageRepository) RecordAttempt(ctx context.Context, modelID, receiverUID string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE pending_messages SET attempts = attempts + 1, updated_at = now()
		 WHERE model_id = $1 AND receiver_uid = $2
		 RETURNING attempts`, modelID, receiverUID).Scan(&attempts)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("pendingRepo.RecordAttempt: %w", err)
	}
	return attempts, nil
}

func scanPending(rows *sql.Rows) ([]model.PendingMessage, error) {
	var out []model.PendingMessage
	for rows.Next() {
		var (
			payload []byte
			status  int
			p       model.PendingMessage
		)
		if err := rows.Scan(&payload, &status, &p.Attempts, &p.FToken, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &p.Message); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		p.Message.UploadStatus = status
		out = append(out, p)
	}
	return out, rows.Err()
}
