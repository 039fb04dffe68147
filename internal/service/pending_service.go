package service

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/constant"
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/model"
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	redeliveryBatchSize = 100
	defaultSendingLease = 30 * time.Minute
)

type PendingService struct {
	cfg      *config.AppConfig
	store    PendingStore
	delivery DeliveryPort
}

func NewPendingService(cfg *config.AppConfig, store PendingStore, delivery DeliveryPort) *PendingService {
	return &PendingService{
		cfg:      cfg,
		store:    store,
		delivery: delivery,
	}
}

// ListByReceiver returns what senderUID still has queued for receiverUID.
func (s *PendingService) ListByReceiver(ctx context.Context, senderUID, receiverUID string) ([]model.ChatMessage, error) {
	if senderUID == "" {
		return nil, helper.NewUnauthorizedError("")
	}
	receiverUID = strings.TrimSpace(receiverUID)
	if receiverUID == "" {
		return nil, helper.NewBadRequestError("receiver uid is required")
	}

	messages, err := s.store.ListByReceiver(ctx, senderUID, receiverUID)
	if err != nil {
		slog.Error("Failed to list pending messages", "error", err, "receiver", receiverUID)
		return nil, helper.NewInternalServerError("")
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return messages, nil
}

// Remove answers 404 for rows senderUID does not own.
func (s *PendingService) Remove(ctx context.Context, senderUID, receiverUID, modelID string) error {
	if senderUID == "" {
		return helper.NewUnauthorizedError("")
	}

	removed, err := s.store.Remove(ctx, senderUID, modelID, receiverUID)
	if err != nil {
		slog.Error("Failed to remove pending message", "error", err, "model_id", modelID, "receiver", receiverUID)
		return helper.NewInternalServerError("")
	}
	if !removed {
		return helper.NewNotFoundError("pending message not found")
	}
	return nil
}

// Acknowledge drops every listed message senderUID queued for receiverUID.
func (s *PendingService) Acknowledge(ctx context.Context, senderUID, receiverUID string, modelIDs []string) (int64, error) {
	if senderUID == "" {
		return 0, helper.NewUnauthorizedError("")
	}
	if strings.TrimSpace(receiverUID) == "" || len(modelIDs) == 0 {
		return 0, helper.NewBadRequestError("receiver uid and model ids are required")
	}

	n, err := s.store.RemoveMany(ctx, senderUID, receiverUID, modelIDs)
	if err != nil {
		slog.Error("Failed to acknowledge pending messages", "error", err, "receiver", receiverUID)
		return 0, helper.NewInternalServerError("")
	}
	return n, nil
}

// Redeliver hands messages pending longer than olderThan back to delivery.
// Rows marked sending are only picked up once their lease has expired. A
// message that keeps failing is abandoned after the configured attempts.
func (s *PendingService) Redeliver(ctx context.Context, olderThan time.Duration) (delivered int, abandoned int, err error) {
	now := time.Now()
	stale, err := s.store.ListStale(ctx, now.Add(-olderThan), now.Add(-s.sendingLease(olderThan)), redeliveryBatchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, p := range stale {
		if ctx.Err() != nil {
			return delivered, abandoned, ctx.Err()
		}

		msg := p.Message
		if err := s.store.MarkStatus(ctx, msg.ID, msg.ReceiverID, constant.UploadStatusSending); err != nil {
			slog.Error("Failed to mark pending message as sending", "error", err, "model_id", msg.ID)
			continue
		}

		deliverErr := s.delivery.Deliver(ctx, &msg, "", p.FToken)
		if deliverErr == nil {
			if _, err := s.store.Remove(ctx, msg.UID, msg.ID, msg.ReceiverID); err != nil {
				slog.Error("Failed to remove redelivered message", "error", err, "model_id", msg.ID)
			}
			delivered++
			continue
		}
		slog.Warn("Redelivery failed", "error", deliverErr, "model_id", msg.ID, "receiver", msg.ReceiverID)

		attempts, err := s.store.RecordAttempt(ctx, msg.ID, msg.ReceiverID)
		if err != nil {
			slog.Error("Failed to record delivery attempt", "error", err, "model_id", msg.ID)
			continue
		}

		status := constant.UploadStatusPending
		if s.cfg.PendingRedeliveryMaxAttempts > 0 && attempts >= s.cfg.PendingRedeliveryMaxAttempts {
			status = constant.UploadStatusAbandoned
			abandoned++
		}
		if err := s.store.MarkStatus(ctx, msg.ID, msg.ReceiverID, status); err != nil {
			slog.Error("Failed to update pending message status", "error", err, "model_id", msg.ID)
		}
	}

	return delivered, abandoned, nil
}

func (s *PendingService) sendingLease(olderThan time.Duration) time.Duration {
	lease := s.cfg.PendingSendingLease
	if lease <= 0 {
		lease = defaultSendingLease
	}
	if lease < olderThan {
		lease = olderThan
	}
	return lease
}
