package service

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/constant"
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/model"
	"EnclosureAPI/internal/websocket"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SendOptions struct {
	// Bunch sends an image batch as one message carrying every URL.
	Bunch bool
	// ReceiverTokens maps receiver uid to its push token.
	ReceiverTokens map[string]string
}

type MediaSendService struct {
	cfg      *config.AppConfig
	uploader *BatchUploader
	pending  PendingStore
	delivery DeliveryPort
	notifier Notifier
	contacts ContactDirectory

	newID func() string
	now   func() time.Time
	wg    sync.WaitGroup
}

// NewMediaSendService accepts a nil contacts directory; deliveries then only
// carry the push tokens passed in SendOptions.
func NewMediaSendService(cfg *config.AppConfig, uploader *BatchUploader, pending PendingStore, delivery DeliveryPort, notifier Notifier, contacts ContactDirectory) *MediaSendService {
	return &MediaSendService{
		cfg:      cfg,
		uploader: uploader,
		pending:  pending,
		delivery: delivery,
		notifier: notifier,
		contacts: contacts,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

type sendTarget struct {
	conversation    constant.ConversationKind
	conversationKey string
	receivers       []string
}

func (s *MediaSendService) SendToContact(ctx context.Context, sender *model.UserDTO, contactUID string, kind constant.MediaKind, caption string, assets []Asset, opts SendOptions) (*model.BatchReportDTO, error) {
	contactUID = strings.TrimSpace(contactUID)
	if contactUID == "" {
		return nil, helper.NewBadRequestError("contact uid is required")
	}

	return s.send(ctx, sender, sendTarget{
		conversation:    constant.ConversationContact,
		conversationKey: helper.ChatRoomKey(sender.UID, contactUID),
		receivers:       []string{contactUID},
	}, kind, caption, assets, opts)
}

func (s *MediaSendService) SendToGroup(ctx context.Context, sender *model.UserDTO, groupID string, kind constant.MediaKind, caption string, assets []Asset, opts SendOptions) (*model.BatchReportDTO, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, helper.NewBadRequestError("group id is required")
	}

	return s.send(ctx, sender, sendTarget{
		conversation:    constant.ConversationGroup,
		conversationKey: groupID,
		receivers:       []string{groupID},
	}, kind, caption, assets, opts)
}

// ShareToContacts uploads the batch once, stored under the first recipient's
// room, and delivers the same URLs to every recipient.
func (s *MediaSendService) ShareToContacts(ctx context.Context, sender *model.UserDTO, contactUIDs []string, kind constant.MediaKind, caption string, assets []Asset, opts SendOptions) (*model.BatchReportDTO, error) {
	receivers := make([]string, 0, len(contactUIDs))
	seen := make(map[string]bool, len(contactUIDs))
	for _, uid := range contactUIDs {
		uid = strings.TrimSpace(uid)
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		receivers = append(receivers, uid)
	}
	if len(receivers) == 0 {
		return nil, helper.NewBadRequestError("at least one receiver is required")
	}

	return s.send(ctx, sender, sendTarget{
		conversation:    constant.ConversationContact,
		conversationKey: helper.ChatRoomKey(sender.UID, receivers[0]),
		receivers:       receivers,
	}, kind, caption, assets, opts)
}

// Wait blocks until every in-flight delivery handoff has finished.
func (s *MediaSendService) Wait() {
	s.wg.Wait()
}

func (s *MediaSendService) validate(sender *model.UserDTO, kind constant.MediaKind, assets []Asset) error {
	if sender == nil || sender.UID == "" {
		return helper.NewUnauthorizedError("")
	}
	if kind != constant.MediaKindImage && kind != constant.MediaKindVideo {
		return helper.NewBadRequestError("kind must be image or video")
	}
	if len(assets) == 0 {
		return helper.NewBadRequestError("at least one file is required")
	}
	if s.cfg.UploadMaxAssets > 0 && len(assets) > s.cfg.UploadMaxAssets {
		return helper.NewBadRequestError(fmt.Sprintf("at most %d files can be sent at once", s.cfg.UploadMaxAssets))
	}
	return nil
}

func (s *MediaSendService) send(ctx context.Context, sender *model.UserDTO, target sendTarget, kind constant.MediaKind, caption string, assets []Asset, opts SendOptions) (*model.BatchReportDTO, error) {
	if err := s.validate(sender, kind, assets); err != nil {
		return nil, err
	}

	selection := make([]Asset, len(assets))
	for i, a := range assets {
		a.Index = i
		a.Kind = kind
		selection[i] = a
	}

	batchID := s.newID()
	session := NewSendSession(batchID, sender.UID, s.notifier)
	if err := session.Preview(selection); err != nil {
		return nil, err
	}
	if err := session.Begin(); err != nil {
		return nil, err
	}

	ctx = helper.WithBatchID(ctx, batchID)
	outcome := s.uploader.Upload(ctx, UploadTarget{
		Conversation:    target.conversation,
		ConversationKey: target.conversationKey,
		BatchModelID:    batchID,
	}, session.Selection())

	session.Dismiss()

	successes := outcome.Successes()
	report := &model.BatchReportDTO{
		BatchID:      batchID,
		Conversation: target.conversation,
		Receivers:    target.receivers,
		Uploaded:     len(successes),
		Messages:     []model.ChatMessage{},
	}
	for _, f := range outcome.Failures() {
		report.Failures = append(report.Failures, model.AssetFailureDTO{
			Index:   f.Index,
			LocalID: f.LocalID,
			Kind:    ErrorKind(f.Err),
			Reason:  f.Err.Error(),
		})
	}
	report.Failed = len(report.Failures)

	if len(successes) == 0 {
		s.toast(sender.UID, batchID, uploadFailedMessage(kind))
		_ = session.Fail()
		report.State = string(session.State())
		slog.Warn("Every asset in batch failed to upload", "batch_id", batchID, "count", len(assets))
		return report, ErrAllUploadsFailed
	}

	tokens := s.receiverTokens(ctx, sender, target, opts.ReceiverTokens)

	now := s.now()
	for _, receiver := range target.receivers {
		var messages []model.ChatMessage
		if opts.Bunch && kind == constant.MediaKindImage {
			messages = []model.ChatMessage{s.buildBunchMessage(sender, target.conversation, receiver, caption, successes, now)}
		} else {
			messages = s.buildMessages(sender, target.conversation, receiver, kind, caption, successes, now)
		}

		for i := range messages {
			msg := messages[i]
			// Stored as sending so redelivery leaves it alone while deliverAsync runs.
			row := msg
			row.UploadStatus = constant.UploadStatusSending
			if err := s.pending.Insert(ctx, &row, tokens[receiver]); err != nil {
				slog.Error("Failed to cache pending message", "error", err, "model_id", msg.ID, "receiver", msg.ReceiverID)
			}
			s.deliverAsync(ctx, sender, msg, localPathFor(msg, successes), tokens[receiver], kind)
			report.Messages = append(report.Messages, msg)
		}
	}

	_ = session.Complete()
	report.State = string(session.State())
	return report, nil
}

// receiverTokens fills in push tokens missing from explicit. Group deliveries
// fan out server side and carry the sender's own token.
func (s *MediaSendService) receiverTokens(ctx context.Context, sender *model.UserDTO, target sendTarget, explicit map[string]string) map[string]string {
	tokens := make(map[string]string, len(target.receivers))
	for k, v := range explicit {
		tokens[k] = v
	}

	if target.conversation == constant.ConversationGroup {
		for _, r := range target.receivers {
			if tokens[r] == "" {
				tokens[r] = sender.FCMToken
			}
		}
		return tokens
	}

	missing := false
	for _, r := range target.receivers {
		if tokens[r] == "" {
			missing = true
			break
		}
	}
	if !missing || s.contacts == nil {
		return tokens
	}

	contacts, err := s.contacts.GetActiveContacts(ctx, sender.UID)
	if err != nil {
		slog.Warn("Failed to resolve receiver push tokens", "error", err, "uid", sender.UID)
		return tokens
	}
	for _, c := range contacts {
		if tokens[c.UID] == "" {
			tokens[c.UID] = c.FToken
		}
	}
	return tokens
}

func (s *MediaSendService) baseMessage(sender *model.UserDTO, conversation constant.ConversationKind, receiver string, now time.Time) model.ChatMessage {
	msg := model.ChatMessage{
		UID:          sender.UID,
		ReceiverID:   receiver,
		Time:         helper.SentTime(now),
		UserName:     sender.FullName,
		MicPhoto:     sender.Photo,
		Notification: 1,
		CurrentDate:  helper.CurrentDate(now),
		Timestamp:    helper.UnixSeconds(now),
		UploadStatus: constant.UploadStatusPending,
		Conversation: conversation,
	}
	if conversation == constant.ConversationGroup {
		msg.CreatedBy = sender.UID
	}
	return msg
}

// buildMessages emits one message per uploaded asset. Only the first asset by
// original index carries the caption.
func (s *MediaSendService) buildMessages(sender *model.UserDTO, conversation constant.ConversationKind, receiver string, kind constant.MediaKind, caption string, successes []UploadedAsset, now time.Time) []model.ChatMessage {
	messages := make([]model.ChatMessage, 0, len(successes))
	for pos, up := range successes {
		msg := s.baseMessage(sender, conversation, receiver, now)
		msg.ID = up.ModelID
		msg.Document = up.URL
		msg.FileName = up.FileName
		msg.Thumbnail = up.ThumbnailURL
		msg.FileNameThumbnail = up.ThumbnailFileName
		msg.ImageWidth = strconv.Itoa(up.Width)
		msg.ImageHeight = strconv.Itoa(up.Height)
		msg.AspectRatio = helper.AspectRatio(up.Width, up.Height)
		msg.SelectionCount = "1"
		msg.BatchPosition = pos

		if kind == constant.MediaKindVideo {
			msg.DataType = constant.DataTypeVideo
			msg.FileExtension = constant.ExtensionMP4
		} else {
			msg.DataType = constant.DataTypeImage
			msg.FileExtension = constant.ExtensionJPG
		}

		if pos == 0 {
			msg.Caption = caption
		}
		messages = append(messages, msg)
	}
	return messages
}

func (s *MediaSendService) buildBunchMessage(sender *model.UserDTO, conversation constant.ConversationKind, receiver, caption string, successes []UploadedAsset, now time.Time) model.ChatMessage {
	first := successes[0]

	msg := s.baseMessage(sender, conversation, receiver, now)
	msg.ID = first.ModelID
	msg.DataType = constant.DataTypeImage
	msg.FileExtension = constant.ExtensionJPG
	msg.Document = first.URL
	msg.FileName = first.FileName
	msg.ImageWidth = strconv.Itoa(first.Width)
	msg.ImageHeight = strconv.Itoa(first.Height)
	msg.AspectRatio = helper.AspectRatio(first.Width, first.Height)
	msg.Caption = caption
	msg.SelectionCount = strconv.Itoa(len(successes))

	for _, up := range successes {
		msg.SelectionBunch = append(msg.SelectionBunch, model.SelectionBunchModel{ImgURL: up.URL, FileName: up.FileName})
	}
	return msg
}

func (s *MediaSendService) deliverAsync(ctx context.Context, sender *model.UserDTO, msg model.ChatMessage, localPath, fToken string, kind constant.MediaKind) {
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.delivery.Deliver(ctx, &msg, localPath, fToken); err != nil {
			slog.Error("Failed to deliver message", "error", err, "model_id", msg.ID, "receiver", msg.ReceiverID)
			if err := s.pending.MarkStatus(ctx, msg.ID, msg.ReceiverID, constant.UploadStatusPending); err != nil {
				slog.Error("Failed to release pending message", "error", err, "model_id", msg.ID)
			}
			s.notify(sender.UID, websocket.NewEvent(websocket.EventMessageFailed, websocket.MessageStatusPayload{
				ModelID:     msg.ID,
				ReceiverUID: msg.ReceiverID,
				DataType:    msg.DataType,
				Error:       err.Error(),
			}, helper.BatchIDFromContext(ctx), sender.UID))
			s.toast(sender.UID, helper.BatchIDFromContext(ctx), deliveryFailedMessage(kind))
			return
		}

		if _, err := s.pending.Remove(ctx, msg.UID, msg.ID, msg.ReceiverID); err != nil {
			slog.Error("Failed to remove delivered pending message", "error", err, "model_id", msg.ID)
		}

		s.notify(sender.UID, websocket.NewEvent(websocket.EventMessageSent, websocket.MessageStatusPayload{
			ModelID:     msg.ID,
			ReceiverUID: msg.ReceiverID,
			DataType:    msg.DataType,
		}, helper.BatchIDFromContext(ctx), sender.UID))
	}()
}

func (s *MediaSendService) toast(uid, batchID, message string) {
	s.notify(uid, websocket.NewEvent(websocket.EventToast, websocket.ToastPayload{Message: message}, batchID, uid))
}

func (s *MediaSendService) notify(uid string, event websocket.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToUser(uid, event)
}

func localPathFor(msg model.ChatMessage, successes []UploadedAsset) string {
	for _, up := range successes {
		if up.ModelID == msg.ID {
			return up.LocalPath
		}
	}
	return ""
}

func uploadFailedMessage(kind constant.MediaKind) string {
	if kind == constant.MediaKindVideo {
		return constant.MsgUnableToUploadVideos
	}
	return constant.MsgUnableToUploadImages
}

func deliveryFailedMessage(kind constant.MediaKind) string {
	if kind == constant.MediaKindVideo {
		return constant.MsgFailedToSendVideos
	}
	return constant.MsgFailedToSendImages
}
