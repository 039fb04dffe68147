package service

import (
	"EnclosureAPI/internal/constant"
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/model"
	"EnclosureAPI/internal/websocket"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sendFixture struct {
	svc      *MediaSendService
	exporter *passthroughExporter
	store    *fakeStore
	pending  *fakePending
	delivery *fakeDelivery
	notifier *fakeNotifier
	contacts *fakeContacts
}

type fakeContacts struct {
	contacts []model.UserActiveContactModel
	calls    int
}

func (c *fakeContacts) GetActiveContacts(ctx context.Context, uid string) ([]model.UserActiveContactModel, error) {
	c.calls++
	return c.contacts, nil
}

func newSendFixture() *sendFixture {
	f := &sendFixture{
		exporter: &passthroughExporter{},
		store:    newFakeStore(),
		pending:  newFakePending(),
		delivery: &fakeDelivery{},
		notifier: &fakeNotifier{},
		contacts: &fakeContacts{},
	}
	cfg := testConfig()
	uploader := newTestUploader(f.exporter, f.store, newFakeCache())
	f.svc = NewMediaSendService(cfg, uploader, f.pending, f.delivery, f.notifier, f.contacts)
	f.svc.newID = func() string { return "batch" }
	f.svc.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC) }
	return f
}

var testSender = &model.UserDTO{UID: "me", FullName: "Me", Photo: "https://cdn.test/me.jpg", FCMToken: "tok"}

func TestSendCaptionOnlyOnFirstSuccess(t *testing.T) {
	f := newSendFixture()
	f.exporter.errs = map[int]error{0: ErrDataUnavailable}

	report, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "hello", imageAssets(3), SendOptions{})
	f.svc.Wait()

	require.NoError(t, err)
	require.Len(t, report.Messages, 2)
	assert.Equal(t, "hello", report.Messages[0].Caption)
	assert.Equal(t, "batch_1", report.Messages[0].ID)
	assert.Empty(t, report.Messages[1].Caption)
	assert.Equal(t, 0, report.Messages[0].BatchPosition)
	assert.Equal(t, 1, report.Messages[1].BatchPosition)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, 0, report.Failures[0].Index)
	assert.Equal(t, "dataUnavailable", report.Failures[0].Kind)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Uploaded)
}

func TestSendAllFailedEmitsSingleToast(t *testing.T) {
	f := newSendFixture()
	f.exporter.errs = map[int]error{0: ErrDataUnavailable, 1: ErrDataUnavailable}

	report, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindVideo, "hi", imageAssets(2), SendOptions{})
	f.svc.Wait()

	assert.ErrorIs(t, err, ErrAllUploadsFailed)
	require.NotNil(t, report)
	assert.Empty(t, report.Messages)
	assert.Equal(t, string(StateFailed), report.State)
	assert.Equal(t, 0, f.pending.inserted)
	assert.Equal(t, 0, f.delivery.Count())

	toasts := f.notifier.OfType(websocket.EventToast)
	require.Len(t, toasts, 1)
	assert.Equal(t, constant.MsgUnableToUploadVideos, toasts[0].Payload.(websocket.ToastPayload).Message)
	assert.Len(t, f.notifier.OfType(websocket.EventBatchDismissed), 1)
}

func TestSendAspectRatios(t *testing.T) {
	f := newSendFixture()
	assets := imageAssets(3)
	widths := []int{50, 100, 100}
	heights := []int{0, 100, 200}
	for i := range assets {
		assets[i].Width = widths[i]
		assets[i].Height = heights[i]
	}

	report, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "", assets, SendOptions{})
	f.svc.Wait()

	require.NoError(t, err)
	require.Len(t, report.Messages, 3)
	got := []string{report.Messages[0].AspectRatio, report.Messages[1].AspectRatio, report.Messages[2].AspectRatio}
	assert.Equal(t, []string{"", "1.00", "0.50"}, got)
}

func TestSendBuildsContactMessages(t *testing.T) {
	f := newSendFixture()

	report, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "cap", imageAssets(2), SendOptions{})
	f.svc.Wait()

	require.NoError(t, err)
	msg := report.Messages[0]
	assert.Equal(t, "me", msg.UID)
	assert.Equal(t, "you", msg.ReceiverID)
	assert.Equal(t, constant.DataTypeImage, msg.DataType)
	assert.Equal(t, "jpg", msg.FileExtension)
	assert.Equal(t, "https://cdn.test/CHAT/meyou/batch_0.jpg", msg.Document)
	assert.Equal(t, "batch_0.jpg", msg.FileName)
	assert.Equal(t, "02:05 PM", msg.Time)
	assert.Equal(t, "2024-03-09", msg.CurrentDate)
	assert.Equal(t, "1", msg.SelectionCount)
	assert.Equal(t, 1, msg.Notification)
	assert.Equal(t, constant.ConversationContact, msg.Conversation)
	assert.Equal(t, string(StateDone), report.State)
}

func TestSendDeliverySuccessClearsPending(t *testing.T) {
	f := newSendFixture()

	_, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "", imageAssets(3), SendOptions{})
	f.svc.Wait()

	require.NoError(t, err)
	assert.Equal(t, 3, f.pending.inserted)
	assert.Equal(t, 0, f.pending.Len())
	assert.Equal(t, 3, f.delivery.Count())
	assert.Len(t, f.notifier.OfType(websocket.EventMessageSent), 3)
	assert.Empty(t, f.notifier.OfType(websocket.EventToast))
}

func TestSendDeliveryFailureKeepsPendingAndToasts(t *testing.T) {
	f := newSendFixture()
	f.delivery.err = errors.New("backend down")

	_, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "", imageAssets(1), SendOptions{})
	f.svc.Wait()

	require.NoError(t, err)
	assert.Equal(t, 1, f.pending.Len())
	assert.Equal(t, constant.UploadStatusPending, f.pending.Status("batch_0", "you"))
	assert.Len(t, f.notifier.OfType(websocket.EventMessageFailed), 1)
	toasts := f.notifier.OfType(websocket.EventToast)
	require.Len(t, toasts, 1)
	assert.Equal(t, constant.MsgFailedToSendImages, toasts[0].Payload.(websocket.ToastPayload).Message)
	assert.Equal(t, 1, f.delivery.Count())
}

func TestSendDismissesBeforeDelivery(t *testing.T) {
	f := newSendFixture()

	_, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "", imageAssets(2), SendOptions{})
	f.svc.Wait()
	require.NoError(t, err)

	types := f.notifier.Types()
	dismissed := -1
	for i, tp := range types {
		if tp == websocket.EventBatchDismissed {
			dismissed = i
		}
		if tp == websocket.EventMessageSent {
			assert.Greater(t, i, dismissed)
		}
	}
	assert.GreaterOrEqual(t, dismissed, 0)
	assert.Equal(t, websocket.EventBatchState, types[0])
}

func TestSendBunchBuildsSingleMessage(t *testing.T) {
	f := newSendFixture()
	f.exporter.errs = map[int]error{1: ErrDataUnavailable}

	report, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "cap", imageAssets(3), SendOptions{Bunch: true})
	f.svc.Wait()

	require.NoError(t, err)
	require.Len(t, report.Messages, 1)
	msg := report.Messages[0]
	assert.Equal(t, "2", msg.SelectionCount)
	assert.Equal(t, "cap", msg.Caption)
	assert.Equal(t, "batch_0.jpg", msg.FileName)
	require.Len(t, msg.SelectionBunch, 2)
	assert.Equal(t, "batch_2.jpg", msg.SelectionBunch[1].FileName)
	assert.Equal(t, "https://cdn.test/CHAT/meyou/batch_2.jpg", msg.SelectionBunch[1].ImgURL)
}

func TestSendToGroupUsesGroupRoot(t *testing.T) {
	f := newSendFixture()
	assets := []Asset{{LocalID: "v", Data: []byte("video"), Width: 320, Height: 240}}

	report, err := f.svc.SendToGroup(context.Background(), testSender, "g1", constant.MediaKindVideo, "clip", assets, SendOptions{})
	f.svc.Wait()

	require.NoError(t, err)
	require.Len(t, report.Messages, 1)
	msg := report.Messages[0]
	assert.Equal(t, "g1", msg.ReceiverID)
	assert.Equal(t, "me", msg.CreatedBy)
	assert.Equal(t, constant.DataTypeVideo, msg.DataType)
	assert.Equal(t, "mp4", msg.FileExtension)
	assert.Equal(t, "1.33", msg.AspectRatio)
	assert.True(t, msg.IsGroup())
	assert.Equal(t, []string{"GROUPCHAT/g1/thumb_vid1.jpg", "GROUPCHAT/g1/vid1.mp4"}, f.store.Puts())
}

func TestShareUploadsOnceForEveryRecipient(t *testing.T) {
	f := newSendFixture()

	report, err := f.svc.ShareToContacts(context.Background(), testSender, []string{"a", "b", "a", " "}, constant.MediaKindImage, "", imageAssets(2), SendOptions{})
	f.svc.Wait()

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, report.Receivers)
	assert.Len(t, f.store.Puts(), 2)
	for _, p := range f.store.Puts() {
		assert.Contains(t, p, "CHAT/mea/")
	}
	require.Len(t, report.Messages, 4)
	assert.Equal(t, "a", report.Messages[0].ReceiverID)
	assert.Equal(t, "b", report.Messages[2].ReceiverID)
	assert.Equal(t, report.Messages[0].Document, report.Messages[2].Document)
	assert.Equal(t, 4, f.delivery.Count())
}

func TestSendRejectsInvalidInput(t *testing.T) {
	f := newSendFixture()

	_, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "", nil, SendOptions{})
	var appErr *helper.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	_, err = f.svc.SendToContact(context.Background(), testSender, "you", "gif", "", imageAssets(1), SendOptions{})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	_, err = f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "", imageAssets(31), SendOptions{})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	_, err = f.svc.ShareToContacts(context.Background(), testSender, []string{""}, constant.MediaKindImage, "", imageAssets(1), SendOptions{})
	require.ErrorAs(t, err, &appErr)

	_, err = f.svc.SendToContact(context.Background(), &model.UserDTO{}, "you", constant.MediaKindImage, "", imageAssets(1), SendOptions{})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Code)
}

func TestSendResolvesReceiverTokens(t *testing.T) {
	f := newSendFixture()
	f.contacts.contacts = []model.UserActiveContactModel{{UID: "a", FToken: "tok-a"}, {UID: "b", FToken: "tok-b"}}

	_, err := f.svc.ShareToContacts(context.Background(), testSender, []string{"a", "b"}, constant.MediaKindImage, "", imageAssets(1),
		SendOptions{ReceiverTokens: map[string]string{"b": "explicit-b"}})
	f.svc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, f.contacts.calls)

	tokens := map[string]string{}
	f.delivery.mu.Lock()
	for i, m := range f.delivery.delivered {
		tokens[m.ReceiverID] = f.delivery.tokens[i]
	}
	f.delivery.mu.Unlock()
	assert.Equal(t, map[string]string{"a": "tok-a", "b": "explicit-b"}, tokens)
}

func TestSendToGroupUsesSenderToken(t *testing.T) {
	f := newSendFixture()

	_, err := f.svc.SendToGroup(context.Background(), testSender, "g1", constant.MediaKindImage, "", imageAssets(1), SendOptions{})
	f.svc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, f.contacts.calls)
	assert.Equal(t, []string{"tok"}, f.delivery.tokens)
}

type blockingDelivery struct {
	started chan struct{}
	release chan struct{}
}

func (d *blockingDelivery) Deliver(ctx context.Context, msg *model.ChatMessage, localFilePath, fToken string) error {
	d.started <- struct{}{}
	<-d.release
	return nil
}

func TestSendInFlightRowIsNotRedelivered(t *testing.T) {
	f := newSendFixture()
	delivery := &blockingDelivery{started: make(chan struct{}, 1), release: make(chan struct{})}
	f.svc.delivery = delivery

	_, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "", imageAssets(1), SendOptions{})
	require.NoError(t, err)
	<-delivery.started

	assert.Equal(t, constant.UploadStatusSending, f.pending.Status("batch_0", "you"))

	redelivery := &fakeDelivery{}
	delivered, _, err := NewPendingService(testConfig(), f.pending, redelivery).Redeliver(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
	assert.Equal(t, 0, redelivery.Count())

	close(delivery.release)
	f.svc.Wait()
	assert.Equal(t, 0, f.pending.Len())
}

func TestSendPersistsReceiverTokenForRedelivery(t *testing.T) {
	f := newSendFixture()
	f.delivery.err = errors.New("backend down")

	_, err := f.svc.SendToContact(context.Background(), testSender, "you", constant.MediaKindImage, "", imageAssets(1),
		SendOptions{ReceiverTokens: map[string]string{"you": "you-token"}})
	f.svc.Wait()
	require.NoError(t, err)

	f.pending.rows[pendingKey{"batch_0", "you"}].UpdatedAt = time.Now().Add(-time.Hour)
	redelivery := &fakeDelivery{}
	delivered, _, err := NewPendingService(testConfig(), f.pending, redelivery).Redeliver(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"you-token"}, redelivery.tokens)
}
