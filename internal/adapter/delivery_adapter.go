package adapter

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/constant"
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
)

const (
	endpointIndividualChatting = "create_individual_chatting"
	endpointGroupChatting      = "create_group_chatting"
)

var ErrInvalidResponseFormat = errors.New("Invalid response format")

// DeliveryError is a non-success answer from the delivery service.
type DeliveryError struct {
	Code    int
	Message string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery rejected (%d): %s", e.Code, e.Message)
}

// DeliveryAdapter hands finished messages to the chat backend.
type DeliveryAdapter struct {
	httpClient *http.Client
	baseURL    string
}

func NewDeliveryAdapter(cfg *config.AppConfig, httpClient *http.Client) *DeliveryAdapter {
	return &DeliveryAdapter{
		httpClient: httpClient,
		baseURL:    cfg.BackendBaseURL,
	}
}

func (d *DeliveryAdapter) Deliver(ctx context.Context, msg *model.ChatMessage, localFilePath, fToken string) error {
	endpoint := endpointIndividualChatting
	if msg.IsGroup() {
		endpoint = endpointGroupChatting
	}

	body, contentType := d.encode(msg, localFilePath, fToken)
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope backendEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		slog.Warn("Delivery service returned invalid JSON", "status", resp.StatusCode, "model_id", msg.ID)
		return ErrInvalidResponseFormat
	}

	if envelope.ErrorCode != 200 {
		message := envelope.Message
		if message == "" {
			message = "Unknown error"
		}
		return &DeliveryError{Code: int(envelope.ErrorCode), Message: message}
	}

	return nil
}

// encode streams the multipart form so large local files are not buffered.
func (d *DeliveryAdapter) encode(msg *model.ChatMessage, localFilePath, fToken string) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeDeliveryForm(mw, msg, localFilePath, fToken)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func writeDeliveryForm(mw *multipart.Writer, msg *model.ChatMessage, localFilePath, fToken string) error {
	selectionCount := msg.SelectionCount
	if selectionCount == "" {
		selectionCount = "1"
	}

	fields := [][2]string{
		{"uid", msg.UID},
	}
	if msg.IsGroup() {
		fields = append(fields, [2]string{"group_id", msg.ReceiverID})
	} else {
		fields = append(fields, [2]string{"friend_id", msg.ReceiverID})
	}
	fields = append(fields,
		[2]string{"message", msg.Message},
		[2]string{"user_name", msg.UserName},
		[2]string{"notification", "1"},
		[2]string{"dataType", msg.DataType},
		[2]string{"model_id", msg.ID},
		[2]string{"sent_time", msg.Time},
		[2]string{"extension", msg.FileExtension},
		[2]string{"name", msg.Name},
		[2]string{"phone", msg.Phone},
		[2]string{"micPhoto", msg.MicPhoto},
		[2]string{"miceTiming", msg.MiceTiming},
	)
	if msg.IsGroup() {
		fields = append(fields,
			[2]string{"created_by", msg.CreatedBy},
			[2]string{"thumbnail", msg.Thumbnail},
			[2]string{"fileNameThumbnail", msg.FileNameThumbnail},
		)
	}
	fields = append(fields,
		[2]string{"caption", msg.Caption},
		[2]string{"selection_count", selectionCount},
		[2]string{"fTokenKey", fToken},
	)

	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	return writeUploadDocs(mw, msg, localFilePath)
}

func writeUploadDocs(mw *multipart.Writer, msg *model.ChatMessage, localFilePath string) error {
	switch {
	case msg.DataType == constant.DataTypeText || msg.DataType == constant.DataTypeContact:
		return mw.WriteField("upload_docs", "")
	case msg.Document != "":
		return mw.WriteField("upload_docs", msg.Document)
	case localFilePath == "" || len(msg.SelectionBunch) > 0:
		return mw.WriteField("upload_docs", "")
	}

	info, err := os.Stat(localFilePath)
	if err != nil || info.IsDir() {
		slog.Warn("Delivery file does not exist", "path", localFilePath)
		return mw.WriteField("upload_docs", "")
	}
	if info.Size() > constant.MaxDeliveryFileSize {
		slog.Warn("Delivery file exceeds size limit", "path", localFilePath, "size", info.Size())
		return mw.WriteField("upload_docs", "")
	}

	file, err := os.Open(localFilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	name := filepath.Base(localFilePath)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="upload_docs"; filename="%s"`, name))
	header.Set("Content-Type", helper.MimeTypeForExtension(filepath.Ext(name)))

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}
