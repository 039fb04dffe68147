package controller

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/constant"
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/middleware"
	"EnclosureAPI/internal/model"
	"EnclosureAPI/internal/service"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxMultipartMemory = 32 << 20

type MediaController struct {
	cfg              *config.AppConfig
	validator        *validator.Validate
	mediaSendService *service.MediaSendService
}

func NewMediaController(cfg *config.AppConfig, validator *validator.Validate, mediaSendService *service.MediaSendService) *MediaController {
	return &MediaController{
		cfg:              cfg,
		validator:        validator,
		mediaSendService: mediaSendService,
	}
}

// SendToContact godoc
// @Summary      Send Media To Contact
// @Description  Upload a selection of photos or videos in parallel and deliver one message per uploaded asset to a contact.
// @Tags         media
// @Accept       multipart/form-data
// @Produce      json
// @Param        contactUID path string true "Receiver UID"
// @Param        kind formData string true "image or video"
// @Param        caption formData string false "Caption attached to the first uploaded asset"
// @Param        bunch formData bool false "Send images as a single bunched message"
// @Param        files formData file true "Selected assets in selection order"
// @Param        thumbnails formData file false "Video thumbnails aligned with files"
// @Param        local_ids formData string false "Client identifiers aligned with files"
// @Param        f_token formData string false "Receiver push token"
// @Success      200  {object}  helper.ResponseSuccess{data=model.BatchReportDTO}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      429  {object}  helper.ResponseError
// @Failure      502  {object}  helper.ResponseError{details=model.BatchReportDTO}
// @Security     BearerAuth
// @Router       /api/chats/{contactUID}/media [post]
func (c *MediaController) SendToContact(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(middleware.UserContextKey).(*model.UserDTO)
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	contactUID := strings.TrimSpace(chi.URLParam(r, "contactUID"))
	if contactUID == "" {
		helper.WriteError(w, helper.NewBadRequestError("contact uid is required"))
		return
	}

	req, assets, err := c.parseSendForm(r)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	opts := service.SendOptions{Bunch: req.Bunch}
	if token := strings.TrimSpace(r.FormValue("f_token")); token != "" {
		opts.ReceiverTokens = map[string]string{contactUID: token}
	}

	report, err := c.mediaSendService.SendToContact(r.Context(), user, contactUID, constant.MediaKind(req.Kind), req.Caption, assets, opts)
	writeBatchResult(w, report, err)
}

// SendToGroup godoc
// @Summary      Send Media To Group
// @Description  Upload a selection of photos or videos in parallel and deliver them to a group.
// @Tags         media
// @Accept       multipart/form-data
// @Produce      json
// @Param        groupID path string true "Group ID"
// @Param        kind formData string true "image or video"
// @Param        caption formData string false "Caption attached to the first uploaded asset"
// @Param        bunch formData bool false "Send images as a single bunched message"
// @Param        files formData file true "Selected assets in selection order"
// @Param        thumbnails formData file false "Video thumbnails aligned with files"
// @Param        local_ids formData string false "Client identifiers aligned with files"
// @Success      200  {object}  helper.ResponseSuccess{data=model.BatchReportDTO}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      429  {object}  helper.ResponseError
// @Failure      502  {object}  helper.ResponseError{details=model.BatchReportDTO}
// @Security     BearerAuth
// @Router       /api/groups/{groupID}/media [post]
func (c *MediaController) SendToGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(middleware.UserContextKey).(*model.UserDTO)
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	groupID := strings.TrimSpace(chi.URLParam(r, "groupID"))
	if groupID == "" {
		helper.WriteError(w, helper.NewBadRequestError("group id is required"))
		return
	}

	req, assets, err := c.parseSendForm(r)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	report, err := c.mediaSendService.SendToGroup(r.Context(), user, groupID, constant.MediaKind(req.Kind), req.Caption, assets, service.SendOptions{Bunch: req.Bunch})
	writeBatchResult(w, report, err)
}

// ShareToContacts godoc
// @Summary      Share Media To Contacts
// @Description  Upload a selection once and deliver it to several contacts.
// @Tags         media
// @Accept       multipart/form-data
// @Produce      json
// @Param        receiver_uids formData string true "Comma separated receiver UIDs"
// @Param        kind formData string true "image or video"
// @Param        caption formData string false "Caption attached to the first uploaded asset"
// @Param        bunch formData bool false "Send images as a single bunched message"
// @Param        files formData file true "Selected assets in selection order"
// @Param        thumbnails formData file false "Video thumbnails aligned with files"
// @Success      200  {object}  helper.ResponseSuccess{data=model.BatchReportDTO}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      429  {object}  helper.ResponseError
// @Failure      502  {object}  helper.ResponseError{details=model.BatchReportDTO}
// @Security     BearerAuth
// @Router       /api/share [post]
func (c *MediaController) ShareToContacts(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(middleware.UserContextKey).(*model.UserDTO)
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	req, assets, err := c.parseSendForm(r)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	share := model.ShareMediaRequest{SendMediaRequest: *req, ReceiverUIDs: splitFormList(r.MultipartForm.Value["receiver_uids"])}
	if err := c.validator.Struct(share); err != nil {
		slog.Warn("Validation failed", "error", err)
		helper.WriteError(w, helper.NewBadRequestError("receiver_uids is required"))
		return
	}

	report, err := c.mediaSendService.ShareToContacts(r.Context(), user, share.ReceiverUIDs, constant.MediaKind(req.Kind), req.Caption, assets, service.SendOptions{Bunch: req.Bunch})
	writeBatchResult(w, report, err)
}

func writeBatchResult(w http.ResponseWriter, report *model.BatchReportDTO, err error) {
	if errors.Is(err, service.ErrAllUploadsFailed) {
		helper.WriteError(w, helper.NewBadGatewayError(err.Error()).WithDetails(report))
		return
	}
	if err != nil {
		helper.WriteError(w, err)
		return
	}
	helper.WriteSuccess(w, report)
}

func (c *MediaController) parseSendForm(r *http.Request) (*model.SendMediaRequest, []service.Asset, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		slog.Warn("Error parsing multipart form", "error", err)
		return nil, nil, helper.NewBadRequestError("")
	}

	form := r.MultipartForm
	req := &model.SendMediaRequest{
		Kind:       strings.TrimSpace(r.FormValue("kind")),
		Caption:    r.FormValue("caption"),
		Files:      form.File["files"],
		Thumbnails: form.File["thumbnails"],
		LocalIDs:   form.Value["local_ids"],
	}
	if v := r.FormValue("bunch"); v != "" {
		bunch, err := strconv.ParseBool(v)
		if err != nil {
			return nil, nil, helper.NewBadRequestError("bunch must be a boolean")
		}
		req.Bunch = bunch
	}

	if err := c.validator.Struct(req); err != nil {
		slog.Warn("Validation failed", "error", err)
		return nil, nil, helper.NewBadRequestError("")
	}

	widths := form.Value["widths"]
	heights := form.Value["heights"]

	assets := make([]service.Asset, len(req.Files))
	for i, header := range req.Files {
		data, err := c.readPart(header)
		if err != nil {
			return nil, nil, err
		}

		asset := service.Asset{
			Index:    i,
			FileName: header.Filename,
			Data:     data,
			Width:    intAt(widths, i),
			Height:   intAt(heights, i),
		}
		if i < len(req.LocalIDs) {
			asset.LocalID = req.LocalIDs[i]
		}
		if i < len(req.Thumbnails) && req.Thumbnails[i] != nil {
			thumb, err := c.readPart(req.Thumbnails[i])
			if err != nil {
				return nil, nil, err
			}
			asset.Thumbnail = thumb
		}
		assets[i] = asset
	}

	return req, assets, nil
}

func (c *MediaController) readPart(header *multipart.FileHeader) ([]byte, error) {
	if c.cfg.UploadMaxFileSize > 0 && header.Size > c.cfg.UploadMaxFileSize {
		return nil, helper.NewBadRequestError(fmt.Sprintf("%s exceeds the maximum file size", header.Filename))
	}

	f, err := header.Open()
	if err != nil {
		slog.Warn("Error opening uploaded file", "error", err, "file_name", header.Filename)
		return nil, helper.NewBadRequestError("")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Warn("Error reading uploaded file", "error", err, "file_name", header.Filename)
		return nil, helper.NewBadRequestError("")
	}
	return data, nil
}

func intAt(values []string, i int) int {
	if i >= len(values) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(values[i]))
	if err != nil {
		return 0
	}
	return n
}

// splitFormList accepts repeated fields as well as comma separated values.
func splitFormList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
