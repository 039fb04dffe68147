package controller

import (
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/middleware"
	"EnclosureAPI/internal/model"
	"EnclosureAPI/internal/service"
	"encoding/json"
	"log/slog"
	"net/http"
)

type DownloadController struct {
	downloadService *service.DownloadService
}

func NewDownloadController(downloadService *service.DownloadService) *DownloadController {
	return &DownloadController{
		downloadService: downloadService,
	}
}

// StartDownload godoc
// @Summary      Download Into Local Cache
// @Description  Fetch a remote file into the media cache. Progress is pushed over the websocket as download.progress events.
// @Tags         download
// @Accept       json
// @Produce      json
// @Param        request body model.DownloadRequest true "Download request"
// @Success      202  {object}  helper.ResponseSuccess{data=model.DownloadResponse}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/downloads [post]
func (c *DownloadController) StartDownload(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(middleware.UserContextKey).(*model.UserDTO)
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	var req model.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid request body", "error", err)
		helper.WriteError(w, helper.NewBadRequestError(""))
		return
	}

	resp, err := c.downloadService.Start(r.Context(), user.UID, req)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteAccepted(w, resp)
}

// ActiveDownloads godoc
// @Summary      List Active Downloads
// @Tags         download
// @Produce      json
// @Success      200  {object}  helper.ResponseSuccess{data=[]string}
// @Failure      401  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/downloads [get]
func (c *DownloadController) ActiveDownloads(w http.ResponseWriter, r *http.Request) {
	helper.WriteSuccess(w, c.downloadService.Active())
}
