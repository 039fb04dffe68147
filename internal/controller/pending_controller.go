package controller

import (
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/middleware"
	"EnclosureAPI/internal/model"
	"EnclosureAPI/internal/service"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type PendingController struct {
	pendingService *service.PendingService
}

func NewPendingController(pendingService *service.PendingService) *PendingController {
	return &PendingController{
		pendingService: pendingService,
	}
}

// List godoc
// @Summary      List Pending Messages
// @Description  List messages the caller sent to a receiver that have not been confirmed yet.
// @Tags         pending
// @Produce      json
// @Param        receiverUID path string true "Receiver UID"
// @Success      200  {object}  helper.ResponseSuccess{data=[]model.ChatMessage}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/pending/{receiverUID} [get]
func (c *PendingController) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	messages, err := c.pendingService.ListByReceiver(r.Context(), user.UID, chi.URLParam(r, "receiverUID"))
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, messages)
}

// Remove godoc
// @Summary      Remove Pending Message
// @Tags         pending
// @Produce      json
// @Param        receiverUID path string true "Receiver UID"
// @Param        modelID path string true "Message model ID"
// @Success      200  {object}  helper.ResponseSuccess
// @Failure      401  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/pending/{receiverUID}/{modelID} [delete]
func (c *PendingController) Remove(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	if err := c.pendingService.Remove(r.Context(), user.UID, chi.URLParam(r, "receiverUID"), chi.URLParam(r, "modelID")); err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, nil)
}

// Acknowledge godoc
// @Summary      Acknowledge Pending Messages
// @Description  Drop every listed pending message the receiver has confirmed.
// @Tags         pending
// @Accept       json
// @Produce      json
// @Param        receiverUID path string true "Receiver UID"
// @Param        request body model.PendingAckRequest true "Confirmed model IDs"
// @Success      200  {object}  helper.ResponseSuccess{data=model.PendingAckResponse}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/pending/{receiverUID}/ack [post]
func (c *PendingController) Acknowledge(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	var req model.PendingAckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid request body", "error", err)
		helper.WriteError(w, helper.NewBadRequestError(""))
		return
	}

	removed, err := c.pendingService.Acknowledge(r.Context(), user.UID, chi.URLParam(r, "receiverUID"), req.ModelIDs)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, model.PendingAckResponse{Removed: removed})
}
