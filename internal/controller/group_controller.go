package controller

import (
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/middleware"
	"EnclosureAPI/internal/model"
	"EnclosureAPI/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type GroupController struct {
	groupService *service.GroupService
}

func NewGroupController(groupService *service.GroupService) *GroupController {
	return &GroupController{
		groupService: groupService,
	}
}

// GetGroup godoc
// @Summary      Get Group Details
// @Description  Fetch group details and members from the chat backend.
// @Tags         group
// @Produce      json
// @Param        groupID path string true "Group ID"
// @Success      200  {object}  helper.ResponseSuccess{data=model.GroupModel}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      502  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/groups/{groupID} [get]
func (c *GroupController) GetGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(middleware.UserContextKey).(*model.UserDTO)
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	group, err := c.groupService.Details(r.Context(), chi.URLParam(r, "groupID"), user.UID)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, group)
}
