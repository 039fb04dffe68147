package service

import (
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/model"
	"context"
	"errors"
	"log/slog"
	"strings"
)

type GroupService struct {
	directory GroupDirectory
}

func NewGroupService(directory GroupDirectory) *GroupService {
	return &GroupService{directory: directory}
}

func (s *GroupService) Details(ctx context.Context, groupID, viewerUID string) (*model.GroupModel, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, helper.NewBadRequestError("group id is required")
	}

	group, err := s.directory.GetGroupDetails(ctx, groupID, viewerUID)
	if err != nil {
		var appErr *helper.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		slog.Error("Failed to fetch group details", "error", err, "group_id", groupID)
		return nil, helper.NewBadGatewayError("failed to fetch group details")
	}

	return group, nil
}
