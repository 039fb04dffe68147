package model

import (
	"EnclosureAPI/internal/constant"
	"mime/multipart"
)

type SendMediaRequest struct {
	Kind       string                  `form:"kind" validate:"required,media_kind"`
	Caption    string                  `form:"caption" validate:"max=4000"`
	Bunch      bool                    `form:"bunch"`
	Files      []*multipart.FileHeader `form:"files" validate:"required,min=1,dive,required"`
	Thumbnails []*multipart.FileHeader `form:"thumbnails" validate:"omitempty"`
	LocalIDs   []string                `form:"local_ids" validate:"omitempty"`
}

type ShareMediaRequest struct {
	SendMediaRequest
	ReceiverUIDs []string `form:"receiver_uids" validate:"required,min=1,dive,required"`
}

type AssetFailureDTO struct {
	Index   int    `json:"index"`
	LocalID string `json:"local_id,omitempty"`
	Kind    string `json:"kind"`
	Reason  string `json:"reason"`
}

type BatchReportDTO struct {
	BatchID      string                    `json:"batch_id"`
	Conversation constant.ConversationKind `json:"conversation"`
	Receivers    []string                  `json:"receivers"`
	State        string                    `json:"state"`
	Uploaded     int                       `json:"uploaded"`
	Failed       int                       `json:"failed"`
	Messages     []ChatMessage             `json:"messages"`
	Failures     []AssetFailureDTO         `json:"failures,omitempty"`
}

type DownloadRequest struct {
	URL      string `json:"url" validate:"required,url"`
	FileName string `json:"file_name" validate:"required,max=255"`
	Kind     string `json:"kind" validate:"omitempty,oneof=image video document thumbnail"`
}

type DownloadResponse struct {
	FileName string `json:"file_name"`
	Path     string `json:"path"`
}
