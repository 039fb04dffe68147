package model

import "EnclosureAPI/internal/constant"

// SelectionBunchModel pairs an uploaded file's durable URL with its name.
type SelectionBunchModel struct {
	ImgURL   string `json:"imgUrl"`
	FileName string `json:"fileName"`
}

// ChatMessage is the flat record handed to the delivery service and cached
// while pending. String fields mirror the backend's form fields.
type ChatMessage struct {
	ID                string                `json:"modelId"`
	UID               string                `json:"uid"`
	ReceiverID        string                `json:"receiverUid"`
	Message           string                `json:"message"`
	Time              string                `json:"time"`
	Document          string                `json:"document"`
	DataType          string                `json:"dataType"`
	FileExtension     string                `json:"extension,omitempty"`
	Name              string                `json:"name,omitempty"`
	Phone             string                `json:"phone,omitempty"`
	MicPhoto          string                `json:"micPhoto,omitempty"`
	MiceTiming        string                `json:"miceTiming,omitempty"`
	UserName          string                `json:"userName,omitempty"`
	GroupName         string                `json:"groupName,omitempty"`
	CreatedBy         string                `json:"createdBy,omitempty"`
	DocSize           string                `json:"docSize,omitempty"`
	FileName          string                `json:"fileName,omitempty"`
	Thumbnail         string                `json:"thumbnail,omitempty"`
	FileNameThumbnail string                `json:"fileNameThumbnail,omitempty"`
	Caption           string                `json:"caption"`
	Notification      int                   `json:"notification"`
	CurrentDate       string                `json:"currentDate"`
	Timestamp         float64               `json:"timestamp"`
	ImageWidth        string                `json:"imageWidth,omitempty"`
	ImageHeight       string                `json:"imageHeight,omitempty"`
	AspectRatio       string                `json:"aspectRatio"`
	SelectionCount    string                `json:"selectionCount"`
	BatchPosition     int                   `json:"batchPosition"`
	SelectionBunch    []SelectionBunchModel `json:"selectionBunch,omitempty"`
	UploadStatus      int                   `json:"uploadStatus"`

	Conversation constant.ConversationKind `json:"conversation"`
}

// IsGroup reports whether the message targets a group conversation.
func (m *ChatMessage) IsGroup() bool {
	return m.Conversation == constant.ConversationGroup
}
