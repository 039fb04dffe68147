package constant

const (
	DataTypeText    = "Text"
	DataTypeImage   = "img"
	DataTypeVideo   = "video"
	DataTypeDoc     = "doc"
	DataTypeContact = "contact"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

type ConversationKind string

const (
	ConversationContact ConversationKind = "contact"
	ConversationGroup   ConversationKind = "group"
)

const (
	ExtensionJPG = "jpg"
	ExtensionMP4 = "mp4"
)

// Upload status values stored with pending messages.
const (
	UploadStatusPending   = 0
	UploadStatusSending   = 1
	UploadStatusAbandoned = 2
)

const (
	MsgUnableToUploadImages = "Unable to upload images. Please try again."
	MsgUnableToUploadVideos = "Unable to upload videos. Please try again."
	MsgFailedToSendImages   = "Failed to send images. Please try again."
	MsgFailedToSendVideos   = "Failed to send videos. Please try again."
)

// MaxDeliveryFileSize bounds local files attached to a delivery request.
const MaxDeliveryFileSize = 200 * 1024 * 1024

const (
	TimeLayout = "03:04 PM"
	DateLayout = "2006-01-02"
)
