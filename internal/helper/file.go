package helper

import (
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// BatchImageFileName names the index-th image of a batch sharing one model id.
func BatchImageFileName(batchModelID string, index int) string {
	return fmt.Sprintf("%s_%d.jpg", batchModelID, index)
}

func VideoFileName(modelID string) string {
	return modelID + ".mp4"
}

func ThumbnailFileName(modelID string) string {
	return "thumb_" + modelID + ".jpg"
}

// StoragePath joins the content store path {root}/{conversationKey}/{fileName}.
func StoragePath(root, conversationKey, fileName string) string {
	return path.Join(root, conversationKey, fileName)
}

// MimeTypeForExtension maps the extensions accepted for delivery uploads.
func MimeTypeForExtension(ext string) string {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "mp4":
		return "video/mp4"
	case "pdf":
		return "application/pdf"
	case "mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	n := len(data)
	if n > 512 {
		n = 512
	}
	return http.DetectContentType(data[:n])
}

// SafeFileName strips directory components so a client supplied name can be
// used inside a cache directory.
func SafeFileName(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return ""
	}
	return base
}

// ChatRoomKey is the storage key of a one-to-one conversation as seen by the
// sender. Dots are not allowed in storage keys.
func ChatRoomKey(senderUID, receiverUID string) string {
	return strings.ReplaceAll(senderUID+receiverUID, ".", "_")
}
