package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchFileNames(t *testing.T) {
	assert.Equal(t, "b1_0.jpg", BatchImageFileName("b1", 0))
	assert.Equal(t, "v1.mp4", VideoFileName("v1"))
	assert.Equal(t, "thumb_v1.jpg", ThumbnailFileName("v1"))
	assert.Equal(t, "CHAT/ab/b1_2.jpg", StoragePath("CHAT", "ab", "b1_2.jpg"))
}

func TestChatRoomKeyReplacesDots(t *testing.T) {
	assert.Equal(t, "u_1u_2", ChatRoomKey("u.1", "u.2"))
	assert.Equal(t, "ab", ChatRoomKey("a", "b"))
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "passwd", SafeFileName("../../etc/passwd"))
	assert.Equal(t, "a.jpg", SafeFileName("a.jpg"))
	assert.Equal(t, "", SafeFileName(""))
	assert.Equal(t, "", SafeFileName("/"))
}

func TestMimeTypeForExtension(t *testing.T) {
	assert.Equal(t, "image/jpeg", MimeTypeForExtension(".JPG"))
	assert.Equal(t, "video/mp4", MimeTypeForExtension("mp4"))
	assert.Equal(t, "application/octet-stream", MimeTypeForExtension("xyz"))
	assert.Equal(t, "application/octet-stream", DetectContentType(nil))
}
