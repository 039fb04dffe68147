package helper

import (
	"fmt"
	"time"

	"EnclosureAPI/internal/constant"
)

// AspectRatio formats width/height with two decimals, or "" when height is 0.
func AspectRatio(width, height int) string {
	if height <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", float64(width)/float64(height))
}

func SentTime(t time.Time) string {
	return t.Format(constant.TimeLayout)
}

func CurrentDate(t time.Time) string {
	return t.Format(constant.DateLayout)
}

func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
