package model

// UserDTO is the authenticated sender resolved from the bearer token.
type UserDTO struct {
	UID        string `json:"uid"`
	FullName   string `json:"full_name"`
	Photo      string `json:"photo,omitempty"`
	FCMToken   string `json:"-"`
	DeviceType string `json:"device_type,omitempty"`
}
