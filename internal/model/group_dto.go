package model

type GroupMember struct {
	UID        string `json:"uid"`
	FullName   string `json:"full_name"`
	MobileNo   string `json:"mobile_no"`
	Photo      string `json:"photo"`
	Caption    string `json:"caption"`
	Status     string `json:"status,omitempty"`
	Block      string `json:"block,omitempty"`
	ThemeColor string `json:"themeColor"`
}

type GroupModel struct {
	GroupID    string        `json:"group_id"`
	Name       string        `json:"group_name"`
	Icon       string        `json:"group_icon"`
	ThemeColor string        `json:"themeColor"`
	Members    []GroupMember `json:"members"`
}

// UserActiveContactModel is a contact row from get_user_active_chat_list.
// Only the fields used to address deliveries are kept.
type UserActiveContactModel struct {
	UID        string `json:"uid"`
	FullName   string `json:"full_name"`
	MobileNo   string `json:"mobile_no"`
	Photo      string `json:"photo"`
	FToken     string `json:"f_token"`
	DeviceType string `json:"device_type"`
}
