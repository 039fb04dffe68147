package adapter

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// flexInt accepts an error_code sent either as a number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid error_code %q", s)
	}
	*f = flexInt(n)
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(raw)
	return nil
}

type backendEnvelope struct {
	ErrorCode flexInt         `json:"error_code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

type groupDetailsData struct {
	GroupName  string               `json:"group_name"`
	GroupIcon  string               `json:"group_icon"`
	ThemeColor string               `json:"themeColor"`
	Members    []groupMemberPayload `json:"members"`
}

type groupMemberPayload struct {
	UID      string     `json:"uid"`
	FullName string     `json:"full_name"`
	MobileNo string     `json:"mobile_no"`
	Photo    string     `json:"photo"`
	Caption  string     `json:"caption"`
	Status   flexString `json:"status"`
	Block    flexString `json:"block"`
}

type activeContactPayload struct {
	UID        string     `json:"uid"`
	FullName   string     `json:"full_name"`
	MobileNo   string     `json:"mobile_no"`
	Photo      string     `json:"photo"`
	FToken     string     `json:"f_token"`
	DeviceType flexString `json:"device_type"`
}

// BackendAPIAdapter reads identity records from the chat backend.
type BackendAPIAdapter struct {
	httpClient *http.Client
	baseURL    string
}

func NewBackendAPIAdapter(cfg *config.AppConfig, httpClient *http.Client) *BackendAPIAdapter {
	return &BackendAPIAdapter{
		httpClient: httpClient,
		baseURL:    cfg.BackendBaseURL,
	}
}

func (b *BackendAPIAdapter) GetGroupDetails(ctx context.Context, groupID, viewerUID string) (*model.GroupModel, error) {
	form := url.Values{}
	form.Set("group_id", groupID)
	form.Set("viewer_uid", viewerUID)

	envelope, err := b.postForm(ctx, "get_group_details", form)
	if err != nil {
		return nil, err
	}

	if envelope.ErrorCode != 200 {
		if envelope.Message == "" {
			envelope.Message = "group not found"
		}
		return nil, helper.NewBadGatewayError(envelope.Message)
	}

	var data groupDetailsData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("decode group details: %w", err)
	}

	group := &model.GroupModel{
		GroupID:    groupID,
		Name:       data.GroupName,
		Icon:       data.GroupIcon,
		ThemeColor: data.ThemeColor,
		Members:    make([]model.GroupMember, 0, len(data.Members)),
	}
	for _, m := range data.Members {
		group.Members = append(group.Members, model.GroupMember{
			UID:        m.UID,
			FullName:   m.FullName,
			MobileNo:   m.MobileNo,
			Photo:      m.Photo,
			Caption:    m.Caption,
			Status:     string(m.Status),
			Block:      string(m.Block),
			ThemeColor: data.ThemeColor,
		})
	}

	return group, nil
}

// GetActiveContacts lists the contacts uid has chatted with, including the
// push token each delivery is addressed with.
func (b *BackendAPIAdapter) GetActiveContacts(ctx context.Context, uid string) ([]model.UserActiveContactModel, error) {
	form := url.Values{}
	form.Set("uid", uid)

	envelope, err := b.postForm(ctx, "get_user_active_chat_list", form)
	if err != nil {
		return nil, err
	}
	if envelope.ErrorCode != 200 {
		return nil, helper.NewBadGatewayError(envelope.Message)
	}

	var rows []activeContactPayload
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, &rows); err != nil {
			return nil, fmt.Errorf("decode active contacts: %w", err)
		}
	}

	contacts := make([]model.UserActiveContactModel, 0, len(rows))
	for _, r := range rows {
		contacts = append(contacts, model.UserActiveContactModel{
			UID:        r.UID,
			FullName:   r.FullName,
			MobileNo:   r.MobileNo,
			Photo:      r.Photo,
			FToken:     r.FToken,
			DeviceType: string(r.DeviceType),
		})
	}
	return contacts, nil
}

func (b *BackendAPIAdapter) postForm(ctx context.Context, endpoint string, form url.Values) (*backendEnvelope, error) {
	operation := func() (*backendEnvelope, bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := b.httpClient.Do(req)
		if helper.ShouldRetryHTTP(resp, err) {
			if resp != nil {
				resp.Body.Close()
			}
			if err == nil {
				err = fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
			}
			return nil, true, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, err
		}

		var envelope backendEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, false, fmt.Errorf("decode %s response: %w", endpoint, err)
		}
		return &envelope, false, nil
	}

	return helper.RetryWithBackoff(ctx, operation, 2, 300*time.Millisecond)
}
