package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WhatsApp sends text messages through the WhatsApp Cloud API.
type WhatsApp struct {
	BaseURL       string // e.g. https://graph.facebook.com/v20.0
	PhoneNumberID string
	AccessToken   string
	HTTP          *http.Client
}

// NewWhatsApp returns a client with a bounded HTTP timeout.
func NewWhatsApp(baseURL, phoneNumberID, token string, timeout time.Duration) *WhatsApp {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsApp{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		PhoneNumberID: phoneNumberID,
		AccessToken:   token,
		HTTP:          &http.Client{Timeout: timeout},
	}
}

type waText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type waMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             waText `json:"text"`
}

type waError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send implements Notifier.
func (w *WhatsApp) Send(ctx context.Context, address, text string) error {
	body, err := json.Marshal(waMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               strings.TrimPrefix(address, "+"),
		Type:             "text",
		Text:             waText{PreviewURL: true, Body: text},
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", w.BaseURL, w.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	client := w.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		var we waError
		if json.Unmarshal(raw, &we) == nil && we.Error.Message != "" {
			return fmt.Errorf("%w: status %d: %s (code %d)", ErrSendFailed, resp.StatusCode, we.Error.Message, we.Error.Code)
		}
		return fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
