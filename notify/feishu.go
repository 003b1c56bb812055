package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Feishu pushes to a Feishu (Lark) custom bot webhook
type Feishu struct {
	webhook string
	client  *http.Client
}

func NewFeishu(webhook string, client *http.Client) *Feishu {
	return &Feishu{webhook: webhook, client: client}
}

func (f *Feishu) Name() string { return "feishu" }

func (f *Feishu) Accepts(kind Kind) bool { return kind == KindArticle || kind == KindStartup }

type feishuText struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

type feishuResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (f *Feishu) Send(ctx context.Context, msg Message) error {
	var payload feishuText
	payload.MsgType = "text"
	payload.Content.Text = msg.Text("\n")

	body, err := postJSON(ctx, f.client, f.webhook, payload)
	if err != nil {
		return err
	}
	var resp feishuResponse
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode feishu response with %w", err)
	}
	if resp.Code != 0 {
		return fmt.Errorf("feishu rejected message: %d %s", resp.Code, resp.Msg)
	}
	return nil
}
