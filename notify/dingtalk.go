package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DingTalk pushes to a signed DingTalk robot webhook
type DingTalk struct {
	webhook string
	secret  string
	client  *http.Client
	now     func() time.Time
}

func NewDingTalk(webhook, secret string, client *http.Client) *DingTalk {
	return &DingTalk{webhook: webhook, secret: secret, client: client, now: time.Now}
}

func (d *DingTalk) Name() string { return "dingtalk" }

func (d *DingTalk) Accepts(kind Kind) bool { return kind == KindArticle || kind == KindStartup }

type dingTalkText struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
	At struct {
		IsAtAll bool `json:"isAtAll"`
	} `json:"at"`
}

type dingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// sign returns the signature DingTalk expects for a millisecond timestamp
func sign(timestamp int64, secret string) string {
	toSign := strconv.FormatInt(timestamp, 10) + "\n" + secret
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(toSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (d *DingTalk) signedURL() (string, error) {
	u, err := url.Parse(d.webhook)
	if err != nil {
		return "", fmt.Errorf("invalid webhook with %w", err)
	}
	if d.secret == "" {
		return u.String(), nil
	}
	ts := d.now().UnixMilli()
	q := u.Query()
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("sign", sign(ts, d.secret))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *DingTalk) Send(ctx context.Context, msg Message) error {
	target, err := d.signedURL()
	if err != nil {
		return err
	}

	var payload dingTalkText
	payload.MsgType = "text"
	payload.Text.Content = msg.Text("\r\n")

	body, err := postJSON(ctx, d.client, target, payload)
	if err != nil {
		return err
	}
	var resp dingTalkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode dingtalk response with %w", err)
	}
	if resp.ErrCode != 0 {
		return fmt.Errorf("dingtalk rejected message: %d %s", resp.ErrCode, resp.ErrMsg)
	}
	return nil
}
