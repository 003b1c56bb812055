package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scipunch/rssmonitor/config"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingChannel struct {
	name  string
	kinds []Kind
	err   error
	sent  []Message
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Accepts(kind Kind) bool {
	for _, k := range c.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (c *recordingChannel) Send(_ context.Context, msg Message) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func TestSinkNotify(t *testing.T) {
	ok := &recordingChannel{name: "ok", kinds: []Kind{KindArticle, KindStartup}}
	failing := &recordingChannel{name: "failing", kinds: []Kind{KindArticle}, err: errors.New("boom")}
	reports := &recordingChannel{name: "reports", kinds: []Kind{KindReport}}

	sink := NewSink(discardLogger, ok, failing, reports)
	require.True(t, sink.Enabled())
	assert.Equal(t, []string{"ok", "failing", "reports"}, sink.Channels())

	msg := Message{Kind: KindArticle, Title: "Example Security Feed update", Body: "Title: CVE-2024-0001 disclosed"}
	sent := sink.Notify(context.Background(), msg)

	assert.Equal(t, 1, sent)
	assert.Len(t, ok.sent, 1)
	assert.Len(t, failing.sent, 1, "failing channel is still attempted")
	assert.Empty(t, reports.sent, "report channel must not get articles")

	sent = sink.Notify(context.Background(), Message{Kind: KindReport, Title: "RSS Daily"})
	assert.Equal(t, 1, sent)
	assert.Len(t, reports.sent, 1)
}

func TestNilSink(t *testing.T) {
	var sink *Sink
	assert.False(t, sink.Enabled())
	assert.Zero(t, sink.Notify(context.Background(), Message{Kind: KindArticle}))
	assert.False(t, NewSink(nil).Enabled())
}

func TestMessageText(t *testing.T) {
	assert.Equal(t, "a\nb", Message{Title: "a", Body: "b"}.Text("\n"))
	assert.Equal(t, "a", Message{Title: "a"}.Text("\n"))
}

func TestDingTalk(t *testing.T) {
	var (
		gotQuery url.Values
		gotBody  map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	d := NewDingTalk(srv.URL+"/robot/send?access_token=abc", "SECxyz", srv.Client())
	d.now = func() time.Time { return time.UnixMilli(1700000000123) }

	err := d.Send(context.Background(), Message{Kind: KindArticle, Title: "t", Body: "b"})
	require.NoError(t, err)

	assert.Equal(t, "abc", gotQuery.Get("access_token"))
	assert.Equal(t, "1700000000123", gotQuery.Get("timestamp"))
	assert.Equal(t, sign(1700000000123, "SECxyz"), gotQuery.Get("sign"))
	assert.Equal(t, "text", gotBody["msgtype"])
	assert.Equal(t, "t\r\nb", gotBody["text"].(map[string]any)["content"])
}

func TestDingTalkSign(t *testing.T) {
	// HMAC-SHA256 of "timestamp\nsecret" keyed by the secret
	got := sign(1577808000000, "this is secret")
	assert.Equal(t, "ijHEivi6YiCNPZOq4hZstmvZ3sPfbioAiMhP30ae7W0=", got)
}

func TestDingTalkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":310000,"errmsg":"sign not match"}`))
	}))
	defer srv.Close()

	d := NewDingTalk(srv.URL, "s", srv.Client())
	err := d.Send(context.Background(), Message{Kind: KindArticle, Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign not match")
}

func TestFeishu(t *testing.T) {
	var got feishuText
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	defer srv.Close()

	f := NewFeishu(srv.URL, srv.Client())
	require.NoError(t, f.Send(context.Background(), Message{Title: "t", Body: "b"}))
	assert.Equal(t, "text", got.MsgType)
	assert.Equal(t, "t\nb", got.Content.Text)
	assert.False(t, f.Accepts(KindReport))
}

func TestDiscord(t *testing.T) {
	var got discordPayload
	status := http.StatusNoContent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(status)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL+"/api/webhooks/1/secret-token", srv.Client(), true, false)
	require.NoError(t, d.Send(context.Background(), Message{Title: "t", Body: "b"}))
	assert.Equal(t, "**t**\nb", got.Content)

	status = http.StatusUnauthorized
	err := d.Send(context.Background(), Message{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	long := strings.Repeat("x", 3000)
	status = http.StatusOK
	require.NoError(t, d.Send(context.Background(), Message{Title: "t", Body: long}))
	assert.Equal(t, discordMaxContent, len([]rune(got.Content)))
}

func TestDiscordSwitches(t *testing.T) {
	tests := []struct {
		articles, report bool
		kind             Kind
		want             bool
	}{
		{true, false, KindArticle, true},
		{true, false, KindStartup, true},
		{true, false, KindReport, false},
		{false, true, KindArticle, false},
		{false, true, KindReport, true},
	}
	for _, tt := range tests {
		d := NewDiscord("https://discord.example", http.DefaultClient, tt.articles, tt.report)
		assert.Equal(t, tt.want, d.Accepts(tt.kind), "articles=%v report=%v kind=%s", tt.articles, tt.report, tt.kind)
	}
}

func TestWebhookErrorHidesURL(t *testing.T) {
	d := NewDiscord("http://127.0.0.1:1/api/webhooks/1/secret-token", &http.Client{Timeout: time.Second}, true, true)
	err := d.Send(context.Background(), Message{Title: "t"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

type fakeSender struct{ texts []string }

func (f *fakeSender) Send(_ context.Context, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func TestTelegram(t *testing.T) {
	s := &fakeSender{}
	tg := NewTelegram(s)
	require.NoError(t, tg.Send(context.Background(), Message{Title: "t", Body: "b"}))
	assert.Equal(t, []string{"t\nb"}, s.texts)
}

func TestFromConfig(t *testing.T) {
	conf := config.Default()
	conf.Notify.DingTalk.Enabled = true
	conf.Notify.Feishu.Enabled = true
	conf.Notify.Telegram.Enabled = true
	conf.Notify.Discord.Enabled = true
	conf.Credentials.DingTalk.Webhook = "https://oapi.dingtalk.example/robot/send?access_token=x"
	conf.Credentials.DingTalk.Secret = "<your secret>"
	conf.Credentials.Feishu.Webhook = "https://open.feishu.example/hook/1"
	conf.Credentials.Discord.Webhook = "https://discord.example/api/webhooks/1/abc"

	sink := FromConfig(conf, t.TempDir(), discardLogger)
	assert.Equal(t, []string{"feishu", "discord"}, sink.Channels())

	conf.Notify = config.Notify{}
	assert.False(t, FromConfig(conf, t.TempDir(), discardLogger).Enabled())
}
