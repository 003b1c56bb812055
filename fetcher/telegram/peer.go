package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/tg"
)

// Bot API channel and supergroup IDs are the MTProto ID prefixed with -100
const channelIDOffset = 1_000_000_000_000

const dialogsLimit = 100

// numericPeer maps a Bot API style chat ID to an input peer without an
// access hash. It reports false for usernames and t.me links.
func numericPeer(chat string) (tg.InputPeerClass, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chat), 10, 64)
	if err != nil || id == 0 {
		return nil, false
	}
	switch {
	case id <= -channelIDOffset:
		return &tg.InputPeerChannel{ChannelID: -id - channelIDOffset}, true
	case id < 0:
		return &tg.InputPeerChat{ChatID: -id}, true
	default:
		return &tg.InputPeerUser{UserID: id}, true
	}
}

// withAccessHash fills the access hash a user session needs for channels and
// users by scanning its dialogs. Basic groups need none.
func withAccessHash(ctx context.Context, api *tg.Client, p tg.InputPeerClass) (tg.InputPeerClass, error) {
	if _, ok := p.(*tg.InputPeerChat); ok {
		return p, nil
	}
	res, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogsLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list dialogs with %w", err)
	}
	dialogs, ok := res.AsModified()
	if !ok {
		return nil, fmt.Errorf("unexpected dialogs response %T", res)
	}
	found, ok := findPeer(p, dialogs.GetChats(), dialogs.GetUsers())
	if !ok {
		return nil, fmt.Errorf("chat not found among the latest %d dialogs", dialogsLimit)
	}
	return found, nil
}

func findPeer(p tg.InputPeerClass, chats []tg.ChatClass, users []tg.UserClass) (tg.InputPeerClass, bool) {
	switch p := p.(type) {
	case *tg.InputPeerChannel:
		for _, c := range chats {
			if ch, ok := c.(*tg.Channel); ok && ch.ID == p.ChannelID {
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, true
			}
		}
	case *tg.InputPeerUser:
		for _, u := range users {
			if user, ok := u.(*tg.User); ok && user.ID == p.UserID {
				return &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, true
			}
		}
	case *tg.InputPeerChat:
		return p, true
	}
	return nil, false
}
