package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"golang.org/x/time/rate"

	kit "annobot/internal/transport"
	logx "annobot/pkg/logx"
)

type Config struct {
	Token string

	// RatePerSec paces outbound API calls. Telegram throttles bots that
	// burst; the limiter only delays calls, it never retries them.
	RatePerSec int

	// Timeout bounds a single API call.
	Timeout time.Duration
}

// Gateway implements kit.Gateway on top of telebot.
type Gateway struct {
	cfg Config
	log logx.Logger

	bot     *tele.Bot
	limiter *rate.Limiter
}

func New(cfg Config, log logx.Logger) (*Gateway, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 20
	}
	return &Gateway{
		cfg:     cfg,
		log:     log,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (g *Gateway) FetchChannel(ctx context.Context, scopeID, channelID int64) (*kit.Channel, error) {
	// Telegram addresses chats globally; scopeID only scopes our own rows.
	_ = scopeID
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	chat, err := g.bot.ChatByID(channelID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &kit.Channel{ID: chat.ID, Title: chat.Title, Kind: string(chat.Type)}, nil
}

func (g *Gateway) SendMessage(ctx context.Context, channelID int64, body kit.MessageBody) (int, error) {
	if err := g.wait(ctx); err != nil {
		return 0, err
	}
	msg, err := g.bot.Send(&tele.Chat{ID: channelID}, body.Text, sendOptions(body))
	if err != nil {
		return 0, mapErr(err)
	}
	return msg.ID, nil
}

func (g *Gateway) EditMessage(ctx context.Context, channelID int64, messageID int, body kit.MessageBody) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	ref := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: channelID}
	_, err := g.bot.Edit(ref, body.Text, sendOptions(body))
	if err == nil {
		return nil
	}
	// Editing a message to identical content is not a failure.
	if strings.Contains(strings.ToLower(err.Error()), "not modified") {
		return nil
	}
	return mapErr(err)
}

func (g *Gateway) DeleteMessage(ctx context.Context, channelID int64, messageID int) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	ref := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: channelID}
	if err := g.bot.Delete(ref); err != nil {
		return mapErr(err)
	}
	return nil
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	wctx := ctx
	var cancel context.CancelFunc
	if g.cfg.Timeout > 0 {
		wctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	return g.limiter.Wait(wctx)
}

func sendOptions(body kit.MessageBody) *tele.SendOptions {
	opt := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: !body.Preview,
	}
	if len(body.Buttons) > 0 {
		rm := &tele.ReplyMarkup{}
		row := make([]tele.Btn, 0, len(body.Buttons))
		for _, b := range body.Buttons {
			row = append(row, tele.Btn{Text: b.Label, URL: b.URL})
		}
		rm.Inline(rm.Row(row...))
		opt.ReplyMarkup = rm
	}
	return opt
}

// mapErr converts provider errors into the transport taxonomy.
// Telebot surfaces distinct API descriptions for missing chats, messages to
// edit, and messages to delete; matching by description keeps the mapping
// stable across telebot versions.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tele.ErrChatNotFound) {
		return errors.Join(kit.ErrNotFound, err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return errors.Join(kit.ErrNotFound, err)
	}
	return err
}
