package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"smoothie-orders/internal/config"
	"smoothie-orders/internal/form"
	"smoothie-orders/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// messenger is the subset of *tgbotapi.BotAPI the bot uses.
type messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// sessionStore persists the form state of each chat user.
type sessionStore interface {
	Load(ctx context.Context, key string) (form.State, error)
	Save(ctx context.Context, key string, st form.State) error
}

// Bot wraps the Telegram API and the order form.
type Bot struct {
	api          messenger
	form         *form.Service
	sessions     sessionStore
	metricsStore *metrics.Store
	cfg          *config.Config
	logger       *zap.Logger

	// One update at a time per user; the form is not safe to render concurrently for one session.
	locks sync.Map
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	formSvc *form.Service,
	sessions sessionStore,
	metricsStore *metrics.Store,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("response", resp.Description))

	return newBot(api, cfg, formSvc, sessions, metricsStore, logger), nil
}

func newBot(api messenger, cfg *config.Config, formSvc *form.Service, sessions sessionStore, metricsStore *metrics.Store, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:          api,
		form:         formSvc,
		sessions:     sessions,
		metricsStore: metricsStore,
		cfg:          cfg,
		logger:       logger,
	}
}

// RegisterHandlers registers the webhook, health and metrics handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", metrics.Handler())
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		return
	}

	go b.processUpdate(context.Background(), update)
}

func (b *Bot) processUpdate(ctx context.Context, update *tgbotapi.Update) {
	var from *tgbotapi.User
	switch {
	case update.CallbackQuery != nil:
		from = update.CallbackQuery.From
	case update.Message != nil:
		from = update.Message.From
	}
	if from == nil {
		return
	}

	if !b.cfg.AllowsTelegramUser(from.ID) {
		b.logger.Warn("unauthorized access attempt", zap.Int64("user_id", from.ID), zap.String("username", from.UserName))
		return
	}

	lock, _ := b.locks.LoadOrStore(from.ID, &sync.Mutex{})
	lock.(*sync.Mutex).Lock()
	defer lock.(*sync.Mutex).Unlock()

	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	b.handleMessage(ctx, update.Message)
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("tg:%d", userID)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	key := sessionKey(msg.From.ID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			if err := b.sessions.Save(ctx, key, form.State{}); err != nil {
				b.logger.Error("failed to reset session", zap.String("session", key), zap.Error(err))
			}
			b.sendForm(ctx, msg.Chat.ID, key, form.ActionView)
		case "name":
			b.updateName(ctx, msg.Chat.ID, key, msg.CommandArguments())
		case "metrics":
			b.handleMetricsRequest(ctx, msg)
		default:
			b.send(tgbotapi.NewMessage(msg.Chat.ID, helpText))
		}
		return
	}

	b.updateName(ctx, msg.Chat.ID, key, msg.Text)
}

const helpText = "Send /start to build a smoothie, then send your name as a message and pick up to 5 fruits."

func (b *Bot) updateName(ctx context.Context, chatID int64, key, name string) {
	st, err := b.sessions.Load(ctx, key)
	if err != nil {
		b.logger.Error("failed to load session", zap.String("session", key), zap.Error(err))
	}
	st.SetName(name)
	if err := b.sessions.Save(ctx, key, st); err != nil {
		b.logger.Error("failed to save session", zap.String("session", key), zap.Error(err))
	}
	b.sendForm(ctx, chatID, key, form.ActionView)
}

// sendForm renders the session's form as a new message.
func (b *Bot) sendForm(ctx context.Context, chatID int64, key string, act form.Action) {
	st, err := b.sessions.Load(ctx, key)
	if err != nil {
		b.logger.Error("failed to load session", zap.String("session", key), zap.Error(err))
	}
	view := b.form.Render(ctx, &st, act)
	if err := b.sessions.Save(ctx, key, st); err != nil {
		b.logger.Error("failed to save session", zap.String("session", key), zap.Error(err))
	}

	msg := tgbotapi.NewMessage(chatID, formatViewMarkdown(view))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = buildKeyboard(view)
	b.send(msg)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	key := sessionKey(query.From.ID)
	action, payload, _ := strings.Cut(query.Data, "|")

	st, err := b.sessions.Load(ctx, key)
	if err != nil {
		b.logger.Error("failed to load session", zap.String("session", key), zap.Error(err))
	}

	act := form.ActionView
	switch action {
	case actionToggle:
		if err := st.Toggle(payload); err != nil {
			// Rejected selections leave the message untouched.
			text := err.Error()
			if errors.Is(err, form.ErrSelectionLimit) {
				text = "You can choose up to 5 ingredients. Remove one first."
			}
			b.request(tgbotapi.NewCallbackWithAlert(query.ID, text))
			return
		}
	case actionSubmit:
		act = form.ActionSubmit
	case actionNutrition:
		st.ShowNutrition = !st.ShowNutrition
	case actionReset:
		st.Reset()
	case actionRefresh:
	default:
		b.request(tgbotapi.NewCallback(query.ID, ""))
		return
	}

	// Answer callback to remove spinner
	b.request(tgbotapi.NewCallback(query.ID, ""))

	view := b.form.Render(ctx, &st, act)
	if err := b.sessions.Save(ctx, key, st); err != nil {
		b.logger.Error("failed to save session", zap.String("session", key), zap.Error(err))
	}

	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, formatViewMarkdown(view))
	edit.ParseMode = tgbotapi.ModeMarkdown
	keyboard := buildKeyboard(view)
	edit.ReplyMarkup = &keyboard
	b.send(edit)
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if b.cfg.AdminTelegramID == 0 || msg.From.ID != b.cfg.AdminTelegramID {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "⛔ Access denied: admin only."))
		return
	}
	if b.metricsStore == nil {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "❌ Metrics are not enabled."))
		return
	}

	usage, err := b.metricsStore.GetDailyUsage(ctx, 7)
	if err != nil {
		b.logger.Error("failed to fetch metrics", zap.Error(err))
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "❌ Error fetching metrics."))
		return
	}

	report := tgbotapi.NewMessage(msg.Chat.ID, formatMetricsMarkdown(usage, metrics.GetSysHealth(dataPath(b.cfg))))
	report.ParseMode = tgbotapi.ModeMarkdown
	b.send(report)
}

// dataPath is the directory whose size the health report shows.
func dataPath(cfg *config.Config) string {
	if cfg.DatabaseDriver == "sqlite" {
		return cfg.DatabaseURL
	}
	return "data"
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("failed to send telegram message", zap.Error(err))
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.logger.Warn("failed to answer telegram callback", zap.Error(err))
	}
}
