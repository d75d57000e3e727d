package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"smoothie-orders/internal/config"
	"smoothie-orders/internal/form"
	"smoothie-orders/internal/fruit"
	"smoothie-orders/internal/nutrition"
	"smoothie-orders/internal/order"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Telegram API ---
type mockAPI struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sent = append(m.sent, c)
	return tgbotapi.Message{MessageID: len(m.sent)}, nil
}

func (m *mockAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.requested = append(m.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockAPI) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) {
	var update tgbotapi.Update
	err := json.NewDecoder(r.Body).Decode(&update)
	return &update, err
}

type memorySessions map[string]form.State

func (m memorySessions) Load(ctx context.Context, key string) (form.State, error) {
	return m[key], nil
}

func (m memorySessions) Save(ctx context.Context, key string, st form.State) error {
	m[key] = st
	return nil
}

type staticFruits []fruit.Option

func (s staticFruits) List(ctx context.Context) ([]fruit.Option, error) { return s, nil }

type recordingOrders struct{ inserted []order.Request }

func (r *recordingOrders) Insert(ctx context.Context, req order.Request) (order.Order, error) {
	r.inserted = append(r.inserted, req)
	return order.Order{ID: 1, NameOnOrder: req.Name, Ingredients: order.JoinIngredients(req.Ingredients)}, nil
}

type noFacts struct{}

func (noFacts) Lookup(ctx context.Context, key string) (*nutrition.Facts, error) {
	return nil, nutrition.ErrNotFound
}

const userID int64 = 99

func newTestBot(t *testing.T, allowed ...int64) (*Bot, *mockAPI, memorySessions, *recordingOrders) {
	t.Helper()
	fruits := staticFruits{{Name: "Apples"}, {Name: "Banana"}, {Name: "Cherries"}, {Name: "Dates"}, {Name: "Figs"}, {Name: "Kiwi"}}
	orders := &recordingOrders{}
	svc := form.NewService(fruits, orders, noFacts{}, fruit.PolicyHeuristic, nil, false, nil)
	api := &mockAPI{}
	sessions := memorySessions{}
	cfg := &config.Config{TelegramAllowedUserIDs: allowed, AdminTelegramID: 1}
	return newBot(api, cfg, svc, sessions, nil, nil), api, sessions, orders
}

func textMessage(text string) *tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: userID, UserName: "ana"},
		Chat:      &tgbotapi.Chat{ID: 500},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return &tgbotapi.Update{Message: msg}
}

func callback(data string) *tgbotapi.Update {
	return &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 10, Chat: &tgbotapi.Chat{ID: 500}},
		Data:    data,
	}}
}

func TestBotOrderFlow(t *testing.T) {
	ctx := context.Background()
	bot, api, sessions, orders := newTestBot(t)
	key := sessionKey(userID)

	bot.processUpdate(ctx, textMessage("/start"))
	require.Len(t, api.sent, 1)
	start, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, start.Text, "Customize Your Smoothie")

	bot.processUpdate(ctx, textMessage("Ana"))
	assert.Equal(t, "Ana", sessions[key].Name)

	bot.processUpdate(ctx, callback("t|Kiwi"))
	bot.processUpdate(ctx, callback("t|Apples"))
	assert.Equal(t, []string{"Kiwi", "Apples"}, sessions[key].Selected)

	last, ok := api.sent[len(api.sent)-1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Contains(t, last.Text, "*Ingredients (2/5):* Kiwi, Apples")
	require.NotNil(t, last.ReplyMarkup)

	bot.processUpdate(ctx, callback("s|"))
	require.Len(t, orders.inserted, 1)
	assert.Equal(t, "Ana", orders.inserted[0].Name)
	assert.Equal(t, []string{"Kiwi", "Apples"}, orders.inserted[0].Ingredients)

	last = api.sent[len(api.sent)-1].(tgbotapi.EditMessageTextConfig)
	assert.Contains(t, last.Text, "Your Smoothie is ordered, Ana!")
	assert.Empty(t, sessions[key].Selected)
}

func TestBotRejectsSixthIngredient(t *testing.T) {
	ctx := context.Background()
	bot, api, sessions, _ := newTestBot(t)
	key := sessionKey(userID)

	for _, f := range []string{"Apples", "Banana", "Cherries", "Dates", "Figs"} {
		bot.processUpdate(ctx, callback("t|"+f))
	}
	sentBefore := len(api.sent)

	bot.processUpdate(ctx, callback("t|Kiwi"))
	assert.Len(t, sessions[key].Selected, 5)
	assert.Equal(t, sentBefore, len(api.sent), "rejected toggle must not edit the form")

	answer, ok := api.requested[len(api.requested)-1].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.True(t, answer.ShowAlert)
	assert.Contains(t, answer.Text, "up to 5")
}

func TestBotIgnoresUnauthorizedUsers(t *testing.T) {
	bot, api, sessions, _ := newTestBot(t, 12345)

	bot.processUpdate(context.Background(), textMessage("/start"))
	assert.Empty(t, api.sent)
	assert.Empty(t, sessions)
}

func TestBotMetricsIsAdminOnly(t *testing.T) {
	bot, api, _, _ := newTestBot(t)

	bot.processUpdate(context.Background(), textMessage("/metrics"))
	require.Len(t, api.sent, 1)
	assert.Contains(t, api.sent[0].(tgbotapi.MessageConfig).Text, "admin only")
}
