package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"crypto-summary-bot/internal/config"
	"crypto-summary-bot/internal/session"
	"crypto-summary-bot/internal/store"
	"crypto-summary-bot/internal/summary"
)

const welcomeText = "<b>Welcome to Crypto Summary Bot!</b>\n\n" +
	"This bot provides daily crypto summaries for tracked coins " +
	"with AI-powered analysis, news, and Twitter mentions.\n\n" +
	"<b>To get started, please enter the access password:</b>"

const helpText = "<b>Crypto Summary Bot - Help</b>\n\n" +
	"<b>Commands:</b>\n" +
	"/start - Start the bot\n" +
	"/summary - Get current crypto summary\n" +
	"/coins - List tracked coins\n" +
	"/support - Support the project\n" +
	"/help - Show this help message\n" +
	"/myid - Show your Telegram ID\n\n" +
	"<b>Buttons:</b>\n" +
	"<b>Сводка</b> - Get AI-powered crypto summary\n" +
	"<b>Монеты</b> - View tracked coins\n" +
	"<b>Поддержать</b> - Support the project\n" +
	"<b>Помощь</b> - This help page\n" +
	"<b>Админ</b> - Admin panel (admins only)\n\n" +
	"<b>AI Agent:</b>\n" +
	"Send any text message to chat with the AI about crypto.\n\n" +
	"<b>Scheduled Summaries:</b>\n" +
	"Morning summary: 08:00 MSK\n" +
	"Evening summary: 23:00 MSK"

const passwordPrompt = "Please enter the password first. Use /start"

// Handler routes incoming updates to commands, the auth gate, the admin
// coin conversation and the AI chat fallback.
type Handler struct {
	cfg    *config.Config
	store  store.DataStore
	client *Client
	orch   *summary.Orchestrator
	gen    *summary.Generator
	logger zerolog.Logger
}

// NewHandler wires the update router.
func NewHandler(cfg *config.Config, st store.DataStore, client *Client, orch *summary.Orchestrator, gen *summary.Generator, logger zerolog.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		store:  st,
		client: client,
		orch:   orch,
		gen:    gen,
		logger: logger.With().Str("component", "handler").Logger(),
	}
}

// HandleUpdate dispatches one update. Errors are logged, never returned:
// a failed update must not stop the poll loop.
func (h *Handler) HandleUpdate(ctx context.Context, upd Update) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Interface("panic", r).Msg("update handler panicked")
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		h.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil:
		h.handleMessage(ctx, upd.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		h.handleCommand(ctx, msg, text)
		return
	}
	h.handleText(ctx, msg, text)
}

func (h *Handler) handleCommand(ctx context.Context, msg *Message, text string) {
	cmd := text
	if idx := strings.IndexAny(cmd, " @"); idx > 0 {
		cmd = cmd[:idx]
	}
	switch cmd {
	case "/start":
		h.cmdStart(ctx, msg)
	case "/help":
		h.cmdHelp(ctx, msg)
	case "/summary":
		h.cmdSummary(ctx, msg)
	case "/coins":
		h.cmdCoins(ctx, msg)
	case "/support":
		h.cmdSupport(ctx, msg)
	case "/myid":
		h.cmdMyID(ctx, msg)
	case "/admin":
		h.cmdAdmin(ctx, msg)
	}
}

func (h *Handler) cmdStart(ctx context.Context, msg *Message) {
	uid := msg.From.ID
	if _, err := h.store.GetOrCreateUser(ctx, uid, msg.From.Username, msg.From.FirstName, h.cfg.IsAdmin(uid)); err != nil {
		h.logger.Error().Err(err).Int64("telegram_id", uid).Msg("get or create user failed")
	}
	_ = h.store.LogAction(ctx, uid, "start", "")

	authed, _ := h.store.IsAuthenticated(ctx, uid)
	if !authed {
		h.send(ctx, msg.Chat.ID, welcomeText, nil)
		return
	}
	admin, _ := h.store.IsAdmin(ctx, uid)
	h.send(ctx, msg.Chat.ID,
		"<b>Welcome back!</b>\nUse the menu below or send a message to chat with AI.",
		mainKeyboard(admin))
}

func (h *Handler) cmdHelp(ctx context.Context, msg *Message) {
	if !h.requireAuth(ctx, msg) {
		return
	}
	_ = h.store.LogAction(ctx, msg.From.ID, "help", "")
	h.send(ctx, msg.Chat.ID, helpText, nil)
}

func (h *Handler) cmdSummary(ctx context.Context, msg *Message) {
	if !h.requireAuth(ctx, msg) {
		return
	}
	uid := msg.From.ID
	_ = h.store.LogAction(ctx, uid, "summary", "")

	wait, err := h.client.SendMessage(ctx, msg.Chat.ID, "Generating summary... Please wait.", nil)
	if err != nil {
		h.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("send wait message failed")
		return
	}

	doc := h.orch.BuildSummary(ctx)
	if wait != nil {
		_ = h.client.DeleteMessage(ctx, msg.Chat.ID, wait.MessageID)
	}
	if err := h.client.SendChunked(ctx, msg.Chat.ID, doc.Text()); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("send summary failed")
	}
}

func (h *Handler) cmdCoins(ctx context.Context, msg *Message) {
	if !h.requireAuth(ctx, msg) {
		return
	}
	_ = h.store.LogAction(ctx, msg.From.ID, "coins", "")

	coins, err := h.store.GetActiveCoins(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("list coins failed")
		h.send(ctx, msg.Chat.ID, "Error loading coins.", nil)
		return
	}
	if len(coins) == 0 {
		h.send(ctx, msg.Chat.ID, "No coins are being tracked.", nil)
		return
	}
	var b strings.Builder
	b.WriteString("<b>Tracked Coins:</b>\n\n")
	for _, c := range coins {
		fmt.Fprintf(&b, "- <b>%s</b> (%s)\n", c.Symbol, c.Name)
	}
	h.send(ctx, msg.Chat.ID, b.String(), nil)
}

func (h *Handler) cmdSupport(ctx context.Context, msg *Message) {
	if !h.requireAuth(ctx, msg) {
		return
	}
	_ = h.store.LogAction(ctx, msg.From.ID, "support", "")
	text := "<b>Support the Project</b>\n\n" +
		"If you find this bot useful, consider supporting development!\n\n" +
		"<b>EVM Address (ETH/BSC/Polygon/etc):</b>\n" +
		fmt.Sprintf("<code>%s</code>\n\n", h.cfg.Bot.EVMAddress) +
		"Thank you for your support!"
	h.send(ctx, msg.Chat.ID, text, nil)
}

func (h *Handler) cmdMyID(ctx context.Context, msg *Message) {
	h.send(ctx, msg.Chat.ID, fmt.Sprintf("Your Telegram ID: <code>%d</code>", msg.From.ID), nil)
}

func (h *Handler) cmdAdmin(ctx context.Context, msg *Message) {
	uid := msg.From.ID
	admin, _ := h.store.IsAdmin(ctx, uid)
	if !admin {
		h.send(ctx, msg.Chat.ID, "Access denied. Admin only.", nil)
		return
	}
	_ = h.store.LogAction(ctx, uid, "admin_panel", "")
	_, err := h.client.SendMessage(ctx, msg.Chat.ID, "<b>Admin Panel</b>\nSelect an action:", &SendOptions{
		HTML:        true,
		ReplyMarkup: adminKeyboard(),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("send admin panel failed")
	}
}

// handleText handles non-command text: the password gate first, then the
// admin coin conversation, then keyboard buttons, then the AI chat fallback.
func (h *Handler) handleText(ctx context.Context, msg *Message, text string) {
	uid := msg.From.ID
	if _, err := h.store.GetOrCreateUser(ctx, uid, msg.From.Username, msg.From.FirstName, h.cfg.IsAdmin(uid)); err != nil {
		h.logger.Error().Err(err).Int64("telegram_id", uid).Msg("get or create user failed")
	}

	authed, _ := h.store.IsAuthenticated(ctx, uid)
	if !authed {
		h.handlePassword(ctx, msg, text)
		return
	}

	if h.handleConversation(ctx, msg, text) {
		return
	}

	switch text {
	case BtnSummary:
		h.cmdSummary(ctx, msg)
		return
	case BtnCoins:
		h.cmdCoins(ctx, msg)
		return
	case BtnSupport:
		h.cmdSupport(ctx, msg)
		return
	case BtnHelp:
		h.cmdHelp(ctx, msg)
		return
	case BtnAdmin:
		h.cmdAdmin(ctx, msg)
		return
	}

	h.handleAIQuestion(ctx, msg, text)
}

func (h *Handler) handlePassword(ctx context.Context, msg *Message, text string) {
	uid := msg.From.ID
	if text != h.cfg.Bot.Password {
		_ = h.store.LogAction(ctx, uid, "auth_fail", "")
		h.send(ctx, msg.Chat.ID, "Wrong password. Try again or use /start for instructions.", nil)
		return
	}
	if err := h.store.AuthenticateUser(ctx, uid); err != nil {
		h.logger.Error().Err(err).Int64("telegram_id", uid).Msg("authenticate failed")
		return
	}
	_ = h.store.LogAction(ctx, uid, "auth_success", "")
	admin, _ := h.store.IsAdmin(ctx, uid)
	h.sendPlain(ctx, msg.Chat.ID,
		"Access granted! Welcome!\n\nUse the menu below or send any message to chat with AI.",
		mainKeyboard(admin))
}

// handleConversation advances the persisted add-coin conversation. Returns
// true when the message was consumed by a conversation step.
func (h *Handler) handleConversation(ctx context.Context, msg *Message, text string) bool {
	uid := msg.From.ID
	row, err := h.store.GetSession(ctx, uid)
	if err != nil {
		h.logger.Error().Err(err).Int64("telegram_id", uid).Msg("load session failed")
		return false
	}
	if row == nil {
		return false
	}
	sess := session.Session{State: session.State(row.State), Symbol: row.Symbol, Name: row.Name}

	switch sess.State {
	case session.AwaitingSymbol:
		symbol := strings.ToUpper(text)
		if err := sess.Advance(session.AwaitingName); err != nil {
			h.resetSession(ctx, uid)
			return false
		}
		sess.Symbol = symbol
		if err := h.store.SaveSession(ctx, uid, string(sess.State), sess.Symbol, ""); err != nil {
			h.logger.Error().Err(err).Msg("save session failed")
		}
		h.send(ctx, msg.Chat.ID, fmt.Sprintf("Symbol: <b>%s</b>\nNow enter the coin <b>name</b>:", symbol), nil)
		return true

	case session.AwaitingName:
		if err := sess.Advance(session.AwaitingSlug); err != nil {
			h.resetSession(ctx, uid)
			return false
		}
		sess.Name = text
		if err := h.store.SaveSession(ctx, uid, string(sess.State), sess.Symbol, sess.Name); err != nil {
			h.logger.Error().Err(err).Msg("save session failed")
		}
		h.send(ctx, msg.Chat.ID,
			fmt.Sprintf("Name: <b>%s</b>\nEnter the CoinMarketCap <b>slug</b> (e.g., bitcoin), or \"-\" to skip:", sess.Name), nil)
		return true

	case session.AwaitingSlug:
		slug := strings.ToLower(strings.TrimSpace(text))
		if slug == "-" {
			slug = ""
		}
		if err := h.store.AddCoin(ctx, sess.Symbol, sess.Name, slug); err != nil {
			h.logger.Error().Err(err).Str("symbol", sess.Symbol).Msg("add coin failed")
			h.send(ctx, msg.Chat.ID, "Error adding coin.", nil)
			h.resetSession(ctx, uid)
			return true
		}
		_ = h.store.LogAction(ctx, uid, "admin_add_coin", fmt.Sprintf("%s - %s", sess.Symbol, sess.Name))
		h.resetSession(ctx, uid)
		h.send(ctx, msg.Chat.ID,
			fmt.Sprintf("Coin <b>%s</b> (%s) added!", sess.Symbol, sess.Name),
			mainKeyboard(true))
		return true
	}
	return false
}

func (h *Handler) resetSession(ctx context.Context, uid int64) {
	if err := h.store.ClearSession(ctx, uid); err != nil {
		h.logger.Error().Err(err).Int64("telegram_id", uid).Msg("clear session failed")
	}
}

func (h *Handler) handleAIQuestion(ctx context.Context, msg *Message, text string) {
	uid := msg.From.ID
	details := text
	if len(details) > 100 {
		details = details[:100]
	}
	_ = h.store.LogAction(ctx, uid, "ai_question", details)

	wait, err := h.client.SendMessage(ctx, msg.Chat.ID, "Thinking...", nil)
	if err != nil {
		h.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("send wait message failed")
		return
	}
	answer := h.gen.Ask(ctx, text, "")
	if wait != nil {
		_ = h.client.DeleteMessage(ctx, msg.Chat.ID, wait.MessageID)
	}
	if err := h.client.SendChunked(ctx, msg.Chat.ID, answer); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("send AI reply failed")
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *CallbackQuery) {
	_ = h.client.AnswerCallbackQuery(ctx, cb.ID)
	uid := cb.From.ID
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID

	admin, _ := h.store.IsAdmin(ctx, uid)
	if !admin {
		_ = h.client.EditMessageText(ctx, chatID, msgID, "Access denied.", nil)
		return
	}

	switch {
	case cb.Data == cbRunSummary:
		_ = h.store.LogAction(ctx, uid, "admin_run_summary", "")
		_ = h.client.EditMessageText(ctx, chatID, msgID, "Generating summary... Please wait.", nil)
		doc := h.orch.BuildSummary(ctx)
		if err := h.client.SendChunked(ctx, chatID, doc.Text()); err != nil {
			h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send admin summary failed")
		}

	case cb.Data == cbAnalytics:
		_ = h.store.LogAction(ctx, uid, "admin_analytics", "")
		h.showAnalytics(ctx, chatID, msgID)

	case cb.Data == cbUsers:
		_ = h.store.LogAction(ctx, uid, "admin_users_list", "")
		h.showUsers(ctx, chatID, msgID)

	case cb.Data == cbAddCoin:
		if err := h.store.SaveSession(ctx, uid, string(session.AwaitingSymbol), "", ""); err != nil {
			h.logger.Error().Err(err).Msg("save session failed")
			return
		}
		_ = h.client.EditMessageText(ctx, chatID, msgID, "Enter the coin <b>symbol</b> (e.g., BTC, ETH):", nil)

	case cb.Data == cbRemoveCoin:
		h.showRemoveCoinMenu(ctx, chatID, msgID)

	case strings.HasPrefix(cb.Data, cbRemovePrefix):
		symbol := strings.TrimPrefix(cb.Data, cbRemovePrefix)
		if err := h.store.RemoveCoin(ctx, symbol); err != nil {
			h.logger.Error().Err(err).Str("symbol", symbol).Msg("remove coin failed")
			_ = h.client.EditMessageText(ctx, chatID, msgID, "Error removing coin.", nil)
			return
		}
		_ = h.store.LogAction(ctx, uid, "admin_remove_coin", symbol)
		_ = h.client.EditMessageText(ctx, chatID, msgID, fmt.Sprintf("Coin <b>%s</b> removed.", symbol), nil)

	case cb.Data == cbCancel:
		h.resetSession(ctx, uid)
		_ = h.client.EditMessageText(ctx, chatID, msgID, "Cancelled.", nil)
	}
}

func (h *Handler) showAnalytics(ctx context.Context, chatID, msgID int64) {
	stats, err := h.store.GetAnalytics(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("analytics query failed")
		_ = h.client.EditMessageText(ctx, chatID, msgID, "Error loading analytics.", nil)
		return
	}
	var b strings.Builder
	b.WriteString("<b>User Analytics</b>\n\n")
	fmt.Fprintf(&b, "Total users: %d\n", stats.TotalUsers)
	fmt.Fprintf(&b, "Authenticated: %d\n", stats.AuthenticatedUsers)
	fmt.Fprintf(&b, "Active 24h: %d\n", stats.Active24h)
	fmt.Fprintf(&b, "Active 7d: %d\n", stats.Active7d)
	fmt.Fprintf(&b, "Active 30d: %d\n", stats.Active30d)
	fmt.Fprintf(&b, "Actions today: %d\n\n", stats.ActionsToday)
	b.WriteString("<b>Top actions (7d):</b>\n")
	for _, a := range stats.TopActionsWeek {
		fmt.Fprintf(&b, "  %s: %d\n", a.Action, a.Count)
	}
	_ = h.client.EditMessageText(ctx, chatID, msgID, b.String(), nil)
}

func (h *Handler) showUsers(ctx context.Context, chatID, msgID int64) {
	users, err := h.store.ListUsers(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("users query failed")
		_ = h.client.EditMessageText(ctx, chatID, msgID, "Error loading users.", nil)
		return
	}
	if len(users) == 0 {
		_ = h.client.EditMessageText(ctx, chatID, msgID, "No users yet.", nil)
		return
	}
	var b strings.Builder
	b.WriteString("<b>All Users:</b>\n\n")
	shown := users
	if len(shown) > 50 {
		shown = shown[:50]
	}
	for _, u := range shown {
		name := u.DisplayName()
		if name == "" {
			name = fmt.Sprintf("%d", u.TelegramID)
		}
		status := "pending"
		if u.Admin {
			status = "admin"
		} else if u.Authenticated {
			status = "auth"
		}
		fmt.Fprintf(&b, "- %s (ID: <code>%d</code>) [%s]\n", name, u.TelegramID, status)
	}
	if len(users) > 50 {
		fmt.Fprintf(&b, "\n... and %d more", len(users)-50)
	}
	_ = h.client.EditMessageText(ctx, chatID, msgID, b.String(), nil)
}

func (h *Handler) showRemoveCoinMenu(ctx context.Context, chatID, msgID int64) {
	coins, err := h.store.GetActiveCoins(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("list coins failed")
		_ = h.client.EditMessageText(ctx, chatID, msgID, "Error loading coins.", nil)
		return
	}
	if len(coins) == 0 {
		_ = h.client.EditMessageText(ctx, chatID, msgID, "No coins to remove.", nil)
		return
	}
	var rows [][]InlineKeyboardButton
	for _, c := range coins {
		rows = append(rows, []InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s - %s", c.Symbol, c.Name),
			CallbackData: cbRemovePrefix + c.Symbol,
		}})
	}
	rows = append(rows, []InlineKeyboardButton{{Text: "Cancel", CallbackData: cbCancel}})
	_ = h.client.EditMessageText(ctx, chatID, msgID, "Select coin to remove:", &InlineKeyboardMarkup{InlineKeyboard: rows})
}

// requireAuth gates a command behind the password prompt.
func (h *Handler) requireAuth(ctx context.Context, msg *Message) bool {
	authed, err := h.store.IsAuthenticated(ctx, msg.From.ID)
	if err != nil {
		h.logger.Error().Err(err).Int64("telegram_id", msg.From.ID).Msg("auth check failed")
		return false
	}
	if !authed {
		h.sendPlain(ctx, msg.Chat.ID, passwordPrompt, nil)
		return false
	}
	return true
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, markup interface{}) {
	if _, err := h.client.SendMessage(ctx, chatID, text, &SendOptions{HTML: true, ReplyMarkup: markup}); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (h *Handler) sendPlain(ctx context.Context, chatID int64, text string, markup interface{}) {
	if _, err := h.client.SendMessage(ctx, chatID, text, &SendOptions{ReplyMarkup: markup}); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}
