package notification

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/raykavin/factorlab/pkg/logger"
	"github.com/raykavin/factorlab/pkg/storage"
	tb "gopkg.in/tucnak/telebot.v2"
)

const pollingTimeout = 10 * time.Second

// TelegramSettings configures the telegram notifier.
type TelegramSettings struct {
	Token string
	Users []int // telegram user IDs allowed to talk to the bot
}

// Telegram delivers notifications through a telegram bot and answers a small
// set of query commands against the run storage.
type Telegram struct {
	settings TelegramSettings
	store    storage.Storage
	client   *tb.Bot
	log      logger.Logger
}

// Option is a function that configures a telegram instance
type Option func(t *Telegram)

// WithStorage lets the bot answer /runs and /ic queries.
func WithStorage(store storage.Storage) Option {
	return func(t *Telegram) { t.store = store }
}

// NewTelegram creates and initializes a new Telegram service
func NewTelegram(settings TelegramSettings, log logger.Logger, options ...Option) (*Telegram, error) {
	poller := &tb.LongPoller{Timeout: pollingTimeout}
	userMiddleware := newAuthMiddleware(poller, settings, log)

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Token,
		Poller:    userMiddleware,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	if err := setupCommands(client); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	bot := &Telegram{
		settings: settings,
		client:   client,
		log:      log,
	}
	for _, option := range options {
		option(bot)
	}

	registerHandlers(client, bot)
	return bot, nil
}

// newAuthMiddleware creates a middleware to validate authorized users
func newAuthMiddleware(poller *tb.LongPoller, settings TelegramSettings, log logger.Logger) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			log.Error("message or sender is nil ", u)
			return false
		}

		if slices.Contains(settings.Users, int(u.Message.Sender.ID)) {
			return true
		}

		log.Error("unauthorized user ", u.Message.Sender.ID)
		return false
	})
}

// setupCommands configures available bot commands
func setupCommands(client *tb.Bot) error {
	return client.SetCommands([]tb.Command{
		{Text: "/help", Description: "Display help instructions"},
		{Text: "/runs", Description: "List stored analysis runs"},
		{Text: "/ic", Description: "Show the IC table of a run"},
	})
}

// registerHandlers registers all command handlers
func registerHandlers(client *tb.Bot, bot *Telegram) {
	client.Handle("/help", bot.HelpHandle)
	client.Handle("/runs", bot.RunsHandle)
	client.Handle("/ic", bot.ICHandle)
}

// Start begins polling and greets the authorized users.
func (t *Telegram) Start() {
	go t.client.Start()
	t.Notify("factorlab notifier online")
}

// Notify sends a message to all authorized users
func (t *Telegram) Notify(text string) {
	for _, user := range t.settings.Users {
		if _, err := t.client.Send(&tb.User{ID: int64(user)}, text); err != nil {
			t.log.WithError(err).Error("failed to send notification")
		}
	}
}

// OnError reports an error to all authorized users
func (t *Telegram) OnError(err error) {
	t.Notify(fmt.Sprintf("🚨 analysis error: %v", err))
}

func (t *Telegram) sendMessage(to *tb.User, text string) {
	if _, err := t.client.Send(to, text); err != nil {
		t.log.WithError(err).Error("failed to send message")
	}
}

// HelpHandle displays available commands
func (t *Telegram) HelpHandle(m *tb.Message) {
	commands, err := t.client.GetCommands()
	if err != nil {
		t.log.WithError(err).Error("failed to get commands")
		t.OnError(err)
		return
	}

	lines := make([]string, 0, len(commands))
	for _, command := range commands {
		lines = append(lines, fmt.Sprintf("%s - %s", command.Text, command.Description))
	}
	t.sendMessage(m.Sender, strings.Join(lines, "\n"))
}

// RunsHandle lists the stored analysis runs
func (t *Telegram) RunsHandle(m *tb.Message) {
	if t.store == nil {
		t.sendMessage(m.Sender, "No run storage configured.")
		return
	}
	runs, err := t.store.Runs(context.Background())
	if err != nil {
		t.OnError(err)
		return
	}
	if len(runs) == 0 {
		t.sendMessage(m.Sender, "No runs stored.")
		return
	}

	lines := make([]string, 0, len(runs))
	for _, run := range runs {
		lines = append(lines, fmt.Sprintf("%d. %s (%d facs, %s)",
			run.ID, run.Name, len(run.Facs), run.CreatedAt.Format("2006-01-02 15:04")))
	}
	t.sendMessage(m.Sender, strings.Join(lines, "\n"))
}

// ICHandle replies with the IC table of the named run
func (t *Telegram) ICHandle(m *tb.Message) {
	if t.store == nil {
		t.sendMessage(m.Sender, "No run storage configured.")
		return
	}
	name := strings.TrimSpace(m.Payload)
	if name == "" {
		t.sendMessage(m.Sender, "Usage: /ic <run name>")
		return
	}
	runs, err := t.store.Runs(context.Background(), storage.WithName(name))
	if err != nil {
		t.OnError(err)
		return
	}
	if len(runs) == 0 {
		t.sendMessage(m.Sender, fmt.Sprintf("Run %q not found.", name))
		return
	}

	ic, ok := runs[len(runs)-1].Tables["ic"]
	if !ok {
		t.sendMessage(m.Sender, fmt.Sprintf("Run %q has no IC table.", name))
		return
	}
	t.sendMessage(m.Sender, fmt.Sprintf("```\n%s\n```", ic))
}
