// Package telegram sends pipeline run notifications via the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/finsent/internal/logger"
	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/retry"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications.
type Client struct {
	bot    sender
	chatID int64
	policy retry.Policy
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatIDInt, maxRetries, retryDelayBase), nil
}

func newClient(bot sender, chatID int64, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		bot:    bot,
		chatID: chatID,
		policy: retry.Policy{
			MaxAttempts: maxRetries,
			Delay:       retryDelayBase,
			Linear:      true,
			OnRetry: func(attempt int, err error, wait time.Duration) {
				logger.Debug("Telegram send attempt %d failed, retrying in %v: %v", attempt, wait, err)
			},
		},
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"
	_, err := retry.Do(ctx, c.policy, retry.Always, func(context.Context) (tgbotapi.Message, error) {
		return c.bot.Send(msg)
	})
	return err
}

// SendRun reports a finished stage run. Extra lines are appended verbatim
// after escaping.
func (c *Client) SendRun(ctx context.Context, run *models.StageRun, extra ...string) error {
	return c.sendMarkdownV2(ctx, formatRun(run, extra))
}

// SendEvaluation reports the headline numbers of an evaluation.
func (c *Client) SendEvaluation(ctx context.Context, e models.EvaluationSummary) error {
	return c.sendMarkdownV2(ctx, formatEvaluation(e))
}

func formatRun(run *models.StageRun, extra []string) string {
	icon := "✅"
	switch run.Status {
	case models.RunFailed:
		icon = "⚠️"
	case models.RunPartial:
		icon = "🟡"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* %s\n", icon, escapeMarkdownV2(run.Stage), escapeMarkdownV2(run.Status))
	fmt.Fprintf(&b, "🆔 `%s`\n", escapeMarkdownV2(run.ID))
	fmt.Fprintf(&b, "📄 %s → %s\n", escapeMarkdownV2(run.Input), escapeMarkdownV2(run.Output))
	fmt.Fprintf(&b, "processed %d, skipped %d \\(%s\\)\n",
		run.Processed, run.Skipped, escapeMarkdownV2(fmt.Sprintf("%.2f%%", run.SkipRatio()*100)))
	fmt.Fprintf(&b, "⏱ %s\n", escapeMarkdownV2(run.Duration.Round(time.Millisecond).String()))
	if run.Error != "" {
		fmt.Fprintf(&b, "`%s`\n", escapeMarkdownV2(run.Error))
	}
	for _, line := range extra {
		b.WriteString(escapeMarkdownV2(line))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatEvaluation(e models.EvaluationSummary) string {
	return fmt.Sprintf("📊 *Evaluation* `%s`\nmatched %d\nmacro F1 %s\naccuracy %s\nECE %s \\(%d bins\\)\n",
		escapeMarkdownV2(e.RunID), e.Matched,
		escapeMarkdownV2(fmt.Sprintf("%.3f", e.MacroF1)),
		escapeMarkdownV2(fmt.Sprintf("%.3f", e.Accuracy)),
		escapeMarkdownV2(fmt.Sprintf("%.3f", e.ECE)), e.Bins)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
