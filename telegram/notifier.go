package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-phone-auth"
)

// Sender is the part of *tgbotapi.BotAPI used to talk to chats
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Notifier sends approval prompts with approve/reject buttons. Private
// chats share their id with the user, so identity ids are used as chat ids.
type Notifier struct {
	sender Sender
	logger auth.Logger
}

var _ auth.Notifier = (*Notifier)(nil)

func NewNotifier(sender Sender, logger auth.Logger) *Notifier {
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	return &Notifier{
		sender: sender,
		logger: logger,
	}
}

// NotifyApprovalRequested implements auth.Notifier.
func (n *Notifier) NotifyApprovalRequested(ctx context.Context, identityID int64, sessionID string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if err := n.Prompt(identityID, sessionID); err != nil {
		return false, err
	}
	return true, nil
}

// Prompt sends the approval message for sessionID to chatID
func (n *Notifier) Prompt(chatID int64, sessionID string) error {
	msg := tgbotapi.NewMessage(chatID, textPrompt)
	msg.ReplyMarkup = approvalKeyboard(sessionID)

	if _, err := n.sender.Send(msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send approval prompt")
	}
	return nil
}

// Edit replaces the text of a sent message and drops its buttons
func (n *Notifier) Edit(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := n.sender.Send(edit); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to edit message")
	}
	return nil
}

func (n *Notifier) text(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := n.sender.Send(msg); err != nil {
		n.logger.Warn("telegram send to %d: %v", chatID, err)
	}
}

func (n *Notifier) answer(callbackID, text string) {
	if callbackID == "" {
		return
	}
	if _, err := n.sender.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		n.logger.Debug("telegram answer callback: %v", err)
	}
}
