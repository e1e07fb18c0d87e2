package telegram

import (
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	auth "github.com/goliatone/go-phone-auth"
)

const (
	actionApprove = "approve"
	actionReject  = "reject"
)

const (
	textPrompt         = "Someone is signing in with your phone number.\nWas it you?"
	textApproved       = "Sign-in approved. You can return to the app."
	textRejected       = "Sign-in rejected."
	textExpired        = "This sign-in request has expired."
	textHandled        = "This sign-in request was already handled."
	textMissing        = "This sign-in request no longer exists."
	textNotYours       = "This sign-in request belongs to another account."
	textFailed         = "Something went wrong, please try again."
	textUnknownAction  = "Unknown action."
	textWelcome        = "Your phone number is linked. Sign-in requests will show up here."
	textSharePhone     = "Share your phone number to link this chat to your account."
	textForeignContact = "Please share your own contact, not someone else's."
	textLinked         = "Thanks, your phone number is linked."

	buttonApprove    = "Approve"
	buttonReject     = "Reject"
	buttonSharePhone = "Share phone number"
)

func callbackData(action, sessionID string) string {
	return action + ":" + sessionID
}

func parseCallbackData(data string) (action, sessionID string, ok bool) {
	action, sessionID, ok = strings.Cut(data, ":")
	if !ok || sessionID == "" {
		return "", "", false
	}
	switch action {
	case actionApprove, actionReject:
		return action, sessionID, true
	}
	return "", "", false
}

func approvalKeyboard(sessionID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonApprove, callbackData(actionApprove, sessionID)),
			tgbotapi.NewInlineKeyboardButtonData(buttonReject, callbackData(actionReject, sessionID)),
		),
	)
}

func sharePhoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact(buttonSharePhone),
		),
	)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true
	return keyboard
}

// outcomeText is the text a prompt is edited to once the button was used.
// Unexpected errors come back so the caller can log them.
func outcomeText(action string, err error) (string, error) {
	switch {
	case err == nil && action == actionApprove:
		return textApproved, nil
	case err == nil:
		return textRejected, nil
	case errors.Is(err, auth.ErrSessionExpired):
		return textExpired, nil
	case errors.Is(err, auth.ErrIdentityMismatch):
		return textNotYours, nil
	case auth.IsInvalidState(err):
		return textHandled, nil
	case auth.IsNotFound(err):
		return textMissing, nil
	}
	return textFailed, err
}
