package shell

import (
	apperrors "github.com/mmynk/flatearth/internal/errors"
)

// Notice kinds.
const (
	KindAuth       = "auth"
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindTransport  = "transport"
	KindStore      = "store"
	KindUnknown    = "error"
)

// Notice is the single user-visible message left by a failed action.
type Notice struct {
	Kind    string
	Message string
}

var genericMessages = map[string]string{
	"search":       "Search failed. Please try again.",
	"sign up":      "Sign up failed. Please try again.",
	"sign in":      "Sign in failed. Please try again.",
	"submit":       "Could not post your review. Please try again.",
	"load reviews": "Could not load reviews.",
	"restore":      "Please sign in again.",
}

// noticeFor builds the notice for err. Only auth failures carry the
// provider's message; everything else reads the same generic text.
func noticeFor(action string, err error) Notice {
	kind := kindName(apperrors.KindOf(err))
	if kind == KindAuth {
		if msg := apperrors.MessageOf(err); msg != "" {
			return Notice{Kind: kind, Message: msg}
		}
	}
	msg, ok := genericMessages[action]
	if !ok {
		msg = "Something went wrong. Please try again."
	}
	return Notice{Kind: kind, Message: msg}
}

func kindName(kind error) string {
	switch kind {
	case apperrors.ErrAuth:
		return KindAuth
	case apperrors.ErrValidation:
		return KindValidation
	case apperrors.ErrNotFound:
		return KindNotFound
	case apperrors.ErrTransport:
		return KindTransport
	case apperrors.ErrStore:
		return KindStore
	default:
		return KindUnknown
	}
}
