package waclient

import (
	"errors"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// legacyUserServer is the user suffix used by whatsapp-web.js based tooling.
const legacyUserServer = "c.us"

var ErrInvalidChatID = errors.New("invalid chat id")

// ParseChatID accepts "628123@c.us", native JIDs ("628123@s.whatsapp.net",
// "1203...@g.us") and bare phone numbers ("+62 812-3").
func ParseChatID(raw string) (types.JID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.JID{}, ErrInvalidChatID
	}
	if !strings.Contains(raw, "@") {
		number := normalizeNumber(raw)
		if number == "" {
			return types.JID{}, fmt.Errorf("%w: %q", ErrInvalidChatID, raw)
		}
		return types.NewJID(number, types.DefaultUserServer), nil
	}
	if user, ok := strings.CutSuffix(raw, "@"+legacyUserServer); ok {
		number := normalizeNumber(user)
		if number == "" {
			return types.JID{}, fmt.Errorf("%w: %q", ErrInvalidChatID, raw)
		}
		return types.NewJID(number, types.DefaultUserServer), nil
	}
	jid, err := types.ParseJID(raw)
	if err != nil {
		return types.JID{}, fmt.Errorf("%w: %v", ErrInvalidChatID, err)
	}
	if jid.User == "" || jid.Server == "" {
		return types.JID{}, fmt.Errorf("%w: %q", ErrInvalidChatID, raw)
	}
	return jid, nil
}

// FormatChatID renders jid the way downstream tooling expects chat ids:
// personal chats use the legacy c.us suffix, everything else the native form.
func FormatChatID(jid types.JID) string {
	jid = jid.ToNonAD()
	if jid.Server == types.DefaultUserServer {
		return jid.User + "@" + legacyUserServer
	}
	return jid.String()
}

func normalizeNumber(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return ""
		}
	}
	return b.String()
}
