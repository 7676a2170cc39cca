package waclient

import (
	"errors"
	"testing"

	"go.mau.fi/whatsmeow/types"
)

func TestParseChatID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "6281234567890@c.us", want: "6281234567890@s.whatsapp.net"},
		{in: "6281234567890@s.whatsapp.net", want: "6281234567890@s.whatsapp.net"},
		{in: "120363012345678901@g.us", want: "120363012345678901@g.us"},
		{in: "  6281234567890 ", want: "6281234567890@s.whatsapp.net"},
		{in: "+62 812-3456-7890", want: "6281234567890@s.whatsapp.net"},
	}
	for _, tc := range cases {
		got, err := ParseChatID(tc.in)
		if err != nil {
			t.Fatalf("ParseChatID(%q) error = %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("ParseChatID(%q) = %q, want %q", tc.in, got.String(), tc.want)
		}
	}
}

func TestParseChatIDRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "budi", "abc@c.us", "@c.us"} {
		if _, err := ParseChatID(in); !errors.Is(err, ErrInvalidChatID) {
			t.Fatalf("ParseChatID(%q) error = %v, want ErrInvalidChatID", in, err)
		}
	}
}

func TestFormatChatID(t *testing.T) {
	user := types.NewJID("6281234567890", types.DefaultUserServer)
	if got := FormatChatID(user); got != "6281234567890@c.us" {
		t.Fatalf("FormatChatID(user) = %q", got)
	}
	group := types.NewJID("120363012345678901", types.GroupServer)
	if got := FormatChatID(group); got != "120363012345678901@g.us" {
		t.Fatalf("FormatChatID(group) = %q", got)
	}
}

func TestChatIDRoundTrip(t *testing.T) {
	jid, err := ParseChatID(FormatChatID(types.NewJID("628111", types.DefaultUserServer)))
	if err != nil {
		t.Fatalf("ParseChatID() error = %v", err)
	}
	if jid.User != "628111" || jid.Server != types.DefaultUserServer {
		t.Fatalf("round trip = %v", jid)
	}
}
