// Package waclient is the WhatsApp messaging gateway: a whatsmeow session
// persisted in SQLite, QR pairing on the terminal and the send/list operations
// the bot and REST API need.
package waclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

const (
	DefaultStoreDSN = "file:badru-whatsapp.db?_pragma=foreign_keys(1)"

	storeDialect = "sqlite"
)

var ErrNotConnected = errors.New("whatsapp client is not connected")

type Options struct {
	StoreDSN string
	Logger   *slog.Logger
	// QRWriter receives the pairing QR code. Defaults to stdout.
	QRWriter io.Writer
	// OnMessage is called for every text message from another account.
	OnMessage func(IncomingMessage)
	// OnConnected is called each time the session becomes ready.
	OnConnected func()
}

type Client struct {
	wa        *whatsmeow.Client
	container *sqlstore.Container
	logger    *slog.Logger
	qrOut     io.Writer

	onMessage   func(IncomingMessage)
	onConnected func()

	closeOnce sync.Once
}

// Open loads (or creates) the device session from the SQLite store. The
// caller must import a database/sql driver registered as "sqlite".
func Open(ctx context.Context, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dsn := strings.TrimSpace(opts.StoreDSN)
	if dsn == "" {
		dsn = DefaultStoreDSN
	}
	container, err := sqlstore.New(ctx, storeDialect, dsn, newLogger(logger, "store"))
	if err != nil {
		return nil, fmt.Errorf("open whatsapp store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("load whatsapp device: %w", err)
	}
	qrOut := opts.QRWriter
	if qrOut == nil {
		qrOut = os.Stdout
	}
	c := &Client{
		wa:          whatsmeow.NewClient(device, newLogger(logger, "client")),
		container:   container,
		logger:      logger,
		qrOut:       qrOut,
		onMessage:   opts.OnMessage,
		onConnected: opts.OnConnected,
	}
	c.wa.AddEventHandler(c.handleEvent)
	return c, nil
}

// Connect opens the websocket. A fresh device prints QR codes until it is
// paired or ctx ends.
func (c *Client) Connect(ctx context.Context) error {
	if c.wa.Store.ID != nil {
		if err := c.wa.Connect(); err != nil {
			return fmt.Errorf("whatsapp connect: %w", err)
		}
		return nil
	}

	qrItems, err := c.wa.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp qr channel: %w", err)
	}
	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("whatsapp connect: %w", err)
	}
	go c.renderQR(qrItems)
	return nil
}

func (c *Client) renderQR(items <-chan whatsmeow.QRChannelItem) {
	for item := range items {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.logger.Info("whatsapp_qr", "timeout", item.Timeout.String())
			qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, c.qrOut)
		case whatsmeow.QRChannelSuccess.Event:
			c.logger.Info("whatsapp_paired")
		case whatsmeow.QRChannelEventError:
			c.logger.Error("whatsapp_pair_error", "error", errString(item.Error))
		default:
			c.logger.Warn("whatsapp_qr_event", "event", item.Event)
		}
	}
}

func (c *Client) IsConnected() bool {
	return c.wa.IsConnected() && c.wa.IsLoggedIn()
}

// Close disconnects and releases the session store.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.wa.Disconnect()
		err = c.container.Close()
	})
	return err
}

func (c *Client) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Connected:
		c.logger.Info("whatsapp_ready")
		if c.onConnected != nil {
			c.onConnected()
		}
	case *events.Disconnected:
		c.logger.Warn("whatsapp_disconnected")
	case *events.LoggedOut:
		c.logger.Warn("whatsapp_logged_out", "reason", int(v.Reason), "on_connect", v.OnConnect)
	case *events.Message:
		msg, ok := incomingFromEvent(v)
		if !ok || c.onMessage == nil {
			return
		}
		c.onMessage(msg)
	}
}

func incomingFromEvent(evt *events.Message) (IncomingMessage, bool) {
	if evt == nil || evt.Message == nil || evt.Info.IsFromMe {
		return IncomingMessage{}, false
	}
	if evt.Info.Chat == types.StatusBroadcastJID {
		return IncomingMessage{}, false
	}
	text := messageText(evt.Message)
	if text == "" {
		return IncomingMessage{}, false
	}
	return IncomingMessage{
		ID:        string(evt.Info.ID),
		ChatID:    FormatChatID(evt.Info.Chat),
		SenderID:  FormatChatID(evt.Info.Sender),
		PushName:  evt.Info.PushName,
		Text:      text,
		IsGroup:   evt.Info.IsGroup,
		Timestamp: evt.Info.Timestamp,
	}, true
}

func messageText(m *waE2E.Message) string {
	if text := m.GetConversation(); text != "" {
		return text
	}
	return m.GetExtendedTextMessage().GetText()
}

func (c *Client) target(chatID string) (types.JID, error) {
	if !c.IsConnected() {
		return types.JID{}, ErrNotConnected
	}
	return ParseChatID(chatID)
}

func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	jid, err := c.target(chatID)
	if err != nil {
		return err
	}
	_, err = c.wa.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

// SendFile uploads f and sends it with its caption.
func (c *Client) SendFile(ctx context.Context, chatID string, f File) error {
	jid, err := c.target(chatID)
	if err != nil {
		return err
	}
	if len(f.Data) == 0 {
		return fmt.Errorf("send file: empty file")
	}
	mimeType := fileMimeType(f)

	mediaType := whatsmeow.MediaDocument
	if strings.HasPrefix(mimeType, "image/") {
		mediaType = whatsmeow.MediaImage
	}
	up, err := c.wa.Upload(ctx, f.Data, mediaType)
	if err != nil {
		return fmt.Errorf("upload file: %w", err)
	}

	var msg *waE2E.Message
	if mediaType == whatsmeow.MediaImage {
		msg = &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			Mimetype:      proto.String(mimeType),
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
			Caption:       proto.String(f.Caption),
		}}
	} else {
		msg = &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			Mimetype:      proto.String(mimeType),
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
			FileName:      proto.String(f.Name),
			Title:         proto.String(f.Name),
			Caption:       proto.String(f.Caption),
		}}
	}
	if _, err := c.wa.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	return nil
}

func fileMimeType(f File) string {
	if mt := strings.TrimSpace(f.MimeType); mt != "" && mt != "application/octet-stream" {
		return mt
	}
	if byExt := mime.TypeByExtension(filepath.Ext(f.Name)); byExt != "" {
		if base, _, err := mime.ParseMediaType(byExt); err == nil {
			return base
		}
	}
	return http.DetectContentType(f.Data)
}

func (c *Client) SendPoll(ctx context.Context, chatID string, p Poll) error {
	jid, err := c.target(chatID)
	if err != nil {
		return err
	}
	selectable := p.SelectableCount
	if selectable < 0 || selectable > len(p.Options) {
		selectable = 0
	}
	msg := c.wa.BuildPollCreation(p.Question, p.Options, selectable)
	if _, err := c.wa.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("send poll: %w", err)
	}
	return nil
}

func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	infos, err := c.wa.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	out := make([]Group, 0, len(infos))
	for _, g := range infos {
		if g == nil {
			continue
		}
		out = append(out, Group{ID: FormatChatID(g.JID), Name: g.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	all, err := c.wa.Store.Contacts.GetAllContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	out := make([]Contact, 0, len(all))
	for jid, info := range all {
		if jid.Server != types.DefaultUserServer {
			continue
		}
		out = append(out, Contact{
			ID:         FormatChatID(jid),
			Number:     jid.User,
			Name:       contactName(info),
			IsBusiness: info.BusinessName != "",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Chats lists groups followed by personal contacts. The session store keeps
// no chat list of its own.
func (c *Client) Chats(ctx context.Context) ([]Chat, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := c.Contacts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Chat, 0, len(groups)+len(contacts))
	for _, g := range groups {
		out = append(out, Chat{ID: g.ID, Name: g.Name, IsGroup: true})
	}
	for _, ct := range contacts {
		out = append(out, Chat{ID: ct.ID, Name: ct.Name})
	}
	return out, nil
}

func contactName(info types.ContactInfo) string {
	for _, name := range []string{info.FullName, info.FirstName, info.PushName, info.BusinessName} {
		if strings.TrimSpace(name) != "" {
			return name
		}
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
