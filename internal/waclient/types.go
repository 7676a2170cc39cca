package waclient

import "time"

// IncomingMessage is a text message received from another account.
type IncomingMessage struct {
	ID        string
	ChatID    string
	SenderID  string
	PushName  string
	Text      string
	IsGroup   bool
	Timestamp time.Time
}

type Chat struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"isGroup"`
}

type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Contact struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	Name         string `json:"name"`
	IsBusiness   bool   `json:"isBusiness"`
	IsEnterprise bool   `json:"isEnterprise"`
}

// File is an attachment to upload. Images are sent as image messages, every
// other MIME type as a document.
type File struct {
	Name     string
	MimeType string
	Data     []byte
	Caption  string
}

type Poll struct {
	Question        string
	Options         []string
	SelectableCount int
}
