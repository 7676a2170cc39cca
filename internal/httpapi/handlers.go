package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/badrusalam11/whatsapp-bot/internal/metrics"
	"github.com/badrusalam11/whatsapp-bot/internal/waclient"
)

const maxJSONBodyBytes = 1 << 20

type sendRequest struct {
	ChatID    string         `json:"chatId"`
	Message   string         `json:"message"`
	Variables map[string]any `json:"variables,omitempty"`
}

type sendPollRequest struct {
	ChatID          string   `json:"chatId"`
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	SelectableCount int      `json:"selectableCount,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "WhatsApp API is running")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"connected": s.gateway.IsConnected(),
		"time":      s.now().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req sendRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.ChatID = strings.TrimSpace(req.ChatID)
	if req.ChatID == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Missing chatId or message")
		return
	}

	text := FillPlaceholders(req.Message, req.Variables)
	err := s.gateway.SendText(r.Context(), req.ChatID, text)
	metrics.OutboundMessages.WithLabelValues("text", metrics.Outcome(err)).Inc()
	if err != nil {
		s.sendFailed(w, "text", req.ChatID, err)
		return
	}
	s.logger.Info("api_send", "chat_id", req.ChatID, "chars", len(text))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "sent",
		"chatId":  req.ChatID,
		"message": text,
	})
}

func (s *Server) handleSendFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Missing chatId or file")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	chatID := strings.TrimSpace(r.FormValue("chatId"))
	caption := r.FormValue("caption")
	file, header, err := r.FormFile("file")
	if chatID == "" || err != nil {
		writeError(w, http.StatusBadRequest, "Missing chatId or file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read file: "+err.Error())
		return
	}

	err = s.gateway.SendFile(r.Context(), chatID, waclient.File{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
		Caption:  caption,
	})
	metrics.OutboundMessages.WithLabelValues("file", metrics.Outcome(err)).Inc()
	if err != nil {
		s.sendFailed(w, "file", chatID, err)
		return
	}
	s.logger.Info("api_send_file", "chat_id", chatID, "filename", header.Filename, "bytes", len(data))

	var captionOut any
	if caption != "" {
		captionOut = caption
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "sent",
		"chatId":   chatID,
		"filename": header.Filename,
		"caption":  captionOut,
	})
}

func (s *Server) handleSendPoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req sendPollRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.ChatID = strings.TrimSpace(req.ChatID)
	req.Question = strings.TrimSpace(req.Question)
	options := make([]string, 0, len(req.Options))
	for _, o := range req.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if req.ChatID == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, "Missing chatId or question")
		return
	}
	if len(options) < 2 {
		writeError(w, http.StatusBadRequest, "poll needs at least 2 options")
		return
	}

	err := s.gateway.SendPoll(r.Context(), req.ChatID, waclient.Poll{
		Question:        req.Question,
		Options:         options,
		SelectableCount: req.SelectableCount,
	})
	metrics.OutboundMessages.WithLabelValues("poll", metrics.Outcome(err)).Inc()
	if err != nil {
		s.sendFailed(w, "poll", req.ChatID, err)
		return
	}
	s.logger.Info("api_send_poll", "chat_id", req.ChatID, "options", len(options))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "sent",
		"chatId":   req.ChatID,
		"question": req.Question,
	})
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	chats, err := s.gateway.Chats(r.Context())
	if err != nil {
		s.listFailed(w, "chats", err)
		return
	}
	for i := range chats {
		if strings.TrimSpace(chats[i].Name) == "" {
			chats[i].Name = "Unknown"
		}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	groups, err := s.gateway.Groups(r.Context())
	if err != nil {
		s.listFailed(w, "groups", err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	contacts, err := s.gateway.Contacts(r.Context())
	if err != nil {
		s.listFailed(w, "contacts", err)
		return
	}
	for i := range contacts {
		if strings.TrimSpace(contacts[i].Name) == "" {
			contacts[i].Name = "Unknown"
		}
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (s *Server) sendFailed(w http.ResponseWriter, kind, chatID string, err error) {
	s.logger.Warn("api_send_failed", "kind", kind, "chat_id", chatID, "error", err.Error())
	writeJSON(w, gatewayStatus(err), map[string]any{
		"status": "error",
		"error":  err.Error(),
	})
}

func (s *Server) listFailed(w http.ResponseWriter, what string, err error) {
	s.logger.Warn("api_list_failed", "what", what, "error", err.Error())
	writeJSON(w, gatewayStatus(err), map[string]any{
		"status": "error",
		"error":  err.Error(),
	})
}

func gatewayStatus(err error) int {
	switch {
	case errors.Is(err, waclient.ErrInvalidChatID):
		return http.StatusBadRequest
	case errors.Is(err, waclient.ErrNotConnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
