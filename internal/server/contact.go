package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sketchartist07/tempshare/pkg/config"
)

const defaultTelegramAPI = "https://api.telegram.org"

// contactRequest is the contact form body. Honeypot is a hidden field real
// users never fill; a value there means a bot.
type contactRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Honeypot  string `json:"honeypot"`
}

// contactRecord is the JSON line appended to the local contact log.
type contactRecord struct {
	Time      time.Time `json:"time"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
}

// ContactService appends contact submissions to a local log and forwards
// them to a Telegram chat.
type ContactService struct {
	cfg     config.ContactConfig
	apiBase string
	client  *http.Client

	mu sync.Mutex // serializes log appends
}

// NewContactService builds the forwarder. Telegram forwarding is disabled
// when the bot token or chat ID is missing.
func NewContactService(cfg config.ContactConfig) *ContactService {
	return &ContactService{
		cfg:     cfg,
		apiBase: defaultTelegramAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Submit stores the message locally and forwards it. The local append is
// the source of record; a Telegram failure is logged but does not fail the
// submission.
func (s *ContactService) Submit(ctx context.Context, req contactRequest) error {
	record := contactRecord{
		Time:      time.Now().UTC(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Message:   req.Message,
	}

	if err := s.appendRecord(record); err != nil {
		return err
	}

	if err := s.forward(ctx, record); err != nil {
		log.Warn().Err(err).Msg("telegram forward failed")
	}

	return nil
}

func (s *ContactService) appendRecord(record contactRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.cfg.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(line, '\n'))
	return err
}

func (s *ContactService) forward(ctx context.Context, record contactRecord) error {
	if s.cfg.TelegramBotToken == "" || s.cfg.TelegramChatID == "" {
		return nil
	}

	text := fmt.Sprintf("New Message\n\n%s %s\n%s\n\n%s",
		record.FirstName, record.LastName, record.Email, record.Message)

	body, err := json.Marshal(map[string]string{
		"chat_id": s.cfg.TelegramChatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.cfg.TelegramBotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}
	return nil
}

func handleContact(contact *ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request body"})
			return
		}

		// Bots fill the hidden field; pretend everything went fine.
		if req.Honeypot != "" {
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}

		if req.Email == "" || req.Message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing fields"})
			return
		}

		if err := contact.Submit(c.Request.Context(), req); err != nil {
			log.Error().Err(err).Msg("contact submission failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
