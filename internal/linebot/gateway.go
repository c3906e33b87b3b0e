// internal/linebot/gateway.go
package linebot

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"faq-chatbot/internal/common/config"
	"faq-chatbot/internal/common/logger"
	"faq-chatbot/internal/models"
	"faq-chatbot/internal/orchestrator"

	"github.com/google/uuid"
)

// Pipeline is the orchestrator surface the gateway depends on.
type Pipeline interface {
	Process(ctx context.Context, req models.ChatRequest) orchestrator.Result
}

// Gateway bridges LINE webhook events onto the answer pipeline. Each text
// message becomes one pipeline request; the answer (or fallback) goes back
// through the reply API using the event's one-shot reply token.
type Gateway struct {
	config   config.LineConfig
	pipeline Pipeline
	client   *http.Client
	logger   logger.Logger
}

func New(cfg config.LineConfig, pipeline Pipeline, log logger.Logger) *Gateway {
	return &Gateway{
		config:   cfg,
		pipeline: pipeline,
		client: &http.Client{
			Timeout: time.Duration(cfg.ReplyTimeout) * time.Millisecond,
		},
		logger: log.With(map[string]interface{}{
			"component": "linebot",
		}),
	}
}

// Verify checks the webhook signature: base64(HMAC-SHA256(channel secret,
// raw body)) compared in constant time.
func (g *Gateway) Verify(signature string, body []byte) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(g.config.ChannelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// webhookPayload mirrors the platform's webhook envelope, limited to the
// fields the gateway consumes.
type webhookPayload struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		Type    string `json:"type"`
		UserID  string `json:"userId"`
		GroupID string `json:"groupId"`
		RoomID  string `json:"roomId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

// conversationID derives a stable conversation identifier from the event
// source so repeat questions from the same chat share one conversation.
func (e webhookEvent) conversationID() string {
	switch e.Source.Type {
	case "user":
		return "line:user:" + e.Source.UserID
	case "group":
		return "line:group:" + e.Source.GroupID
	case "room":
		return "line:room:" + e.Source.RoomID
	default:
		return "line:" + uuid.New().String()
	}
}

// HandleWebhook processes all events in a verified webhook body. Event-level
// failures are answered with fallback replies and never abort the batch; an
// error return means the body itself could not be decoded.
func (g *Gateway) HandleWebhook(ctx context.Context, body []byte) error {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}

	for _, event := range payload.Events {
		if event.Type != "message" || event.Message.Type != "text" {
			continue
		}
		if event.ReplyToken == "" || strings.TrimSpace(event.Message.Text) == "" {
			continue
		}

		result := g.pipeline.Process(ctx, models.ChatRequest{
			Question:       event.Message.Text,
			ConversationID: event.conversationID(),
		})

		if err := g.Reply(ctx, event.ReplyToken, result.Response.Answer); err != nil {
			g.logger.Error("reply delivery failed", map[string]interface{}{
				"sourceType": event.Source.Type,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

type replyRequest struct {
	ReplyToken string         `json:"replyToken"`
	Messages   []replyMessage `json:"messages"`
}

type replyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Reply sends one text message through the reply API. Reply tokens are
// single-use and short-lived, so there is no retry.
func (g *Gateway) Reply(ctx context.Context, replyToken, text string) error {
	body, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages: []replyMessage{
			{Type: "text", Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.APIBase+"/v2/bot/message/reply", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.ChannelAccessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reply rejected with status %d", resp.StatusCode)
	}
	return nil
}
