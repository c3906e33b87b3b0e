// internal/linebot/gateway_test.go
package linebot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"faq-chatbot/internal/common/config"
	"faq-chatbot/internal/common/logger"
	"faq-chatbot/internal/models"
	"faq-chatbot/internal/orchestrator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Stubs and Helpers
// ==========================

type stubPipeline struct {
	answer   string
	requests []models.ChatRequest
}

func (s *stubPipeline) Process(_ context.Context, req models.ChatRequest) orchestrator.Result {
	s.requests = append(s.requests, req)
	return orchestrator.Result{
		Response: models.ChatResponse{
			Answer:         s.answer,
			Category:       "sales",
			ConversationID: req.ConversationID,
		},
	}
}

type capturedReply struct {
	ReplyToken string `json:"replyToken"`
	Messages   []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"messages"`
}

func newGateway(t *testing.T, pipeline Pipeline, replyStatus int) (*Gateway, *[]capturedReply) {
	t.Helper()

	var replies []capturedReply
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bot/message/reply", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var reply capturedReply
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reply))
		replies = append(replies, reply)
		w.WriteHeader(replyStatus)
	}))
	t.Cleanup(api.Close)

	cfg := config.LineConfig{
		Enabled:            true,
		ChannelSecret:      "test-secret",
		ChannelAccessToken: "test-token",
		APIBase:            api.URL,
		ReplyTimeout:       5000,
	}
	return New(cfg, pipeline, logger.NewTestLogger(t)), &replies
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func eventBody(events ...map[string]interface{}) []byte {
	data, _ := json.Marshal(map[string]interface{}{"events": events})
	return data
}

func textEvent(text, sourceType, sourceID string) map[string]interface{} {
	source := map[string]interface{}{"type": sourceType}
	switch sourceType {
	case "user":
		source["userId"] = sourceID
	case "group":
		source["groupId"] = sourceID
	case "room":
		source["roomId"] = sourceID
	}
	return map[string]interface{}{
		"type":       "message",
		"replyToken": "token-1",
		"source":     source,
		"message":    map[string]interface{}{"type": "text", "text": text},
	}
}

// ==========================
// Signature Tests
// ==========================

func TestVerify(t *testing.T) {
	gw, _ := newGateway(t, &stubPipeline{}, http.StatusOK)
	body := []byte(`{"events": []}`)

	assert.True(t, gw.Verify(sign("test-secret", body), body))
	assert.False(t, gw.Verify(sign("wrong-secret", body), body))
	assert.False(t, gw.Verify(sign("test-secret", []byte("other")), body))
	assert.False(t, gw.Verify("", body))
	assert.False(t, gw.Verify("not base64 at all", body))
}

// ==========================
// Webhook Handling Tests
// ==========================

func TestHandleWebhook_TextMessage(t *testing.T) {
	pipeline := &stubPipeline{answer: "We offer three plans."}
	gw, replies := newGateway(t, pipeline, http.StatusOK)

	err := gw.HandleWebhook(context.Background(), eventBody(textEvent("What plans?", "user", "U123")))
	require.NoError(t, err)

	require.Len(t, pipeline.requests, 1)
	assert.Equal(t, "What plans?", pipeline.requests[0].Question)
	assert.Equal(t, "line:user:U123", pipeline.requests[0].ConversationID)

	require.Len(t, *replies, 1)
	reply := (*replies)[0]
	assert.Equal(t, "token-1", reply.ReplyToken)
	require.Len(t, reply.Messages, 1)
	assert.Equal(t, "text", reply.Messages[0].Type)
	assert.Equal(t, "We offer three plans.", reply.Messages[0].Text)
}

func TestHandleWebhook_ConversationIDPerSource(t *testing.T) {
	tests := []struct {
		name       string
		sourceType string
		sourceID   string
		expected   string
	}{
		{name: "user chat", sourceType: "user", sourceID: "U1", expected: "line:user:U1"},
		{name: "group chat", sourceType: "group", sourceID: "G1", expected: "line:group:G1"},
		{name: "room chat", sourceType: "room", sourceID: "R1", expected: "line:room:R1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &stubPipeline{answer: "ok"}
			gw, _ := newGateway(t, pipeline, http.StatusOK)

			err := gw.HandleWebhook(context.Background(), eventBody(textEvent("hi", tt.sourceType, tt.sourceID)))
			require.NoError(t, err)
			require.Len(t, pipeline.requests, 1)
			assert.Equal(t, tt.expected, pipeline.requests[0].ConversationID)
		})
	}
}

func TestHandleWebhook_IgnoresNonTextEvents(t *testing.T) {
	pipeline := &stubPipeline{answer: "unused"}
	gw, replies := newGateway(t, pipeline, http.StatusOK)

	body := eventBody(
		map[string]interface{}{"type": "follow", "replyToken": "t1", "source": map[string]interface{}{"type": "user", "userId": "U1"}},
		map[string]interface{}{
			"type":       "message",
			"replyToken": "t2",
			"source":     map[string]interface{}{"type": "user", "userId": "U1"},
			"message":    map[string]interface{}{"type": "sticker"},
		},
		textEvent("   ", "user", "U1"),
	)

	err := gw.HandleWebhook(context.Background(), body)
	require.NoError(t, err)
	assert.Empty(t, pipeline.requests)
	assert.Empty(t, *replies)
}

func TestHandleWebhook_MultipleEvents(t *testing.T) {
	pipeline := &stubPipeline{answer: "ok"}
	gw, replies := newGateway(t, pipeline, http.StatusOK)

	body := eventBody(
		textEvent("first question", "user", "U1"),
		textEvent("second question", "group", "G1"),
	)

	err := gw.HandleWebhook(context.Background(), body)
	require.NoError(t, err)
	assert.Len(t, pipeline.requests, 2)
	assert.Len(t, *replies, 2)
}

func TestHandleWebhook_MalformedBody(t *testing.T) {
	gw, _ := newGateway(t, &stubPipeline{}, http.StatusOK)

	err := gw.HandleWebhook(context.Background(), []byte(`{{{`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode webhook payload")
}

func TestHandleWebhook_ReplyFailureDoesNotAbortBatch(t *testing.T) {
	pipeline := &stubPipeline{answer: "ok"}
	gw, _ := newGateway(t, pipeline, http.StatusBadRequest)

	body := eventBody(
		textEvent("first", "user", "U1"),
		textEvent("second", "user", "U2"),
	)

	err := gw.HandleWebhook(context.Background(), body)
	require.NoError(t, err)
	assert.Len(t, pipeline.requests, 2, "a failed reply must not stop later events")
}

// ==========================
// Reply API Tests
// ==========================

func TestReply_RejectedStatus(t *testing.T) {
	gw, _ := newGateway(t, &stubPipeline{}, http.StatusUnauthorized)

	err := gw.Reply(context.Background(), "token-1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
