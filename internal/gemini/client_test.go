package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutcracker-app/nutcracker/internal/config"
	"github.com/nutcracker-app/nutcracker/internal/generation"
	"github.com/nutcracker-app/nutcracker/internal/support"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.GeminiConfig{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		EnhanceModel: "text-model",
		ImageModel:   "image-model",
		ChatModel:    "chat-model",
		Timeout:      5 * time.Second,
	})
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
}

func TestEnhanceText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/text-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		json.NewEncoder(w).Encode(textResponse("a rich winter scene"))
	})

	text, err := c.EnhanceText(context.Background(), "a bear in a bookshop")
	require.NoError(t, err)
	assert.Equal(t, "a rich winter scene", text)
}

func TestGenerateAsset_DecodesInlineData(t *testing.T) {
	imgData := []byte{0x89, 'P', 'N', 'G'}
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{
					{"text": "a thoughtful bear"},
					{"inlineData": map[string]string{
						"mimeType": "image/png",
						"data":     base64.StdEncoding.EncodeToString(imgData),
					}},
				}},
			}},
		})
	})

	asset, err := c.GenerateAsset(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, imgData, asset.Data)
	assert.Equal(t, "image/png", asset.MIMEType)
	assert.Equal(t, "a thoughtful bear", asset.Caption)
}

func TestGenerateAsset_SafetyBlock(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"finishReason": "SAFETY", "content": map[string]any{}},
			},
		})
	})

	_, err := c.GenerateAsset(context.Background(), "prompt")
	var ue *generation.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, ue.Message, "SAFETY")
}

func TestGenerateContent_MapsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"},
		})
	})

	_, err := c.EnhanceText(context.Background(), "prompt")
	var ue *generation.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	assert.Contains(t, ue.Message, "RESOURCE_EXHAUSTED")
}

func TestClassify_ParsesFencedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(textResponse(
			"```json\n{\"type\":\"bug\",\"component\":\"export\",\"severity\":\"P3\",\"title\":\"Export broken\",\"confidence\":0.9}\n```"))
	})

	result, err := c.Classify(context.Background(), "export is broken", "/gallery")
	require.NoError(t, err)
	assert.Equal(t, support.TypeBug, result.Type)
	assert.Equal(t, "export", result.Component)
	assert.Equal(t, support.TierP3, result.Severity)
	assert.Equal(t, "Export broken", result.Title)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestClassify_ClampsConfidence(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(textResponse(`{"type":"bug","severity":"P4","confidence":3.5}`))
	})

	result, err := c.Classify(context.Background(), "message", "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestClassify_RejectsUnknownType(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(textResponse(`{"type":"rant","severity":"P4"}`))
	})

	_, err := c.Classify(context.Background(), "message", "")
	assert.Error(t, err)
}
