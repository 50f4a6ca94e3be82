package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nutcracker-app/nutcracker/internal/config"
	"github.com/nutcracker-app/nutcracker/internal/generation"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client is a thin REST client for the Generative Language API. It backs the
// prompt enhancer, the image generator, and the support classifier/answerer.
type Client struct {
	http *http.Client
	cfg  config.GeminiConfig
}

func NewClient(cfg config.GeminiConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type generateResponse struct {
	Candidates     []candidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// EnhanceText expands a prompt with the text model, returning the first
// candidate's text.
func (c *Client) EnhanceText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generateContent(ctx, c.cfg.EnhanceModel, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	text := firstText(resp)
	if text == "" {
		return "", &generation.UpstreamError{StatusCode: 200, Message: "empty enhancement response"}
	}
	return text, nil
}

// GenerateAsset renders an image for the prompt. Safety blocks surface as
// upstream errors carrying the block reason so the caller can classify them.
func (c *Client) GenerateAsset(ctx context.Context, prompt string) (*generation.Asset, error) {
	resp, err := c.generateContent(ctx, c.cfg.ImageModel, generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	})
	if err != nil {
		return nil, err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, &generation.UpstreamError{
			StatusCode: http.StatusBadRequest,
			Message:    "SAFETY: prompt blocked: " + resp.PromptFeedback.BlockReason,
		}
	}

	asset := &generation.Asset{}
	for _, cand := range resp.Candidates {
		if cand.FinishReason == "SAFETY" || cand.FinishReason == "PROHIBITED_CONTENT" {
			return nil, &generation.UpstreamError{
				StatusCode: http.StatusBadRequest,
				Message:    "SAFETY: candidate blocked: " + cand.FinishReason,
			}
		}
		for _, p := range cand.Content.Parts {
			switch {
			case p.InlineData != nil && len(asset.Data) == 0:
				data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("decoding image data: %w", err)
				}
				asset.Data = data
				asset.MIMEType = p.InlineData.MIMEType
			case p.Text != "" && asset.Caption == "":
				asset.Caption = p.Text
			}
		}
	}
	if len(asset.Data) == 0 {
		return nil, &generation.UpstreamError{StatusCode: 200, Message: "no image in response"}
	}
	return asset, nil
}

func firstText(resp *generateResponse) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

func (c *Client) generateContent(ctx context.Context, model string, reqBody generateRequest) (*generateResponse, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &generation.UpstreamError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body[:min(len(body), 512)])
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Status + ": " + apiErr.Error.Message
		}
		return nil, &generation.UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}
