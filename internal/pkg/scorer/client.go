package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/callqa/callqa/internal/pkg/api"
)

// Scorer evaluates call transcription against the quality rubric
type Scorer interface {
	Score(ctx context.Context, transcription string) (*api.RubricScore, error)
}

const rubricPrompt = `You are a call quality assurance expert. Evaluate the following call transcription based on the following metrics, and provide an overall rating.

Greeting Compliance: Did the agent greet the customer appropriately at the beginning of the call? Score 1-5.
Script Adherence: Did the agent follow the prescribed script throughout the conversation? Score 1-5.
Empathy Expression: Did the agent express empathy during the call? Score 1-5.
Resolution Confirmation: Did the agent confirm the resolution of the customer's issue? Score 1-5.
Call Duration: Was the call duration within the acceptable range? Score 1-5.
Overall Rating: Provide an overall rating for the call from 1-5.

Respond with a single JSON object with keys: greetingCompliance, scriptAdherence, empathyExpression, resolutionConfirmation, callDuration, overallRating.`

// Client comunicates with a chat completions style LLM service
type Client struct {
	httpclient *http.Client
	url        string
	apiKey     string
	model      string
	timeout    time.Duration
}

// NewClient creates a scorer client
func NewClient(url, apiKey, model string) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("no scorerURL")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	res := Client{url: url, apiKey: apiKey, model: model}
	res.timeout = time.Minute * 3
	res.httpclient = &http.Client{Transport: newTransport()}
	return &res, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Score invokes the LLM once and parses the rubric from its answer.
// Out of range values are rejected, not clamped
func (sp *Client) Score(ctx context.Context, transcription string) (*api.RubricScore, error) {
	if transcription == "" {
		return nil, fmt.Errorf("no transcription")
	}
	inData := chatRequest{Model: sp.model, Messages: []chatMessage{
		{Role: "system", Content: rubricPrompt},
		{Role: "user", Content: "Transcription: " + transcription},
	}}
	inData.ResponseFormat.Type = "json_object"
	b, err := json.Marshal(inData)
	if err != nil {
		return nil, fmt.Errorf("can't marshal request: %w", err)
	}
	ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if sp.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+sp.apiKey)
	}
	goapp.Log.Info().Str("url", req.URL.String()).Str("model", sp.model).Msg("call")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return nil, fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	var respData chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("can't decode response: %w", err)
	}
	if len(respData.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	res := &api.RubricScore{}
	if err := json.Unmarshal([]byte(respData.Choices[0].Message.Content), res); err != nil {
		return nil, fmt.Errorf("can't parse rubric: %w", err)
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("wrong rubric: %w", err)
	}
	return res, nil
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}
