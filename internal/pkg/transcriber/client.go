package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// Client comunicates with speech to text service
type Client struct {
	httpclient *http.Client
	url        string
	timeout    time.Duration
}

// NewClient creates a transcriber client
func NewClient(url string) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("no transcriberURL")
	}
	res := Client{}
	res.url = url
	// audio transcription may take a while
	res.timeout = time.Minute * 10
	res.httpclient = &http.Client{Transport: newTransport()}
	return &res, nil
}

type transcribeRequest struct {
	AudioURL string `json:"audioUrl"`
}

type transcribeResponse struct {
	Transcription string `json:"transcription"`
}

// Transcribe sends audio URL to the service and returns the full call transcript.
// One shot call - the caller decides what a failure means for the record
func (sp *Client) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if audioURL == "" {
		return "", fmt.Errorf("no audio URL")
	}
	b, err := json.Marshal(transcribeRequest{AudioURL: audioURL})
	if err != nil {
		return "", fmt.Errorf("can't marshal request: %w", err)
	}
	ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return "", fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	var respData transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("can't decode response: %w", err)
	}
	if respData.Transcription == "" {
		return "", fmt.Errorf("empty transcription in response")
	}
	return respData.Transcription, nil
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}
