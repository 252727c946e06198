package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// functionClient calls one serverless function endpoint with a JSON body.
type functionClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func newFunctionClient(url, apiKey string, httpClient *http.Client) functionClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return functionClient{
		url:        strings.TrimSpace(url),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c functionClient) post(ctx context.Context, name string, in, out any) error {
	if c.url == "" {
		return fmt.Errorf("%s endpoint is not configured", name)
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send %s request: %w", name, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapFunctionError(name, resp.StatusCode, payload)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", name, err)
	}
	return nil
}

func mapFunctionError(name string, status int, payload []byte) error {
	var parsed errorResponse
	if err := json.Unmarshal(payload, &parsed); err != nil || (parsed.Error == "" && parsed.Message == "") {
		message := strings.TrimSpace(string(payload))
		if message == "" {
			return fmt.Errorf("%s returned status %d", name, status)
		}
		return fmt.Errorf("%s returned status %d: %s", name, status, message)
	}
	if parsed.Error == "" {
		parsed.Error = parsed.Message
	}
	return fmt.Errorf("%s returned status %d: %s", name, status, parsed.Error)
}
