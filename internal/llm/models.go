package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

// maxModelsResponse bounds the /models body.
const maxModelsResponse = 4 << 20

// ModelCatalog reads the model list of an OpenAI-compatible server.
type ModelCatalog struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewModelCatalog creates a catalog for the server at baseURL. A nil
// httpClient gets a 15 second timeout.
func NewModelCatalog(baseURL, apiKey string, httpClient *http.Client) *ModelCatalog {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ModelCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  httpClient,
	}
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// List returns the model IDs the server offers, in server order.
func (c *ModelCatalog) List(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("creating models request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify("list models", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxModelsResponse))
	if err != nil {
		return nil, &Error{Kind: ErrorTransport, Op: "list models", Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind: ErrorTransport,
			Op:   "list models",
			Err:  fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var parsed modelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Kind: ErrorTransport, Op: "list models", Err: fmt.Errorf("decoding response: %w", err)}
	}

	ids := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// Check confirms model is offered by the server and returns the full list
// either way. A missing model yields an ErrorModelUnavailable error.
// "name" matches a listed "name:latest".
func (c *ModelCatalog) Check(ctx context.Context, model string) ([]string, error) {
	available, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	if HasModel(available, model) {
		return available, nil
	}
	return available, &Error{
		Kind: ErrorModelUnavailable,
		Op:   "check model",
		Err:  fmt.Errorf("model %q is not available", model),
	}
}

// HasModel reports whether model appears in available.
func HasModel(available []string, model string) bool {
	return slices.Contains(available, model) ||
		(!strings.Contains(model, ":") && slices.Contains(available, model+":latest"))
}
