// Package nutrition resolves the macro values of a meal, either from the
// request or from an OpenAI-compatible completion service.
package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayush/nutrilog/internal/models"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("AI service not configured")

const systemPrompt = `You are a nutrition analyst. Estimate the nutrition of the meal the user describes.
Respond with a single JSON object and nothing else, using exactly these keys:
"calories" (kcal), "protein" (g), "carbs" (g), "fat" (g), "fiber" (g), "sugar" (g), "sodium" (mg).
All values must be non-negative numbers. If portion sizes are missing assume a typical single serving.`

// checkResp returns an error if the status is not 2xx, including the upstream
// body for debugging.
func checkResp(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("ai-service %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
}

// Estimate is one parsed AI answer.
type Estimate struct {
	Macros models.Macros
	Raw    string
	Model  string
}

// Client calls the chat completions endpoint of an OpenAI-compatible API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

func (c *Client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Estimate asks the model for the macros of description.
func (c *Client) Estimate(ctx context.Context, description string) (*Estimate, error) {
	if c.apiKey == "" {
		return nil, ErrDisabled
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, _ := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: description},
		},
		Temperature: 0.1,
	})
	const path = "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ai-service %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai-service %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp, path); err != nil {
		return nil, err
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ai-service %s: decode: %w", path, err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("ai-service %s: no choices in response", path)
	}
	content := result.Choices[0].Message.Content
	macros, err := ParseMacros(content)
	if err != nil {
		return &Estimate{Raw: content, Model: c.model}, err
	}
	return &Estimate{Macros: macros, Raw: content, Model: c.model}, nil
}

// ParseMacros extracts the JSON object between the first '{' and the last '}'
// of content. Negative values clamp to zero.
func ParseMacros(content string) (models.Macros, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return models.Macros{}, errors.New("no JSON object in completion")
	}
	var raw struct {
		Calories flexFloat `json:"calories"`
		Protein  flexFloat `json:"protein"`
		Carbs    flexFloat `json:"carbs"`
		Fat      flexFloat `json:"fat"`
		Fiber    flexFloat `json:"fiber"`
		Sugar    flexFloat `json:"sugar"`
		Sodium   flexFloat `json:"sodium"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return models.Macros{}, fmt.Errorf("parse completion: %w", err)
	}
	m := models.Macros{
		Calories: float64(raw.Calories),
		Protein:  float64(raw.Protein),
		Carbs:    float64(raw.Carbs),
		Fat:      float64(raw.Fat),
		Fiber:    float64(raw.Fiber),
		Sugar:    float64(raw.Sugar),
		Sodium:   float64(raw.Sodium),
	}
	return m.Clamp(), nil
}

// flexFloat accepts 12, 12.5, "12" and "12 g".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		unq = strings.TrimSpace(unq)
		if unq == "" {
			*f = 0
			return nil
		}
		s = strings.TrimRightFunc(unq, func(r rune) bool {
			return (r < '0' || r > '9') && r != '.'
		})
	}
	if s == "" {
		return fmt.Errorf("not a number: %s", b)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*f = flexFloat(v)
	return nil
}
