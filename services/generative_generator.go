package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-resty/resty/v2"
	"github.com/microcosm-cc/bluemonday"

	"license-tracker/config"
)

var promptTemplate = template.Must(template.New("prompt").Parse(
	`You are an assistant responsible for writing professional email notifications about expiring software licenses.
The tone should be helpful and urgent, but not alarming.
The email should be sent to the reseller.
The license for the product "{{.Product}}" will expire on {{.ExpirationDate}}.
The reseller is "{{.Reseller}}".

Generate a subject and a body for the email to be sent to {{.ResellerEmail}}.
The body should be in HTML format.
The subject should clearly state the product and that its license is expiring soon.
The body should mention the product name, the expiration date, and suggest that the reseller contact their client to arrange for a renewal.

Reply with a single JSON object of the form {"subject": "...", "body": "..."} and nothing else.`))

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerativeGenerator asks an OpenAI-compatible chat completions endpoint to
// write the notice. Any transport, status or decoding problem is returned as
// one error.
type GenerativeGenerator struct {
	client   *resty.Client
	endpoint string
	model    string
	policy   *bluemonday.Policy
}

func NewGenerativeGenerator(cfg config.GenAIConfig) *GenerativeGenerator {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &GenerativeGenerator{
		client:   client,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		model:    cfg.Model,
		policy:   bluemonday.UGCPolicy(),
	}
}

func (g *GenerativeGenerator) Generate(ctx context.Context, in NotificationInput) (Content, error) {
	var prompt bytes.Buffer
	if err := promptTemplate.Execute(&prompt, in); err != nil {
		return Content{}, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:          g.model,
			Messages:       []chatMessage{{Role: "user", Content: prompt.String()}},
			Temperature:    0.4,
			ResponseFormat: map[string]string{"type": "json_object"},
		}).
		SetResult(&chatResponse{}).
		SetError(&apiError{}).
		Post(g.endpoint)
	if err != nil {
		return Content{}, fmt.Errorf("generation request failed: %w", err)
	}
	if resp.IsError() {
		if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Error.Message != "" {
			return Content{}, fmt.Errorf("generation service returned %s: %s", resp.Status(), apiErr.Error.Message)
		}
		return Content{}, fmt.Errorf("generation service returned %s", resp.Status())
	}

	result, ok := resp.Result().(*chatResponse)
	if !ok || len(result.Choices) == 0 {
		return Content{}, errors.New("generation service returned no choices")
	}
	return g.parse(result.Choices[0].Message.Content)
}

func (g *GenerativeGenerator) parse(raw string) (Content, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var c Content
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &c); err != nil {
		return Content{}, fmt.Errorf("malformed generation output: %w", err)
	}

	c.Subject = strings.Join(strings.Fields(c.Subject), " ")
	c.Body = strings.TrimSpace(g.policy.Sanitize(c.Body))
	if c.Subject == "" {
		return Content{}, errors.New("generation output has an empty subject")
	}
	if c.Body == "" {
		return Content{}, errors.New("generation output has an empty body")
	}
	return c, nil
}
