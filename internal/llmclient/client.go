// Package llmclient wraps the external text LLM used for document
// summarization, resume/capability-statement gap-filling, and profile
// classification. It exposes a small single-turn completion contract rather
// than the full chat/tool-calling surface the underlying SDKs support,
// since the platform only ever needs one-shot prompts answered.
package llmclient

import (
	"context"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
)

const (
	defaultMaxTokens       = int64(1024)
	summarizePrompt        = "Summarize this document in 2-3 paragraphs, capturing the key information, main topics, and important details."
	defaultClassifyMaxTokens = int64(256)
)

// Client completes single-turn prompts against a text LLM.
type Client interface {
	// Complete returns the model's response to prompt given optional system
	// instructions.
	Complete(ctx context.Context, system, prompt string) (string, error)
	// Summarize produces a 2-3 paragraph summary of text.
	Summarize(ctx context.Context, text string) (string, error)
	// Classify asks the model to score text against each of labels,
	// returning a probability-like weight per label (not necessarily
	// normalized; callers combine it with other signals).
	Classify(ctx context.Context, text string, labels []string) (map[string]float64, error)
}

// AnthropicClient is the primary llmclient.Client implementation.
type AnthropicClient struct {
	sdk   anthropic.Client
	model string
}

// NewAnthropicClient builds a Client backed by the Anthropic Messages API.
func NewAnthropicClient(apiKey, model string, httpClient *http.Client) *AnthropicClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	return &AnthropicClient{
		sdk: anthropic.NewClient(
			anthropicoption.WithAPIKey(strings.TrimSpace(apiKey)),
			anthropicoption.WithHTTPClient(httpClient),
		),
		model: model,
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}
	return textFromBlocks(resp), nil
}

func (c *AnthropicClient) Summarize(ctx context.Context, text string) (string, error) {
	return c.Complete(ctx, summarizePrompt, text)
}

func (c *AnthropicClient) Classify(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	return classifyViaComplete(ctx, c, text, labels)
}

func textFromBlocks(resp *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return sb.String()
}

// OpenAIClient is an alternate llmclient.Client implementation for
// deployments backed by an OpenAI-compatible endpoint.
type OpenAIClient struct {
	sdk   openai.Client
	model string
}

// NewOpenAIClient builds a Client backed by the OpenAI Chat Completions API.
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	opts := []openaioption.RequestOption{openaioption.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(baseURL))
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIClient{sdk: openai.NewClient(opts...), model: model}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := c.sdk.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Summarize(ctx context.Context, text string) (string, error) {
	return c.Complete(ctx, summarizePrompt, text)
}

func (c *OpenAIClient) Classify(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	return classifyViaComplete(ctx, c, text, labels)
}
