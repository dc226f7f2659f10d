package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/config"
	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tokenizer"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model used for summaries.
	DefaultModel = "gemini-2.5-flash"
	// DefaultPromptTokenLimit bounds the whole conversation sent to the model.
	DefaultPromptTokenLimit = 6500
	// EmptyResponse is returned instead of calling the model when the
	// conversation is over the prompt token limit.
	EmptyResponse = "{}"

	// Acknowledgement is the assistant turn that follows the prompt.
	Acknowledgement = "Understood, thank you for providing the data, and formatting requests. I am ready to proceed with the task."
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role string
	Text string
}

// SummaryConversation returns the three turns sent for a summary: the system
// message, the assembled prompt and the assistant acknowledgement.
func SummaryConversation(systemMessage, prompt string) []Message {
	return []Message{
		{Role: RoleSystem, Text: systemMessage},
		{Role: RoleUser, Text: prompt},
		{Role: RoleAssistant, Text: Acknowledgement},
	}
}

// Generator turns a conversation into free text.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	Model() string
}

// Options tunes generation.
type Options struct {
	Temperature      float32
	MaxOutputTokens  int32
	PromptTokenLimit int
	JSONResponse     bool
	Timeout          time.Duration
}

// OptionsFromConfig converts the Gemini configuration section.
func OptionsFromConfig(cfg config.GeminiConfig) Options {
	return Options{
		Temperature:      cfg.Temperature,
		MaxOutputTokens:  cfg.MaxOutputTokens,
		PromptTokenLimit: cfg.PromptTokenLimit,
		JSONResponse:     cfg.JSONResponseMode,
		Timeout:          config.Duration(cfg.Timeout, 2*time.Minute),
	}
}

// Client represents a client for interacting with Gemini.
type Client struct {
	modelName string
	options   Options
	counter   tokenizer.Counter
	gClient   *genai.Client
}

// NewClient creates a new Gemini client. The counter is used for the prompt
// token guard and should be the one used for excerpt budgeting.
func NewClient(ctx context.Context, cfg config.GeminiConfig, counter tokenizer.Counter) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file", core.ErrConfig)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		modelName: modelName,
		options:   OptionsFromConfig(cfg),
		counter:   counter,
		gClient:   gClient,
	}, nil
}

// Model returns the model identifier used for generation.
func (c *Client) Model() string {
	return c.modelName
}

// Close releases client resources.
func (c *Client) Close() {
	// genai clients hold no connections that need closing
}

// Generate sends the conversation to the model and returns its text.
// Conversations over the prompt token limit are not sent; EmptyResponse is
// returned instead.
func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("conversation cannot be empty")
	}

	if tokens := c.conversationTokens(messages); c.options.PromptTokenLimit > 0 && tokens > c.options.PromptTokenLimit {
		logger.Warn("Prompt over token limit, skipping model call",
			"tokens", tokens, "limit", c.options.PromptTokenLimit)
		return EmptyResponse, nil
	}

	system, contents := buildContents(messages)
	genConfig := c.generateConfig(system)

	if c.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.Timeout)
		defer cancel()
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate content: %v", core.ErrTransport, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

func (c *Client) conversationTokens(messages []Message) int {
	if c.counter == nil {
		return 0
	}
	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		texts = append(texts, m.Text)
	}
	return c.counter.Count(strings.Join(texts, " "))
}

func (c *Client) generateConfig(system *genai.Content) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{SystemInstruction: system}
	if c.options.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = c.options.MaxOutputTokens
	}
	temp := c.options.Temperature
	genConfig.Temperature = &temp
	if c.options.JSONResponse {
		genConfig.ResponseMIMEType = "application/json"
	}
	return genConfig
}

// buildContents maps role-tagged messages onto Gemini contents. System
// messages become the system instruction; assistant turns use the model role.
func buildContents(messages []Message) (*genai.Content, []*genai.Content) {
	var systemParts []string
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Text)
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Parts: []*genai.Part{{Text: m.Text}},
				Role:  "model",
			})
		default:
			contents = append(contents, &genai.Content{
				Parts: []*genai.Part{{Text: m.Text}},
				Role:  "user",
			})
		}
	}

	if len(systemParts) == 0 {
		return nil, contents
	}
	return &genai.Content{
		Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}},
	}, contents
}
