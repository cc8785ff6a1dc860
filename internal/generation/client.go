// Package generation calls the external text-completion service that
// produces defense strategies.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"garlic-defense/internal/domain"
)

// Generation failure modes. Timeout is distinct from other failures:
// callers report it differently and must not re-burn on either.
var (
	// ErrInvalidLanguage is returned for a language outside the fixed set.
	ErrInvalidLanguage = errors.New("invalid language")

	// ErrInvalidContent is returned when the service responds with
	// malformed or empty strategy content.
	ErrInvalidContent = errors.New("invalid generation content")

	// ErrTimeout is returned when generation exceeds the configured ceiling.
	ErrTimeout = errors.New("generation timed out")
)

// Config configures the generation client.
type Config struct {
	// Endpoint is the chat-completions URL.
	Endpoint string
	// APIKey is sent as a bearer token.
	APIKey string
	// Model selects the completion model.
	Model string
	// Temperature for sampling.
	Temperature float64
	// MaxTokens caps the completion length.
	MaxTokens int
	// Delimiter splits the completion into strategy and usage sections.
	// The collaborator's section convention has varied ("\n" vs "\n\n");
	// it is configuration, not a constant.
	Delimiter string
	// Timeout is the hard ceiling on one generation call.
	Timeout time.Duration
}

// DefaultConfig returns production generation settings.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-3.5-turbo",
		Temperature: 0.7,
		MaxTokens:   200,
		Delimiter:   "\n",
		Timeout:     15 * time.Second,
	}
}

// prompt holds the per-language system and user messages plus the label
// prefixes the model is instructed to emit.
type prompt struct {
	system     string
	user       string
	strategyRe *regexp.Regexp
	usageRe    *regexp.Regexp
}

var prompts = map[domain.Language]prompt{
	domain.LanguageEnglish: {
		system: "Generate a brief vampire defense strategy. Format: 'Strategy: [name and details]' " +
			"then 'Garlic Usage: [instructions]'. Keep it concise.",
		user:       "Create a brief defense strategy",
		strategyRe: regexp.MustCompile(`(?i)^Strategy:?\s*`),
		usageRe:    regexp.MustCompile(`(?i)^Garlic Usage:?\s*`),
	},
	domain.LanguageChinese: {
		system:     "生成简短的吸血鬼防御策略。格式：'策略：[名称和详情]' 然后 '大蒜使用方法：[说明]'。保持简洁。",
		user:       "创建一个简短的防御策略",
		strategyRe: regexp.MustCompile(`^策略：?\s*`),
		usageRe:    regexp.MustCompile(`^大蒜使用方法：?\s*`),
	},
}

// Client calls an OpenAI-style chat-completions endpoint.
type Client struct {
	config Config
	client *http.Client
}

// NewClient creates a generation client.
func NewClient(config Config) *Client {
	if config.Delimiter == "" {
		config.Delimiter = "\n"
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the chat-completions response body.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate requests one defense strategy in the given language. A single
// attempt, bounded by the configured timeout; never retried here because
// the caller has already burned tokens by the time this runs.
func (c *Client) Generate(ctx context.Context, language domain.Language) (*domain.DefenseStrategy, error) {
	p, ok := prompts[language]
	if !ok {
		return nil, ErrInvalidLanguage
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.system},
			{Role: "user", Content: p.user},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("generation service status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("generation service status %d", resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return nil, ErrInvalidContent
	}

	return c.parseCompletion(parsed.Choices[0].Message.Content, p)
}

// parseCompletion splits the completion into strategy and usage sections
// and strips the language-specific label prefixes.
func (c *Client) parseCompletion(content string, p prompt) (*domain.DefenseStrategy, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrInvalidContent
	}

	var sections []string
	for _, section := range strings.Split(content, c.config.Delimiter) {
		if s := strings.TrimSpace(section); s != "" {
			sections = append(sections, s)
		}
	}
	if len(sections) < 2 {
		return nil, ErrInvalidContent
	}

	strategy := strings.TrimSpace(p.strategyRe.ReplaceAllString(sections[0], ""))
	usage := strings.TrimSpace(p.usageRe.ReplaceAllString(sections[1], ""))

	if strategy == "" || usage == "" {
		return nil, ErrInvalidContent
	}

	return &domain.DefenseStrategy{
		Strategy:    strategy,
		GarlicUsage: usage,
		Raw:         content,
	}, nil
}

// isClientTimeout detects net/http client timeouts surfaced as url.Error.
func isClientTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
