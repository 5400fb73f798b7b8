package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/logger"
	"github.com/keisuke70/tasklazy/internal/models"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second
)

// OpenAIParser implements TaskParser with the chat completions API
type OpenAIParser struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIParser creates a parser. SDK retries are disabled because failed
// jobs are retried through the queue.
func NewOpenAIParser(cfg ParserConfig, log *zap.Logger) *OpenAIParser {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
		option.WithMaxRetries(0),
	)

	return &OpenAIParser{
		client:    client,
		model:     cfg.Model,
		logger:    log,
		debugMode: cfg.DebugMode,
	}
}

// ParseTask asks the model to structure req.Description
func (p *OpenAIParser) ParseTask(ctx context.Context, req ParseRequest) (*models.ParsedTask, error) {
	if req.Now.IsZero() {
		req.Now = time.Now()
	}
	prompt := buildParsePrompt(req)

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(parserSystemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "parsed_task",
					Description: openai.String("Structured task information"),
					Schema:      taskSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}

	if p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "parse_task"),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", logger.SanitizeDebugContent(prompt)),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		p.logger.Debug("llm_api_error",
			zap.String("operation", "parse_task"),
			zap.String("model", p.model),
			zap.String("error", logger.SanitizeError(err)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to parse task: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to parse task: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	content := resp.Choices[0].Message.Content
	if p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "parse_task"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", logger.SanitizeDebugContent(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return parseTaskResponse(content)
}

var _ TaskParser = (*OpenAIParser)(nil)
