package services

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"
)

const defaultCompletionTimeout = 2 * time.Minute

// ChatCompleter is the part of *openai.Client the invoker needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ClientFactory builds a completion client for a caller-supplied API key.
type ClientFactory func(apiKey string) ChatCompleter

// NewOpenAIClientFactory returns a factory for go-openai clients pointed at endpoint.
func NewOpenAIClientFactory(endpoint string) ClientFactory {
	return func(apiKey string) ChatCompleter {
		cfg := openai.DefaultConfig(apiKey)
		if endpoint != "" {
			cfg.BaseURL = endpoint
		}
		return openai.NewClientWithConfig(cfg)
	}
}

type CompletionOptions struct {
	Logger  *zap.Logger
	Timeout time.Duration
}

func (o CompletionOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o CompletionOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return defaultCompletionTimeout
	}
	return o.Timeout
}

// StructuredCompletion sends one system/user prompt pair and asks for a reply
// shaped like T.
//
// A failed call, an empty choice list, a refusal, or content that does not
// match T all yield (nil, nil) after being logged. A failure while inspecting
// a returned completion, or a T that cannot be described as a schema, is
// returned as a *ProcessingError.
func StructuredCompletion[T any](ctx context.Context, client ChatCompleter, model, systemPrompt, userPrompt string, opts CompletionOptions) (*T, error) {
	log := opts.logger()

	var target T
	name := schemaName(reflect.TypeOf(target))
	schema, err := jsonschema.GenerateSchemaForType(target)
	if err != nil {
		return nil, &ProcessingError{Stage: "schema", Err: fmt.Errorf("generate schema for %s: %w", name, err)}
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: strings.TrimSpace(systemPrompt),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: strings.TrimSpace(userPrompt),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: schema,
			},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Warn("completion request failed", zap.String("shape", name), zap.Error(err))
		return nil, nil
	}

	return inspectCompletion[T](resp, schema, name, log)
}

func inspectCompletion[T any](resp openai.ChatCompletionResponse, schema *jsonschema.Definition, name string, log *zap.Logger) (result *T, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("processing completion failed", zap.String("shape", name), zap.Any("panic", r))
			result = nil
			err = &ProcessingError{Stage: "inspect " + name, Err: fmt.Errorf("%v", r)}
		}
	}()

	if len(resp.Choices) == 0 {
		log.Warn("no choices returned in the completion", zap.String("shape", name))
		return nil, nil
	}

	message := resp.Choices[0].Message
	if message.Refusal != "" {
		log.Warn("model refused the request", zap.String("shape", name), zap.String("refusal", message.Refusal))
		return nil, nil
	}

	content := extractJSON(message.Content)
	if content == "" {
		log.Warn("no parsed payload in the first choice", zap.String("shape", name))
		return nil, nil
	}

	var parsed T
	if err := schema.Unmarshal(content, &parsed); err != nil {
		log.Warn("completion does not match the requested shape",
			zap.String("shape", name),
			zap.String("content", content),
			zap.Error(err))
		return nil, nil
	}
	return &parsed, nil
}

func schemaName(t reflect.Type) string {
	if t == nil || t.Name() == "" {
		return "response"
	}
	return t.Name()
}

// extractJSON removes markdown code block formatting if present and extracts the JSON
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		// Skip the opening fence and its optional language tag
		start := 3
		if newlineIdx := strings.Index(content[start:], "\n"); newlineIdx != -1 {
			start += newlineIdx + 1
		}

		if endIdx := strings.Index(content[start:], "```"); endIdx != -1 {
			content = content[start : start+endIdx]
		} else {
			content = content[start:]
		}
	}

	content = strings.TrimSpace(content)

	if startIdx := strings.Index(content, "{"); startIdx != -1 {
		if endIdx := strings.LastIndex(content, "}"); endIdx != -1 && endIdx > startIdx {
			content = content[startIdx : endIdx+1]
		}
	}

	return strings.TrimSpace(content)
}
