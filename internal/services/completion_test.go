package services

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ankigen/internal/models"
)

func TestStructuredCompletionSuccess(t *testing.T) {
	want := cardListOf("Joins", 2)
	client := &fakeCompleter{respond: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return jsonResponse(t, want), nil
	}}

	got, err := StructuredCompletion[models.CardList](context.Background(), client, "gpt-4o-mini", "  system  \n", "\n  user  ", CompletionOptions{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	require.Len(t, client.calls, 1)
	req := client.calls[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "system", req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "user", req.Messages[1].Content)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, req.ResponseFormat.Type)
	require.NotNil(t, req.ResponseFormat.JSONSchema)
	assert.Equal(t, "CardList", req.ResponseFormat.JSONSchema.Name)
}

func TestStructuredCompletionCodeFence(t *testing.T) {
	client := &fakeCompleter{respond: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return contentResponse("```json\n{\"topic\":\"Sets\",\"cards\":[]}\n```"), nil
	}}

	got, err := StructuredCompletion[models.CardList](context.Background(), client, "m", "s", "u", CompletionOptions{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sets", got.Topic)
	assert.Empty(t, got.Cards)
}

func TestStructuredCompletionOptionalFields(t *testing.T) {
	client := &fakeCompleter{respond: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return contentResponse(`{"topic":"Loops","cards":[{"front":{},"back":{"explanation":"e","example":"x"}}]}`), nil
	}}

	got, err := StructuredCompletion[models.CardList](context.Background(), client, "m", "s", "u", CompletionOptions{})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Cards, 1)
	assert.Empty(t, got.Cards[0].Front.Question)
	assert.Empty(t, got.Cards[0].Back.Answer)
	assert.Equal(t, "e", got.Cards[0].Back.Explanation)
}

func TestStructuredCompletionAbsence(t *testing.T) {
	tests := []struct {
		name    string
		resp    openai.ChatCompletionResponse
		err     error
		wantLog string
	}{
		{
			name:    "call fails",
			err:     errors.New("connection reset"),
			wantLog: "completion request failed",
		},
		{
			name:    "no choices",
			resp:    openai.ChatCompletionResponse{},
			wantLog: "no choices returned in the completion",
		},
		{
			name: "refusal",
			resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Refusal: "I can't help with that"}},
			}},
			wantLog: "model refused the request",
		},
		{
			name:    "empty content",
			resp:    contentResponse("   "),
			wantLog: "no parsed payload in the first choice",
		},
		{
			name:    "missing required field",
			resp:    contentResponse(`{"topic":"Loops"}`),
			wantLog: "completion does not match the requested shape",
		},
		{
			name:    "not json",
			resp:    contentResponse("sorry, here are some cards"),
			wantLog: "completion does not match the requested shape",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			client := &fakeCompleter{respond: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return tt.resp, tt.err
			}}

			got, err := StructuredCompletion[models.CardList](context.Background(), client, "m", "s", "u",
				CompletionOptions{Logger: zap.New(core)})
			assert.NoError(t, err)
			assert.Nil(t, got)
			assert.Equal(t, 1, logs.FilterMessage(tt.wantLog).Len())
		})
	}
}

type explosive struct {
	Value string `json:"value"`
}

func (e *explosive) UnmarshalJSON([]byte) error {
	panic("decoder blew up")
}

func TestStructuredCompletionInspectionFailureIsFatal(t *testing.T) {
	client := &fakeCompleter{respond: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return contentResponse(`{"value":"x"}`), nil
	}}

	got, err := StructuredCompletion[explosive](context.Background(), client, "m", "s", "u", CompletionOptions{})
	assert.Nil(t, got)
	require.Error(t, err)

	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Contains(t, procErr.Error(), "decoder blew up")
}

func TestExtractJSON(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                       `{"a":1}`,
		"```json\n{\"a\":1}\n```":       `{"a":1}`,
		"```\n{\"a\":1}":                `{"a":1}`,
		"Here you go: {\"a\":1} thanks": `{"a":1}`,
		"  ":                            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, extractJSON(in), "input %q", in)
	}
}
