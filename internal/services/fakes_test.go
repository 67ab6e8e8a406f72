package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"ankigen/internal/models"
)

type fakeCompleter struct {
	mu      sync.Mutex
	calls   []openai.ChatCompletionRequest
	respond func(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.respond(req)
}

func contentResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func jsonResponse(t *testing.T, v any) openai.ChatCompletionResponse {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return contentResponse(string(raw))
}

func topicsOf(groups ...[]string) models.Topics {
	var topics models.Topics
	for _, labels := range groups {
		topics.Result = append(topics.Result, models.Subtopics{
			Steps:  []models.Step{{Explanation: "considered the basics", Output: "ok"}},
			Result: labels,
		})
	}
	return topics
}

func cardListOf(topic string, n int) models.CardList {
	list := models.CardList{Topic: topic, Cards: []models.Card{}}
	for i := 0; i < n; i++ {
		list.Cards = append(list.Cards, models.Card{
			Front: models.CardFront{Question: topic + " question"},
			Back: models.CardBack{
				Answer:      topic + " answer",
				Explanation: "because",
				Example:     "for example",
			},
		})
	}
	return list
}

func isTopicRequest(req openai.ChatCompletionRequest) bool {
	return strings.Contains(req.Messages[1].Content, "important subjects")
}

// topicOf extracts the quoted topic label from a card prompt.
func topicOf(req openai.ChatCompletionRequest) string {
	prompt := req.Messages[1].Content
	start := strings.Index(prompt, `"`)
	end := strings.Index(prompt[start+1:], `"`)
	return prompt[start+1 : start+1+end]
}
