package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ankigen/internal/models"
	"ankigen/internal/notify"
)

// ProgressCallback is called during generation to report progress
type ProgressCallback func(step, message string, current, total int)

// GenerateRequest carries the user inputs for one generation run.
type GenerateRequest struct {
	APIKey        string
	Subject       string
	TopicCount    int
	CardsPerTopic int
	Preferences   string
}

// CardGenerator runs the topic then per-topic card pipeline. Requests are
// issued one at a time.
type CardGenerator struct {
	newClient ClientFactory
	model     string
	timeout   time.Duration
	logger    *zap.Logger

	completeTopics func(ctx context.Context, client ChatCompleter, model, systemPrompt, userPrompt string, opts CompletionOptions) (*models.Topics, error)
	completeCards  func(ctx context.Context, client ChatCompleter, model, systemPrompt, userPrompt string, opts CompletionOptions) (*models.CardList, error)
}

func NewCardGenerator(newClient ClientFactory, model string, timeout time.Duration, logger *zap.Logger) *CardGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CardGenerator{
		newClient: newClient,
		model:     model,
		timeout:   timeout,
		logger:    logger,

		completeTopics: StructuredCompletion[models.Topics],
		completeCards:  StructuredCompletion[models.CardList],
	}
}

func (g *CardGenerator) disabled() bool {
	return g.newClient == nil || g.model == ""
}

func (g *CardGenerator) Generate(ctx context.Context, req GenerateRequest, notifier notify.Notifier) ([]models.Row, error) {
	return g.GenerateWithProgress(ctx, req, notifier, nil)
}

// GenerateWithProgress produces rows for req.
//
// A missing API key or a processing error on the topic stage is returned as
// an error. A topic stage that yields nothing returns no rows and no error.
// Topics whose cards cannot be generated are logged and skipped.
func (g *CardGenerator) GenerateWithProgress(ctx context.Context, req GenerateRequest, notifier notify.Notifier, progress ProgressCallback) ([]models.Row, error) {
	if notifier == nil {
		notifier = notify.Discard
	}
	if progress == nil {
		progress = func(string, string, int, int) {}
	}

	notifier.Info("Starting process")

	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if g.disabled() {
		return nil, ErrAIUnavailable
	}

	client := g.newClient(req.APIKey)
	opts := CompletionOptions{Logger: g.logger, Timeout: g.timeout}
	log := g.logger.With(zap.String("subject", req.Subject))

	systemPrompt := buildSystemPrompt(req.Subject, req.Preferences)
	topicPrompt := buildTopicPrompt(req.Subject, req.TopicCount)

	progress("topics", "Generating topics", 0, 100)

	topics, err := g.completeTopics(ctx, client, g.model, systemPrompt, topicPrompt, opts)
	if err != nil {
		return nil, fmt.Errorf("topic generation failed: %w", err)
	}
	if topics == nil {
		log.Warn("failed to generate topics")
		return nil, nil
	}
	if len(topics.Result) == 0 {
		log.Warn("invalid topics response format")
		return nil, nil
	}

	topicList := flattenTopics(topics, req.TopicCount)
	log.Info("generated topics", zap.Int("requested", req.TopicCount), zap.Strings("topics", topicList))

	var cardLists []models.CardList
	for i, topic := range topicList {
		pct := 10 + (80 * i / len(topicList))
		progress("cards", fmt.Sprintf("Generating cards for: %s", topic), pct, 100)

		cardPrompt := buildCardPrompt(req.Subject, topic, req.CardsPerTopic, req.Preferences)
		cards, err := g.completeCards(ctx, client, g.model, systemPrompt, cardPrompt, opts)
		if err != nil {
			log.Error("an error occurred while generating cards", zap.String("topic", topic), zap.Error(err))
			continue
		}
		if cards == nil {
			log.Warn("failed to generate cards", zap.String("topic", topic))
			continue
		}
		if cards.Cards == nil {
			log.Warn("invalid card response format", zap.String("topic", topic))
			continue
		}
		cardLists = append(cardLists, *cards)
	}

	progress("flatten", "Building rows", 95, 100)
	rows := FlattenCardLists(cardLists)

	log.Info("generation complete",
		zap.Int("topics", len(topicList)),
		zap.Int("card_lists", len(cardLists)),
		zap.Int("rows", len(rows)))
	progress("complete", "Generation complete", 100, 100)

	return rows, nil
}
