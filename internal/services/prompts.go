package services

import (
	"fmt"
	"strings"
)

// Subject, preferences and topic labels are embedded as given apart from
// surrounding whitespace.

func buildSystemPrompt(subject, preferences string) string {
	return fmt.Sprintf(`
You are an expert in %s, assisting the user to master the topic while
keeping in mind the user's preferences: %s.
`, strings.TrimSpace(subject), strings.TrimSpace(preferences))
}

func buildTopicPrompt(subject string, topicCount int) string {
	return fmt.Sprintf(`
Generate the top %d important subjects to know on %s in
order of ascending difficulty.
`, topicCount, strings.TrimSpace(subject))
}

func buildCardPrompt(subject, topic string, cardsPerTopic int, preferences string) string {
	return fmt.Sprintf(`
You are to generate %d cards on %s: "%s"
keeping in mind the user's preferences: %s.

Questions should cover both sample problems and concepts.

Use the explanation field to help the user understand the reason behind things
and maximize learning. Additionally, offer tips (performance, gotchas, etc.).
`,
		cardsPerTopic,
		strings.TrimSpace(subject),
		strings.TrimSpace(topic),
		strings.TrimSpace(preferences),
	)
}
