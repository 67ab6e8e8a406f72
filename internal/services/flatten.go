package services

import (
	"fmt"
	"strconv"

	"ankigen/internal/models"
)

// flattenTopics collects every subtopic label in order and keeps at most limit
// of them. Fewer labels than limit are returned as-is.
func flattenTopics(topics *models.Topics, limit int) []string {
	if topics == nil || limit <= 0 {
		return nil
	}
	var labels []string
	for _, sub := range topics.Result {
		labels = append(labels, sub.Result...)
	}
	if len(labels) > limit {
		labels = labels[:limit]
	}
	return labels
}

// FlattenCardLists turns card lists into rows. Lists are numbered from 1 in
// the order given; card positions are zero padded to the width of that
// list's own card count.
func FlattenCardLists(lists []models.CardList) []models.Row {
	var rows []models.Row
	for i, list := range lists {
		listIndex := i + 1
		width := len(strconv.Itoa(len(list.Cards)))
		for j, card := range list.Cards {
			rows = append(rows, models.Row{
				Index:       formatIndex(listIndex, j+1, width),
				Topic:       list.Topic,
				Question:    card.Front.Question,
				Answer:      card.Back.Answer,
				Explanation: card.Back.Explanation,
				Example:     card.Back.Example,
			})
		}
	}
	return rows
}

func formatIndex(listIndex, cardIndex, width int) string {
	return fmt.Sprintf("%d.%0*d", listIndex, width, cardIndex)
}
