package models

// Step is one reasoning step the model records while choosing topics.
type Step struct {
	Explanation string `json:"explanation"`
	Output      string `json:"output"`
}

type Subtopics struct {
	Steps  []Step   `json:"steps"`
	Result []string `json:"result"`
}

// Topics is the response shape requested for the topic stage.
type Topics struct {
	Result []Subtopics `json:"result"`
}

type CardFront struct {
	Question string `json:"question,omitempty"`
}

type CardBack struct {
	Answer      string `json:"answer,omitempty"`
	Explanation string `json:"explanation"`
	Example     string `json:"example"`
}

// Card is a single flashcard. Question and answer are optional and an
// incomplete card is passed through as-is.
type Card struct {
	Front CardFront `json:"front"`
	Back  CardBack  `json:"back"`
}

// CardList holds every card generated for one topic.
type CardList struct {
	Topic string `json:"topic"`
	Cards []Card `json:"cards"`
}

// Row is the flattened, exportable form of a card.
type Row struct {
	Index       string `json:"index"`
	Topic       string `json:"topic"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
	Example     string `json:"example"`
}

// RowHeader lists the column names in export order.
var RowHeader = []string{"Index", "Topic", "Question", "Answer", "Explanation", "Example"}

// Record returns the row's fields in RowHeader order.
func (r Row) Record() []string {
	return []string{r.Index, r.Topic, r.Question, r.Answer, r.Explanation, r.Example}
}
