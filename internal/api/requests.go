package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"ankigen/internal/models"
)

const maxRequestBody = 4 << 20 // 4 MB

var validate = validator.New()

type generateRequest struct {
	APIKey        string `json:"apiKey"`
	Subject       string `json:"subject" validate:"required,max=200"`
	TopicCount    int    `json:"topicCount" validate:"min=2,max=20"`
	CardsPerTopic int    `json:"cardsPerTopic" validate:"min=2,max=30"`
	Preferences   string `json:"preferences" validate:"max=1000"`
}

type exportRequest struct {
	Rows []models.Row `json:"rows"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func (req *generateRequest) normalize() {
	req.APIKey = strings.TrimSpace(req.APIKey)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Preferences = strings.TrimSpace(req.Preferences)
}

// validationMessage turns validator output into a short client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := jsonFieldName(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	if field == "APIKey" {
		return "apiKey"
	}
	return strings.ToLower(field[:1]) + field[1:]
}
