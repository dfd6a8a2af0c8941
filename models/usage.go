package models

import (
	"time"
)

// DailyUsage represents one user's accumulated AI usage for a single date.
// A row exists per (user_id, date) and is only ever mutated by atomic
// increments; cost_total never decreases within a day.
type DailyUsage struct {
	UserID         string    `json:"user_id" db:"user_id"`
	Date           time.Time `json:"date" db:"date"`
	QuestionsAsked int       `json:"questions_asked" db:"questions_asked"`
	CostTotal      float64   `json:"cost_total" db:"cost_total"`

	// Per-provider query counters. Their sum equals QuestionsAsked.
	QueriesGemini      int `json:"queries_gemini" db:"queries_gemini"`
	QueriesHuggingFace int `json:"queries_huggingface" db:"queries_huggingface"`
	QueriesOllama      int `json:"queries_ollama" db:"queries_ollama"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the DailyUsage model
func (DailyUsage) TableName() string {
	return "user_analytics"
}

// UsageDate truncates t to the calendar date used as the ledger key.
func UsageDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
