package storage

import (
	"database/sql"
	"time"
)

type Budget struct {
	ID              string
	Category        string
	Emoji           string
	SuggestedAmount float64
	CurrentAmount   float64
	SpentAmount     float64
	Status          sql.NullString
	LastMonthSpent  float64
	IsSuggestion    bool
	Position        int64
	UpdatedAt       time.Time
}

type ScoreHistory struct {
	ID             int64
	PeriodLabel    string
	Score          int64
	Classification sql.NullString
	RecordedAt     time.Time
}

type ScoreComponent struct {
	HistoryID    int64
	Position     int64
	Name         string
	RawScore     float64
	Weight       float64
	Contribution float64
}

type BudgetEvent struct {
	ID         int64
	EventID    string
	Action     string
	BudgetID   string
	Category   string
	Amount     float64
	Spent      float64
	Status     sql.NullString
	OccurredAt time.Time
}
