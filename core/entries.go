package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MentalBoxEntry is a journal entry in the user's mental box.
type MentalBoxEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateMentalBoxRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r CreateMentalBoxRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ValidationError("title", "is required")
	}
	return nil
}

// UpdateMentalBoxRequest leaves nil fields unchanged.
type UpdateMentalBoxRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

func (r UpdateMentalBoxRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return ValidationError("title", "must not be empty")
	}
	return nil
}

type MoodType string

const (
	MoodGreat    MoodType = "great"
	MoodGood     MoodType = "good"
	MoodOkay     MoodType = "okay"
	MoodBad      MoodType = "bad"
	MoodTerrible MoodType = "terrible"
)

func (m MoodType) Valid() bool {
	switch m {
	case MoodGreat, MoodGood, MoodOkay, MoodBad, MoodTerrible:
		return true
	}
	return false
}

const (
	MinStressLevel = 1
	MaxStressLevel = 10

	// DefaultRecentLimit is the page size of /mood-tracker/recent.
	DefaultRecentLimit = 7
)

type MoodEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Mood        MoodType  `json:"mood"`
	StressLevel int       `json:"stress_level"`
	Note        *string   `json:"note,omitempty"`
	Activities  []string  `json:"activities,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateMoodEntryRequest struct {
	Mood        MoodType `json:"mood"`
	StressLevel int      `json:"stress_level"`
	Note        *string  `json:"note,omitempty"`
	Activities  []string `json:"activities,omitempty"`
}

func (r CreateMoodEntryRequest) Validate() error {
	if !r.Mood.Valid() {
		return ValidationError("mood", "is not a known mood")
	}
	return validateStress(r.StressLevel)
}

type UpdateMoodEntryRequest struct {
	Mood        *MoodType `json:"mood,omitempty"`
	StressLevel *int      `json:"stress_level,omitempty"`
	Note        *string   `json:"note,omitempty"`
	Activities  []string  `json:"activities,omitempty"`
}

func (r UpdateMoodEntryRequest) Validate() error {
	if r.Mood != nil && !r.Mood.Valid() {
		return ValidationError("mood", "is not a known mood")
	}
	if r.StressLevel != nil {
		return validateStress(*r.StressLevel)
	}
	return nil
}

func validateStress(level int) error {
	if level < MinStressLevel || level > MaxStressLevel {
		return ValidationError("stress_level", "must be between 1 and 10")
	}
	return nil
}

type MoodStats struct {
	AverageStress   decimal.Decimal `json:"average_stress"`
	MostCommonMood  MoodType        `json:"most_common_mood"`
	TotalEntries    int64           `json:"total_entries"`
	EntriesThisWeek int64           `json:"entries_this_week"`
}

// StressReframe is a negative thought rewritten from three perspectives.
type StressReframe struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id,omitempty"`
	MentalBoxID     *string   `json:"mental_box_id,omitempty"`
	OriginalThought string    `json:"original_thought"`
	StoicReframe    string    `json:"stoic_reframe"`
	OptimistReframe string    `json:"optimist_reframe"`
	RealistReframe  string    `json:"realist_reframe"`
	CreatedAt       time.Time `json:"created_at"`
}

// MaxThoughtLength bounds the text sent to the reframing generator.
const MaxThoughtLength = 1000

type CreateReframeRequest struct {
	MentalBoxID     *string `json:"mental_box_id,omitempty"`
	OriginalThought string  `json:"original_thought"`
}

func (r CreateReframeRequest) Validate() error {
	if strings.TrimSpace(r.OriginalThought) == "" {
		return ValidationError("original_thought", "is required")
	}
	if utf8.RuneCountInString(r.OriginalThought) > MaxThoughtLength {
		return ValidationError("original_thought", "is longer than 1000 characters")
	}
	return nil
}
