package devbackend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/layer-3/wellness/core"
)

// MaxReframesListed caps the reframe history returned by List.
const MaxReframesListed = 50

// Repository holds every user's entries in memory. All lookups are scoped
// to the owning user.
type Repository struct {
	mu        sync.RWMutex
	mentalBox map[string]*core.MentalBoxEntry
	moods     map[string]*core.MoodEntry
	reframes  []*core.StressReframe
	now       func() time.Time
}

func NewRepository() *Repository {
	return &Repository{
		mentalBox: make(map[string]*core.MentalBoxEntry),
		moods:     make(map[string]*core.MoodEntry),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) ListMentalBox(ctx context.Context, userID string) []core.MentalBoxEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MentalBoxEntry, 0)
	for _, e := range r.mentalBox {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *Repository) GetMentalBox(ctx context.Context, userID, id string) (*core.MentalBoxEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.mentalBox[id]
	if !ok || e.UserID != userID {
		return nil, core.ErrNotFound
	}
	entry := *e
	return &entry, nil
}

func (r *Repository) CreateMentalBox(ctx context.Context, userID string, req core.CreateMentalBoxRequest) (*core.MentalBoxEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.now()
	e := &core.MentalBoxEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Lock()
	r.mentalBox[e.ID] = e
	r.mu.Unlock()
	entry := *e
	return &entry, nil
}

func (r *Repository) UpdateMentalBox(ctx context.Context, userID, id string, req core.UpdateMentalBoxRequest) (*core.MentalBoxEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.mentalBox[id]
	if !ok || e.UserID != userID {
		return nil, core.ErrNotFound
	}
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Content != nil {
		e.Content = *req.Content
	}
	e.UpdatedAt = r.now()
	entry := *e
	return &entry, nil
}

func (r *Repository) DeleteMentalBox(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.mentalBox[id]
	if !ok || e.UserID != userID {
		return core.ErrNotFound
	}
	delete(r.mentalBox, id)
	return nil
}

// ListMoods returns the user's entries newest first; limit <= 0 means all.
func (r *Repository) ListMoods(ctx context.Context, userID string, limit int) []core.MoodEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MoodEntry, 0)
	for _, e := range r.moods {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *Repository) GetMood(ctx context.Context, userID, id string) (*core.MoodEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.moods[id]
	if !ok || e.UserID != userID {
		return nil, core.ErrNotFound
	}
	entry := *e
	return &entry, nil
}

func (r *Repository) CreateMood(ctx context.Context, userID string, req core.CreateMoodEntryRequest) (*core.MoodEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.now()
	e := &core.MoodEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Mood:        req.Mood,
		StressLevel: req.StressLevel,
		Note:        req.Note,
		Activities:  req.Activities,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.mu.Lock()
	r.moods[e.ID] = e
	r.mu.Unlock()
	entry := *e
	return &entry, nil
}

func (r *Repository) UpdateMood(ctx context.Context, userID, id string, req core.UpdateMoodEntryRequest) (*core.MoodEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.moods[id]
	if !ok || e.UserID != userID {
		return nil, core.ErrNotFound
	}
	if req.Mood != nil {
		e.Mood = *req.Mood
	}
	if req.StressLevel != nil {
		e.StressLevel = *req.StressLevel
	}
	if req.Note != nil {
		e.Note = req.Note
	}
	if req.Activities != nil {
		e.Activities = req.Activities
	}
	e.UpdatedAt = r.now()
	entry := *e
	return &entry, nil
}

func (r *Repository) DeleteMood(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.moods[id]
	if !ok || e.UserID != userID {
		return core.ErrNotFound
	}
	delete(r.moods, id)
	return nil
}

// moodOrder breaks ties when two moods are equally common.
var moodOrder = []core.MoodType{core.MoodGreat, core.MoodGood, core.MoodOkay, core.MoodBad, core.MoodTerrible}

// MoodStats summarises every entry of the user. With no entries the most
// common mood is okay.
func (r *Repository) MoodStats(ctx context.Context, userID string) core.MoodStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	weekAgo := r.now().Add(-7 * 24 * time.Hour)
	counts := make(map[core.MoodType]int)
	sum := decimal.Zero
	stats := core.MoodStats{AverageStress: decimal.Zero, MostCommonMood: core.MoodOkay}

	for _, e := range r.moods {
		if e.UserID != userID {
			continue
		}
		stats.TotalEntries++
		if !e.CreatedAt.Before(weekAgo) {
			stats.EntriesThisWeek++
		}
		sum = sum.Add(decimal.NewFromInt(int64(e.StressLevel)))
		counts[e.Mood]++
	}
	if stats.TotalEntries == 0 {
		return stats
	}

	stats.AverageStress = sum.DivRound(decimal.NewFromInt(stats.TotalEntries), 2)
	best := 0
	for _, m := range moodOrder {
		if counts[m] > best {
			best = counts[m]
			stats.MostCommonMood = m
		}
	}
	return stats
}

// CachedReframe returns the newest reframe the user made for a mental box
// entry, if any.
func (r *Repository) CachedReframe(ctx context.Context, userID, mentalBoxID string) (*core.StressReframe, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.reframes) - 1; i >= 0; i-- {
		rf := r.reframes[i]
		if rf.UserID == userID && rf.MentalBoxID != nil && *rf.MentalBoxID == mentalBoxID {
			out := *rf
			return &out, true
		}
	}
	return nil, false
}

func (r *Repository) SaveReframe(ctx context.Context, rf core.StressReframe) *core.StressReframe {
	rf.ID = uuid.NewString()
	rf.CreatedAt = r.now()
	r.mu.Lock()
	r.reframes = append(r.reframes, &rf)
	r.mu.Unlock()
	out := rf
	return &out
}

// ListReframes returns the newest MaxReframesListed reframes of the user.
func (r *Repository) ListReframes(ctx context.Context, userID string) []core.StressReframe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.StressReframe, 0)
	for i := len(r.reframes) - 1; i >= 0 && len(out) < MaxReframesListed; i-- {
		if r.reframes[i].UserID == userID {
			out = append(out, *r.reframes[i])
		}
	}
	return out
}
