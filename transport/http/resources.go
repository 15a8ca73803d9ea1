package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/layer-3/wellness/core"
)

// MentalBoxClient manages journal entries under /mental-box.
type MentalBoxClient struct {
	client *Client
}

func NewMentalBoxClient(client *Client) *MentalBoxClient {
	return &MentalBoxClient{client: client}
}

func (m *MentalBoxClient) List(ctx context.Context) ([]core.MentalBoxEntry, error) {
	var entries []core.MentalBoxEntry
	if err := m.client.Do(ctx, http.MethodGet, "/mental-box", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (m *MentalBoxClient) Get(ctx context.Context, id string) (*core.MentalBoxEntry, error) {
	var entry core.MentalBoxEntry
	if err := m.client.Do(ctx, http.MethodGet, "/mental-box/"+url.PathEscape(id), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (m *MentalBoxClient) Create(ctx context.Context, req core.CreateMentalBoxRequest) (*core.MentalBoxEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var entry core.MentalBoxEntry
	if err := m.client.Do(ctx, http.MethodPost, "/mental-box", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (m *MentalBoxClient) Update(ctx context.Context, id string, req core.UpdateMentalBoxRequest) (*core.MentalBoxEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var entry core.MentalBoxEntry
	if err := m.client.Do(ctx, http.MethodPut, "/mental-box/"+url.PathEscape(id), req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (m *MentalBoxClient) Delete(ctx context.Context, id string) error {
	return m.client.Do(ctx, http.MethodDelete, "/mental-box/"+url.PathEscape(id), nil, nil)
}

// MoodTrackerClient manages mood check-ins under /mood-tracker.
type MoodTrackerClient struct {
	client *Client
}

func NewMoodTrackerClient(client *Client) *MoodTrackerClient {
	return &MoodTrackerClient{client: client}
}

func (m *MoodTrackerClient) List(ctx context.Context) ([]core.MoodEntry, error) {
	var entries []core.MoodEntry
	if err := m.client.Do(ctx, http.MethodGet, "/mood-tracker", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (m *MoodTrackerClient) Get(ctx context.Context, id string) (*core.MoodEntry, error) {
	var entry core.MoodEntry
	if err := m.client.Do(ctx, http.MethodGet, "/mood-tracker/"+url.PathEscape(id), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Recent returns the newest entries; a non-positive limit uses
// core.DefaultRecentLimit.
func (m *MoodTrackerClient) Recent(ctx context.Context, limit int) ([]core.MoodEntry, error) {
	if limit <= 0 {
		limit = core.DefaultRecentLimit
	}
	var entries []core.MoodEntry
	if err := m.client.Do(ctx, http.MethodGet, fmt.Sprintf("/mood-tracker/recent?limit=%d", limit), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (m *MoodTrackerClient) Stats(ctx context.Context) (*core.MoodStats, error) {
	var stats core.MoodStats
	if err := m.client.Do(ctx, http.MethodGet, "/mood-tracker/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (m *MoodTrackerClient) Create(ctx context.Context, req core.CreateMoodEntryRequest) (*core.MoodEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var entry core.MoodEntry
	if err := m.client.Do(ctx, http.MethodPost, "/mood-tracker", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (m *MoodTrackerClient) Update(ctx context.Context, id string, req core.UpdateMoodEntryRequest) (*core.MoodEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var entry core.MoodEntry
	if err := m.client.Do(ctx, http.MethodPut, "/mood-tracker/"+url.PathEscape(id), req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (m *MoodTrackerClient) Delete(ctx context.Context, id string) error {
	return m.client.Do(ctx, http.MethodDelete, "/mood-tracker/"+url.PathEscape(id), nil, nil)
}

// StressReframeClient asks the backend to reframe a negative thought.
type StressReframeClient struct {
	client *Client
}

func NewStressReframeClient(client *Client) *StressReframeClient {
	return &StressReframeClient{client: client}
}

// Create returns the cached reframe when one already exists for the same
// mental box entry.
func (s *StressReframeClient) Create(ctx context.Context, req core.CreateReframeRequest) (*core.StressReframe, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var reframe core.StressReframe
	if err := s.client.Do(ctx, http.MethodPost, "/stress-reframe", req, &reframe); err != nil {
		return nil, err
	}
	return &reframe, nil
}

func (s *StressReframeClient) List(ctx context.Context) ([]core.StressReframe, error) {
	var reframes []core.StressReframe
	if err := s.client.Do(ctx, http.MethodGet, "/stress-reframe", nil, &reframes); err != nil {
		return nil, err
	}
	return reframes, nil
}
