package wellness

import (
	"context"

	"github.com/layer-3/wellness/core"
	"github.com/layer-3/wellness/service"
	transport "github.com/layer-3/wellness/transport/http"
)

// Session represents the public interface for the user's session
type Session interface {
	// Initialize resolves the stored credential into an identity, once
	Initialize(ctx context.Context) error

	// Ready is closed when Initialize has finished
	Ready() <-chan struct{}

	// Login authenticates by email or username and stores the credential
	Login(ctx context.Context, emailOrUsername, password string) (*core.Identity, error)

	// Register creates an account and signs it in
	Register(ctx context.Context, req core.RegisterRequest) (*core.Identity, error)

	// Logout ends the session locally even when the backend call fails
	Logout(ctx context.Context)

	// State returns the current identity and whether a resolution is running
	State() service.SessionState

	IsAuthenticated() bool
}

// MentalBox represents the journal entry collection
type MentalBox interface {
	List(ctx context.Context) ([]core.MentalBoxEntry, error)
	Get(ctx context.Context, id string) (*core.MentalBoxEntry, error)
	Create(ctx context.Context, req core.CreateMentalBoxRequest) (*core.MentalBoxEntry, error)
	Update(ctx context.Context, id string, req core.UpdateMentalBoxRequest) (*core.MentalBoxEntry, error)
	Delete(ctx context.Context, id string) error
}

// MoodTracker represents the mood entry collection
type MoodTracker interface {
	List(ctx context.Context) ([]core.MoodEntry, error)
	Get(ctx context.Context, id string) (*core.MoodEntry, error)
	Recent(ctx context.Context, limit int) ([]core.MoodEntry, error)
	Stats(ctx context.Context) (*core.MoodStats, error)
	Create(ctx context.Context, req core.CreateMoodEntryRequest) (*core.MoodEntry, error)
	Update(ctx context.Context, id string, req core.UpdateMoodEntryRequest) (*core.MoodEntry, error)
	Delete(ctx context.Context, id string) error
}

// StressReframes represents the reframing collection
type StressReframes interface {
	Create(ctx context.Context, req core.CreateReframeRequest) (*core.StressReframe, error)
	List(ctx context.Context) ([]core.StressReframe, error)
}

var (
	_ Session        = (*service.SessionManager)(nil)
	_ MentalBox      = (*transport.MentalBoxClient)(nil)
	_ MoodTracker    = (*transport.MoodTrackerClient)(nil)
	_ StressReframes = (*transport.StressReframeClient)(nil)
)
