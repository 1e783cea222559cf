// Package cmd provides the CLI commands for the meetctl tool.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DavidC001/meetingAssistant-sub001/client"
	"github.com/DavidC001/meetingAssistant-sub001/config"
	"github.com/DavidC001/meetingAssistant-sub001/credentials"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/board"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/jobsync"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/logging"
)

// MeetingAPI is the part of the API client the commands use. Tests swap in
// a fake.
type MeetingAPI interface {
	GetProcessingStatus(ctx context.Context, jobID string) (jobsync.RawStatus, error)
	RestartJob(ctx context.Context, jobID string) (jobsync.RawStatus, error)
	ListMeetings(ctx context.Context, limit int) ([]client.Meeting, error)
	GetMeeting(ctx context.Context, meetingID string) (client.Meeting, error)
	ListActionItems(ctx context.Context, meetingID string) ([]board.ActionItem, error)
	UpdateActionItem(ctx context.Context, entityID string, patch client.ActionItemPatch) (board.ActionItem, error)
	Health(ctx context.Context) (client.HealthStatus, error)
}

// TokenStore is the part of the credential store the auth commands use.
type TokenStore interface {
	Save(*credentials.Credentials) error
	Load() (*credentials.Credentials, error)
	Delete() error
	Exists() bool
	Token() (string, error)
	KeyDescription() string
}

// Deps bundles the shared dependencies of a command.
type Deps struct {
	Config *config.CLIConfig
	Client MeetingAPI
	Store  TokenStore
	Logger logging.Logger
}

// DepsResolver builds Deps at run time, after flags have been parsed. A nil
// resolver passed to a command constructor means DefaultResolver.
type DepsResolver func(c *cobra.Command) (*Deps, error)

// DefaultResolver loads configuration, opens the credential store, and
// builds the API client. Root persistent flags override file and environment
// configuration.
func DefaultResolver(c *cobra.Command) (*Deps, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(c, cfg)

	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	log := logging.NewLogger(&logging.Config{
		Level:     level,
		Component: "meetctl",
	})

	deps := &Deps{Config: cfg, Logger: log}

	store, err := credentials.NewStore()
	if err != nil {
		// Commands that never send a token (health against an open server,
		// version) still work; warn and continue unauthenticated.
		log.Warn("credential store unavailable, requests will be unauthenticated", logging.Err(err))
	} else {
		deps.Store = store
	}

	opts := client.DefaultOptions()
	opts.Logger = log
	if cfg.Polling.FetchTimeout > 0 {
		opts.RequestTimeout = cfg.Polling.FetchTimeout.Std()
	}
	if deps.Store != nil {
		opts.Token = deps.Store.Token
	}
	deps.Client = client.New(cfg.ServerURL, opts)

	return deps, nil
}

// applyFlagOverrides copies set root persistent flags over the loaded
// configuration.
func applyFlagOverrides(c *cobra.Command, cfg *config.CLIConfig) {
	if f := c.Flags().Lookup("server"); f != nil && f.Changed {
		cfg.ServerURL = f.Value.String()
	}
	if f := c.Flags().Lookup("output"); f != nil && f.Changed {
		cfg.OutputFormat = config.OutputFormat(f.Value.String())
	}
	if f := c.Flags().Lookup("debug"); f != nil && f.Changed {
		cfg.Debug = f.Value.String() == "true"
	}
}

// resolve applies the default when a constructor was given a nil resolver.
func resolve(r DepsResolver, c *cobra.Command) (*Deps, error) {
	if r == nil {
		r = DefaultResolver
	}
	deps, err := r(c)
	if err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}
	return deps, nil
}
