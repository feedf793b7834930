// Package seed populates an empty store with the bootstrap directory, the
// boot audit entry and, optionally, demo mail.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/repository"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
)

// Boot entry values
const (
	bootDetails       = "MAILGUARD.AI Security Engine initialized"
	bootSourceAddress = "127.0.0.1"
	bootOffset        = 10 * time.Hour
)

// Demo mail volume per demo user
const (
	ReceivedPerUser = 23
	SentPerUser     = 4
)

// Options selects what Run seeds
type Options struct {
	// DemoData seeds the demo admin, six demo users and generated mail
	DemoData bool
	// File is an optional YAML seed file applied after the demo data
	File string
}

// Seeder fills an empty store
type Seeder struct {
	store     repository.Store
	directory services.DirectoryService
	logger    *slog.Logger
	rand      *rand.Rand
	now       func() time.Time
}

// NewSeeder creates a Seeder. A nil rng is seeded from the clock.
func NewSeeder(store repository.Store, directory services.DirectoryService, logger *slog.Logger, rng *rand.Rand) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Seeder{
		store:     store,
		directory: directory,
		logger:    logger,
		rand:      rng,
		now:       time.Now,
	}
}

// Run seeds the store when it holds no users. A populated store is left untouched.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	users, err := s.store.Users().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if users > 0 {
		s.logger.Info("store already populated, skipping seed", slog.Int64("users", users))
		return nil
	}

	if err := s.recordBoot(ctx); err != nil {
		return err
	}

	if opts.DemoData {
		if err := s.seedDemo(ctx); err != nil {
			return err
		}
	}

	if opts.File != "" {
		file, err := LoadFile(opts.File)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, file); err != nil {
			return fmt.Errorf("seed file %s: %w", opts.File, err)
		}
	}

	return nil
}

func (s *Seeder) recordBoot(ctx context.Context) error {
	entry := &models.ActivityLog{
		ActorID:       models.SystemActor,
		Action:        services.ActionSystemBoot,
		Details:       bootDetails,
		Timestamp:     s.now().Add(-bootOffset).UTC(),
		SourceAddress: bootSourceAddress,
	}
	if err := s.store.Logs().Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record boot entry: %w", err)
	}
	return nil
}

func (s *Seeder) seedDemo(ctx context.Context) error {
	if err := s.provision(ctx, append([]services.ProvisionRequest{DemoAdmin}, DemoUsers...)); err != nil {
		return err
	}

	emails := s.generateEmails()
	if err := s.store.Emails().CreateBatch(ctx, emails); err != nil {
		return fmt.Errorf("failed to store demo mail: %w", err)
	}

	s.logger.Info("demo data seeded",
		slog.Int("users", len(DemoUsers)+1),
		slog.Int("emails", len(emails)))
	return nil
}

func (s *Seeder) provision(ctx context.Context, reqs []services.ProvisionRequest) error {
	for _, req := range reqs {
		if _, err := s.directory.Provision(ctx, models.SystemActor, req); err != nil {
			return fmt.Errorf("failed to provision %s: %w", req.Email, err)
		}
	}
	return nil
}
