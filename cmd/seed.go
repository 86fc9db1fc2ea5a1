package cmd

import (
	"context"
	"fmt"
	"taskremind/internal/domain"
	"taskremind/internal/infra/sqlstore"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var (
		project string
		offsets []time.Duration
	)

	var command = &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users and tasks with upcoming deadlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer stop()

			store, err := sqlstore.Open(ctx, cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			ids, err := seedDemo(ctx, store, project, time.Now(), offsets)
			if err != nil {
				return err
			}
			log.Ctx(ctx).Info().Strs("tasks", ids).Str("project", project).Msg("seeded demo data")
			return nil
		},
	}

	command.Flags().StringVar(&project, "project", "demo", "Project id to seed into")
	command.Flags().DurationSliceVar(&offsets, "due-in", []time.Duration{time.Hour, 24 * time.Hour}, "Deadlines to create, relative to now")
	return command
}

func seedDemo(ctx context.Context, s *sqlstore.Store, project string, now time.Time, offsets []time.Duration) ([]string, error) {
	users := []domain.User{
		{ID: "u-alice", Name: "Alice", Email: "alice@example.com"},
		{ID: "u-bob", Name: "Bob", Email: "bob@example.com"},
		{ID: "u-carol", Name: "Carol", Email: "carol@example.com"},
	}
	for _, u := range users {
		if err := s.UpsertUser(ctx, u); err != nil {
			return nil, err
		}
	}
	if err := s.UpsertProject(ctx, domain.Project{ID: project, Name: "Demo project"}); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(offsets))
	for _, off := range offsets {
		deadline := now.Add(off).UTC()
		t := sqlstore.NewTask{
			ID:         uuid.NewString(),
			ProjectID:  project,
			Title:      fmt.Sprintf("Demo task due in %s", off),
			Deadline:   &deadline,
			AssigneeID: "u-alice",
			CreatorID:  "u-bob",
		}
		if err := s.UpsertTask(ctx, t); err != nil {
			return nil, err
		}
		if err := s.AddFollower(ctx, t.ID, "u-carol"); err != nil {
			return nil, err
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}
