// Command seatctl runs a seat assignment from the shell, against the same
// database as the server.
//
//	seatctl --policy priority --groups A,B,C --dry-run
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/event-seat-assignment/internal/config"
	"github.com/iliyamo/event-seat-assignment/internal/database"
	"github.com/iliyamo/event-seat-assignment/internal/queue"
	"github.com/iliyamo/event-seat-assignment/internal/repository"
	"github.com/iliyamo/event-seat-assignment/internal/seating"
	"github.com/iliyamo/event-seat-assignment/internal/service"
)

type options struct {
	policy  seating.Policy
	groups  []string
	seed    *uint64
	dryRun  bool
	publish bool
}

func main() {
	var (
		policyName = pflag.StringP("policy", "p", "random", "assignment policy: random or priority")
		groups     = pflag.StringSliceP("groups", "g", nil, "seat groups in order; defaults to the saved seat config")
		seed       = pflag.Uint64("seed", 0, "shuffle seed; random when unset")
		dryRun     = pflag.Bool("dry-run", false, "compute the assignment without saving it")
		publish    = pflag.Bool("publish", false, "publish the seats.assigned event to RabbitMQ")
		envFile    = pflag.String("env", ".env", "dotenv file to load")
	)
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("dotenv: %v", err)
	}
	policy, err := seating.ParsePolicy(*policyName)
	if err != nil {
		log.Fatal(err)
	}
	opts := options{policy: policy, groups: *groups, dryRun: *dryRun, publish: *publish}
	if pflag.CommandLine.Changed("seed") {
		opts.seed = seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	res, err := run(ctx, opts)
	stop()
	if err != nil {
		log.Fatal(describe(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatal(err)
	}
	fmt.Fprintf(os.Stderr, "%s run %s: %d seats for %d registrants, %d unplaced (seed %d, dry run %v)\n",
		res.Policy, res.RunID, res.AssignedCount, res.Registrants, len(res.Unplaced), res.Seed, res.DryRun)
}

// run owns every connection it opens, so they are closed before main exits.
func run(ctx context.Context, opts options) (*service.AssignResult, error) {
	cfg := config.DBConfig()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	defer db.Close()

	catalog, err := cfg.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	groups := opts.groups
	if len(groups) == 0 {
		active, err := repository.NewSettingRepo(db).ActiveSeatGroups(ctx)
		if err != nil {
			return nil, fmt.Errorf("no --groups given and no saved seat config: %w", err)
		}
		groups = active.Groups
	}

	var pub service.EventPublisher
	if opts.publish {
		pub = queue.NewPublisher()
	}
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	svc := service.NewSeatService(repository.NewSeatRepo(db), catalog, service.NewLocker(rdb), pub)
	svc.Timeout = cfg.AssignTimeout
	svc.LockTTL = cfg.AssignLockTTL

	return svc.Assign(ctx, service.AssignRequest{Groups: groups, Policy: opts.policy, Seed: opts.seed, DryRun: opts.dryRun})
}

func describe(err error) string {
	var (
		capErr  *seating.CapacityError
		pairErr *seating.PairingError
	)
	switch {
	case errors.As(err, &capErr):
		return fmt.Sprintf("insufficient seats: %d free, %d needed", capErr.Free, capErr.Needed)
	case errors.As(err, &pairErr):
		return fmt.Sprintf("insufficient seats: no same-group pair left for registrant %d", pairErr.RequestID)
	case errors.Is(err, service.ErrAssignmentInProgress):
		return "another assignment run is in progress"
	}
	return err.Error()
}
