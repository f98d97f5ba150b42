package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"pay-router.backend/internal/config"
	"pay-router.backend/internal/domain/entities"
	"pay-router.backend/internal/infrastructure/repositories"
	"pay-router.backend/internal/usecases"
)

var openChainDB = func(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), &gorm.Config{PrepareStmt: false})
}

var openChainSQLDB = func(db *gorm.DB) (io.Closer, error) {
	return db.DB()
}

type chainRuntime interface {
	ListSteps(ctx context.Context, method entities.PaymentMethod) ([]*entities.RetryStep, error)
	AddStep(ctx context.Context, method entities.PaymentMethod, acquirer entities.Acquirer, order int) (uuid.UUID, error)
	Reorder(ctx context.Context, method entities.PaymentMethod, orderedIDs []uuid.UUID) error
	RemoveStep(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SeedFromFile(ctx context.Context, path string) (int, error)
}

type chainctlDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(cfg *config.Config) (chainRuntime, io.Closer, error)
	out     io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func defaultChainctlDeps() chainctlDeps {
	return chainctlDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (chainRuntime, io.Closer, error) {
			db, err := openChainDB(cfg.Database.URL())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to connect db: %w", err)
			}
			sqlDB, err := openChainSQLDB(db)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to init sql db: %w", err)
			}
			stepRepo := repositories.NewRetryStepRepository(db)
			return usecases.NewRetryChainUsecase(stepRepo, repositories.NewUnitOfWork(db)), sqlDB, nil
		},
		out: os.Stdout,
	}
}

// withRuntime loads configuration, opens the store and runs fn against it.
func (d chainctlDeps) withRuntime(fn func(ctx context.Context, rt chainRuntime) error) error {
	if err := d.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	rt, closer, err := d.prepare(d.loadCfg())
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()
	return fn(context.Background(), rt)
}

func newRootCmd(deps chainctlDeps) *cobra.Command {
	if deps.loadEnv == nil {
		deps.loadEnv = func() error { return godotenv.Load() }
	}
	if deps.loadCfg == nil {
		deps.loadCfg = config.Load
	}
	if deps.prepare == nil {
		deps.prepare = defaultChainctlDeps().prepare
	}
	if deps.out == nil {
		deps.out = os.Stdout
	}

	root := &cobra.Command{
		Use:           "chainctl",
		Short:         "Manage acquirer failover chains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(deps.out)

	root.AddCommand(listCmd(deps))
	root.AddCommand(addCmd(deps))
	root.AddCommand(reorderCmd(deps))
	root.AddCommand(removeCmd(deps))
	root.AddCommand(activeCmd(deps, "activate", "Include a step in routing", true))
	root.AddCommand(activeCmd(deps, "deactivate", "Exclude a step from routing", false))
	root.AddCommand(seedCmd(deps))
	return root
}

func listCmd(deps chainctlDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "list [method...]",
		Short: "List the steps of every or the given payment methods",
		RunE: func(cmd *cobra.Command, args []string) error {
			methods := entities.AllPaymentMethods()
			if len(args) > 0 {
				methods = nil
				for _, raw := range args {
					m, err := entities.ParsePaymentMethod(raw)
					if err != nil {
						return err
					}
					methods = append(methods, m)
				}
			}

			return deps.withRuntime(func(ctx context.Context, rt chainRuntime) error {
				w := tabwriter.NewWriter(deps.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "METHOD\tORDER\tACQUIRER\tACTIVE\tID")
				for _, m := range methods {
					steps, err := rt.ListSteps(ctx, m)
					if err != nil {
						return fmt.Errorf("failed to list %s: %w", m, err)
					}
					for _, s := range steps {
						fmt.Fprintf(w, "%s\t%d\t%s\t%t\t%s\n", m, s.Order, s.Acquirer, s.IsActive, s.ID)
					}
				}
				return w.Flush()
			})
		},
	}
}

func addCmd(deps chainctlDeps) *cobra.Command {
	var order int
	cmd := &cobra.Command{
		Use:   "add <method> <acquirer>",
		Short: "Append an acquirer to a payment method's chain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := entities.ParsePaymentMethod(args[0])
			if err != nil {
				return err
			}
			acquirer, err := entities.ParseAcquirer(args[1])
			if err != nil {
				return err
			}

			return deps.withRuntime(func(ctx context.Context, rt chainRuntime) error {
				pos := order
				if pos == 0 {
					steps, err := rt.ListSteps(ctx, method)
					if err != nil {
						return err
					}
					pos = len(steps) + 1
				}
				id, err := rt.AddStep(ctx, method, acquirer, pos)
				if err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "added %s to %s at order %d (id=%s)\n", acquirer, method, pos, id)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&order, "order", "o", 0, "position in the chain (default: next free)")
	return cmd
}

func reorderCmd(deps chainctlDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <method> <step-id>...",
		Short: "Rewrite the order of a payment method's chain",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := entities.ParsePaymentMethod(args[0])
			if err != nil {
				return err
			}
			ids, err := parseStepIDs(args[1:])
			if err != nil {
				return err
			}

			return deps.withRuntime(func(ctx context.Context, rt chainRuntime) error {
				if err := rt.Reorder(ctx, method, ids); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "reordered %s chain (%d steps)\n", method, len(ids))
				return nil
			})
		},
	}
}

func removeCmd(deps chainctlDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <step-id>",
		Short: "Delete a step and compact the remaining orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseStepIDs(args)
			if err != nil {
				return err
			}
			return deps.withRuntime(func(ctx context.Context, rt chainRuntime) error {
				if err := rt.RemoveStep(ctx, ids[0]); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "removed step %s\n", ids[0])
				return nil
			})
		},
	}
}

func activeCmd(deps chainctlDeps, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <step-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseStepIDs(args)
			if err != nil {
				return err
			}
			return deps.withRuntime(func(ctx context.Context, rt chainRuntime) error {
				if err := rt.SetActive(ctx, ids[0], active); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "%sd step %s\n", use, ids[0])
				return nil
			})
		},
	}
}

func seedCmd(deps chainctlDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Create chains from a YAML file for methods that have none",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.withRuntime(func(ctx context.Context, rt chainRuntime) error {
				seeded, err := rt.SeedFromFile(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "seeded %d payment method(s)\n", seeded)
				return nil
			})
		},
	}
}

func parseStepIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("invalid step id %q: %w", r, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func main() {
	if err := newRootCmd(defaultChainctlDeps()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
