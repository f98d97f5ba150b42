package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pay-router.backend/internal/config"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/infrastructure/repositories"
	"pay-router.backend/internal/usecases"
)

type runtimeStub struct {
	steps     map[entities.PaymentMethod][]*entities.RetryStep
	added     []string
	reordered []uuid.UUID
	removed   uuid.UUID
	active    map[uuid.UUID]bool
	seedErr   error
}

func (s *runtimeStub) ListSteps(_ context.Context, method entities.PaymentMethod) ([]*entities.RetryStep, error) {
	return s.steps[method], nil
}
func (s *runtimeStub) AddStep(_ context.Context, method entities.PaymentMethod, acquirer entities.Acquirer, order int) (uuid.UUID, error) {
	s.added = append(s.added, fmt.Sprintf("%s:%s:%d", method, acquirer, order))
	return uuid.New(), nil
}
func (s *runtimeStub) Reorder(_ context.Context, _ entities.PaymentMethod, ids []uuid.UUID) error {
	s.reordered = ids
	return nil
}
func (s *runtimeStub) RemoveStep(_ context.Context, id uuid.UUID) error {
	s.removed = id
	return nil
}
func (s *runtimeStub) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	if s.active == nil {
		s.active = map[uuid.UUID]bool{}
	}
	s.active[id] = active
	return nil
}
func (s *runtimeStub) SeedFromFile(context.Context, string) (int, error) {
	return 2, s.seedErr
}

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func stubDeps(rt chainRuntime, closer io.Closer, out io.Writer) chainctlDeps {
	return chainctlDeps{
		loadEnv: func() error { return errors.New("no .env") },
		loadCfg: func() *config.Config { return &config.Config{} },
		prepare: func(*config.Config) (chainRuntime, io.Closer, error) { return rt, closer, nil },
		out:     out,
	}
}

func runCmd(deps chainctlDeps, args ...string) error {
	root := newRootCmd(deps)
	root.SetArgs(args)
	return root.Execute()
}

func TestChainctl_CommandsDelegateToRuntime(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	rt := &runtimeStub{steps: map[entities.PaymentMethod][]*entities.RetryStep{
		entities.PaymentMethodPix: {{ID: a, Order: 1, Acquirer: entities.AcquirerInter, IsActive: true}},
	}}
	closer := &closeCounter{}
	var out bytes.Buffer
	deps := stubDeps(rt, closer, &out)

	require.NoError(t, runCmd(deps, "add", "pix", "Ativus"))
	require.NoError(t, runCmd(deps, "add", "boleto", "inter", "--order", "1"))
	assert.Equal(t, []string{"pix:ativus:2", "boleto:inter:1"}, rt.added)

	require.NoError(t, runCmd(deps, "reorder", "pix", b.String(), a.String()))
	assert.Equal(t, []uuid.UUID{b, a}, rt.reordered)

	require.NoError(t, runCmd(deps, "remove", a.String()))
	assert.Equal(t, a, rt.removed)

	require.NoError(t, runCmd(deps, "deactivate", b.String()))
	require.NoError(t, runCmd(deps, "activate", a.String()))
	assert.Equal(t, map[uuid.UUID]bool{a: true, b: false}, rt.active)

	require.NoError(t, runCmd(deps, "seed", "chains.yaml"))
	assert.Contains(t, out.String(), "seeded 2 payment method(s)")

	out.Reset()
	require.NoError(t, runCmd(deps, "list", "pix"))
	assert.Contains(t, out.String(), "METHOD")
	assert.Contains(t, out.String(), a.String())

	assert.Equal(t, 8, closer.closed)
}

func TestChainctl_RejectsBadArguments(t *testing.T) {
	rt := &runtimeStub{}
	deps := stubDeps(rt, nil, io.Discard)

	require.ErrorIs(t, runCmd(deps, "add", "cash", "inter"), domainerrors.ErrUnknownMethod)
	require.ErrorIs(t, runCmd(deps, "add", "pix", "acme"), domainerrors.ErrUnknownAcquirer)
	require.ErrorIs(t, runCmd(deps, "list", "cash"), domainerrors.ErrUnknownMethod)
	require.Error(t, runCmd(deps, "remove", "not-a-uuid"))
	require.Error(t, runCmd(deps, "reorder", "pix"))
	require.Error(t, runCmd(deps, "activate"))

	rt.seedErr = errors.New("bad yaml")
	require.Error(t, runCmd(deps, "seed", "chains.yaml"))
	assert.Empty(t, rt.added)
}

func TestChainctl_PrepareError(t *testing.T) {
	deps := chainctlDeps{
		loadEnv: func() error { return nil },
		loadCfg: func() *config.Config { return &config.Config{} },
		prepare: func(*config.Config) (chainRuntime, io.Closer, error) {
			return nil, nil, errors.New("failed to connect db")
		},
		out: io.Discard,
	}
	require.EqualError(t, runCmd(deps, "list"), "failed to connect db")
}

func TestChainctl_AgainstSQLite(t *testing.T) {
	dsn := fmt.Sprintf("file:chainctl_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE retry_steps (
		id TEXT PRIMARY KEY,
		payment_method TEXT NOT NULL,
		step_order INTEGER NOT NULL,
		acquirer TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (payment_method, acquirer)
	);`).Error)

	chains := usecases.NewRetryChainUsecase(repositories.NewRetryStepRepository(db), repositories.NewUnitOfWork(db))
	var out bytes.Buffer
	deps := stubDeps(chains, nil, &out)

	seedFile := filepath.Join(t.TempDir(), "chains.yaml")
	require.NoError(t, os.WriteFile(seedFile, []byte("chains:\n  pix: [inter, ativus]\n"), 0o600))
	require.NoError(t, runCmd(deps, "seed", seedFile))
	require.NoError(t, runCmd(deps, "add", "pix", "valorion"))

	err = runCmd(deps, "add", "pix", "inter")
	require.ErrorIs(t, err, domainerrors.ErrChainFull)

	snap, err := chains.GetActiveChain(context.Background(), entities.PaymentMethodPix)
	require.NoError(t, err)
	assert.Equal(t, []entities.Acquirer{entities.AcquirerInter, entities.AcquirerAtivus, entities.AcquirerValorion}, snap.Acquirers())

	out.Reset()
	require.NoError(t, runCmd(deps, "list", "pix"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 4)
}

func TestMain_ExitsOnUnknownCommand(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_CHAINCTL") == "1" {
		os.Args = []string{"chainctl", "explode"}
		main()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestMain_ExitsOnUnknownCommand")
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_CHAINCTL=1")
	if err := cmd.Run(); err == nil {
		t.Fatal("expected helper process to fail on an unknown command")
	}
}
