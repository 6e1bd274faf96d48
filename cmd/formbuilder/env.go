package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbuilder/internal/config"
	"github.com/goliatone/go-formbuilder/internal/logging"
	"github.com/goliatone/go-formbuilder/pkg/filepreview"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/renderers/tui"
	"github.com/goliatone/go-formbuilder/pkg/storage"
	"github.com/goliatone/go-formbuilder/pkg/storage/redisstore"
	"github.com/goliatone/go-formbuilder/pkg/storage/sqlitestore"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

// app carries the process-wide state shared by commands. The store is opened
// lazily so help output never touches storage.
type app struct {
	stdout io.Writer
	stderr io.Writer
	prompt tui.PromptDriver

	cfg     config.Config
	logger  *zap.Logger
	store   *store.Store
	ids     *model.IDSource
	closers []func() error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, logger: zap.NewNop()}
}

// open loads configuration, applies flag overrides and opens the store.
func (a *app) open(ctx context.Context, cmd *cli.Command) error {
	if a.store != nil {
		return nil
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if dir := strings.TrimSpace(cmd.String("data")); dir != "" {
		cfg.Storage.Dir = dir
	}
	if driver := strings.TrimSpace(cmd.String("storage")); driver != "" {
		cfg.Storage.Driver = strings.ToLower(driver)
	}
	if level := strings.TrimSpace(cmd.String("log-level")); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = *cfg

	logger, err := logging.New(a.cfg, a.stderr)
	if err != nil {
		return err
	}
	a.logger = logger

	backend, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	a.store = store.New(
		store.WithStorage(backend),
		store.WithLogger(logger),
		store.WithPersistTimeout(a.cfg.Storage.Timeout),
	)

	a.ids = model.NewIDSource(nil)
	for _, group := range a.store.Groups() {
		for _, element := range group.Elements {
			a.ids.Observe(element.ID)
		}
	}
	logger.Debug("workspace opened",
		zap.String("driver", a.cfg.Storage.Driver),
		zap.Int("groups", len(a.store.Groups())),
	)
	return nil
}

func (a *app) openStorage(ctx context.Context) (storage.Storage, error) {
	cfg := a.cfg.Storage
	switch cfg.Driver {
	case config.StorageMemory:
		return storage.New(storage.NewMemoryKV()), nil
	case config.StorageFile:
		return storage.New(storage.NewFileKV(cfg.Dir)), nil
	case config.StorageSQLite:
		dsn := cfg.DSN
		if !filepath.IsAbs(dsn) && !strings.Contains(dsn, ":") {
			if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(cfg.Dir, dsn)
		}
		kv, err := sqlitestore.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv.Close)
		return storage.New(kv), nil
	case config.StorageRedis:
		kv, err := redisstore.Connect(ctx, cfg.RedisURL, redisstore.WithPrefix(cfg.Prefix))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv.Close)
		return storage.New(kv), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func (a *app) files() *filepreview.Manager {
	return filepreview.NewManager(
		filepreview.WithAccept(a.cfg.Preview.Accept...),
		filepreview.WithMaxSize(a.cfg.Preview.MaxSize),
		filepreview.WithLogger(a.logger),
	)
}

func (a *app) close(context.Context, *cli.Command) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

// idArg parses the positional argument at index i as a positive id.
func idArg(cmd *cli.Command, i int, name string) (int64, error) {
	raw := cmd.Args().Get(i)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func (a *app) group(cmd *cli.Command, i int) (model.FieldGroup, error) {
	id, err := idArg(cmd, i, "group id")
	if err != nil {
		return model.FieldGroup{}, err
	}
	group, ok := a.store.Group(id)
	if !ok {
		return model.FieldGroup{}, fmt.Errorf("group %d not found", id)
	}
	return group, nil
}

// writeOutput writes data to path, or stdout when path is empty.
func (a *app) writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	a.printf("written to %s\n", path)
	return nil
}
