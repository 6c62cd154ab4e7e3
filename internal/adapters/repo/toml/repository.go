package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	RunsPathKey = "runs.path"

	runsFileMode    = 0o600
	runsDirMode     = 0o700
	configDir       = ".datagen"
	runsConfigFile  = "runs.toml"
	tempFilePattern = ".runs-*.toml.tmp"
)

// RunRepository keeps run summaries in a TOML file. Writers replace the file
// atomically and are serialized per path across instances.
type RunRepository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.RunRepository = (*RunRepository)(nil)

func NewRunRepository(cfg *viper.Viper) (*RunRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(RunsPathKey)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, configDir, runsConfigFile)
	}

	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &RunRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *RunRepository) Path() string {
	return r.path
}

func (r *RunRepository) Save(ctx context.Context, run domain.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(run)
	updated := false
	for i := range file.Runs {
		if file.Runs[i].ID == encoded.ID {
			file.Runs[i] = encoded
			updated = true
			break
		}
	}

	if !updated {
		file.Runs = append(file.Runs, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *RunRepository) GetByID(ctx context.Context, id domain.RunID) (domain.RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.RunSummary{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.RunSummary{}, err
	}

	for _, entry := range file.Runs {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.RunSummary{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
}

func (r *RunRepository) List(ctx context.Context) ([]domain.RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	runs := make([]domain.RunSummary, 0, len(file.Runs))
	for _, entry := range file.Runs {
		runs = append(runs, fromSchema(entry))
	}

	return runs, nil
}

func (r *RunRepository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := fileSchema{}
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read runs file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode runs file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *RunRepository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), runsDirMode); err != nil {
		return fmt.Errorf("create runs directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode runs file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp runs file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp runs file: %w", err)
	}

	if err := tempFile.Chmod(runsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp runs file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp runs file: %w", err)
	}

	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace runs file: %w", err)
	}

	cleanup = false
	return nil
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve runs path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func toSchema(run domain.RunSummary) runSchema {
	return runSchema{
		ID:     string(run.ID),
		Topic:  run.Topic,
		Sink:   run.Sink,
		Format: run.Format,
		Schema: run.Schema,
		Counts: countsSchema{
			Requested: run.Requested,
			Produced:  run.Produced,
			Delivered: run.Delivered,
			Failed:    run.Failed,
		},
		StartedAt:  formatTime(run.StartedAt),
		FinishedAt: formatTime(run.FinishedAt),
		Err:        run.Err,
	}
}

func fromSchema(run runSchema) domain.RunSummary {
	return domain.RunSummary{
		ID:         domain.RunID(run.ID),
		Topic:      run.Topic,
		Sink:       run.Sink,
		Format:     run.Format,
		Schema:     run.Schema,
		Requested:  run.Counts.Requested,
		Produced:   run.Counts.Produced,
		Delivered:  run.Counts.Delivered,
		Failed:     run.Counts.Failed,
		StartedAt:  parseTime(run.StartedAt),
		FinishedAt: parseTime(run.FinishedAt),
		Err:        run.Err,
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
