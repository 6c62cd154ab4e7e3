package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int         `toml:"version"`
	Runs    []runSchema `toml:"runs"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported runs schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type runSchema struct {
	ID         string       `toml:"id"`
	Topic      string       `toml:"topic"`
	Sink       string       `toml:"sink"`
	Format     string       `toml:"format"`
	Schema     string       `toml:"schema"`
	Counts     countsSchema `toml:"counts"`
	StartedAt  string       `toml:"started_at"`
	FinishedAt string       `toml:"finished_at,omitempty"`
	Err        string       `toml:"error,omitempty"`
}

type countsSchema struct {
	Requested int `toml:"requested"`
	Produced  int `toml:"produced"`
	Delivered int `toml:"delivered"`
	Failed    int `toml:"failed"`
}
