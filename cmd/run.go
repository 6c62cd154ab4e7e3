package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bnema/datagen/internal/adapters/generator/random"
	summaryadapter "github.com/bnema/datagen/internal/adapters/render/summary"
	consolesink "github.com/bnema/datagen/internal/adapters/sink/console"
	"github.com/bnema/datagen/internal/application"
	"github.com/bnema/datagen/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type runOptions struct {
	schemaPath      string
	quickstart      string
	topic           string
	keyField        string
	iterations      int
	maxIntervalMS   int
	maxSessions     int
	sessionDuration time.Duration
	sink            string
	format          string
	seed            uint64
	logLevel        string
	noRecord        bool
}

func newRunCmd(app *app) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate records and publish them to a sink",
		Example: strings.Join([]string{
			"  datagen run --quickstart clickstream --iterations 20",
			"  datagen run --schema ./orders.avro --key orderid --topic orders --sink kafka",
		}, "\n"),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("sink") {
				opts.sink = app.config.GetString(sinkKey)
			}
			if !cmd.Flags().Changed("format") {
				opts.format = app.config.GetString(formatKey)
			}
			return runGenerate(cmd, app, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.schemaPath, "schema", "", "Path to an Avro schema annotated with arg.properties")
	flags.StringVar(&opts.quickstart, "quickstart", "", "Bundled schema to use (see `datagen schemas`)")
	flags.StringVar(&opts.topic, "topic", "", "Topic, stream or bucket to publish to (default: quickstart name)")
	flags.StringVar(&opts.keyField, "key", "", "Field whose value becomes the message key (default: quickstart key)")
	flags.IntVar(&opts.iterations, "iterations", 1_000_000, "Number of records to produce")
	flags.IntVar(&opts.maxIntervalMS, "max-interval", -1, "Upper bound in milliseconds for the random pause between records (negative: 500)")
	flags.IntVar(&opts.maxSessions, "max-sessions", 0, "Maximum number of concurrently active sessions (0: unbounded)")
	flags.DurationVar(&opts.sessionDuration, "session-duration", domain.DefaultMaxSessionDuration, "How long a session token stays active")
	flags.StringVar(&opts.sink, "sink", consolesink.Name, "Sink to publish to: "+strings.Join(sinkNames(), ", "))
	flags.StringVar(&opts.format, "format", "json", "Value format: json or delimited")
	flags.Uint64Var(&opts.seed, "seed", 0, "Seed for reproducible generation (0: random)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.BoolVar(&opts.noRecord, "no-record", false, "Do not add the run to the history ledger")

	cmd.MarkFlagsMutuallyExclusive("schema", "quickstart")
	cmd.MarkFlagsOneRequired("schema", "quickstart")

	return cmd
}

func runGenerate(cmd *cobra.Command, app *app, opts runOptions) error {
	logger, err := newLogger(cmd, opts.logLevel)
	if err != nil {
		return err
	}

	schema, schemaName, keyField, err := loadSchema(opts)
	if err != nil {
		return err
	}

	topic := opts.topic
	if topic == "" {
		topic = opts.quickstart
	}
	if topic == "" {
		return fmt.Errorf("%w: --topic is required with --schema", domain.ErrInvalidConfiguration)
	}

	serializer, err := app.newSerializer(opts.format)
	if err != nil {
		return err
	}

	genRand, sessionRand, pacingRand := newRands(opts.seed)

	generator, err := random.New(schema, genRand)
	if err != nil {
		return err
	}

	sessions := domain.NewSessionManager(
		domain.WithSessionClock(app.clock.Now),
		domain.WithSessionRand(sessionRand),
	)
	if opts.maxSessions > 0 {
		sessions.SetMaxSessions(opts.maxSessions)
	}
	if opts.sessionDuration > 0 {
		sessions.SetMaxSessionDuration(opts.sessionDuration)
	}

	assembler, err := application.NewRowAssembler(generator, keyField, sessions, domain.NewSiblingLinker(), app.clock, logger)
	if err != nil {
		return err
	}

	runID := domain.RunID(uuid.NewString())
	sink, err := app.newSink(opts.sink, runID, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if opts.sink != consolesink.Name {
		sink = newDrainingSink(sink, opts.sink, cmd.ErrOrStderr())
	}

	producer := application.NewProducerService(assembler, serializer, sink, app.clock, logger,
		application.WithProducerRand(pacingRand),
		application.WithRunIDs(func() domain.RunID { return runID }),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	summary, runErr := producer.Run(ctx, application.RunRequest{
		Topic:       topic,
		Iterations:  opts.iterations,
		MaxInterval: time.Duration(opts.maxIntervalMS) * time.Millisecond,
		Schema:      schemaName,
		SinkName:    opts.sink,
	})

	if !opts.noRecord {
		if err := app.history.Record(context.WithoutCancel(ctx), summary); err != nil {
			logger.Warn("could not record run", slog.String("err", err.Error()))
		}
	}

	rendered, err := app.runRenderer(summary, summaryadapter.RenderOptions{Now: app.clock.Now()})
	if err != nil {
		return errors.Join(runErr, err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
		return errors.Join(runErr, err)
	}

	return runErr
}

func loadSchema(opts runOptions) (*domain.Schema, string, string, error) {
	if opts.quickstart != "" {
		preset, ok := random.LookupPreset(opts.quickstart)
		if !ok {
			return nil, "", "", fmt.Errorf("%w: unknown quickstart %q", domain.ErrInvalidConfiguration, opts.quickstart)
		}
		schema, err := preset.Schema()
		if err != nil {
			return nil, "", "", err
		}
		keyField := opts.keyField
		if keyField == "" {
			keyField = preset.KeyField
		}
		return schema, preset.Name, keyField, nil
	}

	data, err := os.ReadFile(opts.schemaPath)
	if err != nil {
		return nil, "", "", fmt.Errorf("read schema file: %w", err)
	}
	schema, err := random.ParseSchema(data)
	if err != nil {
		return nil, "", "", fmt.Errorf("parse %s: %w", opts.schemaPath, err)
	}
	if opts.keyField == "" {
		return nil, "", "", fmt.Errorf("%w: --key is required with --schema", domain.ErrInvalidConfiguration)
	}
	return schema, opts.schemaPath, opts.keyField, nil
}

// newRands derives independent sources for generation, session picks and
// pacing, all reproducible when seed is non-zero.
func newRands(seed uint64) (*rand.Rand, *rand.Rand, *rand.Rand) {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, 1)), rand.New(rand.NewPCG(seed, 2)), rand.New(rand.NewPCG(seed, 3))
}

func newLogger(cmd *cobra.Command, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: log level %q: %w", domain.ErrInvalidConfiguration, level, err)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})), nil
}
