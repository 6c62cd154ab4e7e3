package application

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
)

// RowAssembler turns generated records into keyed rows, applying session
// affinity, sibling linking and time formatting driven by field tags.
type RowAssembler struct {
	generator ports.Generator
	schema    *domain.Schema
	rowSchema *domain.RowSchema
	keyField  string
	sessions  *domain.SessionManager
	siblings  *domain.SiblingLinker
	corpus    *domain.TokenCorpus
	clock     ports.Clock
	logger    *slog.Logger
	patterns  map[string]domain.TimePattern
}

func NewRowAssembler(
	generator ports.Generator,
	keyField string,
	sessions *domain.SessionManager,
	siblings *domain.SiblingLinker,
	clock ports.Clock,
	logger *slog.Logger,
) (*RowAssembler, error) {
	if generator == nil {
		return nil, fmt.Errorf("%w: generator is required", domain.ErrInvalidConfiguration)
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if sessions == nil {
		sessions = domain.NewSessionManager(domain.WithSessionClock(clock.Now))
	}
	if siblings == nil {
		siblings = domain.NewSiblingLinker()
	}

	schema := generator.Schema()
	if schema == nil || schema.Type != domain.TypeRecord {
		return nil, fmt.Errorf("%w: generator schema must be a record, got %s", domain.ErrInvalidConfiguration, schema)
	}
	if _, ok := schema.Field(keyField); !ok {
		return nil, fmt.Errorf("%w: key field does not exist: %q", domain.ErrInvalidConfiguration, keyField)
	}

	converted, err := domain.ToRowSchema(schema)
	if err != nil {
		return nil, err
	}
	rowSchema, err := domain.OptionalSchema(converted)
	if err != nil {
		return nil, err
	}

	return &RowAssembler{
		generator: generator,
		schema:    schema,
		rowSchema: rowSchema,
		keyField:  keyField,
		sessions:  sessions,
		siblings:  siblings,
		corpus:    domain.NewTokenCorpus(),
		clock:     clock,
		logger:    logger,
		patterns:  map[string]domain.TimePattern{},
	}, nil
}

func (a *RowAssembler) RowSchema() *domain.RowSchema {
	return a.rowSchema
}

func (a *RowAssembler) Sessions() *domain.SessionManager {
	return a.sessions
}

// Next generates one record and returns its key and assembled row.
func (a *RowAssembler) Next() (string, domain.Row, error) {
	generated, err := a.generator.Generate()
	if err != nil {
		return "", domain.Row{}, fmt.Errorf("generate record: %w", err)
	}

	record, ok := generated.(*domain.Record)
	if !ok {
		return "", domain.Row{}, fmt.Errorf("%w: expected generator to return *domain.Record, found %T instead", domain.ErrGeneratorContract, generated)
	}

	now := a.clock.Now()
	values := make([]any, 0, len(a.schema.Fields))
	sessionValue := ""
	hasSession := false

	for i, field := range a.schema.Fields {
		rowField := a.rowSchema.Fields[i]
		generatedValue := record.Get(field.Name)

		switch {
		case field.Schema.HasProp(domain.PropSession):
			current, ok := generatedValue.(string)
			if !ok {
				return "", domain.Row{}, fmt.Errorf("%w: session field %q must generate a string, found %T", domain.ErrGeneratorContract, field.Name, generatedValue)
			}
			resolved, err := a.resolveSession(field.Name, current)
			if err != nil {
				return "", domain.Row{}, err
			}
			sessionValue = resolved
			hasSession = true
			values = append(values, resolved)

		case field.Schema.HasProp(domain.PropSessionSibling) && hasSession:
			value, err := a.siblingValue(field, rowField, generatedValue, sessionValue)
			if err != nil {
				return "", domain.Row{}, err
			}
			values = append(values, value)

		case field.Schema.HasProp(domain.PropFormatAsTime):
			values = append(values, a.timeValue(field.Schema.StringProp(domain.PropFormatAsTime), now))

		default:
			value, err := domain.RowValue(rowField.Schema, generatedValue)
			if err != nil {
				return "", domain.Row{}, fmt.Errorf("field %s: %w", field.Name, err)
			}
			values = append(values, value)
		}
	}

	return keyString(record.Get(a.keyField)), domain.NewRow(values...), nil
}

// resolveSession decides which session token a record carries, preferring
// reuse of active sessions over minting new ones.
func (a *RowAssembler) resolveSession(field, current string) (string, error) {
	sm := a.sessions
	a.corpus.Add(current)

	if sm.IsActive(current) {
		if sm.IsExpired(current) {
			sm.IsActiveAndExpire(current)
		}
		return current, nil
	}

	if sm.ActiveSessionCount() > sm.MaxSessions() {
		return sm.RandomActiveToken()
	}

	if expired, ok := sm.ActiveSessionThatHasExpired(); ok {
		return expired, nil
	}

	if token, ok := a.corpus.Find(func(token string) bool {
		return !sm.IsActive(token) && !sm.IsRetired(token)
	}); ok {
		sm.NewSession(token)
		return token, nil
	}

	if token, ok := sm.RecycleOldestExpired(); ok {
		sm.NewSession(token)
		return token, nil
	}

	return "", fmt.Errorf(
		"%w: field %q ran out of tokens to reuse (seen %d): increase session duration (%s), reduce max sessions (%d) or add tokens to the schema",
		domain.ErrTokenExhaustion, field, a.corpus.Len(), sm.MaxSessionDuration(), sm.MaxSessions(),
	)
}

func (a *RowAssembler) siblingValue(field domain.Field, rowField domain.RowField, generated any, session string) (any, error) {
	id, err := a.linkSibling(field, session)
	if err == nil {
		return int32(id), nil
	}

	a.logger.Debug("sibling link fell back to generated value",
		slog.String("field", field.Name),
		slog.String("session", session),
		slog.String("err", err.Error()),
	)

	value, convErr := domain.RowValue(rowField.Schema, generated)
	if convErr != nil {
		return nil, fmt.Errorf("field %s: %w", field.Name, convErr)
	}
	return value, nil
}

func (a *RowAssembler) linkSibling(field domain.Field, session string) (int, error) {
	schema := field.Schema
	if inner, ok := schema.Nullable(); ok {
		schema = inner
	}
	if schema.Type != domain.TypeInt {
		return 0, fmt.Errorf("%w: field %q has type %s, want int", domain.ErrSiblingLink, field.Name, schema.Type)
	}

	rawMax, ok := field.Schema.ArgProperty("range", "max")
	if !ok {
		rawMax, ok = schema.ArgProperty("range", "max")
	}
	if !ok {
		return 0, fmt.Errorf("%w: field %q has no arg.properties.range.max", domain.ErrSiblingLink, field.Name)
	}
	max, ok := domain.AsInt64(rawMax)
	if !ok {
		return 0, fmt.Errorf("%w: field %q range max %v is not an integer", domain.ErrSiblingLink, field.Name, rawMax)
	}
	if max > math.MaxInt32 {
		return 0, fmt.Errorf("%w: field %q range max %d exceeds the int range", domain.ErrSiblingLink, field.Name, max)
	}

	allocation, err := a.siblings.Link(session, int(max))
	if err != nil {
		return 0, err
	}
	if allocation.Collided {
		a.logger.Warn("sibling id range exhausted, reusing id",
			slog.String("field", field.Name),
			slog.String("session", session),
			slog.Int("id", allocation.ID),
		)
	}
	return allocation.ID, nil
}

func (a *RowAssembler) timeValue(format string, now time.Time) any {
	if format == domain.TimeFormatUnixLong {
		return now.UnixMilli()
	}

	pattern, ok := a.patterns[format]
	if !ok {
		pattern = domain.ParseTimePattern(format)
		a.patterns[format] = pattern
	}
	return pattern.Format(now)
}

func keyString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case *domain.Record:
		rowSchema, err := domain.ToRowSchema(v.Schema)
		if err != nil {
			return fmt.Sprint(v.Values)
		}
		converted, err := domain.RowValue(rowSchema, v)
		if err != nil {
			return fmt.Sprint(v.Values)
		}
		return fmt.Sprint(converted)
	default:
		return fmt.Sprint(v)
	}
}

