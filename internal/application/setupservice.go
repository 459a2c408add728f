package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/livebadge/internal/domain/badge"
	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

// MaxLabelLength is the longest label accepted, in runes.
const MaxLabelLength = 64

// SetupInput is the operator's request to create a badge. ServiceCredential
// is optional and is never persisted.
type SetupInput struct {
	Endpoint          string
	PublicCredential  string
	ServiceCredential string
	Label             string
	Color             string
	Kind              model.MetricKind
	Table             string
}

// SetupResult is the persisted record together with the classifier's verdict.
type SetupResult struct {
	Record  model.MetricRecord
	Posture model.Posture
}

// SetupService validates a badge request, classifies it once and persists it.
type SetupService struct {
	store  driven.MetricStore
	client driven.ProjectClient
	policy *bluemonday.Policy
	now    func() time.Time
}

// NewSetupService creates a new SetupService with the required dependencies.
func NewSetupService(store driven.MetricStore, client driven.ProjectClient) *SetupService {
	return &SetupService{
		store:  store,
		client: client,
		policy: bluemonday.StrictPolicy(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create runs the setup flow. Errors wrap ErrInputInvalid, ErrProbeFailed or
// ErrAuthFailed; store failures are returned wrapped as is.
func (s *SetupService) Create(ctx context.Context, in SetupInput) (*SetupResult, error) {
	rec, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	serviceKey := strings.TrimSpace(in.ServiceCredential)
	if serviceKey != "" && model.ClassifyCredential(serviceKey).Tier == model.TierPublic {
		return nil, fmt.Errorf("%w: service credential is not privileged", ErrInputInvalid)
	}

	if err := s.client.Ping(ctx, rec.Endpoint, rec.PublicCredential); err != nil {
		return nil, pingError(err)
	}

	var posture model.Posture
	switch rec.Kind {
	case model.MetricKindUserCount:
		posture, err = s.classifyUsers(ctx, rec, serviceKey)
	default:
		posture, err = s.classifyTable(ctx, rec, serviceKey)
	}
	if err != nil {
		return nil, err
	}

	rec.Protected = posture.Protected
	rec.CachedValue = posture.BestKnownCount

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist metric: %w", err)
	}

	slog.Info("metric created",
		"id", rec.ID,
		"kind", rec.Kind,
		"protected", posture.Protected,
		"rule", posture.Rule,
		"seeded", rec.HasCachedValue(),
	)

	return &SetupResult{Record: rec, Posture: posture}, nil
}

func (s *SetupService) validate(in SetupInput) (model.MetricRecord, error) {
	endpoint, err := normalizeEndpoint(in.Endpoint)
	if err != nil {
		return model.MetricRecord{}, err
	}

	key, err := publicCredential(in.PublicCredential)
	if err != nil {
		return model.MetricRecord{}, err
	}

	kind := in.Kind
	if kind == "" {
		kind = model.MetricKindTableCount
	}
	if !kind.Valid() {
		return model.MetricRecord{}, fmt.Errorf("%w: unknown metric kind %q", ErrInputInvalid, in.Kind)
	}

	label := s.sanitizeLabel(in.Label)
	if label == "" {
		label = kind.DefaultLabel()
	}
	if utf8.RuneCountInString(label) > MaxLabelLength {
		return model.MetricRecord{}, fmt.Errorf("%w: label exceeds %d characters", ErrInputInvalid, MaxLabelLength)
	}

	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = model.DefaultColor
	}
	if !badge.ValidColor(color) {
		return model.MetricRecord{}, fmt.Errorf("%w: color must be #RGB or #RRGGBB", ErrInputInvalid)
	}

	rec := model.MetricRecord{
		ID:               uuid.NewString(),
		Endpoint:         endpoint,
		PublicCredential: key,
		Label:            label,
		Color:            color,
		Kind:             kind,
		CreatedAt:        s.now(),
	}

	table := strings.TrimSpace(in.Table)
	switch kind {
	case model.MetricKindTableCount:
		ref, ok := model.ParseTableRef(table)
		if !ok {
			return model.MetricRecord{}, fmt.Errorf("%w: table must be \"name\" or \"schema.name\"", ErrInputInvalid)
		}
		rec.Table = &ref
	case model.MetricKindUserCount:
		if table != "" {
			return model.MetricRecord{}, fmt.Errorf("%w: user_count metrics do not take a table", ErrInputInvalid)
		}
	}

	return rec, nil
}

// sanitizeLabel strips markup and decodes entities so the stored label is plain text.
func (s *SetupService) sanitizeLabel(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// classifyTable probes under both tiers concurrently and applies the rule table.
func (s *SetupService) classifyTable(ctx context.Context, rec model.MetricRecord, serviceKey string) (model.Posture, error) {
	var anon model.ProbeResult
	var service *model.ProbeResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		anon = s.client.ProbeCount(gctx, rec.Endpoint, *rec.Table, rec.PublicCredential)
		return nil
	})
	if serviceKey != "" {
		g.Go(func() error {
			result := s.client.ProbeCount(gctx, rec.Endpoint, *rec.Table, serviceKey)
			service = &result
			return nil
		})
	}
	_ = g.Wait()

	if service != nil && !service.OK() {
		return model.Posture{}, privilegedProbeError(*service)
	}

	posture := Classify(rec.Table.Schema, anon, service)
	if !posture.Protected && !anon.OK() {
		return model.Posture{}, fmt.Errorf("%w: public probe of %s: %w", ErrProbeFailed, rec.Table.FullName(), anonError(anon))
	}
	return posture, nil
}

// classifyUsers treats user counts as always protected and seeds the cache
// when a privileged credential is available.
func (s *SetupService) classifyUsers(ctx context.Context, rec model.MetricRecord, serviceKey string) (model.Posture, error) {
	posture := model.Posture{Protected: true, Rule: RuleInherentlyCached}
	if serviceKey == "" {
		return posture, nil
	}

	n, err := s.client.CountUsers(ctx, rec.Endpoint, serviceKey)
	if err != nil {
		return model.Posture{}, privilegedError(err)
	}
	posture.BestKnownCount = &n
	return posture, nil
}

func anonError(result model.ProbeResult) error {
	if result.Err != nil {
		return result.Err
	}
	return fmt.Errorf("status %d", result.Status)
}

// pingError maps a failed connection test. A rejected or unexpected answer is
// the operator's input to fix; a network failure is not.
func pingError(err error) error {
	switch {
	case errors.Is(err, driven.ErrAccessDenied):
		return fmt.Errorf("%w: %w: %w", ErrInputInvalid, ErrAccessBlocked, err)
	case errors.Is(err, driven.ErrUnexpectedStatus):
		return fmt.Errorf("%w: %w", ErrInputInvalid, err)
	default:
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
}
