package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nutcracker-app/nutcracker/internal/events"
	"github.com/nutcracker-app/nutcracker/internal/metrics"
	"github.com/nutcracker-app/nutcracker/internal/quota"
)

// QuotaManager is the slice of the quota service the orchestrator needs.
type QuotaManager interface {
	Reserve(ctx context.Context, userID uuid.UUID) (*quota.Reservation, *quota.Denial, error)
	Confirm(ctx context.Context, res *quota.Reservation) error
	Release(ctx context.Context, res *quota.Reservation) error
}

// Orchestrator drives a generation request through validation, quota,
// enhancement, image generation, storage and cataloging. Once a reservation
// is taken, exactly one of Confirm or Release runs for it on every path out.
type Orchestrator struct {
	quota     QuotaManager
	enhancer  Enhancer
	generator Generator
	assets    AssetStore
	catalog   Catalog
	publisher *events.Publisher
	sleep     sleepFunc
}

func NewOrchestrator(q QuotaManager, enhancer Enhancer, generator Generator, assets AssetStore, catalog Catalog, publisher *events.Publisher) *Orchestrator {
	return &Orchestrator{
		quota:     q,
		enhancer:  enhancer,
		generator: generator,
		assets:    assets,
		catalog:   catalog,
		publisher: publisher,
		sleep:     sleepCtx,
	}
}

// Generate runs the full pipeline for one request.
func (o *Orchestrator) Generate(ctx context.Context, userID uuid.UUID, animalID, seedText string) (*Result, error) {
	seed := strings.TrimSpace(seedText)
	if seed == "" {
		return nil, &ValidationError{Field: "seed_text", Message: "must not be empty"}
	}
	if utf8.RuneCountInString(seed) > MaxSeedLen {
		return nil, &ValidationError{Field: "seed_text", Message: fmt.Sprintf("must be at most %d characters", MaxSeedLen)}
	}
	if !IsSupportedAnimal(animalID) {
		return nil, &ValidationError{Field: "animal_id", Message: "unknown animal"}
	}

	res, denial, err := o.quota.Reserve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if denial != nil {
		o.publishOutcome(userID, animalID, "quota_denied", denial.Reason, "")
		return nil, &QuotaExceededError{Reason: denial.Reason, RetryAfter: denial.RetryAfter}
	}

	confirmed := false
	defer func() {
		if confirmed {
			return
		}
		if rerr := o.quota.Release(ctx, res); rerr != nil {
			slog.Error("releasing reservation", "reservation_id", res.ID, "error", rerr)
		}
	}()

	if phrase, hit := blockedPhrase(seed); hit {
		slog.Warn("seed hit prompt blocklist", "user_id", userID, "phrase", phrase)
		metrics.GenerationsTotal.WithLabelValues("blocked").Inc()
		o.publishOutcome(userID, animalID, "blocked", "blocklist", "")
		return nil, &ContentPolicyError{Message: "the prompt contains disallowed content"}
	}

	enhanced, err := o.enhancer.EnhanceText(ctx, enhanceRequest(animalID, seed))
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		o.publishOutcome(userID, animalID, "failed", "enhance", "")
		return nil, fmt.Errorf("enhancing prompt: %w", err)
	}

	asset, style, err := o.generateWithRetry(ctx, animalID, enhanced, styleFor(animalID, seed))
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		o.publishOutcome(userID, animalID, "failed", "generate", "")
		return nil, err
	}

	stored, err := o.assets.Store(ctx, asset.Data, asset.MIMEType)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		o.publishOutcome(userID, animalID, "failed", "store", "")
		return nil, fmt.Errorf("storing asset: %w", err)
	}

	entry := &CatalogEntry{
		ID:        uuid.New(),
		Animal:    animalID,
		Seed:      seed,
		Prompt:    enhanced,
		Style:     style,
		AssetID:   stored.ID,
		Rating:    StartingRating,
		CreatedBy: userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.catalog.UpsertEntry(ctx, entry); err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		o.publishOutcome(userID, animalID, "failed", "catalog", "")
		return nil, fmt.Errorf("cataloging entry: %w", err)
	}

	if err := o.quota.Confirm(ctx, res); err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	confirmed = true

	metrics.GenerationsTotal.WithLabelValues("completed").Inc()
	o.publishOutcome(userID, animalID, "completed", "", stored.SignedURL)
	slog.Info("generation completed",
		"user_id", userID, "animal", animalID, "style", style, "asset_id", stored.ID)

	return &Result{
		AssetURL:  stored.SignedURL,
		Caption:   asset.Caption,
		Remaining: res.Remaining,
	}, nil
}

func (o *Orchestrator) publishOutcome(userID uuid.UUID, animal, outcome, reason, assetURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.publisher.PublishGeneration(ctx, events.GenerationEvent{
		UserID:    userID,
		Animal:    animal,
		Outcome:   outcome,
		Reason:    reason,
		AssetURL:  assetURL,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		slog.Warn("publishing generation event", "error", err)
	}
}

// enhanceRequest frames the user's seed idea for the enhancement model. The
// model returns a full scene description; the style modifier is appended later
// so safety fallback can swap it without re-enhancing.
func enhanceRequest(animalID, seed string) string {
	return fmt.Sprintf(`Expand this idea into one rich visual scene description for an image of %s in a quiet winter city. Idea: %q.
Keep Christmas and winter elements light (garlands, snow, warm windows), not festive excess.
Tone balances melancholy and wonder, gentle whimsy, restrained emotion, holiday nostalgia.
Reply with the scene description only.`, animals[animalID], seed)
}
