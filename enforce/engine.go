package enforce

import (
	"context"
	"fmt"
	"time"

	"github.com/cursive-labs/beacon/aggregate"
	"github.com/cursive-labs/beacon/backend"
	"github.com/cursive-labs/beacon/ingest"
	"github.com/cursive-labs/beacon/log"
	"github.com/cursive-labs/beacon/metrics"
	"github.com/cursive-labs/beacon/profile"
	"github.com/cursive-labs/beacon/types"
)

// Default pub/sub channels.
const (
	DefaultEventChannel = "beacon:events"
	DefaultErrorChannel = "beacon:events:error"
)

// EngineConfig configures the enforcement engine's system-level policy.
type EngineConfig struct {
	// SentinelParam is the canonical name of the required sentinel
	// parameter proving a hit URL came from the system's own
	// link-building code. Default "sentinel".
	SentinelParam string
	// DiscardOnMissingSentinel refuses non-legacy hits lacking the
	// sentinel outright instead of warning. System-level policy, not
	// per-profile.
	DiscardOnMissingSentinel bool
	// EventChannel carries successfully tracked events.
	EventChannel string
	// ErrorChannel carries errored raw events.
	ErrorChannel string
}

// DefaultEngineConfig returns the standard system policy.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SentinelParam: "sentinel",
		EventChannel:  DefaultEventChannel,
		ErrorChannel:  DefaultErrorChannel,
	}
}

// Hit is one incoming tracking hit, already lifted off the transport.
type Hit struct {
	// URL is the full request URL.
	URL string
	// Method is the HTTP method.
	Method string
	// Profile names the target profile; ignored on legacy hits.
	Profile string
	// Ref is the legacy ref code, set on legacy hits.
	Ref string
	// Fingerprint is the visitor cookie/fingerprint.
	Fingerprint string
	// Legacy marks hits received on the compatibility endpoint.
	Legacy bool
	// Data is the observed request data.
	Data Data
	// At is the hit timestamp; zero means now.
	At time.Time
}

// Engine orchestrates the full per-hit flow: persist the raw event,
// resolve the profile, match and convert parameters, plan aggregation
// increments, and hand the write batch to the ingestion actor.
type Engine struct {
	config    EngineConfig
	profiles  *profile.Registry
	aggregate *aggregate.Engine
	actor     *ingest.Actor
	logger    *log.Logger
	collector *metrics.Collector
}

// NewEngine creates an enforcement engine.
func NewEngine(
	cfg EngineConfig,
	profiles *profile.Registry,
	agg *aggregate.Engine,
	actor *ingest.Actor,
	logger *log.Logger,
	collector *metrics.Collector,
) *Engine {
	if cfg.SentinelParam == "" {
		cfg.SentinelParam = "sentinel"
	}
	if cfg.EventChannel == "" {
		cfg.EventChannel = DefaultEventChannel
	}
	if cfg.ErrorChannel == "" {
		cfg.ErrorChannel = DefaultErrorChannel
	}
	return &Engine{
		config:    cfg,
		profiles:  profiles,
		aggregate: agg,
		actor:     actor,
		logger:    logger,
		collector: collector,
	}
}

// Enforce runs the full flow for one hit.
//
// On success the tracked event is returned with its converted
// parameters, warnings, and touched bucket keys; the raw and tracked
// events, counter increments, and publish are committed asynchronously
// as one batch.
//
// On a strict-mode abort the buffered aggregation writes are discarded,
// both events are flagged errored and persisted best-effort, the raw
// event is published on the error channel, and the policy error is
// returned to the caller.
func (e *Engine) Enforce(ctx context.Context, hit Hit) (*types.TrackedEvent, error) {
	e.collector.IncHitReceived()

	at := hit.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	raw := types.NewRawEvent(hit.URL, hit.Method, hit.Data.Params())
	raw.Fingerprint = hit.Fingerprint
	raw.Legacy = hit.Legacy
	raw.ReceivedAt = at

	// Resolve the profile. Resolution errors are client-side failures;
	// the raw hit is still recorded on the error channel.
	prof, err := e.resolve(hit)
	if err != nil {
		raw.SetError(err.Error())
		e.commitErrored(ctx, raw, nil)
		return nil, err
	}
	raw.Profile = prof.Name()

	tracked := types.NewTrackedEvent(raw, prof.Name())
	strict := !prof.Lenient()

	// System-level sentinel policy, checked before profile matching.
	// A refusal here is not subject to profile leniency: the engine
	// discards the hit and the caller observes the refusal either way.
	if err := e.checkSentinel(hit, prof, tracked); err != nil {
		return e.abort(ctx, raw, tracked, true, err)
	}

	matches, warnings, followups := matchProfile(prof, hit.Data, hit.Legacy)
	for _, w := range warnings {
		tracked.AddWarning(w)
	}

	// Severity handling: strict aborts on the first follow-up; lenient
	// logs and continues with warnings attached.
	for _, fu := range followups {
		if strict {
			return e.abort(ctx, raw, tracked, strict, fu)
		}
		e.logger.Warn("policy follow-up", map[string]any{
			"profile": prof.Name(),
			"kind":    fu.Kind.String(),
			"param":   fu.Param,
		})
		tracked.AddWarning(fu.Error())
	}

	convertAll(tracked, matches)

	// Aggregation: every matched parameter carrying specs contributes
	// increments against deterministic bucket keys.
	ops := []backend.Op{
		backend.PersistOp{Key: raw.Key(), Entity: raw},
	}
	var planned int64
	for _, m := range matches {
		if len(m.param.Aggregations) == 0 {
			continue
		}
		for _, inc := range e.aggregate.Plan(tracked, m.param, at) {
			ops = append(ops, backend.IncrOp{
				Key:        inc.Key,
				Field:      inc.Field,
				DeltaInt:   inc.DeltaInt,
				DeltaFloat: inc.DeltaFloat,
				Float:      inc.Float,
			})
			planned++
		}
	}
	e.collector.AddIncrementsPlanned(planned)

	ops = append(ops,
		backend.PersistOp{Key: tracked.Key(), Entity: tracked},
		backend.PublishOp{Channels: []string{e.config.EventChannel}, Payload: tracked},
	)

	if err := e.actor.Enqueue(ops); err != nil {
		// Backpressure or shutdown: the hit was processed but nothing
		// was committed. Surfaced as retryable.
		return tracked, fmt.Errorf("enforce: %w", err)
	}

	if len(tracked.Warnings) > 0 {
		e.collector.IncHitWarned()
	} else {
		e.collector.IncHitEnforced()
	}
	return tracked, nil
}

// resolve finds the target profile: by ref code on legacy hits, by
// profile name otherwise.
func (e *Engine) resolve(hit Hit) (*profile.Profile, error) {
	if hit.Legacy && hit.Ref != "" {
		p, err := e.profiles.ResolveRef(hit.Ref)
		if err != nil {
			return nil, err
		}
		e.collector.IncLegacyResolved()
		return p, nil
	}
	return e.profiles.LookupByName(hit.Profile)
}

// checkSentinel applies the fixed system-level sentinel policy to
// non-legacy hits. Absence is a warning unless discard mode refuses
// the hit outright.
func (e *Engine) checkSentinel(hit Hit, prof *profile.Profile, tracked *types.TrackedEvent) error {
	if hit.Legacy {
		return nil
	}

	keys := []string{e.config.SentinelParam}
	if param, ok := prof.ParamByName(e.config.SentinelParam); ok {
		keys = param.LookupKeys()
	}
	observed := hit.Data.Params()
	for _, key := range keys {
		if _, ok := observed[key]; ok {
			return nil
		}
	}

	if e.config.DiscardOnMissingSentinel {
		return &PolicyError{Kind: KindMissingSentinel, Param: e.config.SentinelParam}
	}
	tracked.AddWarning("sentinel parameter absent")
	return nil
}

// abort handles a policy error escaping enforcement: buffered
// aggregation writes are discarded (nothing has been enqueued yet),
// both events are flagged and persisted best-effort, the raw event is
// published on the error channel, and in strict mode the error
// propagates to the caller.
func (e *Engine) abort(ctx context.Context, raw *types.RawEvent, tracked *types.TrackedEvent, strict bool, cause error) (*types.TrackedEvent, error) {
	raw.SetError(cause.Error())
	tracked.AddError(cause.Error())
	tracked.Aggregations = nil

	e.commitErrored(ctx, raw, tracked)
	e.collector.IncHitAborted()

	if strict {
		return tracked, cause
	}
	return tracked, nil
}

// commitErrored persists errored events and publishes the raw event on
// the error channel, best-effort: a failure here is logged and
// swallowed to avoid cascading failure, at the accepted cost of losing
// the error record.
func (e *Engine) commitErrored(ctx context.Context, raw *types.RawEvent, tracked *types.TrackedEvent) {
	ops := []backend.Op{
		backend.PersistOp{Key: raw.Key(), Entity: raw},
	}
	if tracked != nil {
		ops = append(ops, backend.PersistOp{Key: tracked.Key(), Entity: tracked})
	}
	ops = append(ops, backend.PublishOp{
		Channels: []string{e.config.ErrorChannel},
		Payload:  raw,
	})

	if err := e.actor.Enqueue(ops); err != nil {
		e.logger.Error("failed to record errored hit", map[string]any{
			"raw_id": raw.ID,
			"error":  err.Error(),
		})
	}
}
