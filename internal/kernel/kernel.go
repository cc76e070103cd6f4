// Package kernel drives a session through the Architect → Executor →
// Auditor → Consultant state machine: plan, approve, generate files in
// parallel, audit, loop on rejection up to a bounded iteration count,
// recover files that never converge, optionally test and commit, and
// optionally watch for changes afterward.
package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/hectormr206/orchestra/internal/adapter"
	"github.com/hectormr206/orchestra/internal/compact"
	"github.com/hectormr206/orchestra/internal/config"
	"github.com/hectormr206/orchestra/internal/events"
	"github.com/hectormr206/orchestra/internal/fallback"
	"github.com/hectormr206/orchestra/internal/obslog"
	"github.com/hectormr206/orchestra/internal/pool"
	"github.com/hectormr206/orchestra/internal/promptcache"
	"github.com/hectormr206/orchestra/internal/session"
	"github.com/hectormr206/orchestra/internal/telemetry"
)

// PlanDecision is the caller's response to an onPlanReady event.
type PlanDecision string

const (
	DecisionApprove PlanDecision = "approve"
	DecisionReject  PlanDecision = "reject"
	DecisionEdit    PlanDecision = "edit"
)

// ApprovalFunc blocks until the caller has a decision about the plan at
// planPath (whose content is also passed for convenience). Options.AutoApprove
// bypasses this entirely.
type ApprovalFunc func(content, planPath string) PlanDecision

// Options configures a Kernel beyond what Config already carries.
type Options struct {
	WorkDir                     string
	AutoApprove                 bool
	Pipeline                    bool
	OnApproval                  ApprovalFunc
	MaxRetriesOnContextExceeded int
	Tracer                      telemetry.Tracer
	Metrics                     *telemetry.Metrics
	Cache                       *promptcache.Cache // optional; nil disables prompt caching entirely
}

// Kernel is the single-threaded state-machine driver for one session. It
// never runs two phases of the same session concurrently; parallelism is
// confined within a phase via internal/pool.
type Kernel struct {
	cfg         *config.Config
	store       *session.Store
	sess        *session.Session
	chains      map[session.AgentRole]*fallback.Chain
	bus         *events.Bus
	log         *obslog.Logger
	opts        Options
	convergence convergenceState

	trace      telemetry.TraceContext
	phaseSpan  telemetry.SpanContext
	phaseStart time.Time
}

// New constructs a Kernel bound to an already-created session.
func New(cfg *config.Config, store *session.Store, sess *session.Session, chains map[session.AgentRole]*fallback.Chain, bus *events.Bus, log *obslog.Logger, opts Options) *Kernel {
	if opts.MaxRetriesOnContextExceeded <= 0 {
		opts.MaxRetriesOnContextExceeded = 2
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.NoOp{}
	}
	return &Kernel{cfg: cfg, store: store, sess: sess, chains: chains, bus: bus, log: log, opts: opts}
}

// Run drives the session from its current phase to a terminal phase (or
// returns an error if a phase outside recovery fails with nothing left to
// try). Run is resumable: calling it again on a session loaded mid-flight
// picks up from sess.Phase.
func (k *Kernel) Run(ctx context.Context) error {
	if k.trace.TraceID == "" {
		k.trace = k.opts.Tracer.StartTrace(k.sess.ID, telemetry.TraceOptions{Task: string(k.sess.Task)})
		k.phaseSpan = k.opts.Tracer.StartPhase(k.trace, string(k.sess.Phase), telemetry.SpanOptions{Iteration: k.sess.Iteration})
		k.phaseStart = time.Now()
	}

	for {
		if ctx.Err() != nil {
			return k.fail(fmt.Sprintf("cancelled: %v", ctx.Err()))
		}

		switch k.sess.Phase {
		case session.PhaseInit:
			if err := k.transition(session.PhasePlanning); err != nil {
				return err
			}

		case session.PhasePlanning:
			if err := k.runPlanning(ctx); err != nil {
				return k.fail(err.Error())
			}
			if err := k.transition(session.PhaseAwaitingApproval); err != nil {
				return err
			}

		case session.PhaseAwaitingApproval:
			decision, err := k.runApproval(ctx)
			if err != nil {
				return k.fail(err.Error())
			}
			switch decision {
			case DecisionReject:
				return k.transition(session.PhaseRejected)
			case DecisionEdit:
				// Caller edited plan.md on disk; runApproval already
				// reloaded it. Re-present the (possibly new) plan.
				continue
			default:
				if err := k.beginExecution(ctx); err != nil {
					return k.fail(err.Error())
				}
				if err := k.transition(session.PhaseExecuting); err != nil {
					return err
				}
			}

		case session.PhaseExecuting:
			if k.opts.Pipeline {
				if err := k.runPipeline(ctx); err != nil {
					return k.fail(err.Error())
				}
				next := session.PhaseTesting
				if len(k.filesWithStatus(session.FileStatusAuditRejected)) > 0 {
					next = session.PhaseRecovery
				}
				if err := k.transition(next); err != nil {
					return err
				}
				continue
			}
			if err := k.runExecutionRound(ctx, nil); err != nil {
				return k.fail(err.Error())
			}
			if err := k.transition(session.PhaseAuditing); err != nil {
				return err
			}

		case session.PhaseAuditing:
			converged, rejectedFiles, err := k.runAuditing(ctx)
			if err != nil {
				return k.fail(err.Error())
			}
			if len(rejectedFiles) == 0 {
				if err := k.transition(session.PhaseTesting); err != nil {
					return err
				}
				continue
			}
			// Convergence means further iterations won't change the
			// output, not that the rejection is forgiven — a still-rejected
			// file goes to recovery the same way exhausting MaxIterations
			// does, never straight to Testing.
			if converged || k.sess.Iteration >= k.cfg.Execution.MaxIterations {
				if err := k.transition(session.PhaseMaxIterations); err != nil {
					return err
				}
				continue
			}
			if err := k.store.SetIteration(k.sess, k.sess.Iteration+1); err != nil {
				return k.fail(err.Error())
			}
			k.publish(events.KernelEvent{Type: events.KernelIteration, Iteration: k.sess.Iteration})
			if err := k.transition(session.PhaseFixing); err != nil {
				return err
			}

		case session.PhaseFixing:
			rejected := k.filesWithStatus(session.FileStatusAuditRejected)
			if err := k.runExecutionRound(ctx, rejected); err != nil {
				return k.fail(err.Error())
			}
			if err := k.transition(session.PhaseAuditing); err != nil {
				return err
			}

		case session.PhaseMaxIterations:
			if err := k.transition(session.PhaseRecovery); err != nil {
				return err
			}

		case session.PhaseRecovery:
			if err := k.runRecovery(ctx); err != nil {
				return k.fail(err.Error())
			}
			if err := k.transition(session.PhaseTesting); err != nil {
				return err
			}

		case session.PhaseTesting:
			k.runTestingPhase(ctx)
			if err := k.transition(session.PhaseCommitting); err != nil {
				return err
			}

		case session.PhaseCommitting:
			k.runCommittingPhase(ctx)
			if k.anyFileSucceeded() {
				return k.transition(session.PhaseCompleted)
			}
			return k.transition(session.PhaseFailed)

		case session.PhaseCompleted, session.PhaseFailed, session.PhaseRejected:
			k.opts.Tracer.EndPhase(k.phaseSpan, string(k.sess.Phase))
			k.opts.Tracer.CompleteTrace(k.trace, telemetry.CompleteOptions{Status: string(k.sess.Phase)})
			return nil

		default:
			return k.fail(fmt.Sprintf("kernel: unknown phase %q", k.sess.Phase))
		}
	}
}

func (k *Kernel) transition(phase session.Phase) error {
	k.publish(events.KernelEvent{Type: events.KernelPhaseComplete, Phase: string(k.sess.Phase)})

	k.opts.Tracer.EndPhase(k.phaseSpan, "ok")
	if k.opts.Metrics != nil {
		k.opts.Metrics.RecordPhaseDuration(context.Background(), string(k.sess.Phase), time.Since(k.phaseStart).Seconds())
	}

	if err := k.store.SetPhase(k.sess, phase); err != nil {
		return err
	}
	k.publish(events.KernelEvent{Type: events.KernelPhaseStart, Phase: string(phase)})

	k.phaseSpan = k.opts.Tracer.StartPhase(k.trace, string(phase), telemetry.SpanOptions{Iteration: k.sess.Iteration})
	k.phaseStart = time.Now()
	return nil
}

func (k *Kernel) fail(reason string) error {
	_ = k.store.SetError(k.sess, reason)
	_ = k.store.SetPhase(k.sess, session.PhaseFailed)
	k.publish(events.KernelEvent{Type: events.KernelError, Message: reason})
	return fmt.Errorf("kernel: %s", reason)
}

func (k *Kernel) publish(ev events.KernelEvent) {
	if k.bus == nil {
		return
	}
	if err := k.bus.Publish(ev); err != nil && k.log != nil {
		k.log.Warning("event publish failed: %v", err)
	}
}

func (k *Kernel) filesWithStatus(status session.FileStatus) []string {
	var out []string
	for _, f := range k.sess.Files {
		if f.Status == status {
			out = append(out, f.Path)
		}
	}
	return out
}

func (k *Kernel) anyFileSucceeded() bool {
	for _, f := range k.sess.Files {
		if f.Status == session.FileStatusComplete {
			return true
		}
	}
	return false
}

// executeWithCompaction calls chain.Execute, retrying up to
// MaxRetriesOnContextExceeded times with a progressively more compacted
// prompt whenever the chain reports context-exceeded, per the
// recoverable-by-adaptation error-handling strategy. When opts.Cache is
// configured, an exact (role, prompt) match short-circuits the chain call
// entirely; a successful call is recorded back into the cache.
func (k *Kernel) executeWithCompaction(ctx context.Context, role session.AgentRole, chain *fallback.Chain, prompt string) (fallback.Result, error) {
	attempt := 0
	for {
		var cacheKey string
		if k.opts.Cache != nil {
			cacheKey = promptcache.Key(role, prompt)
			if cached, ok := k.opts.Cache.Get(cacheKey); ok {
				return fallback.Result{ExecuteResult: adapter.ExecuteResult{Success: true, Text: cached}, Backend: "cache"}, nil
			}
		}

		res, err := chain.Execute(ctx, adapter.ExecuteRequest{Prompt: prompt, WorkingDir: k.opts.WorkDir})

		status := "success"
		if err != nil || !res.Success {
			status = string(res.ErrorKind)
			if status == "" {
				status = "error"
			}
		}
		k.opts.Tracer.RecordGeneration(k.phaseSpan, telemetry.GenerationInput{
			Role: string(role), Model: res.Backend, DurationMs: res.Duration.Milliseconds(), Status: status,
		})
		if k.opts.Metrics != nil {
			k.opts.Metrics.RecordModelAttempt(ctx, string(role), status)
		}

		if err == nil && res.Success && k.opts.Cache != nil {
			k.opts.Cache.Put(cacheKey, role, res.Text)
		}

		if res.ErrorKind != adapter.ErrorContextExceeded || attempt >= k.opts.MaxRetriesOnContextExceeded {
			return res, err
		}
		attempt++
		compacted := compact.Compact(prompt, 0.5)
		prompt = compacted.Compacted
	}
}

// dispatchFiles runs op over paths with the configured worker pool,
// emitting parallel-progress events.
func (k *Kernel) dispatchFiles(ctx context.Context, paths []string, op func(context.Context, string, int) error) []error {
	return pool.Run(ctx, paths, op, k.cfg.Execution.MaxConcurrency, func(ev pool.ProgressEvent) {
		k.publish(events.KernelEvent{Type: events.KernelParallelProgress, Completed: ev.Completed, Total: ev.Total})
	})
}
