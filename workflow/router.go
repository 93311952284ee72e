// Package workflow implements the Router (C10): the single entrypoint
// that orchestrates pre-filtering, detection, guard evaluation, step
// dispatch, HIL gating, and verbalization for one inbound message, and
// owns the WorkflowState lifecycle around the event store's lock
// (spec.md §4.10).
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/venuedesk/bookingengine/activity"
	"github.com/venuedesk/bookingengine/concurrency"
	"github.com/venuedesk/bookingengine/config"
	"github.com/venuedesk/bookingengine/detection"
	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/guard"
	"github.com/venuedesk/bookingengine/hil"
	"github.com/venuedesk/bookingengine/metrics"
	"github.com/venuedesk/bookingengine/prefilter"
	"github.com/venuedesk/bookingengine/steps"
	"github.com/venuedesk/bookingengine/store"
	"github.com/venuedesk/bookingengine/tracebus"
	"github.com/venuedesk/bookingengine/verbalizer"
)

// Message is one inbound client message (spec.md §6 Core API).
type Message struct {
	MsgID           string
	FromName        string
	FromEmail       string
	Subject         string
	Body            string
	Ts              time.Time
	ThreadID        string
	SessionID       string
	IsContinuation  bool
	DepositJustPaid bool
}

// Progress mirrors spec.md §6's {current_stage, percentage} projection
// of current_step.
type Progress struct {
	CurrentStage string `json:"current_stage"`
	Percentage   int    `json:"percentage"`
}

var progressByStep = map[int]Progress{
	1: {CurrentStage: "date", Percentage: 0},
	2: {CurrentStage: "date", Percentage: 20},
	3: {CurrentStage: "room", Percentage: 40},
	4: {CurrentStage: "offer", Percentage: 60},
	5: {CurrentStage: "deposit", Percentage: 70},
	6: {CurrentStage: "deposit", Percentage: 80},
	7: {CurrentStage: "confirmed", Percentage: 100},
}

// Result is process_msg's return shape (spec.md §6).
type Result struct {
	Action             string         `json:"action"`
	EventID            string         `json:"event_id,omitempty"`
	ThreadID           string         `json:"thread_id,omitempty"`
	Intent             string         `json:"intent,omitempty"`
	Confidence         float64        `json:"confidence,omitempty"`
	DraftMessages      []domain.Draft `json:"draft_messages,omitempty"`
	Actions            []string       `json:"actions,omitempty"`
	ThreadState        domain.ThreadState `json:"thread_state,omitempty"`
	CurrentStep        int            `json:"current_step,omitempty"`
	Progress           Progress       `json:"progress"`
	PendingHILApproval bool           `json:"res_pending_hil_approval"`
	DevChoice          string         `json:"dev_choice,omitempty"`
}

// ActiveConversations tracks which threads are currently mid-pipeline
// so a multi-instance deployment can short-circuit routing without
// consulting the document store. Satisfied by *redisclient.Client; the
// Router works without one (nil-safe) for single-instance deployments
// and tests.
type ActiveConversations interface {
	MarkActive(ctx context.Context, threadID string, ttl time.Duration) error
	ClearActive(ctx context.Context, threadID string) error
}

// Router orchestrates C3-C9 for each inbound message.
type Router struct {
	store      *store.Store
	cfgStore   *config.Store
	detector   *detection.Detector
	bus        *tracebus.Bus
	threadLock *concurrency.ThreadLock
	dedup      *concurrency.Dedup
	metricsReg *metrics.Registry
	activityTx *activity.Transformer
	verb       *verbalizer.Verbalizer
	activeConv ActiveConversations
	logger     zerolog.Logger
}

// SetActiveConversations attaches the active-conversations cache. Safe
// to leave unset; every call site checks for nil first.
func (r *Router) SetActiveConversations(ac ActiveConversations) {
	r.activeConv = ac
}

// New wires a Router over its collaborators. detector, bus, metricsReg,
// activityTx, and verb may individually be nil in tests that only
// exercise the parts they need.
func New(
	st *store.Store,
	cfgStore *config.Store,
	detector *detection.Detector,
	bus *tracebus.Bus,
	metricsReg *metrics.Registry,
	activityTx *activity.Transformer,
	verb *verbalizer.Verbalizer,
	logger zerolog.Logger,
) *Router {
	return &Router{
		store:      st,
		cfgStore:   cfgStore,
		detector:   detector,
		bus:        bus,
		threadLock: concurrency.NewThreadLock(),
		dedup:      concurrency.NewDedup(),
		metricsReg: metricsReg,
		activityTx: activityTx,
		verb:       verb,
		logger:     logger.With().Str("component", "router").Logger(),
	}
}

// ProcessMsg is the only entrypoint required by the HTTP surface
// (spec.md §4.10, §6).
func (r *Router) ProcessMsg(ctx context.Context, msg Message) (*Result, error) {
	threadID := msg.ThreadID
	if threadID == "" {
		threadID = domain.NormalizeEmail(msg.FromEmail)
	}

	dedupKey := concurrency.Key(threadID, msg.MsgID)
	entry, isNew := r.dedup.TryStart(dedupKey)
	if !isNew {
		v, err := entry.Wait()
		if err != nil {
			return nil, err
		}
		res, _ := v.(*Result)
		return res, nil
	}

	res, err := r.processLocked(ctx, threadID, msg)
	r.dedup.Complete(dedupKey, res, err)
	return res, err
}

// processLocked runs the full read-modify-write cycle under the
// per-thread in-process lock plus the cross-process file lock, so two
// process_msg calls on the same thread never interleave (spec.md §5).
func (r *Router) processLocked(ctx context.Context, threadID string, msg Message) (*Result, error) {
	unlock := r.threadLock.Lock(threadID)
	defer unlock()

	cfg := r.cfgStore.Current()
	_ = r.cfgStore.Version() // consulted once per cycle per spec.md §9 hot-reload note

	var res *Result
	err := r.store.WithLock(func(db *store.DB) error {
		var innerErr error
		res, innerErr = r.runPipeline(ctx, db, cfg, threadID, msg)
		return innerErr
	})
	if err != nil {
		return r.fallbackResult(threadID, msg, err), nil
	}
	r.syncActiveConversation(ctx, threadID, res)
	return res, nil
}

// syncActiveConversation refreshes or clears the Redis-backed
// active-conversations marker for threadID based on the cycle's
// outcome. Nil-safe: a no-op when no cache is attached.
func (r *Router) syncActiveConversation(ctx context.Context, threadID string, res *Result) {
	if r.activeConv == nil || res == nil {
		return
	}
	switch res.ThreadState {
	case domain.ThreadConfirmed, domain.ThreadClosed:
		_ = r.activeConv.ClearActive(ctx, threadID)
	default:
		_ = r.activeConv.MarkActive(ctx, threadID, 24*time.Hour)
	}
}

// runPipeline is steps 2-9 of spec.md §4.10, executed with the document
// already loaded and the caller responsible for persisting it back.
func (r *Router) runPipeline(ctx context.Context, db *store.DB, cfg *config.Config, threadID string, msg Message) (*Result, error) {
	client := store.UpsertClient(db, msg.FromEmail, msg.FromName, "", "", &domain.ClientMessage{
		MsgID: msg.MsgID, ThreadID: threadID, Body: msg.Body, Direction: "inbound", Ts: msg.Ts,
	})

	e := store.FindEventByThread(db, threadID)
	if e == nil {
		e = store.LastEventForEmail(db, msg.FromEmail)
	}

	if e != nil && e.HasProcessed(msg.MsgID) {
		return r.duplicateResult(e), nil
	}

	body := prefilter.StripQuoted(msg.Body)
	flags := prefilter.Run(e, msg.MsgID, msg.Body)

	if flags.IsStructuralAttack {
		return r.structuralAttackResult(db, e, threadID, msg), nil
	}

	currentStep := 1
	if e != nil {
		currentStep = e.CurrentStep
	}

	ud, derr := r.detect(ctx, body, currentStep)
	if derr != nil {
		return nil, derr
	}

	if e == nil {
		if ud.Intent == detection.IntentEventRequest {
			newID := fmt.Sprintf("event_%s", msg.MsgID)
			e = domain.NewEvent(newID, client.ClientID, threadID, msg.Ts)
			store.InsertEvent(db, e)
		}
	}

	if e != nil {
		e.MarkProcessed(msg.MsgID)
	}

	ws := &steps.WorkflowState{
		Message:    body,
		MsgID:      msg.MsgID,
		DB:         db,
		Event:      e,
		Intent:     ud.Intent,
		Confidence: ud.Confidence,
		Entities:   ud.Entities,
		Signals:    ud.Signals,
		Extras: map[string]any{
			"global_deposit":    cfg.GlobalDeposit,
			"blocked_dates":     cfg.SiteVisit.BlockedDates,
			"site_visit_policy": cfg.SiteVisit,
			"deposit_paid":      msg.DepositJustPaid,
		},
	}

	r.trace(threadID, tracebus.Entry{Kind: tracebus.KindStepEnter, Step: currentStep, Detail: "step1_intake"})
	start := time.Now()
	group := steps.Step1Intake(ws)
	r.trackStep(1, group.Action, time.Since(start))
	r.trace(threadID, tracebus.Entry{Kind: tracebus.KindStepExit, Step: 1, Detail: group.Action})

	if e == nil {
		return r.composeResult(nil, threadID, ud, group, group.Drafts), nil
	}

	if !group.Halt {
		snap := guard.Evaluate(e)
		dispatchStep := e.CurrentStep
		if snap.ForcedStep != 0 && !snap.BillingFlowActive {
			dispatchStep = snap.ForcedStep
		}

		if dispatchStep != 1 {
			r.trace(threadID, tracebus.Entry{Kind: tracebus.KindStepEnter, Step: dispatchStep, Detail: "dispatch"})
			start = time.Now()
			handler := steps.HandlerForStep(dispatchStep)
			group = handler(ws)
			r.trackStep(dispatchStep, group.Action, time.Since(start))
			r.trace(threadID, tracebus.Entry{Kind: tracebus.KindStepExit, Step: dispatchStep, Detail: group.Action})
		}
	}

	drafts := r.verbalizeAndGate(ctx, db, e, cfg, group.Drafts)

	if r.activityTx != nil {
		for _, d := range drafts {
			r.activityTx.Ingest(e.EventID, tracebus.Entry{Kind: tracebus.KindDraftSend, Step: d.Step, Detail: d.Topic, Ts: time.Now()})
		}
	}
	if r.metricsReg != nil {
		r.metricsReg.TrackHILQueueDepth(len(store.PendingTasksForEvent(db, e.EventID)))
	}

	return r.composeResult(e, threadID, ud, group, drafts), nil
}

// detect runs the configured detection pipeline. With no detector
// attached it returns a fixed event_request classification at
// confidence 0.5; a detector error is returned to the caller, which
// turns it into a fallback reply (spec.md §7: adapter failure never
// silently swallowed).
func (r *Router) detect(ctx context.Context, body string, currentStep int) (*detection.UnifiedDetection, error) {
	if r.detector == nil {
		return &detection.UnifiedDetection{Intent: detection.IntentEventRequest, Confidence: 0.5}, nil
	}
	ud, err := r.detector.Detect(ctx, body, currentStep)
	if err != nil {
		return nil, err
	}
	return ud, nil
}

// verbalizeAndGate runs the Verbalizer over every newly produced draft
// (step 8) and then files HIL-gated drafts into the approval queue,
// leaving only auto-sendable drafts in the returned slice.
func (r *Router) verbalizeAndGate(ctx context.Context, db *store.DB, e *domain.Event, cfg *config.Config, drafts []domain.Draft) []domain.Draft {
	out := make([]domain.Draft, 0, len(drafts))
	for _, d := range drafts {
		if r.verb != nil {
			d = r.verb.Render(ctx, d, verbalizer.Facts{
				"chosen_date": e.ChosenDate,
				"room":        e.LockedRoomID,
			})
		}

		if _, gated := hil.Enqueue(db, e.EventID, cfg.HILModeEnabled, d); gated {
			state := domain.ThreadWaitingOnHIL
			store.UpdateEventMetadata(e, store.EventMetadataFields{ThreadState: &state, Reason: "draft gated for HIL review"})
			continue
		}
		out = append(out, d)
	}
	return out
}

func (r *Router) trace(threadID string, e tracebus.Entry) {
	if r.bus != nil {
		r.bus.Append(threadID, e)
	}
}

func (r *Router) trackStep(step int, action string, d time.Duration) {
	if r.metricsReg != nil {
		r.metricsReg.TrackStep(step, action, float64(d.Milliseconds()))
	}
}

func (r *Router) composeResult(e *domain.Event, threadID string, ud *detection.UnifiedDetection, group steps.GroupResult, drafts []domain.Draft) *Result {
	res := &Result{
		Action:        group.Action,
		ThreadID:      threadID,
		Intent:        string(ud.Intent),
		Confidence:    ud.Confidence,
		DraftMessages: drafts,
	}
	if e != nil {
		res.EventID = e.EventID
		res.ThreadState = e.ThreadState
		res.CurrentStep = e.CurrentStep
		res.Progress = progressByStep[e.CurrentStep]
	}
	for _, d := range group.Drafts {
		if d.RequiresApproval {
			res.PendingHILApproval = true
		}
	}
	return res
}

// duplicateResult implements spec.md Invariant 4: a second delivery of
// an already-processed msg_id is a no-op that replays the event's
// current state rather than re-running any step.
func (r *Router) duplicateResult(e *domain.Event) *Result {
	return &Result{
		Action:      "duplicate_skipped",
		EventID:     e.EventID,
		ThreadID:    e.ThreadID,
		ThreadState: e.ThreadState,
		CurrentStep: e.CurrentStep,
		Progress:    progressByStep[e.CurrentStep],
	}
}

// structuralAttackResult routes a delimiter-injection attempt straight
// to manual review without ever invoking an LLM (spec.md §4.4, §4.7
// tie-break rule 1).
func (r *Router) structuralAttackResult(db *store.DB, e *domain.Event, threadID string, msg Message) *Result {
	draft := domain.Draft{
		Body:             "Thanks for your message — a member of our team will follow up shortly.",
		Topic:            "manual_review",
		RequiresApproval: true,
	}
	if e != nil {
		store.EnqueueTask(db, e.EventID, domain.TaskManualReview, draft)
	}
	res := &Result{
		Action:             "structural_attack_manual_review",
		ThreadID:           threadID,
		DraftMessages:      []domain.Draft{draft},
		PendingHILApproval: true,
	}
	if e != nil {
		res.EventID = e.EventID
		res.ThreadState = e.ThreadState
		res.CurrentStep = e.CurrentStep
		res.Progress = progressByStep[e.CurrentStep]
	}
	return res
}

// fallbackResult implements spec.md §7: a Router-level failure always
// produces a visible, non-empty reply and never a silent swallow. When
// config.FallbackDiagnostics is set the reply carries the error text,
// and when the thread has an event a manual-review task is enqueued.
func (r *Router) fallbackResult(threadID string, msg Message, err error) *Result {
	r.logger.Error().Err(err).Str("thread_id", threadID).Str("msg_id", msg.MsgID).Msg("process_msg failed, returning fallback reply")
	draft := domain.Draft{
		Body:  "Thanks for your message — we're experiencing a temporary issue and a member of our team will follow up shortly.",
		Topic: "manual_review",
	}
	if cfg := r.cfgStore.Current(); cfg != nil && cfg.FallbackDiagnostics {
		draft.Body += "\n\n[diagnostics] " + err.Error()
	}
	_ = r.store.WithLock(func(db *store.DB) error {
		if e := store.FindEventByThread(db, threadID); e != nil {
			store.EnqueueTask(db, e.EventID, domain.TaskManualReview, draft)
		}
		return nil
	})
	return &Result{
		Action:        "fallback_reply",
		ThreadID:      threadID,
		DraftMessages: []domain.Draft{draft},
		Progress:      progressByStep[1],
	}
}

// ApproveTask resolves a pending HIL task as-is (hil.Approve records the
// approved body on the task) and then re-invokes ProcessMsg with the
// continuation message on the task's thread. The continuation runs the
// normal pipeline, Step 1 included, so any step logic gated on the
// approval can proceed.
func (r *Router) ApproveTask(ctx context.Context, taskID, operator string) (*Result, error) {
	return r.resolveTask(ctx, taskID, func(db *store.DB) (string, error) {
		return hil.Approve(db, taskID, operator)
	})
}

// EditAndApproveTask rewrites a pending task's draft body before
// sending and resuming, per the same contract as ApproveTask.
func (r *Router) EditAndApproveTask(ctx context.Context, taskID, operator, editedBody string) (*Result, error) {
	return r.resolveTask(ctx, taskID, func(db *store.DB) (string, error) {
		return hil.EditAndApprove(db, taskID, operator, editedBody)
	})
}

// RejectTask marks a pending task rejected. No continuation message is
// sent to the client; the event is left exactly where it was for an
// operator to revisit manually.
func (r *Router) RejectTask(ctx context.Context, taskID, operator string) error {
	var outErr error
	err := r.store.WithLock(func(db *store.DB) error {
		outErr = hil.Reject(db, taskID, operator)
		return outErr
	})
	if outErr != nil {
		return outErr
	}
	return err
}

// resolveTask looks up the task's owning event and thread, applies
// resolve (which mutates db and returns the body to send), and then
// re-enters the pipeline with the continuation message on that thread
// so the paused step can observe the now-approved draft and move on.
func (r *Router) resolveTask(ctx context.Context, taskID string, resolve func(db *store.DB) (string, error)) (*Result, error) {
	var threadID string
	err := r.store.WithLock(func(db *store.DB) error {
		t := store.FindTaskByID(db, taskID)
		if t == nil {
			return domain.NewError(domain.ErrValidationFailed, "resolveTask.lookup", nil)
		}
		e := store.FindEventByID(db, t.EventID)
		if e == nil {
			return domain.NewError(domain.ErrValidationFailed, "resolveTask.event_lookup", nil)
		}
		threadID = e.ThreadID
		_, resolveErr := resolve(db)
		return resolveErr
	})
	if err != nil {
		return nil, err
	}

	return r.ProcessMsg(ctx, Message{
		MsgID:          taskID + "-continue",
		ThreadID:       threadID,
		Body:           hil.ContinuationMessage,
		IsContinuation: true,
	})
}
