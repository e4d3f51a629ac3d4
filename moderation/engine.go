package moderation

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"warden/model"
	"warden/scheduler"
	"warden/utils/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Error taxonomy. Callers branch on these to decide how to report the
// failure to the moderator.
var (
	// ErrValidation: bad request, nothing happened.
	ErrValidation = errors.New("invalid action request")
	// ErrNotPermitted: authorization refused, nothing happened.
	ErrNotPermitted = errors.New("moderator is not permitted to perform this action")
	// ErrActuation: the platform refused the forward action; no record and
	// no entry were created.
	ErrActuation = errors.New("platform action failed")
	// ErrScheduleFailed: the action was applied but the automatic reversal
	// is not guaranteed. Must be surfaced to the moderator, not swallowed.
	ErrScheduleFailed = errors.New("action applied but automatic reversal could not be scheduled")
	// ErrReversalFailed: the reversal actuation failed; the record was
	// resolved anyway so a permission loss cannot pin it active forever.
	ErrReversalFailed = errors.New("reversal action failed")
)

// Discord caps member timeouts at 28 days; a permanent mute is armed at
// the cap and stays active until manually resolved.
const maxMuteDuration = 28 * 24 * time.Hour

const massActionWorkers = 5

// ActionRequest describes one moderation action to perform.
type ActionRequest struct {
	GuildID     string
	SubjectID   string
	ModeratorID string
	Type        model.InfractionType
	Reason      string
	Duration    time.Duration // 0 means permanent
	RoleID      string        // role_add / role_remove only
}

// Engine is the infraction state machine. It owns infraction creation and
// status transitions; the scheduler only signals completion back through
// the handlers and callbacks the engine registers.
type Engine struct {
	infractions *database.InfractionStore
	sched       *scheduler.Scheduler
	actuator    Actuator
	authz       Authorizer
	auditor     Auditor
	clock       scheduler.Clock
	logger      *zap.Logger
}

// NewEngine wires the state machine to its collaborators. Call
// RegisterReversals before the scheduler reconciles.
func NewEngine(infractions *database.InfractionStore, sched *scheduler.Scheduler, actuator Actuator, authz Authorizer, auditor Auditor, clock scheduler.Clock, logger *zap.Logger) *Engine {
	return &Engine{
		infractions: infractions,
		sched:       sched,
		actuator:    actuator,
		authz:       authz,
		auditor:     auditor,
		clock:       clock,
		logger:      logger,
	}
}

// Create validates and authorizes the request, performs the platform
// effect, persists the infraction and, for temporary actions, schedules
// the reversal. Actuator failure leaves no partial state behind.
func (e *Engine) Create(req ActionRequest) (*model.Infraction, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := e.authz.Authorize(req.GuildID, req.ModeratorID, req.Type); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPermitted, err)
	}

	if req.Type == model.InfractionUnban || req.Type == model.InfractionUnmute {
		return e.createManualReversal(req)
	}

	if err := e.applyForward(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrActuation, err)
	}

	now := e.clock.Now()
	rec := model.Infraction{
		GuildID:         req.GuildID,
		SubjectID:       req.SubjectID,
		ModeratorID:     req.ModeratorID,
		ActionType:      req.Type,
		Reason:          req.Reason,
		RoleID:          req.RoleID,
		DurationSeconds: int64(req.Duration / time.Second),
		Status:          initialStatus(req.Type),
		CreatedAt:       now.Unix(),
		UpdatedAt:       now.Unix(),
	}

	id, err := e.infractions.Add(rec)
	if err != nil {
		// The platform effect already happened; report the action as only
		// partially applied rather than pretending it failed outright.
		return nil, fmt.Errorf("%w: failed to persist infraction: %v", ErrScheduleFailed, err)
	}
	rec.ID = id

	if req.Duration > 0 {
		if err := e.scheduleReversal(req, now); err != nil {
			e.audit(req, "applied, but automatic reversal is not scheduled")
			return &rec, fmt.Errorf("%w: %v", ErrScheduleFailed, err)
		}
	}

	e.audit(req, "applied")
	return &rec, nil
}

// ManualResolve reverses an infraction ahead of its timer and marks it
// resolved. Resolving an already-resolved infraction is a no-op success: a
// race between a manual reversal and the timer firing is expected and must
// not surface as a fault.
func (e *Engine) ManualResolve(inf *model.Infraction) error {
	if inf.Status == model.InfractionResolved {
		return nil
	}

	// Claim the transition first so a racing timer fire cannot actuate the
	// reversal a second time through this path.
	resolved, err := e.infractions.Resolve(inf.ID, e.clock.Now())
	if err != nil {
		return err
	}
	inf.Status = model.InfractionResolved
	if !resolved {
		return nil
	}

	e.cancelReversal(inf.GuildID, inf.SubjectID, inf.ActionType)

	revErr := e.reverse(inf.GuildID, inf.SubjectID, inf.ActionType, inf.RoleID)
	outcome := "manually resolved"
	if revErr != nil {
		outcome = fmt.Sprintf("record resolved, platform reversal failed: %v", revErr)
		e.logger.Warn("manual reversal actuation failed",
			zap.Int64("infraction_id", inf.ID),
			zap.String("guild_id", inf.GuildID),
			zap.String("subject_id", inf.SubjectID),
			zap.Error(revErr))
	}
	e.auditor.Record(AuditRecord{
		GuildID:     inf.GuildID,
		SubjectID:   inf.SubjectID,
		ModeratorID: inf.ModeratorID,
		Action:      inf.ActionType,
		Reason:      inf.Reason,
		Outcome:     outcome,
		At:          e.clock.Now(),
	})

	if revErr != nil {
		return fmt.Errorf("%w: %v", ErrReversalFailed, revErr)
	}
	return nil
}

// CreateMass applies a ban or kick to several subjects under a single
// authorization check. Individual actuation failures do not stop the
// batch; they are collected and returned alongside the successful records.
func (e *Engine) CreateMass(req ActionRequest, subjectIDs []string) ([]model.Infraction, error) {
	if req.Type != model.InfractionMassBan && req.Type != model.InfractionMassKick {
		return nil, fmt.Errorf("%w: %s is not a mass action", ErrValidation, req.Type)
	}
	if len(subjectIDs) == 0 {
		return nil, fmt.Errorf("%w: no subjects given", ErrValidation)
	}
	if req.Duration != 0 {
		// No reversal entries are scheduled for mass actions.
		return nil, fmt.Errorf("%w: mass actions cannot carry a duration", ErrValidation)
	}
	if req.GuildID == "" || req.ModeratorID == "" {
		return nil, fmt.Errorf("%w: missing guild or moderator", ErrValidation)
	}
	if err := e.authz.Authorize(req.GuildID, req.ModeratorID, req.Type); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPermitted, err)
	}

	var (
		mu       sync.Mutex
		records  []model.Infraction
		failures []error
	)

	g := new(errgroup.Group)
	g.SetLimit(massActionWorkers)
	for _, subjectID := range subjectIDs {
		subjectID := subjectID
		g.Go(func() error {
			var actErr error
			if req.Type == model.InfractionMassBan {
				actErr = e.actuator.Ban(req.GuildID, subjectID, req.Reason)
			} else {
				actErr = e.actuator.Kick(req.GuildID, subjectID, req.Reason)
			}
			if actErr != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("subject %s: %w", subjectID, actErr))
				mu.Unlock()
				return nil
			}

			now := e.clock.Now()
			rec := model.Infraction{
				GuildID:     req.GuildID,
				SubjectID:   subjectID,
				ModeratorID: req.ModeratorID,
				ActionType:  req.Type,
				Reason:      req.Reason,
				Status:      initialStatus(req.Type),
				CreatedAt:   now.Unix(),
				UpdatedAt:   now.Unix(),
			}
			id, err := e.infractions.Add(rec)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("subject %s: %w", subjectID, err))
				mu.Unlock()
				return nil
			}
			rec.ID = id

			e.auditor.Record(AuditRecord{
				GuildID:     req.GuildID,
				SubjectID:   subjectID,
				ModeratorID: req.ModeratorID,
				Action:      req.Type,
				Reason:      req.Reason,
				Outcome:     "applied",
				At:          now,
			})

			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		return records, fmt.Errorf("%w: %v", ErrActuation, errors.Join(failures...))
	}
	return records, nil
}

// RecordExternal persists an infraction observed on the platform but not
// initiated through the bot, e.g. a ban issued from the Discord UI.
func (e *Engine) RecordExternal(guildID, subjectID, moderatorID string, typ model.InfractionType, reason string) (*model.Infraction, error) {
	now := e.clock.Now()
	rec := model.Infraction{
		GuildID:     guildID,
		SubjectID:   subjectID,
		ModeratorID: moderatorID,
		ActionType:  typ,
		Reason:      reason,
		Status:      initialStatus(typ),
		CreatedAt:   now.Unix(),
		UpdatedAt:   now.Unix(),
	}
	id, err := e.infractions.Add(rec)
	if err != nil {
		return nil, err
	}
	rec.ID = id

	e.auditor.Record(AuditRecord{
		GuildID:     guildID,
		SubjectID:   subjectID,
		ModeratorID: moderatorID,
		Action:      typ,
		Reason:      reason,
		Outcome:     "recorded (external action)",
		At:          now,
	})
	return &rec, nil
}

// ResolveExternal closes the records for a reversal that already happened
// on the platform, e.g. a manual unban through the Discord UI. No
// actuation takes place. Idempotent.
func (e *Engine) ResolveExternal(guildID, subjectID string, target model.InfractionType) {
	e.cancelReversal(guildID, subjectID, target)
	e.resolveRecords(guildID, subjectID, expandTypes(target)...)
}

// History returns the infractions on record for a user, newest first.
func (e *Engine) History(guildID, subjectID string) ([]model.Infraction, error) {
	return e.infractions.ListBySubject(guildID, subjectID)
}

// Get retrieves a single infraction by ID.
func (e *Engine) Get(id int64) (*model.Infraction, error) {
	return e.infractions.GetByID(id)
}

func (e *Engine) applyForward(req ActionRequest) error {
	switch req.Type {
	case model.InfractionBan:
		return e.actuator.Ban(req.GuildID, req.SubjectID, req.Reason)
	case model.InfractionMute:
		d := req.Duration
		if d == 0 || d > maxMuteDuration {
			d = maxMuteDuration
		}
		return e.actuator.Mute(req.GuildID, req.SubjectID, e.clock.Now().Add(d))
	case model.InfractionKick:
		return e.actuator.Kick(req.GuildID, req.SubjectID, req.Reason)
	case model.InfractionWarn:
		return nil // record only, no platform effect
	case model.InfractionRoleAdd:
		return e.actuator.GrantRole(req.GuildID, req.SubjectID, req.RoleID)
	case model.InfractionRoleRemove:
		return e.actuator.RevokeRole(req.GuildID, req.SubjectID, req.RoleID)
	default:
		return fmt.Errorf("unhandled action type %s", req.Type)
	}
}

// createManualReversal handles unban/unmute requests: it undoes the
// standing action, closes the matching active records and files a resolved
// record of the reversal itself.
func (e *Engine) createManualReversal(req ActionRequest) (*model.Infraction, error) {
	target := model.InfractionBan
	if req.Type == model.InfractionUnmute {
		target = model.InfractionMute
	}

	e.cancelReversal(req.GuildID, req.SubjectID, target)
	revErr := e.reverse(req.GuildID, req.SubjectID, target, "")
	e.resolveRecords(req.GuildID, req.SubjectID, expandTypes(target)...)

	now := e.clock.Now()
	rec := model.Infraction{
		GuildID:     req.GuildID,
		SubjectID:   req.SubjectID,
		ModeratorID: req.ModeratorID,
		ActionType:  req.Type,
		Reason:      req.Reason,
		Status:      model.InfractionResolved,
		CreatedAt:   now.Unix(),
		UpdatedAt:   now.Unix(),
	}
	id, err := e.infractions.Add(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to persist %s record: %w", req.Type, err)
	}
	rec.ID = id

	outcome := "applied"
	if revErr != nil {
		outcome = fmt.Sprintf("records closed, platform reversal failed: %v", revErr)
	}
	e.audit(req, outcome)

	if revErr != nil {
		return &rec, fmt.Errorf("%w: %v", ErrReversalFailed, revErr)
	}
	return &rec, nil
}

func (e *Engine) scheduleReversal(req ActionRequest, now time.Time) error {
	task, ok := req.Type.ReversalTask()
	if !ok {
		return fmt.Errorf("action type %s has no reversal task", req.Type)
	}

	var args []string
	if req.RoleID != "" {
		args = append(args, req.RoleID)
	}

	entry := model.ScheduledEntry{
		ID:        uuid.NewString(),
		TaskName:  task,
		GuildID:   req.GuildID,
		SubjectID: req.SubjectID,
		Args:      model.EncodeArgs(args),
		CreatedAt: now,
		RunAt:     now.Add(req.Duration),
	}
	return e.sched.Schedule(entry, e.reversalDone)
}

// reversalDone only observes the outcome. The durable status transition
// happens inside the registered handler so it survives restarts;
// completion callbacks do not.
func (e *Engine) reversalDone(entry model.ScheduledEntry, err error) {
	if err != nil {
		e.logger.Warn("scheduled reversal finished with error",
			zap.String("entry_id", entry.ID),
			zap.String("task", entry.TaskName),
			zap.Error(err))
		return
	}
	e.logger.Info("scheduled reversal completed",
		zap.String("entry_id", entry.ID),
		zap.String("task", entry.TaskName))
}

// cancelReversal disarms any pending reversal entry for the subject.
func (e *Engine) cancelReversal(guildID, subjectID string, target model.InfractionType) {
	task, ok := target.ReversalTask()
	if !ok {
		return
	}
	if _, err := e.sched.Cancel(guildID, subjectID, task); err != nil {
		e.logger.Warn("failed to cancel pending reversal entry",
			zap.String("guild_id", guildID),
			zap.String("subject_id", subjectID),
			zap.String("task", task),
			zap.Error(err))
	}
}

// reverse undoes a standing action. The current platform state is probed
// first so the call stays idempotent when the state already changed
// out-of-band or an entry replays after a crash.
func (e *Engine) reverse(guildID, subjectID string, target model.InfractionType, roleID string) error {
	switch target {
	case model.InfractionBan, model.InfractionMassBan:
		banned, err := e.actuator.IsBanned(guildID, subjectID)
		if err != nil {
			return err
		}
		if !banned {
			return nil
		}
		return e.actuator.Unban(guildID, subjectID)
	case model.InfractionMute:
		muted, err := e.actuator.IsMuted(guildID, subjectID)
		if err != nil {
			return err
		}
		if !muted {
			return nil
		}
		return e.actuator.Unmute(guildID, subjectID)
	case model.InfractionRoleAdd:
		if roleID == "" {
			return fmt.Errorf("missing role for %s reversal", target)
		}
		has, err := e.actuator.HasRole(guildID, subjectID, roleID)
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		return e.actuator.RevokeRole(guildID, subjectID, roleID)
	case model.InfractionRoleRemove:
		if roleID == "" {
			return fmt.Errorf("missing role for %s reversal", target)
		}
		has, err := e.actuator.HasRole(guildID, subjectID, roleID)
		if err != nil {
			return err
		}
		if has {
			return nil
		}
		return e.actuator.GrantRole(guildID, subjectID, roleID)
	default:
		return nil
	}
}

// resolveRecords marks matching active infractions resolved.
func (e *Engine) resolveRecords(guildID, subjectID string, types ...model.InfractionType) {
	count, err := e.infractions.ResolveActive(guildID, subjectID, types, e.clock.Now())
	if err != nil {
		e.logger.Error("failed to resolve infraction records",
			zap.String("guild_id", guildID),
			zap.String("subject_id", subjectID),
			zap.Error(err))
		return
	}
	if count > 0 {
		e.logger.Info("infraction records resolved",
			zap.String("guild_id", guildID),
			zap.String("subject_id", subjectID),
			zap.Int64("count", count))
	}
}

func (e *Engine) audit(req ActionRequest, outcome string) {
	e.auditor.Record(AuditRecord{
		GuildID:     req.GuildID,
		SubjectID:   req.SubjectID,
		ModeratorID: req.ModeratorID,
		Action:      req.Type,
		Reason:      req.Reason,
		Duration:    req.Duration,
		Outcome:     outcome,
		At:          e.clock.Now(),
	})
}

func validate(req ActionRequest) error {
	if req.GuildID == "" || req.SubjectID == "" || req.ModeratorID == "" {
		return fmt.Errorf("%w: missing guild, subject or moderator", ErrValidation)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: unknown action type %q", ErrValidation, req.Type)
	}
	if req.Type == model.InfractionMassBan || req.Type == model.InfractionMassKick {
		return fmt.Errorf("%w: use CreateMass for %s", ErrValidation, req.Type)
	}
	if req.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrValidation)
	}
	if req.Duration > 0 {
		if _, ok := req.Type.ReversalTask(); !ok {
			return fmt.Errorf("%w: %s cannot carry a duration", ErrValidation, req.Type)
		}
	}
	switch req.Type {
	case model.InfractionRoleAdd, model.InfractionRoleRemove:
		if req.RoleID == "" {
			return fmt.Errorf("%w: %s requires a role", ErrValidation, req.Type)
		}
	default:
		if req.RoleID != "" {
			return fmt.Errorf("%w: %s does not take a role", ErrValidation, req.Type)
		}
	}
	return nil
}

// initialStatus gives the state a fresh record starts in. One-shot types
// have nothing pending to reverse; ban, mute and role changes stay active
// until their reversal fires or a manual reversal is recorded.
func initialStatus(t model.InfractionType) model.InfractionStatus {
	switch t {
	case model.InfractionWarn, model.InfractionKick, model.InfractionMassKick,
		model.InfractionUnban, model.InfractionUnmute:
		return model.InfractionResolved
	default:
		return model.InfractionActive
	}
}

// expandTypes widens a reversal target to every record type it closes.
func expandTypes(target model.InfractionType) []model.InfractionType {
	if target == model.InfractionBan || target == model.InfractionMassBan {
		return []model.InfractionType{model.InfractionBan, model.InfractionMassBan}
	}
	return []model.InfractionType{target}
}
