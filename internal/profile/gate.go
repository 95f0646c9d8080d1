// internal/profile/gate.go
// GateKeeper decides whether a user may touch the relationship subsystem
// and whether stage-scoped profile editing is still open.

package profile

import (
	"context"
	"errors"
)

var (
	ErrGateDenied           = errors.New("profile must be submitted or skipped before using relationships")
	ErrInsufficientProgress = errors.New("progression stage too low to skip initial profile")
	ErrStageAccessDenied    = errors.New("stage-scoped editing is closed once the profile gate is open")
	ErrInvalidStage         = errors.New("invalid progression stage")
)

// GateKeeper reads the per-user gate flags. The minimalProfileCompletion
// flag is monotonic: the repository only ever sets it to true.
type GateKeeper struct {
	repo         Repository
	skipMinStage int
	maxStage     int
}

func NewGateKeeper(repo Repository, skipMinStage, maxStage int) *GateKeeper {
	return &GateKeeper{
		repo:         repo,
		skipMinStage: skipMinStage,
		maxStage:     maxStage,
	}
}

// CanUseRelationships returns nil iff the gate flag is set for the user.
func (g *GateKeeper) CanUseRelationships(ctx context.Context, userID int64) error {
	state, err := g.repo.GetGateState(ctx, userID)
	if err != nil {
		return err
	}
	if !state.MinimalProfileCompletion {
		return ErrGateDenied
	}
	return nil
}

// OpenGate marks the user eligible. Callers use it from the submit path.
func (g *GateKeeper) OpenGate(ctx context.Context, userID int64) error {
	return g.repo.SetMinimalCompletion(ctx, userID)
}

// OpenGateBySkip opens the gate without a submitted profile, allowed only
// from progression stage skipMinStage onward.
func (g *GateKeeper) OpenGateBySkip(ctx context.Context, userID int64) error {
	state, err := g.repo.GetGateState(ctx, userID)
	if err != nil {
		return err
	}
	if state.ProfileStage < g.skipMinStage {
		return ErrInsufficientProgress
	}
	return g.repo.SetMinimalCompletion(ctx, userID)
}

// CanEditStage returns nil while stage-scoped editing is still open.
// Once the gate flag is set the stage endpoints are permanently closed in
// favor of unconstrained field-level edits.
func (g *GateKeeper) CanEditStage(ctx context.Context, userID int64) error {
	state, err := g.repo.GetGateState(ctx, userID)
	if err != nil {
		return err
	}
	if state.MinimalProfileCompletion {
		return ErrStageAccessDenied
	}
	return nil
}

// AdvanceStage moves the progression pointer forward only.
func (g *GateKeeper) AdvanceStage(ctx context.Context, userID int64, requested int) error {
	if requested < 1 || requested > g.maxStage {
		return ErrInvalidStage
	}

	state, err := g.repo.GetGateState(ctx, userID)
	if err != nil {
		return err
	}
	if state.MinimalProfileCompletion {
		return ErrStageAccessDenied
	}
	if requested <= state.ProfileStage {
		// already there or behind; nothing to do
		return nil
	}

	return g.repo.SetStage(ctx, userID, requested)
}
