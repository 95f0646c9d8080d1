// internal/profile/gate_test.go

package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateRepo keeps gate state in memory
type fakeGateRepo struct {
	states map[int64]*GateState
}

func newFakeGateRepo() *fakeGateRepo {
	return &fakeGateRepo{states: map[int64]*GateState{}}
}

func (f *fakeGateRepo) addUser(id int64, gateOpen bool, stage int) {
	f.states[id] = &GateState{UserID: id, MinimalProfileCompletion: gateOpen, ProfileStage: stage}
}

func (f *fakeGateRepo) GetGateState(ctx context.Context, userID int64) (*GateState, error) {
	state, ok := f.states[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	copied := *state
	return &copied, nil
}

func (f *fakeGateRepo) SetMinimalCompletion(ctx context.Context, userID int64) error {
	state, ok := f.states[userID]
	if !ok {
		return ErrProfileNotFound
	}
	state.MinimalProfileCompletion = true
	return nil
}

func (f *fakeGateRepo) SetStage(ctx context.Context, userID int64, stage int) error {
	state, ok := f.states[userID]
	if !ok {
		return ErrProfileNotFound
	}
	if stage > state.ProfileStage {
		state.ProfileStage = stage
	}
	return nil
}

// The rest of the Repository surface is unused by the GateKeeper.

func (f *fakeGateRepo) CreateProfile(ctx context.Context, userID int64) (*Profile, error) {
	return nil, nil
}

func (f *fakeGateRepo) GetProfileByUserID(ctx context.Context, userID int64) (*Profile, error) {
	return nil, ErrProfileNotFound
}

func (f *fakeGateRepo) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest, dob *time.Time, score scoreFunc) (*Profile, error) {
	return nil, nil
}

func (f *fakeGateRepo) AddPhoto(ctx context.Context, userID int64, url string, score scoreFunc) (*Profile, error) {
	return nil, nil
}

func (f *fakeGateRepo) SetProfilePhoto(ctx context.Context, userID int64, url string, score scoreFunc) (*Profile, error) {
	return nil, nil
}

func newTestGate(repo Repository) *GateKeeper {
	return NewGateKeeper(repo, 3, 5)
}

func TestGateClosedByDefault(t *testing.T) {
	repo := newFakeGateRepo()
	repo.addUser(1, false, 1)
	gate := newTestGate(repo)

	err := gate.CanUseRelationships(context.Background(), 1)
	assert.ErrorIs(t, err, ErrGateDenied)
}

func TestGateOpensOnSubmit(t *testing.T) {
	repo := newFakeGateRepo()
	repo.addUser(1, false, 1)
	gate := newTestGate(repo)

	require.NoError(t, gate.OpenGate(context.Background(), 1))
	assert.NoError(t, gate.CanUseRelationships(context.Background(), 1))

	// reopening is harmless
	require.NoError(t, gate.OpenGate(context.Background(), 1))
	assert.NoError(t, gate.CanUseRelationships(context.Background(), 1))
}

func TestGateSkipRequiresMinStage(t *testing.T) {
	repo := newFakeGateRepo()
	repo.addUser(1, false, 2)
	repo.addUser(2, false, 3)
	gate := newTestGate(repo)

	err := gate.OpenGateBySkip(context.Background(), 1)
	assert.ErrorIs(t, err, ErrInsufficientProgress)
	assert.ErrorIs(t, gate.CanUseRelationships(context.Background(), 1), ErrGateDenied)

	require.NoError(t, gate.OpenGateBySkip(context.Background(), 2))
	assert.NoError(t, gate.CanUseRelationships(context.Background(), 2))
}

func TestGateStageEditingClosesPermanently(t *testing.T) {
	repo := newFakeGateRepo()
	repo.addUser(1, false, 2)
	gate := newTestGate(repo)

	assert.NoError(t, gate.CanEditStage(context.Background(), 1))

	require.NoError(t, gate.OpenGate(context.Background(), 1))

	assert.ErrorIs(t, gate.CanEditStage(context.Background(), 1), ErrStageAccessDenied)
	assert.ErrorIs(t, gate.AdvanceStage(context.Background(), 1, 3), ErrStageAccessDenied)
}

func TestGateAdvanceStageForwardOnly(t *testing.T) {
	repo := newFakeGateRepo()
	repo.addUser(1, false, 2)
	gate := newTestGate(repo)
	ctx := context.Background()

	require.NoError(t, gate.AdvanceStage(ctx, 1, 4))
	state, err := repo.GetGateState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, state.ProfileStage)

	// moving backwards is a no-op, not an error
	require.NoError(t, gate.AdvanceStage(ctx, 1, 2))
	state, err = repo.GetGateState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, state.ProfileStage)
}

func TestGateAdvanceStageBounds(t *testing.T) {
	repo := newFakeGateRepo()
	repo.addUser(1, false, 1)
	gate := newTestGate(repo)
	ctx := context.Background()

	assert.ErrorIs(t, gate.AdvanceStage(ctx, 1, 0), ErrInvalidStage)
	assert.ErrorIs(t, gate.AdvanceStage(ctx, 1, 6), ErrInvalidStage)
	assert.NoError(t, gate.AdvanceStage(ctx, 1, 5))
}

func TestGateUnknownUser(t *testing.T) {
	gate := newTestGate(newFakeGateRepo())

	err := gate.CanUseRelationships(context.Background(), 42)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
