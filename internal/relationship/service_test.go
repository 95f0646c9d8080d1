// internal/relationship/service_test.go

package relationship

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangamhq/sangam-backend/internal/profile"
)

// fakeGate opens the relationship gate per user
type fakeGate struct {
	open map[int64]bool
}

func (g *fakeGate) CanUseRelationships(ctx context.Context, userID int64) error {
	if !g.open[userID] {
		return profile.ErrGateDenied
	}
	return nil
}

// sinkEvent records one Emit call
type sinkEvent struct {
	recipientID int64
	eventType   string
	actorID     int64
	payload     map[string]interface{}
}

type recordingSink struct {
	events []sinkEvent
}

func (s *recordingSink) Emit(ctx context.Context, recipientID int64, eventType string, actorID int64, payload map[string]interface{}) {
	s.events = append(s.events, sinkEvent{recipientID, eventType, actorID, payload})
}

func (s *recordingSink) ofType(eventType string) []sinkEvent {
	var out []sinkEvent
	for _, e := range s.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeStore is an in-memory Repository with the same transition semantics
// as the postgres implementation, plus failure injection for the
// atomicity and retry tests.
type fakeStore struct {
	nextID      int64
	interests   map[int64]*Interest
	connections map[string]*Connection
	blocks      map[string]*Block

	acceptFailures []error
	blockFailures  []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		interests:   map[int64]*Interest{},
		connections: map[string]*Connection{},
		blocks:      map[string]*Block{},
	}
}

func pairKey(a, b int64) string {
	lo, hi := orderPair(a, b)
	return fmt.Sprintf("%d:%d", lo, hi)
}

func blockKey(blocker, blocked int64) string {
	return fmt.Sprintf("%d:%d", blocker, blocked)
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) findInterest(from, to int64) *Interest {
	for _, i := range f.interests {
		if i.FromUserID == from && i.ToUserID == to {
			return i
		}
	}
	return nil
}

func (f *fakeStore) CreateInterest(ctx context.Context, fromUserID, toUserID int64, message *string) (*Interest, error) {
	if existing := f.findInterest(fromUserID, toUserID); existing != nil {
		if existing.Status != InterestWithdrawn {
			return nil, ErrDuplicateInterest
		}
		existing.Status = InterestPending
		existing.Message = message
		existing.RespondedAt = nil
		existing.UpdatedAt = time.Now()
		copied := *existing
		return &copied, nil
	}

	interest := &Interest{
		ID:         f.id(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     InterestPending,
		Message:    message,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.interests[interest.ID] = interest
	copied := *interest
	return &copied, nil
}

func (f *fakeStore) GetInterestByID(ctx context.Context, id int64) (*Interest, error) {
	interest, ok := f.interests[id]
	if !ok {
		return nil, ErrInterestNotFound
	}
	copied := *interest
	return &copied, nil
}

func (f *fakeStore) DeclineInterest(ctx context.Context, id int64) (*Interest, error) {
	return f.transition(id, InterestDeclined, true)
}

func (f *fakeStore) WithdrawInterest(ctx context.Context, id int64) (*Interest, error) {
	return f.transition(id, InterestWithdrawn, false)
}

func (f *fakeStore) transition(id int64, to InterestStatus, stampResponded bool) (*Interest, error) {
	interest, ok := f.interests[id]
	if !ok || interest.Status != InterestPending {
		return nil, ErrInterestNotPending
	}
	interest.Status = to
	if stampResponded {
		now := time.Now()
		interest.RespondedAt = &now
	}
	interest.UpdatedAt = time.Now()
	copied := *interest
	return &copied, nil
}

func (f *fakeStore) AcceptInterest(ctx context.Context, interest *Interest) (*Interest, *Connection, error) {
	if len(f.acceptFailures) > 0 {
		err := f.acceptFailures[0]
		f.acceptFailures = f.acceptFailures[1:]
		return nil, nil, err
	}

	stored, ok := f.interests[interest.ID]
	if !ok || stored.Status != InterestPending {
		return nil, nil, ErrInterestNotPending
	}

	now := time.Now()
	stored.Status = InterestAccepted
	stored.RespondedAt = &now
	stored.UpdatedAt = now

	key := pairKey(interest.FromUserID, interest.ToUserID)
	connection, exists := f.connections[key]
	if exists {
		connection.Status = ConnectionActive
		connection.InterestID = &stored.ID
		connection.EndedAt = nil
		connection.UpdatedAt = now
	} else {
		user1, user2 := orderPair(interest.FromUserID, interest.ToUserID)
		connection = &Connection{
			ID:         f.id(),
			User1ID:    user1,
			User2ID:    user2,
			InterestID: &stored.ID,
			Status:     ConnectionActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		f.connections[key] = connection
	}

	acceptedCopy := *stored
	connectionCopy := *connection
	return &acceptedCopy, &connectionCopy, nil
}

func (f *fakeStore) ListInterests(ctx context.Context, userID int64, box string) ([]*Interest, error) {
	var out []*Interest
	for _, i := range f.interests {
		switch box {
		case BoxSent:
			if i.FromUserID == userID {
				copied := *i
				out = append(out, &copied)
			}
		case BoxReceived:
			if i.ToUserID == userID && i.Status != InterestWithdrawn {
				copied := *i
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetConnectionByPair(ctx context.Context, userA, userB int64) (*Connection, error) {
	connection, ok := f.connections[pairKey(userA, userB)]
	if !ok {
		return nil, nil
	}
	copied := *connection
	return &copied, nil
}

func (f *fakeStore) ListConnections(ctx context.Context, userID int64) ([]*Connection, error) {
	var out []*Connection
	for _, c := range f.connections {
		if (c.User1ID == userID || c.User2ID == userID) && c.Status == ConnectionActive {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) IsBlockedPair(ctx context.Context, userA, userB int64) (bool, error) {
	_, forward := f.blocks[blockKey(userA, userB)]
	_, reverse := f.blocks[blockKey(userB, userA)]
	return forward || reverse, nil
}

func (f *fakeStore) CreateBlockCascade(ctx context.Context, blockerID, blockedID int64, reason *string) (*Block, error) {
	if len(f.blockFailures) > 0 {
		err := f.blockFailures[0]
		f.blockFailures = f.blockFailures[1:]
		return nil, err
	}

	key := blockKey(blockerID, blockedID)
	if _, exists := f.blocks[key]; exists {
		return nil, ErrAlreadyBlocked
	}

	block := &Block{
		ID:        f.id(),
		BlockerID: blockerID,
		BlockedID: blockedID,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	f.blocks[key] = block

	now := time.Now()
	if connection, ok := f.connections[pairKey(blockerID, blockedID)]; ok && connection.Status == ConnectionActive {
		connection.Status = ConnectionEnded
		connection.EndedAt = &now
		connection.UpdatedAt = now
	}
	for _, i := range f.interests {
		sameDirection := i.FromUserID == blockerID && i.ToUserID == blockedID
		reverseDirection := i.FromUserID == blockedID && i.ToUserID == blockerID
		if (sameDirection || reverseDirection) && i.Status == InterestPending {
			i.Status = InterestWithdrawn
			i.UpdatedAt = now
		}
	}

	copied := *block
	return &copied, nil
}

func (f *fakeStore) DeleteBlock(ctx context.Context, blockerID, blockedID int64) error {
	key := blockKey(blockerID, blockedID)
	if _, exists := f.blocks[key]; !exists {
		return ErrBlockNotFound
	}
	delete(f.blocks, key)
	return nil
}

func (f *fakeStore) ListBlocks(ctx context.Context, blockerID int64) ([]*Block, error) {
	var out []*Block
	for _, b := range f.blocks {
		if b.BlockerID == blockerID {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func newTestService(openUsers ...int64) (Service, *fakeStore, *recordingSink) {
	store := newFakeStore()
	gate := &fakeGate{open: map[int64]bool{}}
	for _, id := range openUsers {
		gate.open[id] = true
	}
	sink := &recordingSink{}
	return NewService(store, gate, sink), store, sink
}

func sendPending(t *testing.T, svc Service, from, to int64) *Interest {
	t.Helper()
	interest, err := svc.SendInterest(context.Background(), from, &SendInterestRequest{ToUserID: to})
	require.NoError(t, err)
	require.Equal(t, InterestPending, interest.Status)
	return interest
}

// Interest workflow

func TestSendInterestGateClosed(t *testing.T) {
	svc, _, sink := newTestService(2) // user 1 not eligible

	_, err := svc.SendInterest(context.Background(), 1, &SendInterestRequest{ToUserID: 2})

	assert.ErrorIs(t, err, profile.ErrGateDenied)
	assert.Empty(t, sink.events)
}

func TestSendInterestToSelf(t *testing.T) {
	svc, _, _ := newTestService(1)

	_, err := svc.SendInterest(context.Background(), 1, &SendInterestRequest{ToUserID: 1})
	assert.ErrorIs(t, err, ErrSelfInterest)
}

func TestSendInterestBlockedEitherDirection(t *testing.T) {
	svc, store, _ := newTestService(1, 2, 3)
	ctx := context.Background()

	// 2 blocked 1: neither side can send
	_, err := store.CreateBlockCascade(ctx, 2, 1, nil)
	require.NoError(t, err)

	_, err = svc.SendInterest(ctx, 1, &SendInterestRequest{ToUserID: 2})
	assert.ErrorIs(t, err, ErrBlockedPair)

	_, err = svc.SendInterest(ctx, 2, &SendInterestRequest{ToUserID: 1})
	assert.ErrorIs(t, err, ErrBlockedPair)

	// unrelated pair unaffected
	_, err = svc.SendInterest(ctx, 1, &SendInterestRequest{ToUserID: 3})
	assert.NoError(t, err)
}

func TestSendInterestDuplicate(t *testing.T) {
	svc, _, _ := newTestService(1, 2)
	ctx := context.Background()

	sendPending(t, svc, 1, 2)

	_, err := svc.SendInterest(ctx, 1, &SendInterestRequest{ToUserID: 2})
	assert.ErrorIs(t, err, ErrDuplicateInterest)
}

func TestSendInterestEmitsToRecipient(t *testing.T) {
	svc, _, sink := newTestService(1, 2)

	interest := sendPending(t, svc, 1, 2)

	events := sink.ofType(EventInterestReceived)
	require.Len(t, events, 1)
	assert.Equal(t, int64(2), events[0].recipientID)
	assert.Equal(t, int64(1), events[0].actorID)
	assert.Equal(t, interest.ID, events[0].payload["interest_id"])
}

// Scenario: send, accept, connection established, sender notified.
func TestAcceptInterestEstablishesConnection(t *testing.T) {
	svc, _, sink := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)

	accepted, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "accept"})
	require.NoError(t, err)
	assert.Equal(t, InterestAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	connections, err := svc.GetConnections(ctx, 1)
	require.NoError(t, err)
	require.Len(t, connections, 1)
	assert.Equal(t, ConnectionActive, connections[0].Status)
	assert.Equal(t, int64(1), connections[0].User1ID)
	assert.Equal(t, int64(2), connections[0].User2ID)

	events := sink.ofType(EventConnectionAccepted)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].recipientID)
	assert.Equal(t, int64(2), events[0].actorID)
}

func TestRespondOnlyRecipient(t *testing.T) {
	svc, _, _ := newTestService(1, 2, 3)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)

	_, err := svc.RespondToInterest(ctx, 3, interest.ID, &RespondInterestRequest{Action: "accept"})
	assert.ErrorIs(t, err, ErrNotInterestRecipient)

	// the sender cannot answer their own interest either
	_, err = svc.RespondToInterest(ctx, 1, interest.ID, &RespondInterestRequest{Action: "accept"})
	assert.ErrorIs(t, err, ErrNotInterestRecipient)
}

func TestRespondTwiceRejected(t *testing.T) {
	svc, _, _ := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)

	_, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "accept"})
	require.NoError(t, err)

	_, err = svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "decline"})
	assert.ErrorIs(t, err, ErrInterestNotPending)
}

func TestDeclineEmitsNothing(t *testing.T) {
	svc, _, sink := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)

	declined, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "decline"})
	require.NoError(t, err)
	assert.Equal(t, InterestDeclined, declined.Status)
	assert.NotNil(t, declined.RespondedAt)

	assert.Empty(t, sink.ofType(EventConnectionAccepted))

	connections, err := svc.GetConnections(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, connections)
}

func TestRespondUnknownInterest(t *testing.T) {
	svc, _, _ := newTestService(1)

	_, err := svc.RespondToInterest(context.Background(), 1, 999, &RespondInterestRequest{Action: "accept"})
	assert.ErrorIs(t, err, ErrInterestNotFound)
}

// Scenario: withdraw, then resend the same direction. The withdrawn row is
// revived instead of duplicated.
func TestWithdrawThenResend(t *testing.T) {
	svc, store, _ := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)

	withdrawn, err := svc.WithdrawInterest(ctx, 1, interest.ID)
	require.NoError(t, err)
	assert.Equal(t, InterestWithdrawn, withdrawn.Status)

	// withdrawn interests disappear from the recipient's box
	received, err := svc.GetInterests(ctx, 2, BoxReceived)
	require.NoError(t, err)
	assert.Empty(t, received)

	resent, err := svc.SendInterest(ctx, 1, &SendInterestRequest{ToUserID: 2})
	require.NoError(t, err)
	assert.Equal(t, interest.ID, resent.ID)
	assert.Equal(t, InterestPending, resent.Status)
	assert.Nil(t, resent.RespondedAt)

	assert.Len(t, store.interests, 1)
}

func TestWithdrawOnlySender(t *testing.T) {
	svc, _, _ := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)

	_, err := svc.WithdrawInterest(ctx, 2, interest.ID)
	assert.ErrorIs(t, err, ErrNotInterestSender)
}

func TestWithdrawNonPending(t *testing.T) {
	svc, _, _ := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)
	_, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "accept"})
	require.NoError(t, err)

	_, err = svc.WithdrawInterest(ctx, 1, interest.ID)
	assert.ErrorIs(t, err, ErrInterestNotPending)
}

func TestSendWhileConnected(t *testing.T) {
	svc, _, _ := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)
	_, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "accept"})
	require.NoError(t, err)

	_, err = svc.SendInterest(ctx, 2, &SendInterestRequest{ToUserID: 1})
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

// A failed acceptance transaction leaves the interest pending, the
// connection absent, and no event emitted.
func TestAcceptAtomicOnFailure(t *testing.T) {
	svc, store, sink := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)
	store.acceptFailures = []error{fmt.Errorf("connection reset")}

	_, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "accept"})
	require.Error(t, err)

	stored, err := svc.GetInterests(ctx, 2, BoxReceived)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, InterestPending, stored[0].Status)

	connections, err := svc.GetConnections(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, connections)
	assert.Empty(t, sink.ofType(EventConnectionAccepted))
}

// A serialization failure is retried once; the second attempt succeeds and
// the event is emitted exactly once.
func TestAcceptRetriesTransientFailure(t *testing.T) {
	svc, store, sink := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)
	store.acceptFailures = []error{&pq.Error{Code: "40001"}}

	accepted, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "accept"})
	require.NoError(t, err)
	assert.Equal(t, InterestAccepted, accepted.Status)
	assert.Len(t, sink.ofType(EventConnectionAccepted), 1)
}

func TestAcceptGivesUpAfterSecondTransientFailure(t *testing.T) {
	svc, store, sink := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)
	store.acceptFailures = []error{&pq.Error{Code: "40P01"}, &pq.Error{Code: "40001"}}

	_, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "accept"})
	require.Error(t, err)
	assert.True(t, IsTransientError(err))
	assert.Empty(t, sink.ofType(EventConnectionAccepted))
}

// Block workflow

// Scenario: a connected pair with a pending interest elsewhere; blocking
// ends the connection and withdraws the pending interests, atomically.
func TestBlockCascade(t *testing.T) {
	svc, _, sink := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)
	_, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "accept"})
	require.NoError(t, err)

	block, err := svc.BlockUser(ctx, 1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), block.BlockerID)
	assert.Equal(t, int64(2), block.BlockedID)

	connections, err := svc.GetConnections(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, connections)

	connections, err = svc.GetConnections(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, connections)

	// audit event to the blocker only; the blocked party learns nothing
	events := sink.ofType(EventUserBlocked)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].recipientID)
	assert.Equal(t, int64(2), events[0].actorID)
}

func TestBlockWithdrawsPendingInterestsBothDirections(t *testing.T) {
	svc, store, _ := newTestService(1, 2)
	ctx := context.Background()

	sent := sendPending(t, svc, 1, 2)
	reverse, err := store.CreateInterest(ctx, 2, 1, nil)
	require.NoError(t, err)

	_, err = svc.BlockUser(ctx, 2, 1, nil)
	require.NoError(t, err)

	for _, id := range []int64{sent.ID, reverse.ID} {
		stored, err := store.GetInterestByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, InterestWithdrawn, stored.Status)
	}
}

func TestBlockGateClosed(t *testing.T) {
	svc, store, sink := newTestService(2) // user 1 has not finished onboarding

	_, err := svc.BlockUser(context.Background(), 1, 2, nil)

	assert.ErrorIs(t, err, profile.ErrGateDenied)
	assert.Empty(t, store.blocks)
	assert.Empty(t, sink.events)
}

func TestBlockSelf(t *testing.T) {
	svc, _, _ := newTestService(1)

	_, err := svc.BlockUser(context.Background(), 1, 1, nil)
	assert.ErrorIs(t, err, ErrSelfBlock)
}

func TestBlockTwice(t *testing.T) {
	svc, _, _ := newTestService(1, 2)
	ctx := context.Background()

	_, err := svc.BlockUser(ctx, 1, 2, nil)
	require.NoError(t, err)

	_, err = svc.BlockUser(ctx, 1, 2, nil)
	assert.ErrorIs(t, err, ErrAlreadyBlocked)
}

func TestBlockRetriesTransientFailure(t *testing.T) {
	svc, store, sink := newTestService(1, 2)
	ctx := context.Background()

	store.blockFailures = []error{&pq.Error{Code: "40001"}}

	_, err := svc.BlockUser(ctx, 1, 2, nil)
	require.NoError(t, err)
	assert.Len(t, sink.ofType(EventUserBlocked), 1)
}

// Unblocking removes the block record and nothing else: the ended
// connection and withdrawn interests stay as they are.
func TestUnblockRestoresNothing(t *testing.T) {
	svc, store, _ := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)
	_, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "accept"})
	require.NoError(t, err)

	_, err = svc.BlockUser(ctx, 1, 2, nil)
	require.NoError(t, err)

	require.NoError(t, svc.UnblockUser(ctx, 1, 2))

	blocked, err := store.IsBlockedPair(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, blocked)

	connections, err := svc.GetConnections(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, connections)
}

func TestUnblockNotFound(t *testing.T) {
	svc, _, _ := newTestService(1, 2)

	err := svc.UnblockUser(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

// After unblocking, a fresh interest revives the withdrawn row and its
// acceptance revives the pair's single connection row rather than creating
// a second one.
func TestReconnectAfterUnblockKeepsOneConnection(t *testing.T) {
	svc, store, _ := newTestService(1, 2)
	ctx := context.Background()

	interest := sendPending(t, svc, 1, 2)
	_, err := svc.RespondToInterest(ctx, 2, interest.ID, &RespondInterestRequest{Action: "accept"})
	require.NoError(t, err)

	_, err = svc.BlockUser(ctx, 1, 2, nil)
	require.NoError(t, err)
	require.NoError(t, svc.UnblockUser(ctx, 1, 2))

	// accepted rows do not revive; the other side expresses interest anew
	fresh, err := svc.SendInterest(ctx, 2, &SendInterestRequest{ToUserID: 1})
	require.NoError(t, err)

	_, err = svc.RespondToInterest(ctx, 1, fresh.ID, &RespondInterestRequest{Action: "accept"})
	require.NoError(t, err)

	assert.Len(t, store.connections, 1)
	connections, err := svc.GetConnections(ctx, 1)
	require.NoError(t, err)
	require.Len(t, connections, 1)
	assert.Equal(t, ConnectionActive, connections[0].Status)
}
