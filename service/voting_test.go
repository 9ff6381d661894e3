package service

import (
	"context"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/nebula-fhevm/fhevm"
	"github.com/vocdoni/nebula-fhevm/protocol"
	"github.com/vocdoni/nebula-fhevm/types"
)

func TestOneHot(t *testing.T) {
	c := qt.New(t)

	v, err := OneHot(3, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []uint64{0, 1, 0})

	for _, tc := range [][2]int{{3, 3}, {3, -1}, {0, 0}} {
		_, err := OneHot(tc[0], tc[1])
		c.Assert(err, qt.ErrorIs, ErrInvalidChoice)
	}
}

func TestCastVoteRoundTrip(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	env := newVotingEnv(c)
	id := env.openMotion(c, 1, "yes", "no", "abstain")

	_, voting := env.voter(c)
	_, err := voting.CastVote(ctx, id, 1)
	c.Assert(err, qt.IsNil)

	results, err := voting.Results(ctx, id, env.curator)
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.DeepEquals, []uint64{0, 1, 0})
}

func TestCastVoteSeveralVoters(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	env := newVotingEnv(c)
	id := env.openMotion(c, 1, "a", "b", "c")

	for _, choice := range []int{1, 2, 1} {
		_, voting := env.voter(c)
		_, err := voting.CastVote(ctx, id, choice)
		c.Assert(err, qt.IsNil)
	}

	curator := NewVoting(env.adapter, env.hub)
	results, err := curator.Results(ctx, id, env.curator)
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.DeepEquals, []uint64{0, 2, 1})

	motions, err := curator.Motions(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(motions, qt.HasLen, 1)
	c.Assert(motions[0].ID, qt.Equals, id)
	c.Assert(motions[0].Curator, qt.Equals, env.curator.Address())
}

func TestCastVoteRejected(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	env := newVotingEnv(c)
	id := env.openMotion(c, 1, "yes", "no")

	_, voting := env.voter(c)

	// checked before anything reaches the relayer
	_, err := voting.CastVote(ctx, id, 2)
	c.Assert(err, qt.ErrorIs, ErrInvalidChoice)
	_, err = voting.CastVote(ctx, id, -1)
	c.Assert(err, qt.ErrorIs, ErrInvalidChoice)
	c.Assert(env.inputProofs.Load(), qt.Equals, int64(0))

	_, err = voting.CastVote(ctx, id, 0)
	c.Assert(err, qt.IsNil)
	_, err = voting.CastVote(ctx, id, 0)
	c.Assert(err, qt.ErrorIs, ErrQuotaExceeded)
	c.Assert(env.inputProofs.Load(), qt.Equals, int64(1))

	used, err := env.hub.QuotaUsedBy(ctx, voting.contracts.AccountAddress(), id)
	c.Assert(err, qt.IsNil)
	c.Assert(used, qt.Equals, uint32(1))
}

func TestCastVoteNotOpen(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	env := newVotingEnv(c)
	now := time.Now()
	id, err := env.hub.CreateMotion(ctx, &types.Motion{
		Title:   "later",
		Choices: []string{"yes", "no"},
		OpenAt:  now.Add(time.Hour),
		CloseAt: now.Add(2 * time.Hour),
	}, 0)
	c.Assert(err, qt.IsNil)

	_, voting := env.voter(c)
	_, err = voting.CastVote(ctx, id, 0)
	c.Assert(err, qt.ErrorIs, ErrMotionNotOpen)
	c.Assert(err, qt.ErrorMatches, ".*pending")

	// the hub enforces the same period with its own clock
	voting.SetClock(func() time.Time { return now.Add(90 * time.Minute) })
	_, err = voting.CastVote(ctx, id, 0)
	c.Assert(err, qt.ErrorMatches, "execution reverted: motion .* is pending")

	env.hub.SetClock(func() time.Time { return now.Add(3 * time.Hour) })
	phase, err := env.hub.MotionPhase(ctx, id)
	c.Assert(err, qt.IsNil)
	c.Assert(phase, qt.Equals, types.MotionClosed)
}

func TestCastIndexVote(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	env := newVotingEnv(c)
	id := env.openMotion(c, 2, "yes", "no")

	_, voting := env.voter(c)
	_, err := voting.CastIndexVote(ctx, id, 1)
	c.Assert(err, qt.IsNil)

	ballots, err := env.hub.IndexBallots(id)
	c.Assert(err, qt.IsNil)
	c.Assert(ballots, qt.HasLen, 1)
	c.Assert(protocol.HandleIndex(ballots[0]), qt.Equals, 0)

	// index ballots stay out of the one-hot tally
	_, err = voting.Results(ctx, id, env.curator)
	c.Assert(err, qt.ErrorIs, ErrNoBallots)
}

func TestSubmitWithForeignProof(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	env := newVotingEnv(c)
	id := env.openMotion(c, 0, "yes", "no")

	alice, _ := env.voter(c)
	bob, _ := env.voter(c)

	// encrypted for alice, submitted by bob
	enc, err := env.adapter.Encrypt(ctx, env.hub.HubAddress(), alice.Address(), []uint64{1, 0},
		env.network.ChainID)
	c.Assert(err, qt.IsNil)
	_, err = env.hub.WithAccount(bob.Address()).SubmitShieldOneHot(ctx, id, enc.Handles, enc.InputProof)
	c.Assert(err, qt.ErrorIs, protocol.ErrInputProofRejected)

	// handles not covered by the proof
	_, err = env.hub.WithAccount(alice.Address()).SubmitShieldOneHot(ctx, id, enc.Handles[:1], enc.InputProof)
	c.Assert(err, qt.ErrorMatches, ".*not attested.*")

	aggregate, err := env.hub.EncryptedAggregationOf(ctx, id)
	c.Assert(err, qt.IsNil)
	c.Assert(aggregate, qt.HasLen, 0)

	_, err = env.hub.WithAccount(alice.Address()).SubmitShieldOneHot(ctx, id, enc.Handles, enc.InputProof)
	c.Assert(err, qt.IsNil)
}

func TestFinalize(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	env := newVotingEnv(c)
	id := env.openMotion(c, 1, "yes", "no", "abstain")

	for _, choice := range []int{0, 0, 2} {
		_, voting := env.voter(c)
		_, err := voting.CastVote(ctx, id, choice)
		c.Assert(err, qt.IsNil)
	}

	// only the curator can publish the snapshot
	_, outsider := env.voter(c)
	_, err := outsider.Finalize(ctx, id, env.curator)
	c.Assert(err, qt.ErrorMatches, ".*only the curator.*")

	curator := NewVoting(env.adapter, env.hub)
	snap, err := curator.Finalize(ctx, id, env.curator)
	c.Assert(err, qt.IsNil)
	c.Assert(snap.MotionID, qt.Equals, id)
	c.Assert(snap.Counts, qt.DeepEquals, []uint32{2, 0, 1})

	handles, err := env.hub.EncryptedAggregationOf(ctx, id)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Split(snap.Proof, ","), qt.HasLen, len(handles))
	c.Assert(strings.HasPrefix(snap.Proof, handles[0].Hex()), qt.IsTrue)

	phase, err := env.hub.MotionPhase(ctx, id)
	c.Assert(err, qt.IsNil)
	c.Assert(phase, qt.Equals, types.MotionFinalized)

	_, err = curator.Finalize(ctx, id, env.curator)
	c.Assert(err, qt.ErrorMatches, ".*already finalized")
}

func TestResultsNoBallots(t *testing.T) {
	c := qt.New(t)
	env := newVotingEnv(c)
	id := env.openMotion(c, 1, "yes", "no")

	_, voting := env.voter(c)
	_, err := voting.Results(context.Background(), id, env.curator)
	c.Assert(err, qt.ErrorIs, ErrNoBallots)

	_, err = voting.Results(context.Background(), id+1, env.curator)
	c.Assert(err, qt.ErrorMatches, ".*unknown motion.*")

	_, err = voting.Results(context.Background(), id, nil)
	c.Assert(err, qt.ErrorIs, fhevm.ErrUserRejectedSignature)
}
