package service

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/nebula-fhevm/storage"
	"github.com/vocdoni/nebula-fhevm/types"
	"go.vocdoni.io/dvote/db/metadb"
)

func TestMotionMonitor(t *testing.T) {
	c := qt.New(t)

	store := storage.New(metadb.NewTest(t))
	env := newVotingEnv(c)

	monitor := NewMotionMonitor(env.hub, store, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.Assert(monitor.Start(ctx), qt.IsNil)
	defer monitor.Stop()
	c.Assert(monitor.Start(ctx), qt.ErrorMatches, "service already running")

	now := time.Now()
	id, err := env.hub.CreateMotion(ctx, &types.Motion{
		Title:   "treasury",
		Choices: []string{"yes", "no"},
		OpenAt:  now,
		CloseAt: now.Add(time.Hour),
	}, 1)
	c.Assert(err, qt.IsNil)

	var stored *types.Motion
	for stored == nil {
		select {
		case <-ctx.Done():
			c.Fatal("motion not stored")
		case <-time.After(50 * time.Millisecond):
		}
		stored, _ = store.Motion(id)
	}
	c.Assert(stored.Title, qt.Equals, "treasury")
	c.Assert(stored.Choices, qt.DeepEquals, []string{"yes", "no"})
	c.Assert(stored.Curator, qt.Equals, env.curator.Address())
	c.Assert(stored.CloseAt.Unix(), qt.Equals, now.Add(time.Hour).Unix())

	monitor.Stop()
	ids, err := store.ListMotions()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.DeepEquals, []uint64{id})

	// a stopped monitor can run again
	c.Assert(monitor.Start(ctx), qt.IsNil)
}

func TestMotionMonitorNoStorage(t *testing.T) {
	c := qt.New(t)
	env := newVotingEnv(c)
	monitor := NewMotionMonitor(env.hub, nil, time.Second)
	c.Assert(monitor.Start(context.Background()), qt.ErrorMatches, "missing storage instance")
}
