package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

func TestBus_EmitAndUnsubscribe(t *testing.T) {
	var b Bus
	ch := b.Events()

	b.Emit(&core.EntitySynced{Entity: "job", ID: 1})
	require.Len(t, ch, 1)
	ev := (<-ch).(*core.EntitySynced)
	assert.Equal(t, uint(1), ev.ID)

	b.Unsubscribe(ch)
	b.Emit(&core.EntitySynced{Entity: "job", ID: 2})
	assert.Empty(t, ch)
}

func TestBus_FullSubscriberDoesNotBlock(t *testing.T) {
	var b Bus
	ch := b.Events()
	defer b.Unsubscribe(ch)

	for i := 0; i < cap(ch)+10; i++ {
		b.Emit(&core.EntitySynced{Entity: "job", ID: uint(i)})
	}
	assert.Equal(t, cap(ch), len(ch))
}

func TestReconciler_Options(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, DefaultConcurrency, e.rec.Concurrency())

	bus := &Bus{}
	r := New(e.store, e.remote, e.blobs, WithConcurrency(0), WithBus(bus))
	assert.Equal(t, 1, r.Concurrency())
	assert.Same(t, bus, r.Bus())

	r = New(e.store, e.remote, e.blobs, WithConcurrency(10_000), WithLogger(nil))
	assert.Equal(t, 256, r.Concurrency())
}
