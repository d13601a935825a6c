package localsession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/gridpi/internal/group"
)

// edge identifies the channel a child uses to send its subtree sum to its
// parent in the tree rooted at root.
type edge struct {
	from, to, root int
}

// world is the shared state of an in-process group: the per-edge mailboxes
// and the abort signal. Ranks share no other memory.
type world struct {
	size    int
	timeout time.Duration

	mu    sync.Mutex
	links map[edge]chan float64

	abortOnce sync.Once
	aborted   chan struct{}
	abortErr  error
}

func newWorld(size int, timeout time.Duration) *world {
	return &world{
		size:    size,
		timeout: timeout,
		links:   make(map[edge]chan float64),
		aborted: make(chan struct{}),
	}
}

// link returns the mailbox for e, creating it on first use. The buffer of one
// lets a child hand off its sum without waiting for the parent.
func (w *world) link(e edge) chan float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch, ok := w.links[e]
	if !ok {
		ch = make(chan float64, 1)
		w.links[e] = ch
	}
	return ch
}

func (w *world) abort(err error) {
	w.abortOnce.Do(func() {
		w.abortErr = err
		close(w.aborted)
	})
}

// treePosition places rank in a binary tree (heap layout) rooted at root and
// returns its parent (-1 for the root) and children.
func treePosition(rank, root, size int) (parent int, children []int) {
	rel := (rank - root + size) % size
	parent = -1
	if rel > 0 {
		parent = ((rel-1)/2 + root) % size
	}
	for _, c := range []int{2*rel + 1, 2*rel + 2} {
		if c < size {
			children = append(children, (c+root)%size)
		}
	}
	return parent, children
}

// member is one rank's handle on the world.
type member struct {
	world     *world
	rank      int
	finalized atomic.Bool
}

func (m *member) Rank() int { return m.rank }

func (m *member) Size() int { return m.world.size }

// Reduce implements group.Group with a tree reduction: each rank adds its
// children's subtree sums (in child order) to its own value and passes the
// result to its parent.
func (m *member) Reduce(ctx context.Context, value float64, root int) (float64, bool, error) {
	if m.finalized.Load() {
		return 0, false, group.ErrFinalized
	}
	if err := group.CheckRoot(root, m.world.size); err != nil {
		return 0, false, err
	}
	select {
	case <-m.world.aborted:
		return 0, false, m.world.abortErr
	default:
	}

	parentCtx := ctx
	if m.world.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.world.timeout)
		defer cancel()
	}

	parent, children := treePosition(m.rank, root, m.world.size)

	total := value
	for _, child := range children {
		select {
		case v := <-m.world.link(edge{from: child, to: m.rank, root: root}):
			total += v
		case <-m.world.aborted:
			return 0, false, m.world.abortErr
		case <-ctx.Done():
			return 0, false, m.waitError(parentCtx, ctx, fmt.Sprintf("waiting for rank %d", child))
		}
	}

	if parent < 0 {
		return total, true, nil
	}

	select {
	case m.world.link(edge{from: m.rank, to: parent, root: root}) <- total:
		return 0, false, nil
	case <-m.world.aborted:
		return 0, false, m.world.abortErr
	case <-ctx.Done():
		return 0, false, m.waitError(parentCtx, ctx, fmt.Sprintf("sending to rank %d", parent))
	}
}

// waitError tells a configured collective timeout apart from the caller
// cancelling.
func (m *member) waitError(parentCtx, ctx context.Context, what string) error {
	if parentCtx.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: rank %d gave up after %s %s", group.ErrStalled, m.rank, m.world.timeout, what)
	}
	return ctx.Err()
}

// Abort implements group.Group. Only the first abort in the world is kept.
func (m *member) Abort(_ context.Context, cause error) error {
	reason := "unknown failure"
	if cause != nil {
		reason = cause.Error()
	}
	m.world.abort(&group.AbortError{Rank: m.rank, Reason: reason})
	return nil
}

// Finalize implements group.Group.
func (m *member) Finalize(context.Context) error {
	m.finalized.Store(true)
	return nil
}
