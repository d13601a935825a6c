package wssession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/specialistvlad/gridpi/internal/group"
)

// peerMember is a non-root rank connected to the root's collective endpoint.
type peerMember struct {
	rank    int
	size    int
	root    int
	timeout time.Duration
	logger  *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	incoming chan message
	done     chan struct{}

	finalized atomic.Bool
}

// dialRoot connects to the coordinator, retrying with backoff until
// connectTimeout (or ctx) expires, and introduces this rank.
func dialRoot(ctx context.Context, logger *slog.Logger, url string, rank, size, root int, timeout, connectTimeout time.Duration) (*peerMember, error) {
	dialCtx := ctx
	if connectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}

	backoff := 100 * time.Millisecond
	var conn *websocket.Conn
	for attempt := 1; ; attempt++ {
		c, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
		if err == nil {
			conn = c
			break
		}
		logger.Debug("Coordinator not reachable yet.", "url", url, "attempt", attempt, "error", err)
		select {
		case <-dialCtx.Done():
			return nil, fmt.Errorf("rank %d could not reach coordinator %s after %d attempts: %w", rank, url, attempt, err)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 2*time.Second)
	}
	conn.SetReadLimit(readLimit)

	p := &peerMember{
		rank:     rank,
		size:     size,
		root:     root,
		timeout:  timeout,
		logger:   logger,
		conn:     conn,
		incoming: make(chan message, 4),
		done:     make(chan struct{}),
	}
	if err := p.send(message{Type: msgHello, Rank: rank, Size: size, Root: root}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rank %d could not introduce itself to %s: %w", rank, url, err)
	}
	go p.readLoop()
	logger.Info("🔗 Joined worker group", "coordinator", url)
	return p, nil
}

func (p *peerMember) send(msg message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteJSON(msg)
}

// readLoop forwards frames from the root until the connection drops, then
// closes incoming.
func (p *peerMember) readLoop() {
	defer close(p.incoming)
	for {
		var msg message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if !p.finalized.Load() {
				p.logger.Debug("Connection to root closed.", "error", err)
			}
			return
		}
		select {
		case p.incoming <- msg:
		case <-p.done:
			return
		}
	}
}

func (p *peerMember) Rank() int { return p.rank }

func (p *peerMember) Size() int { return p.size }

// Reduce implements group.Group: it sends the contribution and waits for the
// root's acknowledgement. Peers never receive the sum.
func (p *peerMember) Reduce(ctx context.Context, value float64, root int) (float64, bool, error) {
	if p.finalized.Load() {
		return 0, false, group.ErrFinalized
	}
	if root != p.root {
		return 0, false, fmt.Errorf("%w: this group is rooted at rank %d, not %d", group.ErrInvalidRoot, p.root, root)
	}

	parentCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.send(message{Type: msgContribution, Rank: p.rank, Root: root, Value: value}); err != nil {
		return 0, false, fmt.Errorf("rank %d could not send its contribution: %w", p.rank, err)
	}

	for {
		select {
		case msg, ok := <-p.incoming:
			if !ok {
				return 0, false, fmt.Errorf("rank %d lost the connection to the root before the collective completed", p.rank)
			}
			switch msg.Type {
			case msgAck:
				return 0, false, nil
			case msgAbort:
				return 0, false, &group.AbortError{Rank: msg.Rank, Reason: msg.Reason}
			default:
				p.logger.Warn("Ignoring unexpected message from root.", "type", msg.Type)
			}
		case <-ctx.Done():
			if parentCtx.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return 0, false, fmt.Errorf("%w: rank %d got no acknowledgement within %s", group.ErrStalled, p.rank, p.timeout)
			}
			return 0, false, ctx.Err()
		}
	}
}

// Abort implements group.Group by telling the root, which forwards it.
func (p *peerMember) Abort(_ context.Context, cause error) error {
	reason := "unknown failure"
	if cause != nil {
		reason = cause.Error()
	}
	return p.send(message{Type: msgAbort, Rank: p.rank, Reason: reason})
}

// Finalize implements group.Group.
func (p *peerMember) Finalize(context.Context) error {
	if p.finalized.Swap(true) {
		return nil
	}
	close(p.done)
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	return p.conn.Close()
}
