package wssession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/specialistvlad/gridpi/internal/group"
	"github.com/specialistvlad/gridpi/internal/reduce"
)

// contribution is a peer's value as handed from its connection handler to
// the root's Reduce.
type contribution struct {
	rank  int
	root  int
	value float64
}

// peerConn serializes writes to one peer's connection; gorilla/websocket
// allows one concurrent writer.
type peerConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (p *peerConn) send(msg message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteJSON(msg)
}

// rootMember is the root rank. It serves CollectivePath and sums the
// contributions of every other rank.
type rootMember struct {
	rank    int
	size    int
	timeout time.Duration
	logger  *slog.Logger

	upgrader websocket.Upgrader
	ln       net.Listener
	srv      *http.Server

	inbox chan contribution

	mu          sync.Mutex
	peers       map[int]*peerConn
	contributed map[int]bool

	abortOnce sync.Once
	aborted   chan struct{}
	abortErr  error

	finalized atomic.Bool
	// done is closed by Finalize and releases handlers blocked on inbox.
	done chan struct{}
}

func newRoot(logger *slog.Logger, rank, size int, timeout time.Duration, ln net.Listener) *rootMember {
	r := &rootMember{
		rank:    rank,
		size:    size,
		timeout: timeout,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Ranks are not browsers; any origin may join.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ln:          ln,
		inbox:       make(chan contribution, size),
		peers:       make(map[int]*peerConn),
		contributed: make(map[int]bool),
		aborted:     make(chan struct{}),
		done:        make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CollectivePath, r.serveCollective)
	r.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return r
}

// serve runs the HTTP server until shutdown.
func (r *rootMember) serve() {
	r.logger.Info("📡 Collective endpoint listening", "address", fmt.Sprintf("ws://%s%s", r.ln.Addr(), CollectivePath))
	if err := r.srv.Serve(r.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		r.logger.Error("Collective endpoint failed unexpectedly", "error", err)
		r.abort(&group.AbortError{Rank: r.rank, Reason: fmt.Sprintf("collective endpoint failed: %v", err)})
	}
}

func (r *rootMember) serveCollective(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("Rejected collective connection.", "remote_addr", req.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(readLimit)
	pc := &peerConn{conn: conn}

	var hello message
	if err := conn.ReadJSON(&hello); err != nil {
		r.logger.Warn("Peer disconnected before saying hello.", "remote_addr", req.RemoteAddr, "error", err)
		return
	}
	if err := r.register(hello, pc); err != nil {
		r.logger.Warn("Refusing peer.", "remote_addr", req.RemoteAddr, "error", err)
		_ = pc.send(message{Type: msgAbort, Rank: r.rank, Reason: err.Error()})
		return
	}
	defer r.unregister(hello.Rank, pc)
	logger := r.logger.With("peer_rank", hello.Rank)
	logger.Debug("Peer joined the group.", "remote_addr", req.RemoteAddr)

	// A late joiner may have missed the abort broadcast.
	select {
	case <-r.aborted:
		if abortErr, ok := r.abortErr.(*group.AbortError); ok && abortErr.Rank != hello.Rank {
			_ = pc.send(message{Type: msgAbort, Rank: abortErr.Rank, Reason: abortErr.Reason})
		}
	default:
	}

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			if !r.hasContributed(hello.Rank) && !r.finalized.Load() {
				logger.Warn("Peer left before contributing.", "error", err)
				r.abort(&group.AbortError{Rank: hello.Rank, Reason: "connection lost before contributing"})
			}
			return
		}
		switch msg.Type {
		case msgContribution:
			r.markContributed(hello.Rank)
			select {
			case r.inbox <- contribution{rank: hello.Rank, root: msg.Root, value: msg.Value}:
			case <-r.aborted:
			case <-r.done:
				return
			}
		case msgAbort:
			logger.Warn("Peer aborted the collective.", "reason", msg.Reason)
			r.abort(&group.AbortError{Rank: hello.Rank, Reason: msg.Reason})
		default:
			logger.Warn("Ignoring unexpected message from peer.", "type", msg.Type)
		}
	}
}

func (r *rootMember) register(hello message, pc *peerConn) error {
	if hello.Type != msgHello {
		return fmt.Errorf("expected hello, got %q", hello.Type)
	}
	if hello.Size != r.size {
		return fmt.Errorf("group size mismatch: peer says %d, root has %d", hello.Size, r.size)
	}
	if hello.Rank < 0 || hello.Rank >= r.size || hello.Rank == r.rank {
		return fmt.Errorf("rank %d is not a peer rank of a %d-worker group rooted at %d", hello.Rank, r.size, r.rank)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.peers[hello.Rank]; dup {
		return fmt.Errorf("rank %d already joined", hello.Rank)
	}
	r.peers[hello.Rank] = pc
	return nil
}

func (r *rootMember) unregister(rank int, pc *peerConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.peers[rank] == pc {
		delete(r.peers, rank)
	}
}

func (r *rootMember) markContributed(rank int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contributed[rank] = true
}

func (r *rootMember) hasContributed(rank int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contributed[rank]
}

func (r *rootMember) connectedPeers() map[int]*peerConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	peers := make(map[int]*peerConn, len(r.peers))
	for rank, pc := range r.peers {
		peers[rank] = pc
	}
	return peers
}

// abort records the first abort and forwards it to every connected peer.
func (r *rootMember) abort(err *group.AbortError) {
	r.abortOnce.Do(func() {
		r.abortErr = err
		close(r.aborted)
		for rank, pc := range r.connectedPeers() {
			if rank == err.Rank {
				continue
			}
			if sendErr := pc.send(message{Type: msgAbort, Rank: err.Rank, Reason: err.Reason}); sendErr != nil {
				r.logger.Debug("Could not forward abort to peer.", "peer_rank", rank, "error", sendErr)
			}
		}
	})
}

func (r *rootMember) Rank() int { return r.rank }

func (r *rootMember) Size() int { return r.size }

// Reduce implements group.Group. Contributions are summed in rank order once
// all of them arrived; each peer is then acknowledged.
func (r *rootMember) Reduce(ctx context.Context, value float64, root int) (float64, bool, error) {
	if r.finalized.Load() {
		return 0, false, group.ErrFinalized
	}
	if root != r.rank {
		return 0, false, fmt.Errorf("%w: this group is rooted at rank %d, not %d", group.ErrInvalidRoot, r.rank, root)
	}
	select {
	case <-r.aborted:
		return 0, false, r.abortErr
	default:
	}

	parentCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	values := make([]float64, r.size)
	have := make([]bool, r.size)
	values[r.rank], have[r.rank] = value, true

	for remaining := r.size - 1; remaining > 0; {
		select {
		case c := <-r.inbox:
			if have[c.rank] {
				r.logger.Warn("Ignoring duplicate contribution.", "peer_rank", c.rank)
				continue
			}
			if c.root != r.rank {
				err := &group.AbortError{Rank: c.rank, Reason: fmt.Sprintf("contributed to root %d, group is rooted at %d", c.root, r.rank)}
				r.abort(err)
				return 0, false, err
			}
			values[c.rank], have[c.rank] = c.value, true
			remaining--
		case <-r.aborted:
			return 0, false, r.abortErr
		case <-r.done:
			return 0, false, group.ErrFinalized
		case <-ctx.Done():
			err := r.waitError(parentCtx, ctx, have)
			r.abort(&group.AbortError{Rank: r.rank, Reason: err.Error()})
			return 0, false, err
		}
	}

	for rank, pc := range r.connectedPeers() {
		if err := pc.send(message{Type: msgAck, Rank: r.rank, Root: r.rank}); err != nil {
			r.logger.Warn("Could not acknowledge contribution.", "peer_rank", rank, "error", err)
		}
	}
	return reduce.Local(values), true, nil
}

func (r *rootMember) waitError(parentCtx, ctx context.Context, have []bool) error {
	var missing []int
	for rank, ok := range have {
		if !ok {
			missing = append(missing, rank)
		}
	}
	if parentCtx.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: root gave up after %s waiting for ranks %v", group.ErrStalled, r.timeout, missing)
	}
	return fmt.Errorf("root stopped waiting for ranks %v: %w", missing, ctx.Err())
}

// Abort implements group.Group.
func (r *rootMember) Abort(_ context.Context, cause error) error {
	reason := "unknown failure"
	if cause != nil {
		reason = cause.Error()
	}
	r.abort(&group.AbortError{Rank: r.rank, Reason: reason})
	return nil
}

// Finalize implements group.Group: it stops the endpoint and drops every
// peer connection.
func (r *rootMember) Finalize(ctx context.Context) error {
	if r.finalized.Swap(true) {
		return nil
	}
	close(r.done)
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := r.srv.Shutdown(shutdownCtx)
	// Hijacked websocket connections are not closed by Shutdown.
	for _, pc := range r.connectedPeers() {
		_ = pc.conn.Close()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}
