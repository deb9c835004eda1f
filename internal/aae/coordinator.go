package aae

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/zephyrcache/pkg/exchange"
)

// ErrAlreadyPaused and ErrNotPaused are the synchronous control-
// operation errors from spec §7: pause-when-paused and
// resume-when-not-paused never crash the coordinator, they are simply
// returned to the caller.
var (
	ErrAlreadyPaused = errors.New("already_paused")
	ErrNotPaused     = errors.New("not_paused")
)

// CoordinatorState is the single process-wide state the coordinator's
// message loop mutates. It is touched only from the loop goroutine.
type CoordinatorState struct {
	Scope      Scope
	BucketList BucketList
	LocalNVal  int
	RemoteNVal int

	Wants      ScheduleWants
	PausedBack *ScheduleWants // non-nil only while paused
	Paused     bool

	Pending       []Allocation
	ScheduleStart time.Time
	SliceCount    int

	Local     Endpoint
	Remote    Endpoint
	QueueName string
}

// NodeInfoFunc resolves this node's current ordinal/count via the
// membership oracle. It is called once per dispatch, so a node join
// or leave is reflected on the very next slice rather than only at
// startup.
type NodeInfoFunc func(ctx context.Context) (NodeInfo, error)

// Clock abstracts "now" and "after" so tests can drive the
// coordinator's loop without waiting on the real wall clock.
type Clock struct {
	Now   func() time.Time
	After func(d time.Duration) <-chan time.Time
}

func RealClock() Clock {
	return Clock{Now: time.Now, After: time.After}
}

// timerDirective is how a mailbox message tells Run whether — and to
// what — it should rearm the coordinator's single timeout. Every
// message in spec §4.5's table either leaves the current timeout
// alone (the zero value) or replaces it outright; there is never more
// than one timeout armed at a time.
type timerDirective struct {
	rearm     bool
	wait      time.Duration
	clearFire bool
}

// Coordinator is the actor from spec §4.5 and §5: one goroutine owns
// CoordinatorState and serializes every mutation through a single
// mailbox. Exchange sends, HTTP calls, and replication enqueues all
// happen off this goroutine — only state mutation is single-threaded.
type Coordinator struct {
	state CoordinatorState

	driver   *Driver
	nodeInfo NodeInfoFunc
	clock    Clock
	rng      *rand.Rand
	log      *zap.Logger

	mailbox chan func() timerDirective
	replyCh chan struct{}

	reqMu   sync.Mutex
	pending map[string]chan exchange.Result
	reqSeq  uint64
}

// NewCoordinator builds a Coordinator around an already-initialized
// state. Call Run to start its message loop.
func NewCoordinator(state CoordinatorState, driver *Driver, nodeInfo NodeInfoFunc, clock Clock, rng *rand.Rand, log *zap.Logger) *Coordinator {
	return &Coordinator{
		state:    state,
		driver:   driver,
		nodeInfo: nodeInfo,
		clock:    clock,
		rng:      rng,
		log:      log,
		mailbox:  make(chan func() timerDirective, 8),
		replyCh:  make(chan struct{}, 8),
		pending:  make(map[string]chan exchange.Result),
	}
}

// Run drives the coordinator's message loop until ctx is canceled.
// INITIAL_TIMEOUT elapses once at startup before the first dispatch,
// letting node boot-time traffic settle (spec §5).
//
// The loop tracks one armed timer plus, once a dispatch has computed a
// wait, the work item that fires when that timer elapses (pendingFire).
// A nil pendingFire means the timer firing should run the idle-timeout
// path (ask the Dispatcher for the next slice); a non-nil pendingFire
// means it should run that slice's work item — the direct-call
// equivalent of the spec's self-scheduled {work_item, kind} mailbox
// message.
func (c *Coordinator) Run(ctx context.Context) {
	timer := c.clock.After(InitialTimeout)
	var pendingFire *WorkItemKind

	for {
		select {
		case <-ctx.Done():
			return

		case fn := <-c.mailbox:
			if d := fn(); d.rearm {
				timer = c.clock.After(d.wait)
				if d.clearFire {
					pendingFire = nil
				}
			}

		case <-c.replyCh:
			timer = c.clock.After(LoopTimeout)
			pendingFire = nil

		case <-timer:
			if pendingFire != nil {
				kind := *pendingFire
				pendingFire = nil
				started := c.doProcessWorkItem(ctx, kind, "", c.clock.Now())
				if started {
					timer = c.clock.After(CrashTimeout)
				} else {
					timer = c.clock.After(LoopTimeout)
				}
				continue
			}
			kind, wait := c.doIdleTimeout(ctx)
			pendingFire = &kind
			timer = c.clock.After(wait)
		}
	}
}

// call enqueues fn on the coordinator's mailbox and blocks until the
// loop goroutine has run it, giving external callers (the control
// API) the actor's strict mailbox ordering against concurrent slice
// fires. Only ever invoked from outside Run's own goroutine.
func (c *Coordinator) call(fn func() timerDirective) {
	done := make(chan struct{})
	c.mailbox <- func() timerDirective {
		d := fn()
		close(done)
		return d
	}
	<-done
}

// doIdleTimeout implements the "timeout (idle)" row of spec §4.5's
// message table: ask the Dispatcher for the next due slice. Always
// called from the loop goroutine itself.
func (c *Coordinator) doIdleTimeout(ctx context.Context) (WorkItemKind, time.Duration) {
	node, err := c.nodeInfo(ctx)
	if err != nil {
		c.log.Warn("membership oracle unavailable, assuming single node", zap.Error(err))
		node = NodeInfo{Ordinal: 1, Count: 1}
	}

	kind, wait, pending, newStart := Dispatch(
		c.state.Pending, c.state.Wants, c.state.ScheduleStart, node, c.state.SliceCount,
		c.clock.Now(), c.rng, c.log,
	)
	c.state.Pending = pending
	c.state.ScheduleStart = newStart
	return kind, wait
}

// doProcessWorkItem hands the Exchange Driver a request off the loop
// goroutine and returns immediately, so Run's select stays free to
// service Pause/Resume/SetSink/etc. while the exchange's HTTP round
// trips (Ping, then the engine's own fetches) are in flight: the
// coordinator itself must never block on network I/O. It optimistically
// reports an exchange as started so the caller arms the crash-timeout
// right away; the background goroutine corrects that to loop-timeout,
// via the mailbox so CoordinatorState is still only ever mutated from
// the loop goroutine, if Drive ends up rejecting or skipping the
// exchange. Always called from the loop goroutine itself.
func (c *Coordinator) doProcessWorkItem(ctx context.Context, kind WorkItemKind, reqID string, now time.Time) bool {
	if kind == NoSync {
		return false
	}

	req := DriveRequest{
		WorkItem:   kind,
		Scope:      c.state.Scope,
		LocalNVal:  c.state.LocalNVal,
		RemoteNVal: c.state.RemoteNVal,
		BucketList: c.state.BucketList,
		Local:      c.state.Local,
		Remote:     c.state.Remote,
		QueueName:  c.state.QueueName,
		ReqID:      reqID,
		Now:        now,
		OnRequesterReply: func(reqID string, result exchange.Result) {
			c.deliverRequesterReply(reqID, result)
		},
		OnReplyComplete: func() {
			select {
			case c.replyCh <- struct{}{}:
			default:
			}
		},
	}

	driver := c.driver
	go func() {
		result := driver.Drive(ctx, req)
		c.mailbox <- func() timerDirective {
			c.state.BucketList = result.BucketList
			if result.Started {
				return timerDirective{}
			}
			return timerDirective{rearm: true, wait: LoopTimeout, clearFire: true}
		}
	}()

	return true
}

func (c *Coordinator) deliverRequesterReply(reqID string, result exchange.Result) {
	c.reqMu.Lock()
	ch, ok := c.pending[reqID]
	if ok {
		delete(c.pending, reqID)
	}
	c.reqMu.Unlock()
	if ok {
		ch <- result
	}
}

// ProcessWorkItem is the async control-API call from spec §6:
// process_workitem(kind, reqId|no_reply, now). It returns immediately;
// when wait is true the returned channel receives the exchange result
// once the exchange started for this call completes, and receives
// nothing when no exchange starts (NoSync, a rejected work item, an
// unreachable cluster); when wait is false it is nil (no_reply). The work item is
// enqueued onto the coordinator's mailbox, so it is serialized against
// concurrent pause/resume/set_* calls and slice fires exactly like any
// other message, and — per spec §4.5's "(kind, reqId, from, now)" row
// — it rearms the timeout to crash-timeout on success or loop-timeout
// otherwise, same as a slice-driven work item would.
func (c *Coordinator) ProcessWorkItem(ctx context.Context, kind WorkItemKind, wait bool, now time.Time) <-chan exchange.Result {
	var resultCh chan exchange.Result
	reqID := ""
	if wait {
		c.reqMu.Lock()
		c.reqSeq++
		reqID = fmt.Sprintf("req-%d", c.reqSeq)
		resultCh = make(chan exchange.Result, 1)
		c.pending[reqID] = resultCh
		c.reqMu.Unlock()
	}

	c.mailbox <- func() timerDirective {
		started := c.doProcessWorkItem(ctx, kind, reqID, now)
		if started {
			return timerDirective{rearm: true, wait: CrashTimeout, clearFire: true}
		}
		return timerDirective{rearm: true, wait: LoopTimeout, clearFire: true}
	}
	return resultCh
}
