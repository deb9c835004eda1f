package aae

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/zephyrcache/internal/telemetry"
	"github.com/ryandielhenn/zephyrcache/pkg/aaeclient"
	"github.com/ryandielhenn/zephyrcache/pkg/exchange"
	"github.com/ryandielhenn/zephyrcache/pkg/replrtq"
)

const hashMethodPreHash = "preHash"

// OpenClientFunc opens an aaeclient.Client against an endpoint. The
// coordinator opens one per exchange per side and discards it when
// the exchange completes (spec §5: HTTP clients are not pooled).
type OpenClientFunc func(ctx context.Context, endpoint Endpoint) (aaeclient.Client, error)

// Driver constructs the filter/n-val/ref for a work item, opens both
// cluster clients, and starts one exchange with the repair decider and
// reply notification wired as callbacks.
type Driver struct {
	Engine     exchange.Engine
	OpenClient OpenClientFunc
	Queue      replrtq.Queue
	Log        *zap.Logger
}

// DriveRequest is everything the driver needs to start one exchange.
type DriveRequest struct {
	WorkItem   WorkItemKind
	Scope      Scope
	LocalNVal  int
	RemoteNVal int
	BucketList BucketList
	Local      Endpoint
	Remote     Endpoint
	QueueName  string
	ReqID      string
	Now        time.Time

	// OnRequesterReply, if ReqID != "", forwards the final result to
	// whoever asked for this exchange via process_workitem.
	OnRequesterReply func(reqID string, result exchange.Result)
	// OnReplyComplete notifies the coordinator mailbox that the
	// exchange finished, dropping it back to LoopTimeout.
	OnReplyComplete func()
}

// DriveResult reports what the driver actually did, so the coordinator
// knows which timeout to arm next.
type DriveResult struct {
	Started    bool
	Rejected   bool
	ExchangeID exchange.ID
	BucketList BucketList // possibly rotated
}

// Drive starts one AAE exchange for req, or explains why it didn't.
func (d *Driver) Drive(ctx context.Context, req DriveRequest) DriveResult {
	if req.WorkItem == NoSync {
		return DriveResult{BucketList: req.BucketList}
	}

	if req.Scope == ScopeAll && (req.WorkItem == HourSync || req.WorkItem == DaySync) {
		d.Log.Warn("rejecting work item invalid under scope all",
			zap.Stringer("work_item", req.WorkItem))
		return DriveResult{Rejected: true, BucketList: req.BucketList}
	}

	startOpts, bucketList, err := d.buildStartOptions(req)
	if err != nil {
		d.Log.Warn("rejecting work item", zap.Error(err), zap.Stringer("work_item", req.WorkItem))
		return DriveResult{Rejected: true, BucketList: req.BucketList}
	}

	remoteClient, err := d.OpenClient(ctx, req.Remote)
	if err != nil || remoteClient.Ping(ctx) != nil {
		d.Log.Warn("remote cluster unreachable, skipping exchange",
			zap.Stringer("endpoint", req.Remote), zap.Error(err))
		telemetry.AAERemoteUnreachable.Inc()
		return DriveResult{BucketList: bucketList}
	}

	localClient, err := d.OpenClient(ctx, req.Local)
	if err != nil || localClient.Ping(ctx) != nil {
		d.Log.Warn("local cluster unreachable, skipping exchange",
			zap.Stringer("endpoint", req.Local), zap.Error(err))
		telemetry.AAERemoteUnreachable.Inc()
		return DriveResult{BucketList: bucketList}
	}

	startOpts.Source = aaeclient.NewSendFun(localClient, startOpts.LocalNVal)
	startOpts.Sink = aaeclient.NewSendFun(remoteClient, startOpts.RemoteNVal)
	startOpts.OnRepair = repairCallback{queue: d.Queue, queueName: req.QueueName, log: d.Log}
	startOpts.OnReply = replyCallback{reqID: req.ReqID, onRequesterReply: req.OnRequesterReply, onReplyComplete: req.OnReplyComplete}

	id, err := d.Engine.Start(ctx, startOpts)
	if err != nil {
		d.Log.Warn("exchange engine failed to start", zap.Error(err))
		return DriveResult{BucketList: bucketList}
	}

	d.Log.Info("exchange started",
		zap.String("exchange_id", string(id)),
		zap.Stringer("work_item", req.WorkItem),
		zap.String("ref", string(startOpts.Ref)))
	telemetry.AAEExchangesStarted.WithLabelValues(req.WorkItem.String()).Inc()

	return DriveResult{Started: true, ExchangeID: id, BucketList: bucketList}
}

// buildStartOptions derives LocalNVal/RemoteNVal/Filter/Ref from scope
// x work-item, per spec §4.3's table, and rotates the bucket list for
// every bucket-scoped work item.
func (d *Driver) buildStartOptions(req DriveRequest) (exchange.StartOptions, BucketList, error) {
	switch req.Scope {
	case ScopeAll:
		if req.WorkItem != AllSync {
			return exchange.StartOptions{}, req.BucketList, fmt.Errorf("work item %v invalid under scope all", req.WorkItem)
		}
		return exchange.StartOptions{
			LocalNVal:  req.LocalNVal,
			RemoteNVal: req.RemoteNVal,
			Filter:     nil,
			Ref:        exchange.RefFull,
		}, req.BucketList, nil

	case ScopeBucket:
		head, rotated := req.BucketList.Rotate()
		var treeSize exchange.TreeSize
		var modRange exchange.ModRange
		switch req.WorkItem {
		case AllSync:
			treeSize = exchange.TreeSizeLarge
			modRange = exchange.ModRange{All: true}
		case HourSync:
			treeSize = exchange.TreeSizeSmall
			modRange = exchange.ModRange{From: req.Now.Add(-1 * time.Hour), To: req.Now}
		case DaySync:
			treeSize = exchange.TreeSizeMedium
			modRange = exchange.ModRange{From: req.Now.Add(-24 * time.Hour), To: req.Now}
		default:
			return exchange.StartOptions{}, rotated, fmt.Errorf("work item %v invalid under scope bucket", req.WorkItem)
		}

		filter := exchange.RangeTreeRequest{
			Bucket:     head.String(),
			KeyRange:   exchange.KeyRange{All: true},
			TreeSize:   treeSize,
			Filter:     exchange.SegmentFilter{All: true},
			ModRange:   modRange,
			HashMethod: hashMethodPreHash,
		}
		return exchange.StartOptions{
			Filter: &filter,
			Ref:    exchange.RefPartial,
		}, rotated, nil

	default:
		return exchange.StartOptions{}, req.BucketList, fmt.Errorf("scope %v cannot drive an exchange", req.Scope)
	}
}

// repairCallback adapts the repair decider into exchange.RepairFun.
type repairCallback struct {
	queue     replrtq.Queue
	queueName string
	log       *zap.Logger
}

func (r repairCallback) Repair(ctx context.Context, divergences []exchange.Divergence) error {
	converted := make([]Divergence, 0, len(divergences))
	for _, d := range divergences {
		converted = append(converted, Divergence{Bucket: d.Bucket, Key: d.Key, SourceVC: d.SourceVC, SinkVC: d.SinkVC})
	}
	Repair(ctx, r.queue, r.queueName, converted, r.log)
	return nil
}

// replyCallback adapts the coordinator's notification hooks into
// exchange.ReplyFun.
type replyCallback struct {
	reqID            string
	onRequesterReply func(reqID string, result exchange.Result)
	onReplyComplete  func()
}

func (r replyCallback) Complete(_ context.Context, result exchange.Result) {
	telemetry.AAEExchangeDivergences.Observe(float64(result.Divergences))
	if r.reqID != "" && r.onRequesterReply != nil {
		r.onRequesterReply(r.reqID, result)
	}
	if r.onReplyComplete != nil {
		r.onReplyComplete()
	}
}
