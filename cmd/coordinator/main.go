package main

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/zephyrcache/discovery"
	"github.com/ryandielhenn/zephyrcache/internal/aae"
	"github.com/ryandielhenn/zephyrcache/internal/config"
	"github.com/ryandielhenn/zephyrcache/internal/telemetry"
	"github.com/ryandielhenn/zephyrcache/pkg/aaeclient"
	"github.com/ryandielhenn/zephyrcache/pkg/exchange"
	"github.com/ryandielhenn/zephyrcache/pkg/membership"
	"github.com/ryandielhenn/zephyrcache/pkg/replrtq"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	selfID := os.Getenv("SELF_ID")
	if selfID == "" {
		logger.Fatal("SELF_ID is required")
	}

	etcdEndpoints := []string{"http://etcd:2379"}
	if v := os.Getenv("AAE_ETCD_ENDPOINTS"); v != "" {
		etcdEndpoints = []string{v}
	}
	cli, err := discovery.NewClient(etcdEndpoints)
	if err != nil {
		logger.Fatal("etcd client", zap.Error(err))
	}
	defer cli.Close()

	leaseID, cancelLease, err := discovery.RegisterNode(cli, selfID, cfg.LocalEndpoint().String(), 10)
	if err != nil {
		logger.Fatal("register node", zap.Error(err))
	}
	defer func() {
		cancelLease()
		_, _ = cli.Revoke(context.Background(), leaseID)
	}()

	oracle := membership.NewEtcdOracle(cli, selfID)

	queue := newQueue()
	driver := &aae.Driver{
		Engine:     exchange.NewFakeEngine(),
		OpenClient: openClient,
		Queue:      queue,
		Log:        logger,
	}

	state := aae.CoordinatorState{
		Scope:      cfg.Scope,
		BucketList: cfg.InitialBucketList(),
		LocalNVal:  cfg.LocalNVal,
		RemoteNVal: cfg.RemoteNVal,
		Wants:      cfg.ScheduleWants(),
		SliceCount: cfg.ScheduleWants().SliceCount(),
		Local:      cfg.LocalEndpoint(),
		Remote:     cfg.RemoteEndpoint(),
		QueueName:  cfg.QueueName,
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	coord := aae.NewCoordinator(state, driver, membership.AsNodeInfoFunc(oracle), aae.RealClock(), rng, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go coord.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", telemetry.MetricsHandler())
	mux.Handle("/control/status", telemetry.Instrument("control_status", controlStatus(coord)))
	mux.Handle("/control/pause", telemetry.Instrument("control_pause", controlPause(coord)))
	mux.Handle("/control/resume", telemetry.Instrument("control_resume", controlResume(coord)))
	mux.Handle("/control/sink", telemetry.Instrument("control_sink", controlSetSink(coord)))
	mux.Handle("/control/source", telemetry.Instrument("control_source", controlSetSource(coord)))
	mux.Handle("/control/allsync", telemetry.Instrument("control_allsync", controlSetAllSync(coord)))
	mux.Handle("/control/bucketsync", telemetry.Instrument("control_bucketsync", controlSetBucketSync(coord)))
	mux.Handle("/control/workitem", telemetry.Instrument("control_workitem", controlProcessWorkItem(coord)))

	addr := os.Getenv("AAE_LISTEN_ADDR")
	if addr == "" {
		addr = ":8099"
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("aae coordinator listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("listen", zap.Error(err))
	}
}

func newQueue() replrtq.Queue {
	if url := os.Getenv("AAE_QUEUE_URL"); url != "" {
		return replrtq.NewHTTPQueue(url)
	}
	return replrtq.NewMemoryQueue(10000)
}

func openClient(ctx context.Context, ep aae.Endpoint) (aaeclient.Client, error) {
	return aaeclient.New(ep.String(), 10*time.Second), nil
}

func controlStatus(c aae.Control) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, c.Snapshot())
	}
}

func controlPause(c aae.Control) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Pause(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func controlResume(c aae.Control) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Resume(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func controlSetSink(c aae.Control) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ep aae.Endpoint
		if !decodeJSON(w, r, &ep) {
			return
		}
		_ = c.SetSink(ep)
		w.WriteHeader(http.StatusNoContent)
	}
}

func controlSetSource(c aae.Control) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ep aae.Endpoint
		if !decodeJSON(w, r, &ep) {
			return
		}
		_ = c.SetSource(ep)
		w.WriteHeader(http.StatusNoContent)
	}
}

func controlSetAllSync(c aae.Control) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct{ LocalNVal, RemoteNVal int }
		if !decodeJSON(w, r, &req) {
			return
		}
		_ = c.SetAllSync(req.LocalNVal, req.RemoteNVal)
		w.WriteHeader(http.StatusNoContent)
	}
}

func controlSetBucketSync(c aae.Control) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buckets aae.BucketList
		if !decodeJSON(w, r, &buckets) {
			return
		}
		_ = c.SetBucketSync(buckets)
		w.WriteHeader(http.StatusNoContent)
	}
}

func controlProcessWorkItem(c aae.Control) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Kind aae.WorkItemKind
			Wait bool
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		resultCh := c.ProcessWorkItem(r.Context(), req.Kind, req.Wait, time.Now())
		if !req.Wait {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		select {
		case result := <-resultCh:
			writeJSON(w, result)
		case <-r.Context().Done():
			http.Error(w, "request canceled", http.StatusGatewayTimeout)
		}
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
