package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridnav.ai/internal/gridset"
	"gridnav.ai/internal/nav/metrics"
	"gridnav.ai/internal/nav/pathfinder"
	"gridnav.ai/internal/nav/service"
	"gridnav.ai/internal/persistence/indexdb"
	persistlog "gridnav.ai/internal/persistence/log"
	"gridnav.ai/internal/transport/ws"
	"gridnav.ai/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (empty for built-in defaults)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite request index")
		rebuild    = flag.Bool("rebuild", false, "ignore grid snapshots and rebuild from terrain")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	entries, err := gridset.LoadOrBuild(tune, filepath.Join(*dataDir, "grids"), *rebuild, logger)
	if err != nil {
		logger.Fatalf("grids: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if idx != nil {
		registerIndexStats(reg, idx)
	}

	reqLog := persistlog.NewRequestLogger(*dataDir)
	defer reqLog.Close()

	pf, err := pathfinder.New(pathfinder.Config{
		Sync:    tune.Pathfinding.Sync,
		Async:   tune.Pathfinding.Async,
		Logger:  log.New(os.Stdout, "[pathfinder] ", log.LstdFlags|log.Lmicroseconds),
		Metrics: metrics.New(reg),
		Observer: func(o pathfinder.Outcome) {
			if err := reqLog.WriteOutcome(o); err != nil {
				logger.Printf("request log: %v", err)
			}
			idx.WriteOutcome(o)
		},
	})
	if err != nil {
		logger.Fatalf("pathfinder: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	svc := service.New(service.Config{TickRateHz: tune.TickRateHz}, pf, logger)
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := svc.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("service stopped: %v", err)
		}
	}()
	for _, e := range entries {
		if err := svc.Register(ctx, e.Grid); err != nil {
			logger.Fatalf("register grid %q: %v", e.Grid.Key, err)
		}
		idx.RecordGrid(e.Grid, e.Path)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/admin/v1/grids", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel2()
		grids, err := svc.Grids(ctx2)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": svc.Tick(), "grids": grids})
	})
	if envBool("GRIDNAV_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (GRIDNAV_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(svc, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (%d grids, tick %dHz)", *addr, len(entries), tune.TickRateHz)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	svc.Stop()
	<-runDone
}

func registerIndexStats(reg prometheus.Registerer, idx *indexdb.SQLiteIndex) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gridnav_index_queue_depth",
			Help: "Pending writes in the sqlite index queue",
		}, func() float64 { return float64(idx.Stats().QueueDepth) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "gridnav_index_dropped_requests_total",
			Help: "Path request rows dropped because the index queue was full",
		}, func() float64 { return float64(idx.Stats().DropRequestTotal) }),
	)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
