// Command vmc-listener receives VMC motion-capture datagrams over UDP and
// keeps the latest avatar state, optionally relaying, recording and
// serving it over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/banshee-data/vmc-listener/internal/api"
	"github.com/banshee-data/vmc-listener/internal/db"
	"github.com/banshee-data/vmc-listener/internal/monitoring"
	"github.com/banshee-data/vmc-listener/internal/network"
	"github.com/banshee-data/vmc-listener/internal/osc"
	"github.com/banshee-data/vmc-listener/internal/timeutil"
	"github.com/banshee-data/vmc-listener/internal/version"
	"github.com/banshee-data/vmc-listener/internal/vmc"
)

func main() {
	opts := registerFlags(flag.CommandLine)
	flag.Parse()

	if opts.showVersion {
		fmt.Println("vmc-listener", version.String())
		return
	}

	cfg, err := loadConfig(flag.CommandLine, opts)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var diag, trace io.Writer
	if opts.diag {
		diag = os.Stderr
	}
	if opts.trace {
		trace = os.Stderr
	}
	osc.SetLogWriters(os.Stderr, diag, trace)

	clock := timeutil.RealClock{}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stats := monitoring.NewPacketStats(clock, reg)

	tr := vmc.DefaultTranslations().WithOverrides(cfg.BlendShapeTranslations)
	dispatcher := vmc.NewDispatcher(tr)
	state := vmc.NewState(clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	var taps []network.Tap

	if addr, port, ok := cfg.GetForward(); ok {
		fwd, err := network.NewForwarder(addr, port, stats, cfg.GetStatsInterval())
		if err != nil {
			log.Fatalf("Failed to create forwarder: %v", err)
		}
		defer fwd.Close()
		fwd.Start(ctx)
		taps = append(taps, fwd)
	}

	// The API browses recorded sessions only when a database is configured.
	var sessions *db.DB
	if cfg.GetRecord() || (cfg.GetHTTPListen() != "" && cfg.DBPath != nil) {
		sessions, err = db.Open(cfg.GetDBPath())
		if err != nil {
			log.Fatalf("Failed to open session database: %v", err)
		}
		defer sessions.Close()
	}

	if cfg.GetRecord() {
		id, err := sessions.StartSession(clock.Now(), cfg.GetFraming().String(), cfg.GetListenAddress())
		if err != nil {
			log.Fatalf("Failed to start session: %v", err)
		}
		log.Printf("Recording session %s to %s", id, sessions.Path())
		rec := db.NewRecorder(sessions, id, tr, stats)
		rec.Start(ctx)
		taps = append(taps, rec)
		defer func() {
			rec.Wait()
			if err := sessions.EndSession(id, clock.Now()); err != nil {
				log.Printf("Failed to end session %s: %v", id, err)
			}
		}()
	}

	listener, err := network.Bind(network.ListenerConfig{
		Address:       cfg.GetListenAddress(),
		BufferSize:    cfg.GetBufferSize(),
		RcvBuf:        cfg.GetRcvBuf(),
		Framing:       cfg.GetFraming(),
		PollInterval:  cfg.GetPollInterval(),
		StatsInterval: cfg.GetStatsInterval(),
		Stats:         stats,
		Taps:          taps,
		Clock:         clock,
	})
	if err != nil {
		log.Fatalf("Failed to start listener: %v", err)
	}
	defer listener.Close()

	h := newPollHandler(dispatcher, state, cfg.GetStatsInterval())
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Run(ctx, h.handle); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Listener stopped: %v", err)
			stop()
		}
		log.Print("listener routine terminated")
	}()

	if addr := cfg.GetHTTPListen(); addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(ctx, addr, state, stats, sessions, reg)
		}()
	}

	wg.Wait()
	stats.LogStats()
	log.Printf("Graceful shutdown complete")
}

func serveHTTP(ctx context.Context, addr string, state *vmc.State, stats *monitoring.PacketStats, sessions *db.DB, reg *prometheus.Registry) {
	cfg := api.Config{State: state, Stats: stats, Gatherer: reg}
	if sessions != nil {
		cfg.Sessions = sessions
	}
	mux := api.NewServer(cfg).ServeMux()
	if sessions != nil {
		if err := sessions.AttachAdminRoutes(mux); err != nil {
			log.Printf("Failed to attach admin routes: %v", err)
		}
	}

	server := &http.Server{
		Addr:    addr,
		Handler: api.LoggingMiddleware(mux),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server failed: %v", err)
		}
	}()
	log.Printf("HTTP API listening on %s", addr)

	<-ctx.Done()
	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server routine stopped")
}
