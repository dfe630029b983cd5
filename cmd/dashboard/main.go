package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shield-iot/dashboard/internal/archive"
	"github.com/shield-iot/dashboard/internal/client"
	"github.com/shield-iot/dashboard/internal/feed"
	"github.com/shield-iot/dashboard/internal/health"
	"github.com/shield-iot/dashboard/internal/metrics"
	"github.com/shield-iot/dashboard/internal/status"
	"github.com/shield-iot/dashboard/internal/store"
	"github.com/shield-iot/dashboard/internal/transport"
)

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	st := store.New(store.Config{
		Deriver: &status.Deriver{},
		Metrics: m,
	})

	api := client.New(cfg.BackendURL, time.Duration(cfg.TimeoutMs)*time.Millisecond)
	seeder := &client.Seeder{
		Client:       api,
		Store:        st,
		HistoryLimit: cfg.HistoryLimit,
		AlarmLimit:   cfg.AlarmLimit,
	}

	// optional influx mirror
	var mirror *archive.Writer
	if cfg.InfluxToken != "" {
		influx := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
		defer influx.Close()
		mirror = archive.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket))
		mirror.Attach(st)
		defer mirror.Detach()
	}

	session := transport.New(
		transport.Config{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			User:     cfg.MQTTUser,
			Password: cfg.MQTTPass,
			ClientID: cfg.ClientID,
		},
		transport.StoreSink{Store: st},
		st.SetConnectionStatus,
		func(ctx context.Context) {
			if err := seeder.Resync(ctx); err != nil {
				log.Printf("resync failed: %v", err)
			}
		},
		m,
	)

	charts := feed.NewChartFeeder(st, api, logChartRenderer{}, time.Duration(cfg.ThrottleMs)*time.Millisecond, m)
	charts.Start(ctx)
	timeline := feed.NewTimelineFeeder(st, logTimelineRenderer{})
	timeline.Start(ctx)
	cards := feed.NewCardFeeder(st, logOverviewRenderer{})

	go st.RunStalenessSweep(ctx, cfg.SweepInterval)
	go seeder.RunStatsRefresh(ctx, cfg.StatsInterval)
	go cards.Run(ctx, cfg.CardTick)

	ops := &http.Server{
		Addr:    ":" + cfg.OpsPort,
		Handler: health.NewMux(session, st, mirror, reg),
	}
	go func() {
		log.Printf("ops endpoints on %s", ops.Addr)
		if err := ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("ops server: %v", err)
		}
	}()

	if err := session.Connect(ctx); err != nil {
		// the backend pull path still works without the push channel
		log.Printf("push channel unavailable: %v", err)
		if err := seeder.Resync(ctx); err != nil {
			log.Printf("initial seed failed: %v", err)
		}
	}

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = ops.Shutdown(shutdownCtx)
	session.Close()
}
