package main

import (
	"context"
	"flag"
	"log"
	"sync"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/pkg/sys"

	"tradebook/internal/bus"
	"tradebook/internal/core"
	"tradebook/internal/journal"
	"tradebook/internal/mdg"
	"tradebook/internal/obs"
	"tradebook/internal/ops"
	"tradebook/internal/paper"
	"tradebook/internal/state"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to JSON or YAML config")
	envPath := flag.String("env", ".env", "Path to .env overrides (optional)")
	snapshotPath := flag.String("snapshot-path", "positions.json", "Position snapshot written at exit (empty=skip)")
	flag.Parse()

	loaded, err := ops.Load(*configPath, *envPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, syncLog, err := newLogger(loaded.Log)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer syncLog()

	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: loaded.Profiling.ApplicationName,
			ServerAddress:   loaded.Profiling.ServerAddress,
			Tags: map[string]string{
				"strategy": loaded.Strategy.Name,
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	j, err := openJournal(loaded.Journal)
	if err != nil {
		log.Fatalf("journal open failed: %v", err)
	}
	defer func() {
		if err := j.Close(); err != nil {
			logger.Errorf("close journal, err: %+v", err)
		}
	}()

	if err := run(loaded, logger, j, *snapshotPath); err != nil {
		logger.Errorf("session failed, err: %+v", err)
	}
}

func run(loaded ops.Loaded, logger obs.Logger, j journal.Journal, snapshotPath string) error {
	metrics := obs.NewMetrics()
	venue, err := paper.NewVenue(loaded.Paper)
	if err != nil {
		return err
	}
	gen, err := mdg.NewGenerator(loaded.Registry, loaded.Market.Generator)
	if err != nil {
		return err
	}

	strat := newFlipStrategy(loaded.Strategy.OrderSize, logger)
	engine, err := core.New(core.Config{
		Registry:        loaded.Registry,
		Transport:       venue,
		Logger:          logger,
		Metrics:         metrics,
		Journal:         j,
		Risk:            loaded.Risk,
		PreferYesterday: loaded.Strategy.PreferYesterday,
		BarMinutes:      loaded.Strategy.BarMinutes,
		OnBar:           strat.OnBar,
	})
	if err != nil {
		return err
	}
	strat.engine = engine

	queue := bus.NewQueue(loaded.BusCapacity, metrics)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		queue.Run(context.Background(), engine.OnEvent)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	producerDone := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(producerDone)
		feed(ctx, feedConfig{
			generator:  gen,
			normalizer: mdg.NewNormalizer(loaded.Registry),
			venue:      venue,
			queue:      queue,
			interval:   loaded.Market.Interval,
			ticks:      loaded.Market.Ticks,
			logger:     logger,
		})
	}()

	logger.Infof("paper session %s started with %d contracts", loaded.Strategy.Name, loaded.Registry.ContractCount())
	select {
	case <-sys.Shutdown():
		logger.Infof("shutdown signal received")
	case <-producerDone:
	}
	cancel()
	wg.Wait()

	for _, resp := range venue.Flush() {
		if err := queue.TryPublish(bus.ResponseEvent(0, time.Now().UnixNano(), resp)); err != nil {
			logger.Errorf("publish final response %d, err: %+v", resp.OrderID, err)
		}
	}
	queue.Close()
	<-consumerDone

	for _, line := range engine.Summary() {
		logger.Infof("%s", line)
	}
	snap := metrics.Snapshot()
	logger.Infof("sent %d, delayed %d, flushed %d, ignored %d, risk denials %v, queue drops %d",
		snap.Sent, snap.Delayed, snap.Flushed, snap.Ignored, snap.RiskReasonCounts, snap.QueueDrops)

	if snapshotPath == "" {
		return nil
	}
	return state.WriteSnapshot(snapshotPath, engine.Snapshot())
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
