// Explore runs a single exploration mission without the voice or web
// layers: sensors, safety and navigation only, with the summary printed
// at the end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	applog "github.com/teslashibe/go-sarus/internal/log"
	"github.com/teslashibe/go-sarus/pkg/mission"
	"github.com/teslashibe/go-sarus/pkg/motion"
	"github.com/teslashibe/go-sarus/pkg/nav"
	"github.com/teslashibe/go-sarus/pkg/safety"
	"github.com/teslashibe/go-sarus/pkg/sensors"
)

func main() {
	pattern := flag.String("pattern", nav.PatternRandom, "Exploration pattern: random, wall_follow, spiral, systematic")
	duration := flag.Duration("duration", 2*time.Minute, "Mission time limit")
	dbPath := flag.String("db", "", "Mission database path (empty = no persistence)")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	applog.Init(*logLevel)

	fmt.Println("🧭 Sarus Explorer")
	fmt.Printf("   Pattern:  %s\n", *pattern)
	fmt.Printf("   Duration: %s\n", *duration)
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	actuator := motion.NewSimActuator()
	interlock := safety.New(safety.DefaultConfig(), actuator)

	sensorCfg := sensors.DefaultConfig()
	aggregator := sensors.New(sensorCfg, source(ctx))
	aggregator.SetEmergencyFunc(func(reason, message string) {
		kind := safety.Proximity
		if reason == sensors.ReasonCriticalBattery {
			kind = safety.LowBattery
		}
		interlock.Trigger(kind, message, safety.Critical, "sensors")
	})
	go aggregator.Run(ctx)

	navCfg := nav.DefaultConfig()
	navCfg.Pattern = *pattern
	navCfg.MaxMissionDuration = *duration
	engine := nav.New(navCfg, actuator, aggregator, interlock, nil)

	var logger mission.Logger = mission.NopLogger{}
	if *dbPath != "" {
		store, err := mission.OpenStore(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open mission store: %v", err)
		}
		defer store.Close()
		logger = store
	}
	engine.SetMissionLogger(logger)

	rec := mission.NewRecord("exploration")
	if _, err := logger.StartMission(rec); err != nil {
		applog.Warn("mission logging failed", "error", err)
	}

	ok, err := engine.ExecuteAction(ctx, nav.Action{
		Type:        nav.ActionExploration,
		Pattern:     *pattern,
		MaxDuration: *duration,
	})
	if err != nil {
		log.Fatalf("Failed to start exploring: %v", err)
	}
	if !ok {
		log.Fatal("Refused to start: emergency stop is active")
	}

	fmt.Println("✅ Exploring. Ctrl+C to stop.")
	for {
		done, err := engine.ContinueExploration(ctx, rec)
		if err != nil {
			applog.Error("exploration failed", "error", err)
			break
		}
		if done {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(100 * time.Millisecond):
		}
	}

	status := mission.StatusCompleted
	switch engine.LastStop() {
	case nav.StopStuck, nav.StopAborted:
		status = mission.StatusInterrupted
	}
	rec.Finalize(status)

	summary := rec.Summarize()
	if err := logger.CompleteMission(rec, summary); err != nil {
		applog.Warn("mission logging failed", "error", err)
	}

	fmt.Println()
	fmt.Printf("📝 %s\n", summary)
	fmt.Printf("   Stop reason: %s\n", engine.LastStop())
	fmt.Printf("   Distance:    %.0f cm\n", rec.DistanceCM())
}

// source builds a simulated sensor source that drifts over time so
// exploration runs see changing obstacle layouts.
func source(ctx context.Context) *sensors.SimSource {
	src := sensors.NewSimSource(time.Now().UnixNano())
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		dists := []float64{250, 45, 22, 120, 80, 35, 200}
		i := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				src.SetDistance(sensors.Front, dists[i%len(dists)])
				src.SetDistance(sensors.Left, dists[(i+2)%len(dists)])
				src.SetDistance(sensors.Right, dists[(i+4)%len(dists)])
				i++
			}
		}
	}()
	return src
}
