// Command safetysim flies a simulated vehicle toward an obstacle and lets the
// safety evaluator decide every tick whether the commanded velocity is safe.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeyong/simsafety/internal/config"
	"github.com/jeyong/simsafety/internal/timeutil"
	"github.com/jeyong/simsafety/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a .json/.yaml safety config (empty uses built-in defaults)")
	steps       = flag.Int("steps", 600, "Number of simulation ticks")
	speed       = flag.Float64("speed", 5, "Commanded ground speed in m/s")
	heading     = flag.Float64("heading", 0, "Commanded heading in degrees clockwise from north")
	beams       = flag.Int("beams", 8, "Number of rangefinders around the body")
	realTime    = flag.Bool("realtime", false, "Pace ticks with the wall clock instead of a simulated clock")
	journalPath = flag.String("journal", "", "Verdict journal path (overrides journal_path in the config)")
	debug       = flag.Bool("debug", false, "Log every unsafe verdict")
	report      = flag.Bool("report", false, "Print the final state of every ticked object")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := config.DefaultSafetyConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadSafetyConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		log.Printf("loaded config from %s", *configPath)
	}

	opts := defaultOptions()
	opts.Steps = *steps
	opts.Speed = *speed
	opts.Heading = *heading * math.Pi / 180
	opts.Beams = *beams
	opts.Debug = *debug
	opts.JournalPath = cfg.GetJournalPath()
	if *journalPath != "" {
		opts.JournalPath = *journalPath
	}

	var clock timeutil.Clock = timeutil.NewMockClock(time.Now())
	if *realTime {
		clock = timeutil.RealClock{}
	}

	sim, err := newSimulation(cfg, clock, defaultScene(), opts)
	if err != nil {
		log.Fatalf("failed to build simulation: %v", err)
	}
	defer sim.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := sim.run(ctx, opts)
	if err != nil {
		log.Printf("simulation stopped: %v", err)
	}
	fmt.Println(sum)
	if *report {
		fmt.Print(sim.report())
	}
}
