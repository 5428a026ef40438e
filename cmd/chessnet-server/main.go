package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/hailam/chessnet/internal/config"
	"github.com/hailam/chessnet/internal/logging"
	"github.com/hailam/chessnet/internal/server"
	"github.com/hailam/chessnet/internal/storage"
)

var (
	configPath = flag.String("config", "", "path to TOML config file")
	dataDir    = flag.String("data-dir", "", "player profile database directory (empty disables persistence)")
	noStore    = flag.Bool("no-store", false, "disable player profile persistence")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

var log = logging.GetLog()

func main() {
	flag.Parse()

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
		log.Infof("CPU profiling enabled, writing to %s", profilePath)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}
	logging.SetLevel(cfg.Logging.Level)

	var store *storage.PlayerStore
	if !*noStore {
		dir := *dataDir
		if dir == "" {
			d, err := storage.DefaultDataDir()
			if err != nil {
				log.Fatalf("data dir: %v", err)
			}
			dir = d
		}
		s, err := storage.Open(dir)
		if err != nil {
			log.Fatalf("open profile store: %v", err)
		}
		defer s.Close()
		store = s
		log.Infof("player profiles stored in %s", dir)
	} else {
		log.Infof("profile persistence disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, store)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
