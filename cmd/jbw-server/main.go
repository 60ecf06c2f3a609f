// Command jbw-server runs one Jelly Bean World simulator behind the wire
// protocol and an admin HTTP surface, wiring together every ambient and
// domain package: flag parsing, config load, background loops, then serve.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"time"

	"jbw/adminserver"
	"jbw/jbwconfig"
	"jbw/metrics"
	"jbw/netpoll"
	"jbw/protocol"
	"jbw/simulator"
	"jbw/worldmap"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML simulator config (default config if empty)")
		listenAddr = flag.String("listen", ":54321", "address to serve the wire protocol on")
		adminAddr  = flag.String("admin", ":54322", "address to serve /healthz, /stats and pprof on")
		savePath   = flag.String("load", "", "path to a save file to resume from, instead of starting fresh")
		workers    = flag.Int("workers", 8, "netpoll worker pool size")
		reapEvery  = flag.Duration("reap-interval", 30*time.Second, "how often to sweep deleted items past their lifetime")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "jbw-server: ", log.LstdFlags)

	sim, err := loadOrCreate(*configPath, *savePath, logger)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}

	reg := metrics.New()
	sim.SetStepCallback(func(tick uint64, acted []uint64) {
		reg.RecordTick(len(sim.AgentIDs()))
	})

	done := make(chan struct{})
	defer close(done)
	go worldmap.RunReaper(done, sim.Store(), *reapEvery, uint64(sim.Config().RemovedItemLifetime), sim.Time)

	adminSrv := adminserver.NewServer(*adminAddr, sim, reg)
	go func() {
		if err := adminSrv.Serve(); err != nil {
			logger.Printf("adminserver: %v", err)
		}
	}()

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		logger.Fatalf("listen %s: %v", *listenAddr, err)
	}

	protoServer := protocol.NewServer(sim, logger)
	pool := netpoll.New(ln, *workers, protoServer.HandleConn)
	if err := pool.Start(); err != nil {
		logger.Fatalf("netpoll start: %v", err)
	}
	logger.Printf("serving on %s (admin %s)", *listenAddr, *adminAddr)

	select {}
}

func loadOrCreate(configPath, savePath string, logger simulator.Logger) (*simulator.Simulator, error) {
	if savePath != "" {
		f, err := os.Open(savePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return simulator.Load(f, logger)
	}

	cfg := simulator.DefaultConfig()
	if configPath != "" {
		loaded, err := jbwconfig.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return simulator.New(cfg, logger)
}
