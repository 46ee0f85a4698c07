package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	figure "github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vknair/orbit-rmi/demo"
	"github.com/vknair/orbit-rmi/internal/config"
	"github.com/vknair/orbit-rmi/orbit"
	"github.com/vknair/orbit-rmi/pstorage"
	"github.com/vknair/orbit-rmi/transport"
)

// newSnapshotStore picks the snapshot backing store to match how eagerly
// the operator wants it flushed. A negative flush interval asks for a
// synchronous write straight through to disk on every snapshot, the
// same store the reference peer's own CLI config path used; anything
// else buffers in memory and flushes on flushInterval's own schedule.
func newSnapshotStore(path string, flushInterval time.Duration, logger *logrus.Entry) pstorage.PersistentStorage {
	if flushInterval < 0 {
		return pstorage.NewFileBasedPersistentStorage(path)
	}
	if flushInterval == 0 {
		flushInterval = 30 * time.Second
	}
	return pstorage.NewHybridPersistentStorage(path, flushInterval, logger)
}

func main() {
	cmdPeer := &cli.Command{
		Name:  "peer",
		Usage: "start an orbit peer daemon",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "c", Usage: "peer config file path", Required: true},
		},
		Action: func(c *cli.Context) error {
			return startPeer(c.Path("c"))
		},
	}

	app := &cli.App{
		Name:  "orbitd",
		Usage: "run an orbit RMI peer",
		Commands: []*cli.Command{
			cmdPeer,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func startPeer(configPath string) error {
	cfg, fl, err := config.Load(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	logger := logrus.New()
	logger.Out = os.Stdout
	entry := logger.WithFields(logrus.Fields{"nodeID": cfg.NodeID})

	banner := figure.NewFigure("orbit", "", true)
	banner.Print()
	color.New(color.FgCyan).Printf("peer %s listening on %s\n", cfg.NodeID, cfg.ListenAddr)

	hub, err := transport.NewTCPHub(cfg.NodeID, cfg.ListenAddr, cfg.Directory(), cfg.DialTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = hub.Close() }()

	opts := []orbit.Option{
		orbit.WithWorkers(cfg.Workers),
		orbit.WithLogger(entry),
	}
	if cfg.GracePeriod > 0 {
		opts = append(opts, orbit.WithGracePeriod(cfg.GracePeriod))
	}
	sp := orbit.New(opts...)

	if err := demo.RegisterAll(sp); err != nil {
		return err
	}

	greeter := &demo.LocalGreeter{Prefix: "hello from " + string(cfg.NodeID)}
	sp.HostServer(hub, greeter)

	if cfg.SnapshotFilePath != "" {
		store := newSnapshotStore(cfg.SnapshotFilePath, cfg.SnapshotFlushInterval, entry)
		if hybrid, ok := store.(*pstorage.Hybrid); ok {
			defer func() {
				if err := hybrid.Stop(); err != nil {
					entry.Warnf("orbit: failed to flush host snapshot on shutdown: %v", err)
				}
			}()
		}
		startSnapshotLoop(sp, cfg, store, entry)
	}

	color.New(color.FgGreen).Println("peer is up, waiting for connections")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	fmt.Println("shutting down peer...")
	sp.ShutdownExecutor()
	return nil
}

// startSnapshotLoop periodically takes a fresh host-table snapshot and
// hands it to store. This ticker governs how often a snapshot is taken,
// a separate concern from store's own flush-to-disk cadence.
func startSnapshotLoop(sp *orbit.Space, cfg config.Peer, store pstorage.PersistentStorage, logger *logrus.Entry) {
	interval := cfg.SnapshotInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := sp.WriteHostSnapshot(store); err != nil {
				logger.Warnf("orbit: failed to write host snapshot: %v", err)
			}
		}
	}()
}
