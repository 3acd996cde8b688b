// Package cmdline wires every package in the tree into a single runnable
// daemon, following fw/cmd/cmd.go's shape: one cobra command taking a
// YAML config file path, a graceful-shutdown signal handler, and an
// optional CPU/block/memory profiler.
package cmdline

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/face"
	"github.com/ndnfw/ndnfw/pkg/fastpath"
	"github.com/ndnfw/ndnfw/pkg/forwarder"
	"github.com/ndnfw/ndnfw/pkg/metrics"
	"github.com/ndnfw/ndnfw/pkg/mgmt"
	"github.com/ndnfw/ndnfw/pkg/mtu"
	"github.com/ndnfw/ndnfw/pkg/repo"
	"github.com/ndnfw/ndnfw/pkg/strategy"
	"github.com/ndnfw/ndnfw/pkg/table"
)

const version = "ndnfwd/dev"

// CmdNDNFwd is the root command, matching the teacher's CmdYaNFD shape:
// "ndnfwd CONFIG-FILE" with profiler flags layered on top of the config
// file's own settings.
var CmdNDNFwd = &cobra.Command{
	Use:     "ndnfwd CONFIG-FILE",
	Short:   "NDN forwarding daemon",
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE:    run,
}

var overrides = core.DefaultConfig()

func init() {
	CmdNDNFwd.Flags().StringVar(&overrides.Core.CPUProfile, "cpu-profile", "", "Write CPU profile to file")
	CmdNDNFwd.Flags().StringVar(&overrides.Core.MemProfile, "mem-profile", "", "Write memory profile to file")
	CmdNDNFwd.Flags().StringVar(&overrides.Core.BlockProfile, "block-profile", "", "Write block profile to file")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := core.DefaultConfig()
	cfg.BaseDir = filepath.Dir(args[0])
	if err := core.ReadYAML(cfg, args[0]); err != nil {
		return err
	}
	if overrides.Core.CPUProfile != "" {
		cfg.Core.CPUProfile = overrides.Core.CPUProfile
	}
	if overrides.Core.MemProfile != "" {
		cfg.Core.MemProfile = overrides.Core.MemProfile
	}
	if overrides.Core.BlockProfile != "" {
		cfg.Core.BlockProfile = overrides.Core.BlockProfile
	}

	d, err := newDaemon(cfg)
	if err != nil {
		return err
	}
	d.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	core.Log.Info(d, "received signal, shutting down", "signal", sig)

	d.Stop()
	return nil
}

// daemon owns every long-lived component a running forwarder needs:
// shared tables, the dispatch threads, optional fast path, the face
// listeners, the MTU control loop, and the control-plane server.
type daemon struct {
	cfg *core.Config

	profiler *core.Profiler
	faces    *face.Table
	cs       *table.ContentStore
	pit      *table.PIT
	fib      *table.FIB
	counters *metrics.Counters
	events   *metrics.EventRing

	classifier *fastpath.Classifier
	threads    []*forwarder.Thread
	archive    *repo.Archive

	mtuLoop   *mtu.ControlLoop
	mtuCancel context.CancelFunc

	udpListener  *face.UDPListener
	quicListener *face.QUICListener
	mgmtServer   *mgmt.Server
	mgmtHTTP     *http.Server
	registry     *mgmt.Registry

	maintCancel context.CancelFunc
}

func (d *daemon) String() string { return "ndnfwd" }

func newDaemon(cfg *core.Config) (*daemon, error) {
	d := &daemon{cfg: cfg}

	d.profiler = core.NewProfiler(cfg)
	d.faces = face.NewTable()
	d.cs = table.NewContentStore(cfg.CS)
	d.pit = table.NewPIT(cfg.PIT)
	d.fib = table.NewFIB()
	numThreads := cfg.Core.NumThreads
	if numThreads < 1 {
		numThreads = 1
	}
	d.counters = metrics.NewCounters(numThreads)
	d.events = metrics.NewEventRing(1<<20, d.counters)

	d.classifier = fastpath.NewClassifier(fastpath.DefaultConfig(), d.cs, d.pit)

	deps := forwarder.Deps{
		CS: d.cs, PIT: d.pit, FIB: d.fib, Strategy: strategy.BestRoute{},
		Faces: d.faces, Counters: d.counters, Events: d.events,
		// Shared across every thread below: threads are sharded by face id,
		// not by name, so an Interest and a Data for the same name can land
		// on different threads and must still serialize against each other.
		Names: table.NewNameLocks(256),
	}
	if cfg.Mgmt.RepoPath != "" {
		archive, err := repo.Open(filepath.Join(cfg.BaseDir, cfg.Mgmt.RepoPath))
		if err != nil {
			return nil, err
		}
		d.archive = archive
		deps.Archive = archive
	}
	d.threads = make([]*forwarder.Thread, numThreads)
	for i := range d.threads {
		d.threads[i] = forwarder.NewThread(i, deps)
	}

	predictor := mtu.NewHTTPPredictor(cfg.MTU.PredictorAddr, cfg.MTU.PredictorTimeout)
	d.mtuLoop = mtu.NewControlLoop(mtu.Config{
		Min: cfg.MTU.Min, Max: cfg.MTU.Max, StabilityBytes: cfg.MTU.StabilityBytes, CWNDMultiple: 4,
	}, predictor)

	registry, err := mgmt.NewRegistry(filepath.Join(cfg.BaseDir, cfg.Mgmt.SqlitePath))
	if err != nil {
		return nil, err
	}
	d.registry = registry

	d.mgmtServer = mgmt.NewServer(mgmt.Deps{
		FIB: d.fib, CS: d.cs, PIT: d.pit, Faces: d.faces, Counters: d.counters,
		Dispatch: d.threads[0], Classifier: d.classifier, MTU: d.mtuLoop, Registry: registry,
	})

	return d, nil
}

// thread picks the worker for inFace by sharding on its id, matching
// spec.md §5's "hash shards >= number of worker threads" rule.
func (d *daemon) thread(inFace uint64) *forwarder.Thread {
	return d.threads[inFace%uint64(len(d.threads))]
}

// Start brings every listener and background loop up. Errors standing up
// an individual listener are logged, not fatal, so a daemon configured
// for Ethernet on a machine without the named interface still serves UDP
// and the control plane.
func (d *daemon) Start() {
	if err := d.profiler.Start(); err != nil {
		core.Log.Error(d, "failed to start profiler", "err", err)
	}

	if err := d.mgmtServer.ReplayRoutes(); err != nil {
		core.Log.Error(d, "failed to replay persisted routes", "err", err)
	}

	d.startUDPListener()
	d.startQUICListener()
	d.startEthernetFace()

	d.startMaintenanceLoop()
	d.startMgmtHTTP()

	core.Log.Info(d, "ndnfwd started", "threads", len(d.threads))
}

func (d *daemon) startUDPListener() {
	port := d.cfg.Faces.UDPPort
	if port == 0 {
		port = 6363
	}
	onPeer := func(f face.Face) {
		go f.Recv(func(pkt []byte) {
			d.thread(uint64(f.ID())).DispatchInboundFast(d.classifier, pkt, f.ID())
		})
	}
	ln, err := face.NewUDPListener(port, d.faces, onPeer)
	if err != nil {
		core.Log.Error(d, "failed to start UDP listener", "err", err)
		return
	}
	d.udpListener = ln
	go ln.Run()
	core.Log.Info(d, "UDP listener up", "port", port)
}

func (d *daemon) startQUICListener() {
	// QUIC requires a TLS certificate; a daemon with none configured simply
	// runs without a QUIC face (UDP and Ethernet remain available).
	certPath := filepath.Join(d.cfg.BaseDir, "quic-cert.pem")
	keyPath := filepath.Join(d.cfg.BaseDir, "quic-key.pem")
	if _, err := os.Stat(certPath); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.mtuCancel = cancel

	port := d.cfg.Faces.QUICPort
	if port == 0 {
		port = 6367
	}
	ln, err := face.NewQUICListener(face.QUICListenerConfig{
		Bind: "0.0.0.0", Port: port, TLSCert: certPath, TLSKey: keyPath,
		IdleAfter: d.cfg.Faces.IdleAfter, DrainTimeout: d.cfg.Faces.DrainTimeout,
		ReassemblyWindow: time.Duration(d.cfg.Faces.ReassemblyMul * float64(time.Second)),
	}, d.faces, func(t *face.QUICTransport) {
		go t.Recv(func(pkt []byte) {
			d.thread(uint64(t.ID())).DispatchInboundFast(d.classifier, pkt, t.ID())
		})
		go d.runMTULoop(ctx, t)
	})
	if err != nil {
		core.Log.Error(d, "failed to start QUIC listener", "err", err)
		return
	}
	d.quicListener = ln
	go ln.Run()
	core.Log.Info(d, "QUIC listener up")
}

// runMTULoop drives spec.md §4.8's control loop once per face, sampling
// the transport's own congestion state on every tick.
func (d *daemon) runMTULoop(ctx context.Context, t *face.QUICTransport) {
	mtu.RunPeriodic(ctx, d.mtuLoop, uint64(t.ID()), 2*time.Second,
		func() (int, float64, mtu.Features) {
			cong := t.Congestion()
			return t.MTU(), cong.CWND(), mtu.Features{
				RTTEwma: cong.RTT(), LossRate: cong.LossRate(), CWND: cong.CWND(),
				LinkClass: "quic",
			}
		},
		func(newMTU int) {
			t.SetMTU(newMTU)
			d.counters.Incr(0, metrics.CounterMTUPredictionsApplied, 1)
		},
	)
}

// startMaintenanceLoop drives the periodic, non-per-packet bookkeeping
// every table needs: PIT expiry and fast-path nonce GC, matching the
// teacher module's tick-driven table cleanup in fw/table.
func (d *daemon) startMaintenanceLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	d.maintCancel = cancel
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := d.pit.Tick(now); n > 0 {
					d.counters.Incr(0, metrics.CounterPITTimeouts, uint64(n))
				}
				d.classifier.GCNonces(now)
			}
		}
	}()
}

func (d *daemon) startMgmtHTTP() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", d.mgmtServer.ServeHTTP)
	mux.HandleFunc("/fastpath/configure", d.mgmtServer.ConfigureFastPathForm)

	d.mgmtHTTP = &http.Server{Addr: d.cfg.Mgmt.ListenAddr, Handler: mux}
	go func() {
		if err := d.mgmtHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			core.Log.Error(d, "mgmt HTTP server exited", "err", err)
		}
	}()
	core.Log.Info(d, "control plane listening", "addr", d.cfg.Mgmt.ListenAddr)
}

// Stop tears everything down in roughly reverse-start order.
func (d *daemon) Stop() {
	if d.maintCancel != nil {
		d.maintCancel()
	}
	if d.mtuCancel != nil {
		d.mtuCancel()
	}
	if d.mgmtHTTP != nil {
		_ = d.mgmtHTTP.Close()
	}
	if d.udpListener != nil {
		d.udpListener.Close()
	}
	if d.quicListener != nil {
		d.quicListener.Close()
	}
	for _, f := range d.faces.All() {
		f.Close()
	}
	if d.registry != nil {
		_ = d.registry.Close()
	}
	if d.archive != nil {
		_ = d.archive.Close()
	}
	d.profiler.Stop()
}
