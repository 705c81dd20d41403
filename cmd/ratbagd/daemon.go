package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/libratbag/ratbag-go/internal/config"
	"github.com/libratbag/ratbag-go/pkg/devicedb"
	"github.com/libratbag/ratbag-go/pkg/discovery"
	"github.com/libratbag/ratbag-go/pkg/driver"
	"github.com/libratbag/ratbag-go/pkg/interaction"
	"github.com/libratbag/ratbag-go/pkg/log"
	"github.com/libratbag/ratbag-go/pkg/manager"
	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/persistence"
	"github.com/libratbag/ratbag-go/pkg/testdevice"
	"github.com/libratbag/ratbag-go/pkg/transport"
	"github.com/libratbag/ratbag-go/pkg/version"
)

// daemon wires the device registry to the transport, the commit journal,
// the device database and mDNS.
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	mgr     *manager.Manager
	mem     *driver.Memory
	journal persistence.Journal

	// protocol is nil unless a protocol log is configured.
	protocol     log.Logger
	protocolFile *log.FileLogger

	server  *transport.Server
	handler *interaction.Server

	advertiser discovery.Advertiser
	advertised *discovery.DaemonInfo
	devices    atomic.Int64
	advMu      sync.Mutex

	cancel context.CancelFunc
}

// newDaemon builds a daemon from cfg and registers the configured devices.
// advertiser may be nil; one is created when discovery is enabled.
func newDaemon(cfg *config.Config, logger *slog.Logger, advertiser discovery.Advertiser) (*daemon, error) {
	d := &daemon{
		cfg:        cfg,
		logger:     logger,
		mem:        driver.NewMemory(),
		advertiser: advertiser,
	}

	journal, err := openJournal(cfg.Journal)
	if err != nil {
		return nil, err
	}
	d.journal = journal

	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("opening protocol log: %w", err)
		}
		d.protocolFile = fl
		d.protocol = fl
		if logger.Enabled(context.Background(), slog.LevelDebug) {
			d.protocol = log.NewMultiLogger(fl, log.NewSlogAdapter(logger))
		}
	}

	d.mgr = manager.New(manager.Config{Applier: d.applierFor, Logger: logger})
	d.mgr.OnDeviceAdded(func(dev *model.Device) {
		d.devices.Add(1)
		d.deviceEvent(dev.Sysname(), "added")
	})
	d.mgr.OnDeviceRemoved(func(sysname string) {
		d.devices.Add(-1)
		d.mem.Forget(sysname)
		d.deviceEvent(sysname, "removed")
	})
	d.mgr.OnDeviceRestored(d.mem.Forget)

	if err := d.addLiveDevices(); err != nil {
		d.close()
		return nil, err
	}
	if err := d.loadTestDevices(); err != nil {
		d.close()
		return nil, err
	}
	d.pruneJournal()
	return d, nil
}

// pruneJournal trims the SQLite journal of every live device to the
// configured number of entries.
func (d *daemon) pruneJournal() {
	sq, ok := d.journal.(*persistence.SQLiteJournal)
	if !ok || d.cfg.Journal.Keep == 0 {
		return
	}
	for _, dev := range d.mgr.Devices() {
		n, err := sq.Prune(context.Background(), dev.Sysname(), d.cfg.Journal.Keep)
		if err != nil {
			d.logger.Warn("journal prune failed", "sysname", dev.Sysname(), "error", err)
			continue
		}
		if n > 0 {
			d.logger.Debug("journal pruned", "sysname", dev.Sysname(), "removed", n)
		}
	}
}

// applierFor is the manager's ApplierFactory: the memory driver, behind
// the journal when one is configured.
func (d *daemon) applierFor(info model.Info) model.Applier {
	next := d.mem.ForDevice(info)
	if d.journal == nil {
		return next
	}
	return persistence.NewApplier(d.journal, next, d.logger)
}

func openJournal(cfg config.JournalConfig) (persistence.Journal, error) {
	switch cfg.Driver {
	case config.JournalSQLite:
		j, err := persistence.NewSQLiteJournal(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		return j, nil
	case config.JournalFile:
		j := persistence.NewFileJournal(cfg.Path)
		j.MaxEntries = cfg.Keep
		return j, nil
	default:
		return nil, nil
	}
}

func (d *daemon) addLiveDevices() error {
	if d.cfg.DataDir == "" {
		return nil
	}
	db, err := devicedb.Load(d.cfg.DataDir, d.logger)
	if err != nil {
		return fmt.Errorf("loading device database: %w", err)
	}

	for _, pc := range d.cfg.Probes {
		probe := pc.Probe()
		info := model.Info{Sysname: probe.Sysname, Name: probe.Name}
		dev, err := db.NewDevice(probe, d.applierFor(info))
		if errors.Is(err, devicedb.ErrUnsupported) {
			d.logger.Warn("unsupported device", "sysname", probe.Sysname, "match", probe.Match().String())
			continue
		}
		if err != nil {
			return fmt.Errorf("probe %s: %w", probe.Sysname, err)
		}
		if err := d.mgr.AddDevice(dev); err != nil {
			return fmt.Errorf("probe %s: %w", probe.Sysname, err)
		}
	}
	return nil
}

func (d *daemon) loadTestDevices() error {
	for _, path := range d.cfg.TestDevices {
		spec, err := testdevice.Load(path)
		if err != nil {
			return fmt.Errorf("test device %s: %w", path, err)
		}
		if _, err := d.mgr.LoadTestDevice(spec); err != nil {
			return fmt.Errorf("test device %s: %w", path, err)
		}
	}
	return nil
}

// Start begins serving and, for tcp listeners with discovery enabled,
// advertising.
func (d *daemon) Start(ctx context.Context) error {
	opts := []interaction.ServerOption{interaction.WithLogger(d.logger)}
	if d.protocol != nil {
		opts = append(opts, interaction.WithProtocolLogger(d.protocol))
	}
	d.handler = interaction.NewServer(d.mgr, opts...)

	ctx, d.cancel = context.WithCancel(ctx)
	srv, err := transport.NewServer(transport.ServerConfig{
		Address: d.cfg.Address,
		Logger:  d.protocol,
		OnConnect: func(conn *transport.ServerConn) {
			d.logger.Debug("client connected", "conn", conn.ConnID(), "remote", conn.RemoteAddr())
		},
		OnDisconnect: func(conn *transport.ServerConn) {
			d.logger.Debug("client disconnected", "conn", conn.ConnID())
		},
		OnMessage: func(conn *transport.ServerConn, msg []byte) {
			d.handler.HandleMessage(ctx, conn, msg)
		},
		OnError: func(conn *transport.ServerConn, err error) {
			d.logger.Warn("connection error", "conn", conn.ConnID(), "error", err)
		},
	})
	if err != nil {
		d.cancel()
		return err
	}
	if err := srv.Start(ctx); err != nil {
		d.cancel()
		return err
	}
	d.server = srv
	d.logger.Info("listening", "address", srv.Address(), "api", version.API, "devices", d.devices.Load())

	if d.cfg.Discovery.Enabled {
		if err := d.advertise(ctx); err != nil {
			d.logger.Warn("mDNS advertisement failed", "error", err)
		}
	}
	return nil
}

func (d *daemon) advertise(ctx context.Context) error {
	tcp, ok := d.server.Addr().(*net.TCPAddr)
	if !ok {
		d.logger.Info("not advertising a unix socket on mDNS", "address", d.server.Address())
		return nil
	}

	instance := d.cfg.Discovery.Instance
	if instance == "" {
		host, _ := os.Hostname()
		instance = discovery.DefaultInstanceName(host)
	}
	if d.advertiser == nil {
		acfg := discovery.DefaultAdvertiserConfig()
		acfg.Interface = d.cfg.Discovery.Interface
		d.advertiser = discovery.NewMDNSAdvertiser(acfg)
	}

	d.advMu.Lock()
	defer d.advMu.Unlock()
	d.advertised = &discovery.DaemonInfo{
		InstanceName: instance,
		Port:         uint16(tcp.Port),
		APIVersion:   version.API,
		Protocol:     version.Protocol,
		DeviceCount:  int(d.devices.Load()),
	}
	if err := d.advertiser.Advertise(ctx, d.advertised); err != nil {
		d.advertised = nil
		return err
	}
	d.logger.Info("advertising on mDNS", "instance", instance, "port", tcp.Port)
	return nil
}

// deviceEvent records a device lifecycle change in the protocol log and
// refreshes the advertised device count.
func (d *daemon) deviceEvent(sysname, state string) {
	if d.protocol != nil {
		ev := log.NewStateEvent(log.LayerService, log.StateEntityDevice, "", state)
		ev.LocalRole = log.RoleDaemon
		ev.Sysname = sysname
		d.protocol.Log(ev)
	}

	d.advMu.Lock()
	defer d.advMu.Unlock()
	if d.advertised == nil {
		return
	}
	info := *d.advertised
	info.DeviceCount = int(d.devices.Load())
	if err := d.advertiser.Update(&info); err != nil {
		d.logger.Debug("mDNS update failed", "error", err)
		return
	}
	d.advertised = &info
}

// Address returns the address the daemon listens on.
func (d *daemon) Address() string {
	if d.server == nil {
		return d.cfg.Address
	}
	return d.server.Address()
}

// Stop withdraws the advertisement, stops serving and closes the journal
// and protocol log.
func (d *daemon) Stop() error {
	d.advMu.Lock()
	if d.advertised != nil {
		d.advertiser.Stop()
		d.advertised = nil
	}
	d.advMu.Unlock()

	var errs []error
	if d.server != nil {
		errs = append(errs, d.server.Stop())
	}
	if d.cancel != nil {
		d.cancel()
	}
	errs = append(errs, d.close())
	return errors.Join(errs...)
}

func (d *daemon) close() error {
	var errs []error
	if d.journal != nil {
		errs = append(errs, d.journal.Close())
	}
	if d.protocolFile != nil {
		errs = append(errs, d.protocolFile.Close())
	}
	return errors.Join(errs...)
}
