package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/five82/hotend/internal/config"
	"github.com/five82/hotend/internal/discovery"
	"github.com/five82/hotend/internal/state"
	"github.com/five82/hotend/internal/ultimaker"
)

// ManagerOptions configure the fleet manager.
type ManagerOptions struct {
	Store *state.Store
	// Credentials persists pairing credentials across restarts. nil
	// disables persistence; every start pairs from scratch.
	Credentials ultimaker.CredentialStore
	// Identity is shown on printer screens when pairing.
	Identity ultimaker.Identity
	// Timeout bounds each HTTP request to a printer.
	Timeout time.Duration
	// PollInterval is the steady-state cadence per printer.
	PollInterval time.Duration
}

// Manager runs one polling worker per printer. A worker is the single
// owner of its printer connection; nothing else touches the connection,
// so the credential state machine never sees concurrent calls. The UI
// reaches printers only through Send.
type Manager struct {
	store    *state.Store
	creds    ultimaker.CredentialStore
	identity ultimaker.Identity
	timeout  time.Duration
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	runners map[string]*runner
}

// runner is the managed half of one worker: the connection it owns and
// the channel the UI reaches it on.
type runner struct {
	key      string
	address  string
	port     int
	printer  *ultimaker.Printer
	commands chan Command
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewManager creates a manager with defaults applied.
func NewManager(opts ManagerOptions) *Manager {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Manager{
		store:    opts.Store,
		creds:    opts.Credentials,
		identity: opts.Identity,
		timeout:  opts.Timeout,
		interval: interval,
		runners:  make(map[string]*runner),
	}
}

// Interval returns the steady-state poll cadence.
func (m *Manager) Interval() time.Duration { return m.interval }

// Start prepares the manager to launch workers. Tracking calls before
// Start do not spawn workers.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx != nil {
		return
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
}

// Stop cancels all workers and waits for them to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// TrackConfigured registers the statically configured printers and
// starts their workers.
func (m *Manager) TrackConfigured(printers []config.StaticPrinter) {
	for _, p := range printers {
		key := staticKey(p.Address, p.Port)
		m.store.Track(state.PrinterInfo{
			Key:     key,
			Address: p.Address,
			Port:    p.Port,
			Source:  state.SourceConfigured,
		})
		m.ensureRunner(key, p.Address, p.Port)
	}
}

// ConsumeDiscovery applies scanner events to the fleet until the channel
// closes or the manager stops.
func (m *Manager) ConsumeDiscovery(events <-chan discovery.Event) {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				m.handleEvent(event)
			}
		}
	}()
}

func (m *Manager) handleEvent(event discovery.Event) {
	printer := event.Printer
	switch event.Type {
	case discovery.EventPrinterUpserted:
		m.store.Track(state.PrinterInfo{
			Key:      printer.Instance,
			Name:     printer.Name,
			Address:  printer.Address,
			Port:     printer.Port,
			Machine:  printer.Machine,
			Firmware: printer.Firmware,
			Source:   state.SourceDiscovered,
		})
		m.ensureRunner(printer.Instance, printer.Address, printer.Port)
	case discovery.EventPrinterRemoved:
		m.dropRunner(printer.Instance)
		m.store.Remove(printer.Instance)
		log.Printf("[discovery] printer %s left the network", printer.Instance)
	}
}

// ensureRunner starts a worker for the printer, or rebinds it when the
// printer's address changed since the worker started.
func (m *Manager) ensureRunner(key, address string, port int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return
	}

	if existing, ok := m.runners[key]; ok {
		if existing.address == address && existing.port == port {
			return
		}
		existing.cancel()
		<-existing.done
		delete(m.runners, key)
		log.Printf("[manager] printer %s moved to %s", key, net.JoinHostPort(address, strconv.Itoa(port)))
	}

	printer := ultimaker.NewPrinter(ultimaker.PrinterConfig{
		Address:  address,
		Port:     port,
		Identity: m.identity,
		Timeout:  m.timeout,
	})

	ctx, cancel := context.WithCancel(m.ctx)
	r := &runner{
		key:      key,
		address:  address,
		port:     port,
		printer:  printer,
		commands: make(chan Command, 4),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	m.runners[key] = r

	m.wg.Add(1)
	go m.runWorker(ctx, r)
}

func (m *Manager) dropRunner(key string) {
	m.mu.Lock()
	r, ok := m.runners[key]
	if ok {
		delete(m.runners, key)
	}
	m.mu.Unlock()

	if ok {
		r.cancel()
		<-r.done
	}
}

// Beep asks the printer's worker to play an identification tone.
func (m *Manager) Beep(key string, frequencyHz float64, duration time.Duration) error {
	return m.Send(key, BeepCommand{FrequencyHz: frequencyHz, Duration: duration})
}

// DisplayMessage asks the printer's worker to show a message on the
// printer's screen.
func (m *Manager) DisplayMessage(key, message, button string) error {
	return m.Send(key, MessageCommand{Message: message, Button: button})
}

// Send routes a device action to the printer's worker. It never blocks:
// a worker with a full queue reports busy instead.
func (m *Manager) Send(key string, cmd Command) error {
	m.mu.Lock()
	r, ok := m.runners[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no printer tracked under %q", key)
	}

	select {
	case r.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("printer %q is busy", key)
	}
}

func staticKey(address string, port int) string {
	return net.JoinHostPort(address, strconv.Itoa(port))
}
