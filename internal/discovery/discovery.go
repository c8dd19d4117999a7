package discovery

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// DefaultService is the mDNS service printers announce themselves on.
	DefaultService = "_printer._tcp"
	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."
	// DefaultRefreshInterval is the background scan interval.
	DefaultRefreshInterval = 15 * time.Second
	// DefaultScanTimeout bounds each browse window.
	DefaultScanTimeout = 3 * time.Second
	// DefaultStaleAfter is how long a printer may go unseen before eviction.
	DefaultStaleAfter = 45 * time.Second
)

const (
	// EventPrinterUpserted is emitted when a printer appears or its metadata changes.
	EventPrinterUpserted EventType = "printer_upserted"
	// EventPrinterRemoved is emitted when a previously seen printer goes stale.
	EventPrinterRemoved EventType = "printer_removed"
)

// EventType identifies printer discovery updates.
type EventType string

// Event carries discovery updates for fleet consumers.
type Event struct {
	Type    EventType
	Printer DiscoveredPrinter
}

// DiscoveredPrinter describes one printer announced on the local network.
type DiscoveredPrinter struct {
	// Instance is the mDNS instance name, e.g. "ultimakersystem-ccbdd3001234".
	// It is stable across DHCP address changes and keys the scanner's table.
	Instance string
	// Name is the human-readable printer name from the TXT record.
	Name string
	// Machine is the machine type identifier, e.g. "9066.0".
	Machine string
	// Firmware is the announced firmware version.
	Firmware string
	Address  string
	Port     int
	// Properties holds the full TXT record, including hotend metadata.
	Properties map[string]string
	LastSeen   time.Time
}

type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Config controls scanner behavior. The zero value is usable.
type Config struct {
	Service         string
	Domain          string
	RefreshInterval time.Duration
	ScanTimeout     time.Duration
	// StaleAfter keeps a printer listed through missed scan windows.
	// mDNS answers are best-effort, so a single quiet window does not
	// mean the printer is gone.
	StaleAfter time.Duration

	browseFn browseFunc
}

func (c Config) withDefaults() Config {
	out := c
	if out.Service == "" {
		out.Service = DefaultService
	}
	if out.Domain == "" {
		out.Domain = DefaultDomain
	}
	if out.RefreshInterval <= 0 {
		out.RefreshInterval = DefaultRefreshInterval
	}
	if out.ScanTimeout <= 0 {
		out.ScanTimeout = DefaultScanTimeout
	}
	if out.StaleAfter <= 0 {
		out.StaleAfter = DefaultStaleAfter
	}
	return out
}

type refreshRequest struct {
	ctx  context.Context
	done chan error
}

// Scanner finds printers with periodic and manual mDNS browse operations.
type Scanner struct {
	cfg Config

	browse browseFunc

	mu       sync.RWMutex
	printers map[string]DiscoveredPrinter

	events chan Event

	startOnce sync.Once
	stopOnce  sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	refreshRequests chan refreshRequest
}

// NewScanner creates a scanner with config defaults applied.
func NewScanner(config Config) (*Scanner, error) {
	cfg := config.withDefaults()

	browse := cfg.browseFn
	if browse == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, err
		}
		browse = resolver.Browse
	}

	return &Scanner{
		cfg:             cfg,
		browse:          browse,
		printers:        make(map[string]DiscoveredPrinter),
		events:          make(chan Event, 128),
		refreshRequests: make(chan refreshRequest),
	}, nil
}

// Start begins background scanning.
func (s *Scanner) Start() error {
	s.startOnce.Do(func() {
		s.ctx, s.cancel = context.WithCancel(context.Background())
		s.wg.Add(1)
		go s.loop()
	})
	return nil
}

// Stop stops background scanning and closes the event channel.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		close(s.events)
	})
}

// Events provides asynchronous discovery updates.
func (s *Scanner) Events() <-chan Event {
	return s.events
}

// Refresh triggers an immediate scan and waits for it to finish.
func (s *Scanner) Refresh(ctx context.Context) error {
	if s.ctx == nil {
		return errors.New("scanner is not started")
	}

	req := refreshRequest{
		ctx:  ctx,
		done: make(chan error, 1),
	}

	select {
	case s.refreshRequests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errors.New("scanner is stopped")
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errors.New("scanner is stopped")
	}
}

// ListPrinters returns the current in-memory printer snapshot.
func (s *Scanner) ListPrinters() []DiscoveredPrinter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DiscoveredPrinter, 0, len(s.printers))
	for _, printer := range s.printers {
		out = append(out, printer)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Instance < out[j].Instance
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *Scanner) loop() {
	defer s.wg.Done()

	// Prime the printer list immediately.
	s.runScan(context.Background())

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runScan(context.Background())
		case req := <-s.refreshRequests:
			req.done <- s.runScan(req.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scanner) runScan(requestCtx context.Context) error {
	scanCtx, cancel := context.WithTimeout(s.ctx, s.cfg.ScanTimeout)
	defer cancel()

	if requestCtx != nil {
		go func() {
			select {
			case <-requestCtx.Done():
				cancel()
			case <-scanCtx.Done():
			}
		}()
	}

	entries := make(chan *zeroconf.ServiceEntry, 32)
	collected := make(map[string]DiscoveredPrinter)
	var collectedMu sync.Mutex
	collectorDone := make(chan struct{})

	go func() {
		defer close(collectorDone)
		for {
			select {
			case <-scanCtx.Done():
				return
			case entry := <-entries:
				if entry == nil {
					continue
				}
				printer, ok := parseEntry(entry)
				if !ok {
					continue
				}
				printer.LastSeen = time.Now()
				collectedMu.Lock()
				collected[printer.Instance] = printer
				collectedMu.Unlock()
			}
		}
	}()

	browseErr := s.browse(scanCtx, s.cfg.Service, s.cfg.Domain, entries)
	if browseErr != nil && !errors.Is(browseErr, context.DeadlineExceeded) && !errors.Is(browseErr, context.Canceled) {
		return browseErr
	}

	<-scanCtx.Done()
	<-collectorDone
	collectedMu.Lock()
	next := collected
	collectedMu.Unlock()

	s.applySnapshot(next, time.Now())

	// A timeout just means this scan window ended naturally.
	if err := scanCtx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Scanner) applySnapshot(next map[string]DiscoveredPrinter, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.printers
	merged := make(map[string]DiscoveredPrinter, len(next))

	for instance, printer := range next {
		merged[instance] = printer
		old, exists := previous[instance]
		if !exists || !printersEqual(old, printer) {
			s.emitEvent(Event{Type: EventPrinterUpserted, Printer: printer})
		}
	}

	for instance, printer := range previous {
		if _, exists := next[instance]; exists {
			continue
		}
		if now.Sub(printer.LastSeen) < s.cfg.StaleAfter {
			merged[instance] = printer
			continue
		}
		s.emitEvent(Event{Type: EventPrinterRemoved, Printer: printer})
	}

	s.printers = merged
}

func (s *Scanner) emitEvent(event Event) {
	select {
	case s.events <- event:
	default:
	}
}

// parseEntry converts an mDNS answer into a DiscoveredPrinter. Entries
// whose TXT record does not carry type=printer are other services that
// happen to share _printer._tcp, such as AirPrint queues.
func parseEntry(entry *zeroconf.ServiceEntry) (DiscoveredPrinter, bool) {
	txt := txtToMap(entry.Text)

	if txt["type"] != "printer" {
		return DiscoveredPrinter{}, false
	}

	instance := strings.TrimSpace(entry.Instance)
	if instance == "" {
		instance = strings.TrimSpace(entry.HostName)
	}
	if instance == "" {
		return DiscoveredPrinter{}, false
	}

	address := ""
	for _, ip := range entry.AddrIPv4 {
		if ip == nil {
			continue
		}
		address = ip.String()
		break
	}
	if address == "" {
		for _, ip := range entry.AddrIPv6 {
			if ip == nil {
				continue
			}
			address = ip.String()
			break
		}
	}
	if address == "" {
		return DiscoveredPrinter{}, false
	}

	name := strings.TrimSpace(txt["name"])
	if name == "" {
		name = instance
	}

	return DiscoveredPrinter{
		Instance:   instance,
		Name:       name,
		Machine:    strings.TrimSpace(txt["machine"]),
		Firmware:   strings.TrimSpace(txt["firmware_version"]),
		Address:    address,
		Port:       entry.Port,
		Properties: txt,
	}, true
}

func txtToMap(text []string) map[string]string {
	out := make(map[string]string, len(text))
	for _, entry := range text {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(parts[1])
	}
	return out
}

func printersEqual(a, b DiscoveredPrinter) bool {
	if a.Instance != b.Instance ||
		a.Name != b.Name ||
		a.Machine != b.Machine ||
		a.Firmware != b.Firmware ||
		a.Address != b.Address ||
		a.Port != b.Port ||
		len(a.Properties) != len(b.Properties) {
		return false
	}
	for key, value := range a.Properties {
		if b.Properties[key] != value {
			return false
		}
	}
	return true
}
