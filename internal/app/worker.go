package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/five82/hotend/internal/ultimaker"
)

const (
	defaultPollInterval = 5 * time.Second
	// pollBudget bounds one whole poll cycle, which may span several
	// HTTP requests against the printer.
	pollBudget = 10 * time.Second
	maxBackoff = 30 * time.Second
)

// Command is a device action routed to a printer's worker.
type Command interface {
	isCommand()
}

// BeepCommand plays a tone on the printer, which helps tell fleet
// members apart on a crowded shelf.
type BeepCommand struct {
	FrequencyHz float64
	Duration    time.Duration
}

func (BeepCommand) isCommand() {}

// MessageCommand shows a message with a confirmation button on the
// printer's screen.
type MessageCommand struct {
	Message string
	Button  string
}

func (MessageCommand) isCommand() {}

// runWorker is the single owner of one printer connection. It restores
// persisted credentials, polls the printer at a backoff-adjusted
// cadence, publishes results to the store, and executes UI commands.
func (m *Manager) runWorker(ctx context.Context, r *runner) {
	defer m.wg.Done()
	defer close(r.done)

	label := fmt.Sprintf("[worker %s]", r.key)
	attached := m.creds == nil
	wasPairing := false
	wasOffline := false
	failures := 0

	for {
		// Attaching needs the printer's GUID, so it keeps failing
		// until the machine is reachable at least once.
		if !attached {
			attachCtx, cancel := context.WithTimeout(ctx, pollBudget)
			err := r.printer.AttachStore(attachCtx, m.creds)
			cancel()
			if err == nil {
				attached = true
				if _, ok := r.printer.Auth().Credentials(); ok {
					log.Printf("%s credentials restored", label)
				}
			}
		}

		// While a pairing request is on the printer screen, ask what
		// the operator decided. One check per cycle, no blocking wait.
		if r.printer.Auth().State() == ultimaker.AuthPendingApproval {
			checkCtx, cancel := context.WithTimeout(ctx, pollBudget)
			status, err := r.printer.Auth().CheckAuthorized(checkCtx)
			cancel()
			if err == nil && status == ultimaker.Authorized {
				log.Printf("%s pairing approved", label)
			}
		}

		pollCtx, cancel := context.WithTimeout(ctx, pollBudget)
		snap, err := r.printer.Snapshot(pollCtx)
		cancel()

		m.store.UpdatePoll(r.key, &snap, r.printer.Auth().State(), err)

		pairing := errors.Is(err, ultimaker.ErrPairingRequired) || errors.Is(err, ultimaker.ErrAuthRejected)
		switch {
		case pairing && !wasPairing:
			log.Printf("%s %v", label, err)
		case err != nil && !pairing:
			log.Printf("%s poll failed: %v", label, err)
		}
		wasPairing = pairing

		// Pairing answers prove the printer is up; keep polling briskly
		// so approval is noticed soon after the operator confirms.
		switch {
		case err == nil && !snap.Degraded:
			failures = 0
		case pairing:
			failures = 0
		default:
			failures++
		}

		if entry, ok := m.store.Printer(r.key); ok {
			if entry.IsOffline() && !wasOffline {
				log.Printf("%s printer unreachable", label)
			} else if wasOffline && !entry.IsOffline() {
				log.Printf("%s printer back online", label)
			}
			wasOffline = entry.IsOffline()
		}

		select {
		case <-ctx.Done():
			return
		case cmd := <-r.commands:
			m.execute(ctx, r, cmd)
		case <-time.After(calculateBackoff(failures, m.interval)):
		}
	}
}

func (m *Manager) execute(ctx context.Context, r *runner, cmd Command) {
	label := fmt.Sprintf("[worker %s]", r.key)
	cmdCtx, cancel := context.WithTimeout(ctx, pollBudget)
	defer cancel()

	switch c := cmd.(type) {
	case BeepCommand:
		if err := r.printer.Beep(cmdCtx, c.FrequencyHz, c.Duration); err != nil {
			log.Printf("%s beep failed: %v", label, err)
			return
		}
		log.Printf("%s beeped at %.0f Hz", label, c.FrequencyHz)
	case MessageCommand:
		if err := r.printer.DisplayMessage(cmdCtx, c.Message, c.Button); err != nil {
			log.Printf("%s display message failed: %v", label, err)
			return
		}
		log.Printf("%s message sent to printer screen", label)
	default:
		log.Printf("%s dropped unknown command %T", label, cmd)
	}
}

// calculateBackoff returns the wait before the next poll: the base
// interval doubled per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
