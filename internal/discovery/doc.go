// Package discovery finds printers on the local network via mDNS.
//
// # Overview
//
// Networked printers announce themselves as _printer._tcp services in the
// local. domain. This package browses for those announcements and maintains
// an in-memory table of the printers currently visible, so the fleet manager
// can connect to machines without any address configuration.
//
// The announcement for a printer looks like:
//
//	instance:  ultimakersystem-ccbdd3001234._printer._tcp.local.
//	port:      80
//	txt:       type=printer
//	           name=U1
//	           machine=9066.0
//	           firmware_version=4.3.3.20180529
//	           hotend_type_0=AA 0.4
//
// The _printer._tcp service type is shared with ordinary network print
// queues (AirPrint and friends), so only entries whose TXT record carries
// type=printer qualify. Everything else is ignored.
//
// # Scan Model
//
// The Scanner runs one background goroutine that opens a browse window of
// ScanTimeout every RefreshInterval. Each window collects the entries that
// answer within it into a fresh snapshot, which is then merged with the
// previous table:
//
//   - New or changed printers trigger EventPrinterUpserted.
//   - Printers absent from the window are kept until they have gone unseen
//     for StaleAfter, then dropped with EventPrinterRemoved.
//
// The grace period matters because mDNS answers are best-effort multicast:
// a printer missing one window is usually still there, and flapping the
// fleet table on every missed answer would be worse than a short delay in
// noticing a real shutdown.
//
// # Events
//
// Events() exposes a buffered channel of table changes. Delivery is
// best-effort: if the consumer falls behind, events are dropped rather than
// blocking the scan loop. Consumers needing a complete view should call
// ListPrinters() rather than replaying events.
//
// Refresh() forces an immediate scan window and waits for it to finish,
// which the UI uses for a manual rescan keybinding.
//
// # Identity
//
// Printers are keyed by mDNS instance name, which encodes the machine's
// hardware identity and survives DHCP address changes. The announced TXT
// name is the human-readable label shown in the fleet table.
package discovery
