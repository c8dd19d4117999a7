// Package credstore persists printer pairing credentials across restarts.
//
// Pairing is expensive in human terms: someone has to walk to the printer
// and press a button on its screen. The store keeps each approved id/key
// pair in a small SQLite database keyed by the printer's system GUID, so a
// printer that was paired once stays paired for every later session, even
// when its DHCP address moves around.
//
// Schema changes append to the migrations slice; PRAGMA user_version records
// how many have been applied, so existing databases upgrade in place.
//
// The auth engine consumes this through ultimaker.CredentialStore and treats
// writes as best effort; callers that care about write failures (none do
// today) can use the returned errors directly.
package credstore
