package ultimaker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Identity names this installation to the printer. The printer shows both
// values on its screen when asking the operator to approve a pairing request.
type Identity struct {
	Application string
	User        string
}

// Credentials is a printer-issued id/key pair used for digest authorization.
type Credentials struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// AuthState tracks the pairing lifecycle of a connection's credentials.
type AuthState int

const (
	// AuthNoCredential means no credential is held for the printer.
	AuthNoCredential AuthState = iota
	// AuthPendingApproval means a credential was issued but the operator has
	// not approved it on the printer's screen yet.
	AuthPendingApproval
	// AuthVerified means the printer confirmed the credential as usable.
	AuthVerified
	// AuthRejected means the credential was explicitly rejected. Terminal for
	// the current credential; Reset discards it and starts over.
	AuthRejected
)

func (s AuthState) String() string {
	switch s {
	case AuthNoCredential:
		return "no_credential"
	case AuthPendingApproval:
		return "pending_approval"
	case AuthVerified:
		return "verified"
	case AuthRejected:
		return "rejected"
	default:
		return fmt.Sprintf("auth_state(%d)", int(s))
	}
}

// ApprovalStatus is the printer's answer to an authorization check.
type ApprovalStatus string

const (
	Authorized   ApprovalStatus = "authorized"
	Unauthorized ApprovalStatus = "unauthorized"
	// UnknownApproval covers the printer's literal "unknown" answer (the
	// approval dialog is still open) and any answer this package does not
	// recognize.
	UnknownApproval ApprovalStatus = "unknown"
)

// PrinterStatus is the printer's top-level state from GET printer/status.
// Unrecognized values pass through untouched so newer firmware keeps working.
type PrinterStatus string

const (
	StatusIdle        PrinterStatus = "idle"
	StatusPrinting    PrinterStatus = "printing"
	StatusError       PrinterStatus = "error"
	StatusMaintenance PrinterStatus = "maintenance"
	StatusBooting     PrinterStatus = "booting"
)

// PrintJobState is the lifecycle state of a print job.
type PrintJobState string

const (
	JobNone           PrintJobState = "none"
	JobPrePrint       PrintJobState = "pre_print"
	JobPrinting       PrintJobState = "printing"
	JobPausing        PrintJobState = "pausing"
	JobPaused         PrintJobState = "paused"
	JobResuming       PrintJobState = "resuming"
	JobPostPrint      PrintJobState = "post_print"
	JobWaitCleanup    PrintJobState = "wait_cleanup"
	JobWaitUserAction PrintJobState = "wait_user_action"
)

// timestampLayout matches the printer's datetime fields, for example
// "2018-10-10T00:46:40.776Z". The trailing Z is literal; values are UTC.
const timestampLayout = "2006-01-02T15:04:05.999999Z"

// PrintJob is the fully typed form of the printer's print_job object.
type PrintJob struct {
	TimeElapsed         time.Duration
	TimeTotal           time.Duration
	Started             time.Time
	Finished            time.Time
	Cleaned             time.Time
	Source              string
	SourceUser          string
	SourceApplication   string
	Name                string
	UUID                uuid.UUID
	ReprintOriginalUUID uuid.UUID
	State               PrintJobState
	Progress            float64
	PauseSource         string
	Result              string
}

// printJobWire mirrors the JSON shape. Durations arrive as seconds,
// timestamps and uuids as strings; ParsePrintJob converts field by field.
type printJobWire struct {
	TimeElapsed         float64 `json:"time_elapsed"`
	TimeTotal           float64 `json:"time_total"`
	DatetimeStarted     string  `json:"datetime_started"`
	DatetimeFinished    string  `json:"datetime_finished"`
	DatetimeCleaned     string  `json:"datetime_cleaned"`
	Source              string  `json:"source"`
	SourceUser          string  `json:"source_user"`
	SourceApplication   string  `json:"source_application"`
	Name                string  `json:"name"`
	UUID                string  `json:"uuid"`
	ReprintOriginalUUID string  `json:"reprint_original_uuid"`
	State               string  `json:"state"`
	Progress            float64 `json:"progress"`
	PauseSource         string  `json:"pause_source"`
	Result              string  `json:"result"`
}

// ParsePrintJob decodes a print_job payload into its typed form. A value
// that cannot be converted to its field's documented type yields a
// *PrintJobFieldError naming the wire field.
func ParsePrintJob(data []byte) (PrintJob, error) {
	var w printJobWire
	if err := json.Unmarshal(data, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return PrintJob{}, &PrintJobFieldError{Field: typeErr.Field, Err: err}
		}
		return PrintJob{}, fmt.Errorf("decode print job: %w", err)
	}

	job := PrintJob{
		TimeElapsed:       secondsToDuration(w.TimeElapsed),
		TimeTotal:         secondsToDuration(w.TimeTotal),
		Source:            w.Source,
		SourceUser:        w.SourceUser,
		SourceApplication: w.SourceApplication,
		Name:              w.Name,
		State:             PrintJobState(w.State),
		Progress:          w.Progress,
		PauseSource:       w.PauseSource,
		Result:            w.Result,
	}
	var err error
	if job.Started, err = parseTimestamp(w.DatetimeStarted); err != nil {
		return PrintJob{}, &PrintJobFieldError{Field: "datetime_started", Err: err}
	}
	if job.Finished, err = parseTimestamp(w.DatetimeFinished); err != nil {
		return PrintJob{}, &PrintJobFieldError{Field: "datetime_finished", Err: err}
	}
	if job.Cleaned, err = parseTimestamp(w.DatetimeCleaned); err != nil {
		return PrintJob{}, &PrintJobFieldError{Field: "datetime_cleaned", Err: err}
	}
	if job.UUID, err = parseUUID(w.UUID); err != nil {
		return PrintJob{}, &PrintJobFieldError{Field: "uuid", Err: err}
	}
	if job.ReprintOriginalUUID, err = parseUUID(w.ReprintOriginalUUID); err != nil {
		return PrintJob{}, &PrintJobFieldError{Field: "reprint_original_uuid", Err: err}
	}
	return job, nil
}

// Strings renders every field in its human-readable display form, keyed by
// the wire field name.
func (j PrintJob) Strings() map[string]string {
	return map[string]string{
		"time_elapsed":          j.TimeElapsed.String(),
		"time_total":            j.TimeTotal.String(),
		"datetime_started":      formatTimestamp(j.Started),
		"datetime_finished":     formatTimestamp(j.Finished),
		"datetime_cleaned":      formatTimestamp(j.Cleaned),
		"source":                j.Source,
		"source_user":           j.SourceUser,
		"source_application":    j.SourceApplication,
		"name":                  j.Name,
		"uuid":                  formatUUID(j.UUID),
		"reprint_original_uuid": formatUUID(j.ReprintOriginalUUID),
		"state":                 string(j.State),
		"progress":              strconv.FormatFloat(j.Progress, 'g', -1, 64),
		"pause_source":          j.PauseSource,
		"result":                j.Result,
	}
}

// secondsToDuration converts the printer's fractional seconds to a Duration.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// parseTimestamp parses a printer datetime. Jobs that have not reached a
// phase report the empty string, which maps to the zero time.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(timestampLayout, value)
}

// parseUUID parses a printer uuid field. The empty string maps to uuid.Nil;
// reprint_original_uuid is empty for first prints.
func parseUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(value)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func formatUUID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
