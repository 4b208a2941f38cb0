package device

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

// Field names of the status and cancel documents.
const (
	FieldState              = "state"
	FieldStateSince         = "state_since"
	FieldRecipient          = "recipient"
	FieldCountdownRemaining = "countdown_remaining_ms"
	FieldMagnitude          = "magnitude"
	FieldMagnitudeG         = "magnitude_g"
	FieldTicks              = "ticks"
	FieldNextCommandIndex   = "next_command_index"
	FieldUpdatedAt          = "updated_at"
	FieldLastAlert          = "last_alert"
	FieldAlertAt            = "at"
	FieldAlertAttempts      = "attempts"
	FieldAlertError         = "error"
	FieldHostname           = "hostname"
	FieldUsername           = "username"
	FieldAccepted           = "accepted"
	FieldStatus             = "status"
)

var (
	errSnapshotRequired = errors.New("status document is required")
	errActorIncomplete  = errors.New("hostname and username are required")
)

// SnapshotToStruct encodes snap as a status document.
func SnapshotToStruct(snap *fall.Snapshot) (*structpb.Struct, error) {
	if snap == nil {
		return nil, errSnapshotRequired
	}

	fields := map[string]any{
		FieldState:              snap.State.String(),
		FieldStateSince:         formatTime(snap.StateSince),
		FieldRecipient:          snap.Recipient,
		FieldCountdownRemaining: snap.CountdownRemaining.Milliseconds(),
		FieldMagnitude:          snap.Magnitude,
		FieldMagnitudeG:         snap.MagnitudeG,
		FieldTicks:              snap.Ticks,
		FieldNextCommandIndex:   snap.NextCommandIndex,
		FieldUpdatedAt:          formatTime(snap.UpdatedAt),
	}

	if a := snap.LastAlert; a != nil {
		fields[FieldLastAlert] = map[string]any{
			FieldAlertAt:       formatTime(a.At),
			FieldRecipient:     a.Recipient,
			FieldAlertAttempts: a.Attempts,
			FieldAlertError:    a.Error,
		}
	}

	doc, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return doc, nil
}

// SnapshotFromStruct decodes a status document.
func SnapshotFromStruct(doc *structpb.Struct) (*fall.Snapshot, error) {
	if doc == nil {
		return nil, errSnapshotRequired
	}

	f := doc.GetFields()

	state, err := fall.ParseState(f[FieldState].GetStringValue())
	if err != nil {
		return nil, err
	}

	snap := &fall.Snapshot{
		State:              state,
		StateSince:         parseTime(f[FieldStateSince].GetStringValue()),
		Recipient:          f[FieldRecipient].GetStringValue(),
		CountdownRemaining: time.Duration(f[FieldCountdownRemaining].GetNumberValue()) * time.Millisecond,
		Magnitude:          int64(f[FieldMagnitude].GetNumberValue()),
		MagnitudeG:         f[FieldMagnitudeG].GetNumberValue(),
		Ticks:              uint64(f[FieldTicks].GetNumberValue()),
		NextCommandIndex:   int(f[FieldNextCommandIndex].GetNumberValue()),
		UpdatedAt:          parseTime(f[FieldUpdatedAt].GetStringValue()),
	}

	if alert := f[FieldLastAlert].GetStructValue(); alert != nil {
		af := alert.GetFields()

		snap.LastAlert = &fall.AlertReport{
			At:        parseTime(af[FieldAlertAt].GetStringValue()),
			Recipient: af[FieldRecipient].GetStringValue(),
			Attempts:  int(af[FieldAlertAttempts].GetNumberValue()),
			Error:     af[FieldAlertError].GetStringValue(),
		}
	}

	return snap, nil
}

// ActorToStruct encodes a cancel request.
func ActorToStruct(actor fall.Actor) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldHostname: structpb.NewStringValue(actor.Hostname),
			FieldUsername: structpb.NewStringValue(actor.Username),
		},
	}
}

// ActorFromStruct decodes a cancel request.
func ActorFromStruct(doc *structpb.Struct) (fall.Actor, error) {
	actor := fall.Actor{
		Hostname: doc.GetFields()[FieldHostname].GetStringValue(),
		Username: doc.GetFields()[FieldUsername].GetStringValue(),
	}

	if actor.Hostname == "" || actor.Username == "" {
		return fall.Actor{}, errActorIncomplete
	}

	return actor, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
