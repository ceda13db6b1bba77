package message

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Kind identifies a message schema. Values double as the one-byte type code
// used on the wire, so they must never be renumbered.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindAlarms
	KindSensorMeasurements
	KindCycleMeasurements
	KindParameters
	KindParametersRequest
	KindPing
	KindAnnouncement
	KindAlarmLimits
	KindAlarmLimitsRequest
	KindExpectedLogEvent
	KindNextLogEvents
	KindActiveLogEvents
	KindRotaryEncoder

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:            "Unknown",
	KindAlarms:             "Alarms",
	KindSensorMeasurements: "SensorMeasurements",
	KindCycleMeasurements:  "CycleMeasurements",
	KindParameters:         "Parameters",
	KindParametersRequest:  "ParametersRequest",
	KindPing:               "Ping",
	KindAnnouncement:       "Announcement",
	KindAlarmLimits:        "AlarmLimits",
	KindAlarmLimitsRequest: "AlarmLimitsRequest",
	KindExpectedLogEvent:   "ExpectedLogEvent",
	KindNextLogEvents:      "NextLogEvents",
	KindActiveLogEvents:    "ActiveLogEvents",
	KindRotaryEncoder:      "RotaryEncoder",
}

// String returns the kind's schema name, e.g. "ParametersRequest".
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k names a real schema.
func (k Kind) Valid() bool {
	return k > KindUnknown && k < kindCount
}

// Kinds returns every valid kind in type-code order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind resolves a schema name to its Kind. Matching ignores case,
// underscores and hyphens, so "ParametersRequest", "parametersrequest" and
// "parameters_request" all resolve to KindParametersRequest.
func ParseKind(name string) (Kind, error) {
	// A Caser keeps internal state, so each call gets its own.
	fold := cases.Fold()
	want := fold.String(foldSeparators.Replace(name))
	for k := KindUnknown + 1; k < kindCount; k++ {
		if fold.String(kindNames[k]) == want {
			return k, nil
		}
	}
	return KindUnknown, &DataError{
		Code:    ErrCodeUnknownKind,
		Message: fmt.Sprintf("unknown message kind %q", name),
	}
}

var foldSeparators = strings.NewReplacer("_", "", "-", "")

// New returns a zero-valued message of the given kind, ready to be decoded
// into.
func New(kind Kind) (Message, error) {
	switch kind {
	case KindAlarms:
		return &Alarms{}, nil
	case KindSensorMeasurements:
		return &SensorMeasurements{}, nil
	case KindCycleMeasurements:
		return &CycleMeasurements{}, nil
	case KindParameters:
		return &Parameters{}, nil
	case KindParametersRequest:
		return &ParametersRequest{}, nil
	case KindPing:
		return &Ping{}, nil
	case KindAnnouncement:
		return &Announcement{}, nil
	case KindAlarmLimits:
		return &AlarmLimits{}, nil
	case KindAlarmLimitsRequest:
		return &AlarmLimitsRequest{}, nil
	case KindExpectedLogEvent:
		return &ExpectedLogEvent{}, nil
	case KindNextLogEvents:
		return &NextLogEvents{}, nil
	case KindActiveLogEvents:
		return &ActiveLogEvents{}, nil
	case KindRotaryEncoder:
		return &RotaryEncoder{}, nil
	case KindUnknown, kindCount:
	}
	return nil, &DataError{
		Code:    ErrCodeUnknownKind,
		Kind:    kind,
		Message: fmt.Sprintf("no schema for %s", kind),
	}
}
