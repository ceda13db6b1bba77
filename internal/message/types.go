package message

// Message is a sealed union over the message structs in this package.
type Message interface {
	Kind() Kind
	isMessage()
}

// VentilationMode selects the breathing-circuit control algorithm.
type VentilationMode uint8

const (
	ModePCAC VentilationMode = iota
	ModePCSIMV
	ModeVCAC
	ModeVCSIMV
	ModePSV
	ModeNIV
	ModeHFNC
)

// LogEventCode identifies what a log event records.
type LogEventCode uint8

const (
	CodeFiO2TooLow LogEventCode = iota
	CodeFiO2TooHigh
	CodeSpO2TooLow
	CodeSpO2TooHigh
	CodeRRTooLow
	CodeRRTooHigh
	CodeHRTooLow
	CodeHRTooHigh
	CodeModeChanged
	CodeFiO2SettingChanged
	CodeFlowSettingChanged
)

// LogEventType groups log events for display.
type LogEventType uint8

const (
	TypePatient LogEventType = iota
	TypeControl
	TypeAlarmLimits
	TypeSystem
)

// Range is an inclusive alarm band.
type Range struct {
	Lower int32 `json:"lower"`
	Upper int32 `json:"upper"`
}

// Parameters are the ventilation settings currently in effect on the MCU.
type Parameters struct {
	Time        uint64          `json:"time"`
	Ventilating bool            `json:"ventilating"`
	Mode        VentilationMode `json:"mode"`
	PEEP        float32         `json:"peep"`
	VT          float32         `json:"vt"`
	RR          float32         `json:"rr"`
	IE          float32         `json:"ie"`
	FiO2        float32         `json:"fio2"`
	Flow        float32         `json:"flow"`
	PIP         float32         `json:"pip"`
}

// ParametersRequest carries settings the operator asked for.
type ParametersRequest struct {
	Time        uint64          `json:"time"`
	Ventilating bool            `json:"ventilating"`
	Mode        VentilationMode `json:"mode"`
	PEEP        float32         `json:"peep"`
	VT          float32         `json:"vt"`
	RR          float32         `json:"rr"`
	IE          float32         `json:"ie"`
	FiO2        float32         `json:"fio2"`
	Flow        float32         `json:"flow"`
	PIP         float32         `json:"pip"`
}

// AlarmLimits are the alarm bands in effect on the MCU.
type AlarmLimits struct {
	Time uint64 `json:"time"`
	FiO2 Range  `json:"fio2"`
	Flow Range  `json:"flow"`
	SpO2 Range  `json:"spo2"`
	HR   Range  `json:"hr"`
	RR   Range  `json:"rr"`
	PIP  Range  `json:"pip"`
	PEEP Range  `json:"peep"`
}

// AlarmLimitsRequest carries alarm bands the operator asked for.
type AlarmLimitsRequest struct {
	Time uint64 `json:"time"`
	FiO2 Range  `json:"fio2"`
	Flow Range  `json:"flow"`
	SpO2 Range  `json:"spo2"`
	HR   Range  `json:"hr"`
	RR   Range  `json:"rr"`
	PIP  Range  `json:"pip"`
	PEEP Range  `json:"peep"`
}

// SensorMeasurements is one sample of the patient-side sensors.
type SensorMeasurements struct {
	Time   uint64  `json:"time"`
	Cycle  uint32  `json:"cycle"`
	FiO2   float32 `json:"fio2"`
	Flow   float32 `json:"flow"`
	SpO2   float32 `json:"spo2"`
	HR     float32 `json:"hr"`
	Paw    float32 `json:"paw"`
	Volume float32 `json:"volume"`
}

// CycleMeasurements summarizes the last completed breath cycle.
type CycleMeasurements struct {
	Time uint64  `json:"time"`
	VT   float32 `json:"vt"`
	RR   float32 `json:"rr"`
	PEEP float32 `json:"peep"`
	PIP  float32 `json:"pip"`
	IP   float32 `json:"ip"`
	VE   float32 `json:"ve"`
}

// Alarms carries the MCU's raw alarm flags.
type Alarms struct {
	Time     uint64 `json:"time"`
	AlarmOne bool   `json:"alarm_one"`
	AlarmTwo bool   `json:"alarm_two"`
}

// LogEvent is one entry of the append-only event log. It is not a Kind of
// its own; it only travels inside NextLogEvents.
type LogEvent struct {
	ID       uint32       `json:"id"`
	Time     uint64       `json:"time"`
	Code     LogEventCode `json:"code"`
	Type     LogEventType `json:"type"`
	OldValue float32      `json:"old_value"`
	NewValue float32      `json:"new_value"`
}

// ExpectedLogEvent acknowledges log replication: ID is the next event id the
// consumer expects, so every id below it has been received.
type ExpectedLogEvent struct {
	ID        uint32 `json:"id"`
	SessionID string `json:"session_id"`
}

// NextLogEvents is one segment of the replicated event log.
type NextLogEvents struct {
	Seq          uint64     `json:"seq"`
	SessionID    string     `json:"session_id"`
	Reset        bool       `json:"reset"`
	NextExpected uint32     `json:"next_expected"`
	Total        uint32     `json:"total"`
	Remaining    uint32     `json:"remaining"`
	Elements     []LogEvent `json:"elements"`
}

// ActiveLogEvents lists the ids of alarms that are currently active.
type ActiveLogEvents struct {
	IDs []uint32 `json:"ids"`
}

// Ping is the frontend heartbeat.
type Ping struct {
	Time uint64 `json:"time"`
	ID   uint32 `json:"id"`
}

// Announcement is an opaque broadcast payload.
type Announcement struct {
	Announcement []byte `json:"announcement"`
}

// RotaryEncoder is the debounced state of the physical input knob.
type RotaryEncoder struct {
	Step           int32  `json:"step"`
	LastStepChange uint64 `json:"last_step_change"`
	ButtonPressed  bool   `json:"button_pressed"`
	LastButtonDown uint64 `json:"last_button_down"`
	LastButtonUp   uint64 `json:"last_button_up"`
}

func (*Alarms) Kind() Kind             { return KindAlarms }
func (*SensorMeasurements) Kind() Kind { return KindSensorMeasurements }
func (*CycleMeasurements) Kind() Kind  { return KindCycleMeasurements }
func (*Parameters) Kind() Kind         { return KindParameters }
func (*ParametersRequest) Kind() Kind  { return KindParametersRequest }
func (*Ping) Kind() Kind               { return KindPing }
func (*Announcement) Kind() Kind       { return KindAnnouncement }
func (*AlarmLimits) Kind() Kind        { return KindAlarmLimits }
func (*AlarmLimitsRequest) Kind() Kind { return KindAlarmLimitsRequest }
func (*ExpectedLogEvent) Kind() Kind   { return KindExpectedLogEvent }
func (*NextLogEvents) Kind() Kind      { return KindNextLogEvents }
func (*ActiveLogEvents) Kind() Kind    { return KindActiveLogEvents }
func (*RotaryEncoder) Kind() Kind      { return KindRotaryEncoder }

func (*Alarms) isMessage()             {}
func (*SensorMeasurements) isMessage() {}
func (*CycleMeasurements) isMessage()  {}
func (*Parameters) isMessage()         {}
func (*ParametersRequest) isMessage()  {}
func (*Ping) isMessage()               {}
func (*Announcement) isMessage()       {}
func (*AlarmLimits) isMessage()        {}
func (*AlarmLimitsRequest) isMessage() {}
func (*ExpectedLogEvent) isMessage()   {}
func (*NextLogEvents) isMessage()      {}
func (*ActiveLogEvents) isMessage()    {}
func (*RotaryEncoder) isMessage()      {}
