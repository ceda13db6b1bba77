// Package backend composes the per-party state synchronizers and the log
// replication halves into one receive/send protocol.
//
// ReceiveFilter routes each decoded payload to the synchronizer of the party
// that owns it and propagates accepted changes to the parties that mirror
// it. Output polls MCU, frontend and file in that fixed order. SendFilter
// turns outbound events and announcements into per-party payloads.
package backend

import (
	"time"

	"github.com/pez-globo/ventserver/internal/message"
)

// Party is one participant in the shared state.
type Party uint8

const (
	PartyMCU Party = iota
	PartyFrontend
	PartyFile
	PartyLocal
)

var partyNames = [...]string{
	PartyMCU:      "mcu",
	PartyFrontend: "frontend",
	PartyFile:     "file",
	PartyLocal:    "local",
}

func (p Party) String() string {
	if int(p) < len(partyNames) {
		return partyNames[p]
	}
	return "unknown"
}

// ReceiveEvent is one inbound unit: an optional time and at most one
// decoded payload per source. Local carries state generated inside the
// backend process, such as the rotary encoder.
type ReceiveEvent struct {
	Time     time.Time
	MCU      message.Message
	Frontend message.Message
	File     message.Message
	Local    message.Message
}

// HasData reports whether the event carries a time or any payload. A
// time-only event still has data: it advances event time downstream.
func (e *ReceiveEvent) HasData() bool {
	if e == nil {
		return false
	}
	return !e.Time.IsZero() || e.MCU != nil || e.Frontend != nil || e.File != nil || e.Local != nil
}

// SendEvent is the input of SendFilter: either an OutputEvent or an
// Announcement.
type SendEvent interface {
	HasData() bool
	isSendEvent()
}

// OutputEvent holds at most one outbound message per party.
type OutputEvent struct {
	MCU      message.Message
	Frontend message.Message
	File     message.Message
}

// HasData reports whether any destination is populated.
func (e *OutputEvent) HasData() bool {
	if e == nil {
		return false
	}
	return e.MCU != nil || e.Frontend != nil || e.File != nil
}

func (*OutputEvent) isSendEvent() {}

// Announcement is an opaque payload broadcast to every party.
type Announcement struct {
	Data []byte
}

// HasData is always true, for empty payloads too: an announcement is
// always forwarded.
func (*Announcement) HasData() bool {
	return true
}

func (*Announcement) isSendEvent() {}

// GetMCUSend returns the MCU payload of an output event, or nil.
func GetMCUSend(e *OutputEvent) message.Message {
	if e == nil {
		return nil
	}
	return e.MCU
}

// GetFrontendSend returns the frontend payload of an output event, or nil.
func GetFrontendSend(e *OutputEvent) message.Message {
	if e == nil {
		return nil
	}
	return e.Frontend
}

// GetFileSend returns the file payload of an output event, or nil.
func GetFileSend(e *OutputEvent) message.Message {
	if e == nil {
		return nil
	}
	return e.File
}
