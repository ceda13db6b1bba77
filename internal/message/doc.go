// Package message defines the closed set of message kinds exchanged between
// the ventilator backend and its parties (MCU, frontend, file).
//
// Every payload is one of the concrete structs in this package and satisfies
// the sealed Message interface. The set of kinds is fixed at build time;
// routing code switches exhaustively over Kind, so adding a kind is a
// compile-visible change everywhere it matters.
//
// Timestamps inside messages are Unix milliseconds. This package imports
// nothing internal; every other package builds on it.
package message
