// Package device probes the host for an accelerated compute backend used by
// batched vector math. Selection happens once at startup; the returned Device
// is immutable and passed explicitly to callers that need it.
package device

import (
	"os"
	"strings"
)

// Kind identifies the compute backend batched math runs on.
type Kind uint8

const (
	// Generic is the portable scalar fallback, always available.
	Generic Kind = iota
	// Accelerated means the host CPU supports wide vector math
	// (AVX2+FMA on amd64, ASIMD on arm64).
	Accelerated
)

func (k Kind) String() string {
	switch k {
	case Generic:
		return "generic"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// ParseKind parses a string into a Kind value.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "accelerated":
		return Accelerated, true
	default:
		return Generic, false
	}
}

// Device is the selected compute backend. Read-only after Select.
type Device struct {
	kind Kind
	isa  string
}

// Kind returns the backend kind.
func (d Device) Kind() Kind { return d.kind }

// Accelerated reports whether batched math should take the accelerated path.
func (d Device) Accelerated() bool { return d.kind == Accelerated }

// ISA names the detected instruction set ("avx2", "asimd" or "generic").
func (d Device) ISA() string { return d.isa }

func (d Device) String() string { return d.kind.String() + "/" + d.isa }

// CPU feature flags, set by the platform-specific init.
var (
	hasAVX2  bool // amd64: AVX2 + FMA
	hasASIMD bool // arm64: NEON
)

// Select probes host capability and returns the backend to use. Absence of
// acceleration is a valid outcome, never an error. The QUERYDOC_DEVICE
// environment variable forces a kind; an override the host cannot honor is
// ignored and auto-detection applies.
func Select() Device {
	if override := os.Getenv("QUERYDOC_DEVICE"); override != "" {
		if kind, ok := ParseKind(override); ok {
			if kind == Generic {
				return Device{kind: Generic, isa: "generic"}
			}
			if d, ok := accelerated(); ok {
				return d
			}
		}
	}

	if d, ok := accelerated(); ok {
		return d
	}

	return Device{kind: Generic, isa: "generic"}
}

func accelerated() (Device, bool) {
	if hasAVX2 {
		return Device{kind: Accelerated, isa: "avx2"}, true
	}
	if hasASIMD {
		return Device{kind: Accelerated, isa: "asimd"}, true
	}
	return Device{}, false
}
