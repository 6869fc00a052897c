// Package safety implements the persistent fault capture, component
// registry, dual-core watchdog arbitration, and consecutive-fault
// escalation described in spec.md §4.1-4.5 (components C1-C7).
package safety

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Text field bounds from spec.md §3, in bytes, truncation always
// null-terminates.
const (
	descriptionLen = 128
	functionLen    = 64
	fileLen        = 128
	taskNameLen    = 16
)

// Kind enumerates the fault taxonomy of spec.md §7.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindAssertSupervisor
	KindStackOverflow
	KindAllocFailed
	KindAssertStandard
	KindAssertHAL
	KindHardwareFault
	KindIntercoreFault
	KindMemoryCorruption
	KindInvalidState
	KindResourceExhausted
	KindWatchdogTimeout
	KindActivationFailed
)

var kindNames = [...]string{
	"unknown",
	"assert-supervisor",
	"stack-overflow",
	"alloc-failed",
	"assert-standard",
	"assert-hal",
	"hardware-fault",
	"intercore-fault",
	"memory-corruption",
	"invalid-state",
	"resource-exhausted",
	"watchdog-timeout",
	"activation-failed",
}

// String renders the fault kind for logging and the Safety Monitor console.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// StackInfo is the advisory stack snapshot from spec.md §3. Fields other
// than IsValid must be treated as advisory whenever IsValid is false, per
// the §9 Open Question about heuristic stack estimation on the secondary
// core and inside interrupt context.
type StackInfo struct {
	Size          uint32
	Used          uint32
	Remaining     uint32
	HighWaterMark uint32
	IsMainStack   bool
	IsValid       bool
}

func fixedText(n int, s string) []byte {
	b := make([]byte, n)
	copy(b, s)
	if len(s) >= n {
		b[n-1] = 0
	}
	return b
}

func textOf(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// FaultRecord is the fixed-size, trivially-copyable fault snapshot of
// spec.md §3. All text fields are fixed-length byte buffers so a FaultRecord
// can be copied verbatim into persistent RAM without heap allocation —
// exactly the "never on the stack, never on the heap" discipline §4.3
// demands of the reporter.
type FaultRecord struct {
	TimestampMs uint64
	CoreID      uint8
	Kind        Kind

	sourceFile     [fileLen]byte
	sourceLine     uint32
	sourceFunction [functionLen]byte
	description    [descriptionLen]byte

	TaskHandle uint32
	taskName   [taskNameLen]byte

	HeapFreeBytes    uint32
	HeapMinFreeBytes uint32

	InInterrupt     bool
	InterruptNumber uint32

	Stack StackInfo
}

// SourceFile returns the bounded source file text.
func (r *FaultRecord) SourceFile() string { return textOf(r.sourceFile[:]) }

// SetSourceFile truncates and null-terminates file into the bounded buffer.
func (r *FaultRecord) SetSourceFile(file string) { r.sourceFile = [fileLen]byte(fixedText(fileLen, file)) }

// SourceLine returns the captured source line.
func (r *FaultRecord) SourceLine() uint32 { return r.sourceLine }

// SourceFunction returns the bounded source function text.
func (r *FaultRecord) SourceFunction() string { return textOf(r.sourceFunction[:]) }

// SetSourceFunction truncates and null-terminates function into the bounded
// buffer.
func (r *FaultRecord) SetSourceFunction(function string) {
	r.sourceFunction = [functionLen]byte(fixedText(functionLen, function))
}

// Description returns the bounded description text.
func (r *FaultRecord) Description() string { return textOf(r.description[:]) }

// SetDescription truncates and null-terminates description into the bounded
// buffer.
func (r *FaultRecord) SetDescription(description string) {
	r.description = [descriptionLen]byte(fixedText(descriptionLen, description))
}

// TaskName returns the bounded task name text.
func (r *FaultRecord) TaskName() string { return textOf(r.taskName[:]) }

// SetTaskName truncates and null-terminates name into the bounded buffer.
func (r *FaultRecord) SetTaskName(name string) { r.taskName = [taskNameLen]byte(fixedText(taskNameLen, name)) }

// GobEncode implements gob.GobEncoder. FaultRecord carries unexported fixed
// arrays for its bounded text fields (see fixedText), which plain gob
// reflection silently drops; encoding the whole value with encoding/binary
// instead preserves every byte, matching the "trivially-copyable" fixed
// layout spec.md §3 describes.
func (r FaultRecord) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, the inverse of GobEncode. Fields are
// read one at a time, in declaration order, because encoding/binary cannot
// set unexported fields through the enclosing struct.
func (r *FaultRecord) GobDecode(data []byte) error {
	rd := bytes.NewReader(data)
	for _, f := range []any{&r.TimestampMs, &r.CoreID, &r.Kind, &r.sourceFile, &r.sourceLine,
		&r.sourceFunction, &r.description, &r.TaskHandle, &r.taskName, &r.HeapFreeBytes,
		&r.HeapMinFreeBytes, &r.InInterrupt, &r.InterruptNumber, &r.Stack} {
		if err := binary.Read(rd, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

// NewFaultRecord builds a FaultRecord, truncating text fields that exceed
// their §3 bounds.
func NewFaultRecord(timestampMs uint64, core uint8, kind Kind, file string, line int, function, description string) FaultRecord {
	var r FaultRecord
	r.TimestampMs = timestampMs
	r.CoreID = core
	r.Kind = kind
	r.SetSourceFile(file)
	r.sourceLine = uint32(line)
	r.SetSourceFunction(function)
	r.SetDescription(description)
	return r
}
