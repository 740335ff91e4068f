/*
Copyright 2015 The sbctgt Authors All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sense implements the SCSI sense-key/ASC/ASCQ error taxonomy and
// its fixed/descriptor wire encoding (SPC-4 §4.5). It collapses the
// checked-exception hierarchy of the original jSCSI target
// (LogicalBlockAddressOutOfRangeException, SynchronousDataTransferError-
// Exception, ...) into a single error type carrying structured sense
// fields.
package sense

import "fmt"

// Key is a SCSI sense key (SPC-4 table 27).
type Key byte

const (
	NoSense        Key = 0x00
	RecoveredError Key = 0x01
	NotReady       Key = 0x02
	MediumError    Key = 0x03
	HardwareError  Key = 0x04
	IllegalRequest Key = 0x05
	UnitAttention  Key = 0x06
	DataProtect    Key = 0x07
	BlankCheck     Key = 0x08
	AbortedCommand Key = 0x0b
	Miscompare     Key = 0x0e
)

// ASC/ASCQ pairs used at the core's raise sites (§7 of the spec).
const (
	ascLBAOutOfRange       uint16 = 0x2100
	ascInvalidFieldInCDB   uint16 = 0x2400
	ascInvalidOpCode       uint16 = 0x2000
	ascWriteError          uint16 = 0x0c00
	ascReadError           uint16 = 0x1100
	ascDeviceNotReady      uint16 = 0x0400
	ascInternalTgtFailure  uint16 = 0x4400
)

// FieldPointer identifies the offending byte (and optionally bit) within a
// CDB, reported in the sense-key-specific field of a fixed-format sense
// block. Grounded on the original's distinct WRITE6 vs WRITE10/12/16 field
// pointer forms (see DESIGN.md Open Question (a)).
type FieldPointer struct {
	Byte        int
	Bit         int
	BitValid    bool
	CommandData bool // true: field is in the CDB, false: in the parameter list
}

// Exception is the SCSI sense error raised by the core at a failure site.
// It implements error and carries everything the encoder needs to produce
// a CHECK CONDITION response.
type Exception struct {
	Key          Key
	ASC          byte
	ASCQ         byte
	FieldPointer *FieldPointer
	// Additional wraps a lower-layer error (e.g. the original leaf error
	// surfaced by the striped device as InternalTargetFailure).
	Additional error
}

func (e *Exception) Error() string {
	if e.Additional != nil {
		return fmt.Sprintf("sense key %02xh ASC/ASCQ %02x/%02xh: %v", byte(e.Key), e.ASC, e.ASCQ, e.Additional)
	}
	return fmt.Sprintf("sense key %02xh ASC/ASCQ %02x/%02xh", byte(e.Key), e.ASC, e.ASCQ)
}

func (e *Exception) Unwrap() error { return e.Additional }

func ascParts(v uint16) (byte, byte) {
	return byte(v >> 8), byte(v)
}

// LogicalBlockAddressOutOfRange is raised by the buffered task engine's
// range check (spec §4.2 step 3). fp is reported in the sense-key-specific
// bytes: the task engine passes CDB byte 2 for the 10/12/16-byte forms and
// {bit 4, byte 1} for the 6-byte forms. A nil fp reports no field pointer.
func LogicalBlockAddressOutOfRange(fp *FieldPointer) *Exception {
	asc, ascq := ascParts(ascLBAOutOfRange)
	return &Exception{Key: IllegalRequest, ASC: asc, ASCQ: ascq, FieldPointer: fp}
}

// InvalidFieldInCDB is raised by the CDB codec when a command block cannot
// be parsed (spec §4.1).
func InvalidFieldInCDB(byteOffset int) *Exception {
	asc, ascq := ascParts(ascInvalidFieldInCDB)
	return &Exception{
		Key:  IllegalRequest,
		ASC:  asc,
		ASCQ: ascq,
		FieldPointer: &FieldPointer{
			Byte:        byteOffset,
			CommandData: true,
		},
	}
}

// InvalidCommandOperationCode is raised by the dispatcher for an opcode it
// has no task for.
func InvalidCommandOperationCode() *Exception {
	asc, ascq := ascParts(ascInvalidOpCode)
	return &Exception{Key: IllegalRequest, ASC: asc, ASCQ: ascq}
}

// SynchronousDataTransferError is raised when the transport port returns a
// short or failed pull/push during a data phase (spec §4.2 steps 6-7).
func SynchronousDataTransferError(write bool) *Exception {
	code := ascReadError
	if write {
		code = ascWriteError
	}
	asc, ascq := ascParts(code)
	return &Exception{Key: MediumError, ASC: asc, ASCQ: ascq}
}

// TaskAborted is raised when a cancellation is observed between task
// phases (spec §5 Cancellation).
func TaskAborted() *Exception {
	return &Exception{Key: AbortedCommand, ASC: 0x00, ASCQ: 0x00}
}

// DeviceNotReady is raised when a task runs against a closed device
// (spec §3 Block Device invariants).
func DeviceNotReady() *Exception {
	asc, ascq := ascParts(ascDeviceNotReady)
	return &Exception{Key: NotReady, ASC: asc, ASCQ: ascq}
}

// InternalTargetFailure is the composite error the striped device surfaces
// when a leaf I/O fails; the original leaf error is attached as Additional
// (spec §7 Propagation policy).
func InternalTargetFailure(leafErr error) *Exception {
	asc, ascq := ascParts(ascInternalTgtFailure)
	return &Exception{Key: HardwareError, ASC: asc, ASCQ: ascq, Additional: leafErr}
}
