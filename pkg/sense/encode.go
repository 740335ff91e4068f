/*
Copyright 2016 The sbctgt Authors All rights reserved.

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

package sense

import "github.com/gostor/sbctgt/pkg/util"

// Status is a SAM status code (SAM-5 table 31).
type Status byte

const (
	StatusGood            Status = 0x00
	StatusCheckCondition  Status = 0x02
	StatusBusy            Status = 0x08
	StatusReservationConf Status = 0x18
	StatusTaskAborted     Status = 0x40
)

// fixed- and descriptor-format response codes, SPC-4 table 44.
const (
	responseCodeFixedCurrent  byte = 0x70
	responseCodeFixedDeferred byte = 0x71
	responseCodeDescCurrent   byte = 0x72
	responseCodeDescDeferred  byte = 0x73
)

// FixedFormatLength is the minimum fixed sense block size this encoder
// always produces (SPC-4 §4.5.2).
const FixedFormatLength = 18

// DescriptorFormatLength is the minimum descriptor sense block size this
// encoder always produces (SPC-4 §4.5.3).
const DescriptorFormatLength = 8

// Encode renders e as SCSI sense data. descriptor selects descriptor
// format (SPC-4 §4.5.3); fixed format (§4.5.2) is the default used
// elsewhere in this package and the spec.
func Encode(e *Exception, descriptor bool, deferred bool) []byte {
	if descriptor {
		return encodeDescriptor(e, deferred)
	}
	return encodeFixed(e, deferred)
}

func encodeFixed(e *Exception, deferred bool) []byte {
	b := make([]byte, FixedFormatLength)
	if deferred {
		b[0] = responseCodeFixedDeferred
	} else {
		b[0] = responseCodeFixedCurrent
	}
	b[2] = byte(e.Key) & 0x0f
	b[7] = byte(FixedFormatLength - 8) // additional sense length
	b[12] = e.ASC
	b[13] = e.ASCQ
	if fp := e.FieldPointer; fp != nil {
		b[15] = 0x80 // SKSV
		if fp.CommandData {
			b[15] |= 0x40 // C/D
		}
		if fp.BitValid {
			b[15] |= 0x08 // BPV
			b[15] |= byte(fp.Bit) & 0x07
		}
		util.PutUnalignedUint16(b[16:18], uint16(fp.Byte))
	}
	return b
}

func encodeDescriptor(e *Exception, deferred bool) []byte {
	b := make([]byte, DescriptorFormatLength)
	if deferred {
		b[0] = responseCodeDescDeferred
	} else {
		b[0] = responseCodeDescCurrent
	}
	b[1] = byte(e.Key) & 0x0f
	b[2] = e.ASC
	b[3] = e.ASCQ
	return b
}

// StatusFor maps a raised sense exception (or its absence) to the SAM
// status the dispatcher must report on the response PDU.
func StatusFor(err error) Status {
	if err == nil {
		return StatusGood
	}
	if _, ok := err.(*Exception); ok {
		return StatusCheckCondition
	}
	return StatusCheckCondition
}
