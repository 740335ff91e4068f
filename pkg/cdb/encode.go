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

package cdb

import (
	"fmt"

	"github.com/gostor/sbctgt/pkg/util"
)

// Encode serializes a CDB back to its wire form. It is the inverse of
// Decode for every well-formed value Decode can produce (spec §8
// invariant 1).
func Encode(c CDB) ([]byte, error) {
	switch v := c.(type) {
	case TestUnitReady:
		b := make([]byte, 6)
		b[0] = byte(v.opcode)
		b[5] = encodeControl(v.control)
		return b, nil
	case Inquiry:
		b := make([]byte, 6)
		b[0] = byte(v.opcode)
		if v.evpd {
			b[1] = 0x01
		}
		b[2] = v.pageCode
		util.PutUnalignedUint16(b[3:5], v.allocationLength)
		b[5] = encodeControl(v.control)
		return b, nil
	case ReportLuns:
		b := make([]byte, 12)
		b[0] = byte(v.opcode)
		b[2] = v.selectReport
		util.PutUnalignedUint32(b[6:10], v.allocationLength)
		b[11] = encodeControl(v.control)
		return b, nil
	case Read6:
		return encodeTransfer6(v.transfer), nil
	case Write6:
		return encodeTransfer6(v.transfer), nil
	case Read10:
		return encodeTransfer10(v.transfer), nil
	case Write10:
		return encodeTransfer10(v.transfer), nil
	case Read12:
		return encodeTransfer12(v.transfer), nil
	case Write12:
		return encodeTransfer12(v.transfer), nil
	case Read16:
		return encodeTransfer16(v.transfer), nil
	case Write16:
		return encodeTransfer16(v.transfer), nil
	default:
		return nil, fmt.Errorf("cdb: unknown CDB type %T", c)
	}
}

func encodeTransfer6(t transfer) []byte {
	b := make([]byte, 6)
	b[0] = byte(t.opcode)
	b[1] = byte((t.lba >> 16) & 0x1f)
	b[2] = byte(t.lba >> 8)
	b[3] = byte(t.lba)
	length := t.length
	if length == 256 {
		b[4] = 0
	} else {
		b[4] = byte(length)
	}
	b[5] = encodeControl(t.control)
	return b
}

func encodeTransfer10(t transfer) []byte {
	b := make([]byte, 10)
	b[0] = byte(t.opcode)
	util.PutUnalignedUint32(b[2:6], uint32(t.lba))
	util.PutUnalignedUint16(b[7:9], uint16(t.length))
	b[9] = encodeControl(t.control)
	return b
}

func encodeTransfer12(t transfer) []byte {
	b := make([]byte, 12)
	b[0] = byte(t.opcode)
	util.PutUnalignedUint32(b[2:6], uint32(t.lba))
	util.PutUnalignedUint32(b[6:10], uint32(t.length))
	b[11] = encodeControl(t.control)
	return b
}

func encodeTransfer16(t transfer) []byte {
	b := make([]byte, 16)
	b[0] = byte(t.opcode)
	util.PutUnalignedUint64(b[2:10], t.lba)
	util.PutUnalignedUint32(b[10:14], uint32(t.length))
	b[15] = encodeControl(t.control)
	return b
}
