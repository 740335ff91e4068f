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
	"github.com/gostor/sbctgt/pkg/sense"
	"github.com/gostor/sbctgt/pkg/util"
)

// Decode parses a raw CDB. It is total: any buffer that is too short for
// its opcode's fixed length fails with an InvalidFieldInCDB sense
// exception rather than panicking (spec §4.1).
func Decode(b []byte) (CDB, error) {
	if len(b) == 0 {
		return nil, sense.InvalidFieldInCDB(0)
	}
	op := OpCode(b[0])
	switch op {
	case OpTestUnitReady:
		if len(b) < 6 {
			return nil, sense.InvalidFieldInCDB(len(b))
		}
		return TestUnitReady{control: decodeControl(b[5]), opcode: op}, nil
	case OpInquiry:
		if len(b) < 6 {
			return nil, sense.InvalidFieldInCDB(len(b))
		}
		return Inquiry{
			control:          decodeControl(b[5]),
			opcode:           op,
			evpd:             b[1]&0x01 != 0,
			pageCode:         b[2],
			allocationLength: util.GetUnalignedUint16(b[3:5]),
		}, nil
	case OpReportLuns:
		if len(b) < 12 {
			return nil, sense.InvalidFieldInCDB(len(b))
		}
		return ReportLuns{
			control:          decodeControl(b[11]),
			opcode:           op,
			selectReport:     b[2],
			allocationLength: util.GetUnalignedUint32(b[6:10]),
		}, nil
	case OpRead6, OpWrite6:
		if len(b) < 6 {
			return nil, sense.InvalidFieldInCDB(len(b))
		}
		t := decodeTransfer6(b, op)
		if op == OpWrite6 {
			return Write6{t}, nil
		}
		return Read6{t}, nil
	case OpRead10, OpWrite10:
		if len(b) < 10 {
			return nil, sense.InvalidFieldInCDB(len(b))
		}
		t := decodeTransfer10(b, op)
		if op == OpWrite10 {
			return Write10{t}, nil
		}
		return Read10{t}, nil
	case OpRead12, OpWrite12:
		if len(b) < 12 {
			return nil, sense.InvalidFieldInCDB(len(b))
		}
		t := decodeTransfer12(b, op)
		if op == OpWrite12 {
			return Write12{t}, nil
		}
		return Read12{t}, nil
	case OpRead16, OpWrite16:
		if len(b) < 16 {
			return nil, sense.InvalidFieldInCDB(len(b))
		}
		t := decodeTransfer16(b, op)
		if op == OpWrite16 {
			return Write16{t}, nil
		}
		return Read16{t}, nil
	default:
		return nil, sense.InvalidFieldInCDB(0)
	}
}

// decodeTransfer6 implements the 21-bit LBA (byte 1 low 5 bits + bytes
// 2-3) and 8-bit transfer length (byte 4; 0 means 256) layout of the
// 6-byte READ/WRITE forms (spec §4.1 table).
func decodeTransfer6(b []byte, op OpCode) transfer {
	lba := uint64(b[1]&0x1f)<<16 | uint64(b[2])<<8 | uint64(b[3])
	length := uint64(b[4])
	if length == 0 {
		length = 256
	}
	return transfer{
		control: decodeControl(b[5]),
		opcode:  op,
		lba:     lba,
		length:  length,
		write:   op == OpWrite6,
	}
}

func decodeTransfer10(b []byte, op OpCode) transfer {
	return transfer{
		control: decodeControl(b[9]),
		opcode:  op,
		lba:     uint64(util.GetUnalignedUint32(b[2:6])),
		length:  uint64(util.GetUnalignedUint16(b[7:9])),
		write:   op == OpWrite10,
	}
}

func decodeTransfer12(b []byte, op OpCode) transfer {
	return transfer{
		control: decodeControl(b[11]),
		opcode:  op,
		lba:     uint64(util.GetUnalignedUint32(b[2:6])),
		length:  uint64(util.GetUnalignedUint32(b[6:10])),
		write:   op == OpWrite12,
	}
}

func decodeTransfer16(b []byte, op OpCode) transfer {
	return transfer{
		control: decodeControl(b[15]),
		opcode:  op,
		lba:     util.GetUnalignedUint64(b[2:10]),
		length:  uint64(util.GetUnalignedUint32(b[10:14])),
		write:   op == OpWrite16,
	}
}
