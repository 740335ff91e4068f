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

import "testing"

func TestLogicalBlockAddressOutOfRangeFixedEncoding(t *testing.T) {
	e := LogicalBlockAddressOutOfRange(&FieldPointer{Byte: 2, CommandData: true})
	b := Encode(e, false, false)
	if len(b) != FixedFormatLength {
		t.Fatalf("expected %d bytes, got %d", FixedFormatLength, len(b))
	}
	if b[0] != responseCodeFixedCurrent {
		t.Errorf("expected response code 0x70, got 0x%02x", b[0])
	}
	if Key(b[2]) != IllegalRequest {
		t.Errorf("expected sense key %02x, got %02x", IllegalRequest, b[2])
	}
	if b[12] != 0x21 || b[13] != 0x00 {
		t.Errorf("expected ASC/ASCQ 21h/00h, got %02x/%02x", b[12], b[13])
	}
	if b[15]&0x80 == 0 {
		t.Error("expected SKSV bit set")
	}
	if b[16] != 0x00 || b[17] != 0x02 {
		t.Errorf("expected field pointer = 2, got %02x%02x", b[16], b[17])
	}
}

func TestWrite6FieldPointerUsesBitOffset(t *testing.T) {
	e := LogicalBlockAddressOutOfRange(&FieldPointer{Byte: 1, Bit: 4, BitValid: true, CommandData: true})
	b := Encode(e, false, false)
	if b[15]&0x08 == 0 {
		t.Error("expected BPV bit set")
	}
	if b[15]&0x07 != 4 {
		t.Errorf("expected bit pointer 4, got %d", b[15]&0x07)
	}
	if b[16] != 0x00 || b[17] != 0x01 {
		t.Errorf("expected field pointer byte 1, got %02x%02x", b[16], b[17])
	}
}

func TestDescriptorEncoding(t *testing.T) {
	e := SynchronousDataTransferError(true)
	b := Encode(e, true, false)
	if len(b) != DescriptorFormatLength {
		t.Fatalf("expected %d bytes, got %d", DescriptorFormatLength, len(b))
	}
	if b[0] != responseCodeDescCurrent {
		t.Errorf("expected response code 0x72, got 0x%02x", b[0])
	}
	if Key(b[1]) != MediumError {
		t.Errorf("expected sense key %02x, got %02x", MediumError, b[1])
	}
	if b[2] != 0x0c || b[3] != 0x00 {
		t.Errorf("expected ASC/ASCQ 0ch/00h, got %02x/%02x", b[2], b[3])
	}
}

func TestStatusFor(t *testing.T) {
	if StatusFor(nil) != StatusGood {
		t.Error("expected GOOD status for nil error")
	}
	if StatusFor(InternalTargetFailure(nil)) != StatusCheckCondition {
		t.Error("expected CHECK CONDITION status for sense exception")
	}
}

func TestInternalTargetFailureWrapsLeafError(t *testing.T) {
	leaf := LogicalBlockAddressOutOfRange(nil)
	e := InternalTargetFailure(leaf)
	if e.Unwrap() != leaf {
		t.Error("expected Unwrap to return the wrapped leaf error")
	}
}
