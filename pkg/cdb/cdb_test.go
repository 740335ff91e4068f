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
	"bytes"
	"testing"

	"github.com/gostor/sbctgt/pkg/sense"
)

func TestDecodeWrite6(t *testing.T) {
	// WRITE6 from spec §8 scenario 1: LBA=0x10 (16), transfer length = 1 block.
	raw := []byte{0x0A, 0x00, 0x00, 0x10, 0x01, 0x00}
	c, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, ok := c.(Write6)
	if !ok {
		t.Fatalf("expected Write6, got %T", c)
	}
	if w.LogicalBlockAddress() != 0x10 {
		t.Errorf("expected LBA 0x10, got 0x%x", w.LogicalBlockAddress())
	}
	if w.TransferLength() != 1 {
		t.Errorf("expected transfer length 1, got %d", w.TransferLength())
	}
	if w.OperationCode() != byte(OpWrite6) {
		t.Errorf("expected opcode 0x0a, got 0x%x", w.OperationCode())
	}
}

func TestWrite6ZeroTransferLengthMeans256(t *testing.T) {
	raw := []byte{0x0A, 0x00, 0x00, 0x00, 0x00, 0x00}
	c, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.(Write6).TransferLength() != 256 {
		t.Errorf("expected transfer length 256, got %d", c.(Write6).TransferLength())
	}
}

func TestDecodeWrite10OutOfRangeShapeOnly(t *testing.T) {
	// WRITE10, LBA=1020, transfer length=10 (spec §8 scenario 2).
	raw := make([]byte, 10)
	raw[0] = byte(OpWrite10)
	raw[2] = 0x00
	raw[3] = 0x00
	raw[4] = 0x03
	raw[5] = 0xFC // LBA = 1020
	raw[7] = 0x00
	raw[8] = 0x0A // transfer length = 10
	c, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := c.(Write10)
	if w.LogicalBlockAddress() != 1020 {
		t.Errorf("expected LBA 1020, got %d", w.LogicalBlockAddress())
	}
	if w.TransferLength() != 10 {
		t.Errorf("expected transfer length 10, got %d", w.TransferLength())
	}
}

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x0A, 0x00, 0x00, 0x10, 0x01, 0x00},
		{0x08, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0x2a, 0x00, 0x00, 0x00, 0x03, 0xfc, 0x00, 0x00, 0x0a, 0x00},
		{0xaa, 0x00, 0x00, 0x00, 0x03, 0xfc, 0x00, 0x00, 0x00, 0x0a, 0x00, 0x00},
		{0x8a, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0xfc, 0x00, 0x00, 0x00, 0x00},
	}
	for _, raw := range cases {
		c, err := Decode(raw)
		if err != nil {
			t.Fatalf("decode(%x): unexpected error: %v", raw, err)
		}
		out, err := Encode(c)
		if err != nil {
			t.Fatalf("encode of decode(%x): unexpected error: %v", raw, err)
		}
		if !bytes.Equal(raw, out) {
			t.Errorf("round trip mismatch: got %x, want %x", out, raw)
		}
	}
}

func TestDecodeTooShortIsInvalidFieldInCDB(t *testing.T) {
	_, err := Decode([]byte{0x0A, 0x00, 0x00})
	if err == nil {
		t.Fatal("expected error for truncated CDB")
	}
	ex, ok := err.(*sense.Exception)
	if !ok || ex.Key != sense.IllegalRequest || ex.ASC != 0x24 {
		t.Errorf("expected INVALID FIELD IN CDB sense, got %v", err)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	_, err := Decode([]byte{0xFF})
	if err == nil {
		t.Fatal("expected error for unknown opcode")
	}
}
