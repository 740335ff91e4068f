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

package task

import (
	"bytes"
	"testing"

	"github.com/gostor/sbctgt/pkg/device"
	"github.com/gostor/sbctgt/pkg/sense"
	"github.com/gostor/sbctgt/pkg/transport"
)

func openedMemory(t *testing.T, blockSize uint32, blockCount uint64) *device.MemoryDevice {
	d := device.NewMemoryDevice("mem0", blockSize, blockCount)
	if err := d.Open(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// TestDispatchWrite6InRange covers end-to-end scenario 1: WRITE6 in
// range, one block.
func TestDispatchWrite6InRange(t *testing.T) {
	dev := openedMemory(t, 512, 1024)
	disp := NewDispatcher(dev)

	port := &transport.MockPort{InBuffer: bytes.Repeat([]byte{0xAB}, 512)}
	cmd := NewCommand([]byte{0x0A, 0x00, 0x00, 0x10, 0x01, 0x00}, port)
	disp.Dispatch(cmd)

	if port.Status != sense.StatusGood {
		t.Fatalf("expected Status GOOD, got %#x", port.Status)
	}
	if port.SenseData != nil {
		t.Errorf("expected no sense data, got %v", port.SenseData)
	}
	got := make([]byte, 512)
	if err := dev.ReadAt(16, got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, bytes.Repeat([]byte{0xAB}, 512)) {
		t.Errorf("store not written at LBA 16")
	}
}

// TestDispatchWrite10OutOfRange covers end-to-end scenario 2.
func TestDispatchWrite10OutOfRange(t *testing.T) {
	dev := openedMemory(t, 512, 1024)
	disp := NewDispatcher(dev)

	port := &transport.MockPort{}
	cdb := make([]byte, 10)
	cdb[0] = 0x2a
	cdb[2], cdb[3], cdb[4], cdb[5] = 0x00, 0x00, 0x03, 0xfc // LBA 1020
	cdb[7], cdb[8] = 0x00, 0x0a                             // transfer length 10
	cmd := NewCommand(cdb, port)
	disp.Dispatch(cmd)

	if port.Status != sense.StatusCheckCondition {
		t.Fatalf("expected Status CHECK CONDITION, got %#x", port.Status)
	}
	if len(port.SenseData) < 14 {
		t.Fatalf("expected sense data, got %v", port.SenseData)
	}
	if port.SenseData[2]&0x0f != byte(sense.IllegalRequest) {
		t.Errorf("expected sense key ILLEGAL REQUEST, got %#x", port.SenseData[2])
	}
	if port.SenseData[12] != 0x21 || port.SenseData[13] != 0x00 {
		t.Errorf("expected ASC/ASCQ 21h/00h, got %02x/%02x", port.SenseData[12], port.SenseData[13])
	}
	if port.SenseData[16] != 0x00 || port.SenseData[17] != 0x02 {
		t.Errorf("expected field pointer CDB byte 2, got %02x%02x", port.SenseData[16], port.SenseData[17])
	}
}

// TestDispatchShortPullDuringWrite covers end-to-end scenario 6: the
// store must be left unchanged when the transport short-pulls.
func TestDispatchShortPullDuringWrite(t *testing.T) {
	dev := openedMemory(t, 512, 1024)
	disp := NewDispatcher(dev)

	before := make([]byte, 512)
	if err := dev.ReadAt(16, before); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	port := &transport.MockPort{FailRead: true}
	cmd := NewCommand([]byte{0x0A, 0x00, 0x00, 0x10, 0x01, 0x00}, port)
	disp.Dispatch(cmd)

	if port.Status != sense.StatusCheckCondition {
		t.Fatalf("expected Status CHECK CONDITION, got %#x", port.Status)
	}
	if port.SenseData[2]&0x0f != byte(sense.MediumError) {
		t.Errorf("expected sense key MEDIUM ERROR, got %#x", port.SenseData[2])
	}
	if port.SenseData[12] != 0x0c {
		t.Errorf("expected ASC 0Ch (write error), got %02x", port.SenseData[12])
	}

	after := make([]byte, 512)
	if err := dev.ReadAt(16, after); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Errorf("store changed despite short pull")
	}
}

func TestDispatchZeroLengthTransferIsGood(t *testing.T) {
	dev := openedMemory(t, 512, 1024)
	disp := NewDispatcher(dev)

	port := &transport.MockPort{}
	// WRITE10 at LBA 16 with transfer_length 0 (a 6-byte CDB cannot carry a
	// zero length: its length byte 0 decodes as 256 blocks).
	cmd := NewCommand([]byte{0x2a, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00}, port)
	disp.Dispatch(cmd)

	if port.Status != sense.StatusGood {
		t.Fatalf("expected Status GOOD, got %#x", port.Status)
	}
}

func TestDispatchUnknownOpcode(t *testing.T) {
	dev := openedMemory(t, 512, 1024)
	disp := NewDispatcher(dev)

	port := &transport.MockPort{}
	cmd := NewCommand([]byte{0xff, 0, 0, 0, 0, 0}, port)
	disp.Dispatch(cmd)

	if port.Status != sense.StatusCheckCondition {
		t.Fatalf("expected Status CHECK CONDITION, got %#x", port.Status)
	}
	if port.SenseData[12] != 0x20 {
		t.Errorf("expected ASC 20h (invalid opcode), got %02x", port.SenseData[12])
	}
}

func TestDispatchTestUnitReady(t *testing.T) {
	dev := openedMemory(t, 512, 1024)
	disp := NewDispatcher(dev)

	port := &transport.MockPort{}
	cmd := NewCommand([]byte{0x00, 0, 0, 0, 0, 0}, port)
	disp.Dispatch(cmd)

	if port.Status != sense.StatusGood {
		t.Fatalf("expected Status GOOD, got %#x", port.Status)
	}
}

// TestDispatchCancelledBeforeTransferAborts exercises the spec §5
// cancellation model: a Command cancelled before its task body reaches
// the data phase observes that cancellation at the next phase boundary
// and fails with TaskAborted rather than running the transfer.
func TestDispatchCancelledBeforeTransferAborts(t *testing.T) {
	dev := openedMemory(t, 512, 1024)
	disp := NewDispatcher(dev)

	cancel := make(chan struct{})
	close(cancel)

	port := &transport.MockPort{InBuffer: bytes.Repeat([]byte{0xAB}, 512)}
	cmd := Command{CDB: []byte{0x0A, 0x00, 0x00, 0x10, 0x01, 0x00}, Port: port, Cancel: cancel}
	disp.Dispatch(cmd)

	if port.Status != sense.StatusCheckCondition {
		t.Fatalf("expected Status CHECK CONDITION, got %#x", port.Status)
	}
	if port.SenseData[2]&0x0f != byte(sense.AbortedCommand) {
		t.Errorf("expected sense key ABORTED COMMAND, got %#x", port.SenseData[2])
	}

	got := make([]byte, 512)
	if err := dev.ReadAt(16, got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Equal(got, bytes.Repeat([]byte{0xAB}, 512)) {
		t.Errorf("store written despite pre-transfer cancellation")
	}
}
