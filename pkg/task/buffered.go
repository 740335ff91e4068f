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
	"github.com/gostor/sbctgt/pkg/cdb"
	"github.com/gostor/sbctgt/pkg/device"
	"github.com/gostor/sbctgt/pkg/sense"
	"github.com/gostor/sbctgt/pkg/transport"
)

// checkRange implements the buffered task engine's range check (spec
// §4.2 step 3). form6 selects the 6-byte CDB's distinct field pointer
// form (Open Question (a), resolved as "preserve observed behavior").
func checkRange(lba, length, capacity uint64, form6 bool) *sense.Exception {
	if lba > capacity || lba+length > capacity {
		var fp *sense.FieldPointer
		if form6 {
			fp = &sense.FieldPointer{Byte: 1, Bit: 4, BitValid: true, CommandData: true}
		} else {
			fp = &sense.FieldPointer{Byte: 2, CommandData: true}
		}
		return sense.LogicalBlockAddressOutOfRange(fp)
	}
	return nil
}

// ExecuteWrite runs a WRITE task to completion against dev, pulling
// transfer_length * block_size bytes from port (spec §4.2). It returns a
// SenseException on any failure; the caller (the dispatcher) is
// responsible for translating that into a response PDU. t tracks the
// task's phase and carries the cancellation signal checked at each phase
// boundary (spec §5); the transfer step itself is never interrupted.
func ExecuteWrite(dev device.BlockDevice, port transport.Port, c cdb.TransferCDB, t *Task) *sense.Exception {
	t.Phase = Running
	if t.Cancelled() {
		t.Phase = Failed
		return sense.TaskAborted()
	}

	capacity, err := dev.BlockCount()
	if err != nil {
		t.Phase = Failed
		return sense.DeviceNotReady()
	}
	blockSize, err := dev.BlockSize()
	if err != nil {
		t.Phase = Failed
		return sense.DeviceNotReady()
	}

	lba := c.LogicalBlockAddress()
	length := c.TransferLength()
	if ex := checkRange(lba, length, capacity, c.OperationCode() == byte(cdb.OpWrite6)); ex != nil {
		t.Phase = Failed
		return ex
	}
	if length == 0 {
		t.Phase = Completed
		return nil
	}
	if t.Cancelled() {
		t.Phase = Failed
		return sense.TaskAborted()
	}

	buf := make([]byte, length*uint64(blockSize))
	if !port.ReadData(buf) {
		t.Phase = Failed
		return sense.SynchronousDataTransferError(true)
	}
	if err := dev.WriteAt(lba, buf); err != nil {
		t.Phase = Failed
		if ex, ok := err.(*sense.Exception); ok {
			return ex
		}
		return sense.SynchronousDataTransferError(true)
	}

	if t.Cancelled() {
		t.Phase = Failed
		return sense.TaskAborted()
	}
	t.Phase = Completed
	return nil
}

// ExecuteRead is symmetric to ExecuteWrite: range-check, then push bytes
// from the device to the transport port (spec §4.2).
func ExecuteRead(dev device.BlockDevice, port transport.Port, c cdb.TransferCDB, t *Task) *sense.Exception {
	t.Phase = Running
	if t.Cancelled() {
		t.Phase = Failed
		return sense.TaskAborted()
	}

	capacity, err := dev.BlockCount()
	if err != nil {
		t.Phase = Failed
		return sense.DeviceNotReady()
	}
	blockSize, err := dev.BlockSize()
	if err != nil {
		t.Phase = Failed
		return sense.DeviceNotReady()
	}

	lba := c.LogicalBlockAddress()
	length := c.TransferLength()
	if ex := checkRange(lba, length, capacity, c.OperationCode() == byte(cdb.OpRead6)); ex != nil {
		t.Phase = Failed
		return ex
	}
	if length == 0 {
		t.Phase = Completed
		return nil
	}
	if t.Cancelled() {
		t.Phase = Failed
		return sense.TaskAborted()
	}

	buf := make([]byte, length*uint64(blockSize))
	if err := dev.ReadAt(lba, buf); err != nil {
		t.Phase = Failed
		if ex, ok := err.(*sense.Exception); ok {
			return ex
		}
		return sense.SynchronousDataTransferError(false)
	}
	if !port.WriteData(buf) {
		t.Phase = Failed
		return sense.SynchronousDataTransferError(false)
	}

	if t.Cancelled() {
		t.Phase = Failed
		return sense.TaskAborted()
	}
	t.Phase = Completed
	return nil
}
