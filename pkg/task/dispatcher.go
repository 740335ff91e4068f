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

package task

import (
	log "github.com/sirupsen/logrus"

	"github.com/gostor/sbctgt/pkg/cdb"
	"github.com/gostor/sbctgt/pkg/device"
	"github.com/gostor/sbctgt/pkg/sense"
)

// Dispatcher maps an incoming Command to the task body for its opcode and
// runs it against a single BlockDevice (spec §4.4), grounded on gotgt's
// opcode -> SCSIDeviceOperation table (pkg/scsi/sbc.go).  One Dispatcher
// is bound to one BlockDevice, which may itself be a *striped.Device.
type Dispatcher struct {
	Device device.BlockDevice
}

// NewDispatcher binds a dispatcher to the device that backs every task it
// runs.
func NewDispatcher(dev device.BlockDevice) *Dispatcher {
	return &Dispatcher{Device: dev}
}

// CommandFunc is a task body bound to one opcode via dispatchTable below
// (spec §4.4), grounded directly on gotgt's opcode -> SCSIDeviceOperation
// table (pkg/scsi/sbc.go): each opcode maps to a task constructor.
type CommandFunc func(d *Dispatcher, t *Task, c cdb.CDB) *sense.Exception

func transferFunc(readNotWrite bool) CommandFunc {
	return func(d *Dispatcher, t *Task, c cdb.CDB) *sense.Exception {
		tc := c.(cdb.TransferCDB)
		if readNotWrite {
			return ExecuteRead(d.Device, t.Command.Port, tc, t)
		}
		return ExecuteWrite(d.Device, t.Command.Port, tc, t)
	}
}

// invalidOpcode answers any opcode this core accepts at the codec but has
// no task body for. Real INQUIRY/REPORT LUNS data comes from the
// inquiry/mode-page registries, which are out of scope for this core
// (spec §1, §3).
func invalidOpcode(d *Dispatcher, t *Task, c cdb.CDB) *sense.Exception {
	return sense.InvalidCommandOperationCode()
}

var dispatchTable = map[byte]CommandFunc{
	byte(cdb.OpRead6):         transferFunc(true),
	byte(cdb.OpWrite6):        transferFunc(false),
	byte(cdb.OpRead10):        transferFunc(true),
	byte(cdb.OpWrite10):       transferFunc(false),
	byte(cdb.OpRead12):        transferFunc(true),
	byte(cdb.OpWrite12):       transferFunc(false),
	byte(cdb.OpRead16):        transferFunc(true),
	byte(cdb.OpWrite16):       transferFunc(false),
	byte(cdb.OpTestUnitReady): func(d *Dispatcher, t *Task, c cdb.CDB) *sense.Exception { return d.testUnitReady() },
	byte(cdb.OpInquiry):       invalidOpcode,
	byte(cdb.OpReportLuns):    invalidOpcode,
}

// Dispatch decodes cmd's CDB, runs the matching task body, and always
// emits a response PDU through cmd.Port — no SenseException ever escapes
// to the transport adapter (spec §7 "User-visible behavior").
func (d *Dispatcher) Dispatch(cmd Command) {
	t := NewTask(cmd)

	c, err := cdb.Decode(cmd.CDB)
	if err != nil {
		ex := err.(*sense.Exception)
		if len(cmd.CDB) > 0 {
			if _, ok := dispatchTable[cmd.CDB[0]]; !ok {
				ex = sense.InvalidCommandOperationCode()
			}
		}
		t.Phase = Failed
		d.respond(t, ex)
		return
	}

	var ex *sense.Exception
	if fn, ok := dispatchTable[c.OperationCode()]; ok {
		ex = fn(d, t, c)
	} else {
		ex = sense.InvalidCommandOperationCode()
	}

	if t.Phase == Queued {
		if ex == nil {
			t.Phase = Completed
		} else {
			t.Phase = Failed
		}
	}
	d.respond(t, ex)
}

func (d *Dispatcher) testUnitReady() *sense.Exception {
	if _, err := d.Device.BlockCount(); err != nil {
		return sense.DeviceNotReady()
	}
	return nil
}

// respond never calls sense.StatusFor with a *sense.Exception: a nil
// *sense.Exception boxed into the error interface StatusFor takes is a
// non-nil interface value, so the nil check here must happen first.
func (d *Dispatcher) respond(t *Task, ex *sense.Exception) {
	cmd := t.Command
	if ex == nil {
		if err := cmd.Port.WriteResponse(sense.StatusGood, nil); err != nil {
			log.WithField("initiator_tag", cmd.InitiatorTag).Error(err)
		}
		return
	}
	log.WithField("initiator_tag", cmd.InitiatorTag).WithField("phase", t.Phase.String()).Debugf("command failed: %v", ex)
	senseData := sense.Encode(ex, false, false)
	if err := cmd.Port.WriteResponse(sense.StatusCheckCondition, senseData); err != nil {
		log.WithField("initiator_tag", cmd.InitiatorTag).Error(err)
	}
}
