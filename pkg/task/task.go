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

// Package task implements the buffered task engine and the dispatcher
// that binds an incoming Command to a Task against a BlockDevice (spec
// §4.2, §4.4). A Task's body runs strictly sequentially: range check,
// transfer, respond (spec §5).
package task

import (
	uuid "github.com/satori/go.uuid"

	"github.com/gostor/sbctgt/pkg/transport"
)

// Phase is a Task's lifecycle state (spec §3: Queued -> Running ->
// {Completed, Failed}).
type Phase int

const (
	Queued Phase = iota
	Running
	Completed
	Failed
)

func (p Phase) String() string {
	switch p {
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Command pairs a raw CDB with a transport handle and an initiator-side
// tag (spec §3). It is immutable once constructed; the dispatcher never
// mutates a Command, only the Task it spawns.
//
// Cancel, if non-nil, is closed by the caller to request cancellation
// (spec §5 "Cancellation"). It is only ever observed between a Task's
// phases, never mid-transfer.
type Command struct {
	CDB          []byte
	Port         transport.Port
	InitiatorTag uuid.UUID
	Cancel       <-chan struct{}
}

// NewCommand tags a raw CDB with a fresh initiator tag, mirroring gotgt's
// per-command ITNexus identifier (api.SCSICommand.ITNexusID).
func NewCommand(raw []byte, port transport.Port) Command {
	return Command{CDB: raw, Port: port, InitiatorTag: uuid.NewV4()}
}

// Task binds a Command to its lifecycle phase as it runs (spec §3, §5).
// A Task is created Queued by the dispatcher; a READ/WRITE task body moves
// it to Running when it starts, and every task ends Completed or Failed.
// The dispatcher logs the final phase at every failure response.
type Task struct {
	Command Command
	Phase   Phase
}

// NewTask creates a Queued Task bound to cmd.
func NewTask(cmd Command) *Task {
	return &Task{Command: cmd, Phase: Queued}
}

// Cancelled reports whether cancellation has been requested on t's
// Command without blocking. A task body calls this only at a phase
// boundary (spec §5: "cancellable between distinct phases but not
// mid-transfer").
func (t *Task) Cancelled() bool {
	if t.Command.Cancel == nil {
		return false
	}
	select {
	case <-t.Command.Cancel:
		return true
	default:
		return false
	}
}
