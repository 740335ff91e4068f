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

// Package transport declares the target-side transport port every task
// pulls/pushes data through. The real iSCSI PDU implementation lives
// outside this module (spec §1); this package is the narrow interface the
// core consumes plus a deterministic mock used by tests.
package transport

import "github.com/gostor/sbctgt/pkg/sense"

// Port is the narrow interface a Task uses to move bulk data to and from
// the initiator and to emit the final response PDU (spec §6).
type Port interface {
	// ReadData pulls len(p) bytes from the initiator into p. ok is false
	// on a short or failed transfer.
	ReadData(p []byte) (ok bool)
	// WriteData pushes p to the initiator. ok is false on a short or
	// failed transfer.
	WriteData(p []byte) (ok bool)
	// WriteResponse emits the final response PDU. senseData is non-nil
	// iff status indicates CHECK CONDITION.
	WriteResponse(status sense.Status, senseData []byte) error
}
