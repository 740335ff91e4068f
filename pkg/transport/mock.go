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

package transport

import "github.com/gostor/sbctgt/pkg/sense"

// MockPort is a deterministic Port test double: initiator-side bytes live
// in InBuffer (consumed by ReadData) and data the target pushes lands in
// OutBuffer (appended by WriteData). FailRead/FailWrite inject a
// short/failed transfer without needing a real transport underneath,
// grounded on gotgt's mock backing-store pattern (mock/remote.go).
type MockPort struct {
	InBuffer  []byte
	OutBuffer []byte

	FailRead  bool
	FailWrite bool

	Status    sense.Status
	SenseData []byte
}

func (m *MockPort) ReadData(p []byte) bool {
	if m.FailRead || len(m.InBuffer) < len(p) {
		return false
	}
	copy(p, m.InBuffer[:len(p)])
	m.InBuffer = m.InBuffer[len(p):]
	return true
}

func (m *MockPort) WriteData(p []byte) bool {
	if m.FailWrite {
		return false
	}
	m.OutBuffer = append(m.OutBuffer, p...)
	return true
}

func (m *MockPort) WriteResponse(status sense.Status, senseData []byte) error {
	m.Status = status
	m.SenseData = senseData
	return nil
}
