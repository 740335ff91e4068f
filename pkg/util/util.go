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

// Package util provides byte-order helpers shared by the CDB codec and
// the sense encoder.
package util

import "encoding/binary"

func GetUnalignedUint16(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}

func GetUnalignedUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

func GetUnalignedUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func PutUnalignedUint16(b []byte, v uint16) {
	binary.BigEndian.PutUint16(b, v)
}

func PutUnalignedUint32(b []byte, v uint32) {
	binary.BigEndian.PutUint32(b, v)
}

func PutUnalignedUint64(b []byte, v uint64) {
	binary.BigEndian.PutUint64(b, v)
}
