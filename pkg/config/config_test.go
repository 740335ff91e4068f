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

package config

import (
	"testing"

	"github.com/gostor/sbctgt/pkg/device"
	"github.com/gostor/sbctgt/pkg/striped"
)

func TestLoadMissingConfigIsEmpty(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Targets) != 0 {
		t.Errorf("expected no targets, got %d", len(cfg.Targets))
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Targets: map[string]Target{
		"disk0": {
			Name: "disk0",
			Leaves: []Leaf{
				{Type: "memory", BlockSize: 512, BlockCount: 1024},
			},
		},
	}}
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tgt, ok := got.Targets["disk0"]
	if !ok {
		t.Fatal("expected target \"disk0\" to round-trip")
	}
	if len(tgt.Leaves) != 1 || tgt.Leaves[0].BlockSize != 512 || tgt.Leaves[0].BlockCount != 1024 {
		t.Errorf("leaf did not round-trip: %+v", tgt.Leaves)
	}
}

func TestBuildDeviceSingleLeaf(t *testing.T) {
	tgt := Target{Name: "disk0", Leaves: []Leaf{{Type: "memory", BlockSize: 512, BlockCount: 1024}}}
	d, err := tgt.BuildDevice()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := d.(*device.MemoryDevice); !ok {
		t.Errorf("expected a single leaf to build a *device.MemoryDevice, got %T", d)
	}
}

func TestBuildDeviceStripedOverMultipleLeaves(t *testing.T) {
	tgt := Target{Name: "disk0", Leaves: []Leaf{
		{Type: "memory", BlockSize: 512, BlockCount: 1024},
		{Type: "memory", BlockSize: 512, BlockCount: 1024},
	}}
	d, err := tgt.BuildDevice()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := d.(*striped.Device); !ok {
		t.Errorf("expected multiple leaves to build a *striped.Device, got %T", d)
	}
}

func TestBuildDeviceNoLeavesFails(t *testing.T) {
	tgt := Target{Name: "empty"}
	if _, err := tgt.BuildDevice(); err == nil {
		t.Error("expected error building a device for a target with no leaves")
	}
}
