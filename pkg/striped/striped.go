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

// Package striped implements the RAID-0 composite block device: it
// distributes fixed-size extents round-robin across N leaf devices,
// issues per-leaf I/O in parallel and rejoins the results (spec §4.3).
// It is itself a device.BlockDevice, so it composes transparently with
// the dispatcher and the buffered task engine.
//
// This is a direct generalization of the original's single-purpose
// Raid0Device (org.jscsi.Raid0Device): its Executors.newFixedThreadPool +
// CyclicBarrier pattern becomes a fixed pool of worker goroutines, sized
// to leaf count and owned by the Device, joined per-request by a
// sync.WaitGroup; its checked IllegalArgumentExceptions become
// sense.Exception values.
package striped

import (
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/gostor/sbctgt/pkg/device"
	"github.com/gostor/sbctgt/pkg/sense"
)

// Extent is the stripe-unit size distributed across leaves (spec §3: "8
// KiB in the reference"), grounded on the original's EXTEND_SIZE.
const Extent = 8192

// Device is a RAID-0 composition of leaf block devices.
type Device struct {
	leaves []device.BlockDevice

	mu         sync.Mutex
	open       bool
	blockSize  uint32
	blockCount uint64

	// jobs feeds the worker pool sized to len(leaves) (spec §5, §9
	// "worker thread pool... sized to leaf count"), owned by the device:
	// created in Open, shut down cooperatively in Close.
	jobs   chan func()
	poolWG sync.WaitGroup
}

// New wraps leaves as a single striped block device. Leaves are not
// opened until Open is called.
func New(leaves ...device.BlockDevice) *Device {
	return &Device{leaves: leaves}
}

// Name joins every leaf's name, mirroring the original's
// "Raid0Device(leaf1+leaf2+...)" convention.
func (d *Device) Name() string {
	names := make([]string, len(d.leaves))
	for i, l := range d.leaves {
		names[i] = l.Name()
	}
	return fmt.Sprintf("striped(%s)", strings.Join(names, "+"))
}

// Open opens every leaf, validates that they share one block_size, and
// computes the exposed block_count as the floor-to-extent truncation of
// the smallest leaf multiplied by the leaf count (spec §3, §4.3).
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return device.ErrAlreadyOpen
	}
	if len(d.leaves) == 0 {
		return fmt.Errorf("striped: no leaves")
	}

	for i, l := range d.leaves {
		if err := l.Open(); err != nil {
			for _, opened := range d.leaves[:i] {
				_ = opened.Close()
			}
			return fmt.Errorf("striped: opening leaf %q: %w", l.Name(), err)
		}
	}

	var blockSize uint32
	var minBlocks uint64
	for i, l := range d.leaves {
		bs, err := l.BlockSize()
		if err != nil {
			d.closeLeaves()
			return fmt.Errorf("striped: leaf %q block size: %w", l.Name(), err)
		}
		if i == 0 {
			blockSize = bs
		} else if bs != blockSize {
			d.closeLeaves()
			return fmt.Errorf("striped: leaf %q block size %d differs from %d", l.Name(), bs, blockSize)
		}
		bc, err := l.BlockCount()
		if err != nil {
			d.closeLeaves()
			return fmt.Errorf("striped: leaf %q block count: %w", l.Name(), err)
		}
		if i == 0 || bc < minBlocks {
			minBlocks = bc
		}
	}

	if blockSize == 0 || Extent%blockSize != 0 {
		d.closeLeaves()
		return fmt.Errorf("striped: extent size %d is not a multiple of block size %d", Extent, blockSize)
	}

	f := uint64(Extent / blockSize)
	d.blockSize = blockSize
	d.blockCount = (minBlocks / f) * f * uint64(len(d.leaves))

	d.jobs = make(chan func())
	d.poolWG.Add(len(d.leaves))
	for i := 0; i < len(d.leaves); i++ {
		go d.worker()
	}

	d.open = true
	log.WithField("device", d.Name()).Infof("opened striped device: %d leaves, block_size=%d, block_count=%d", len(d.leaves), d.blockSize, d.blockCount)
	return nil
}

// closeLeaves closes every leaf, ignoring individual errors: used to
// unwind a partially-opened device on a validation failure after the
// per-leaf Open loop, so a failed Open never leaks opened leaves (spec
// §8 scenario 5: "subsequent close() still safely releases whichever
// leaves opened").
func (d *Device) closeLeaves() {
	for _, l := range d.leaves {
		_ = l.Close()
	}
}

// worker drains jobs until the pool is shut down in Close. One worker
// runs per leaf (spec §5 "bounded worker pool... one worker per leaf").
func (d *Device) worker() {
	defer d.poolWG.Done()
	for fn := range d.jobs {
		fn()
	}
}

// Close closes every leaf regardless of individual failures (spec §3)
// and returns the first error encountered, if any. The worker pool is
// shut down cooperatively: the jobs channel is closed and every worker
// is let drain and exit before the leaves themselves are closed.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return device.ErrNotOpenedYet
	}

	close(d.jobs)
	d.poolWG.Wait()
	d.jobs = nil

	var first error
	for _, l := range d.leaves {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	d.open = false
	d.blockSize = 0
	d.blockCount = 0
	return first
}

func (d *Device) BlockSize() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return 0, device.ErrNotOpen
	}
	return d.blockSize, nil
}

func (d *Device) BlockCount() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return 0, device.ErrNotOpen
	}
	return d.blockCount, nil
}

// geometry captures the per-request values derived from address/buffer
// length (spec §4.3 "Geometry mapping").
type geometry struct {
	blocksPerExtent uint64 // F
	fragments       uint64 // B / F
	parts           int    // min(fragments, N)
}

// planRequest validates the request and derives its geometry. address
// must itself fall on an extent boundary: the original silently floors
// address/blockFactor, but this core treats a non-aligned host address
// as a precondition error (see DESIGN.md Open Question (b)).
func (d *Device) planRequest(address uint64, p []byte) (geometry, *sense.Exception) {
	d.mu.Lock()
	blockSize, blockCount, n := d.blockSize, d.blockCount, len(d.leaves)
	open := d.open
	d.mu.Unlock()

	if !open {
		return geometry{}, sense.DeviceNotReady()
	}

	if len(p)%Extent != 0 {
		return geometry{}, sense.InvalidFieldInCDB(0)
	}
	f := uint64(Extent) / uint64(blockSize)
	if address%f != 0 {
		return geometry{}, sense.InvalidFieldInCDB(0)
	}

	blocks := uint64(len(p)) / uint64(blockSize)
	if address > blockCount || address+blocks > blockCount {
		return geometry{}, sense.LogicalBlockAddressOutOfRange(&sense.FieldPointer{Byte: 2, CommandData: true})
	}

	fragments := uint64(len(p)) / Extent
	parts := n
	if int(fragments) < n {
		parts = int(fragments)
	}
	return geometry{blocksPerExtent: f, fragments: fragments, parts: parts}, nil
}

// leafPlan is one leaf's share of a fanned-out request: which leaf,
// where on that leaf, and the contiguous staging buffer it reads into
// or writes from.
type leafPlan struct {
	leaf device.BlockDevice
	addr uint64
	buf  []byte
}

// fanOut computes, for address/fragments/parts, the round-robin leaf
// assignment and per-leaf staging buffer sizes (spec §4.3 "Fan-out"),
// mirroring the original's actualDevice/actualAddress advance loop.
func (d *Device) fanOut(g geometry, address uint64) []leafPlan {
	n := len(d.leaves)
	plans := make([]leafPlan, g.parts)

	actualAddress := (address / g.blocksPerExtent / uint64(n)) * g.blocksPerExtent
	actualDevice := int((address / g.blocksPerExtent) % uint64(n))

	for i := 0; i < g.parts; i++ {
		leafFragments := g.fragments / uint64(n)
		if uint64(i) < g.fragments%uint64(n) {
			leafFragments++
		}
		plans[i] = leafPlan{
			leaf: d.leaves[actualDevice],
			addr: actualAddress,
			buf:  make([]byte, leafFragments*g.blocksPerExtent*uint64(d.blockSize)),
		}
		if actualDevice == n-1 {
			actualDevice = 0
			actualAddress += g.blocksPerExtent
		} else {
			actualDevice++
		}
	}
	return plans
}

// join hands one job per leaf in plans to the device's worker pool,
// calling fn(planIndex) on each, and waits for every one of them to
// finish before returning the first error encountered (spec §4.3 "Join":
// a failing worker still arrives at the barrier, replaced here by the
// WaitGroup every job reaches via defer regardless of fn's outcome).
// len(plans) never exceeds the pool's worker count (parts = min(fragments,
// N)), so every job is picked up without the caller blocking on a worker
// that is itself blocked dispatching another job.
func (d *Device) join(plans []leafPlan, fn func(i int) error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(plans))
	wg.Add(len(plans))
	for i := range plans {
		i := i
		d.jobs <- func() {
			defer wg.Done()
			errs[i] = fn(i)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadAt dispatches per-leaf reads in parallel, then scatters the
// results back into p using the stripe mapping (spec §4.3).
func (d *Device) ReadAt(address uint64, p []byte) error {
	g, ex := d.planRequest(address, p)
	if ex != nil {
		return ex
	}
	if g.fragments == 0 {
		return nil
	}
	plans := d.fanOut(g, address)

	err := d.join(plans, func(i int) error {
		if len(plans[i].buf) == 0 {
			return nil
		}
		if err := plans[i].leaf.ReadAt(plans[i].addr, plans[i].buf); err != nil {
			log.WithField("leaf", plans[i].leaf.Name()).Errorf("striped read failed: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		return sense.InternalTargetFailure(err)
	}

	n := len(d.leaves)
	for i := uint64(0); i < g.fragments; i++ {
		leafIdx := i % uint64(n)
		srcOff := (i / uint64(n)) * Extent
		copy(p[i*Extent:(i+1)*Extent], plans[leafIdx].buf[srcOff:srcOff+Extent])
	}
	return nil
}

// WriteAt gathers p into per-leaf staging buffers in stripe order, then
// dispatches one write per leaf in parallel (spec §4.3).
func (d *Device) WriteAt(address uint64, p []byte) error {
	g, ex := d.planRequest(address, p)
	if ex != nil {
		return ex
	}
	if g.fragments == 0 {
		return nil
	}
	plans := d.fanOut(g, address)

	n := len(d.leaves)
	for i := uint64(0); i < g.fragments; i++ {
		leafIdx := i % uint64(n)
		dstOff := (i / uint64(n)) * Extent
		copy(plans[leafIdx].buf[dstOff:dstOff+Extent], p[i*Extent:(i+1)*Extent])
	}

	err := d.join(plans, func(i int) error {
		if len(plans[i].buf) == 0 {
			return nil
		}
		if err := plans[i].leaf.WriteAt(plans[i].addr, plans[i].buf); err != nil {
			log.WithField("leaf", plans[i].leaf.Name()).Errorf("striped write failed: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		return sense.InternalTargetFailure(err)
	}
	return nil
}
