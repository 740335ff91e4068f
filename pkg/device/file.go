/*
Copyright 2017 The sbctgt Authors All rights reserved.

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

package device

import (
	"fmt"
	"os"
	"sync"
)

// FileDevice is a block device backed by a regular file, grounded on
// gotgt's FileBackingStore (pkg/scsi/backingstore/common.go). block_count
// is derived from the file size at Open time; ReadAt/WriteAt delegate to
// os.File's ReadAt/WriteAt, which are already safe for concurrent callers
// and take no shared cursor.
type FileDevice struct {
	name      string
	path      string
	blockSize uint32

	mu         sync.RWMutex
	open       bool
	blockCount uint64
	file       *os.File
}

// NewFileDevice creates a closed device that will open path with the
// given logical block size.
func NewFileDevice(name, path string, blockSize uint32) *FileDevice {
	return &FileDevice{name: name, path: path, blockSize: blockSize}
}

func (d *FileDevice) Name() string { return d.name }

func (d *FileDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return ErrAlreadyOpen
	}
	info, err := os.Stat(d.path)
	if err != nil {
		return err
	}
	if uint64(info.Size())%uint64(d.blockSize) != 0 {
		return fmt.Errorf("device: %s size %d is not a multiple of block size %d", d.path, info.Size(), d.blockSize)
	}
	f, err := os.OpenFile(d.path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	d.file = f
	d.blockCount = uint64(info.Size()) / uint64(d.blockSize)
	d.open = true
	return nil
}

func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrNotOpenedYet
	}
	err := d.file.Close()
	d.file = nil
	d.open = false
	return err
}

func (d *FileDevice) BlockSize() (uint32, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.open {
		return 0, ErrNotOpen
	}
	return d.blockSize, nil
}

func (d *FileDevice) BlockCount() (uint64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.open {
		return 0, ErrNotOpen
	}
	return d.blockCount, nil
}

func (d *FileDevice) ReadAt(address uint64, p []byte) error {
	d.mu.RLock()
	f, blockSize, blockCount, open := d.file, d.blockSize, d.blockCount, d.open
	d.mu.RUnlock()
	if !open {
		return ErrNotOpen
	}
	if _, err := CheckTransferBounds(address, p, blockSize, blockCount); err != nil {
		return err
	}
	_, err := f.ReadAt(p, int64(address*uint64(blockSize)))
	return err
}

func (d *FileDevice) WriteAt(address uint64, p []byte) error {
	d.mu.RLock()
	f, blockSize, blockCount, open := d.file, d.blockSize, d.blockCount, d.open
	d.mu.RUnlock()
	if !open {
		return ErrNotOpen
	}
	if _, err := CheckTransferBounds(address, p, blockSize, blockCount); err != nil {
		return err
	}
	_, err := f.WriteAt(p, int64(address*uint64(blockSize)))
	return err
}
