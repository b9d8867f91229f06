// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package mem simulates the physical memory of the batch machine.
//
// Memory is a set of non-overlapping regions addressed by physical
// address. Supervisor code reads and writes it through io.ReaderAt and
// io.WriterAt, where the offset is the physical address. User mode
// accesses are checked against the region permissions by the hart.
package mem

import (
	"encoding/binary"
	"io"
	"slices"
)

// Perm is a region permission mask.
type Perm uint8

const (
	PERM_R = Perm(1 << 0) // Readable.
	PERM_W = Perm(1 << 1) // Writable.
	PERM_X = Perm(1 << 2) // Executable.
	PERM_U = Perm(1 << 3) // Accessible from user mode.
)

// Region is a contiguous span of physical memory.
type Region struct {
	Name string
	Base uint64
	Data []byte
	Perm Perm
}

// End returns the first address past the region.
func (r *Region) End() uint64 {
	return r.Base + uint64(len(r.Data))
}

// Contains returns true if [addr, addr+size) lies within the region.
func (r *Region) Contains(addr uint64, size uint64) bool {
	return addr >= r.Base && addr+size >= addr && addr+size <= r.End()
}

// Memory is the physical address space.
type Memory struct {
	Regions []Region

	generation uint64
}

var _ io.ReaderAt = (*Memory)(nil)
var _ io.WriterAt = (*Memory)(nil)

// Map adds a region to the address space.
func (m *Memory) Map(region Region) (err error) {
	if len(region.Data) == 0 {
		err = &ErrRegion{Name: region.Name, Err: ErrRegionEmpty}
		return
	}
	if region.End() < region.Base {
		err = &ErrRegion{Name: region.Name, Err: ErrRegionWraps}
		return
	}

	for _, other := range m.Regions {
		if region.Base < other.End() && other.Base < region.End() {
			err = &ErrRegion{Name: region.Name, Err: ErrRegionOverlap}
			return
		}
	}

	m.Regions = append(m.Regions, region)
	slices.SortFunc(m.Regions, func(a, b Region) int {
		switch {
		case a.Base < b.Base:
			return -1
		case a.Base > b.Base:
			return 1
		}
		return 0
	})

	return
}

// Find returns the region containing [addr, addr+size).
func (m *Memory) Find(addr uint64, size uint64) (region *Region, ok bool) {
	for n := range m.Regions {
		if m.Regions[n].Contains(addr, size) {
			return &m.Regions[n], true
		}
	}

	return
}

// Region returns the named region.
func (m *Memory) Region(name string) (region *Region, ok bool) {
	for n := range m.Regions {
		if m.Regions[n].Name == name {
			return &m.Regions[n], true
		}
	}

	return
}

// Check returns true if all of [addr, addr+size) is in a single region
// that grants every permission in perm.
func (m *Memory) Check(addr uint64, size uint64, perm Perm) bool {
	region, ok := m.Find(addr, size)
	if !ok {
		return false
	}

	return (region.Perm & perm) == perm
}

// slice returns the backing bytes for [addr, addr+size).
func (m *Memory) slice(addr uint64, size uint64) (data []byte, err error) {
	region, ok := m.Find(addr, size)
	if !ok {
		err = ErrUnmapped(addr)
		return
	}

	off := addr - region.Base
	data = region.Data[off : off+size]
	return
}

// ReadAt reads len(p) bytes starting at physical address off.
func (m *Memory) ReadAt(p []byte, off int64) (n int, err error) {
	data, err := m.slice(uint64(off), uint64(len(p)))
	if err != nil {
		return
	}

	n = copy(p, data)
	return
}

// WriteAt writes p starting at physical address off.
func (m *Memory) WriteAt(p []byte, off int64) (n int, err error) {
	data, err := m.slice(uint64(off), uint64(len(p)))
	if err != nil {
		return
	}

	n = copy(data, p)
	return
}

// Bytes returns the live backing storage of [addr, addr+size).
func (m *Memory) Bytes(addr uint64, size uint64) (data []byte, err error) {
	return m.slice(addr, size)
}

// Fill sets every byte of [addr, addr+size) to value.
func (m *Memory) Fill(addr uint64, size uint64, value byte) (err error) {
	data, err := m.slice(addr, size)
	if err != nil {
		return
	}

	for n := range data {
		data[n] = value
	}

	return
}

// Copy moves n bytes from src to dst. The ranges may be in different
// regions.
func (m *Memory) Copy(dst uint64, src uint64, n uint64) (err error) {
	from, err := m.slice(src, n)
	if err != nil {
		return
	}

	to, err := m.slice(dst, n)
	if err != nil {
		return
	}

	copy(to, from)
	return
}

// ReadUint64 reads a little endian machine word.
func (m *Memory) ReadUint64(addr uint64) (value uint64, err error) {
	data, err := m.slice(addr, 8)
	if err != nil {
		return
	}

	value = binary.LittleEndian.Uint64(data)
	return
}

// WriteUint64 writes a little endian machine word.
func (m *Memory) WriteUint64(addr uint64, value uint64) (err error) {
	data, err := m.slice(addr, 8)
	if err != nil {
		return
	}

	binary.LittleEndian.PutUint64(data, value)
	return
}

// ReadUint32 reads a little endian 32-bit value.
func (m *Memory) ReadUint32(addr uint64) (value uint32, err error) {
	data, err := m.slice(addr, 4)
	if err != nil {
		return
	}

	value = binary.LittleEndian.Uint32(data)
	return
}

// FenceI is the instruction-cache synchronization barrier. Instruction
// fetch caches must be discarded when the generation changes.
func (m *Memory) FenceI() {
	m.generation++
}

// Generation returns the number of FenceI barriers issued.
func (m *Memory) Generation() uint64 {
	return m.generation
}
