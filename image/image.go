// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package image links application binaries into the table blob the
// batch loader reads, and evaluates manifests naming those binaries.
package image

import (
	"encoding/binary"

	"github.com/ezrec/ubatch/batch"
	"github.com/ezrec/ubatch/mem"
)

const WORD_SIZE = 8

// TableSize returns the size of the table header for count applications.
func TableSize(count int) int {
	return (count + 2) * WORD_SIZE
}

// Link lays out the application table blob to be placed at base: the
// application count, the count+1 boundary addresses, then the images
// back to back.
func Link(apps [][]byte, base uint64) (blob []byte, err error) {
	if len(apps) > batch.MAX_APP_NUM {
		err = batch.ErrTooManyApps
		return
	}

	for n, app := range apps {
		if len(app) > mem.APP_SIZE_LIMIT {
			err = &batch.ErrApp{App: n, Err: batch.ErrAppTooLarge}
			return
		}
	}

	blob = binary.LittleEndian.AppendUint64(blob, uint64(len(apps)))

	addr := base + uint64(TableSize(len(apps)))
	blob = binary.LittleEndian.AppendUint64(blob, addr)
	for _, app := range apps {
		addr += uint64(len(app))
		blob = binary.LittleEndian.AppendUint64(blob, addr)
	}

	for _, app := range apps {
		blob = append(blob, app...)
	}

	return
}
