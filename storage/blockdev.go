// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package storage

import (
	"github.com/usbarmory/tamago-cartbridge/soc/nxp/usdhc"
)

// USDHCBlockDevice adapts the uSDHC controller driver's block I/O
// methods to soypat/fat's BlockDevice interface: argument order and
// integer widths differ between the two, and EraseSectors/Mode have no
// uSDHC equivalent, so they are satisfied with the card's actual
// capabilities.
type USDHCBlockDevice struct {
	Card *usdhc.USDHC
}

// ReadBlocks reads len(dst)/BlockSize blocks starting at startBlock.
func (b *USDHCBlockDevice) ReadBlocks(dst []byte, startBlock int64) error {
	return b.Card.ReadBlocks(int(startBlock), dst)
}

// WriteBlocks writes len(data)/BlockSize blocks starting at startBlock.
func (b *USDHCBlockDevice) WriteBlocks(data []byte, startBlock int64) error {
	return b.Card.WriteBlocks(int(startBlock), data)
}

// EraseSectors is a no-op: the uSDHC driver performs no pre-erase, and
// SD cards do not require it before a plain write.
func (b *USDHCBlockDevice) EraseSectors(startBlock, numBlocks int64) error {
	return nil
}

// Mode reports 3 (read-write) whenever a card is detected, 0 otherwise;
// the uSDHC driver does not expose a write-protect switch.
func (b *USDHCBlockDevice) Mode() uint8 {
	info := b.Card.Info()

	if !info.SD && !info.MMC {
		return 0
	}

	return 3
}

// BlockSize returns the card's reported block size.
func (b *USDHCBlockDevice) BlockSize() int {
	return b.Card.Info().BlockSize
}
