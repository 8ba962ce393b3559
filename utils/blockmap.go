package utils

import "fmt"

// ColumnBlock is a contiguous half-open run [Start, End) of 1-based column
// indices, processed as one unit by the radiation call and exchanged as one
// unit over the coupling channel.
type ColumnBlock struct {
	Start, End int
}

func (cb ColumnBlock) NCol() int {
	return cb.End - cb.Start
}

func (cb ColumnBlock) String() string {
	return fmt.Sprintf("[%d,%d)", cb.Start, cb.End)
}

// BlockMap partitions the inclusive column range [IStart, IEnd] into
// contiguous blocks of BlockSize columns, the last block clamped to IEnd.
// Blocks are disjoint and cover the range exactly once, so parallel workers
// owning different blocks never touch the same column.
type BlockMap struct {
	IStart, IEnd int // Inclusive column range, 1-based
	BlockSize    int
	Blocks       []ColumnBlock
}

func NewBlockMap(istart, iend, blocksize int) (bm *BlockMap) {
	if blocksize <= 0 {
		panic(fmt.Sprintf("block size must be positive, have %d", blocksize))
	}
	if iend < istart {
		panic(fmt.Sprintf("empty column range [%d,%d]", istart, iend))
	}
	var (
		ncol   = iend - istart + 1
		nblock = (ncol + blocksize - 1) / blocksize
	)
	bm = &BlockMap{
		IStart:    istart,
		IEnd:      iend,
		BlockSize: blocksize,
		Blocks:    make([]ColumnBlock, nblock),
	}
	for n := 0; n < nblock; n++ {
		start := istart + n*blocksize
		end := start + blocksize
		if end > iend+1 { // clamp the tail block
			end = iend + 1
		}
		bm.Blocks[n] = ColumnBlock{Start: start, End: end}
	}
	return
}

func (bm *BlockMap) NBlocks() int {
	return len(bm.Blocks)
}

// getBlock returns the block owning column col.
func (bm *BlockMap) getBlock(col int) (n int, blk ColumnBlock) {
	if col < bm.IStart || col > bm.IEnd {
		panic(fmt.Sprintf("column %d out of range [%d,%d]", col, bm.IStart, bm.IEnd))
	}
	n = (col - bm.IStart) / bm.BlockSize
	blk = bm.Blocks[n]
	return
}

// CoupledBlock is the single block owned by a solver rank under the coupled
// policy. The block is derived from the rank alone and is never clamped: a
// tail block extending past the column domain is a configuration error the
// caller must avoid by sizing the solver group to the domain.
func CoupledBlock(rank, blocksize int) ColumnBlock {
	if blocksize <= 0 {
		panic(fmt.Sprintf("block size must be positive, have %d", blocksize))
	}
	return ColumnBlock{
		Start: rank*blocksize + 1,
		End:   (rank+1)*blocksize + 1,
	}
}
