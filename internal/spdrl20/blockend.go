package spdrl20

// BlockEnd is the receiving end of a block section shared with a
// neighboring station (spec.md §4.9; spdrl20.py BlockEnd). It tracks two
// extra flags beyond occupancy: blocked (a train has been signaled in from
// the other end) and clearanceLock (the train has not yet cleared the
// block signal here, so BlGT cannot release the block yet).
type BlockEnd struct {
	base
	blocked       bool
	clearanceLock bool

	blockStartTopic           string
	clearanceLockReleaseTopic string
}

func newBlockEnd(tower *Tower, name, blockStartTopic, clearanceLockReleaseTopic string) *BlockEnd {
	be := &BlockEnd{
		base:                      newBase(tower, KindBlockEnd, name),
		clearanceLock:             true,
		blockStartTopic:           tower.qualifyTracksideTopic("block", blockStartTopic),
		clearanceLockReleaseTopic: tower.qualifyTracksideTopic("track", clearanceLockReleaseTopic),
	}
	be.wireCommonTopics(be.onButton, be.onOccupied)
	be.tower.subscribe(be.clearanceLockReleaseTopic, func(_, payload string) { be.onClearanceLockRelease(payload) })
	be.tower.subscribe(be.blockStartTopic, func(_, payload string) { be.onBlockStart(payload) })
	return be
}

func (be *BlockEnd) render() string {
	return joinFields(boolDigit(be.occupied), boolDigit(be.blocked), boolDigit(be.clearanceLock))
}

// Publish sends the current occupied,blocked,clearanceLock state.
func (be *BlockEnd) Publish() {
	be.publish(be.render())
}

func (be *BlockEnd) onOccupied(value string) {
	be.occupied = ToBool(value)
	be.Publish()
}

// onBlockStart handles the neighboring station's block-start signal
// locking this block.
func (be *BlockEnd) onBlockStart(value string) {
	if ToBool(value) {
		be.blocked = true
		be.Publish()
	}
}

// onButton handles BlGT: releases the block, provided the clearance lock
// has already been dropped (i.e. the train has cleared the block signal).
func (be *BlockEnd) onButton(value string) {
	be.pushed = ToBool(value)
	if be.pushed && be.tower.IsOuterButton("BlGT") && !be.clearanceLock {
		be.blocked = false
		be.clearanceLock = true
		be.Publish()
	}
}

// onClearanceLockRelease drops the clearance lock once the track segment
// in front of the block signal transitions from occupied to unoccupied.
func (be *BlockEnd) onClearanceLockRelease(value string) {
	if !ToBool(value) && be.clearanceLock {
		be.clearanceLock = false
		be.Publish()
	}
}

// Reset restores power-on state: not blocked, clearance lock engaged.
func (be *BlockEnd) Reset() {
	be.blocked = false
	be.clearanceLock = true
	be.Publish()
}
