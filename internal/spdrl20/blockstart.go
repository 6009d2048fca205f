package spdrl20

// BlockStart is the sending end of a block section (spec.md §4.9;
// spdrl20.py BlockStart): it becomes blocked when the track segment just
// past it reports clear after the departing train, and stays blocked until
// the neighboring BlockEnd reports the section unblocked.
type BlockStart struct {
	base
	blocked bool

	blockEndTopic     string
	blockingTrackTopic string
}

func newBlockStart(tower *Tower, name, blockEndTopic, blockingTrackTopic string) *BlockStart {
	bs := &BlockStart{
		base:               newBase(tower, KindBlockStart, name),
		blockEndTopic:      tower.qualifyTracksideTopic("block", blockEndTopic),
		blockingTrackTopic: tower.qualifyTracksideTopic("track", blockingTrackTopic),
	}
	bs.wireCommonTopics(bs.onButton, bs.onOccupied)
	bs.tower.subscribe(bs.blockEndTopic, func(_, payload string) { bs.onBlockEnd(payload) })
	bs.tower.subscribe(bs.blockingTrackTopic, func(_, payload string) { bs.onBlockingTrack(payload) })
	return bs
}

func (bs *BlockStart) render() string {
	return joinFields(boolDigit(bs.occupied), boolDigit(bs.blocked))
}

// Publish sends the current occupied,blocked state.
func (bs *BlockStart) Publish() {
	bs.publish(bs.render())
}

func (bs *BlockStart) onButton(value string) {
	bs.pushed = ToBool(value)
}

func (bs *BlockStart) onOccupied(value string) {
	bs.occupied = ToBool(value)
	bs.Publish()
}

// onBlockEnd handles the neighboring station unblocking this section.
func (bs *BlockStart) onBlockEnd(value string) {
	if !ToBool(value) {
		bs.blocked = false
		bs.Publish()
	}
}

// onBlockingTrack handles the track in front of this block becoming
// occupied and clear again, which re-blocks the section for the next train.
func (bs *BlockStart) onBlockingTrack(value string) {
	if !ToBool(value) {
		bs.blocked = true
		bs.Publish()
	}
}

// Reset restores power-on state: not blocked.
func (bs *BlockStart) Reset() {
	bs.blocked = false
	bs.Publish()
}
