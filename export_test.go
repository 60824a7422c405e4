package sslio

// Replays reports how often the completed reads and writes of ch were put back
// to the head of their queue.
func Replays(ch Channel) (reads int64, writes int64) {
	c := ch.(*channel)
	reads = c.readReplays.Load()
	writes = c.writeReplays.Load()
	return
}
