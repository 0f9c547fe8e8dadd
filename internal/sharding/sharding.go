package sharding

import (
	"fmt"
	"hash/crc32"
)

// ShardCount is the fixed number of change-feed partitions.
const ShardCount = 256

// ChangePrefix roots every change notification subject.
const ChangePrefix = "board.change"

// GetShardID calculates the deterministic shard ID for a given key.
func GetShardID(key string) int {
	checksum := crc32.ChecksumIEEE([]byte(key))
	return int(checksum % ShardCount)
}

// ChangeSubject returns the subject a change to key in collection is
// published on.
// Format: board.change.{shard_id}.{collection}.{key}
func ChangeSubject(collection, key string) string {
	return fmt.Sprintf("%s.%d.%s.%s", ChangePrefix, GetShardID(key), collection, key)
}

// CollectionSubject matches every change to collection across shards.
func CollectionSubject(collection string) string {
	return fmt.Sprintf("%s.*.%s.*", ChangePrefix, collection)
}
