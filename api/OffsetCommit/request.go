package OffsetCommit

import (
	"github.com/mkocikowski/kbroker/api"
)

// NewRequest builds an offset commit request covering every partition in
// offsets (partition index -> offset to commit) for a single topic.
func NewRequest(group, topic string, offsets map[int32]int64, retentionMs int64) *api.Request {
	partitions := make([]Partition, 0, len(offsets))
	for idx, offset := range offsets {
		partitions = append(partitions, Partition{
			PartitionIndex: idx,
			CommitedOffset: offset,
		})
	}
	t := Topic{
		Name:       topic,
		Partitions: partitions,
	}
	return &api.Request{
		ApiKey:     api.OffsetCommit,
		ApiVersion: 2,
		Body: Request{
			GroupId:         group,
			GenerationId:    -1,
			MemberId:        "",
			RetentionTimeMs: retentionMs,
			Topics:          []Topic{t},
		},
	}
}

type Request struct {
	GroupId         string
	GenerationId    int32
	MemberId        string
	RetentionTimeMs int64
	Topics          []Topic
}

type Topic struct {
	Name       string
	Partitions []Partition
}

type Partition struct {
	PartitionIndex   int32
	CommitedOffset   int64
	CommitedMetadata string
}
