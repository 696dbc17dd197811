package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"

	kbroker "github.com/mkocikowski/kbroker"
	"github.com/mkocikowski/kbroker/api"
	"github.com/mkocikowski/kbroker/api/FindCoordinator"
	"github.com/mkocikowski/kbroker/api/Heartbeat"
	"github.com/mkocikowski/kbroker/api/JoinGroup"
	"github.com/mkocikowski/kbroker/api/OffsetCommit"
	"github.com/mkocikowski/kbroker/api/OffsetFetch"
	"github.com/mkocikowski/kbroker/api/SyncGroup"
	"github.com/mkocikowski/kbroker/broker"
)

func CallFindCoordinator(bootstrap string, tlsConfig *tls.Config, groupId string) (*FindCoordinator.Response, error) {
	req := FindCoordinator.NewRequest(groupId)
	resp := &FindCoordinator.Response{}
	return resp, connectAndCall(bootstrap, tlsConfig, req, resp)
}

func GetGroupCoordinator(bootstrap string, tlsConfig *tls.Config, groupId string) (string, error) {
	resp, err := CallFindCoordinator(bootstrap, tlsConfig, groupId)
	if err != nil {
		return "", fmt.Errorf("error making FindCoordinator call: %w", err)
	}
	if resp.ErrorCode != kbroker.ERR_NONE {
		return "", fmt.Errorf("error response from FindCoordinator call: %w", &kbroker.Error{Code: resp.ErrorCode})
	}
	return net.JoinHostPort(resp.Host, strconv.Itoa(int(resp.Port))), nil
}

// https://cwiki.apache.org/confluence/display/KAFKA/Kafka+Client-side+Assignment+Proposal

// GroupClient maintains a broker.Broker connection to the group
// coordinator for membership and offset management calls. As with
// PartitionClient, the coordinator is resolved lazily on the first call
// and the connection is reused until a call fails.
type GroupClient struct {
	sync.Mutex
	Bootstrap string
	TLS       *tls.Config
	GroupId   string
	b         *broker.Broker
}

func (c *GroupClient) connect() error {
	if c.b != nil {
		return nil
	}
	addr, err := GetGroupCoordinator(c.Bootstrap, c.TLS, c.GroupId)
	if err != nil {
		return err
	}
	c.b = newBroker(addr, c.TLS)
	ctx, cancel := context.WithTimeout(context.Background(), kbroker.DialTimeout)
	defer cancel()
	if err := c.b.WaitForConnect(ctx); err != nil {
		c.b.Close()
		c.b = nil
		return fmt.Errorf("error connecting to group coordinator: %w", err)
	}
	return nil
}

func (c *GroupClient) disconnect() {
	if c.b == nil {
		return
	}
	c.b.Close()
	c.b = nil
}

func (c *GroupClient) request(req *api.Request, v interface{}) error {
	c.Lock()
	defer c.Unlock()
	if err := c.connect(); err != nil {
		return err
	}
	body, err := req.Marshal()
	if err != nil {
		return fmt.Errorf("error marshaling %T request: %w", req.Body, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), kbroker.DialTimeout)
	defer cancel()
	resp, err := c.b.Call(req.ApiKey, req.ApiVersion, body).Wait(ctx)
	if err != nil {
		c.disconnect()
		return err
	}
	return resp.Unmarshal(v)
}

func (c *GroupClient) callJoin(memberId, protoType string, protocols []JoinGroup.Protocol) (*JoinGroup.Response, error) {
	req := JoinGroup.NewRequest(c.GroupId, memberId, protoType, protocols)
	resp := &JoinGroup.Response{}
	return resp, c.request(req, resp)
}

func (c *GroupClient) callSync(memberId string, generationId int32, assignments []SyncGroup.Assignment) (*SyncGroup.Response, error) {
	req := SyncGroup.NewRequest(c.GroupId, memberId, generationId, assignments)
	resp := &SyncGroup.Response{}
	return resp, c.request(req, resp)
}

type JoinGroupRequest struct {
	MemberId     string
	ProtocolType string
	ProtocolName string
	Metadata     []byte
	//group.initial.rebalance.delay.ms
}

func (c *GroupClient) Join(req *JoinGroupRequest) (*JoinGroup.Response, error) {
	p := JoinGroup.Protocol{
		Name:     req.ProtocolName,
		Metadata: req.Metadata,
	}
	return c.callJoin(req.MemberId, req.ProtocolType, []JoinGroup.Protocol{p})
}

type SyncGroupRequest struct {
	MemberId     string
	GenerationId int32
	Assignments  []SyncGroup.Assignment
}

func (c *GroupClient) Sync(req *SyncGroupRequest) (*SyncGroup.Response, error) {
	return c.callSync(req.MemberId, req.GenerationId, req.Assignments)
}

func (c *GroupClient) Heartbeat(memberId string, generationId int32) (*Heartbeat.Response, error) {
	req := Heartbeat.NewRequest(c.GroupId, memberId, generationId)
	resp := &Heartbeat.Response{}
	return resp, c.request(req, resp)
}

func parseOffsetFetchResponse(r *OffsetFetch.Response) (int64, error) {
	if r.ErrorCode != kbroker.ERR_NONE {
		return -1, &kbroker.Error{Code: r.ErrorCode}
	}
	if n := len(r.Topics); n != 1 {
		return -1, fmt.Errorf("unexpected number of topic responses: %d", n)
	}
	t := r.Topics[0]
	if n := len(t.Partitions); n != 1 {
		return -1, fmt.Errorf("unexpected number of topic partition responses: %d", n)
	}
	p := t.Partitions[0]
	if p.ErrorCode != kbroker.ERR_NONE {
		return -1, &kbroker.Error{Code: p.ErrorCode}
	}
	return p.CommitedOffset, nil
}

// FetchOffset fetches the last committed offset for topic partition. If
// the topic partition does not exist, or has no committed offset,
// returns -1 and no error.
func (c *GroupClient) FetchOffset(topic string, partition int32) (int64, error) {
	req := OffsetFetch.NewRequest(c.GroupId, topic, partition)
	resp := &OffsetFetch.Response{}
	if err := c.request(req, resp); err != nil {
		return -1, fmt.Errorf("error making fetch offsets call: %w", err)
	}
	return parseOffsetFetchResponse(resp)
}

// parseOffsetCommitResponse returns an error if there are no partitions
// in the response, or if any of them carries an error code.
func parseOffsetCommitResponse(r *OffsetCommit.Response) error {
	if n := len(r.Topics); n != 1 {
		return fmt.Errorf("unexpected number of topic responses: %d", n)
	}
	t := r.Topics[0]
	if n := len(t.Partitions); n < 1 {
		return &kbroker.Error{Code: kbroker.ERR_INVALID_PARTITIONS}
	}
	for _, p := range t.Partitions {
		if p.ErrorCode != kbroker.ERR_NONE {
			return &kbroker.Error{Code: p.ErrorCode}
		}
	}
	return nil
}

// CommitOffset commits the offset for a single partition.
func (c *GroupClient) CommitOffset(topic string, partition int32, offset, retentionMs int64) error {
	return c.CommitMultiplePartitionsOffsets(topic, map[int32]int64{partition: offset}, retentionMs)
}

// CommitMultiplePartitionsOffsets commits offsets for a set of partitions
// of a single topic in one call. offsets maps partition index to the
// offset to commit.
func (c *GroupClient) CommitMultiplePartitionsOffsets(topic string, offsets map[int32]int64, retentionMs int64) error {
	req := OffsetCommit.NewRequest(c.GroupId, topic, offsets, retentionMs)
	resp := &OffsetCommit.Response{}
	if err := c.request(req, resp); err != nil {
		return fmt.Errorf("error making commit offsets call: %w", err)
	}
	return parseOffsetCommitResponse(resp)
}
