package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	kbroker "github.com/mkocikowski/kbroker"
	"github.com/mkocikowski/kbroker/api"
	"github.com/mkocikowski/kbroker/api/Fetch"
	"github.com/mkocikowski/kbroker/api/ListOffsets"
	"github.com/mkocikowski/kbroker/api/Metadata"
	"github.com/mkocikowski/kbroker/api/Produce"
	"github.com/mkocikowski/kbroker/broker"
)

var (
	ErrPartitionDoesNotExist = errors.New("partition does not exist")
	ErrNoLeaderForPartition  = errors.New("no leader for partition")
)

func GetPartitionLeader(bootstrap string, tlsConfig *tls.Config, topic string, partition int32) (*Metadata.Broker, error) {
	meta, err := CallMetadata(bootstrap, tlsConfig, []string{topic})
	if err != nil {
		return nil, err
	}
	partitions := meta.Partitions(topic)
	if partitions == nil || partitions[partition] == nil {
		return nil, ErrPartitionDoesNotExist
	}
	leaders := meta.Leaders(topic)
	if leaders[partition] == nil {
		return nil, ErrNoLeaderForPartition
	}
	return leaders[partition], nil
}

// PartitionClient maintains a broker.Broker connection to the leader of a
// single topic partition. The client uses the Bootstrap value to look up
// topic metadata and connect to the leader of the given topic partition;
// this happens on the first API call. The connection is reused across
// calls. If an API call can't complete the request-response round trip,
// or the response can't be parsed, the call returns an error and the
// underlying Broker is closed (it will be re-opened, and the leader
// re-resolved, on the next call). A successfully parsed response means
// only that the round trip completed: an error code inside the Kafka
// response is the caller's to check. All PartitionClient calls are safe
// for concurrent use.
type PartitionClient struct {
	sync.Mutex
	Bootstrap string // srv or host:port
	TLS       *tls.Config
	ClientId  string
	Topic     string
	Partition int32
	// ConnMaxIdle corresponds to connections.max.idle.ms broker setting.
	// Kafka closes connections that have been idle (no api calls made)
	// for this long; if more than ConnMaxIdle has passed since the last
	// call, PartitionClient closes its connection and opens a fresh one
	// on the next call rather than risk writing to one the broker has
	// already dropped. Zero disables the check.
	ConnMaxIdle time.Duration

	leader       *Metadata.Broker
	b            *broker.Broker
	connOpened   time.Time
	connLastUsed time.Time
}

// connect is called with the mutex held, only from call(). If there is an
// open connection still within kbroker.ConnectionTTL and ConnMaxIdle,
// this is a no-op; otherwise it resolves the current leader and opens a
// fresh broker.Broker to it.
func (c *PartitionClient) connect() error {
	if c.b != nil {
		switch {
		case kbroker.ConnectionTTL > 0 && time.Since(c.connOpened) > kbroker.ConnectionTTL:
			c.disconnect()
		case c.ConnMaxIdle > 0 && time.Since(c.connLastUsed) > c.ConnMaxIdle:
			c.disconnect()
		default:
			return nil
		}
	}
	leader, err := GetPartitionLeader(c.Bootstrap, c.TLS, c.Topic, c.Partition)
	if err != nil {
		return fmt.Errorf("error getting partition leader: %w", err)
	}
	c.leader = leader
	c.b = newBroker(leader.Addr(), c.TLS)

	ctx, cancel := context.WithTimeout(context.Background(), kbroker.DialTimeout)
	defer cancel()
	if err := c.b.WaitForConnect(ctx); err != nil {
		c.b.Close()
		c.b = nil
		return err
	}
	c.connOpened = time.Now().UTC()
	c.connLastUsed = c.connOpened
	return nil
}

// close connection to leader, but do not zero c.leader (so that it can
// still be accessed with the Leader call).
func (c *PartitionClient) disconnect() {
	if c.b == nil {
		return
	}
	c.b.Close()
	c.b = nil
}

// Close the connection to the topic partition leader. Nop if no active
// connection.
func (c *PartitionClient) Close() error { // implement io.Closer
	c.Lock()
	defer c.Unlock()
	c.disconnect()
	return nil
}

// Leader returns the last resolved partition leader, even if connection
// has since been closed (as happens on error).
func (c *PartitionClient) Leader() *Metadata.Broker {
	c.Lock()
	defer c.Unlock()
	return c.leader
}

func (c *PartitionClient) call(req *api.Request, v interface{}) error {
	c.Lock()
	defer c.Unlock()
	if err := c.connect(); err != nil {
		return fmt.Errorf("error connecting to partition leader (TLS: %v): %w", c.TLS != nil, err)
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
		return fmt.Errorf("error making call to partition leader (TLS: %v): %w", c.TLS != nil, err)
	}
	if err := resp.Unmarshal(v); err != nil {
		c.disconnect()
		return fmt.Errorf("error unmarshaling %T response: %w", req.Body, err)
	}
	c.connLastUsed = time.Now().UTC()
	return nil
}

func (c *PartitionClient) ListOffsets(timestampMs int64) (*ListOffsets.Response, error) {
	req := ListOffsets.NewRequest(c.Topic, c.Partition, timestampMs)
	resp := &ListOffsets.Response{}
	return resp, c.call(req, resp)
}

func (c *PartitionClient) Fetch(args *Fetch.Args) (*Fetch.Response, error) {
	req := Fetch.NewRequest(args)
	resp := &Fetch.Response{}
	return resp, c.call(req, resp)
}

func (c *PartitionClient) Produce(recordSet []byte, acks int16, timeoutMs int32) (*Produce.Response, error) {
	req := Produce.NewRequest(c.Topic, c.Partition, acks, timeoutMs, recordSet)
	resp := &Produce.Response{}
	return resp, c.call(req, resp)
}
