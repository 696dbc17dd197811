// Package client has code for making api calls to brokers. It implements
// the PartitionClient, which maintains a broker.Broker connection to a
// single partition leader (producers and consumers are built on top of
// that), and the GroupClient, which maintains a connection to the group
// coordinator (for group membership and offset management). All client
// API calls are synchronous from the caller's perspective, even though
// each underlying broker.Broker connection is actor-serialized.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	kbroker "github.com/mkocikowski/kbroker"
	"github.com/mkocikowski/kbroker/api"
	"github.com/mkocikowski/kbroker/api/ApiVersions"
	"github.com/mkocikowski/kbroker/api/CreateTopics"
	"github.com/mkocikowski/kbroker/api/Metadata"
	"github.com/mkocikowski/kbroker/broker"
)

// LookupSrv returns a list of host:port strings in the order returned by
// the srv lookup call.
func LookupSrv(name string) ([]string, error) { return broker.LookupSrv(name) }

// RandomBroker tries to resolve name through a call to LookupSrv. If
// successful it returns a random host:port from the list. If LookupSrv
// fails it returns name unmodified (so you can pass "localhost:9092" for
// example).
func RandomBroker(name string) string { return broker.RandomBroker(name) }

// tlsDialer adapts tls.DialWithDialer to the broker.Dialer interface, so
// TLS-secured connections go through the same Call/WaitForConnect path as
// plaintext ones.
type tlsDialer struct {
	cfg *tls.Config
}

func (d *tlsDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	timeout := kbroker.DialTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	return tls.DialWithDialer(&net.Dialer{Timeout: timeout}, network, address, d.cfg)
}

func newBroker(addr string, tlsConfig *tls.Config) *broker.Broker {
	cfg := broker.Config{ConnectTimeout: kbroker.DialTimeout}
	if tlsConfig != nil {
		cfg.Dialer = &tlsDialer{cfg: tlsConfig}
	}
	return broker.New(addr, cfg)
}

// call opens a short-lived broker connection to addr, makes one request,
// and tears the connection down. It is the building block under the
// bootstrap-only helpers below (CallApiVersions, CallMetadata,
// CallCreateTopic); PartitionClient and GroupClient keep their broker
// connections open across calls instead.
func call(addr string, tlsConfig *tls.Config, req *api.Request, v interface{}) error {
	b := newBroker(addr, tlsConfig)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), kbroker.DialTimeout)
	defer cancel()
	if err := b.WaitForConnect(ctx); err != nil {
		return fmt.Errorf("error connecting to %s: %w", addr, err)
	}

	body, err := req.Marshal()
	if err != nil {
		return fmt.Errorf("error marshaling %T request: %w", req.Body, err)
	}
	resp, err := b.Call(req.ApiKey, req.ApiVersion, body).Wait(ctx)
	if err != nil {
		return fmt.Errorf("error making %T call: %w", req.Body, err)
	}
	if err := resp.Unmarshal(v); err != nil {
		return fmt.Errorf("error unmarshaling %T response: %w", req.Body, err)
	}
	return nil
}

func connectAndCall(bootstrap string, tlsConfig *tls.Config, req *api.Request, v interface{}) error {
	return call(RandomBroker(bootstrap), tlsConfig, req, v)
}

func CallApiVersions(bootstrap string, tlsConfig *tls.Config) (*ApiVersions.Response, error) {
	req := ApiVersions.NewRequest()
	resp := &ApiVersions.Response{}
	return resp, connectAndCall(bootstrap, tlsConfig, req, resp)
}

func CallMetadata(bootstrap string, tlsConfig *tls.Config, topics []string) (*Metadata.Response, error) {
	req := Metadata.NewRequest(topics)
	resp := &Metadata.Response{}
	return resp, connectAndCall(bootstrap, tlsConfig, req, resp)
}

func CallCreateTopic(bootstrap string, tlsConfig *tls.Config, topic string, numPartitions int32, replicationFactor int16) (*CreateTopics.Response, error) {
	req := CreateTopics.NewRequest(topic, numPartitions, replicationFactor, []CreateTopics.Config{})
	resp := &CreateTopics.Response{}
	return resp, connectAndCall(bootstrap, tlsConfig, req, resp)
}
