package client

import (
	"crypto/tls"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Endpoint identifies one topic partition's leader connection inside a
// Pool, the same triple PartitionClient itself keys off.
type Endpoint struct {
	Bootstrap string
	Topic     string
	Partition int32
}

// Pool keeps one PartitionClient per Endpoint alive across calls, so a
// caller juggling many partitions doesn't have to track connections
// itself. The zero value is ready to use.
type Pool struct {
	sync.Mutex
	TLS     *tls.Config
	clients map[Endpoint]*PartitionClient
}

// Get returns the PartitionClient for e, creating one on first use.
func (p *Pool) Get(e Endpoint) *PartitionClient {
	p.Lock()
	defer p.Unlock()
	if p.clients == nil {
		p.clients = make(map[Endpoint]*PartitionClient)
	}
	c, ok := p.clients[e]
	if !ok {
		c = &PartitionClient{
			Bootstrap: e.Bootstrap,
			TLS:       p.TLS,
			Topic:     e.Topic,
			Partition: e.Partition,
		}
		p.clients[e] = c
	}
	return c
}

// CloseAll closes every PartitionClient in the pool concurrently and
// returns the first error encountered, if any. The pool is empty again
// after CloseAll returns regardless of error.
func (p *Pool) CloseAll() error {
	p.Lock()
	clients := p.clients
	p.clients = nil
	p.Unlock()

	var g errgroup.Group
	for _, c := range clients {
		c := c
		g.Go(c.Close)
	}
	return g.Wait()
}
