package client

import (
	"testing"
)

func TestPoolGetReusesClientForSameEndpoint(t *testing.T) {
	p := &Pool{}
	e := Endpoint{Bootstrap: "localhost:9092", Topic: "foo", Partition: 0}
	c1 := p.Get(e)
	c2 := p.Get(e)
	if c1 != c2 {
		t.Fatal("expected same *PartitionClient for the same endpoint")
	}
}

func TestPoolGetDistinctClientsForDistinctEndpoints(t *testing.T) {
	p := &Pool{}
	c1 := p.Get(Endpoint{Bootstrap: "localhost:9092", Topic: "foo", Partition: 0})
	c2 := p.Get(Endpoint{Bootstrap: "localhost:9092", Topic: "foo", Partition: 1})
	if c1 == c2 {
		t.Fatal("expected distinct *PartitionClient for distinct partitions")
	}
}

func TestPoolCloseAllEmptiesPool(t *testing.T) {
	p := &Pool{}
	p.Get(Endpoint{Bootstrap: "localhost:9092", Topic: "foo", Partition: 0})
	if err := p.CloseAll(); err != nil {
		t.Fatal(err)
	}
	if len(p.clients) != 0 {
		t.Fatalf("%+v", p.clients)
	}
}
