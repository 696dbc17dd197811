// Command brokerctl is a small operator tool for poking at a Kafka
// broker through the kbroker client: list API versions, fetch topic
// metadata, create a topic, or produce a handful of string records to
// one partition.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/mkocikowski/kbroker/client"
	"github.com/mkocikowski/kbroker/client/producer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		slog.Info("brokerctl: shutting down")
	}()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "versions":
		err = runVersions(args)
	case "metadata":
		err = runMetadata(args)
	case "create-topic":
		err = runCreateTopic(args)
	case "produce":
		err = runProduce(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("brokerctl: command failed", "cmd", cmd, "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: brokerctl <command> [flags]

commands:
  versions      -bootstrap host:port
  metadata      -bootstrap host:port [-topics a,b,c]
  create-topic  -bootstrap host:port -topic name [-partitions n] [-replication n]
  produce       -bootstrap host:port -topic name [-partition n] value...`)
}

func runVersions(args []string) error {
	fs := flag.NewFlagSet("versions", flag.ExitOnError)
	bootstrap := fs.String("bootstrap", "localhost:9092", "bootstrap host:port")
	fs.Parse(args)

	resp, err := client.CallApiVersions(*bootstrap, nil)
	if err != nil {
		return err
	}
	for _, v := range resp.ApiKeys {
		fmt.Printf("%d\tmin=%d max=%d\n", v.ApiKey, v.MinVersion, v.MaxVersion)
	}
	return nil
}

func runMetadata(args []string) error {
	fs := flag.NewFlagSet("metadata", flag.ExitOnError)
	bootstrap := fs.String("bootstrap", "localhost:9092", "bootstrap host:port")
	topics := fs.String("topics", "", "comma separated topic names")
	fs.Parse(args)

	var t []string
	if *topics != "" {
		t = strings.Split(*topics, ",")
	}
	resp, err := client.CallMetadata(*bootstrap, nil, t)
	if err != nil {
		return err
	}
	for _, tm := range resp.TopicMetadata {
		fmt.Printf("%s\terror=%d\n", tm.Topic, tm.ErrorCode)
		for _, pm := range tm.PartitionMetadata {
			fmt.Printf("  partition=%d leader=%d replicas=%v\n", pm.Partition, pm.Leader, pm.Replicas)
		}
	}
	return nil
}

func runCreateTopic(args []string) error {
	fs := flag.NewFlagSet("create-topic", flag.ExitOnError)
	bootstrap := fs.String("bootstrap", "localhost:9092", "bootstrap host:port")
	topic := fs.String("topic", "", "topic name")
	partitions := fs.Int("partitions", 1, "number of partitions")
	replication := fs.Int("replication", 1, "replication factor")
	fs.Parse(args)

	if *topic == "" {
		return fmt.Errorf("-topic is required")
	}
	resp, err := client.CallCreateTopic(*bootstrap, nil, *topic, int32(*partitions), int16(*replication))
	if err != nil {
		return err
	}
	for _, t := range resp.Topics {
		fmt.Printf("%s\terror=%d\n", t.Name, t.ErrorCode)
	}
	return nil
}

func runProduce(args []string) error {
	fs := flag.NewFlagSet("produce", flag.ExitOnError)
	bootstrap := fs.String("bootstrap", "localhost:9092", "bootstrap host:port")
	topic := fs.String("topic", "", "topic name")
	partition := fs.Int("partition", 0, "partition index")
	fs.Parse(args)

	if *topic == "" {
		return fmt.Errorf("-topic is required")
	}
	values := fs.Args()
	if len(values) == 0 {
		return fmt.Errorf("at least one value is required")
	}

	p := &producer.PartitionProducer{
		PartitionClient: client.PartitionClient{
			Bootstrap: *bootstrap,
			Topic:     *topic,
			Partition: int32(*partition),
		},
		Acks:      1,
		TimeoutMs: 1000,
	}
	defer p.Close()

	resp, err := p.ProduceStrings(time.Now(), values...)
	if err != nil {
		return err
	}
	fmt.Printf("baseOffset=%d error=%d\n", resp.BaseOffset, resp.ErrorCode)
	return nil
}
