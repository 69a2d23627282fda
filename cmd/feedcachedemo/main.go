package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/txfeed/feedcache"
	"github.com/txfeed/feedcache/dispatch"
	"github.com/txfeed/feedcache/feeddata"
	"github.com/txfeed/feedcache/metrics"
)

// storeStub stands in for the durable transaction log: every id not
// already cached resolves to a deterministic record rather than a
// miss, so the demo can show a cold read falling through to it.
type storeStub struct{}

func (storeStub) Load(ctx context.Context, partitionId int32, transactionId uint64) (feeddata.FeedData, bool, error) {
	var reqId feeddata.ReqId
	reqId[0] = byte(transactionId)
	return feeddata.FeedData{TransactionId: transactionId, ReqId: reqId, Header: int32(partitionId)}, true, nil
}

func main() {
	blockSize := flag.Uint32("block-size", feedcache.DefaultBlockSize, "records per block")
	maxBlocks := flag.Int("max-blocks-per-partition", 2, "per-partition block capacity")
	capacity := flag.Int("shared-pool-capacity", 0, "pool-wide block cap, 0 for unbounded")
	stripes := flag.Int("stripes", 0, "free-list stripe count, 0 for GOMAXPROCS")
	partitionCount := flag.Int("partitions", 3, "number of partitions to exercise")
	recordsPerPartition := flag.Uint64("records-per-partition", 200, "records committed per partition")
	metricsSink := flag.String("metrics", "noop", "event sink: noop or prometheus")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	var reg *prometheus.Registry
	var sink metrics.Metrics = metrics.Noop{}
	switch *metricsSink {
	case "noop":
	case "prometheus":
		reg = prometheus.NewRegistry()
		sink = metrics.NewPrometheus(reg, "feedcachedemo")
	default:
		fmt.Fprintf(os.Stderr, "unknown -metrics value %q, want noop or prometheus\n", *metricsSink)
		os.Exit(2)
	}

	pool := feedcache.New(feedcache.Config{
		BlockSize:             *blockSize,
		Capacity:              *capacity,
		Stripes:               *stripes,
		MaxBlocksPerPartition: *maxBlocks,
		Metrics:               sink,
		Logger:                log,
	})
	defer pool.Close()

	d := dispatch.New(pool, storeStub{})
	ctx := context.Background()

	log.Info().
		Uint32("block_size", *blockSize).
		Int("max_blocks_per_partition", *maxBlocks).
		Int("partitions", *partitionCount).
		Msg("feed cache starting")

	for pid := int32(0); pid < int32(*partitionCount); pid++ {
		part := pool.Partition(pid)
		part.Open()

		for tid := uint64(0); tid < *recordsPerPartition; tid++ {
			var reqId feeddata.ReqId
			reqId[0] = byte(tid)
			part.Add(tid, reqId, pid)
		}

		// Every partition is read back twice: its last record as a warm
		// cache hit from the frontier block, then, after shrinking the
		// local pool to one block, its first record, whose block is no
		// longer resident, to show the dispatcher falling through to
		// storage.
		last := *recordsPerPartition - 1
		if fd, ok, err := d.Get(ctx, pid, last); err == nil && ok {
			log.Info().Int32("partition", pid).Uint64("txn", fd.TransactionId).Msg("warm read")
		}

		part.SetMaxBlocks(1)
		if fd, ok, err := d.Get(ctx, pid, 0); err == nil && ok {
			log.Info().Int32("partition", pid).Uint64("txn", fd.TransactionId).Msg("cold read after shrink")
		}

		part.Close()
	}

	stats := pool.Stats()
	fmt.Printf("blocks allocated: %s, on free list: %s\n",
		humanize.Comma(int64(stats.Allocated)), humanize.Comma(int64(stats.OnFreeList)))

	if reg != nil {
		printPrometheusCounters(reg)
	}
}

// printPrometheusCounters dumps the final value of every counter in the
// pool_events_total vector, one line per label, without pulling in a
// full HTTP exposition path for what is otherwise a one-shot demo run.
func printPrometheusCounters(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gathering prometheus metrics: %v\n", err)
		return
	}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			var kind string
			for _, lbl := range m.GetLabel() {
				if lbl.GetName() == "kind" {
					kind = lbl.GetValue()
				}
			}
			fmt.Printf("%s{kind=%q}: %g\n", fam.GetName(), kind, m.GetCounter().GetValue())
		}
	}
}
