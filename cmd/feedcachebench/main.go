package main

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/txfeed/feedcache"
	"github.com/txfeed/feedcache/feeddata"
)

func main() {
	partitions := flag.Int("partitions", 32, "number of partitions")
	recordsPerPartition := flag.Int("records-per-partition", 5000, "records appended per partition")
	readers := flag.Int("readers", 200, "concurrent reader goroutines")
	opsPerReader := flag.Int("reader-ops", 5000, "random Get calls issued per reader")
	blockSize := flag.Uint32("block-size", feedcache.DefaultBlockSize, "records per block")
	maxBlocks := flag.Int("max-blocks-per-partition", 4, "per-partition block capacity")
	capacity := flag.Int("shared-pool-capacity", 0, "pool-wide block cap, 0 for unbounded")
	flag.Parse()

	fmt.Println("================ feed cache load benchmark ================")
	fmt.Printf("partitions: %d, records/partition: %d, readers: %d, reader ops: %d\n",
		*partitions, *recordsPerPartition, *readers, *opsPerReader)
	fmt.Printf("block size: %d, max blocks/partition: %d, pool capacity: %d\n",
		*blockSize, *maxBlocks, *capacity)

	pool := feedcache.New(feedcache.Config{
		BlockSize:             *blockSize,
		Capacity:              *capacity,
		MaxBlocksPerPartition: *maxBlocks,
	})
	defer pool.Close()

	// Writers: one goroutine per partition, each appending its own
	// strictly ascending sequence. Records only ever arrive in order
	// on a single writer per partition, so there's no contention for
	// the frontier within a partition, only across them.
	fmt.Println("writing...")
	var writeWG sync.WaitGroup
	writeWG.Add(*partitions)
	writeStart := time.Now()
	for p := int32(0); p < int32(*partitions); p++ {
		go func(p int32) {
			defer writeWG.Done()
			part := pool.Partition(p)
			part.Open()

			var reqId feeddata.ReqId
			for tid := uint64(0); tid < uint64(*recordsPerPartition); tid++ {
				reqId[0] = byte(tid)
				part.Add(tid, reqId, p)
			}
		}(p)
	}
	writeWG.Wait()
	writeDuration := time.Since(writeStart)
	fmt.Println("write complete.")

	// Readers: many goroutines issuing random lookups across every
	// partition and id already written. Readers of the same partition
	// serialize on its mutex, and a Get for a non-resident block checks
	// one out, so this is where concurrency actually stresses the cache.
	fmt.Println("reading...")
	var readWG sync.WaitGroup
	readWG.Add(*readers)
	readStart := time.Now()
	for r := 0; r < *readers; r++ {
		go func(seed int64) {
			defer readWG.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < *opsPerReader; i++ {
				p := pool.Partition(int32(rng.Intn(*partitions)))
				tid := uint64(rng.Intn(*recordsPerPartition))
				p.Get(tid)
			}
		}(int64(r))
	}
	readWG.Wait()
	readDuration := time.Since(readStart)
	fmt.Println("read complete.")

	for p := int32(0); p < int32(*partitions); p++ {
		pool.Partition(p).Close()
	}

	writeOps := int64(*partitions) * int64(*recordsPerPartition)
	readOps := int64(*readers) * int64(*opsPerReader)

	fmt.Println("\n================ results ================")
	fmt.Printf("write ops   : %d in %v (%.2f ops/sec)\n",
		writeOps, writeDuration, float64(writeOps)/writeDuration.Seconds())
	fmt.Printf("read ops    : %d in %v (%.2f ops/sec)\n",
		readOps, readDuration, float64(readOps)/readDuration.Seconds())

	stats := pool.Stats()
	fmt.Printf("blocks allocated : %d\n", stats.Allocated)
	fmt.Printf("blocks free      : %d\n", stats.OnFreeList)
}
