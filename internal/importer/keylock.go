package importer

import (
	"hash/fnv"
	"sync"
)

// keyLock provides striped mutual exclusion keyed by string. Two different
// keys may share a stripe; that only costs contention, never correctness.
type keyLock struct {
	stripes [64]sync.Mutex
}

func (k *keyLock) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &k.stripes[h.Sum32()%uint32(len(k.stripes))]
	mu.Lock()
	return mu
}
