// Package pool
// Author: momentics <momentics@gmail.com>
//
// Size-classed slab buffer pooling for socket ring buffers (spec
// component J, bufpool). See bufferpool.go for SlabPool (api.BytePool)
// and BufferPoolManager (api.BufferPool, NUMA-labelled).
package pool
