// Package cachestore persists and restores job artifacts under
// content-derived keys. Each entry is a single gzip tarball committed
// atomically, so concurrent writers to one key never interleave and the last
// successful writer wins. The cache is an optimization: a miss is an empty
// restore, and I/O failures are reported to the caller to log and move past,
// never to fail a job.
package cachestore
