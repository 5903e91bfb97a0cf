//go:build !linux

package backend

import bolt "go.etcd.io/bbolt"

var boltOpenOptions *bolt.Options

func (bcfg *BoltConfig) mmapSize() int { return int(bcfg.MmapSize) }
