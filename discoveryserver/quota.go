package discoveryserver

import (
	"sync"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"

	humanize "github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const (
	// MaxQuotaBytes is the largest snapshot quota a server is expected to run with.
	MaxQuotaBytes = int64(2 * 1024 * 1024 * 1024) // 2GB
)

// Quota represents an arbitrary quota against arbitrary requests.
type Quota interface {
	// Available judges whether the given request fits within the quota.
	Available(req interface{}) bool
	// Cost computes the charge against the quota for a given request.
	Cost(req interface{}) int
	// Remaining is the amount of charge left for the quota.
	Remaining() int64
}

type passthroughQuota struct{}

func (*passthroughQuota) Available(interface{}) bool { return true }
func (*passthroughQuota) Cost(interface{}) int       { return 0 }
func (*passthroughQuota) Remaining() int64           { return 1 }

type backendQuota struct {
	s                *DiscoveryServer
	maxSnapshotBytes int64
}

const (
	// nodeOverhead is an estimate for the cost of a node's metadata in a snapshot
	nodeOverhead = 128
	// propertyOverhead is an estimate for the cost of a property's encoding
	propertyOverhead = 32
)

var (
	// only log once
	quotaLogOnce sync.Once

	maxQuotaSize = humanize.Bytes(uint64(MaxQuotaBytes))
)

// NewBackendQuota creates a quota layer bounding the snapshot size.
func NewBackendQuota(s *DiscoveryServer, name string) Quota {
	lg := s.getLogger()
	quotaSnapshotBytes.Set(float64(s.Cfg.QuotaSnapshotBytes))

	if s.Cfg.QuotaSnapshotBytes <= 0 {
		quotaLogOnce.Do(func() {
			lg.Info(
				"disabled snapshot quota",
				zap.String("quota-name", name),
				zap.Int64("quota-size-bytes", s.Cfg.QuotaSnapshotBytes),
			)
		})
		return &passthroughQuota{}
	}

	if s.Cfg.QuotaSnapshotBytes > MaxQuotaBytes {
		quotaLogOnce.Do(func() {
			lg.Warn(
				"quota exceeds the maximum value",
				zap.String("quota-name", name),
				zap.Int64("quota-size-bytes", s.Cfg.QuotaSnapshotBytes),
				zap.String("quota-size", humanize.Bytes(uint64(s.Cfg.QuotaSnapshotBytes))),
				zap.Int64("quota-maximum-size-bytes", MaxQuotaBytes),
				zap.String("quota-maximum-size", maxQuotaSize),
			)
		})
	}
	quotaLogOnce.Do(func() {
		lg.Info(
			"enabled snapshot quota",
			zap.String("quota-name", name),
			zap.Int64("quota-size-bytes", s.Cfg.QuotaSnapshotBytes),
			zap.String("quota-size", humanize.Bytes(uint64(s.Cfg.QuotaSnapshotBytes))),
		)
	})
	return &backendQuota{s, s.Cfg.QuotaSnapshotBytes}
}

func (b *backendQuota) Available(v interface{}) bool {
	return b.s.SnapshotSize()+int64(b.Cost(v)) <= b.maxSnapshotBytes
}

func (b *backendQuota) Cost(v interface{}) int {
	switch r := v.(type) {
	case *pb.AddNodesRequest:
		sz := 0
		for _, n := range r.Nodes {
			sz += costNode(n)
		}
		return sz
	case *pb.UpdateNodeRequest:
		return costNode(r.Node)
	case *pb.UpdatePropertyRequest:
		sz := len(r.Uri) + len(r.Property) + propertyOverhead
		if r.Value != nil {
			sz += costValue(*r.Value)
		}
		return sz
	}
	panic("unexpected cost")
}

func (b *backendQuota) Remaining() int64 {
	return b.maxSnapshotBytes - b.s.SnapshotSize()
}

func costNode(n *pb.Node) int {
	if n == nil {
		return 0
	}
	sz := len(n.Uri) + nodeOverhead
	for name, v := range n.Properties {
		sz += len(name) + propertyOverhead + costValue(v)
	}
	for _, c := range n.Nodes {
		sz += costNode(c)
	}
	return sz
}

func costValue(v pb.PropertyValue) int {
	switch v.Kind {
	case pb.KindString:
		return len(v.String)
	case pb.KindBytes:
		// base64 in the snapshot
		return (len(v.Bytes) + 2) / 3 * 4
	}
	return 24
}
