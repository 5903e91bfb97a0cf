// Package snap seals tree snapshots with a checksum and writes them to a
// backend off the request path.
package snap

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/iScript/udiscovery/discoveryserver/api/v3error"
	"github.com/iScript/udiscovery/pkg/checksum"

	"go.uber.org/zap"
)

// snapshotVersion is the envelope format version.
const snapshotVersion = 1

// Exporter is the part of the store a snapshot is taken from.
type Exporter interface {
	Save() ([]byte, error)
}

type envelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Data     json.RawMessage `json:"data"`
}

type Snapshotter struct {
	lg *zap.Logger
}

func New(lg *zap.Logger) *Snapshotter {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Snapshotter{lg: lg}
}

// Export encodes the tree and stamps it:
//
//	{"version":1,"checksum":"<sha256 hex of data>","data":<tree>}
//
// Exports of an unchanged tree are byte-identical.
func (s *Snapshotter) Export(st Exporter) ([]byte, error) {
	start := time.Now()
	data, err := st.Save()
	if err != nil {
		return nil, err
	}
	sealed := Seal(data)
	snapExportDurations.Observe(time.Since(start).Seconds())
	snapshotBytes.Set(float64(len(sealed)))
	return sealed, nil
}

// Seal wraps tree data in a checksum envelope. The data bytes are embedded
// verbatim so the checksum covers exactly what Import will read back.
func Seal(data []byte) []byte {
	sum := checksum.Compute(data)
	var buf bytes.Buffer
	buf.Grow(len(data) + 2*checksum.Size + 40)
	buf.WriteString(`{"version":`)
	buf.WriteString(strconv.Itoa(snapshotVersion))
	buf.WriteString(`,"checksum":"`)
	buf.WriteString(sum.String())
	buf.WriteString(`","data":`)
	buf.Write(data)
	buf.WriteString(`}`)
	return buf.Bytes()
}

// Import checks the envelope and returns the tree data it carries. Any decode
// failure or checksum mismatch is a Corrupt error; nothing is built from data
// that fails verification.
func (s *Snapshotter) Import(snapshot []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(snapshot, &env); err != nil {
		return nil, s.corrupt("decode envelope", err)
	}
	if env.Version != snapshotVersion {
		return nil, s.corrupt("unsupported version "+strconv.Itoa(env.Version), nil)
	}
	sum, err := checksum.Parse(env.Checksum)
	if err != nil {
		return nil, s.corrupt("checksum", err)
	}
	if len(env.Data) == 0 {
		return nil, s.corrupt("missing data", nil)
	}
	if !checksum.Verify(env.Data, sum) {
		return nil, s.corrupt("checksum mismatch", nil)
	}
	return []byte(env.Data), nil
}

func (s *Snapshotter) corrupt(cause string, err error) error {
	snapCorruptTotal.Inc()
	fields := []zap.Field{zap.String("cause", cause)}
	if err != nil {
		fields = append(fields, zap.Error(err))
		cause += ": " + err.Error()
	}
	s.lg.Warn("rejected corrupt snapshot", fields...)
	return v3error.NewError(v3error.EcodeCorrupt, cause)
}
