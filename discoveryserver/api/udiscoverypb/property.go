package udiscoverypb

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"
)

type ValueKind string

const (
	KindBool      ValueKind = "bool"
	KindInteger   ValueKind = "integer"
	KindDouble    ValueKind = "double"
	KindString    ValueKind = "string"
	KindBytes     ValueKind = "bytes"
	KindTimestamp ValueKind = "timestamp"
)

var (
	ErrUnknownKind = errors.New("udiscoverypb: unknown property kind")
	ErrNotFinite   = errors.New("udiscoverypb: double value is not finite")
)

// Timestamp is a UTC instant with nanosecond precision.
type Timestamp = time.Time

// PropertyValue is a tagged union. Kind selects the field that holds the value.
type PropertyValue struct {
	Kind      ValueKind  `json:"kind"`
	Bool      bool       `json:"bool,omitempty"`
	Integer   int64      `json:"integer,omitempty"`
	Double    float64    `json:"double,omitempty"`
	String    string     `json:"string,omitempty"`
	Bytes     []byte     `json:"bytes,omitempty"`
	Timestamp *Timestamp `json:"timestamp,omitempty"`
}

func BoolValue(b bool) PropertyValue      { return PropertyValue{Kind: KindBool, Bool: b} }
func IntegerValue(i int64) PropertyValue  { return PropertyValue{Kind: KindInteger, Integer: i} }
func DoubleValue(f float64) PropertyValue { return PropertyValue{Kind: KindDouble, Double: f} }
func StringValue(s string) PropertyValue  { return PropertyValue{Kind: KindString, String: s} }

func BytesValue(b []byte) PropertyValue {
	cp := make([]byte, len(b))
	copy(cp, b)
	return PropertyValue{Kind: KindBytes, Bytes: cp}
}

func TimestampValue(t time.Time) PropertyValue {
	u := t.UTC()
	return PropertyValue{Kind: KindTimestamp, Timestamp: &u}
}

// Validate reports whether v is a well-formed value of its kind.
func (v PropertyValue) Validate() error {
	switch v.Kind {
	case KindBool, KindInteger, KindString, KindBytes:
		return nil
	case KindDouble:
		if math.IsNaN(v.Double) || math.IsInf(v.Double, 0) {
			return ErrNotFinite
		}
		return nil
	case KindTimestamp:
		if v.Timestamp == nil {
			return fmt.Errorf("udiscoverypb: timestamp value is missing")
		}
		return nil
	}
	return fmt.Errorf("%w %q", ErrUnknownKind, v.Kind)
}

// Normalize returns a copy that keeps only the field chosen by Kind and owns
// its byte slice and timestamp.
func (v PropertyValue) Normalize() PropertyValue {
	switch v.Kind {
	case KindBool:
		return BoolValue(v.Bool)
	case KindInteger:
		return IntegerValue(v.Integer)
	case KindDouble:
		return DoubleValue(v.Double)
	case KindString:
		return StringValue(v.String)
	case KindBytes:
		return BytesValue(v.Bytes)
	case KindTimestamp:
		if v.Timestamp == nil {
			return PropertyValue{Kind: KindTimestamp}
		}
		return TimestampValue(*v.Timestamp)
	}
	return v
}

func (v PropertyValue) Equal(o PropertyValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == o.Bool
	case KindInteger:
		return v.Integer == o.Integer
	case KindDouble:
		return v.Double == o.Double
	case KindString:
		return v.String == o.String
	case KindBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	case KindTimestamp:
		if v.Timestamp == nil || o.Timestamp == nil {
			return v.Timestamp == o.Timestamp
		}
		return v.Timestamp.Equal(*o.Timestamp)
	}
	return false
}

// Format renders the value for logs.
func (v PropertyValue) Format() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprint(v.Bool)
	case KindInteger:
		return fmt.Sprint(v.Integer)
	case KindDouble:
		return fmt.Sprint(v.Double)
	case KindString:
		return v.String
	case KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	case KindTimestamp:
		if v.Timestamp != nil {
			return v.Timestamp.Format(time.RFC3339Nano)
		}
	}
	return ""
}
