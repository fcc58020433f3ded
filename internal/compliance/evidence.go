package compliance

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ScalarKind tags the variant held by a Scalar.
type ScalarKind uint8

const (
	KindString ScalarKind = iota + 1
	KindNumber
	KindBool
)

// Scalar is a single evidence value. Evidence is restricted to scalars so
// decision records serialize to a flat, stable shape.
type Scalar struct {
	kind ScalarKind
	str  string
	num  float64
	b    bool
}

func String(v string) Scalar  { return Scalar{kind: KindString, str: v} }
func Number(v float64) Scalar { return Scalar{kind: KindNumber, num: v} }
func Int(v int) Scalar        { return Scalar{kind: KindNumber, num: float64(v)} }
func Bool(v bool) Scalar      { return Scalar{kind: KindBool, b: v} }

func (s Scalar) Kind() ScalarKind { return s.kind }

// Text renders the value for logs and messages.
func (s Scalar) Text() string {
	switch s.kind {
	case KindString:
		return s.str
	case KindNumber:
		return strconv.FormatFloat(s.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(s.b)
	default:
		return ""
	}
}

// Float returns the numeric value and whether the scalar is a number.
func (s Scalar) Float() (float64, bool) {
	return s.num, s.kind == KindNumber
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case KindString:
		return json.Marshal(s.str)
	case KindNumber:
		if math.IsNaN(s.num) || math.IsInf(s.num, 0) {
			return nil, fmt.Errorf("evidence number is not finite")
		}
		return json.Marshal(s.num)
	case KindBool:
		return json.Marshal(s.b)
	default:
		return []byte("null"), nil
	}
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*s = String(v)
	case float64:
		*s = Number(v)
	case bool:
		*s = Bool(v)
	case nil:
		*s = Scalar{}
	default:
		return fmt.Errorf("evidence values must be scalars, got %T", raw)
	}
	return nil
}

// Evidence is the explainability bag attached to a violation: which inputs
// and which data sources produced the finding.
type Evidence map[string]Scalar

// Get returns the value under key.
func (e Evidence) Get(key string) (Scalar, bool) {
	v, ok := e[key]
	return v, ok
}
