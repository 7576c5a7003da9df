// Package serial implements JSON tagged-sum (de)serialization for the
// polymorphic core types (Variable, Residual, noise.Model, robust.Kernel)
// so a Graph and Values can round-trip through a file or message, an
// orthogonal capability with no effect on numerical semantics.
package serial

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/go-factorgo/factorgo/factor"
	"github.com/go-factorgo/factorgo/fgerr"
	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/noise"
	"github.com/go-factorgo/factorgo/residual"
	"github.com/go-factorgo/factorgo/robust"
	"github.com/go-factorgo/factorgo/variables"
)

func denseFromFlat(rows, cols int, flat []float64) *mat.Dense {
	return mat.NewDense(rows, cols, flat)
}

// taggedSum is the on-wire envelope for every polymorphic type: a "kind"
// discriminant plus a kind-specific payload.
type taggedSum struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func encodeSum(kind string, payload any) (json.RawMessage, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedSum{Kind: kind, Payload: p})
}

// --- Variable ---

func MarshalVariable(v variables.Variable) (json.RawMessage, error) {
	switch t := v.(type) {
	case variables.SO2:
		return encodeSum("SO2", t)
	case variables.SO3:
		return encodeSum("SO3", t)
	case variables.SE2:
		return encodeSum("SE2", t)
	case variables.SE3:
		return encodeSum("SE3", t)
	case variables.VectorVarN:
		return encodeSum("VectorVarN", t)
	case variables.ImuBias:
		return encodeSum("ImuBias", t)
	default:
		return nil, fmt.Errorf("serial: unsupported variable type %T", v)
	}
}

func UnmarshalVariable(data []byte) (variables.Variable, error) {
	var sum taggedSum
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("%w: %v", fgerr.ErrIO, err)
	}
	switch sum.Kind {
	case "SO2":
		var v variables.SO2
		return v, json.Unmarshal(sum.Payload, &v)
	case "SO3":
		var v variables.SO3
		return v, json.Unmarshal(sum.Payload, &v)
	case "SE2":
		var v variables.SE2
		return v, json.Unmarshal(sum.Payload, &v)
	case "SE3":
		var v variables.SE3
		return v, json.Unmarshal(sum.Payload, &v)
	case "VectorVarN":
		var v variables.VectorVarN
		return v, json.Unmarshal(sum.Payload, &v)
	case "ImuBias":
		var v variables.ImuBias
		return v, json.Unmarshal(sum.Payload, &v)
	default:
		return nil, fmt.Errorf("serial: unknown variable kind %q", sum.Kind)
	}
}

// --- Values ---

type valuesEntry struct {
	Key   variables.Key   `json:"key"`
	Value json.RawMessage `json:"value"`
}

func MarshalValues(v *variables.Values) ([]byte, error) {
	entries := make([]valuesEntry, 0, v.Len())
	for _, k := range v.Keys() {
		val, err := v.Get(k)
		if err != nil {
			return nil, err
		}
		raw, err := MarshalVariable(val)
		if err != nil {
			return nil, err
		}
		entries = append(entries, valuesEntry{Key: k, Value: raw})
	}
	return json.Marshal(entries)
}

func UnmarshalValues(data []byte) (*variables.Values, error) {
	var entries []valuesEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", fgerr.ErrIO, err)
	}
	out := variables.NewValues()
	for _, e := range entries {
		v, err := UnmarshalVariable(e.Value)
		if err != nil {
			return nil, err
		}
		if err := out.Set(e.Key, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// --- Noise ---

type gaussianPayload struct {
	SqrtInfo [][]float64 `json:"sqrt_info"`
}

func MarshalNoise(n noise.Model) (json.RawMessage, error) {
	switch t := n.(type) {
	case noise.Unit:
		return encodeSum("Unit", struct {
			Dim int `json:"dim"`
		}{t.Dim()})
	case noise.Gaussian:
		m := t.SqrtInfo()
		rows, cols := m.Dims()
		data := make([][]float64, rows)
		for r := 0; r < rows; r++ {
			data[r] = make([]float64, cols)
			for c := 0; c < cols; c++ {
				data[r][c] = m.At(r, c)
			}
		}
		return encodeSum("Gaussian", gaussianPayload{SqrtInfo: data})
	default:
		return nil, fmt.Errorf("serial: unsupported noise model type %T", n)
	}
}

func UnmarshalNoise(data []byte) (noise.Model, error) {
	var sum taggedSum
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("%w: %v", fgerr.ErrIO, err)
	}
	switch sum.Kind {
	case "Unit":
		var p struct {
			Dim int `json:"dim"`
		}
		if err := json.Unmarshal(sum.Payload, &p); err != nil {
			return nil, err
		}
		return noise.NewUnit(p.Dim), nil
	case "Gaussian":
		var p gaussianPayload
		if err := json.Unmarshal(sum.Payload, &p); err != nil {
			return nil, err
		}
		rows := len(p.SqrtInfo)
		cols := 0
		if rows > 0 {
			cols = len(p.SqrtInfo[0])
		}
		flat := make([]float64, 0, rows*cols)
		for _, row := range p.SqrtInfo {
			flat = append(flat, row...)
		}
		return noise.FromSqrtInfo(denseFromFlat(rows, cols, flat)), nil
	default:
		return nil, fmt.Errorf("serial: unknown noise kind %q", sum.Kind)
	}
}

// --- Robust kernel ---

func MarshalRobust(k robust.Kernel) (json.RawMessage, error) {
	switch t := k.(type) {
	case robust.L2:
		return encodeSum("L2", t)
	case robust.Huber:
		return encodeSum("Huber", t)
	case robust.Cauchy:
		return encodeSum("Cauchy", t)
	case robust.GemanMcClure:
		return encodeSum("GemanMcClure", t)
	case robust.Welsch:
		return encodeSum("Welsch", t)
	case nil:
		return encodeSum("None", struct{}{})
	default:
		return nil, fmt.Errorf("serial: unsupported robust kernel type %T", k)
	}
}

func UnmarshalRobust(data []byte) (robust.Kernel, error) {
	var sum taggedSum
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("%w: %v", fgerr.ErrIO, err)
	}
	switch sum.Kind {
	case "None":
		return nil, nil
	case "L2":
		return robust.L2{}, nil
	case "Huber":
		var k robust.Huber
		return k, json.Unmarshal(sum.Payload, &k)
	case "Cauchy":
		var k robust.Cauchy
		return k, json.Unmarshal(sum.Payload, &k)
	case "GemanMcClure":
		var k robust.GemanMcClure
		return k, json.Unmarshal(sum.Payload, &k)
	case "Welsch":
		var k robust.Welsch
		return k, json.Unmarshal(sum.Payload, &k)
	default:
		return nil, fmt.Errorf("serial: unknown robust kernel kind %q", sum.Kind)
	}
}

// --- Residual (Prior/Between only: the universal built-ins) ---

func MarshalResidual(r residual.Residual) (json.RawMessage, error) {
	switch t := r.(type) {
	case residual.Prior:
		anchor, err := MarshalVariable(t.Anchor)
		if err != nil {
			return nil, err
		}
		return encodeSum("Prior", struct {
			Anchor json.RawMessage `json:"anchor"`
		}{anchor})
	case residual.Between:
		delta, err := MarshalVariable(t.Delta)
		if err != nil {
			return nil, err
		}
		return encodeSum("Between", struct {
			Delta json.RawMessage `json:"delta"`
		}{delta})
	default:
		return nil, fmt.Errorf("serial: unsupported residual type %T", r)
	}
}

func UnmarshalResidual(data []byte) (residual.Residual, error) {
	var sum taggedSum
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("%w: %v", fgerr.ErrIO, err)
	}
	switch sum.Kind {
	case "Prior":
		var p struct {
			Anchor json.RawMessage `json:"anchor"`
		}
		if err := json.Unmarshal(sum.Payload, &p); err != nil {
			return nil, err
		}
		anchor, err := UnmarshalVariable(p.Anchor)
		if err != nil {
			return nil, err
		}
		return residual.Prior{Anchor: anchor}, nil
	case "Between":
		var p struct {
			Delta json.RawMessage `json:"delta"`
		}
		if err := json.Unmarshal(sum.Payload, &p); err != nil {
			return nil, err
		}
		delta, err := UnmarshalVariable(p.Delta)
		if err != nil {
			return nil, err
		}
		return residual.Between{Delta: delta}, nil
	default:
		return nil, fmt.Errorf("serial: unknown residual kind %q", sum.Kind)
	}
}

// --- Factor / Graph ---

type factorPayload struct {
	Residual json.RawMessage `json:"residual"`
	Keys     []variables.Key `json:"keys"`
	Noise    json.RawMessage `json:"noise"`
	Robust   json.RawMessage `json:"robust"`
}

func MarshalFactor(f *factor.Factor) ([]byte, error) {
	res, err := MarshalResidual(f.Residual)
	if err != nil {
		return nil, err
	}
	n, err := MarshalNoise(f.Noise)
	if err != nil {
		return nil, err
	}
	rk, err := MarshalRobust(f.Robust)
	if err != nil {
		return nil, err
	}
	return json.Marshal(factorPayload{Residual: res, Keys: f.Keys, Noise: n, Robust: rk})
}

func UnmarshalFactor(data []byte) (*factor.Factor, error) {
	var p factorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", fgerr.ErrIO, err)
	}
	res, err := UnmarshalResidual(p.Residual)
	if err != nil {
		return nil, err
	}
	n, err := UnmarshalNoise(p.Noise)
	if err != nil {
		return nil, err
	}
	rk, err := UnmarshalRobust(p.Robust)
	if err != nil {
		return nil, err
	}
	return factor.New(res, p.Keys, n, rk)
}

func MarshalGraph(g *graph.Graph) ([]byte, error) {
	out := make([]json.RawMessage, 0, g.Len())
	for _, f := range g.Factors() {
		raw, err := MarshalFactor(f)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

func UnmarshalGraph(data []byte) (*graph.Graph, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", fgerr.ErrIO, err)
	}
	g := graph.New()
	for _, raw := range raws {
		f, err := UnmarshalFactor(raw)
		if err != nil {
			return nil, err
		}
		g.Add(f)
	}
	return g, nil
}
