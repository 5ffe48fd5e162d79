package bytecode

import (
	"fmt"
	"math"

	"github.com/deepnoodle-ai/kestrel/value"
	"github.com/fxamacker/cbor/v2"
)

// FormatVersion identifies the serialized layout written by Marshal.
const FormatVersion = 1

// cborEncMode uses canonical options so equal functions encode to identical
// bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a function, and every function reachable from its
// constant pool, to CBOR bytes.
func Marshal(fn *Function) ([]byte, error) {
	img, err := imageFromFunction(fn)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(img)
}

// Unmarshal deserializes a function from CBOR bytes produced by Marshal and
// validates its instructions.
func Unmarshal(data []byte) (*Function, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal: %w", err)
	}
	fn, err := functionFromImage(&img)
	if err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal: %w", err)
	}
	if err := fn.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: invalid code: %w", err)
	}
	return fn, nil
}

// Serialization types

type constantKind uint8

const (
	kindUnit constantKind = iota + 1
	kindBool
	kindInt
	kindFloat
	kindString
	kindChar
	kindName
	kindFunction
)

// constantDef stores scalars in Int (floats as their IEEE bits) and text in
// Str. For functions, Int is the index into image.Functions.
type constantDef struct {
	Kind constantKind `cbor:"1,keyasint"`
	Int  int64        `cbor:"2,keyasint,omitempty"`
	Str  string       `cbor:"3,keyasint,omitempty"`
}

type locationDef struct {
	Offset int `cbor:"1,keyasint"`
	Line   int `cbor:"2,keyasint"`
	Column int `cbor:"3,keyasint"`
}

type functionDef struct {
	Name       string        `cbor:"1,keyasint,omitempty"`
	Parameters int           `cbor:"2,keyasint"`
	Captures   int           `cbor:"3,keyasint,omitempty"`
	Constants  []constantDef `cbor:"4,keyasint,omitempty"`
	Code       []byte        `cbor:"5,keyasint"`
	LocalNames []string      `cbor:"6,keyasint,omitempty"`
	Filename   string        `cbor:"7,keyasint,omitempty"`
	Locations  []locationDef `cbor:"8,keyasint,omitempty"`
}

// image holds every function in dependency order; the root is last.
type image struct {
	Version   int           `cbor:"1,keyasint"`
	Functions []functionDef `cbor:"2,keyasint"`
}

func imageFromFunction(root *Function) (*image, error) {
	all := root.Flatten()
	indexes := make(map[*Function]int, len(all))
	for i, fn := range all {
		indexes[fn] = i
	}
	img := &image{Version: FormatVersion, Functions: make([]functionDef, len(all))}
	for i, fn := range all {
		constants := make([]constantDef, len(fn.constants))
		for j, c := range fn.constants {
			def, err := marshalConstant(c, indexes)
			if err != nil {
				return nil, err
			}
			constants[j] = def
		}
		var locations []locationDef
		for _, loc := range fn.locations {
			locations = append(locations, locationDef{Offset: loc.Offset, Line: loc.Line, Column: loc.Column})
		}
		img.Functions[i] = functionDef{
			Name:       fn.name,
			Parameters: fn.parameterCount,
			Captures:   fn.captureCount,
			Constants:  constants,
			Code:       fn.code,
			LocalNames: fn.localNames,
			Filename:   fn.filename,
			Locations:  locations,
		}
	}
	return img, nil
}

func marshalConstant(c any, indexes map[*Function]int) (constantDef, error) {
	switch v := c.(type) {
	case value.Unit:
		return constantDef{Kind: kindUnit}, nil
	case value.Bool:
		if v {
			return constantDef{Kind: kindBool, Int: 1}, nil
		}
		return constantDef{Kind: kindBool}, nil
	case value.Int:
		return constantDef{Kind: kindInt, Int: int64(v)}, nil
	case value.Float:
		return constantDef{Kind: kindFloat, Int: int64(math.Float64bits(float64(v)))}, nil
	case value.String:
		return constantDef{Kind: kindString, Str: string(v)}, nil
	case value.Char:
		return constantDef{Kind: kindChar, Int: int64(v)}, nil
	case value.Name:
		return constantDef{Kind: kindName, Str: string(v)}, nil
	case *Function:
		return constantDef{Kind: kindFunction, Int: int64(indexes[v])}, nil
	default:
		return constantDef{}, fmt.Errorf("bytecode: unknown constant type: %T", c)
	}
}

func functionFromImage(img *image) (*Function, error) {
	if img.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported format version %d", img.Version)
	}
	if len(img.Functions) == 0 {
		return nil, fmt.Errorf("no functions")
	}
	// Nested functions precede their referrers, so one forward pass sees
	// every referenced function already built.
	built := make([]*Function, len(img.Functions))
	for i, def := range img.Functions {
		constants := make([]any, len(def.Constants))
		for j, c := range def.Constants {
			v, err := unmarshalConstant(c, built[:i])
			if err != nil {
				return nil, fmt.Errorf("function %d constant %d: %w", i, j, err)
			}
			constants[j] = v
		}
		locations := make([]SourceLocation, len(def.Locations))
		for j, loc := range def.Locations {
			locations[j] = SourceLocation{Offset: loc.Offset, Line: loc.Line, Column: loc.Column}
		}
		built[i] = NewFunction(FunctionParams{
			Name:           def.Name,
			ParameterCount: def.Parameters,
			CaptureCount:   def.Captures,
			Constants:      constants,
			Code:           def.Code,
			LocalNames:     def.LocalNames,
			Filename:       def.Filename,
			Locations:      locations,
		})
	}
	return built[len(built)-1], nil
}

func unmarshalConstant(c constantDef, built []*Function) (any, error) {
	switch c.Kind {
	case kindUnit:
		return value.Unit{}, nil
	case kindBool:
		return value.Bool(c.Int != 0), nil
	case kindInt:
		return value.Int(c.Int), nil
	case kindFloat:
		return value.Float(math.Float64frombits(uint64(c.Int))), nil
	case kindString:
		return value.String(c.Str), nil
	case kindChar:
		return value.Char(rune(c.Int)), nil
	case kindName:
		return value.Name(c.Str), nil
	case kindFunction:
		if c.Int < 0 || c.Int >= int64(len(built)) {
			return nil, fmt.Errorf("function reference %d out of order", c.Int)
		}
		return built[c.Int], nil
	default:
		return nil, fmt.Errorf("unknown constant kind %d", c.Kind)
	}
}
