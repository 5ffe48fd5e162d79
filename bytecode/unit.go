package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// unitImage is the serialized form of a compilation unit: the code of each
// top-level form, in source order.
type unitImage struct {
	Version int      `cbor:"1,keyasint"`
	Forms   []*image `cbor:"2,keyasint"`
}

// MarshalUnit serializes the top-level forms of a compilation unit.
func MarshalUnit(forms []*Function) ([]byte, error) {
	img := unitImage{Version: FormatVersion, Forms: make([]*image, len(forms))}
	for i, fn := range forms {
		form, err := imageFromFunction(fn)
		if err != nil {
			return nil, fmt.Errorf("form %d: %w", i, err)
		}
		img.Forms[i] = form
	}
	return cborEncMode.Marshal(img)
}

// UnmarshalUnit restores the forms written by MarshalUnit.
func UnmarshalUnit(data []byte) ([]*Function, error) {
	var img unitImage
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal unit: %w", err)
	}
	if img.Version != FormatVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d", img.Version)
	}
	forms := make([]*Function, len(img.Forms))
	for i, form := range img.Forms {
		if form == nil {
			return nil, fmt.Errorf("bytecode: form %d is empty", i)
		}
		fn, err := functionFromImage(form)
		if err != nil {
			return nil, fmt.Errorf("bytecode: form %d: %w", i, err)
		}
		if err := fn.Validate(); err != nil {
			return nil, fmt.Errorf("bytecode: form %d: invalid code: %w", i, err)
		}
		forms[i] = fn
	}
	return forms, nil
}
