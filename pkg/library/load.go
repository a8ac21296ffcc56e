package library

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/bufferopt/pkg/delay"
)

// file is the on-disk TOML layout of a library:
//
//	name = "demo"
//
//	[[gate]]
//	name  = "inv_x1"
//	class = "inv"
//	kind  = "inverter"
//	area  = 1.0
//	  [[gate.pin]]
//	  name     = "a"
//	  load     = 1.0
//	  max_load = 12.0
//	  block    = { rise = 0.3, fall = 0.25 }
//	  drive    = { rise = 0.2, fall = 0.15 }
type file struct {
	Name  string  `toml:"name"`
	Gates []*Gate `toml:"gate"`
}

// Parse decodes a TOML library from r.
func Parse(r io.Reader) (*Library, error) {
	var f file
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode library: %w", err)
	}
	return New(f.Name, f.Gates...)
}

// Load reads a TOML library file.
func Load(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Write encodes the library as TOML.
func (l *Library) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(file{Name: l.name, Gates: l.Gates()})
}

// Default characterization of the synthetic unit-fanout cells.
const (
	SyntheticInverter = "unit_inv"
	SyntheticBuffer   = "unit_buf"
)

// Synthetic returns the library used when no technology library is
// available: one unit-fanout inverter and one unit-fanout buffer.
func Synthetic() *Library {
	lib, err := New("synthetic",
		&Gate{
			Name: SyntheticInverter, Class: "inv", Kind: KindInverter, Area: 1,
			Pins: []Pin{{
				Name: "a", Phase: delay.PhaseInverting, Load: 1, MaxLoad: 1000,
				Block: delay.Uniform(1), Drive: delay.Uniform(0.2),
			}},
		},
		&Gate{
			Name: SyntheticBuffer, Class: "buf", Kind: KindBuffer, Area: 2,
			Pins: []Pin{{
				Name: "a", Phase: delay.PhaseNonInverting, Load: 1, MaxLoad: 1000,
				Block: delay.Uniform(2), Drive: delay.Uniform(0.2),
			}},
		},
	)
	if err != nil {
		panic(err)
	}
	return lib
}
