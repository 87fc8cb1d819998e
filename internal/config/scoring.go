package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/iliyamo/drop-waitlist/internal/scoring"
)

// ScoringFile is the TOML layout accepted by SCORING_CONFIG.  Either the
// seed inputs or all three coefficients may be given; explicit
// coefficients win.
//
//	remote = "https://example.com/repo.git"
//	epoch  = "1762355373"
//	start  = "202511040900"
//	# or
//	a = 9
//	b = 17
//	c = 4
type ScoringFile struct {
	Remote string `toml:"remote"`
	Epoch  string `toml:"epoch"`
	Start  string `toml:"start"`
	A      int64  `toml:"a"`
	B      int64  `toml:"b"`
	C      int64  `toml:"c"`
}

// LoadScoringFile decodes a scoring TOML file.
func LoadScoringFile(path string) (ScoringFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScoringFile{}, fmt.Errorf("open scoring config: %w", err)
	}
	defer f.Close()
	var sf ScoringFile
	if err := toml.NewDecoder(f).Decode(&sf); err != nil {
		return ScoringFile{}, fmt.Errorf("decode scoring config: %w", err)
	}
	return sf, nil
}

// Coefficients resolves the file into coefficients, filling missing seed
// inputs with the reference values.
func (sf ScoringFile) Coefficients() (scoring.Coefficients, error) {
	if sf.A != 0 || sf.B != 0 || sf.C != 0 {
		c := scoring.Coefficients{A: sf.A, B: sf.B, C: sf.C}
		return c, c.Validate()
	}
	in := scoring.DefaultSeedInputs()
	if sf.Remote != "" {
		in.Remote = sf.Remote
	}
	if sf.Epoch != "" {
		in.Epoch = sf.Epoch
	}
	if sf.Start != "" {
		in.Start = sf.Start
	}
	_, c, err := scoring.Derive(in)
	return c, err
}

// LoadCoefficients is the coefficient provider.  Precedence: SCORING_A,
// SCORING_B and SCORING_C (all three required together), then the TOML
// file named by SCORING_CONFIG, then the reference seed.
func LoadCoefficients() (scoring.Coefficients, error) {
	a, b, c := envInt("SCORING_A", 0), envInt("SCORING_B", 0), envInt("SCORING_C", 0)
	if a != 0 || b != 0 || c != 0 {
		coef := scoring.Coefficients{A: int64(a), B: int64(b), C: int64(c)}
		return coef, coef.Validate()
	}
	if path := os.Getenv("SCORING_CONFIG"); path != "" {
		sf, err := LoadScoringFile(path)
		if err != nil {
			return scoring.Coefficients{}, err
		}
		return sf.Coefficients()
	}
	_, coef, err := scoring.Derive(scoring.DefaultSeedInputs())
	return coef, err
}
