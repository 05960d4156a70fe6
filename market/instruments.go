// Package market holds the instrument taxonomy: pip geometry, broker
// volume constraints, asset class, and the tail-risk flag per symbol.
package market

import "math"

type AssetClass string

const (
	ClassStandard AssetClass = "standard"
	ClassMetal    AssetClass = "metal"
	ClassCrypto   AssetClass = "crypto"
	ClassIndex    AssetClass = "index"
)

// InstrumentMeta describes the broker-level trading constraints for a symbol.
// PipValue is the account-currency value of one pip for one lot.
type InstrumentMeta struct {
	Name        string
	AssetClass  AssetClass
	PipLocation int
	PipValue    float64
	VolumeStep  float64
	MinVolume   float64
	MaxVolume   float64
	TailRisk    bool
}

var Instruments = map[string]InstrumentMeta{
	"EUR_USD": {
		Name:        "EUR_USD",
		AssetClass:  ClassStandard,
		PipLocation: -4,
		PipValue:    10.0,
		VolumeStep:  0.01,
		MinVolume:   0.01,
		MaxVolume:   100,
	},
	"GBP_USD": {
		Name:        "GBP_USD",
		AssetClass:  ClassStandard,
		PipLocation: -4,
		PipValue:    10.0,
		VolumeStep:  0.01,
		MinVolume:   0.01,
		MaxVolume:   100,
	},
	"AUD_USD": {
		Name:        "AUD_USD",
		AssetClass:  ClassStandard,
		PipLocation: -4,
		PipValue:    10.0,
		VolumeStep:  0.01,
		MinVolume:   0.01,
		MaxVolume:   100,
	},
	"USD_CHF": {
		Name:        "USD_CHF",
		AssetClass:  ClassStandard,
		PipLocation: -4,
		PipValue:    10.0,
		VolumeStep:  0.01,
		MinVolume:   0.01,
		MaxVolume:   100,
	},
	"USD_JPY": {
		Name:        "USD_JPY",
		AssetClass:  ClassStandard,
		PipLocation: -2,
		PipValue:    9.1,
		VolumeStep:  0.01,
		MinVolume:   0.01,
		MaxVolume:   100,
	},
	"XAU_USD": {
		Name:        "XAU_USD",
		AssetClass:  ClassMetal,
		PipLocation: -1,
		PipValue:    10.0,
		VolumeStep:  0.01,
		MinVolume:   0.01,
		MaxVolume:   20,
		TailRisk:    true,
	},
	"XAG_USD": {
		Name:        "XAG_USD",
		AssetClass:  ClassMetal,
		PipLocation: -3,
		PipValue:    5.0,
		VolumeStep:  0.01,
		MinVolume:   0.01,
		MaxVolume:   20,
		TailRisk:    true,
	},
	"BTC_USD": {
		Name:        "BTC_USD",
		AssetClass:  ClassCrypto,
		PipLocation: 0,
		PipValue:    1.0,
		VolumeStep:  0.01,
		MinVolume:   0.01,
		MaxVolume:   5,
		TailRisk:    true,
	},
}

// Lookup returns the metadata for a symbol. Unknown symbols get
// standard-class defaults so callers can stay total over any scanner input.
func Lookup(name string) InstrumentMeta {
	if m, ok := Instruments[name]; ok {
		return m
	}
	return InstrumentMeta{
		Name:        name,
		AssetClass:  ClassStandard,
		PipLocation: -4,
		PipValue:    10.0,
		VolumeStep:  0.01,
		MinVolume:   0.01,
		MaxVolume:   100,
	}
}

// PipSize returns the price size of one pip for a given pip location.
func PipSize(loc int) float64 {
	return math.Pow(10, float64(loc))
}
