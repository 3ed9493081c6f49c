package corridors

import (
	"strconv"
	"strings"
)

// Filter is the optional corridor predicate set. All predicates are
// conjunctive; a nil field imposes no constraint. TimePeriod is accepted
// and keyed but not yet consumed by the computation.
type Filter struct {
	SuccessRateMin *float64
	SuccessRateMax *float64
	VolumeMin      *float64
	VolumeMax      *float64
	AssetCode      *string
	TimePeriod     *string
}

// Fingerprint renders the filter set for cache keying, each field in fixed
// order with an explicit absent marker. Present strings are quoted, so an
// unset filter, an empty string, and the literal string "nil" all produce
// distinct keys.
func (f Filter) Fingerprint() string {
	var b strings.Builder
	b.WriteString("sr_min:")
	b.WriteString(renderFloat(f.SuccessRateMin))
	b.WriteString("_sr_max:")
	b.WriteString(renderFloat(f.SuccessRateMax))
	b.WriteString("_vol_min:")
	b.WriteString(renderFloat(f.VolumeMin))
	b.WriteString("_vol_max:")
	b.WriteString(renderFloat(f.VolumeMax))
	b.WriteString("_asset:")
	b.WriteString(renderString(f.AssetCode))
	b.WriteString("_period:")
	b.WriteString(renderString(f.TimePeriod))
	return b.String()
}

func renderFloat(v *float64) string {
	if v == nil {
		return "nil"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func renderString(v *string) string {
	if v == nil {
		return "nil"
	}
	return strconv.Quote(*v)
}

// Matches reports whether the corridor satisfies every supplied predicate.
// Range bounds are inclusive. The asset code predicate is a
// case-insensitive substring match against either side's asset code,
// never the issuer.
func (f Filter) Matches(c Corridor) bool {
	if f.SuccessRateMin != nil && c.SuccessRate < *f.SuccessRateMin {
		return false
	}
	if f.SuccessRateMax != nil && c.SuccessRate > *f.SuccessRateMax {
		return false
	}
	if f.VolumeMin != nil && c.LiquidityDepthUSD < *f.VolumeMin {
		return false
	}
	if f.VolumeMax != nil && c.LiquidityDepthUSD > *f.VolumeMax {
		return false
	}
	if f.AssetCode != nil {
		code := strings.ToLower(*f.AssetCode)
		if !strings.Contains(strings.ToLower(c.SourceAsset), code) &&
			!strings.Contains(strings.ToLower(c.DestinationAsset), code) {
			return false
		}
	}
	return true
}
