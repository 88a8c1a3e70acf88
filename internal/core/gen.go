package core

import "math"

// GenParams tunes procedural map generation.
type GenParams struct {
	Frequency           float64 `yaml:"frequency" json:"frequency"`
	CraterChance        float64 `yaml:"crater_chance" json:"crater_chance"`
	EnergyThreshold     float64 `yaml:"energy_threshold" json:"energy_threshold"`
	MineralThreshold    float64 `yaml:"mineral_threshold" json:"mineral_threshold"`
	ScientificThreshold float64 `yaml:"scientific_threshold" json:"scientific_threshold"`
	MaxResourceAmount   int     `yaml:"max_resource_amount" json:"max_resource_amount"`
}

// DefaultGenParams returns the stock generation parameters.
func DefaultGenParams() GenParams {
	return GenParams{
		Frequency:           0.1,
		CraterChance:        0.03,
		EnergyThreshold:     0.6,
		MineralThreshold:    0.7,
		ScientificThreshold: 0.85,
		MaxResourceAmount:   100,
	}
}

// Hash channels keep the terrain, resource and crater fields independent.
const (
	chanTerrain int64 = iota + 1
	chanResource
	chanCrater
	chanAmount
)

// GenerateMap builds a w x h map from seed. The same inputs always produce
// the same map.
func GenerateMap(w, h int, seed int64, p GenParams) *Map {
	m := NewMap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pos := Position{X: x, Y: y}
			i := m.index(pos)

			if unit(hash2(seed^chanCrater<<32, x, y)) < p.CraterChance {
				m.terrain[i] = Crater
				continue
			}

			n := valueNoise(seed^chanTerrain<<32, float64(x)*p.Frequency, float64(y)*p.Frequency)
			switch {
			case n < 0.4:
				m.terrain[i] = Plain
			case n < 0.7:
				m.terrain[i] = Hill
			case n < 0.85:
				m.terrain[i] = Mountain
			default:
				m.terrain[i] = Canyon
			}

			rn := valueNoise(seed^chanResource<<32, float64(x)*p.Frequency*1.5, float64(y)*p.Frequency*1.5)
			roll := hash2(seed^chanAmount<<32, x, y)
			switch {
			case rn > p.ScientificThreshold:
				m.resources[i] = Resource{Kind: ScientificInterest, Amount: amountIn(roll, 10, p.MaxResourceAmount)}
			case rn > p.MineralThreshold:
				m.resources[i] = Resource{Kind: Mineral, Amount: amountIn(roll, 20, p.MaxResourceAmount)}
			case rn > p.EnergyThreshold:
				m.resources[i] = Resource{Kind: Energy, Amount: amountIn(roll, 30, p.MaxResourceAmount)}
			}
		}
	}
	return m
}

func amountIn(roll uint64, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(roll%uint64(hi-lo+1))
}

// valueNoise samples smoothed lattice noise in [0,1).
func valueNoise(seed int64, fx, fy float64) float64 {
	x0 := math.Floor(fx)
	y0 := math.Floor(fy)
	tx := smooth(fx - x0)
	ty := smooth(fy - y0)
	ix, iy := int(x0), int(y0)

	v00 := unit(hash2(seed, ix, iy))
	v10 := unit(hash2(seed, ix+1, iy))
	v01 := unit(hash2(seed, ix, iy+1))
	v11 := unit(hash2(seed, ix+1, iy+1))

	top := v00 + (v10-v00)*tx
	bottom := v01 + (v11-v01)*tx
	return top + (bottom-top)*ty
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func unit(h uint64) float64 {
	return float64(h>>11) / float64(1<<53)
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// Hash2 exposes the generator's cell hash for other seeded choices.
func Hash2(seed int64, x, y int) uint64 {
	return hash2(seed, x, y)
}
