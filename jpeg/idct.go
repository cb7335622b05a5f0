package jpeg

import "math"

// idctCos[x][u] = cos((2x+1) * u * pi / 16)
var idctCos [8][8]float64

// idctCu[u] = 1/sqrt(2) for u=0, else 1
var idctCu [8]float64

func init() {
	for x := 0; x < 8; x++ {
		for u := 0; u < 8; u++ {
			idctCos[x][u] = math.Cos(float64(2*x+1) * float64(u) * math.Pi / 16)
		}
	}
	idctCu[0] = 1 / math.Sqrt2
	for u := 1; u < 8; u++ {
		idctCu[u] = 1
	}
}

// idct8x8 applies the reference cosine-form inverse DCT (T.81 A.3.3) to a
// natural-order coefficient block. The output stays in the signed sample
// domain; the +128 level shift belongs to the color stage.
func idct8x8(coef *[64]int32) [64]float64 {
	var out [64]float64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			sum := 0.0
			for v := 0; v < 8; v++ {
				for u := 0; u < 8; u++ {
					f := float64(coef[v*8+u])
					if f == 0 {
						continue
					}
					sum += idctCu[u] * idctCu[v] * f * idctCos[x][u] * idctCos[y][v]
				}
			}
			out[y*8+x] = sum / 4
		}
	}
	return out
}
