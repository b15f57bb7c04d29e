package syscall

import (
	"crypto/elliptic"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"

	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/types"
)

// Curve is a short Weierstrass curve y^2 = x^3 + A*x + B over F_P.
type Curve struct {
	Name string
	P    *big.Int
	A    *big.Int
	B    *big.Int
}

var (
	Secp256k1 = newCurve("secp256k1", btcec.S256().Params(), big.NewInt(0))
	Secp256r1 = newCurve("secp256r1", elliptic.P256().Params(),
		new(big.Int).Sub(elliptic.P256().Params().P, big.NewInt(3)))
)

func newCurve(name string, params *elliptic.CurveParams, a *big.Int) *Curve {
	return &Curve{Name: name, P: params.P, A: a, B: params.B}
}

// EcPoint is an affine point, or the point at infinity.
type EcPoint struct {
	X, Y     *big.Int
	Infinity bool
}

var EcInfinity = EcPoint{Infinity: true}

func NewEcPoint(x, y *big.Int) EcPoint {
	return EcPoint{X: new(big.Int).Set(x), Y: new(big.Int).Set(y)}
}

// XY returns the coordinates; infinity maps to (0, 0).
func (p EcPoint) XY() (x, y *big.Int) {
	if p.Infinity {
		return big.NewInt(0), big.NewInt(0)
	}

	return p.X, p.Y
}

// YSquared returns x^3 + A*x + B mod P.
func (c *Curve) YSquared(x *big.Int) *big.Int {
	y2 := new(big.Int).Exp(x, big.NewInt(3), c.P)
	y2.Add(y2, new(big.Int).Mul(c.A, x))
	y2.Add(y2, c.B)

	return y2.Mod(y2, c.P)
}

func (c *Curve) IsOnCurve(x, y *big.Int) bool {
	lhs := new(big.Int).Mul(y, y)

	return lhs.Mod(lhs, c.P).Cmp(c.YSquared(x)) == 0
}

// SqrtCandidate returns a^((P+1)/4) mod P, the square root of a when one
// exists. Both supported primes are 3 mod 4.
func (c *Curve) SqrtCandidate(a *big.Int) *big.Int {
	e := new(big.Int).Add(c.P, big.NewInt(1))
	e.Rsh(e, 2)

	return new(big.Int).Exp(a, e, c.P)
}

func (c *Curve) div(num, den *big.Int) *big.Int {
	inv := new(big.Int).ModInverse(den, c.P)
	out := new(big.Int).Mul(num, inv)

	return out.Mod(out, c.P)
}

// Add adds two points, handling infinity, P + (-P) and doubling.
func (c *Curve) Add(p1, p2 EcPoint) EcPoint {
	switch {
	case p1.Infinity:
		return p2
	case p2.Infinity:
		return p1
	}

	var slope *big.Int

	if p1.X.Cmp(p2.X) == 0 {
		sum := new(big.Int).Add(p1.Y, p2.Y)
		if sum.Mod(sum, c.P).Sign() == 0 {
			return EcInfinity
		}

		num := new(big.Int).Mul(p1.X, p1.X)
		num.Mul(num, big.NewInt(3))
		num.Add(num, c.A)
		slope = c.div(num.Mod(num, c.P), new(big.Int).Lsh(p1.Y, 1))
	} else {
		num := new(big.Int).Sub(p2.Y, p1.Y)
		den := new(big.Int).Sub(p2.X, p1.X)
		slope = c.div(num.Mod(num, c.P), den.Mod(den, c.P))
	}

	x3 := new(big.Int).Mul(slope, slope)
	x3.Sub(x3, p1.X)
	x3.Sub(x3, p2.X)
	x3.Mod(x3, c.P)

	y3 := new(big.Int).Sub(p1.X, x3)
	y3.Mul(y3, slope)
	y3.Sub(y3, p1.Y)
	y3.Mod(y3, c.P)

	return EcPoint{X: x3, Y: y3}
}

// Mul computes m*p by double-and-add.
func (c *Curve) Mul(m *big.Int, p EcPoint) EcPoint {
	result := EcInfinity
	addend := p

	for i := 0; i < m.BitLen(); i++ {
		if m.Bit(i) == 1 {
			result = c.Add(result, addend)
		}

		addend = c.Add(addend, addend)
	}

	return result
}

// EcPointRegistry maps handles in a dedicated memory segment to points.
// Handles are only valid for the registry that issued them.
type EcPointRegistry struct {
	segments Segments
	base     *types.Relocatable
	points   map[types.Relocatable]EcPoint
}

func NewEcPointRegistry(segments Segments) *EcPointRegistry {
	return &EcPointRegistry{
		segments: segments,
		points:   make(map[types.Relocatable]EcPoint),
	}
}

// New registers p and returns its handle. The segment is created on first use.
func (r *EcPointRegistry) New(p EcPoint) types.Relocatable {
	if r.base == nil {
		base := r.segments.Add()
		r.base = &base
	}

	handle := r.base.Add(uint64(len(r.points)) * structs.EcPointSize)
	r.points[handle] = p

	return handle
}

func (r *EcPointRegistry) Get(handle types.Relocatable) (EcPoint, error) {
	p, ok := r.points[handle]
	if !ok {
		return EcPoint{}, fmt.Errorf("%w: %s", ErrUnknownEcPoint, handle)
	}

	return p, nil
}

func (r *EcPointRegistry) Len() int {
	return len(r.points)
}
