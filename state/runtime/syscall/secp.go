package syscall

import (
	"math/big"

	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/types"
)

func secpNew(curve *Curve) syscallFunc {
	return func(h *Handler, gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
		x := structs.JoinUint256(req.Felt("x_low"), req.Felt("x_high"))
		y := structs.JoinUint256(req.Felt("y_low"), req.Felt("y_high"))

		if x.Cmp(curve.P) >= 0 || y.Cmp(curve.P) >= 0 {
			return h.handleFailure(gas, FailureInvalidArgument)
		}

		if x.Sign() == 0 && y.Sign() == 0 {
			return success(gas, h.newEcPointResponse(EcInfinity))
		}

		if !curve.IsOnCurve(x, y) {
			return success(gas, notOnCurveResponse())
		}

		return success(gas, h.newEcPointResponse(NewEcPoint(x, y)))
	}
}

func secpGetPointFromX(curve *Curve) syscallFunc {
	return func(h *Handler, gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
		x := structs.JoinUint256(req.Felt("x_low"), req.Felt("x_high"))
		if x.Cmp(curve.P) >= 0 {
			return h.handleFailure(gas, FailureInvalidArgument)
		}

		// any nonzero parity selects the odd root
		odd := !req.Felt("y_parity").IsZero()

		y2 := curve.YSquared(x)

		y := curve.SqrtCandidate(y2)
		if (y.Bit(0) == 1) != odd {
			y.Sub(curve.P, y)
			y.Mod(y, curve.P)
		}

		if check := new(big.Int).Mul(y, y); check.Mod(check, curve.P).Cmp(y2) != 0 {
			return success(gas, notOnCurveResponse())
		}

		return success(gas, h.newEcPointResponse(NewEcPoint(x, y)))
	}
}

func secpAdd(curve *Curve) syscallFunc {
	return func(h *Handler, gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
		p0, err := h.ecPoints.Get(req.Ptr("p0"))
		if err != nil {
			return nil, nil, err
		}

		p1, err := h.ecPoints.Get(req.Ptr("p1"))
		if err != nil {
			return nil, nil, err
		}

		handle := h.ecPoints.New(curve.Add(p0, p1))

		return success(gas, structs.SecpOpResponse.New(types.PtrValue(handle)))
	}
}

func secpMul(curve *Curve) syscallFunc {
	return func(h *Handler, gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
		p, err := h.ecPoints.Get(req.Ptr("p"))
		if err != nil {
			return nil, nil, err
		}

		scalar := structs.JoinUint256(req.Felt("scalar_low"), req.Felt("scalar_high"))
		handle := h.ecPoints.New(curve.Mul(scalar, p))

		return success(gas, structs.SecpOpResponse.New(types.PtrValue(handle)))
	}
}

func (h *Handler) secpGetXy(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	p, err := h.ecPoints.Get(req.Ptr("ec_point"))
	if err != nil {
		return nil, nil, err
	}

	x, y := p.XY()
	xLow, xHigh := structs.Uint256Values(x)
	yLow, yHigh := structs.Uint256Values(y)

	return success(gas, structs.SecpGetXyResponse.New(xLow, xHigh, yLow, yHigh))
}

func (h *Handler) newEcPointResponse(p EcPoint) *structs.Record {
	handle := h.ecPoints.New(p)

	return structs.SecpNewResponse.New(types.Uint64Value(0), types.PtrValue(handle))
}

// notOnCurveResponse leaves the point slot as a zero felt.
func notOnCurveResponse() *structs.Record {
	return structs.SecpNewResponse.New(types.Uint64Value(1), types.Uint64Value(0))
}
