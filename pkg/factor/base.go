package factor

import (
	"math"

	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/param"
)

// Base market-data factors. Column factors register under their column name
// in both registries so either backend can resolve them.

var (
	Close  = colFactor{name: "close", col: "close"}
	Open   = colFactor{name: "open", col: "open"}
	High   = colFactor{name: "high", col: "high"}
	Low    = colFactor{name: "low", col: "low"}
	Volume = colFactor{name: "volume", col: "volume"}
	Amt    = colFactor{name: "amt", col: "amt"}
)

// Typ is the typical price (open+high+low+close)/4.
func Typ() PlFactor {
	e := frame.ColExpr("open").
		Add(frame.ColExpr("high")).
		Add(frame.ColExpr("low")).
		Add(frame.ColExpr("close")).
		Div(frame.Lit(4))
	return FromExpr("typ", e)
}

// Ret is the n-period simple return of close; the param defaults to 1.
func Ret(p param.Param) PlFactor {
	return FromExpr(FormatName("ret", p), frame.ColExpr("close").PctChange(p.AsInt()))
}

// LogRet is the n-period log return of close.
func LogRet(p param.Param) PlFactor {
	n := p.AsInt()
	e := frame.ColExpr("close").ProtectDiv(frame.ColExpr("close").Shift(n)).Log()
	return FromExpr(FormatName("log_ret", p), e)
}

// Ma is the rolling mean of close.
func Ma(p param.Param) PlFactor {
	return FromExpr(FormatName("ma", p), frame.ColExpr("close").RollingMean(frame.Rolling(p.AsInt())))
}

// Ema is the exponentially weighted mean of close.
func Ema(p param.Param) PlFactor {
	return FromExpr(FormatName("ema", p), frame.ColExpr("close").TsEwm(frame.Rolling(p.AsInt())))
}

// Rsrs is the rolling regression slope of high on low over the lookback.
// A slope above 1 reads as resistance giving way faster than support.
func Rsrs(p param.Param) PlFactor {
	e := frame.ColExpr("high").TsRegxBeta(frame.ColExpr("low"), frame.Rolling(p.AsInt()))
	return FromExpr(FormatName("rsrs", p), e)
}

// MarketPl relates close to the smoothed average trade price
// (ewm(amt)/ewm(volume)). The scale carries the contract multiplier, so
// values are only comparable within one instrument.
func MarketPl(p param.Param) PlFactor {
	opt := frame.Rolling(p.AsInt())
	e := frame.ColExpr("close").
		Mul(frame.ColExpr("volume").TsEwm(opt)).
		ProtectDiv(frame.ColExpr("amt").TsEwm(opt))
	return FromExpr(FormatName("marketpl", p), e)
}

// Trading-session boundaries in minutes of day for AtTime.
const (
	morningStartMin   = 9*60 + 30
	morningEndMin     = 11*60 + 30
	afternoonStartMin = 13 * 60
	morningSessionMin = morningEndMin - morningStartMin
)

// AtTime maps each bar's UTC time of day to minutes into the trading
// session (09:30-11:30, 13:00 onward); afternoon bars continue counting
// after the morning's minutes.
func AtTime() PlFactor {
	e := frame.NewExpr("at_time", func(ctx *frame.Ctx) (frame.Col, error) {
		c, err := frame.ColExpr("time").Eval(ctx)
		if err != nil {
			return frame.Col{}, err
		}
		out := make([]float64, len(c.Floats))
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				out[i] = math.NaN()
				continue
			}
			tod := math.Mod(v, 86_400_000) / 60_000
			if tod <= morningEndMin {
				out[i] = tod - morningStartMin
			} else {
				out[i] = tod - afternoonStartMin + morningSessionMin
			}
		}
		return frame.Col{Floats: out}, nil
	})
	return FromExpr("at_time", e)
}

func registerBoth(f colFactor) {
	MustRegisterPl(f.name, func(param.Param) (PlFactor, error) { return f, nil })
	MustRegisterT(f.name, func(param.Param) (TFactor, error) { return f, nil })
}

func init() {
	for _, f := range []colFactor{Close, Open, High, Low, Volume, Amt} {
		registerBoth(f)
	}
	MustRegisterPl("typ", func(param.Param) (PlFactor, error) { return Typ(), nil })
	MustRegisterPl("ret", func(p param.Param) (PlFactor, error) { return Ret(p), nil })
	MustRegisterPl("log_ret", func(p param.Param) (PlFactor, error) { return LogRet(p), nil })
	MustRegisterPl("ma", func(p param.Param) (PlFactor, error) { return Ma(p), nil })
	MustRegisterPl("ema", func(p param.Param) (PlFactor, error) { return Ema(p), nil })
	MustRegisterPl("rsrs", func(p param.Param) (PlFactor, error) { return Rsrs(p), nil })
	MustRegisterPl("marketpl", func(p param.Param) (PlFactor, error) { return MarketPl(p), nil })
	MustRegisterPl("at_time", func(param.Param) (PlFactor, error) { return AtTime(), nil })
	// The bias combinator over close registers under both its short name
	// and the full name its Name() renders to, so "close_bias_10" parses.
	biasBuilder := func(p param.Param) (PlFactor, error) { return Bias(Close, p), nil }
	MustRegisterPl("bias", biasBuilder)
	MustRegisterPl("close_bias", biasBuilder)
	MustRegisterPl("efficiency", func(p param.Param) (PlFactor, error) { return Efficiency(Close, p), nil })
	MustRegisterPl("close_efficiency", func(p param.Param) (PlFactor, error) { return Efficiency(Close, p), nil })
}
