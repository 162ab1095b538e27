package factor

import (
	"fmt"

	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/param"
)

// Order-book factors over tick frames with ask<n>/bid<n> price and
// ask<n>_v/bid<n>_v size columns. Level params default to 1.

func level(p param.Param) int {
	n := p.AsInt()
	if n < 1 {
		n = 1
	}
	return n
}

// Ask is the n-th ask price level, named "ask_n".
func Ask(p param.Param) PlFactor {
	n := level(p)
	return FromExpr(fmt.Sprintf("ask_%d", n), frame.ColExpr(fmt.Sprintf("ask%d", n)))
}

// Bid is the n-th bid price level, named "bid_n".
func Bid(p param.Param) PlFactor {
	n := level(p)
	return FromExpr(fmt.Sprintf("bid_%d", n), frame.ColExpr(fmt.Sprintf("bid%d", n)))
}

// AskVol is the n-th ask size level.
func AskVol(p param.Param) PlFactor {
	n := level(p)
	return FromExpr(fmt.Sprintf("ask_vol_%d", n), frame.ColExpr(fmt.Sprintf("ask%d_v", n)))
}

// BidVol is the n-th bid size level.
func BidVol(p param.Param) PlFactor {
	n := level(p)
	return FromExpr(fmt.Sprintf("bid_vol_%d", n), frame.ColExpr(fmt.Sprintf("bid%d_v", n)))
}

// Mid is the level-1 midprice (ask1+bid1)/2.
func Mid() PlFactor {
	e := frame.ColExpr("ask1").Add(frame.ColExpr("bid1")).Div(frame.Lit(2))
	return FromExpr("mid", e)
}

// Spread is the level-1 spread scaled by the midprice.
func Spread() PlFactor {
	ask, bid := frame.ColExpr("ask1"), frame.ColExpr("bid1")
	mid := ask.Add(bid).Div(frame.Lit(2))
	return FromExpr("spread", ask.Sub(bid).ProtectDiv(mid))
}

// Obi is the order-book imbalance over the first n levels: the cumulative
// bid size against the cumulative ask size.
func Obi(p param.Param) PlFactor {
	n := level(p)
	var bidSum, askSum frame.Expr
	for i := 1; i <= n; i++ {
		b := frame.ColExpr(fmt.Sprintf("bid%d_v", i))
		a := frame.ColExpr(fmt.Sprintf("ask%d_v", i))
		if i == 1 {
			bidSum, askSum = b, a
		} else {
			bidSum = bidSum.Vadd(b)
			askSum = askSum.Vadd(a)
		}
	}
	return FromExpr(FormatName("obi", p), bidSum.Imbalance(askSum))
}

// ObSlope is the book's price-per-size slope over the first n levels:
// how far the price ladder moves per unit of resting size.
func ObSlope(p param.Param) PlFactor {
	n := level(p)
	askEdge := frame.ColExpr(fmt.Sprintf("ask%d", n)).Sub(frame.ColExpr("bid1"))
	bidEdge := frame.ColExpr("ask1").Sub(frame.ColExpr(fmt.Sprintf("bid%d", n)))
	var askSz, bidSz frame.Expr
	for i := 1; i <= n; i++ {
		a := frame.ColExpr(fmt.Sprintf("ask%d_v", i))
		b := frame.ColExpr(fmt.Sprintf("bid%d_v", i))
		if i == 1 {
			askSz, bidSz = a, b
		} else {
			askSz = askSz.Vadd(a)
			bidSz = bidSz.Vadd(b)
		}
	}
	slope := askEdge.ProtectDiv(askSz).Add(bidEdge.ProtectDiv(bidSz)).Div(frame.Lit(2))
	return FromExpr(FormatName("ob_slope", p), slope)
}

func init() {
	MustRegisterPl("mid", func(param.Param) (PlFactor, error) { return Mid(), nil })
	MustRegisterPl("spread", func(param.Param) (PlFactor, error) { return Spread(), nil })
	MustRegisterPl("ask", func(p param.Param) (PlFactor, error) { return Ask(p), nil })
	MustRegisterPl("bid", func(p param.Param) (PlFactor, error) { return Bid(p), nil })
	MustRegisterPl("ask_vol", func(p param.Param) (PlFactor, error) { return AskVol(p), nil })
	MustRegisterPl("bid_vol", func(p param.Param) (PlFactor, error) { return BidVol(p), nil })
	MustRegisterPl("obi", func(p param.Param) (PlFactor, error) { return Obi(p), nil })
	MustRegisterPl("ob_slope", func(p param.Param) (PlFactor, error) { return ObSlope(p), nil })
}
