package pairs

import (
	"math"

	"PairDesk/internal/domain/models"
)

const daysPerYear = 365

// Simulate settles a long leg and a short leg at their exit prices and applies
// borrow and operating costs. The short leg pays borrow on its entry notional.
func Simulate(buy, sell models.Leg, costs models.CostParams) models.SimulationResult {
	res := models.SimulationResult{
		Buy:  legResult(buy, buy.Exit-buy.Entry),
		Sell: legResult(sell, sell.Entry-sell.Exit),
	}
	res.GrossResult = res.Buy.Result + res.Sell.Result
	res.BorrowCost = BorrowCost(sell.EntryVolume(), costs.BorrowAnnualRatePct, costs.DurationDays)
	res.OperatingCost = costs.BrokerageTotal + costs.FeesTotal
	res.NetResult = res.GrossResult - res.BorrowCost - res.OperatingCost
	res.CapitalBase = math.Max(res.Buy.EntryVolume, res.Sell.EntryVolume)
	res.NetReturnPct = models.NA()
	if res.CapitalBase > 0 {
		res.NetReturnPct = models.Number(res.NetResult / res.CapitalBase * 100)
	}
	return res
}

// BorrowCost is simple daily accrual on a fixed notional.
func BorrowCost(notional, annualRatePct float64, days int) float64 {
	if notional == 0 || annualRatePct == 0 || days == 0 {
		return 0
	}
	return notional * (annualRatePct / 100 / daysPerYear) * float64(days)
}

// QuoteView reports first/second ratio and spread for two prices.
func QuoteView(first, second float64) models.PairQuoteView {
	v := models.PairQuoteView{Ratio: models.NA(), Spread: first - second}
	if second != 0 {
		v.Ratio = models.Number(first / second)
	}
	return v
}

func legResult(l models.Leg, perShare float64) models.LegResult {
	return models.LegResult{
		Qty:         l.Qty,
		Entry:       l.Entry,
		Exit:        l.Exit,
		EntryVolume: l.EntryVolume(),
		ExitVolume:  l.ExitVolume(),
		Result:      perShare * float64(l.Qty),
	}
}
