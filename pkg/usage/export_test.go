package usage

// ActivePricing exposes the ledger's current pricing table to external tests.
func (l *Ledger) ActivePricing() *PricingTable {
	return l.pricing.get()
}
