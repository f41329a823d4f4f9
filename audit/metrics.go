package audit

import "github.com/prometheus/client_golang/prometheus"

// collector reads the ledger on every scrape, so the exported values are
// never stale.
type collector struct {
	ledger Ledger

	chainLength *prometheus.Desc
	pending     *prometheus.Desc
	fakes       *prometheus.Desc
}

// NewCollector returns a prometheus.Collector exporting the chain length,
// the number of staged products and the number of fake products of l.
func NewCollector(l Ledger) prometheus.Collector {
	return &collector{
		ledger: l,
		chainLength: prometheus.NewDesc(
			"product_ledger_chain_length",
			"Number of committed blocks, genesis included.",
			nil, nil,
		),
		pending: prometheus.NewDesc(
			"product_ledger_pending_products",
			"Number of products staged for the next block.",
			nil, nil,
		),
		fakes: prometheus.NewDesc(
			"product_ledger_fake_products",
			"Number of distinct products committed more than once.",
			nil, nil,
		),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.chainLength
	ch <- c.pending
	ch <- c.fakes
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.chainLength, prometheus.GaugeValue, float64(c.ledger.Len()))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(len(c.ledger.Pending())))
	ch <- prometheus.MustNewConstMetric(c.fakes, prometheus.GaugeValue, float64(c.ledger.CountFakeProducts()))
}
