package monitor_test

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/pmproxy/pkg/monitor"
	"github.com/sabouaram/pmproxy/pkg/monitor/types"
)

func gaugeValue(reg *prometheus.Registry, name string) float64 {
	fam, err := reg.Gather()
	Expect(err).ToNot(HaveOccurred())

	for _, f := range fam {
		if f.GetName() == name {
			m := f.GetMetric()[0]
			if m.Gauge != nil {
				return m.Gauge.GetValue()
			}
			return 0
		}
	}
	return 0
}

func counterValue(mf []*dto.MetricFamily, name string) float64 {
	for _, f := range mf {
		if f.GetName() == name {
			return f.GetMetric()[0].Counter.GetValue()
		}
	}
	return 0
}

var _ = Describe("Metrics", func() {
	It("rejects registration of a None-typed metric", func() {
		reg := prometheus.NewRegistry()
		m := monitor.NewMetrics("none_metric", types.None)
		Expect(m.Register(reg)).To(HaveOccurred())
	})

	It("exposes name, type and description", func() {
		m := monitor.NewMetrics("pmproxy_example", types.Counter).SetDesc("example counter")
		Expect(m.GetName()).To(Equal("pmproxy_example"))
		Expect(m.GetType()).To(Equal(types.Counter))
		Expect(m.GetDesc()).To(Equal("example counter"))
	})
})

var _ = Describe("ClientMonitor", func() {
	It("keeps the open gauge in sync with accepted/closed events", func() {
		reg := prometheus.NewRegistry()
		cm, err := monitor.NewClientMonitor(reg)
		Expect(err).ToNot(HaveOccurred())

		cm.Accepted()
		cm.Accepted()
		Expect(gaugeValue(reg, "pmproxy_clients_open")).To(Equal(2.0))

		cm.Closed()
		Expect(gaugeValue(reg, "pmproxy_clients_open")).To(Equal(1.0))

		fam, err := reg.Gather()
		Expect(err).ToNot(HaveOccurred())
		Expect(counterValue(fam, "pmproxy_clients_accepted_total")).To(Equal(2.0))
		Expect(counterValue(fam, "pmproxy_clients_closed_total")).To(Equal(1.0))
	})
})
