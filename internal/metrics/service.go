package metrics

import (
	"context"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/device"
)

const (
	namespace = "ledger_signer"

	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Service keeps a registry per server so parallel test servers never collide.
type Service struct {
	Registry *prometheus.Registry

	clock          time2.Clock
	deviceRequests *prometheus.CounterVec
	deviceDuration *prometheus.HistogramVec
}

// New creates the registry. Device latencies are measured with clock.
func New(_ config.Server, clock time2.Clock) (*Service, error) {
	registry := prometheus.NewRegistry()

	s := &Service{
		Registry: registry,
		clock:    clock,
		deviceRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "device_requests_total",
				Help:      "Total number of device requests by operation and result.",
			},
			[]string{"operation", "result"},
		),
		deviceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "device_request_duration_seconds",
				Help:      "Device request latency including time waiting for user confirmation.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
	}

	for _, c := range []prometheus.Collector{
		s.deviceRequests,
		s.deviceDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register collector")
		}
	}

	return s, nil
}

// InstrumentDevice returns dev reporting request counts and latencies to s.
//
//nolint:ireturn // Returning interface is intentional, the wrapper is a drop-in device
func (s *Service) InstrumentDevice(dev device.Device) device.Device {
	return &instrumentedDevice{next: dev, metrics: s}
}

func (s *Service) observe(operation string, start time.Time, err error) {
	result := ResultOK
	switch {
	case device.IsUserRejected(err):
		result = ResultRejected
	case err != nil:
		result = ResultError
	}

	s.deviceRequests.WithLabelValues(operation, result).Inc()
	s.deviceDuration.WithLabelValues(operation).Observe(s.clock.Now().Sub(start).Seconds())
}

type instrumentedDevice struct {
	next    device.Device
	metrics *Service
}

func (d *instrumentedDevice) GetAddress(ctx context.Context, path string, confirm bool, chainCode bool) (*device.AddressResult, error) {
	start := d.metrics.clock.Now()
	res, err := d.next.GetAddress(ctx, path, confirm, chainCode)
	d.metrics.observe("get_address", start, err)

	return res, err
}

func (d *instrumentedDevice) SignTransaction(ctx context.Context, path string, unsignedTxHex string) (*device.Signature, error) {
	start := d.metrics.clock.Now()
	sig, err := d.next.SignTransaction(ctx, path, unsignedTxHex)
	d.metrics.observe("sign_transaction", start, err)

	return sig, err
}

func (d *instrumentedDevice) SignPersonalMessage(ctx context.Context, path string, messageHex string) (*device.Signature, error) {
	start := d.metrics.clock.Now()
	sig, err := d.next.SignPersonalMessage(ctx, path, messageHex)
	d.metrics.observe("sign_personal_message", start, err)

	return sig, err
}

func (d *instrumentedDevice) Close() error {
	return d.next.Close()
}
