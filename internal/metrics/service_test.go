package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/metrics"
	"github/chapool/ledger-signer/internal/test"
)

func TestInstrumentDevice(t *testing.T) {
	ctx := t.Context()

	m, err := metrics.New(config.DefaultServiceConfigFromEnv(), time2.DefaultClock)
	require.NoError(t, err)

	fake := test.NewDevice()
	fake.MessageErr = device.NewStatusError(device.StatusUserRejected)
	fake.TxErr = device.NewStatusError(device.StatusLocked)

	dev := m.InstrumentDevice(fake)

	_, err = dev.GetAddress(ctx, "44'/60'/0'/0/0", false, false)
	require.NoError(t, err)
	_, err = dev.GetAddress(ctx, "44'/60'/0'/0/1", false, false)
	require.NoError(t, err)
	_, err = dev.SignPersonalMessage(ctx, "44'/60'/0'/0/0", "00")
	require.Error(t, err)
	_, err = dev.SignTransaction(ctx, "44'/60'/0'/0/0", "00")
	require.Error(t, err)

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	histograms := 0
	for _, mf := range families {
		if mf.GetName() == "ledger_signer_device_request_duration_seconds" {
			histograms = len(mf.GetMetric())
		}
		if mf.GetName() != "ledger_signer_device_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			counts[labels["operation"]+"/"+labels["result"]] = metric.GetCounter().GetValue()
		}
	}

	assert.Equal(t, map[string]float64{
		"get_address/ok":                 2,
		"sign_personal_message/rejected": 1,
		"sign_transaction/error":         1,
	}, counts)

	assert.Equal(t, 3, histograms)

	require.NoError(t, dev.Close())
	assert.True(t, fake.Closed())
}

// slowDevice advances clock on every address request as if the device took that long.
type slowDevice struct {
	*test.Device
	clock *time2.MockClock
	took  time.Duration
}

func (d *slowDevice) GetAddress(ctx context.Context, path string, confirm bool, chainCode bool) (*device.AddressResult, error) {
	d.clock.Advance(d.took)
	return d.Device.GetAddress(ctx, path, confirm, chainCode)
}

func TestInstrumentDeviceLatency(t *testing.T) {
	ctx := t.Context()
	clock := time2.NewMockClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	m, err := metrics.New(config.DefaultServiceConfigFromEnv(), clock)
	require.NoError(t, err)

	dev := m.InstrumentDevice(&slowDevice{Device: test.NewDevice(), clock: clock, took: 250 * time.Millisecond})

	_, err = dev.GetAddress(ctx, "44'/60'/0'/0/0", false, false)
	require.NoError(t, err)
	_, err = dev.GetAddress(ctx, "44'/60'/0'/0/1", false, false)
	require.NoError(t, err)
	_, err = dev.SignPersonalMessage(ctx, "44'/60'/0'/0/0", "00")
	require.NoError(t, err)

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	sums := map[string]float64{}
	counts := map[string]uint64{}
	for _, mf := range families {
		if mf.GetName() != "ledger_signer_device_request_duration_seconds" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			operation := metric.GetLabel()[0].GetValue()
			sums[operation] = metric.GetHistogram().GetSampleSum()
			counts[operation] = metric.GetHistogram().GetSampleCount()
		}
	}

	assert.InDelta(t, 0.5, sums["get_address"], 1e-9)
	assert.Equal(t, uint64(2), counts["get_address"])
	assert.InDelta(t, 0, sums["sign_personal_message"], 1e-9)
	assert.Equal(t, uint64(1), counts["sign_personal_message"])
}

func TestNewIsolatedRegistries(t *testing.T) {
	_, err := metrics.New(config.DefaultServiceConfigFromEnv(), time2.DefaultClock)
	require.NoError(t, err)
	_, err = metrics.New(config.DefaultServiceConfigFromEnv(), time2.DefaultClock)
	require.NoError(t, err)
}
