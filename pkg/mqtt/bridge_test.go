package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReading(t *testing.T) {
	reading, err := DecodeReading([]byte(`{
		"serialNumber": "SN-001",
		"fillLevel": 73.5,
		"temperature": 31,
		"tilted": true,
		"batteryLevel": 42
	}`))
	require.NoError(t, err)

	assert.Equal(t, "SN-001", reading.SerialNumber)
	assert.Equal(t, 73.5, reading.FillLevel)
	assert.Equal(t, 31.0, reading.Temperature)
	assert.True(t, reading.Tilted)
	require.NotNil(t, reading.BatteryLevel)
	assert.Equal(t, 42, *reading.BatteryLevel)
}

func TestDecodeReadingOmitsBattery(t *testing.T) {
	reading, err := DecodeReading([]byte(`{"serialNumber": "SN-001", "fillLevel": 10}`))
	require.NoError(t, err)
	assert.Nil(t, reading.BatteryLevel)
}

func TestDecodeReadingMalformed(t *testing.T) {
	_, err := DecodeReading([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeReading([]byte(`{"fillLevel": 10}`))
	assert.Error(t, err, "payload without a serial number is dropped")
}
