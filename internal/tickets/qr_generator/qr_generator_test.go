package qr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-theatre/internal/models"
)

func sampleTicket() models.Ticket {
	return models.Ticket{ID: 7, Row: 3, Seat: 12, PerformanceID: 2, ReservationID: 5}
}

func TestGenerateEncryptedQR(t *testing.T) {
	qrGen := NewQRGenerator("test-secret-key")

	png, err := qrGen.GenerateEncryptedQR(sampleTicket())
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	qrGen := NewQRGenerator("test-secret-key")

	token, err := qrGen.Encrypt(PayloadFor(sampleTicket()))
	require.NoError(t, err)

	p, err := qrGen.DecryptQRData(token)
	require.NoError(t, err)
	assert.Equal(t, Payload{TicketID: 7, ReservationID: 5, PerformanceID: 2, Row: 3, Seat: 12}, *p)
}

func TestEncryptUsesRandomIV(t *testing.T) {
	qrGen := NewQRGenerator("test-secret-key")

	a, err := qrGen.Encrypt(PayloadFor(sampleTicket()))
	require.NoError(t, err)
	b, err := qrGen.Encrypt(PayloadFor(sampleTicket()))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	token, err := NewQRGenerator("key-one").Encrypt(PayloadFor(sampleTicket()))
	require.NoError(t, err)

	_, err = NewQRGenerator("key-two").DecryptQRData(token)
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	qrGen := NewQRGenerator("test-secret-key")

	_, err := qrGen.DecryptQRData("not base64 !!")
	assert.Error(t, err)

	_, err = qrGen.DecryptQRData("c2hvcnQ=")
	assert.Error(t, err)
}
