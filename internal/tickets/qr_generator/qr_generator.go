package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"

	"ms-theatre/internal/models"
)

// Payload is what a scanned ticket QR code decrypts to.
type Payload struct {
	TicketID      int64 `json:"ticket_id"`
	ReservationID int64 `json:"reservation_id"`
	PerformanceID int64 `json:"performance_id"`
	Row           int   `json:"row"`
	Seat          int   `json:"seat"`
}

func PayloadFor(ticket models.Ticket) Payload {
	return Payload{
		TicketID:      ticket.ID,
		ReservationID: ticket.ReservationID,
		PerformanceID: ticket.PerformanceID,
		Row:           ticket.Row,
		Seat:          ticket.Seat,
	}
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// Encrypt returns the URL-safe token embedded in the QR image.
func (q *QRGenerator) Encrypt(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

func (q *QRGenerator) GenerateEncryptedQR(ticket models.Ticket) ([]byte, error) {
	token, err := q.Encrypt(PayloadFor(ticket))
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, 256)
}

func (q *QRGenerator) DecryptQRData(token string) (*Payload, error) {
	data, err := decryptAES(token, q.secret)
	if err != nil {
		return nil, err
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid qr payload: %w", err)
	}
	if p.TicketID == 0 {
		return nil, errors.New("invalid qr payload: missing ticket id")
	}
	return &p, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(token string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid qr token encoding: %w", err)
	}
	if len(ciphertext) <= aes.BlockSize {
		return nil, errors.New("qr token too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])
	return data, nil
}
