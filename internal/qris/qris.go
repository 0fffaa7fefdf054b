// Package qris builds dynamic QRIS payment payloads (EMVCo merchant-presented
// TLV format) and renders them as PNG QR codes.
package qris

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	merchantCategoryRestaurant = "5812"
	currencyIDR                = "360"
	countryID                  = "ID"
	qrisGUID                   = "ID.CO.QRIS.WWW"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// Payment describes one dynamic QR bill.
type Payment struct {
	MerchantName string
	MerchantCity string
	MerchantID   string
	BillNumber   string
	Amount       int64
}

// Payload returns the TLV string including the trailing CRC field.
func Payload(p Payment) (string, error) {
	if p.Amount <= 0 {
		return "", ErrInvalidAmount
	}

	var b strings.Builder
	b.WriteString(tlv("00", "01"))
	b.WriteString(tlv("01", "12")) // dynamic: one-time amount
	b.WriteString(tlv("26", tlv("00", qrisGUID)+tlv("01", truncate(p.MerchantID, 25))))
	b.WriteString(tlv("52", merchantCategoryRestaurant))
	b.WriteString(tlv("53", currencyIDR))
	b.WriteString(tlv("54", strconv.FormatInt(p.Amount, 10)))
	b.WriteString(tlv("58", countryID))
	b.WriteString(tlv("59", truncate(p.MerchantName, 25)))
	b.WriteString(tlv("60", truncate(p.MerchantCity, 15)))
	if p.BillNumber != "" {
		b.WriteString(tlv("62", tlv("01", truncate(p.BillNumber, 25))))
	}
	b.WriteString("6304")

	s := b.String()
	return s + fmt.Sprintf("%04X", crc16(s)), nil
}

// PNG encodes the payload of p as a QR image of size×size pixels.
func PNG(p Payment, size int) ([]byte, error) {
	payload, err := Payload(p)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}

func tlv(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

func truncate(s string, n int) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) > n {
		return s[:n]
	}
	return s
}

// crc16 is CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF).
func crc16(s string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
