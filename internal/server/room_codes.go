package server

import (
	"crypto/rand"
	"errors"
	"strings"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateRoomCode draws codes until inUse reports a free one.
func GenerateRoomCode(inUse func(string) bool) string {
	buf := make([]byte, roomCodeLength)
	for {
		rand.Read(buf)
		for i, b := range buf {
			// 256 is a multiple of the alphabet size, so the modulo is unbiased.
			buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
		}
		code := string(buf)
		if inUse == nil || !inUse(code) {
			return code
		}
	}
}

func ValidateRoomCode(code string) error {
	if len(code) != roomCodeLength {
		return errors.New("Room code must be exactly 6 characters")
	}

	code = strings.ToUpper(code)
	for _, ch := range code {
		if !strings.ContainsRune(roomCodeAlphabet, ch) {
			return errors.New("Room code contains an invalid character")
		}
	}

	return nil
}

func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
