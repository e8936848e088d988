package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"
)

// Hash is the hex sha256 digest of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func Find[T comparable](slice []T, value T) int {
	for i, v := range slice {
		if v == value {
			return i
		}
	}
	return -1
}

func Remove[T comparable](slice []T, index int) []T {
	return append(slice[:index], slice[index+1:]...)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
