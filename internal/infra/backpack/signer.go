package backpack

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Signer produces Backpack's ED25519 request authentication headers.
// It stores key material as byte slices to allow memory wiping.
//
// The canonical string is
//
//	instruction=<op>&<params sorted by key>&timestamp=<ms>&window=<ms>
//
// and the signature is base64(ed25519.Sign(key, canonical)). The venue
// rejects the request once the timestamp has aged past the window, which is
// why callers must sign with a fresh timestamp immediately before each
// transmission and never reuse a signature across attempts.
type Signer struct {
	apiKey     []byte
	privateKey ed25519.PrivateKey
	windowMS   int
}

// NewSigner builds a signer from the API key and the base64-encoded 32-byte
// ED25519 seed Backpack issues as the API secret. Empty credentials are a
// programming error here: callers must route simulated mode around signing.
func NewSigner(apiKey, apiSecret string, windowMS int) (*Signer, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(apiSecret) == "" {
		return nil, fmt.Errorf("signer requires non-empty credentials")
	}
	if windowMS <= 0 {
		return nil, fmt.Errorf("signing window must be positive, got %d", windowMS)
	}

	seed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(apiSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to decode API secret: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("API secret must decode to %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	return &Signer{
		apiKey:     []byte(apiKey),
		privateKey: ed25519.NewKeyFromSeed(seed),
		windowMS:   windowMS,
	}, nil
}

// Wipe clears the key material from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	wipeSlice(s.apiKey)
	wipeSlice(s.privateKey)
}

func wipeSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateHeaders signs one request and returns the required headers.
// params carries the sorted-signable values: query parameters for GET/DELETE,
// body fields for POST. Deterministic for identical inputs and timestamp.
func (s *Signer) GenerateHeaders(instruction string, params map[string]string, nowMS int64) map[string]string {
	signature := s.sign(canonicalString(instruction, params, nowMS, s.windowMS))

	return map[string]string{
		"X-API-Key":    string(s.apiKey),
		"X-Signature":  signature,
		"X-Timestamp":  strconv.FormatInt(nowMS, 10),
		"X-Window":     strconv.Itoa(s.windowMS),
		"Content-Type": "application/json; charset=utf-8",
	}
}

func (s *Signer) sign(canonical string) string {
	sig := ed25519.Sign(s.privateKey, []byte(canonical))
	return base64.StdEncoding.EncodeToString(sig)
}

// canonicalString builds the signable string. Params are sorted by key;
// empty values are skipped, matching the venue's signing contract.
func canonicalString(instruction string, params map[string]string, nowMS int64, windowMS int) string {
	var sb strings.Builder
	sb.WriteString("instruction=")
	sb.WriteString(instruction)

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sb.WriteString("&")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(params[k])
	}

	sb.WriteString("&timestamp=")
	sb.WriteString(strconv.FormatInt(nowMS, 10))
	sb.WriteString("&window=")
	sb.WriteString(strconv.Itoa(windowMS))
	return sb.String()
}
