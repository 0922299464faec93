// Package qrtoken issues and verifies the tamper-evident identity tokens
// printed on QR cards.
//
// The signature is a plain SHA-256 over the claim fields. It stops casual
// edits of a printed payload but anyone who knows the format can mint a
// valid token, so it must never be treated as a secret credential.
package qrtoken

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
)

var (
	ErrMalformedToken   = errors.New("malformed qr token")
	ErrInvalidSignature = errors.New("invalid qr token signature")
)

// Token is the QR payload. Field names follow the wire format shared with
// the mobile clients.
type Token struct {
	SubjectID string  `json:"userId"`
	Role      string  `json:"role"`
	GroupID   *string `json:"classId,omitempty"`
	IssuedAt  int64   `json:"ts"` // epoch milliseconds
	Signature string  `json:"sig"`
}

// IssuedTime returns IssuedAt as a time.
func (t Token) IssuedTime() time.Time {
	return time.UnixMilli(t.IssuedAt)
}

// Age returns how long ago the token was issued relative to now.
func (t Token) Age(now time.Time) time.Duration {
	return now.Sub(t.IssuedTime())
}

type Service struct {
	now func() time.Time
}

func NewService() *Service {
	return &Service{now: time.Now}
}

// NewServiceWithClock is used by tests that need a fixed issue time.
func NewServiceWithClock(now func() time.Time) *Service {
	return &Service{now: now}
}

// Issue signs a token for the subject.
func (s *Service) Issue(subjectID, role string, groupID *string) Token {
	t := Token{
		SubjectID: subjectID,
		Role:      role,
		GroupID:   groupID,
		IssuedAt:  s.now().UnixMilli(),
	}
	t.Signature = Digest(t)
	return t
}

// Verify recomputes the digest from the claimed fields.
func (s *Service) Verify(t Token) bool {
	want := Digest(t)
	return subtle.ConstantTimeCompare([]byte(want), []byte(t.Signature)) == 1
}

// Parse decodes a raw QR payload and verifies its signature.
func (s *Service) Parse(payload string) (Token, error) {
	t, err := Decode(payload)
	if err != nil {
		return Token{}, err
	}
	if !s.Verify(t) {
		return t, ErrInvalidSignature
	}
	return t, nil
}

// Digest is hex(sha256("userId|role|classId|ts")) with an empty classId when
// the token has no group.
func Digest(t Token) string {
	groupID := ""
	if t.GroupID != nil {
		groupID = *t.GroupID
	}
	material := t.SubjectID + "|" + t.Role + "|" + groupID + "|" + strconv.FormatInt(t.IssuedAt, 10)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// Encode renders the token in its JSON wire format.
func Encode(t Token) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode qr token: %w", err)
	}
	return string(b), nil
}

type wireToken struct {
	UserID  *string      `json:"userId"`
	Role    *string      `json:"role"`
	ClassID *string      `json:"classId"`
	TS      *json.Number `json:"ts"`
	Sig     *string      `json:"sig"`
}

// Decode parses the JSON wire format. Any missing or mistyped field yields
// ErrMalformedToken.
func Decode(payload string) (Token, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(payload))))
	dec.UseNumber()

	var w wireToken
	if err := dec.Decode(&w); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if w.UserID == nil || strings.TrimSpace(*w.UserID) == "" {
		return Token{}, fmt.Errorf("%w: userId is required", ErrMalformedToken)
	}
	if w.Role == nil || strings.TrimSpace(*w.Role) == "" {
		return Token{}, fmt.Errorf("%w: role is required", ErrMalformedToken)
	}
	if w.TS == nil {
		return Token{}, fmt.Errorf("%w: ts is required", ErrMalformedToken)
	}
	ts, err := w.TS.Int64()
	if err != nil || ts <= 0 {
		return Token{}, fmt.Errorf("%w: ts must be a positive integer", ErrMalformedToken)
	}
	if w.Sig == nil {
		return Token{}, fmt.Errorf("%w: sig is required", ErrMalformedToken)
	}
	if _, err := hex.DecodeString(*w.Sig); err != nil || len(*w.Sig) != sha256.Size*2 {
		return Token{}, fmt.Errorf("%w: sig must be a sha256 hex digest", ErrMalformedToken)
	}

	t := Token{
		SubjectID: *w.UserID,
		Role:      *w.Role,
		IssuedAt:  ts,
		Signature: *w.Sig,
	}
	if w.ClassID != nil && *w.ClassID != "" {
		t.GroupID = w.ClassID
	}
	return t, nil
}

// PNG renders the token payload as a QR code image.
func PNG(t Token, size int) ([]byte, error) {
	payload, err := Encode(t)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}
