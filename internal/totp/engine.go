// Package totp implements the second-factor engine: secret enrollment and
// time-based code verification. Verification is a pure function of
// (secret, code, time) and fails closed on malformed input.
package totp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

type Engine struct {
	issuer string
	period uint
	skew   uint
	digits otp.Digits
}

func NewEngine(issuer string) *Engine {
	return &Engine{
		issuer: issuer,
		period: 30,
		skew:   1, // accept one step either side for clock drift
		digits: otp.DigitsSix,
	}
}

// Enrollment is the artifact handed to the user during setup: the base32
// secret, the otpauth URL, and a scannable QR image as a data URI.
type Enrollment struct {
	Secret string
	URL    string
	QRCode string
}

func (e *Engine) Enroll(accountName string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: accountName,
		Period:      e.period,
		Digits:      e.digits,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return Enrollment{}, fmt.Errorf("render qr image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Enrollment{}, fmt.Errorf("encode qr png: %w", err)
	}

	return Enrollment{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Verify reports whether code is valid for secret at time t. The underlying
// comparison is constant-time; any decode or format error counts as an
// invalid code.
func (e *Engine) Verify(secret, code string, t time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, t, totp.ValidateOpts{
		Period:    e.period,
		Skew:      e.skew,
		Digits:    e.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
