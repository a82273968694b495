package squid

import (
	"fmt"

	"github.com/uhyunpark/squidroute/pkg/crypto"
)

// GenerateParams returns a copy of p whose ToAddress is the checksummed
// address derived from publicKeyHex.
func GenerateParams(p Params, publicKeyHex string) (Params, error) {
	return GenerateParamsWith(crypto.NewDeriver(nil), p, publicKeyHex)
}

// GenerateParamsWith is GenerateParams with an explicit deriver.
func GenerateParamsWith(d *crypto.Deriver, p Params, publicKeyHex string) (Params, error) {
	to, err := d.DeriveAddress(publicKeyHex)
	if err != nil {
		return Params{}, fmt.Errorf("derive recipient: %w", err)
	}
	out := p
	out.ToAddress = to
	if p.EnableForecall != nil {
		v := *p.EnableForecall
		out.EnableForecall = &v
	}
	return out, nil
}
