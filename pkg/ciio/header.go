package ciio

import (
	"fmt"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
)

// FITS keywords describing the charge injection sequence of a frame.
const (
	KeyCCDID          = "CCDID"
	KeyQuadrantID     = "QUADID"
	KeyInjectionOn    = "CI_IJON"
	KeyInjectionOff   = "CI_IJOFF"
	KeyInjectionTotal = "CI_NUMB"
	KeyNormalization  = "INJNORM"
)

// InjectionHeader is the detector and injection metadata of a frame.
type InjectionHeader struct {
	CCDID          string
	QuadrantID     string
	InjectionOn    int
	InjectionOff   int
	InjectionTotal int
	Normalization  float64
}

// ReadInjectionHeader reads the injection keywords of HDU hdu. Keywords that
// are absent keep the values in defaults.
func ReadInjectionHeader(path string, hdu int, defaults InjectionHeader) (InjectionHeader, error) {
	img, closer, err := openImage(path, hdu)
	if err != nil {
		return defaults, err
	}
	defer closer()
	return injectionHeaderFrom(img.Header(), defaults)
}

func injectionHeaderFrom(hdr *fitsio.Header, defaults InjectionHeader) (InjectionHeader, error) {
	h := defaults
	if card := hdr.Get(KeyCCDID); card != nil {
		h.CCDID = fmt.Sprint(card.Value)
	}
	if card := hdr.Get(KeyQuadrantID); card != nil {
		h.QuadrantID = fmt.Sprint(card.Value)
	}

	ints := map[string]*int{
		KeyInjectionOn:    &h.InjectionOn,
		KeyInjectionOff:   &h.InjectionOff,
		KeyInjectionTotal: &h.InjectionTotal,
	}
	for key, dst := range ints {
		card := hdr.Get(key)
		if card == nil {
			continue
		}
		v, err := number(card)
		if err != nil {
			return defaults, err
		}
		*dst = int(v)
	}

	if card := hdr.Get(KeyNormalization); card != nil {
		v, err := number(card)
		if err != nil {
			return defaults, err
		}
		h.Normalization = v
	}
	return h, nil
}

func number(card *fitsio.Card) (float64, error) {
	switch v := card.Value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	default:
		return 0, errors.Errorf("keyword %v has non-numeric value %v", card.Name, card.Value)
	}
}

// Cards returns the header as FITS cards, for writing alongside extracted
// arrays.
func (h InjectionHeader) Cards() []fitsio.Card {
	return []fitsio.Card{
		{Name: KeyCCDID, Value: h.CCDID, Comment: "CCD identifier"},
		{Name: KeyQuadrantID, Value: h.QuadrantID, Comment: "quadrant identifier"},
		{Name: KeyInjectionOn, Value: h.InjectionOn, Comment: "rows injected per block"},
		{Name: KeyInjectionOff, Value: h.InjectionOff, Comment: "rows between blocks"},
		{Name: KeyInjectionTotal, Value: h.InjectionTotal, Comment: "number of injection blocks"},
		{Name: KeyNormalization, Value: h.Normalization, Comment: "injected charge level"},
	}
}
