package charts

import (
	"fmt"
	"strings"
)

// Kind is one of the charts the tool can draw.
type Kind int

const (
	KindBar Kind = iota
	KindPie
	KindRisk3D
	KindScatter
	KindBubble
	KindWeibull
	KindRayleigh
	KindBathtub
)

var kindInfo = [...]struct {
	slug  string
	label string
}{
	KindBar:      {"bar", "Bar Chart"},
	KindPie:      {"pie", "Pie Chart"},
	KindRisk3D:   {"risk3d", "3D Risk Plot"},
	KindScatter:  {"scatter", "Scatterplot"},
	KindBubble:   {"bubble", "Bubbleplot"},
	KindWeibull:  {"weibull", "Weibull Distribution"},
	KindRayleigh: {"rayleigh", "Rayleigh Distribution"},
	KindBathtub:  {"bathtub", "Bathtub Curve"},
}

// Kinds lists every chart kind in menu order.
func Kinds() []Kind {
	out := make([]Kind, len(kindInfo))
	for i := range kindInfo {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) valid() bool { return k >= 0 && int(k) < len(kindInfo) }

// String returns the URL-safe name of the kind.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindInfo[k].slug
}

// Label returns the menu label of the kind.
func (k Kind) Label() string {
	if !k.valid() {
		return k.String()
	}
	return kindInfo[k].label
}

// Statistical reports whether the kind belongs to the statistics view.
func (k Kind) Statistical() bool {
	return k == KindWeibull || k == KindRayleigh || k == KindBathtub
}

// ParseKind accepts a slug ("risk3d") or a menu label ("3D Risk Plot"),
// case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for i, info := range kindInfo {
		if strings.EqualFold(s, info.slug) || strings.EqualFold(s, info.label) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
