package api

import (
	"fmt"
	"strings"
)

// Mode selects which endpoint families a run calls
type Mode string

const (
	ModeAds         Mode = "ads"
	ModeClickstream Mode = "clickstream"
	ModeDual        Mode = "dual"
)

// ParseMode accepts ads, clickstream or dual (case-insensitive)
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAds, ModeClickstream, ModeDual:
		return m, nil
	case "":
		return ModeAds, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want ads, clickstream or dual)", s)
	}
}

// Endpoint describes one DataForSEO live endpoint
type Endpoint struct {
	Name string
	Path string
	// Limit is the provider's maximum number of keywords per task
	Limit int
	Kind  PayloadKind
	// SendsLanguage is false for endpoints that reject language_code
	SendsLanguage bool
}

// BatchLimit satisfies batch.SizeLimited
func (e Endpoint) BatchLimit() int {
	return e.Limit
}

func (e Endpoint) String() string {
	return e.Name
}

var (
	EndpointAdsSearchVolume = Endpoint{
		Name:          "google_ads_search_volume",
		Path:          "/v3/keywords_data/google_ads/search_volume/live",
		Limit:         1000,
		Kind:          KindAds,
		SendsLanguage: true,
	}

	EndpointClickstreamGlobal = Endpoint{
		Name:          "clickstream_global_search_volume",
		Path:          "/v3/keywords_data/clickstream_data/global_search_volume/live",
		Limit:         1000,
		Kind:          KindClickstream,
		SendsLanguage: false,
	}
)

// EndpointsFor returns the endpoints a mode calls, in call order.
// Dual mode issues the Clickstream call before the Ads call.
func EndpointsFor(mode Mode) []Endpoint {
	switch mode {
	case ModeClickstream:
		return []Endpoint{EndpointClickstreamGlobal}
	case ModeDual:
		return []Endpoint{EndpointClickstreamGlobal, EndpointAdsSearchVolume}
	default:
		return []Endpoint{EndpointAdsSearchVolume}
	}
}
