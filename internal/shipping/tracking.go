package shipping

import (
	"net/url"
	"strings"
)

const (
	ProviderAndreani = "andreani"
	ProviderOCA      = "oca"
	ProviderCorreo   = "correo-argentino"
)

// NormalizeProvider returns a canonical provider key for known carriers.
func NormalizeProvider(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "", ".", "")
	normalized = replacer.Replace(normalized)

	switch normalized {
	case "andreani":
		return ProviderAndreani
	case "oca", "ocaepak":
		return ProviderOCA
	case "correo", "correoargentino", "paqar":
		return ProviderCorreo
	default:
		return ""
	}
}

// CanonicalCarrierName maps a provider key to the display name.
func CanonicalCarrierName(provider string) string {
	switch NormalizeProvider(provider) {
	case ProviderAndreani:
		return "Andreani"
	case ProviderOCA:
		return "OCA"
	case ProviderCorreo:
		return "Correo Argentino"
	default:
		return ""
	}
}

// NormalizeCarrierName keeps custom carriers untouched and normalizes known ones.
func NormalizeCarrierName(carrier string) string {
	trimmed := strings.TrimSpace(carrier)
	if trimmed == "" {
		return ""
	}
	if canonical := CanonicalCarrierName(trimmed); canonical != "" {
		return canonical
	}
	return trimmed
}

// BuildTrackingURL returns a provider-specific tracking URL. Unknown providers return empty.
func BuildTrackingURL(carrier, trackingNumber string) string {
	number := strings.TrimSpace(trackingNumber)
	if number == "" {
		return ""
	}

	escaped := url.QueryEscape(number)
	switch NormalizeProvider(carrier) {
	case ProviderAndreani:
		return "https://www.andreani.com/#!/informacionEnvio/" + escaped
	case ProviderOCA:
		return "https://www.oca.com.ar/envios/seguimiento?numero=" + escaped
	case ProviderCorreo:
		return "https://www.correoargentino.com.ar/formularios/ondnc?id=" + escaped
	default:
		return ""
	}
}
