package enums

import "strings"

type PrivacyMode string

const (
	PrivacyModeStandard PrivacyMode = "standard"
	PrivacyModeStrict   PrivacyMode = "strict"
)

func ParsePrivacyMode(raw string) (PrivacyMode, bool) {
	switch PrivacyMode(strings.ToLower(strings.TrimSpace(raw))) {
	case PrivacyModeStandard:
		return PrivacyModeStandard, true
	case PrivacyModeStrict:
		return PrivacyModeStrict, true
	default:
		return "", false
	}
}
