package mqtt

import "strings"

// Topic purposes under <prefix>/<deviceId>/...
const (
	PurposeData            = "data"
	PurposeStatus          = "status"
	PurposeInfo            = "info"
	PurposeSettingsUpdate  = "settings/update"
	PurposePrediction      = "prediction"
	PurposeSettings        = "settings"
	PurposeSettingsConfirm = "settings/confirm"
	PurposeStatusConfirm   = "status/confirm"
)

// Topics builds and parses device topics, e.g. spl/device/7/settings
type Topics struct {
	Prefix string
}

func NewTopics(prefix string) Topics {
	return Topics{Prefix: strings.TrimSuffix(prefix, "/")}
}

// Device returns <prefix>/<deviceID>/<purpose>
func (t Topics) Device(deviceID, purpose string) string {
	return t.Prefix + "/" + deviceID + "/" + purpose
}

// Wildcard returns <prefix>/+/<purpose>
func (t Topics) Wildcard(purpose string) string {
	return t.Device("+", purpose)
}

// Inbound lists the topic filters the relay subscribes to
func (t Topics) Inbound() []string {
	return []string{
		t.Wildcard(PurposeData),
		t.Wildcard(PurposeStatus),
		t.Wildcard(PurposeInfo),
		t.Wildcard(PurposeSettingsUpdate),
	}
}

// Parse splits a concrete topic into device id and purpose.
// ok is false when the topic is not under the prefix.
func (t Topics) Parse(topic string) (deviceID, purpose string, ok bool) {
	rest := strings.TrimPrefix(topic, t.Prefix+"/")
	if rest == topic {
		return "", "", false
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
