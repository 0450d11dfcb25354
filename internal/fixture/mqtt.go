package fixture

import "encoding/json"

// BrightnessPublisher publishes a light payload to the broker.
type BrightnessPublisher interface {
	PublishBrightness(payload []byte) error
}

// LightPayload is the JSON body published for each brightness write.
type LightPayload struct {
	Brightness uint8  `json:"brightness"`
	Level      uint8  `json:"level"`
	RGB        string `json:"rgb"`
}

// FormatLightPayload creates the JSON payload for a brightness value.
func FormatLightPayload(brightness uint8, c Curve) ([]byte, error) {
	return json.Marshal(LightPayload{
		Brightness: brightness,
		Level:      c.Level(brightness),
		RGB:        Color(brightness, c).Hex(),
	})
}

// MQTT publishes brightness to an MQTT light topic.
type MQTT struct {
	pub   BrightnessPublisher
	curve Curve
	fails failureLog
}

// NewMQTT creates an MQTT output.
func NewMQTT(pub BrightnessPublisher, curve Curve) *MQTT {
	return &MQTT{pub: pub, curve: curve, fails: failureLog{name: "mqtt"}}
}

// Write publishes brightness.
func (m *MQTT) Write(brightness uint8) {
	payload, err := FormatLightPayload(brightness, m.curve)
	if err == nil {
		err = m.pub.PublishBrightness(payload)
	}
	m.fails.observe(err)
}
