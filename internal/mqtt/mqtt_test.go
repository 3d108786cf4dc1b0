package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/horn-controller/internal/logic"
)

func parsePayload(t *testing.T, data []byte) Payload {
	t.Helper()
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return p
}

func parseSystem(t *testing.T, data []byte) SystemPayload {
	t.Helper()
	var p SystemPayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return p
}

func TestFormatPayload(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Tick:      4242,
		Type:      logic.EventState,
		From:      logic.StateKill,
		To:        logic.StateCheckHornActive,
		Mode:      logic.ModeMini,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"horn":{"timestamp":"2026-02-02T22:18:12Z","event":"STATE","tick":4242,` +
		`"from":"KILL","to":"CHECK_HORN_ACTIVE","mode":"MINI","low_voltage":false}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadAllEventTypes(t *testing.T) {
	tests := []struct {
		eventType  logic.EventType
		lowVoltage bool
	}{
		{logic.EventHonk, false},
		{logic.EventLowVoltage, true},
		{logic.EventDead, false},
		{logic.EventModeChanged, false},
		{logic.EventConfigLocked, false},
		{logic.EventChargingStarted, false},
		{logic.EventChargingStopped, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			payload, err := FormatPayload(logic.Event{
				Timestamp:  time.Now(),
				Type:       tt.eventType,
				LowVoltage: tt.lowVoltage,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			parsed := parsePayload(t, payload)
			if parsed.Horn.Event != string(tt.eventType) {
				t.Errorf("event: got %s, want %s", parsed.Horn.Event, tt.eventType)
			}
			if parsed.Horn.LowVoltage != tt.lowVoltage {
				t.Errorf("low_voltage: got %v, want %v", parsed.Horn.LowVoltage, tt.lowVoltage)
			}
			if parsed.Horn.From != "" || parsed.Horn.To != "" {
				t.Errorf("non-STATE event carries from/to: %+v", parsed.Horn)
			}
			if parsed.Horn.Mode != "MINIBELL" {
				t.Errorf("mode: got %s, want MINIBELL", parsed.Horn.Mode)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 3, 0, 30, 0, 0, loc),
		Type:      logic.EventHonk,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := parsePayload(t, payload).Horn.Timestamp; got != "2026-02-02T22:30:00Z" {
		t.Errorf("expected UTC timestamp, got %s", got)
	}
}

func TestFormatPayloadKeepsMilliseconds(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 3, 0, 30, 0, 7_000_000, time.UTC),
		Type:      logic.EventHonk,
	}
	payload, _ := FormatPayload(event)
	if got := parsePayload(t, payload).Horn.Timestamp; got != "2026-02-03T00:30:00.007Z" {
		t.Errorf("unexpected timestamp %s", got)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "device/horn/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "device/horn/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T12:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadReconnected(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	expected := `{"system":{"event":"OFFLINE","reason":"MQTT_DISCONNECT"}}`
	if got := string(WillPayload()); got != expected {
		t.Errorf("unexpected will payload:\ngot:  %s\nwant: %s", got, expected)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventHonk}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventState, To: logic.StateKill})
	f.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventHonk})

	if len(f.Events) != 3 || len(f.Payloads) != 3 {
		t.Fatalf("expected 3 events and payloads, got %d/%d", len(f.Events), len(f.Payloads))
	}
	if n := len(f.EventsOfType(logic.EventHonk)); n != 2 {
		t.Errorf("expected 2 HONK events, got %d", n)
	}
	if f.Events[1].To != logic.StateKill {
		t.Errorf("event order or data lost: %+v", f.Events[1])
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated system error")

	if err := f.Publish(logic.Event{Type: logic.EventHonk}); err == nil {
		t.Error("expected error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected system error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherSystemEvents(t *testing.T) {
	f := NewFakePublisher()

	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"})

	names := f.SystemEventNames()
	if len(names) != 2 || names[0] != "STARTUP" || names[1] != "HEARTBEAT" {
		t.Errorf("unexpected system events %v", names)
	}
	if !f.SystemEvents[0].Retained || f.SystemEvents[1].Retained {
		t.Error("retained flag not recorded")
	}
	if len(f.SystemPayloads) != 2 {
		t.Errorf("expected 2 system payloads, got %d", len(f.SystemPayloads))
	}
}

func TestFakePublisherCloseAndConnected(t *testing.T) {
	f := NewFakePublisher()
	var _ Publisher = f
	var _ ConnectionStatus = f

	if f.IsConnected() {
		t.Error("should start disconnected")
	}
	f.Connected = true
	if !f.IsConnected() {
		t.Error("expected connected")
	}
	f.Close()
	if !f.Closed {
		t.Error("expected closed")
	}
}
