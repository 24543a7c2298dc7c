package measure

import (
	"testing"
	"time"

	statex "github.com/laserhenk/henk-agent/agent/state"
)

func TestParseMeasurements(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want map[string]float64
	}{
		{"brustumfang 102", map[string]float64{"chest": 102}},
		{"meine taille liegt bei 88", map[string]float64{"waist": 88}},
		{"schulterbreite: 46,5", map[string]float64{"shoulder_width": 46.5}},
		{"schrittlänge ist ca. 84", map[string]float64{"inseam": 84}},
		{"hüfte etwa 101 und armlänge 64", map[string]float64{"hip": 101, "sleeve_length": 64}},
		// The number belongs to the waist, not the chest mentioned earlier.
		{"brust und taille 88", map[string]float64{"waist": 88}},
		// "fortschritt" must not read as Schrittlänge.
		{"der fortschritt 50 gefällt mir", nil},
		{"keine zahlen hier", nil},
	}
	for _, tc := range cases {
		got := parseMeasurements(tc.text)
		if len(got) != len(tc.want) {
			t.Errorf("parseMeasurements(%q) = %v, want %v", tc.text, got, tc.want)
			continue
		}
		for k, v := range tc.want {
			if got[k] != v {
				t.Errorf("parseMeasurements(%q)[%s] = %v, want %v", tc.text, k, got[k], v)
			}
		}
	}
}

func TestApplyMeasurementsBounds(t *testing.T) {
	t.Parallel()

	session := statex.NewSessionState("sess-measure", time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC))
	applyMeasurements(session, map[string]float64{
		"chest": 500,
		"waist": 0,
		"neck":  40,
		"hip":   101,
	})

	m := session.Measurements
	if m == nil {
		t.Fatal("Measurements = nil, want record with the plausible value")
	}
	if m.Hip == nil || *m.Hip != 101 {
		t.Fatalf("Hip = %+v, want 101", m.Hip)
	}
	if m.Chest != nil || m.Waist != nil {
		t.Fatalf("implausible values survived: chest=%v waist=%v", m.Chest, m.Waist)
	}
	if m.Source != statex.MeasureSourceManual {
		t.Fatalf("Source = %q, want manual", m.Source)
	}

	// Nothing plausible: no record is created at all.
	empty := statex.NewSessionState("sess-measure", time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC))
	applyMeasurements(empty, map[string]float64{"neck": 40, "chest": 10})
	if empty.Measurements != nil {
		t.Fatalf("Measurements = %+v, want nil", empty.Measurements)
	}
}

func TestIntents(t *testing.T) {
	t.Parallel()

	if !scanIntent("dann lieber per smartphone von zuhause") {
		t.Error("scanIntent missed the scan wish")
	}
	if scanIntent("ich komme vorbei") {
		t.Error("scanIntent fired without a scan wish")
	}
	if !appointmentIntent("lieber persönlich im showroom") {
		t.Error("appointmentIntent missed the visit wish")
	}
	if !cancelIntent("bitte alles stornieren") {
		t.Error("cancelIntent missed the cancellation")
	}
	if cancelIntent("passt super, weiter so") {
		t.Error("cancelIntent fired on praise")
	}
	if !existingCustomerIntent("ich bin bestandskunde") {
		t.Error("existingCustomerIntent missed the returning customer")
	}
	if existingCustomerIntent("ich bin zum ersten mal hier") {
		t.Error("existingCustomerIntent fired on a first visit")
	}
}

func TestMeasurementsHelpers(t *testing.T) {
	t.Parallel()

	var m *statex.Measurements
	if m.Complete() || m.MissingCount() != 7 || m.Summary() != nil {
		t.Fatalf("nil record: Complete=%v MissingCount=%d Summary=%v", m.Complete(), m.MissingCount(), m.Summary())
	}

	session := statex.NewSessionState("sess-measure", time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC))
	applyMeasurements(session, map[string]float64{
		"shoulder_width": 46, "chest": 102, "waist": 88,
		"hip": 101, "sleeve_length": 64, "body_length": 78, "inseam": 84,
	})
	if !session.Measurements.Complete() {
		t.Fatalf("Complete() = false after seven values: %+v", session.Measurements)
	}
	sum := session.Measurements.Summary()
	if len(sum) != 7 || sum["chest"] != 102 {
		t.Fatalf("Summary() = %v, want seven entries with chest 102", sum)
	}
}
