package transformer

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"fareetl/internal/fare"
	"fareetl/internal/logger"
	"fareetl/pkg/records"
)

type dropped struct {
	supplier  fare.Supplier
	index     int
	offending map[string]string
}

func collect(into *[]dropped) DiagnosticSink {
	return SinkFunc(func(s fare.Supplier, i int, off map[string]string) {
		*into = append(*into, dropped{s, i, off})
	})
}

/*
TestClean_SecondaryCanonicalizesAndDrops covers the secondary-supplier path:
rename into the supplier's namespace, pad flight numbers, drop rows whose
flight numbers cannot be canonicalized, and reduce dates to MM/DD.
*/
func TestClean_SecondaryCanonicalizesAndDrops(t *testing.T) {
	t.Parallel()

	in := []records.Record{
		{
			"去程航班編號1": "ci 73", "去程艙等1": "Y",
			"回程航班編號1": "CI72", "回程艙等1": "Y",
			"去程日期": "2025-11-05", "回程日期": "2025-11-12",
			"票面價格": 10000, "稅金": 1500, "productDesc": "x",
		},
		{
			"去程航班編號1": "XYZ12", "回程航班編號1": "CI072",
			"去程日期": "2025-11-05", "回程日期": "2025-11-12",
		},
		{
			"去程航班編號1": "BR87", "去程航班編號2": nil,
			"去程日期": nil, "回程日期": "2025-12-01 00:00:00",
		},
	}

	var got []dropped
	out := Cleaner{Sink: collect(&got)}.Clean(SetProfile(), in)

	if len(out) != 2 {
		t.Fatalf("len(out)=%d; want 2: %#v", len(out), out)
	}
	want0 := records.Record{
		"out_flight_number_1": "CI073", "out_cabin_class_1": "Y",
		"ret_flight_number_1": "CI072", "ret_cabin_class_1": "Y",
		"outbound_date": "11/05", "return_date": "11/12",
		"settour_air_tickets_price": 10000, "settour_tax": 1500,
		"productDesc": "x",
	}
	if !reflect.DeepEqual(out[0], want0) {
		t.Fatalf("row 0 mismatch:\n got: %#v\nwant: %#v", out[0], want0)
	}
	if out[1]["out_flight_number_1"] != "BR087" || out[1]["out_flight_number_2"] != "" {
		t.Fatalf("row 1 flights = %#v, %#v", out[1]["out_flight_number_1"], out[1]["out_flight_number_2"])
	}
	if out[1]["outbound_date"] != nil || out[1]["return_date"] != "12/01" {
		t.Fatalf("row 1 dates = %#v, %#v", out[1]["outbound_date"], out[1]["return_date"])
	}

	if len(got) != 1 {
		t.Fatalf("dropped=%d; want 1", len(got))
	}
	wantDrop := dropped{fare.Set, 1, map[string]string{
		"out_flight_number_1": "XYZ12", "ret_flight_number_1": "CI072",
	}}
	if !reflect.DeepEqual(got[0], wantDrop) {
		t.Fatalf("drop report mismatch:\n got: %#v\nwant: %#v", got[0], wantDrop)
	}

	if in[0]["去程航班編號1"] != "ci 73" {
		t.Fatalf("input was modified: %#v", in[0])
	}
}

/*
TestClean_PaddingBoundaries checks one- and two-digit suffixes pad to three
digits and three/four-digit suffixes are left alone.
*/
func TestClean_PaddingBoundaries(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"CI7":    "CI007",
		"CI73":   "CI073",
		"CI073":  "CI073",
		"CI0073": "CI0073",
		"7C12":   "7C012",
	}
	for raw, want := range cases {
		out := Cleaner{}.Clean(LionProfile(), []records.Record{{"去程航班編號1": raw}})
		if len(out) != 1 || out[0]["out_flight_number_1"] != want {
			t.Errorf("Clean(%q) = %#v; want %q", raw, out, want)
		}
	}
	if out := (Cleaner{}).Clean(RichProfile(), []records.Record{{"回程航班編號3": "CI12345"}}); len(out) != 0 {
		t.Errorf("five-digit flight survived: %#v", out)
	}
}

/*
TestClean_Cola covers the primary supplier: combined leg split on the first
space, dates and years from leg 1 departure, cabin and luggage compaction, and
backfill of key columns, creation time, and KP.
*/
func TestClean_Cola(t *testing.T) {
	t.Parallel()

	in := []records.Record{{
		"去程航班號1":   "BR0087 經濟 艙",
		"去程起飛時間1":  "2025-11-05 19:20:00",
		"回程起飛時間1":  "2025/11/12 08:00",
		"去程行李1":    "25 公斤",
		"回程行李1":    "無",
		"去程行李2":    nil,
		"基礎票價":     9000,
		"稅金":       1000,
		"GDS Type": "1A",
	}}
	now := func() time.Time { return time.Unix(1700000000, 0) }

	out := Cleaner{Now: now}.Clean(ColaProfile(), in)
	if len(out) != 1 {
		t.Fatalf("len(out)=%d; want 1", len(out))
	}
	r := out[0]

	checks := map[string]any{
		"out_flight_number_1":  "BR0087",
		"out_cabin_class_1":    "經濟艙",
		"out_departure_time_1": "2025-11-05 19:20:00",
		"outbound_date":        "11/05",
		"outbound_year":        "2025",
		"return_date":          "11/12",
		"return_year":          "2025",
		"out_luggage_1":        "25公斤",
		"ret_luggage_1":        "",
		"out_luggage_2":        nil,
		"ticket_price":         9000,
		"tax":                  1000,
		"gds_type":             "1A",
		"creation_time":        float64(1700000000),
		"kp":                   "",
	}
	for col, want := range checks {
		if got := r[col]; !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %#v; want %#v", col, got, want)
		}
	}
	for _, col := range fare.JoinKeyColumns() {
		if !r.Has(col) {
			t.Errorf("key column %s not backfilled", col)
		}
	}
	if r["ret_flight_number_1"] != nil {
		t.Errorf("ret_flight_number_1 = %#v; want nil", r["ret_flight_number_1"])
	}
	if r.Has("out_flight_and_cabin_1") {
		t.Errorf("combined column should be removed")
	}
}

/*
TestClean_ColaKeepsExistingMetadata verifies backfill never overwrites a
present creation time or KP.
*/
func TestClean_ColaKeepsExistingMetadata(t *testing.T) {
	t.Parallel()

	in := []records.Record{{"建立時間": 100, "折讓百分比": 0.97, "去程航班編號1": "CI 073"}}
	r := Cleaner{}.Clean(ColaProfile(), in)[0]
	if r["creation_time"] != 100 || r["kp"] != 0.97 {
		t.Fatalf("metadata overwritten: %#v", r)
	}
	// Cola flight numbers are not padded or validated here.
	if r["out_flight_number_1"] != "CI 073" {
		t.Fatalf("out_flight_number_1 = %#v", r["out_flight_number_1"])
	}
}

/*
TestClean_OverseasSplit verifies the Eztravel pair partitions one extract by
the overseas-supplier flag.
*/
func TestClean_OverseasSplit(t *testing.T) {
	t.Parallel()

	in := []records.Record{
		{"海外供應商": false, "票面價格": 1},
		{"海外供應商": true, "票面價格": 2},
		{"票面價格": 3},
		{"海外供應商": "TRUE", "票面價格": 4},
	}
	domestic := Cleaner{}.Clean(EztravelProfile(), in)
	foreign := Cleaner{}.Clean(ForeignSupplierEztravelProfile(), in)

	if len(domestic) != 2 || domestic[0]["eztravel_ticket_air_tickets_price"] != 1 ||
		domestic[1]["eztravel_ticket_air_tickets_price"] != 3 {
		t.Fatalf("domestic = %#v", domestic)
	}
	if len(foreign) != 2 || foreign[0]["foreign_supplier_eztraval_ticket_air_tickets_price"] != 2 ||
		foreign[1]["foreign_supplier_eztraval_ticket_air_tickets_price"] != 4 {
		t.Fatalf("foreign = %#v", foreign)
	}
}

func TestProfileFor(t *testing.T) {
	t.Parallel()

	for _, s := range append([]fare.Supplier{fare.Primary}, fare.Secondaries[:]...) {
		p, err := ProfileFor(s)
		if err != nil || p.Supplier != s {
			t.Errorf("ProfileFor(%s) = %v, %v", s, p.Supplier, err)
		}
	}
	if _, err := ProfileFor(fare.Ezfly); err == nil {
		t.Errorf("ProfileFor(ezfly) should fail")
	}
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewLogger(&logger.Config{Level: logger.InfoLevel, Output: &buf})
	LogSink{Log: log}.InvalidRow(fare.Lion, 4, map[string]string{"out_flight_number_1": "XYZ12"})

	out := buf.String()
	if !strings.Contains(out, "invalid flight number") || !strings.Contains(out, "lion") {
		t.Fatalf("unexpected log output: %q", out)
	}
}
