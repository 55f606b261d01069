package report

import (
	"errors"
	"math"
	"testing"
)

func amount(v float64) Amount {
	return Amount{Float64: v, Valid: true}
}

func TestToFloat(t *testing.T) {
	cases := []struct {
		name string
		in   any
		out  float64
		ok   bool
	}{
		{"int", 10, 10.0, true},
		{"int64", int64(-3), -3.0, true},
		{"float64", 3.5, 3.5, true},
		{"numeric text", "3.14", 3.14, true},
		{"numeric bytes", []byte("120.50"), 120.5, true},
		{"padded text", " 7 ", 7.0, true},
		{"nil", nil, 0, false},
		{"nan", math.NaN(), 0, false},
		{"inf", math.Inf(1), 0, false},
		{"neg inf", math.Inf(-1), 0, false},
		{"nan text", "NaN", 0, false},
		{"inf text", "Inf", 0, false},
		{"garbage", "not-a-number", 0, false},
		{"unsupported type", struct{}{}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, ok := ToFloat(tc.in)
			if ok != tc.ok || f != tc.out {
				t.Fatalf("ToFloat(%v) = (%v, %v), want (%v, %v)", tc.in, f, ok, tc.out, tc.ok)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				t.Fatalf("ToFloat(%v) leaked a non-finite value %v", tc.in, f)
			}
		})
	}
}

func TestAmountScanNeverFails(t *testing.T) {
	var a Amount
	if err := a.Scan("garbage"); err != nil {
		t.Fatalf("Scan must swallow bad values, got %v", err)
	}
	if a.Valid {
		t.Fatal("garbage must scan as invalid")
	}
	if err := a.Scan([]byte("41.5")); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	if !a.Valid || a.Float64 != 41.5 {
		t.Fatalf("expected valid 41.5, got %+v", a)
	}
}

func TestAggregateItemsGroupsAndSums(t *testing.T) {
	rows := []PlanFactRow{
		{SmetaCode: "лето", WorkName: "Ямочный ремонт", Planned: amount(100), Fact: amount(90)},
		{SmetaCode: "лето", WorkName: "Ямочный ремонт", Planned: amount(20), Fact: amount(5)},
		{SmetaCode: "зима", WorkName: "Уборка снега", Planned: amount(50), Fact: amount(40)},
	}

	items, err := AggregateItems(newSliceSource(rows))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(items), items)
	}

	first := items[0]
	if first.Smeta != "лето" || first.WorkName != "Ямочный ремонт" {
		t.Fatalf("unexpected first group: %+v", first)
	}
	if first.Planned.Or(-1) != 120 || first.Fact.Or(-1) != 95 {
		t.Fatalf("expected planned=120 fact=95, got %+v", first)
	}
	if first.Delta != -25 {
		t.Fatalf("expected delta=-25, got %v", first.Delta)
	}
}

func TestAggregateItemsOffSchedulePlannedForcedZero(t *testing.T) {
	rows := []PlanFactRow{
		{SmetaCode: "внерегл_ч_1", WorkName: "Аварийный выезд", Planned: amount(999), Fact: amount(10)},
		{SmetaCode: "внерегл_ч_2", WorkName: "Аварийный выезд", Planned: amount(500), Fact: amount(7)},
	}

	items, err := AggregateItems(newSliceSource(rows))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, item := range items {
		if !item.Planned.Valid || item.Planned.Float64 != 0.0 {
			t.Fatalf("off-schedule planned must be exactly 0.0, got %+v", item)
		}
		if !item.Fact.Valid {
			t.Fatalf("off-schedule fact must be retained, got %+v", item)
		}
	}
	if items[0].Fact.Float64 != 10 || items[1].Fact.Float64 != 7 {
		t.Fatalf("fact amounts must accumulate per group: %+v", items)
	}
}

func TestAggregateItemsInvalidValuesAreSkipped(t *testing.T) {
	rows := []PlanFactRow{
		{SmetaCode: "лето", WorkName: "Разметка", Planned: amount(100), Fact: amount(90)},
		// invalid values must not zero out what is already accumulated
		{SmetaCode: "лето", WorkName: "Разметка", Planned: Amount{}, Fact: Amount{}},
	}

	items, err := AggregateItems(newSliceSource(rows))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one group, got %+v", items)
	}
	if items[0].Planned.Or(-1) != 100 || items[0].Fact.Or(-1) != 90 {
		t.Fatalf("invalid values must be skipped, got %+v", items[0])
	}
}

func TestAggregateItemsNoContributionStaysAbsent(t *testing.T) {
	rows := []PlanFactRow{
		{SmetaCode: "лето", WorkName: "Разметка", Planned: Amount{}, Fact: amount(10)},
	}
	items, err := AggregateItems(newSliceSource(rows))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].Planned.Valid {
		t.Fatalf("planned with no contributions must stay absent, got %+v", items[0])
	}
	if items[0].Planned.Ptr() != nil {
		t.Fatal("absent planned must serialize as nil")
	}
}

func TestAggregateItemsDescriptionFallback(t *testing.T) {
	cases := []struct {
		name string
		row  PlanFactRow
		want string
	}{
		{"work name wins", PlanFactRow{SmetaCode: "лето", WorkName: "Ремонт", Unit: "м2"}, "Ремонт"},
		{"unit fallback", PlanFactRow{SmetaCode: "лето", Unit: "м2"}, "м2"},
		{"untitled fallback", PlanFactRow{SmetaCode: "лето"}, UntitledWork},
		{"blank name falls through", PlanFactRow{SmetaCode: "лето", WorkName: "   ", Unit: " "}, UntitledWork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := AggregateItems(newSliceSource([]PlanFactRow{tc.row}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if items[0].WorkName != tc.want {
				t.Fatalf("expected description %q, got %q", tc.want, items[0].WorkName)
			}
		})
	}
}

func TestAggregateItemsInsertionOrder(t *testing.T) {
	rows := []PlanFactRow{
		{SmetaCode: "зима", WorkName: "Я-последняя-по-алфавиту", Fact: amount(1)},
		{SmetaCode: "лето", WorkName: "А-первая-по-алфавиту", Fact: amount(2)},
		{SmetaCode: "зима", WorkName: "Я-последняя-по-алфавиту", Fact: amount(3)},
	}
	items, err := AggregateItems(newSliceSource(rows))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].WorkName != "Я-последняя-по-алфавиту" || items[1].WorkName != "А-первая-по-алфавиту" {
		t.Fatalf("items must keep group discovery order, got %+v", items)
	}
}

type failingSource struct {
	rows []PlanFactRow
	next int
	err  error
}

func (s *failingSource) Next() (PlanFactRow, bool) {
	if s.next >= len(s.rows) {
		return PlanFactRow{}, false
	}
	row := s.rows[s.next]
	s.next++
	return row, true
}

func (s *failingSource) Err() error { return s.err }

func TestAggregateItemsPropagatesSourceError(t *testing.T) {
	wantErr := errors.New("cursor lost")
	src := &failingSource{
		rows: []PlanFactRow{{SmetaCode: "лето", WorkName: "Ремонт", Fact: amount(1)}},
		err:  wantErr,
	}
	if _, err := AggregateItems(src); !errors.Is(err, wantErr) {
		t.Fatalf("expected source error, got %v", err)
	}
}
