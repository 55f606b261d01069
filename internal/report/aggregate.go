package report

import "skpdi/internal/category"

// Item is the per-(smeta, work line) rollup shown in the dashboard table.
type Item struct {
	Smeta    string
	WorkName string
	Planned  Amount
	Fact     Amount
	Delta    float64
}

type itemAccum struct {
	smeta   string
	work    string
	planned Amount
	fact    Amount
}

type itemKey struct {
	smeta string
	work  string
}

// AggregateItems folds a row sequence into per-work-line items in a single
// pass, without materializing the source.
//
// Grouping key is (raw smeta code, resolved description). Planned amounts
// are accumulated unless the row belongs to an off-schedule merge code —
// those contribute zero planned by policy while their fact amounts still
// count. Emitted items keep group discovery order; off-schedule groups
// always report planned = 0.0 regardless of what the rows carried.
func AggregateItems(src RowSource) ([]Item, error) {
	groups := make(map[itemKey]*itemAccum)
	var order []*itemAccum

	for {
		row, ok := src.Next()
		if !ok {
			break
		}

		key := itemKey{smeta: row.SmetaCode, work: row.Description()}
		acc := groups[key]
		if acc == nil {
			acc = &itemAccum{smeta: row.SmetaCode, work: key.work}
			groups[key] = acc
			order = append(order, acc)
		}

		// Amounts were already coerced on scan; invalid values are
		// skipped here, never folded in as zero.
		if row.Planned.Valid && !category.IsMergeSource(row.SmetaCode) {
			acc.planned.add(row.Planned.Float64)
		}
		if row.Fact.Valid {
			acc.fact.add(row.Fact.Float64)
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(order))
	for _, acc := range order {
		planned := acc.planned
		if category.IsMergeSource(acc.smeta) {
			planned = Amount{Float64: 0, Valid: true}
		}
		items = append(items, Item{
			Smeta:    acc.smeta,
			WorkName: acc.work,
			Planned:  planned,
			Fact:     acc.fact,
			Delta:    acc.fact.Or(0) - planned.Or(0),
		})
	}
	return items, nil
}
