package services

import (
	"fmt"
	"strconv"
	"strings"

	"backend/models"
)

// Lowest-offer aggregation across submitted supplier responses. For each
// line item of each commercial table the baseline is the minimum numeric
// unit price among all suppliers who quoted it; suppliers who left the
// price blank or non-numeric do not participate for that item.

type supplierDocument struct {
	SupplierID   string
	SupplierName string
	Sections     []models.Section
}

// LowestOffers computes the per-item baseline across all given supplier
// quote requests. supplierNames maps supplier id to display name and may be
// sparse. Items keep their first-seen order.
func LowestOffers(requests []models.SupplierQuoteRequest, supplierNames map[string]string) []models.LineItemBaseline {
	docs := make([]supplierDocument, 0, len(requests))
	for _, req := range requests {
		docs = append(docs, supplierDocument{
			SupplierID:   req.SupplierID,
			SupplierName: supplierNames[req.SupplierID],
			Sections:     req.Sections,
		})
	}

	type itemKey struct {
		tableID string
		rowKey  string
	}
	baselines := make(map[itemKey]*models.LineItemBaseline)
	order := make([]itemKey, 0)

	for _, doc := range docs {
		for _, sec := range doc.Sections {
			if sec.Type != "commercialTable" {
				continue
			}
			for _, table := range sec.Tables {
				priceKey, descKey := commercialAccessors(table)
				if priceKey == "" {
					continue
				}
				for i, row := range table.Data {
					rowKey := row.RowID()
					if rowKey == "" {
						// rows without stable ids line up positionally
						rowKey = fmt.Sprintf("#%d", i)
					}
					price, ok := parsePrice(row.StringValue(priceKey))
					if !ok {
						continue
					}
					key := itemKey{table.ID, rowKey}
					b, seen := baselines[key]
					if !seen {
						b = &models.LineItemBaseline{
							TableID:     table.ID,
							RowID:       rowKey,
							Description: row.StringValue(descKey),
						}
						baselines[key] = b
						order = append(order, key)
					}
					b.Offers++
					if b.Offers == 1 || price < b.BestPrice {
						b.BestPrice = price
						b.SupplierID = doc.SupplierID
						b.SupplierName = doc.SupplierName
					}
				}
			}
		}
	}

	out := make([]models.LineItemBaseline, 0, len(order))
	for _, key := range order {
		out = append(out, *baselines[key])
	}
	return out
}

// commercialAccessors finds the unit price and description accessors of a
// commercial table by column header, falling back to the conventional keys.
func commercialAccessors(table models.Table) (priceKey, descKey string) {
	for _, col := range table.Columns {
		switch strings.ToLower(strings.TrimSpace(col.Header)) {
		case "unit price", "price":
			priceKey = col.AccessorKey
		case "description", "item":
			descKey = col.AccessorKey
		}
	}
	if priceKey == "" {
		priceKey = "unitPrice"
	}
	if descKey == "" {
		descKey = "description"
	}
	return priceKey, descKey
}

// parsePrice accepts plain numbers plus the thousands separators and
// currency prefixes suppliers tend to type into unlocked cells.
func parsePrice(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.TrimLeft(s, "$€£₹ ")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
