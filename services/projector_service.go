package services

import (
	"fmt"

	"backend/models"
)

// Projection of a template document into the supplier-facing view.
//
// The rules, applied at every level of the tree:
//   - a node with VisibleToSupplier == false is dropped along with its whole
//     subtree, no matter what its descendants say;
//   - a surviving node is copied with VisibleToSupplier forced true;
//   - EditableBySupplier passes through as given;
//   - field values resolve as defaultValue, then value, then "".
//
// The transform is pure and idempotent: projecting an already projected
// document returns it unchanged.

// ProjectSections produces the supplier-visible copy of a template tree.
func ProjectSections(src []models.Section) []models.Section {
	out := make([]models.Section, 0, len(src))
	for _, sec := range src {
		if !sec.VisibleToSupplier {
			continue
		}
		out = append(out, projectSection(sec))
	}
	return out
}

func projectSection(src models.Section) models.Section {
	out := models.Section{
		ID:                 src.ID,
		Title:              src.Title,
		Type:               src.Type,
		Content:            src.Content,
		VisibleToSupplier:  true,
		EditableBySupplier: src.EditableBySupplier,
		Fields:             projectFields(src.Fields),
		Tables:             projectTables(src.Tables),
		Subsections:        []models.Subsection{},
	}
	for _, sub := range src.Subsections {
		if !sub.VisibleToSupplier {
			continue
		}
		out.Subsections = append(out.Subsections, projectSubsection(sub))
	}
	return out
}

func projectSubsection(src models.Subsection) models.Subsection {
	return models.Subsection{
		ID:                 src.ID,
		Title:              src.Title,
		Type:               src.Type,
		Content:            src.Content,
		VisibleToSupplier:  true,
		EditableBySupplier: src.EditableBySupplier,
		Fields:             projectFields(src.Fields),
		Tables:             projectTables(src.Tables),
	}
}

func projectFields(src []models.Field) []models.Field {
	out := make([]models.Field, 0, len(src))
	for _, f := range src {
		if !f.VisibleToSupplier {
			continue
		}
		p := f
		p.VisibleToSupplier = true
		p.Value = resolveFieldValue(f)
		p.DefaultValue = nil
		out = append(out, p)
	}
	return out
}

func resolveFieldValue(f models.Field) interface{} {
	if f.DefaultValue != nil {
		return f.DefaultValue
	}
	if f.Value != nil {
		return f.Value
	}
	return ""
}

func projectTables(src []models.Table) []models.Table {
	out := make([]models.Table, 0, len(src))
	for _, t := range src {
		if !t.VisibleToSupplier {
			continue
		}
		p := t.Clone()
		p.VisibleToSupplier = true
		cols := make([]models.Column, 0, len(t.Columns))
		for _, c := range t.Columns {
			if !c.VisibleToSupplier {
				continue
			}
			pc := c
			pc.VisibleToSupplier = true
			cols = append(cols, pc)
		}
		p.Columns = cols
		// Row data passes through as-is; only column visibility is pruned.
		out = append(out, p)
	}
	return out
}

// Fixed layouts used when an RFQ has no template. The synthesized document
// has the same Section/Field/Table shape as a projected template, so the
// serializer and parser treat both identically.

// SynthesizeSupplierDocument builds the supplier document for an ad hoc RFQ
// from raw business objects. A required Quote Summary section is always
// appended.
func SynthesizeSupplierDocument(input models.AdHocRFQInput) []models.Section {
	sections := []models.Section{generalDetailsSection(input.GeneralInfo)}

	if input.ScopeOfWork != "" {
		sections = append(sections, models.Section{
			ID:                "sec-sow",
			Title:             "Scope of Work",
			Type:              "sow",
			Content:           input.ScopeOfWork,
			Fields:            []models.Field{},
			Subsections:       []models.Subsection{},
			Tables:            []models.Table{},
			VisibleToSupplier: true,
		})
	}

	for i, q := range input.Questionnaires {
		sections = append(sections, questionnaireSection(q, i))
	}
	for i, g := range input.ItemGroups {
		sections = append(sections, commercialItemsSection(g, i))
	}

	if input.TermsText != "" {
		sections = append(sections, models.Section{
			ID:                "sec-terms",
			Title:             "Terms and Conditions",
			Type:              "sow",
			Content:           input.TermsText,
			Fields:            []models.Field{},
			Subsections:       []models.Subsection{},
			Tables:            []models.Table{},
			VisibleToSupplier: true,
		})
	}

	sections = append(sections, QuoteSummarySection())
	return sections
}

func generalDetailsSection(info map[string]string) models.Section {
	keys := []struct{ id, label string }{
		{"rfq_number", "RFQ Number"},
		{"rfq_title", "RFQ Title"},
		{"buyer_name", "Buyer Organization"},
		{"due_date", "Response Due Date"},
		{"delivery_location", "Delivery Location"},
		{"payment_terms", "Payment Terms"},
	}
	fields := make([]models.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, models.Field{
			ID:                k.id,
			Label:             k.label,
			Type:              "text",
			Value:             info[k.id],
			VisibleToSupplier: true,
		})
	}
	return models.Section{
		ID:                "sec-general",
		Title:             "General Details",
		Type:              "form",
		Fields:            fields,
		Subsections:       []models.Subsection{},
		Tables:            []models.Table{},
		VisibleToSupplier: true,
	}
}

func questionnaireSection(group models.QuestionnaireGroup, index int) models.Section {
	rows := make([]models.RowRecord, 0, len(group.Questions))
	for _, q := range group.Questions {
		row := models.RowRecord{
			"id":       q.ID,
			"question": q.Question,
			"response": q.Response,
			"remarks":  q.Remarks,
		}
		if len(q.Options) > 0 {
			row["options"] = q.Options
		}
		rows = append(rows, row)
	}
	table := models.Table{
		ID:    fmt.Sprintf("tbl-questionnaire-%d", index+1),
		Title: group.Title,
		Columns: []models.Column{
			{ID: "col-question", Header: "Question", AccessorKey: "question", Type: "text", VisibleToSupplier: true},
			{ID: "col-response", Header: "Response", AccessorKey: "response", Type: "select", VisibleToSupplier: true, EditableBySupplier: true},
			{ID: "col-remarks", Header: "Remarks", AccessorKey: "remarks", Type: "text", VisibleToSupplier: true, EditableBySupplier: true},
		},
		Data:              rows,
		VisibleToSupplier: true,
	}
	id := group.ID
	if id == "" {
		id = fmt.Sprintf("sec-questionnaire-%d", index+1)
	}
	return models.Section{
		ID:                id,
		Title:             group.Title,
		Type:              "questionnaire",
		Fields:            []models.Field{},
		Subsections:       []models.Subsection{},
		Tables:            []models.Table{table},
		VisibleToSupplier: true,
	}
}

func commercialItemsSection(group models.CommercialItemGroup, index int) models.Section {
	rows := make([]models.RowRecord, 0, len(group.Items))
	for _, item := range group.Items {
		rows = append(rows, models.RowRecord{
			"id":          item.ID,
			"description": item.Description,
			"quantity":    item.Quantity,
			"unit":        item.Unit,
			"unitPrice":   item.UnitPrice,
			"comments":    item.Comments,
		})
	}
	table := models.Table{
		ID:    fmt.Sprintf("tbl-items-%d", index+1),
		Title: group.Title,
		Columns: []models.Column{
			{ID: "col-description", Header: "Description", AccessorKey: "description", Type: "text", VisibleToSupplier: true},
			{ID: "col-quantity", Header: "Quantity", AccessorKey: "quantity", Type: "number", VisibleToSupplier: true, EditableBySupplier: true},
			{ID: "col-unit", Header: "Unit", AccessorKey: "unit", Type: "text", VisibleToSupplier: true},
			{ID: "col-unit-price", Header: "Unit Price", AccessorKey: "unitPrice", Type: "number", VisibleToSupplier: true, EditableBySupplier: true},
			{ID: "col-comments", Header: "Comments", AccessorKey: "comments", Type: "text", VisibleToSupplier: true, EditableBySupplier: true},
		},
		Data:              rows,
		VisibleToSupplier: true,
	}
	id := group.ID
	if id == "" {
		id = fmt.Sprintf("sec-items-%d", index+1)
	}
	return models.Section{
		ID:                id,
		Title:             group.Title,
		Type:              "commercialTable",
		Fields:            []models.Field{},
		Subsections:       []models.Subsection{},
		Tables:            []models.Table{table},
		VisibleToSupplier: true,
	}
}

// QuoteSummarySection is the required closing section of every supplier
// document: totals, currency, delivery and validity commitments.
func QuoteSummarySection() models.Section {
	return models.Section{
		ID:    "sec-quote-summary",
		Title: "Quote Summary",
		Type:  "form",
		Fields: []models.Field{
			{ID: "total_quote_value", Label: "Total Quote Value", Type: "number", Value: "", Required: true, VisibleToSupplier: true, EditableBySupplier: true},
			{ID: "currency", Label: "Currency", Type: "select", Value: "", Options: []string{"USD", "EUR", "GBP", "INR", "CNY", "JPY"}, Required: true, VisibleToSupplier: true, EditableBySupplier: true},
			{ID: "delivery_time", Label: "Delivery Time (days)", Type: "number", Value: "", Required: true, VisibleToSupplier: true, EditableBySupplier: true},
			{ID: "quote_validity", Label: "Quote Validity (days)", Type: "number", Value: "", Required: true, VisibleToSupplier: true, EditableBySupplier: true},
			{ID: "summary_comments", Label: "Comments", Type: "textarea", Value: "", VisibleToSupplier: true, EditableBySupplier: true},
		},
		Subsections:       []models.Subsection{},
		Tables:            []models.Table{},
		VisibleToSupplier: true,
	}
}
