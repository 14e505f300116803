package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	invoiceID := 1
	s := NewSnapshot()
	s.Products["1"] = ProductRecord{ID: 1, Name: "Widget", Model: "Product", Price: 10, Qty: 3}
	s.Products["2"] = ProductRecord{ID: 2, Name: "Gadget", Model: "Product", Price: 4.25, Qty: 0}
	s.Partners["1"] = PartnerRecord{ID: 1, Name: "Acme", Model: "Partner", Email: "a@acme.test", SaleOrderIDs: []int{1}, InvoiceIDs: []int{1}}
	s.Partners["2"] = PartnerRecord{ID: 2, Name: "Idle", Model: "Partner", Email: "i@idle.test", SaleOrderIDs: []int{}, InvoiceIDs: []int{}}
	s.Invoices["1"] = InvoiceRecord{ID: 1, Name: "INV", Model: "Invoice", CustomerID: 1, State: "draft", Lines: []LineRecord{{ProductID: 1, Qty: 2, UnitPrice: 10}}}
	s.SaleOrders["1"] = SaleOrderRecord{ID: 1, Name: "SO", Model: "SaleOrder", CustomerID: 1, State: "confirmed", InvoiceID: &invoiceID, Lines: []LineRecord{{ProductID: 1, Qty: 2, UnitPrice: 10}}}
	return s
}

func TestSnapshotJSONShape(t *testing.T) {
	raw, err := json.Marshal(sampleSnapshot())
	require.NoError(t, err)

	var generic map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.ElementsMatch(t, []string{"products", "partners", "saleorders", "invoices"}, keys(generic))
	assert.Equal(t, "Product", generic["products"]["1"]["model"])
	assert.Contains(t, generic["saleorders"]["1"], "invoice_id")
	assert.Contains(t, generic["partners"]["2"], "sale_order_ids")

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	if diff := cmp.Diff(sampleSnapshot(), decoded); diff != "" {
		t.Fatalf("snapshot round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotDraftOrderInvoiceIDIsNull(t *testing.T) {
	s := NewSnapshot()
	s.SaleOrders["3"] = SaleOrderRecord{ID: 3, Name: "SO", Model: "SaleOrder", CustomerID: 1, State: "draft"}
	raw, err := json.Marshal(s.SaleOrders["3"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"invoice_id":null`)
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	s := sampleSnapshot()
	c := s.Clone()
	c.Partners["1"].SaleOrderIDs[0] = 99
	*c.SaleOrders["1"].InvoiceID = 99
	c.Invoices["1"].Lines[0].Qty = 99
	delete(c.Products, "1")

	if diff := cmp.Diff(sampleSnapshot(), s); diff != "" {
		t.Fatalf("clone mutated source (-want +got):\n%s", diff)
	}
}

func TestSnapshotHelpers(t *testing.T) {
	s := sampleSnapshot()
	assert.Equal(t, 2, s.MaxID(EntityProduct))
	assert.Equal(t, 0, NewSnapshot().MaxID(EntityInvoice))

	dangling := 4
	s.SaleOrders["1"] = SaleOrderRecord{ID: 1, Name: "SO", Model: "SaleOrder", CustomerID: 1, State: "confirmed", InvoiceID: &dangling}
	s.Partners["2"] = PartnerRecord{ID: 2, Name: "Idle", Model: "Partner", Email: "i@idle.test", SaleOrderIDs: []int{6}, InvoiceIDs: []int{3}}
	assert.Equal(t, 4, s.MaxID(EntityInvoice))
	assert.Equal(t, 6, s.MaxID(EntitySaleOrder))
	s.SaleOrders["1"] = sampleSnapshot().SaleOrders["1"]
	s.Partners["2"] = sampleSnapshot().Partners["2"]
	assert.Equal(t, []int{1, 2}, s.IDs(EntityPartner))
	assert.True(t, s.Has(EntityInvoice, 1))
	assert.False(t, s.Has(EntityInvoice, 2))

	kind, id, ok := s.ReferenceTo(EntityProduct, 1)
	require.True(t, ok)
	assert.Equal(t, EntitySaleOrder, kind)
	assert.Equal(t, 1, id)
	_, _, ok = s.ReferenceTo(EntityProduct, 2)
	assert.False(t, ok)
	kind, _, ok = s.ReferenceTo(EntityInvoice, 1)
	require.True(t, ok)
	assert.Equal(t, EntitySaleOrder, kind)
	_, _, ok = s.ReferenceTo(EntityPartner, 2)
	assert.False(t, ok)

	assert.True(t, s.Remove(EntityProduct, 2))
	assert.False(t, s.Remove(EntityProduct, 2))
	assert.Equal(t, 1, s.Counts()[EntityProduct])
}

func TestSnapshotNormalize(t *testing.T) {
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"products":{}}`), &s))
	s.Normalize()
	assert.NotNil(t, s.Partners)
	assert.NotNil(t, s.SaleOrders)
	assert.NotNil(t, s.Invoices)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
