package domain

import (
	"encoding/json"
	"fmt"
)

// SnapshotBuckets lists the collection names in persistence order. Table
// backed stores keep one JSON payload per bucket.
var SnapshotBuckets = []string{"products", "partners", "invoices", "saleorders"}

// EncodeBuckets marshals each collection separately.
func (s Snapshot) EncodeBuckets() (map[string][]byte, error) {
	s.Normalize()
	out := make(map[string][]byte, len(SnapshotBuckets))
	for _, bucket := range SnapshotBuckets {
		var (
			data []byte
			err  error
		)
		switch bucket {
		case "products":
			data, err = json.Marshal(s.Products)
		case "partners":
			data, err = json.Marshal(s.Partners)
		case "invoices":
			data, err = json.Marshal(s.Invoices)
		case "saleorders":
			data, err = json.Marshal(s.SaleOrders)
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBucket unmarshals one collection payload into the snapshot. Unknown
// bucket names are ignored.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var target any
	switch bucket {
	case "products":
		target = &s.Products
	case "partners":
		target = &s.Partners
	case "invoices":
		target = &s.Invoices
	case "saleorders":
		target = &s.SaleOrders
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
