package catalog

import (
	"context"
	"errors"

	"github.com/sari-pos/sari-pos/internal/pos"
)

// SnapshotByID resolves a product for cart entry by primary key.
func (s *Service) SnapshotByID(ctx context.Context, id int64) (pos.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return pos.Product{}, snapshotErr(err)
	}
	return product.Snapshot(), nil
}

// SnapshotByBarcode resolves a product for cart entry by barcode scan.
func (s *Service) SnapshotByBarcode(ctx context.Context, barcode string) (pos.Product, error) {
	product, err := s.Lookup(ctx, barcode)
	if err != nil {
		return pos.Product{}, snapshotErr(err)
	}
	return product.Snapshot(), nil
}

func snapshotErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return pos.ErrProductUnavailable
	}
	return err
}
