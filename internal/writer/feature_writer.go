package writer

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/storage"
)

// FeatureWriter fans feature rows out to one batcher per table.
// Partial failure stays isolated: a dropped price batch never blocks
// volume, microstructure or technical writes.
type FeatureWriter struct {
	price          *Batcher[*domain.PriceFeatureRow]
	volume         *Batcher[*domain.VolumeFeatureRow]
	microstructure *Batcher[*domain.MicrostructureFeatureRow]
	technical      *Batcher[*domain.TechnicalFeatureRow]
}

// NewFeatureWriter creates a writer over the given feature store.
func NewFeatureWriter(store storage.FeatureStore, opts Options, log zerolog.Logger) *FeatureWriter {
	return &FeatureWriter{
		price: NewBatcher(domain.TablePriceFeatures, opts, log,
			store.UpsertPriceFeatures),
		volume: NewBatcher(domain.TableVolumeFeatures, opts, log,
			store.UpsertVolumeFeatures),
		microstructure: NewBatcher(domain.TableMicrostructureFeatures, opts, log,
			store.UpsertMicrostructureFeatures),
		technical: NewBatcher(domain.TableTechnicalFeatures, opts, log,
			store.UpsertTechnicalFeatures),
	}
}

// WritePrice buffers a price feature row. Nil rows are ignored.
func (w *FeatureWriter) WritePrice(ctx context.Context, row *domain.PriceFeatureRow) error {
	if row == nil {
		return nil
	}
	return w.price.Add(ctx, row)
}

// WriteVolume buffers a volume feature row. Nil rows are ignored.
func (w *FeatureWriter) WriteVolume(ctx context.Context, row *domain.VolumeFeatureRow) error {
	if row == nil {
		return nil
	}
	return w.volume.Add(ctx, row)
}

// WriteMicrostructure buffers a microstructure feature row. Nil rows
// are ignored.
func (w *FeatureWriter) WriteMicrostructure(ctx context.Context, row *domain.MicrostructureFeatureRow) error {
	if row == nil {
		return nil
	}
	return w.microstructure.Add(ctx, row)
}

// WriteTechnical buffers a technical feature row. Nil rows are ignored.
func (w *FeatureWriter) WriteTechnical(ctx context.Context, row *domain.TechnicalFeatureRow) error {
	if row == nil {
		return nil
	}
	return w.technical.Add(ctx, row)
}

// Flush drains all four batchers. Every batcher gets a flush attempt
// even if an earlier one fails.
func (w *FeatureWriter) Flush(ctx context.Context) error {
	return errors.Join(
		w.price.Flush(ctx),
		w.volume.Flush(ctx),
		w.microstructure.Flush(ctx),
		w.technical.Flush(ctx),
	)
}

// Pending reports the total number of buffered rows across tables.
func (w *FeatureWriter) Pending() int {
	return w.price.Pending() +
		w.volume.Pending() +
		w.microstructure.Pending() +
		w.technical.Pending()
}
