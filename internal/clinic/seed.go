package clinic

import (
	"context"
	"fmt"

	"studio/internal/core"
	"studio/internal/log"
)

type priceSeed struct {
	name, description, category string
	euros                       int64
}

var defaultPrices = []priceSeed{
	{"Pulizia dentale", "Igiene professionale", "Igiene", 80},
	{"Otturazione", "Otturazione in composito", "Conservativa", 120},
	{"Estrazione", "Estrazione semplice", "Chirurgia", 100},
	{"Visita di controllo", "Controllo generale", "Visite", 50},
	{"Sbiancamento", "Sbiancamento professionale", "Estetica", 300},
}

// DefaultPrices returns the demo treatment catalog with fresh ids
func (r *Repository) DefaultPrices() []core.TreatmentPrice {
	out := make([]core.TreatmentPrice, len(defaultPrices))
	for i, s := range defaultPrices {
		out[i] = core.TreatmentPrice{
			ID:           r.NewID(),
			Name:         s.name,
			Description:  s.description,
			Category:     s.category,
			DefaultPrice: core.Euro(s.euros),
		}
	}
	return out
}

// Seed installs the demo price catalog on an empty practice: no patients and
// no prices. Otherwise it does nothing. It reports whether it wrote.
func (r *Repository) Seed(ctx context.Context) (bool, error) {
	n, err := r.Patients.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count patients: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	n, err = r.Prices.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count treatment prices: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if err := r.Prices.Replace(ctx, r.DefaultPrices()); err != nil {
		return false, fmt.Errorf("seed treatment prices: %w", err)
	}
	r.logger.InfoContext(ctx, "Demo data initialized",
		log.FieldOperation, log.OpSeed, log.FieldCount, len(defaultPrices))
	return true, nil
}
