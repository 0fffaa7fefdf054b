package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/restock"
)

// Import line outcomes.
const (
	ImportApplied      = "applied"
	ImportMatched      = "matched"
	ImportAmbiguous    = "ambiguous"
	ImportUnmatched    = "unmatched"
	ImportUnitMismatch = "unit_mismatch"
)

type ImportLine struct {
	Raw          string          `json:"raw"`
	Status       string          `json:"status"`
	IngredientID *uuid.UUID      `json:"ingredient_id,omitempty"`
	Ingredient   string          `json:"ingredient,omitempty"`
	Qty          decimal.Decimal `json:"qty"`
	Unit         string          `json:"unit"`
	Cost         int64           `json:"cost"`
	Candidates   []string        `json:"candidates,omitempty"`
	LogID        *uuid.UUID      `json:"log_id,omitempty"`
}

type ImportResult struct {
	Date    *time.Time   `json:"date,omitempty"`
	DryRun  bool         `json:"dry_run"`
	Lines   []ImportLine `json:"lines"`
	Skipped []string     `json:"skipped"`
	Applied int          `json:"applied"`
}

// ImportPurchaseNote books a pasted supplier note as IN movements. Lines that
// resolve to exactly one ingredient in a compatible unit are applied together;
// the rest are reported back untouched. A dry run only reports.
func (s *InventoryService) ImportPurchaseNote(ctx context.Context, text string, dryRun bool) (*ImportResult, error) {
	note, err := restock.ParseNote(text, s.now())
	if err != nil {
		return nil, err
	}

	ings, err := s.store.ListIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	cands := make([]restock.Candidate, len(ings))
	for i, ing := range ings {
		cands[i] = restock.Candidate{ID: ing.ID, Name: ing.Name, Unit: ing.Unit}
	}
	matcher := restock.NewMatcher(cands)

	res := &ImportResult{DryRun: dryRun, Lines: make([]ImportLine, 0, len(note.Lines)), Skipped: note.Skipped}
	if res.Skipped == nil {
		res.Skipped = []string{}
	}
	if !note.Date.IsZero() {
		res.Date = &note.Date
	}

	for _, l := range note.Lines {
		line := ImportLine{Raw: l.Raw, Qty: l.Qty, Unit: l.Unit, Cost: l.Cost}
		m := matcher.Match(l.Description)
		switch m.Status {
		case restock.Unmatched:
			line.Status = ImportUnmatched
		case restock.Ambiguous:
			line.Status = ImportAmbiguous
			for _, c := range m.Candidates {
				line.Candidates = append(line.Candidates, c.Name)
			}
		case restock.Matched:
			id := m.Candidate.ID
			line.IngredientID = &id
			line.Ingredient = m.Candidate.Name
			qty, ok := restock.Convert(l.Qty, l.Unit, m.Candidate.Unit)
			if !ok {
				line.Status = ImportUnitMismatch
				break
			}
			line.Status = ImportMatched
			line.Qty = qty
			line.Unit = m.Candidate.Unit
		}
		res.Lines = append(res.Lines, line)
	}

	if dryRun {
		return res, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	prefix := "Purchase"
	if res.Date != nil {
		prefix += " " + res.Date.Format("2006-01-02")
	}
	for i := range res.Lines {
		line := &res.Lines[i]
		if line.Status != ImportMatched {
			continue
		}
		if _, err := store.AdjustIngredientStock(ctx, *line.IngredientID, database.DecimalToNumeric(line.Qty)); err != nil {
			return nil, fmt.Errorf("ingredient %s: %w", line.Ingredient, notFound(err, ErrIngredientNotFound))
		}
		log, err := store.CreateStockLog(ctx, database.CreateStockLogParams{
			IngredientID: *line.IngredientID,
			Type:         database.StockLogTypeIN,
			Qty:          database.DecimalToNumeric(line.Qty),
			Notes:        optText(prefix + ": " + line.Raw),
		})
		if err != nil {
			return nil, fmt.Errorf("create stock log: %w", err)
		}
		line.Status = ImportApplied
		line.LogID = &log.ID
		res.Applied++
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return res, nil
}
