// Package pipeline orchestrates a region export: it extends a region-wide
// store from a commodity store and a set of connected-realm auction stores,
// then drives internal/export once per row template (§4.8, §6), mirroring
// original_source/ah/tsm_exporter.py::TSMExporter.export_region.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"auctiondb-engine/internal/export"
	"auctiondb-engine/internal/logger"
	"auctiondb-engine/internal/meta"
	"auctiondb-engine/internal/metrics"
	"auctiondb-engine/internal/store"
)

// TSMVersion is the app-data version advertised in the trailing APP_INFO
// row, matching TSMExporter.TSM_VERSION.
const TSMVersion = "41200"

// FieldSpec is one export row template: the record label plus the ordered
// field list rendered into it (§6 TEMPLATE_ROW, TSMExporter's per-export
// class dicts).
type FieldSpec struct {
	Type       string
	Fields     []string
	PerFaction bool
}

// Row templates, grounded field-for-field on TSMExporter's REALM_AUCTIONS_EXPORT,
// REALM_AUCTIONS_COMMODITIES_EXPORTS, COMMODITIES_EXPORT and
// REGION_AUCTIONS_COMMODITIES_EXPORTS class attributes.
var (
	RealmAuctionsExport = FieldSpec{
		Type:       export.RealmData,
		Fields:     []string{export.FieldItemString, export.FieldMinBuyout, export.FieldNumAuctions, export.FieldMarketValueRecent},
		PerFaction: true,
	}
	RealmAuctionsCommoditiesExports = []FieldSpec{
		{Type: export.RealmHistorical, Fields: []string{export.FieldItemString, export.FieldHistorical}, PerFaction: true},
		{Type: export.RealmScanStat, Fields: []string{export.FieldItemString, export.FieldMarketValue}, PerFaction: true},
	}
	CommoditiesExport = FieldSpec{
		Type:   export.RegionCommodity,
		Fields: []string{export.FieldItemString, export.FieldMinBuyout, export.FieldNumAuctions, export.FieldMarketValueRecent},
	}
	RegionAuctionsCommoditiesExports = []FieldSpec{
		{Type: export.RegionStat, Fields: []string{export.FieldItemString, export.FieldRegionMarketValue}},
		{Type: export.RegionHistoricalL, Fields: []string{export.FieldItemString, export.FieldRegionHistorical}},
	}
)

// ConnectedRealm is one connected-realm group's auction data, keyed by
// faction name ("" when the game version has no factions, e.g. retail).
type ConnectedRealm struct {
	ID       int
	Auctions map[string]*store.Store
}

// Input gathers everything one export_region run needs: the persisted
// window/connected-realm metadata, an optional region-wide commodity
// store, and one auction store per connected realm/faction.
type Input struct {
	Window          meta.Window
	CommodityData   *store.Store // nil when the game version carries no commodities
	ConnectedRealms []ConnectedRealm
	Region          string
	// TSMRegionLabel overrides Region in the region-wide row templates
	// when the add-on expects a different label (e.g. a game-version
	// prefix); defaults to Region when empty.
	TSMRegionLabel string
}

// Result totals the rows and items a Run call produced.
type Result struct {
	RowsWritten  int
	ItemsWritten int
	ItemsSkipped int
}

func (r *Result) absorb(row string, res export.Result, w io.Writer) error {
	if _, err := io.WriteString(w, row); err != nil {
		return err
	}
	r.RowsWritten++
	r.ItemsWritten += res.ItemsWritten
	r.ItemsSkipped += res.ItemsSkipped
	metrics.ExportRowsWritten.Add(float64(res.ItemsWritten))
	metrics.ExportItemsSkipped.Add(float64(res.ItemsSkipped))
	return nil
}

// Run drives one export_region pass: validate the requested realms against
// the window's connected-realm map, extend the region aggregate, render
// every applicable row template in turn, and finish with the trailing
// APP_INFO row (§4.9, §6.1).
func Run(ctx context.Context, w io.Writer, in Input, exportRealms []string, concurrency int) (Result, error) {
	runID := uuid.New().String()
	logger.Info("PIPELINE", fmt.Sprintf("run %s: export region %s for realms %v", runID, in.Region, exportRealms))

	if err := in.Window.ValidateRealmSet(exportRealms); err != nil {
		return Result{}, err
	}
	wantRealm := make(map[string]bool, len(exportRealms))
	for _, r := range exportRealms {
		wantRealm[r] = true
	}

	var result Result
	tBegin, tEnd := in.Window.StartTS, in.Window.EndTS
	regionData := store.New()

	if in.CommodityData != nil {
		regionData.Extend(in.CommodityData, false)
		row, res, err := export.Render(ctx, in.CommodityData.Entries(), CommoditiesExport.Fields,
			CommoditiesExport.Type, in.Region, tBegin, tEnd, tBegin, concurrency)
		if err != nil {
			return result, err
		}
		if err := result.absorb(row, res, w); err != nil {
			return result, err
		}
	}

	for _, cr := range in.ConnectedRealms {
		crRealms := in.Window.ConnectedRealms[cr.ID]
		var subRealms []string
		for _, name := range crRealms {
			if wantRealm[name] {
				subRealms = append(subRealms, name)
			}
		}

		for faction, auctionData := range cr.Auctions {
			if auctionData == nil || auctionData.Len() == 0 {
				logger.Warn("PIPELINE", fmt.Sprintf("run %s: no auction data for connected realm %d faction %q", runID, cr.ID, faction))
				continue
			}

			regionData.Extend(auctionData, false)

			realmCommodities := auctionData
			if in.CommodityData != nil {
				realmCommodities = store.New()
				realmCommodities.Extend(in.CommodityData, false)
				realmCommodities.Extend(auctionData, false)
			}

			for _, realm := range subRealms {
				tsmRealm := realm
				if faction != "" {
					tsmRealm = realm + "-" + faction
				}

				row, res, err := export.Render(ctx, auctionData.Entries(), RealmAuctionsExport.Fields,
					RealmAuctionsExport.Type, tsmRealm, tBegin, tEnd, tBegin, concurrency)
				if err != nil {
					return result, err
				}
				if err := result.absorb(row, res, w); err != nil {
					return result, err
				}

				for _, spec := range RealmAuctionsCommoditiesExports {
					row, res, err := export.Render(ctx, realmCommodities.Entries(), spec.Fields,
						spec.Type, tsmRealm, tBegin, tEnd, tBegin, concurrency)
					if err != nil {
						return result, err
					}
					if err := result.absorb(row, res, w); err != nil {
						return result, err
					}
				}
			}
		}
	}

	if regionData.Len() > 0 {
		label := in.TSMRegionLabel
		if label == "" {
			label = in.Region
		}
		for _, spec := range RegionAuctionsCommoditiesExports {
			row, res, err := export.Render(ctx, regionData.Entries(), spec.Fields,
				spec.Type, label, tBegin, tEnd, tBegin, concurrency)
			if err != nil {
				return result, err
			}
			if err := result.absorb(row, res, w); err != nil {
				return result, err
			}
		}
	}

	metrics.StoreSeriesCount.Set(float64(regionData.Len()))

	if err := export.AppendAppInfo(w, TSMVersion, tEnd); err != nil {
		return result, err
	}
	logger.Success("PIPELINE", fmt.Sprintf("run %s: wrote %d rows (%d items written, %d skipped)", runID, result.RowsWritten, result.ItemsWritten, result.ItemsSkipped))
	return result, nil
}
