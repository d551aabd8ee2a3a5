package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"auctiondb-engine/internal/config"
	"auctiondb-engine/internal/ingest"
	"auctiondb-engine/internal/itemstring"
	"auctiondb-engine/internal/logger"
	"auctiondb-engine/internal/meta"
	"auctiondb-engine/internal/metrics"
	"auctiondb-engine/internal/pipeline"
	"auctiondb-engine/internal/store"
)

var version = "dev"

func main() {
	mode := flag.String("mode", "export", "\"ingest\" to fold a raw response into a connected realm's store, \"export\" to render the add-on export file")
	dbPath := flag.String("db-path", "", "path to the window/connected-realm metadata database (overrides config default)")
	storeDir := flag.String("store-dir", "data", "directory holding per-connected-realm and commodity store blobs")
	exportPath := flag.String("export-path", "", "path to write the rendered export file (overrides config default)")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve Prometheus metrics on, empty disables it")
	responsePath := flag.String("response", "", "ingest mode: path to a JSON raw-response file (see rawResponse)")
	crid := flag.Int("crid", 0, "ingest mode: connected realm id the response belongs to; 0 means the region-wide commodity store")
	faction := flag.String("faction", "", "ingest/export mode: faction suffix, empty for games with no faction split")
	region := flag.String("region", "us", "export mode: region label")
	realms := flag.String("realms", "", "export mode: comma-separated realm names to export")
	flag.Parse()

	logger.Banner(version)

	cfg := config.Default()
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *exportPath != "" {
		cfg.ExportPath = *exportPath
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("METRICS", fmt.Sprintf("serving on %s", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error("METRICS", fmt.Sprintf("server stopped: %v", err))
			}
		}()
	}

	metaDB, err := meta.Open(cfg.DBPath)
	if err != nil {
		logger.Error("META", fmt.Sprintf("open: %v", err))
		os.Exit(1)
	}
	defer metaDB.Close()

	os.MkdirAll(*storeDir, 0o755)
	c := cron.New(cron.WithSeconds())
	c.AddFunc(cfg.MaintenanceCron, func() { runMaintenance(*storeDir, cfg) })
	c.Start()
	defer c.Stop()

	switch *mode {
	case "ingest":
		if err := runIngest(*responsePath, *storeDir, *crid, *faction, cfg); err != nil {
			logger.Error("INGEST", err.Error())
			os.Exit(1)
		}
	case "export":
		if err := runExport(metaDB, *storeDir, cfg, *region, *faction, *realms); err != nil {
			logger.Error("EXPORT", err.Error())
			os.Exit(1)
		}
	default:
		logger.Error("MAIN", fmt.Sprintf("unknown -mode %q (want \"ingest\" or \"export\")", *mode))
		os.Exit(1)
	}
}

// storeFile returns the path of the per-connected-realm (or commodity,
// when crid is 0) store blob, mirroring the teacher's filepath.Join
// data-dir layout.
func storeFile(storeDir string, crid int, faction string) string {
	name := "commodities.bin"
	if crid != 0 {
		name = fmt.Sprintf("realm-%d", crid)
		if faction != "" {
			name += "-" + strings.ToLower(faction)
		}
		name += ".bin"
	}
	return filepath.Join(storeDir, name)
}

func loadOrNewStore(path string) (*store.Store, error) {
	s, err := store.FromFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store.New(), nil
		}
		return nil, err
	}
	return s, nil
}

func runMaintenance(storeDir string, cfg *config.Config) {
	matches, _ := filepath.Glob(filepath.Join(storeDir, "*.bin"))
	expireTS := time.Now().Add(-cfg.RecordExpiry).Unix()
	for _, path := range matches {
		s, err := store.FromFile(path)
		if err != nil {
			logger.Warn("MAINTENANCE", fmt.Sprintf("skip %s: %v", path, err))
			continue
		}
		removed := s.RemoveExpired(expireTS)
		s.RemoveEmptyEntries()
		if removed > 0 {
			if err := s.ToFile(path); err != nil {
				logger.Error("MAINTENANCE", fmt.Sprintf("save %s: %v", path, err))
				continue
			}
		}
		logger.Stats(fmt.Sprintf("expired (%s)", filepath.Base(path)), removed)
	}
}

// rawEntry is the flat JSON shape one response entry arrives in. When
// IsCommodity is set it is read as a commodity listing (ItemID, Quantity,
// UnitPrice); otherwise as an auction listing (ItemID, PetSpeciesID,
// BonusLists, Modifiers, Quantity, Bid, Buyout).
type rawEntry struct {
	ItemID       uint32        `json:"item_id"`
	PetSpeciesID *uint32       `json:"pet_species_id,omitempty"`
	BonusLists   []int32       `json:"bonus_lists,omitempty"`
	Modifiers    []rawModifier `json:"modifiers,omitempty"`
	Quantity     uint32        `json:"quantity"`
	Bid          uint64        `json:"bid,omitempty"`
	Buyout       uint64        `json:"buyout,omitempty"`
	UnitPrice    uint64        `json:"unit_price,omitempty"`
	IsCommodity  bool          `json:"is_commodity,omitempty"`
}

type rawModifier struct {
	Type  int32 `json:"type"`
	Value int32 `json:"value"`
}

type rawResponse struct {
	Timestamp int64      `json:"timestamp"`
	Entries   []rawEntry `json:"entries"`
}

func (e rawEntry) toIngestEntry() ingest.Entry {
	if e.IsCommodity {
		return ingest.CommodityListing{
			Item:      itemstring.CommodityItem{ID: e.ItemID},
			Qty:       e.Quantity,
			UnitPrice: e.UnitPrice,
		}
	}
	mods := make([]itemstring.Modifier, len(e.Modifiers))
	for i, m := range e.Modifiers {
		mods[i] = itemstring.Modifier{Type: m.Type, Value: m.Value}
	}
	return ingest.AuctionListing{
		Item: itemstring.AuctionItem{
			ID:           e.ItemID,
			PetSpeciesID: e.PetSpeciesID,
			BonusLists:   e.BonusLists,
			Modifiers:    mods,
		},
		Qty:    e.Quantity,
		Bid:    e.Bid,
		Payout: e.Buyout,
	}
}

// runIngest implements the "raw response -> per-item increment -> extend
// the long-lived store" half of the data flow (§2, C6+C7).
func runIngest(responsePath, storeDir string, crid int, faction string, cfg *config.Config) error {
	logger.Section("INGEST")
	if responsePath == "" {
		return fmt.Errorf("ingest mode requires -response")
	}
	data, err := os.ReadFile(responsePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", responsePath, err)
	}
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode %s: %w", responsePath, err)
	}

	entries := make([]ingest.Entry, len(raw.Entries))
	for i, e := range raw.Entries {
		entries[i] = e.toIngestEntry()
	}

	increment, err := ingest.BuildIncrement(context.Background(), ingest.Response{Timestamp: raw.Timestamp, Entries: entries}, cfg.IngestConcurrency)
	if err != nil {
		return fmt.Errorf("build increment: %w", err)
	}

	srcMap := make(map[string]store.IncrementSource, len(increment))
	for k, v := range increment {
		srcMap[k] = store.IncrementSource{Item: v.Item, Record: v.Record}
	}

	path := storeFile(storeDir, crid, faction)
	s, err := loadOrNewStore(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	recordsAdded, newItems := s.UpdateIncrement(srcMap, true)
	if err := s.ToFile(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	metrics.IngestedRecords.Add(float64(recordsAdded))
	logger.Stats("records added", recordsAdded)
	logger.Stats("new items", newItems)
	logger.Success("INGEST", fmt.Sprintf("folded %d entries into %s", len(raw.Entries), path))
	return nil
}

// runExport implements the "store -> export rows" half of the data flow
// (§2, C7+C8), via internal/pipeline.
func runExport(metaDB *meta.DB, storeDir string, cfg *config.Config, region, faction, realmsCSV string) error {
	logger.Section("EXPORT")
	window, err := metaDB.LoadWindow()
	if err != nil {
		return err
	}

	var exportRealms []string
	for _, r := range strings.Split(realmsCSV, ",") {
		if r = strings.TrimSpace(r); r != "" {
			exportRealms = append(exportRealms, r)
		}
	}

	commodityPath := storeFile(storeDir, 0, "")
	var commodityData *store.Store
	if s, err := store.FromFile(commodityPath); err == nil {
		commodityData = s
	}

	var connectedRealms []pipeline.ConnectedRealm
	for crid := range window.ConnectedRealms {
		path := storeFile(storeDir, crid, faction)
		s, err := store.FromFile(path)
		if err != nil {
			logger.Warn("EXPORT", fmt.Sprintf("no data in %s", path))
			continue
		}
		connectedRealms = append(connectedRealms, pipeline.ConnectedRealm{
			ID:       crid,
			Auctions: map[string]*store.Store{faction: s},
		})
	}

	f, err := os.Create(cfg.ExportPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.ExportPath, err)
	}
	defer f.Close()

	in := pipeline.Input{
		Window:          window,
		CommodityData:   commodityData,
		ConnectedRealms: connectedRealms,
		Region:          region,
	}
	result, err := pipeline.Run(context.Background(), f, in, exportRealms, cfg.IngestConcurrency)
	if err != nil {
		return err
	}
	logger.Stats("rows written", result.RowsWritten)
	logger.Stats("items written", result.ItemsWritten)
	logger.Stats("items skipped", result.ItemsSkipped)
	return nil
}
