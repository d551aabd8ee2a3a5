// Package export implements C8: rendering a store's fields into the
// add-on's textual row format (§4.8, §6).
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"auctiondb-engine/internal/itemstring"
	"auctiondb-engine/internal/store"
)

// ErrInvalidFieldName is returned for a field name not in the known set.
var ErrInvalidFieldName = errors.New("export: unknown field name")

// ErrInvalidValueType is returned when a value to format is neither a
// uint64 nor a string.
var ErrInvalidValueType = errors.New("export: value type mismatch")

// Field names recognized by Render (§4.8 field mapping).
const (
	FieldMinBuyout         = "minBuyout"
	FieldNumAuctions       = "numAuctions"
	FieldMarketValueRecent = "marketValueRecent"
	FieldHistorical        = "historical"
	FieldRegionHistorical  = "regionHistorical"
	FieldMarketValue       = "marketValue"
	FieldRegionMarketValue = "regionMarketValue"
	FieldItemString        = "itemString"
)

// Record labels (data_type strings), §6.
const (
	RealmData        = "AUCTIONDB_REALM_DATA"
	RealmHistorical   = "AUCTIONDB_REALM_HISTORICAL"
	RealmScanStat     = "AUCTIONDB_REALM_SCAN_STAT"
	RegionCommodity   = "AUCTIONDB_REGION_COMMODITY"
	RegionStat        = "AUCTIONDB_REGION_STAT"
	RegionHistoricalL = "AUCTIONDB_REGION_HISTORICAL"
)

const base32Digits = "0123456789ABCDEFGHIJKLMNOPQRSTUV"

// ToBase32 renders v in the export's integer encoding: uppercase, digit
// set 0-9A-V, zero renders as "0" (§4.8, §8 property 9).
func ToBase32(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf []byte
	for v > 0 {
		buf = append([]byte{base32Digits[v%32]}, buf...)
		v /= 32
	}
	return string(buf)
}

// FromBase32 parses the inverse of ToBase32.
func FromBase32(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidValueType)
	}
	var v uint64
	for _, c := range s {
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'A' && c <= 'V':
			d = uint64(c-'A') + 10
		default:
			return 0, fmt.Errorf("%w: invalid base-32 digit %q", ErrInvalidValueType, c)
		}
		v = v*32 + d
	}
	return v, nil
}

func computeField(name string, e store.Entry, tBegin, tEnd int64) (interface{}, error) {
	switch name {
	case FieldMinBuyout:
		return e.Records.GetRecentMinBuyout(tBegin), nil
	case FieldNumAuctions:
		return uint64(e.Records.GetRecentNumAuctions(tBegin)), nil
	case FieldMarketValueRecent:
		return e.Records.GetRecentMarketValue(tBegin), nil
	case FieldHistorical, FieldRegionHistorical:
		return e.Records.GetHistoricalMarketValue(tEnd), nil
	case FieldMarketValue, FieldRegionMarketValue:
		return e.Records.GetWeightedMarketValue(tEnd), nil
	case FieldItemString:
		return e.Item.ToStr(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFieldName, name)
	}
}

// formatAny renders a computed field value: integers go through ToBase32,
// strings are quoted unless every character is decimal (§4.8).
func formatAny(v interface{}) (string, error) {
	switch t := v.(type) {
	case uint64:
		return ToBase32(t), nil
	case string:
		if itemstring.IsNumeric(t) {
			return t, nil
		}
		return `"` + t + `"`, nil
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidValueType, v)
	}
}

// Result reports how many items a Render call wrote versus skipped.
type Result struct {
	ItemsWritten int
	ItemsSkipped int
}

// Render builds one LoadData row (§6 TEMPLATE_ROW) for entries against the
// given ordered field list. An item is skipped (§8 property 10, §9 open
// question b) when every non-itemString field value is zero — itemString
// alone never keeps an item in.
func Render(ctx context.Context, entries []store.Entry, fields []string, recordType, regionOrRealm string, tBegin, tEnd, downloadTime int64, concurrency int) (string, Result, error) {
	fieldNames := make([]string, len(fields))
	for i, f := range fields {
		if !knownField(f) {
			return "", Result{}, fmt.Errorf("%w: %s", ErrInvalidFieldName, f)
		}
		fieldNames[i] = `"` + f + `"`
	}

	rendered := make([]string, len(entries))
	kept := make([]bool, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			vals := make([]interface{}, len(fields))
			keep := false
			for j, name := range fields {
				v, err := computeField(name, e, tBegin, tEnd)
				if err != nil {
					return err
				}
				vals[j] = v
				if n, ok := v.(uint64); ok && n != 0 {
					keep = true
				}
			}
			if !keep {
				return nil
			}
			parts := make([]string, len(vals))
			for j, v := range vals {
				s, err := formatAny(v)
				if err != nil {
					return err
				}
				parts[j] = s
			}
			rendered[i] = "{" + strings.Join(parts, ",") + "}"
			kept[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", Result{}, err
	}

	var result Result
	dataRows := make([]string, 0, len(entries))
	for i := range entries {
		if kept[i] {
			dataRows = append(dataRows, rendered[i])
			result.ItemsWritten++
		} else {
			result.ItemsSkipped++
		}
	}

	row := fmt.Sprintf(
		"select(2, ...).LoadData(\"%s\",\"%s\",[[return {downloadTime=%d,fields={%s},data={%s}}]])\n",
		recordType, regionOrRealm, downloadTime, strings.Join(fieldNames, ","), strings.Join(dataRows, ","),
	)
	return row, result, nil
}

func knownField(name string) bool {
	switch name {
	case FieldMinBuyout, FieldNumAuctions, FieldMarketValueRecent, FieldHistorical,
		FieldRegionHistorical, FieldMarketValue, FieldRegionMarketValue, FieldItemString:
		return true
	default:
		return false
	}
}

// AppendAppInfo writes the trailing APP_INFO row every export carries
// (§6.1), supplementing the six AUCTIONDB_* rows the distilled spec named.
// The shape matches TSMExporter.TEMPLATE_APPDATA/export_append_app_info
// exactly: version and lastSync are plain decimal Lua numbers, not
// base-32-encoded or quoted like the AUCTIONDB_* data rows above.
func AppendAppInfo(w io.Writer, version string, lastSync int64) error {
	row := fmt.Sprintf(
		"select(2, ...).LoadData(\"APP_INFO\",\"Global\",[[return {version=%s,lastSync=%d,message={id=0,msg=\"\"},news={}}]])\n",
		version, lastSync,
	)
	_, err := io.WriteString(w, row)
	return err
}
