// Command pvsize sizes a PV system from a consumption file without running
// the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/pvsizer/pvsizer/pkg/ingest"
	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/preset"
	"github.com/pvsizer/pvsizer/pkg/price"
	"github.com/pvsizer/pvsizer/pkg/report"
	"github.com/pvsizer/pvsizer/pkg/types"
)

// options are the inputs of one run.
type options struct {
	file    string
	sheet   string
	presets string
	price   string
	format  string
	cfg     types.SavedConfiguration
}

func main() {
	prices := price.Configured()
	presets := preset.Configured()

	file := lflag.RequiredString("file", "Consumption file (.csv, .txt, .xlsx)")
	sheet := lflag.String("sheet", "", "XLSX sheet to read. Defaults to the first.")
	presetNames := lflag.String("presets", "", "Comma-delimited presets applied in order")
	var overrides types.ConfigurationOverrides
	lflag.JSON(&overrides, "overrides", overrides, "JSON configuration overrides applied after the presets")
	pricePerKWH := lflag.String("price", "", "Electricity price per kWh. Empty asks the price provider.")
	format := lflag.String("format", "text", "Output format (text or json)")
	listPresets := lflag.Bool("list-presets", false, "List the available presets and exit")

	lflag.Configure()
	if err := log.SyncLevel(); err != nil {
		panic(err)
	}

	ctx := context.Background()

	if *listPresets {
		if err := writePresets(os.Stdout, presets); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to list presets", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	err := run(ctx, report.NewBuilder(presets, prices), options{
		file:    *file,
		sheet:   *sheet,
		presets: *presetNames,
		price:   *pricePerKWH,
		format:  *format,
		cfg:     types.SavedConfiguration{Overrides: overrides},
	}, os.Stdout)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to size system", slog.String("file", *file), slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, b *report.Builder, opts options, out io.Writer) error {
	cfg := opts.cfg
	for _, name := range strings.Split(opts.presets, ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.Presets = append(cfg.Presets, name)
		}
	}
	if opts.price != "" {
		p, err := strconv.ParseFloat(opts.price, 64)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", opts.price, err)
		}
		cfg.ElectricityPricePerKWH = &p
	}

	var write func(io.Writer, types.Report) error
	switch opts.format {
	case "json":
		write = writeJSON
	case "text":
		write = writeText
	default:
		return fmt.Errorf("unknown format: %s", opts.format)
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	res, err := ingest.Parse(opts.file, f, ingest.Options{Now: time.Now(), SheetName: opts.sheet})
	if err != nil {
		return fmt.Errorf("failed to parse file: %w", err)
	}
	if res.Dropped > 0 {
		log.Ctx(ctx).WarnContext(ctx, "skipped unreadable rows", slog.Int("dropped", res.Dropped))
	}

	rep, err := b.Build(ctx, report.Request{
		FileName:      opts.file,
		Readings:      res.Readings,
		Configuration: cfg,
	})
	if err != nil {
		return err
	}
	return write(out, rep)
}

func writePresets(out io.Writer, presets *preset.Registry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, p := range presets.List() {
		fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Description)
	}
	return w.Flush()
}

func writeJSON(out io.Writer, rep types.Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func writeText(out io.Writer, rep types.Report) error {
	s := rep.Sizing
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Readings\t%d\n", rep.Stats.ReadingCount)
	fmt.Fprintf(w, "Average daily consumption\t%.2f kWh\n", s.DailyEnergyKWH)
	fmt.Fprintf(w, "Peak hourly consumption\t%.2f kWh\n", s.PeakPowerKW)
	fmt.Fprintf(w, "PV array\t%.2f kW (%d panels, %.1f m2)\n", s.PVArraySizeKW, s.NumberOfPanels, s.RoofAreaM2)
	fmt.Fprintf(w, "Battery\t%.2f kWh\n", s.BatteryCapacityKWH)
	fmt.Fprintf(w, "Inverter\t%.2f kW\n", s.InverterSizeKW)
	fmt.Fprintf(w, "Total cost\t%.0f (%.0f with VAT)\n", s.TotalSystemCost, s.TotalWithVAT)
	fmt.Fprintf(w, "Energy offset\t%.1f%%\n", s.EnergyOffsetPercentage)
	fmt.Fprintf(w, "Annual savings\t%.0f at %.2f/kWh\n", s.AnnualSavings, s.ElectricityCostPerKWH)
	fmt.Fprintf(w, "Payback\t%s\n", s.Payback)
	fmt.Fprintln(w)
	for _, h := range rep.Stats.Hours() {
		hs := rep.Stats.HourlyStats[h]
		fmt.Fprintf(w, "%02d:00\tavg %.2f kWh, max %.2f kWh\n", h, hs.Avg, hs.Max)
	}
	fmt.Fprintln(w)
	for _, v := range s.Variants {
		fmt.Fprintf(w, "%s\t%.2f kW, %d panels, %.2f kWh battery, cost %.0f, offset %.1f%%\n",
			v.Name, v.PVArraySizeKW, v.NumberOfPanels, v.BatteryCapacityKWH, v.TotalSystemCost, v.EnergyOffsetPercentage)
	}
	for _, warning := range append(rep.Validation.Warnings, s.Warnings...) {
		fmt.Fprintf(w, "warning\t%s\n", warning)
	}
	return w.Flush()
}
