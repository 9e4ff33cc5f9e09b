// Command slotdb is a scripted demo driver for the heap-file record
// manager: it creates a table, inserts a handful of records, runs a
// conditional scan, and logs the table's tuple count. Buffer pool I/O
// counters are not reported. Grounded on
// cmd/server/main.go's flag/config/mkdir wiring pattern, with the TCP
// wire protocol dropped since this engine has no client/server surface.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nvcode/slotdb/internal/bufferpool"
	"github.com/nvcode/slotdb/internal/config"
	"github.com/nvcode/slotdb/internal/expr"
	"github.com/nvcode/slotdb/internal/heap"
	"github.com/nvcode/slotdb/internal/record"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "slotdb.yaml", "path to slotdb yaml config")
	flag.Parse()

	logger := slog.Default()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Storage.Workdir, 0o755); err != nil {
		logger.Error("create workdir", "err", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.Error("demo run failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	schema := record.Schema{
		Attrs: []record.Attribute{
			{Name: "id", Type: record.TypeInt},
			{Name: "name", Type: record.TypeString, Length: 10},
			{Name: "salary", Type: record.TypeFloat},
		},
		KeyAttrs: []int{0},
	}

	path := filepath.Join(cfg.Storage.Workdir, "employee.tbl")
	_ = heap.DeleteTable(path) // start from a clean demo table each run

	if err := heap.CreateTable(path, "employee", schema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tbl, err := heap.OpenTable(path, "employee", bufferpool.PolicyFIFO)
	if err != nil {
		return fmt.Errorf("open table: %w", err)
	}
	defer tbl.Close()

	names := []string{"alice", "bob", "carol", "dave", "erin"}
	salaries := []float32{750, 820, 640, 910, 795}
	for i, name := range names {
		rec := record.NewRecord(schema)
		if err := rec.SetAttr(schema, 0, record.IntValue(int32(i))); err != nil {
			return err
		}
		if err := rec.SetAttr(schema, 1, record.StringValue(name)); err != nil {
			return err
		}
		if err := rec.SetAttr(schema, 2, record.FloatValue(salaries[i])); err != nil {
			return err
		}
		rid, err := tbl.Insert(rec)
		if err != nil {
			return fmt.Errorf("insert %s: %w", name, err)
		}
		slog.Info("inserted", "name", name, "page", rid.Page, "slot", rid.Slot)
	}

	predicate := expr.Comparison{
		Left:  expr.AttrRef{Index: 2},
		Right: expr.Const{Value: record.FloatValue(800.0)},
		Op:    expr.OpGE,
	}

	scan := tbl.StartScan(predicate)
	defer scan.Close()

	for {
		rec, rid, err := scan.Next()
		if err == heap.ErrNoMoreTuples {
			break
		}
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		nameV, _ := rec.GetAttr(schema, 1)
		salaryV, _ := rec.GetAttr(schema, 2)
		slog.Info("scan match", "page", rid.Page, "slot", rid.Slot, "name", nameV.StringV, "salary", salaryV.FloatV)
	}

	slog.Info("table stats", "num_tuples", tbl.NumTuples())
	return nil
}
