// Command pulsegrid administers pulse grid databases: creating
// datasets, running schema migrations, printing index occupancy, and
// moving index snapshots in and out as compressed archives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/banshee-data/pulsegrid/internal/config"
	"github.com/banshee-data/pulsegrid/internal/gridindex"
	"github.com/banshee-data/pulsegrid/internal/pointstore"
	"github.com/banshee-data/pulsegrid/internal/pulsedb"
	"github.com/banshee-data/pulsegrid/internal/spatialindex"
)

var (
	dbPath     = flag.String("db", "pulse_data.db", "Path to the SQLite pulse database")
	configPath = flag.String("config", "", "Path to a tuning config JSON file")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printHelp()
		os.Exit(1)
	}

	tuning := loadTuning()
	ctx := context.Background()

	switch args[0] {
	case "migrate":
		runMigrateCommand(args[1:])

	case "create-dataset":
		if len(args) < 7 {
			log.Fatal("Usage: pulsegrid create-dataset <name> <kind> <xmin> <ymax> <rows> <cols>")
		}
		handleCreateDataset(ctx, tuning, args[1], args[2], args[3:7])

	case "list-datasets":
		handleListDatasets(ctx)

	case "stats":
		if len(args) < 2 {
			log.Fatal("Usage: pulsegrid stats <dataset-id>")
		}
		handleStats(ctx, tuning, args[1])

	case "export":
		if len(args) < 3 {
			log.Fatal("Usage: pulsegrid export <dataset-id> <archive-file>")
		}
		handleExport(ctx, tuning, args[1], args[2])

	case "import":
		if len(args) < 3 {
			log.Fatal("Usage: pulsegrid import <dataset-id> <archive-file>")
		}
		handleImport(ctx, args[1], args[2])

	case "help":
		printHelp()

	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printHelp()
		os.Exit(1)
	}
}

// loadTuning reads the -config file when given, otherwise falls back
// to built-in defaults.
func loadTuning() *config.Tuning {
	if *configPath == "" {
		return config.DefaultTuning()
	}
	t, err := config.LoadTuning(*configPath)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}
	return t.Apply(config.DefaultTuning())
}

// openDB opens the pulse database with the embedded schema applied.
func openDB() *pulsedb.DB {
	db, err := pulsedb.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to pulse database: %v", err)
	}
	return db
}

// openStore resolves a dataset and returns its store with the tuned
// read concurrency applied.
func openStore(ctx context.Context, db *pulsedb.DB, tuning *config.Tuning, datasetID string) (*pulsedb.Dataset, *pulsedb.DatasetStore) {
	ds, err := db.GetDataset(ctx, datasetID)
	if err != nil {
		log.Fatalf("Failed to resolve dataset: %v", err)
	}
	st := db.Store(ds)
	st.ReadConcurrency = tuning.GetReadConcurrency()
	return ds, st
}

func handleCreateDataset(ctx context.Context, tuning *config.Tuning, name, kindName string, geom []string) {
	kind, err := spatialindex.ParseKind(kindName)
	if err != nil {
		log.Fatalf("Invalid index kind: %v", err)
	}

	xmin, err := strconv.ParseFloat(geom[0], 64)
	if err != nil {
		log.Fatalf("Invalid xmin %q: %v", geom[0], err)
	}
	ymax, err := strconv.ParseFloat(geom[1], 64)
	if err != nil {
		log.Fatalf("Invalid ymax %q: %v", geom[1], err)
	}
	rows, err := strconv.Atoi(geom[2])
	if err != nil {
		log.Fatalf("Invalid row count %q: %v", geom[2], err)
	}
	cols, err := strconv.Atoi(geom[3])
	if err != nil {
		log.Fatalf("Invalid column count %q: %v", geom[3], err)
	}

	db := openDB()
	defer db.Close()

	ds, err := db.CreateDataset(ctx, name, kind, gridindex.Grid{
		BinSize: tuning.GetBinSize(),
		XMin:    xmin,
		YMax:    ymax,
		Rows:    rows,
		Cols:    cols,
	})
	if err != nil {
		log.Fatalf("Failed to create dataset: %v", err)
	}
	fmt.Println(ds.DatasetID)
}

func handleListDatasets(ctx context.Context) {
	db := openDB()
	defer db.Close()

	datasets, err := db.ListDatasets(ctx)
	if err != nil {
		log.Fatalf("Failed to list datasets: %v", err)
	}
	if len(datasets) == 0 {
		fmt.Println("No datasets")
		return
	}
	for _, ds := range datasets {
		created := time.Unix(0, ds.CreatedUnixNanos).UTC().Format(time.RFC3339)
		fmt.Printf("%s  %-12s %-10s %dx%d @ %g  %s\n",
			ds.DatasetID, ds.Name, ds.Kind, ds.Rows, ds.Cols, ds.BinSize, created)
	}
}

func handleStats(ctx context.Context, tuning *config.Tuning, datasetID string) {
	db := openDB()
	defer db.Close()

	ds, st := openStore(ctx, db, tuning, datasetID)
	d, err := pointstore.Restore(ctx, st)
	if errors.Is(err, pointstore.ErrNoSnapshot) {
		log.Fatalf("Dataset %s has no index snapshot yet", datasetID)
	}
	if err != nil {
		log.Fatalf("Failed to restore index: %v", err)
	}

	pulses, points := d.Counts()
	s := d.Index().Stats()

	fmt.Printf("=== Dataset %s (%s) ===\n", ds.DatasetID, ds.Name)
	fmt.Printf("Index kind:     %s\n", ds.Kind)
	fmt.Printf("Grid:           %dx%d bins @ %g\n", ds.Rows, ds.Cols, ds.BinSize)
	fmt.Printf("Pulses:         %d\n", pulses)
	fmt.Printf("Points:         %d\n", points)
	fmt.Printf("Occupied bins:  %d of %d\n", s.Occupied, s.Bins)
	fmt.Printf("Pulses per bin: max %d, mean %.2f, p50 %.1f, p95 %.1f\n",
		s.MaxPerBin, s.MeanPerBin, s.P50PerBin, s.P95PerBin)
}

func handleExport(ctx context.Context, tuning *config.Tuning, datasetID, path string) {
	db := openDB()
	defer db.Close()

	_, st := openStore(ctx, db, tuning, datasetID)
	snap, err := st.LatestIndexSnapshot(ctx)
	if errors.Is(err, pointstore.ErrNoSnapshot) {
		log.Fatalf("Dataset %s has no index snapshot to export", datasetID)
	}
	if err != nil {
		log.Fatalf("Failed to load index snapshot: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create archive file: %v", err)
	}
	if err := pointstore.WriteArchive(f, snap, tuning.GetArchiveCompressionLevel()); err != nil {
		f.Close()
		log.Fatalf("Failed to write archive: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close archive file: %v", err)
	}
	log.Printf("✓ Exported snapshot %d (%d pulses, %d points) to %s",
		snap.SnapshotID, snap.PulseCount, snap.PointCount, path)
}

func handleImport(ctx context.Context, datasetID, path string) {
	db := openDB()
	defer db.Close()

	ds, err := db.GetDataset(ctx, datasetID)
	if err != nil {
		log.Fatalf("Failed to resolve dataset: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open archive file: %v", err)
	}
	defer f.Close()

	snap, err := pointstore.ReadArchive(f)
	if err != nil {
		log.Fatalf("Failed to read archive: %v", err)
	}
	if snap.Kind != ds.Kind || snap.BinSize != ds.BinSize ||
		snap.XMin != ds.XMin || snap.YMax != ds.YMax ||
		snap.Rows != ds.Rows || snap.Cols != ds.Cols {
		log.Fatalf("Archive grid (%s %dx%d @ %g) does not match dataset %s (%s %dx%d @ %g)",
			snap.Kind, snap.Rows, snap.Cols, snap.BinSize,
			ds.DatasetID, ds.Kind, ds.Rows, ds.Cols, ds.BinSize)
	}

	id, err := db.Store(ds).SaveIndexSnapshot(ctx, snap)
	if err != nil {
		log.Fatalf("Failed to store snapshot: %v", err)
	}
	log.Printf("✓ Imported snapshot as id %d (%d pulses, %d points)", id, snap.PulseCount, snap.PointCount)
}

// runMigrateCommand handles the 'migrate' subcommand dispatching.
func runMigrateCommand(args []string) {
	if len(args) < 1 {
		printMigrateHelp()
		os.Exit(1)
	}

	// Open without schema initialization; migrations manage the schema.
	db, err := pulsedb.OpenForMigrations(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to pulse database: %v", err)
	}
	defer db.Close()

	switch args[0] {
	case "up":
		log.Printf("Running migrations...")
		if err := db.MigrateUp(); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("✓ All migrations applied successfully")
		printMigrateVersion(db)

	case "down":
		log.Printf("Rolling back one migration...")
		if err := db.MigrateDown(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("✓ Migration rolled back successfully")
		printMigrateVersion(db)

	case "status":
		version, dirty, err := db.MigrateVersion()
		if err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
		fmt.Println("=== Migration Status ===")
		fmt.Printf("Current version: %d\n", version)
		fmt.Printf("Dirty: %v\n", dirty)
		if dirty {
			fmt.Println("\n⚠️  WARNING: Database is in a dirty state!")
			fmt.Println("A migration failed mid-execution. Fix the schema, then run:")
			fmt.Println("  pulsegrid migrate force <version>")
		}

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: pulsegrid migrate force <version_number>")
		}
		var forceVersion int
		if _, err := fmt.Sscanf(args[1], "%d", &forceVersion); err != nil {
			log.Fatalf("Invalid version number: %s", args[1])
		}
		if err := db.MigrateForce(forceVersion); err != nil {
			log.Fatalf("Force migration failed: %v", err)
		}
		log.Printf("✓ Migration version forced to %d", forceVersion)

	case "help":
		printMigrateHelp()

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", args[0])
		printMigrateHelp()
		os.Exit(1)
	}
}

func printMigrateVersion(db *pulsedb.DB) {
	version, dirty, _ := db.MigrateVersion()
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

func printHelp() {
	fmt.Println("pulsegrid - pulse grid database administration")
	fmt.Println()
	fmt.Println("Usage: pulsegrid [flags] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  create-dataset <name> <kind> <xmin> <ymax> <rows> <cols>")
	fmt.Println("                  Create a dataset (kind: cartesian, spherical, scan;")
	fmt.Println("                  bin size comes from the tuning config)")
	fmt.Println("  list-datasets   List datasets in the database")
	fmt.Println("  stats <id>      Print index occupancy statistics for a dataset")
	fmt.Println("  export <id> <file>")
	fmt.Println("                  Write the latest index snapshot to a compressed archive")
	fmt.Println("  import <id> <file>")
	fmt.Println("                  Load an archived index snapshot into a dataset")
	fmt.Println("  migrate <up|down|status|force N|help>")
	fmt.Println("                  Manage the database schema")
	fmt.Println("  help            Show this help message")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -db <path>      Path to database file (default: pulse_data.db)")
	fmt.Println("  -config <path>  Path to a tuning config JSON file")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pulsegrid create-dataset survey-12 cartesian 0 5000 5000 5000")
	fmt.Println("  pulsegrid stats 3f2a9c...")
	fmt.Println("  pulsegrid -db scans.db migrate up")
}

func printMigrateHelp() {
	fmt.Println("Database Migration Commands")
	fmt.Println()
	fmt.Println("Usage: pulsegrid migrate <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up              Apply all pending migrations")
	fmt.Println("  down            Rollback one migration")
	fmt.Println("  status          Show current migration status and version")
	fmt.Println("  force <N>       Force migration version to N (recovery only)")
	fmt.Println("  help            Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pulsegrid migrate up")
	fmt.Println("  pulsegrid migrate status")
	fmt.Println("  pulsegrid migrate force 1")
}
