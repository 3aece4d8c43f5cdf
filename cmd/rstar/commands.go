package main

import (
	"cmp"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jobala/rstar/config"
	"github.com/jobala/rstar/export"
	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/index"
	"github.com/jobala/rstar/ingest"
	"github.com/jobala/rstar/logger"
	"github.com/jobala/rstar/storage"
	"go.uber.org/zap"
)

// env is what every command needs: parsed flags, configuration and a logger.
type env struct {
	fs       *flag.FlagSet
	cfg      *config.Config
	log      *zap.Logger
	closeLog func()
	stdout   io.Writer
	stderr   io.Writer

	configPath *string
	linear     *bool
}

func newEnv(name string, stdout, stderr io.Writer) *env {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	return &env{
		fs:         fs,
		stdout:     stdout,
		stderr:     stderr,
		configPath: fs.String("config", "", "Path to a YAML config file"),
	}
}

func (e *env) withLinear() *env {
	e.linear = e.fs.Bool("linear", false, "Scan the data file instead of using the index")
	return e
}

// parse reads flags, loads the configuration and builds the logger.
func (e *env) parse(args []string) bool {
	if err := e.fs.Parse(args); err != nil {
		return false
	}

	cfg, err := config.Load(*e.configPath)
	if err != nil {
		e.fail("loading config", err)
		return false
	}
	e.cfg = cfg

	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		e.fail("creating logger", err)
		return false
	}
	e.log, e.closeLog = log, closeLog
	return true
}

// close releases the logger opened by parse.
func (e *env) close() {
	if e.closeLog != nil {
		e.closeLog()
	}
}

func (e *env) fail(what string, err error) int {
	fmt.Fprintf(e.stderr, "Error %s: %v\n", what, err)
	return 1
}

func (e *env) storeOptions() storage.Options {
	return storage.Options{
		DataPath:   e.cfg.Storage.DataFile,
		IndexPath:  e.cfg.Storage.IndexFile,
		PageSize:   e.cfg.Storage.PageSize,
		Dimensions: e.cfg.Storage.Dimensions,
		CachePages: e.cfg.Storage.CachePages,
		Logger:     e.log,
	}
}

func (e *env) treeOptions() index.Options {
	return index.Options{
		MaxEntries:              e.cfg.Tree.MaxEntries,
		ReinsertFraction:        e.cfg.Tree.ReinsertFraction,
		ChooseSubtreeCandidates: e.cfg.Tree.ChooseSubtreeCandidates,
	}
}

func (e *env) openTree() (*index.Tree, error) {
	ps, err := storage.Open(e.storeOptions())
	if err != nil {
		return nil, err
	}

	tree, err := index.Open(ps, e.treeOptions())
	if err != nil {
		_ = ps.Close()
		return nil, err
	}
	return tree, nil
}

func (e *env) printRecords(records []storage.Record) {
	for _, r := range records {
		fmt.Fprintf(e.stdout, "%d\t%s\t%s\n", r.ID, r.Name, formatPoint(r.Coordinates))
	}
	fmt.Fprintf(e.stdout, "%d records\n", len(records))
}

func buildCmd(args []string, stdout, stderr io.Writer) int {
	e := newEnv("build", stdout, stderr)
	input := e.fs.String("input", "", "CSV file with id,name,coord1..coordN rows")
	incremental := e.fs.Bool("incremental", false, "Insert page by page instead of bulk loading")
	if !e.parse(args) {
		return 1
	}
	defer e.close()
	if *input == "" {
		fmt.Fprintln(stderr, "Error: -input is required")
		return 1
	}

	file, err := os.Open(*input)
	if err != nil {
		return e.fail("opening input", err)
	}
	defer file.Close()

	ps, err := storage.Create(e.storeOptions())
	if err != nil {
		return e.fail("creating store", err)
	}
	if err := ps.LoadRecords(ingest.ReadCSV(file, ps.Dimensions())); err != nil {
		_ = ps.Close()
		return e.fail("loading records", err)
	}

	tree, err := index.Create(ps, e.treeOptions())
	if err != nil {
		_ = ps.Close()
		return e.fail("creating index", err)
	}
	defer tree.Close()

	if *incremental || !e.cfg.Tree.BulkLoad {
		err = tree.BuildIncremental()
	} else {
		err = tree.BulkLoad()
	}
	if err != nil {
		return e.fail("building index", err)
	}

	fmt.Fprintf(stdout, "indexed %d records, height %d\n", tree.Len(), tree.Height())
	return 0
}

func rangeCmd(args []string, stdout, stderr io.Writer) int {
	e := newEnv("range", stdout, stderr).withLinear()
	lower := e.fs.String("lower", "", "Lower corner, comma separated")
	upper := e.fs.String("upper", "", "Upper corner, comma separated")
	if !e.parse(args) {
		return 1
	}
	defer e.close()

	lo, err := parsePoint(*lower)
	if err != nil {
		return e.fail("parsing -lower", err)
	}
	hi, err := parsePoint(*upper)
	if err != nil {
		return e.fail("parsing -upper", err)
	}
	q, err := geometry.FromCorners(lo, hi)
	if err != nil {
		return e.fail("building query box", err)
	}

	tree, err := e.openTree()
	if err != nil {
		return e.fail("opening index", err)
	}
	defer tree.Close()

	var records []storage.Record
	if *e.linear {
		records, err = index.LinearRangeQuery(tree.Store(), q)
	} else {
		records, err = tree.RangeQuery(q)
	}
	if err != nil {
		return e.fail("running range query", err)
	}

	sortByID(records)
	e.printRecords(records)
	return 0
}

func knnCmd(args []string, stdout, stderr io.Writer) int {
	e := newEnv("knn", stdout, stderr).withLinear()
	point := e.fs.String("point", "", "Query point, comma separated")
	k := e.fs.Int("k", 1, "Number of neighbours")
	if !e.parse(args) {
		return 1
	}
	defer e.close()

	p, err := parsePoint(*point)
	if err != nil {
		return e.fail("parsing -point", err)
	}

	tree, err := e.openTree()
	if err != nil {
		return e.fail("opening index", err)
	}
	defer tree.Close()

	var records []storage.Record
	if *e.linear {
		records, err = index.LinearKNearestNeighbours(tree.Store(), p, *k)
	} else {
		records, err = tree.KNearestNeighbours(p, *k)
	}
	if err != nil {
		return e.fail("running knn query", err)
	}

	e.printRecords(records)
	return 0
}

func skylineCmd(args []string, stdout, stderr io.Writer) int {
	e := newEnv("skyline", stdout, stderr).withLinear()
	if !e.parse(args) {
		return 1
	}
	defer e.close()

	tree, err := e.openTree()
	if err != nil {
		return e.fail("opening index", err)
	}
	defer tree.Close()

	var records []storage.Record
	if *e.linear {
		records, err = index.LinearSkyline(tree.Store())
	} else {
		records, err = tree.Skyline()
	}
	if err != nil {
		return e.fail("running skyline query", err)
	}

	sortByID(records)
	e.printRecords(records)
	return 0
}

func insertCmd(args []string, stdout, stderr io.Writer) int {
	e := newEnv("insert", stdout, stderr)
	id := e.fs.Int64("id", 0, "Record id")
	name := e.fs.String("name", "", "Record name")
	coords := e.fs.String("coords", "", "Coordinates, comma separated")
	if !e.parse(args) {
		return 1
	}
	defer e.close()

	p, err := parsePoint(*coords)
	if err != nil {
		return e.fail("parsing -coords", err)
	}

	tree, err := e.openTree()
	if err != nil {
		return e.fail("opening index", err)
	}
	defer tree.Close()

	if err := tree.Insert(storage.Record{ID: *id, Name: *name, Coordinates: p}); err != nil {
		return e.fail("inserting record", err)
	}

	fmt.Fprintf(stdout, "inserted %d\n", *id)
	return 0
}

func deleteCmd(args []string, stdout, stderr io.Writer) int {
	e := newEnv("delete", stdout, stderr)
	id := e.fs.Int64("id", 0, "Record id")
	if !e.parse(args) {
		return 1
	}
	defer e.close()

	tree, err := e.openTree()
	if err != nil {
		return e.fail("opening index", err)
	}
	defer tree.Close()

	if err := tree.Delete(*id); err != nil {
		if errors.Is(err, index.ErrNotFound) {
			fmt.Fprintf(stderr, "record %d not found\n", *id)
			return 1
		}
		return e.fail("deleting record", err)
	}

	fmt.Fprintf(stdout, "deleted %d\n", *id)
	return 0
}

func exportCmd(args []string, stdout, stderr io.Writer) int {
	e := newEnv("export", stdout, stderr)
	format := e.fs.String("format", "dot", "Output format: dot or csv")
	output := e.fs.String("output", "", "Output file, stdout when empty")
	if !e.parse(args) {
		return 1
	}
	defer e.close()

	write := export.WriteDOT
	switch *format {
	case "dot":
	case "csv":
		write = export.WriteCSV
	default:
		fmt.Fprintf(stderr, "Error: unknown format %q\n", *format)
		return 1
	}

	tree, err := e.openTree()
	if err != nil {
		return e.fail("opening index", err)
	}
	defer tree.Close()

	w := stdout
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			return e.fail("creating output", err)
		}
		defer file.Close()
		w = file
	}

	if err := write(w, tree); err != nil {
		return e.fail("exporting", err)
	}
	return 0
}

func statsCmd(args []string, stdout, stderr io.Writer) int {
	e := newEnv("stats", stdout, stderr)
	if !e.parse(args) {
		return 1
	}
	defer e.close()

	tree, err := e.openTree()
	if err != nil {
		return e.fail("opening index", err)
	}
	defer tree.Close()

	stats, err := tree.Stats()
	if err != nil {
		return e.fail("collecting stats", err)
	}

	fmt.Fprintf(stdout, "height:      %d\n", stats.Height)
	fmt.Fprintf(stdout, "records:     %d\n", stats.Records)
	fmt.Fprintf(stdout, "data pages:  %d\n", stats.DataPages)
	fmt.Fprintf(stdout, "nodes:       %d\n", stats.Nodes())
	fmt.Fprintf(stdout, "M / m:       %d / %d\n", stats.MaxEntries, stats.MinEntries)
	for level := stats.Height; level >= 1; level-- {
		fmt.Fprintf(stdout, "level %d:     %d nodes\n", level, stats.NodesPerLevel[level])
	}
	return 0
}

func sortByID(records []storage.Record) {
	slices.SortFunc(records, func(a, b storage.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

func parsePoint(s string) ([]float64, error) {
	if s == "" {
		return nil, errors.New("empty point")
	}

	fields := strings.Split(s, ",")
	res := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func formatPoint(p []float64) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
