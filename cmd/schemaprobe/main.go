// Command schemaprobe samples a local delimited file and prints a draft
// data-package descriptor: header names with inferred types and detected
// date formats. The output is a starting point to be reviewed and committed
// alongside the data, not a finished descriptor.
//
// Example:
//
//	schemaprobe -file=data/ControllerOperatorHistory.csv -name=controller-operator-history
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"tablecheck/internal/probe"
	"tablecheck/internal/schema"
)

func main() {
	var (
		path  string
		delim string
		name  string
	)
	flag.StringVar(&path, "file", "", "path to the delimited file to sample")
	flag.StringVar(&delim, "delimiter", ",", "field delimiter")
	flag.StringVar(&name, "name", "", "resource name (default: derived from the file name)")
	flag.Parse()

	if path == "" {
		log.Fatal("-file is required")
	}
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	comma := ','
	if delim != "" {
		comma = []rune(delim)[0]
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer f.Close()

	headers, rows, err := probe.Sample(f, comma)
	if err != nil {
		log.Fatalf("sample: %v", err)
	}
	if len(headers) == 0 {
		log.Fatalf("no header found in %s", path)
	}

	res := probe.InferResource(name, headers, rows, comma)
	res.Path = path

	pkg := schema.Package{
		Name:      probe.NormalizeName(name),
		Resources: []schema.Resource{res},
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pkg); err != nil {
		log.Fatalf("encode: %v", err)
	}
	log.Printf("sampled %d rows from %s; inferred %d fields", len(rows), path, len(headers))
}
