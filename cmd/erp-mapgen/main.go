// Command erp-mapgen is the offline generator: it reads an exported
// API-collection document and writes the canonical mapping file the MCP
// server loads at startup.
package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/htssuite/erp-mcp/internal/canonical"
	"github.com/htssuite/erp-mcp/internal/collection"
)

// Options is the generator CLI. Struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Collection string `short:"c" long:"collection" description:"Path to the exported API-collection JSON document" required:"true"`
	Out        string `short:"o" long:"out" description:"Path to write the canonical mapping JSON file" required:"true"`
	Host       string `long:"host" description:"Target scheme://host every endpoint is rewritten to" required:"true"`
	Strict     bool   `long:"strict-schemas" description:"Fail generation on malformed raw JSON body templates instead of degrading them to schema-less passthrough"`
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "erp-mapgen: %v\n", err)
		os.Exit(1)
	}
}

func run(opts Options) error {
	data, err := os.ReadFile(opts.Collection)
	if err != nil {
		return fmt.Errorf("failed to read collection %s: %w", opts.Collection, err)
	}

	doc, err := collection.Parse(data)
	if err != nil {
		return err
	}
	endpoints := collection.Catalog(doc)
	if len(endpoints) == 0 {
		return fmt.Errorf("collection %s contains no endpoints", opts.Collection)
	}

	mapping, issues, err := canonical.BuildMapping(endpoints, canonical.Options{
		TargetHost:    opts.Host,
		StrictSchemas: opts.Strict,
	})
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "warning: %s: %v (endpoint degraded to schema-less passthrough)\n", issue.Key, issue.Err)
	}

	if err := canonical.Save(opts.Out, mapping); err != nil {
		return err
	}

	fmt.Printf("canonical mapping generated\n")
	fmt.Printf("  collection: %s (%d endpoints)\n", doc.Info.Name, len(endpoints))
	fmt.Printf("  file:       %s\n", opts.Out)
	fmt.Printf("  tools:      %d\n", len(mapping))
	return nil
}
