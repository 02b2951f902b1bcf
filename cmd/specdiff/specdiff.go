// Command specdiff compares two revisions of a specification document,
// section by section, and writes one annotated HTML file per section plus a
// net-change summary. Section data is read from two directories of
// per-section JSON files, one per revision.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/gops/agent"
	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/specdiff/config"
	"github.com/nicolagi/specdiff/internal/engine"
	"github.com/nicolagi/specdiff/internal/reconcile"
	"github.com/nicolagi/specdiff/internal/remote"
	"github.com/nicolagi/specdiff/internal/section"
)

const pageTemplate = `<!doctype html>
<meta charset="utf-8">
<title>%s %s</title>
<style>
ins.change { background: #e6ffec; text-decoration: none; }
del.change { background: #ffebe9; }
li[data-marker] { list-style: none; }
li[data-marker]::before { content: attr(data-marker) ". "; }
</style>
<h1>%s %s</h1>
%s
`

func renderPage(sd reconcile.SectionDiff) string {
	return fmt.Sprintf(pageTemplate, sd.Num, sd.Title, sd.Num, sd.Title, sd.HTML)
}

func setLogLevel(level string) error {
	ll, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(ll)
	return nil
}

func main() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("Could not start gops agent: %v", err)
	}

	base := flag.String("base", config.DefaultBaseDirectoryPath, "Base directory for configuration and logs")
	oldDir := flag.String("old", "", "Directory of section JSON files for the old revision")
	newDir := flag.String("new", "", "Directory of section JSON files for the new revision")
	output := flag.String("o", "", "Output directory, overriding the configured one")
	logLevel := flag.String("log-level", "", "Log level, overriding the configured one")
	flag.Parse()
	if *oldDir == "" || *newDir == "" {
		fmt.Fprintln(os.Stderr, "usage: specdiff -old DIR -new DIR [-o DIR] [section...]")
		os.Exit(2)
	}
	cfg, err := config.Load(*base)
	if err != nil {
		log.Fatalf("Could not load config from %q: %v", *base, err)
	}
	if *output != "" {
		cfg.OutputDir = *output
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := setLogLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Could not set log level: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		log.WithField("signal", s).Info("Shutting down")
		cancel()
	}()

	left := section.NewCached(section.NewDirSource(*oldDir))
	right := section.NewCached(section.NewDirSource(*newDir))

	ids := flag.Args()
	if len(ids) == 0 {
		ids, err = section.NewDirSource(*oldDir).IDs()
		if err != nil {
			log.Fatalf("Could not enumerate sections: %v", err)
		}
	}

	clientEnd, serverEnd := remote.Pipe()
	server := engine.NewServer(serverEnd, cfg.EngineWorkers)
	go func() {
		if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("Diff engine stopped: %v", err)
		}
	}()
	client := remote.NewClient(clientEnd)
	defer func() {
		_ = client.Close()
	}()

	differ := reconcile.NewDiffer(client, left, right)
	result, err := differ.Run(ctx, ids)
	if err != nil {
		log.Fatalf("Could not run diff: %v", err)
	}
	if result.Aborted {
		log.Info("Invocation aborted, no output written")
		return
	}

	if err := os.MkdirAll(cfg.OutputDir, 0777); err != nil {
		log.Fatalf("Could not create output directory: %v", err)
	}
	totalInserted, totalDeleted := 0, 0
	for _, sd := range result.Sections {
		if sd.Message != "" {
			fmt.Printf("%s\tSKIPPED\t%s\n", sd.ID, sd.Message)
			continue
		}
		pathname := filepath.Join(cfg.OutputDir, sd.ID+".html")
		if err := os.WriteFile(pathname, []byte(renderPage(sd)), 0666); err != nil {
			log.Fatalf("Could not write %q: %v", pathname, err)
		}
		totalInserted += sd.Inserted
		totalDeleted += sd.Deleted
		fmt.Printf("%s\t+%d\t-%d\t%s\n", sd.ID, sd.Inserted, sd.Deleted, strings.TrimSpace(sd.Num+" "+sd.Title))
	}
	fmt.Printf("total\t+%d\t-%d\n", totalInserted, totalDeleted)
}
