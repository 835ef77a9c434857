/*
PDF Analyze - структурный разбор PDF без модели.

Пишет картинки и summary.json в -out, печатает сводку. При s3.enabled
результаты зеркалятся в <s3.prefix>/extractions/<имя pdf>/.

	pdf-analyze -out pdf_analysis report.pdf
	pdf-analyze s3://bucket-key/report.pdf
*/

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ilkoid/poncho-assist/pkg/app"
	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/extract"
	"github.com/ilkoid/poncho-assist/pkg/s3storage"
	"github.com/ilkoid/poncho-assist/pkg/tools/std"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

func main() {
	configFlag := flag.String("config", "", "path to config.yaml (only s3 and extraction sections are used)")
	outDir := flag.String("out", "pdf_analysis", "directory for extracted images and summary.json")
	noImages := flag.Bool("no-images", false, "skip image extraction")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file.pdf|s3://key>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configFlag, flag.Arg(0), *outDir, !*noImages); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, ref, outDir string, images bool) error {
	finder := &app.DefaultConfigPathFinder{ConfigFlag: configPath}
	cfg, err := config.Read(finder.FindConfigPath())
	if err != nil {
		return err
	}
	if _, err := utils.InitLogger(cfg.App.LogDir, "pdf-analyze"); err != nil {
		return err
	}
	utils.SetDebug(cfg.App.Debug)
	ctx, shutdown := utils.SetupGracefulShutdown()
	defer shutdown()

	var storage *s3storage.Client
	if cfg.S3.Enabled {
		if storage, err = s3storage.New(cfg.S3); err != nil {
			return err
		}
	}

	var st s3storage.Storage
	if storage != nil {
		st = storage
	}
	files := std.NewFileResolver(st)
	defer files.Cleanup()

	pdfPath, err := files.Resolve(ctx, ref)
	if err != nil {
		return err
	}

	doc, err := extract.Partition(pdfPath, extract.Options{ExtractImages: images, OutputDir: outDir})
	if err != nil && !extract.IsPartial(err) {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	summary := extract.Summarize(doc)
	summary.FilePath = ref
	summaryPath, err := extract.WriteSummary(outDir, summary)
	if err != nil {
		return err
	}

	printSummary(summary, summaryPath)

	if storage != nil {
		prefix := s3storage.ExtractionPrefix(cfg.S3.Prefix, pdfPath)
		keys, err := s3storage.MirrorDir(ctx, storage, outDir, prefix)
		if err != nil {
			return fmt.Errorf("mirror to s3: %w", err)
		}
		fmt.Printf("\nUploaded %d files to s3://%s/%s\n", len(keys), storage.Bucket(), prefix)
	}
	return nil
}

func printSummary(s extract.Summary, path string) {
	fmt.Println("PDF Analysis Summary:")
	fmt.Printf("Total pages: %d\n", s.ElementCounts.Pages)
	fmt.Printf("Total text elements: %d\n", s.ElementCounts.Text)
	fmt.Printf("Total titles: %d\n", s.ElementCounts.Titles)
	fmt.Printf("Total tables: %d\n", s.ElementCounts.Tables)
	fmt.Printf("Total images: %d\n", s.ElementCounts.Images)

	if len(s.TitleList) > 0 {
		fmt.Println("\nDocument titles:")
		for _, title := range s.TitleList {
			fmt.Printf("- %s\n", title)
		}
	}
	fmt.Printf("\nSaved summary to %s\n", path)
}

