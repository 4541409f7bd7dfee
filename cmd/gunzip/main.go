// Command gunzip decompresses a single gzip file.
//
// Usage:
//	gunzip file.gz
//
// The output file name is taken from the FNAME field recorded in the
// gzip header, if present; otherwise it is the input path with a
// trailing ".gz" removed, or with ".out" appended if the input path does
// not end in ".gz". The output file is created exclusively: gunzip
// refuses to overwrite an existing file.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"example.com/gunzip/gzip"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s file.gz\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Arg(0)); err != nil {
		slog.Error("gunzip failed", "error", err)
		os.Exit(1)
	}
}

func run(inputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in, nil)
	if err != nil {
		return err
	}

	outputPath := outputName(inputPath, zr.Name)
	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, zr); err != nil {
		cerr := fmt.Errorf("at input offset %d: %w", zr.InputOffset, err)
		os.Remove(outputPath)
		return cerr
	}
	if err := out.Close(); err != nil {
		return err
	}
	if zr.ModTime.Unix() != 0 {
		if err := os.Chtimes(outputPath, zr.ModTime, zr.ModTime); err != nil {
			slog.Warn("could not restore modification time", "path", outputPath, "error", err)
		}
	}

	slog.Info("decompressed", "input", inputPath, "output", outputPath)
	return nil
}

// outputName derives the output file name from the FNAME header field
// when present, otherwise by stripping a trailing ".gz" from the input
// path, or by appending ".out" when there is no such suffix.
func outputName(inputPath, headerName string) string {
	if headerName != "" {
		return headerName
	}
	if strings.HasSuffix(inputPath, ".gz") {
		return strings.TrimSuffix(inputPath, ".gz")
	}
	return inputPath + ".out"
}
