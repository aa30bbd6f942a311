package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/klauspost/compress/zlib"
	"github.com/sirupsen/logrus"

	"github.com/nabil6391/rawcooked/container"
	"github.com/nabil6391/rawcooked/ledger"
	"github.com/nabil6391/rawcooked/probe"
	"github.com/nabil6391/rawcooked/rawcooked"
)

func main() {
	outputFile := ""
	acceptTruncated := false
	level := zlib.BestCompression
	hashName := ""
	verbose := false
	var attachments []string

	flag.StringVar(&outputFile, "o", "", "output file")
	flag.BoolVar(&acceptTruncated, "accept-truncated", false, "clamp chunks running past the end of their parent")
	flag.IntVar(&level, "level", level, "zlib compression level")
	flag.StringVar(&hashName, "hash", "", "hash scheme of the file digests (md5, sha256, blake2b, sha3, xxh64)")
	flag.Func("attach", "file stored beside the essence (repeatable)", func(s string) error {
		attachments = append(attachments, s)
		return nil
	})
	flag.BoolVar(&verbose, "v", false, "debug logging")

	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if outputFile == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	opts := []probe.Option{probe.WithOptions(container.AcceptTruncated(acceptTruncated))}
	if hashName != "" {
		scheme, err := rawcooked.ParseHashScheme(hashName)
		if err != nil {
			logrus.Fatal(err)
		}
		opts = append(opts, probe.WithHash(scheme))
	}

	out, err := os.Create(outputFile)
	if err != nil {
		logrus.Fatal(err)
	}
	defer out.Close()

	enc := rawcooked.NewEncoder(out, rawcooked.WithCompressionLevel(level))
	l := ledger.New()
	if err := run(enc, l, flag.Args(), attachments, opts); err != nil {
		out.Close()
		logrus.Fatal(err)
	}

	if report := l.Render(); report != "" {
		fmt.Fprint(os.Stderr, report)
	}
	if l.HasErrors() {
		out.Close()
		os.Exit(1)
	}
}

// run encodes the files in order. Unique files are tracks of their own and
// consecutive frames of a sequence share one track.
func run(enc *rawcooked.Encoder, l *ledger.Ledger, files, attachments []string, opts []probe.Option) error {
	sequence := false
	for _, name := range files {
		buf, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		f, err := probe.Parse(buf, name, l, opts...)
		if err != nil {
			logrus.WithField("file", name).Warnf("Skipped: %v", err)
			continue
		}
		if f.Unit.IsUnique || !sequence {
			enc.ResetTrack()
		}
		sequence = !f.Unit.IsUnique
		if err := enc.Encode(f.Unit); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logrus.WithFields(logrus.Fields{
			"file":   name,
			"format": f.Format,
			"flavor": f.FlavorName,
		}).Info("Encoded")
	}

	for _, name := range attachments {
		buf, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		if err := enc.Encode(probe.Attachment(buf, name, opts...)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logrus.WithField("file", name).Info("Attached")
	}
	return nil
}
