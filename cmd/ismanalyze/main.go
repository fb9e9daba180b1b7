package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	console "github.com/phsym/console-slog"
	"github.com/soypat/ism43362/esat"
	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "ismanalyze - Decode Saleae digital captures of ISM43362 SPI traffic into an AT transcript.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	fcs := flag.String("f-cs", "digital_0.bin", "Input filename: SPI CS/SS data.")
	fclk := flag.String("f-clk", "digital_1.bin", "Input filename: SPI SCK data.")
	fmosi := flag.String("f-mosi", "digital_2.bin", "Input filename: SPI MOSI (host to module) data.")
	fmiso := flag.String("f-miso", "digital_3.bin", "Input filename: SPI MISO (module to host) data.")
	output := flag.String("o", "transcript.txt", "Output filename of the AT transcript. Use - for stdout.")
	raw := flag.Bool("raw", false, "Also print the logical bytes of each transaction in hex.")
	verbose := flag.Bool("v", false, "Verbose logging.")
	flag.Parse()

	lvl := slog.LevelInfo
	if *verbose {
		lvl = slog.LevelDebug
	}
	logger := slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{Level: lvl}))

	start := time.Now()
	txs, err := scanFiles(*fclk, *fcs, *fmosi, *fmiso)
	if err != nil {
		logger.Error("scan", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Debug("scanned", slog.Int("transactions", len(txs)))
	var w io.Writer = os.Stdout
	if *output != "-" {
		fp, err := os.Create(*output)
		if err != nil {
			logger.Error("create", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer fp.Close()
		w = fp
	}
	tr := transcriber{Raw: *raw}
	if err := tr.Transcribe(w, txs); err != nil {
		logger.Error("write", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("finished", slog.Duration("elapsed", time.Since(start)), slog.Int("tokens", tr.tokens))
}

// exchange is the data clocked during one chip select window.
type exchange struct {
	Start float64
	MOSI  []byte
	MISO  []byte
}

func scanFiles(fclk, fcs, fmosi, fmiso string) ([]exchange, error) {
	clk, err := opendigital(fclk)
	if err != nil {
		return nil, err
	}
	cs, err := opendigital(fcs)
	if err != nil {
		return nil, err
	}
	mosi, err := opendigital(fmosi)
	if err != nil {
		return nil, err
	}
	miso, err := opendigital(fmiso)
	if err != nil {
		return nil, err
	}
	spi := analyzers.SPI{}
	txs, _ := spi.Scan(clk, cs, mosi, miso)
	exs := make([]exchange, len(txs))
	for i := range txs {
		exs[i] = exchange{Start: txs[i].StartTime(), MOSI: txs[i].SDO, MISO: txs[i].SDI}
	}
	return exs, nil
}

func opendigital(filename string) (*saleae.DigitalFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return saleae.ReadDigitalFile(fp)
}

type direction uint8

const (
	dirHost direction = iota
	dirModule
)

func (d direction) String() string {
	if d == dirHost {
		return "H"
	}
	return "M"
}

// decode returns the direction and logical bytes of a chip select window.
// A window where the host only clocks filler is a module read.
func decode(ex exchange) (direction, []byte) {
	host := esat.AppendDecoded(nil, ex.MOSI)
	if len(bytes.Trim(host, string(esat.Filler))) == 0 {
		return dirModule, esat.AppendDecoded(nil, ex.MISO)
	}
	return dirHost, host
}

type transcriber struct {
	Raw    bool
	tokens int
}

// Transcribe decodes txs and writes one line per protocol token to w. Consecutive
// windows in the same direction are joined before tokenizing.
func (tr *transcriber) Transcribe(w io.Writer, txs []exchange) error {
	bw := bufio.NewWriter(w)
	var (
		acc   []byte
		dir   direction
		start float64
	)
	flush := func() error {
		if len(acc) == 0 {
			return nil
		}
		if dir == dirHost {
			acc = bytes.TrimRight(acc, string(esat.Filler))
		}
		sc := bufio.NewScanner(bytes.NewReader(acc))
		sc.Buffer(make([]byte, 0, 2048), 1<<20)
		sc.Split(esat.ScanTokens)
		for sc.Scan() {
			tok := sc.Bytes()
			if len(tok) == 0 {
				continue
			}
			tr.tokens++
			if _, err := fmt.Fprintf(bw, "t=%f %s %q\n", start, dir, tok); err != nil {
				return err
			}
		}
		acc = acc[:0]
		return sc.Err()
	}
	for i := range txs {
		d, logical := decode(txs[i])
		if len(logical) == 0 {
			continue
		}
		if d != dir || len(acc) == 0 {
			if err := flush(); err != nil {
				return err
			}
			dir = d
			start = txs[i].Start
		}
		if tr.Raw {
			fmt.Fprintf(bw, "t=%f %s raw=%x\n", txs[i].Start, d, logical)
		}
		acc = append(acc, logical...)
	}
	if err := flush(); err != nil {
		return err
	}
	return bw.Flush()
}
