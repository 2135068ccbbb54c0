package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"tradebook/internal/mdg"
	"tradebook/internal/ops"
	"tradebook/internal/schema"
)

// tickLine is one generated tick as written to the output.
type tickLine struct {
	Symbol        string `json:"symbol"`
	IntTime       int64  `json:"int_time"`
	LastPrice     string `json:"last_price"`
	TotalVolume   int64  `json:"total_volume"`
	TotalNotional string `json:"total_notional"`
	OpenInterest  int64  `json:"open_interest"`
	UpperLimit    string `json:"upper_limit"`
	LowerLimit    string `json:"lower_limit"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to JSON or YAML config")
	out := flag.String("out", "", "Output file for JSON lines (default: stdout)")
	ticks := flag.Int("ticks", 10, "Number of ticks to generate")
	interval := flag.Duration("interval", 0, "Delay between ticks")
	flag.Parse()

	if *ticks <= 0 {
		log.Fatalf("ticks must be > 0")
	}

	loaded, err := ops.Load(*configPath, "")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	generator, err := mdg.NewGenerator(loaded.Registry, loaded.Market.Generator)
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("open output failed: %v", err)
		}
		defer f.Close()
		w = f
	}

	if err := generate(w, generator, mdg.NewNormalizer(loaded.Registry), *ticks, *interval); err != nil {
		log.Fatalf("generate failed: %v", err)
	}
}

func generate(w io.Writer, gen *mdg.Generator, norm *mdg.Normalizer, ticks int, interval time.Duration) error {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	for i := 0; i < ticks; i++ {
		tick, err := norm.Normalize(gen.Next())
		if err != nil {
			return err
		}
		if err := enc.Encode(toLine(tick)); err != nil {
			return err
		}
		if interval > 0 {
			if err := buf.Flush(); err != nil {
				return err
			}
			time.Sleep(interval)
		}
	}
	return buf.Flush()
}

func toLine(t schema.Tick) tickLine {
	return tickLine{
		Symbol:        t.Symbol,
		IntTime:       t.IntTime,
		LastPrice:     t.LastPrice.String(),
		TotalVolume:   t.TotalVolume,
		TotalNotional: t.TotalNotional.String(),
		OpenInterest:  t.OpenInterest,
		UpperLimit:    t.UpperLimit.String(),
		LowerLimit:    t.LowerLimit.String(),
	}
}
