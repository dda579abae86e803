// Command stockreplay-prune removes blacklisted stock codes from a reference
// dataset file in place.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/storage/refdata"
)

func main() {
	path := flag.String("dataset", "", "dataset file to prune (required)")
	codes := flag.String("codes", "", "comma-separated codes to remove (default: built-in blacklist)")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := common.NewLogger(*logLevel)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: stockreplay-prune -dataset path/to/taiwan_stocks.json [-codes 1234,5678]")
		os.Exit(2)
	}

	blacklist := refdata.DefaultBlacklist
	if *codes != "" {
		blacklist = nil
		for _, c := range strings.Split(*codes, ",") {
			if c = strings.TrimSpace(c); c != "" {
				blacklist = append(blacklist, c)
			}
		}
	}

	result, err := refdata.Prune(*path, blacklist)
	if err != nil {
		logger.Error().Err(err).Str("dataset", *path).Msg("Prune failed")
		os.Exit(1)
	}

	for _, r := range result.Removed {
		logger.Info().Str("code", r.Code).Str("name", r.Name).Msg("Removed")
	}
	if len(result.Missing) > 0 {
		logger.Warn().Strs("codes", result.Missing).Msg("Codes not in dataset")
	}

	logger.Info().
		Str("dataset", *path).
		Int("before", result.Before).
		Int("after", result.After).
		Int("removed", len(result.Removed)).
		Msg("Prune complete")
}
