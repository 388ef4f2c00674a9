package main

import (
	"fmt"
	"io"
	"log/slog"

	"smart-switch/config"
	"smart-switch/internal/application"
	"smart-switch/internal/record"
)

// runDump prints the raw stored records in slot order, then the listing the
// controller would serve after loading them. The store is never written.
func runDump(w io.Writer, cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache, closer, err := openCache(cfg.Store, true, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	records, err := cache.Records()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "header: %d records, capacity %d\n", len(records), cache.Tree().Cap())
	for i, r := range records {
		fmt.Fprintf(w, "slot %3d @%4d: % x  %s\n", i, record.Offset(i), r[:], record.Decode(r).Record())
	}

	service := application.NewService(cache, application.NopTransmitter{}, &application.NoopNotifier{},
		application.NopMetrics{}, application.SystemClock{}, logger)
	if err := service.Load(); err != nil {
		return err
	}
	fmt.Fprint(w, "listing: ")
	return service.WriteListing(w)
}
