package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/luca-patrignani/product-ledger/audit"
	"github.com/luca-patrignani/product-ledger/config"
	"github.com/luca-patrignani/product-ledger/ledger"
)

func main() {
	cfg, help, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrHelpWanted) {
			fmt.Println(help)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Create a new slog logger backed by the PTerm logger
	logger := slog.New(pterm.NewSlogHandler(pterm.DefaultLogger.WithLevel(logLevel(cfg.Level()))))
	logger.Debug("configuration loaded", "config", cfg.String())

	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("P", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("roduct ", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("L", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("edger", pterm.FgDarkGray.ToStyle()),
	).Render()

	bc := ledger.NewBlockchain(newBlockchainOptions(cfg.FixedClock, logger)...)

	pterm.DefaultSection.Println("Adding products to the blockchain...")
	r := runScenario(bc)
	for _, b := range r.Mined {
		logger.Info("block mined", "index", b.Index, "products", len(b.Products), "hash", b.Hash)
	}

	pterm.DefaultSection.Println("Verifying products on the blockchain...")
	if r.Verified {
		pterm.Success.Printfln("Product verified: %s", r.Checked)
	} else {
		pterm.Error.Printfln("Product not found: %s", r.Checked)
	}

	pterm.DefaultSection.Println("Checking for fake products...")
	if err := printChain(bc.Blocks(), getFakesPanel(r.Fakes)); err != nil {
		logger.Error("failed to render the chain", "error", err)
	}
	if len(r.Fakes) > 0 {
		pterm.Warning.Printfln("Fake products found: %d", len(r.Fakes))
	}

	if err := bc.Verify(); err != nil {
		logger.Error("chain integrity check failed", "error", err)
		os.Exit(1)
	}
	pterm.Info.Printfln("Chain of %d blocks verified", bc.Len())

	if cfg.AuditAddr == "" {
		return
	}
	if err := serveAudit(cfg.AuditAddr, bc, logger); err != nil {
		logger.Error("audit API stopped", "error", err)
		os.Exit(1)
	}
}

func newBlockchainOptions(fixedClock bool, logger *slog.Logger) []ledger.Option {
	opts := []ledger.Option{ledger.WithLogger(logger)}
	if fixedClock {
		opts = append(opts, ledger.WithClock(ledger.NewStepClock(time.Unix(1700000000, 0), time.Second)))
	}
	return opts
}

// serveAudit blocks until the process is interrupted or the server fails.
func serveAudit(addr string, bc *ledger.Blockchain, logger *slog.Logger) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	server := audit.NewServer(addr, bc, logger)
	server.Start(l)
	pterm.Info.Printfln("Audit API listening on %s, press Ctrl+C to stop", l.Addr().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		return server.Close(5 * time.Second)
	case err, ok := <-server.Err():
		if ok {
			return err
		}
		return nil
	}
}

func logLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}
