// Command tvbridge runs the host side of the pipeline bridge: it connects
// to the pipeline server, exposes execute_george, drains inbound calls once
// per tick and forwards operator tool commands as blocking calls.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tvbridge/internal/bridge"
	"tvbridge/internal/george"
	"tvbridge/internal/infra/config"
	"tvbridge/internal/infra/logger"
	"tvbridge/internal/infra/tracer"
	"tvbridge/internal/journal"
)

// tools maps operator shortcuts to the remote tool methods.
var tools = map[string]string{
	"workfiles": "workfiles_tool",
	"load":      "loader_tool",
	"create":    "creator_tool",
	"inventory": "scene_inventory_tool",
	"publish":   "publish_tool",
	"library":   "library_loader_tool",
}

func main() {
	cfgPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(ctx)

	var opts []bridge.Option
	var store *journal.Store
	if cfg.Bridge.JournalPath != "" {
		store, err = journal.Open(cfg.Bridge.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, bridge.WithRecorder(store))
	}

	b := bridge.New(log, opts...)
	runner := george.NewExecRunner(cfg.Bridge.GeorgeCommand, log)
	b.Register(george.MethodName, george.Handler(runner))

	b.Configure(cfg.Bridge.URL)
	if err := b.Connect(ctx); err != nil {
		// The bridge stays up as a no-op so the host keeps functioning.
		log.Warn("running without server link", "error", err)
	}

	commands := make(chan string)
	go readCommands(commands)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.TickDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Drain(ctx)
		case line, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			handleCommand(ctx, b, store, log, line)
		case <-sig:
			log.Info("shutting down")
			b.Close()
			return nil
		}
	}
}

// readCommands forwards stdin lines to the main loop.
func readCommands(out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

func handleCommand(ctx context.Context, b *bridge.Bridge, store *journal.Store, log *slog.Logger, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "tool":
		if len(fields) < 2 {
			fmt.Println("usage: tool <name>")
			return
		}
		method, ok := tools[fields[1]]
		if !ok {
			method = fields[1]
		}
		resp, err := b.CallTimeout(ctx, method, json.RawMessage("[]"), time.Minute)
		if err != nil {
			log.Warn("tool call failed", "method", method, "error", err)
			return
		}
		if resp.Error != nil {
			fmt.Printf("%s: error %d: %s\n", method, resp.Error.Code, resp.Error.Message)
			return
		}
		fmt.Printf("%s: %s\n", method, string(resp.Result))
	case "notify":
		if len(fields) < 2 {
			fmt.Println("usage: notify <method>")
			return
		}
		if err := b.Notify(ctx, fields[1], nil); err != nil {
			log.Warn("notify failed", "method", fields[1], "error", err)
		}
	case "status":
		fmt.Printf("state: %s\n", b.State())
		if conn := b.Connection(); conn != nil {
			fmt.Printf("conn: %s status=%s server=%q uri=%s\n",
				conn.Handle(), conn.Status(), conn.Banner(), conn.URI())
		}
	case "traffic":
		if store == nil {
			fmt.Println("journal disabled (set bridge.journal_path)")
			return
		}
		entries, err := store.Recent(20)
		if err != nil {
			log.Warn("read journal", "error", err)
			return
		}
		for _, e := range entries {
			fmt.Printf("%s %-3s %s\n", e.Time.Format(time.RFC3339), e.Direction, e.Payload)
		}
	default:
		fmt.Printf("unknown command %q (tool, notify, status, traffic)\n", fields[0])
	}
}
