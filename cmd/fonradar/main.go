// Command fonradar answers natural-language fund questions from the command
// line. With arguments it answers once and exits; without arguments it reads
// questions interactively from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fonradar/fonradar/internal/app"
	"github.com/fonradar/fonradar/internal/common"
)

const questionTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to fonradar.toml")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		common.LoadVersionFromFile()
		fmt.Println(common.GetFullVersion())
		return
	}

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if question := strings.TrimSpace(strings.Join(flag.Args(), " ")); question != "" {
		if err := answer(a, question); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	runInteractive(a)
}

// answer runs one question through the pipeline and prints the report.
func answer(a *app.App, question string) error {
	ctx, cancel := context.WithTimeout(context.Background(), questionTimeout)
	defer cancel()

	report, err := a.QueryService.Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}

// runInteractive reads questions line by line until EOF or interrupt.
func runInteractive(a *app.App) {
	common.PrintBanner(a.Config, a.Logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		a.Logger.Info().Msg("Interrupt received, exiting")
		a.Close()
		os.Exit(0)
	}()

	fmt.Println("Sorunuzu yazın (çıkmak için Ctrl+D):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if err := answer(a, question); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		a.Logger.Error().Err(err).Msg("Input read failed")
	}
}
