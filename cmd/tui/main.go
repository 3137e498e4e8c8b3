package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gaptrader-go/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Gap Trader Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit sizing and risk knobs")
		fmt.Println("3) Edit signal and window settings")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch trader")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editRisk(reader, cfg)
		case "3":
			editSignal(reader, cfg)
		case "4":
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "not saved: %v\n", err)
			} else if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchTrader(reader, cfg.Console.UrgentToken)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Provider: %s (dry run %t)\n", cfg.Broker.Provider, cfg.Broker.DryRun)
	fmt.Printf("Gap threshold: %.2f%% | volume multiplier: %.2fx over %d days\n",
		cfg.Strategy.GapThreshold*100, cfg.Strategy.VolMultiplier, cfg.Strategy.LookbackVol)
	fmt.Printf("Mode: %s\n", cfg.Strategy.Mode)
	fmt.Printf("Max positions: %d | allocation per trade: %.2f%%\n", cfg.Risk.MaxPositions, cfg.Risk.AllocPerTrade*100)
	fmt.Printf("Trading window: %s-%s (%s)\n", cfg.Window.Start, cfg.Window.End, cfg.Window.Location)
	if len(cfg.Strategy.Symbols) > 0 {
		fmt.Println("Symbols:", strings.Join(cfg.Strategy.Symbols, ", "))
	} else {
		fmt.Println("Symbols: every tradable and shortable asset")
	}
	fmt.Printf("Paper cash: $%.2f | commission: %.2f bps\n", cfg.Paper.StartingCash, cfg.Paper.CommissionBps)
	for _, w := range cfg.Warnings() {
		fmt.Println("warning:", w)
	}
}

func editRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Sizing / Risk ---")
	cfg.Risk.MaxPositions = int(promptFloat(reader, "Max positions per pass", float64(cfg.Risk.MaxPositions)))
	cfg.Risk.AllocPerTrade = promptPercent(reader, "Allocation per trade (%)", cfg.Risk.AllocPerTrade)
	cfg.Paper.StartingCash = promptFloat(reader, "Paper starting cash", cfg.Paper.StartingCash)
	cfg.Paper.CommissionBps = promptFloat(reader, "Paper commission (bps)", cfg.Paper.CommissionBps)
}

func editSignal(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Signal / Window ---")
	cfg.Strategy.GapThreshold = promptPercent(reader, "Gap threshold (%)", cfg.Strategy.GapThreshold)
	cfg.Strategy.VolMultiplier = promptFloat(reader, "Volume multiplier", cfg.Strategy.VolMultiplier)
	cfg.Strategy.LookbackVol = int(promptFloat(reader, "Volume lookback (days)", float64(cfg.Strategy.LookbackVol)))
	cfg.Strategy.Mode = promptString(reader, "Mode (revert/momentum/both)", cfg.Strategy.Mode)
	cfg.Window.Start = promptString(reader, "Window start HH:MM", cfg.Window.Start)
	cfg.Window.End = promptString(reader, "Window end HH:MM", cfg.Window.End)
	fmt.Printf("Current symbols: %s\n", strings.Join(cfg.Strategy.Symbols, ", "))
	fmt.Print("Enter symbols comma-separated (blank to keep, - for all assets): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		cfg.Strategy.Symbols = nil
		if strings.TrimSpace(line) != "-" {
			for _, p := range strings.Split(strings.TrimSpace(line), ",") {
				if trimmed := strings.ToUpper(strings.TrimSpace(p)); trimmed != "" {
					cfg.Strategy.Symbols = append(cfg.Strategy.Symbols, trimmed)
				}
			}
		}
	}
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return current
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
